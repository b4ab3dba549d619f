// Package pipeline は プロット抽出 → ページ組み立て → 画像合成 →
// テキストボックス配置 の4ステージを1プロジェクトぶん駆動する司令塔です。
// ページ単位の失敗は隔離し、インフラ・永続化の失敗だけがプロジェクト全体を
// failed にするのだ。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/extractor"
	"github.com/shouni/go-comic-kit/pkg/layout"
	"github.com/shouni/go-comic-kit/pkg/synthesizer"
)

// 既定の実行パラメータなのだ。
const (
	DefaultImageWorkers = 2
	totalSteps          = 6
)

// 進捗イベントのステップ名です。
const (
	StepExtract    = "extract"
	StepPlotSaved  = "plot_saved"
	StepAssemble   = "assemble"
	StepSynthesize = "synthesize"
	StepLayout     = "layout"
	StepComplete   = "complete"
)

// Args は Pipeline の依存関係をまとめた初期化引数です。
type Args struct {
	Repo   Repository
	Plots  PlotService
	Pages  PageService
	Images ImageService

	// Callback は省略可能な同期進捗コールバックです。
	Callback ProgressFunc
	// Workers は画像合成の同時実行数です。0 以下なら DefaultImageWorkers。
	Workers int
	// RateInterval は画像合成呼び出しの流量制限間隔です。0 なら制限なし。
	RateInterval time.Duration
}

// Pipeline はオーケストレーターの本体です。
type Pipeline struct {
	repo     Repository
	plots    PlotService
	pages    PageService
	images   ImageService
	progress *Broadcaster
	callback ProgressFunc
	workers  int
	interval time.Duration

	// emitMu は進捗の単調非減少を保証するために発行を直列化するのだ
	emitMu sync.Mutex
}

// New は Pipeline を初期化します。
func New(args Args) (*Pipeline, error) {
	if args.Repo == nil {
		return nil, fmt.Errorf("Repo (pipeline.Repository) is required")
	}
	if args.Plots == nil {
		return nil, fmt.Errorf("Plots (pipeline.PlotService) is required")
	}
	if args.Pages == nil {
		return nil, fmt.Errorf("Pages (pipeline.PageService) is required")
	}
	if args.Images == nil {
		return nil, fmt.Errorf("Images (pipeline.ImageService) is required")
	}

	workers := args.Workers
	if workers <= 0 {
		workers = DefaultImageWorkers
	}

	return &Pipeline{
		repo:     args.Repo,
		plots:    args.Plots,
		pages:    args.Pages,
		images:   args.Images,
		progress: NewBroadcaster(),
		callback: args.Callback,
		workers:  workers,
		interval: args.RateInterval,
	}, nil
}

// Subscribe は進捗イベントの購読チャネルを返します。
func (pl *Pipeline) Subscribe(buffer int) <-chan domain.ProgressEvent {
	return pl.progress.Subscribe(buffer)
}

// Close は進捗の全購読チャネルを閉じます。Run 中に呼んではいけません。
func (pl *Pipeline) Close() {
	pl.progress.Close()
}

// Run は1プロジェクトぶんの変換を最初から最後まで駆動します。
// ページ単位の画像合成の失敗は隔離されるため、一部ページが failed のまま
// プロジェクトが completed になることがあります。それ以外の失敗は
// プロジェクトを failed にし、ログへ記録した上で呼び出し元へ返すのだ。
func (pl *Pipeline) Run(ctx context.Context, projectID string) (err error) {
	runStart := time.Now()

	// オーケストレーター境界で一度だけ panic を捕まえ、スタック付きで記録するのだ
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Errorf("予期しないパイプラインエラー: %v", r)
			err = pl.failProject(ctx, projectID, domain.StagePipeline, cause, debug.Stack())
		}
	}()

	project, err := pl.repo.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return fmt.Errorf("プロジェクト %s が見つかりません", projectID)
	}

	slog.InfoContext(ctx, "パイプラインを開始します",
		"project_id", projectID, "max_scenes", project.Settings.MaxScenes)

	// --- Stage 1: プロット抽出 ---
	if err := pl.repo.UpdateProjectStatus(ctx, projectID, domain.ProjectStatusProcessing); err != nil {
		return pl.failProject(ctx, projectID, domain.StagePipeline, err, nil)
	}
	pl.emit(StepExtract, 10, "物語からキーシーンを抽出しています", 1)

	plot, err := pl.runExtraction(ctx, project)
	if err != nil {
		return pl.failProject(ctx, projectID, domain.StageTextAnalysis, err, nil)
	}
	pl.emit(StepPlotSaved, 30, fmt.Sprintf("%d個のシーンを抽出しました", len(plot.Scenes)), 2)

	// --- Stage 2: ページ組み立て ---
	pages, err := pl.runAssembly(ctx, project, plot)
	if err != nil {
		return pl.failProject(ctx, projectID, domain.StagePageAssembly, err, nil)
	}
	pl.emit(StepAssemble, 50, fmt.Sprintf("%dページの骨格を作成しました", len(pages)), 3)

	// --- Stage 3: 画像合成（ページ失敗は隔離） ---
	if err := pl.runSynthesis(ctx, project, plot, pages); err != nil {
		return pl.failProject(ctx, projectID, domain.StageImageGeneration, err, nil)
	}

	// --- Stage 4: テキストボックス配置 ---
	if err := pl.runLayout(ctx, project, pages); err != nil {
		return pl.failProject(ctx, projectID, domain.StageTextBoxLayout, err, nil)
	}
	pl.emit(StepLayout, 90, "セリフのテキストボックスを配置しました", 5)

	// --- 完了 ---
	if err := pl.repo.UpdateProjectStatus(ctx, projectID, domain.ProjectStatusCompleted); err != nil {
		return pl.failProject(ctx, projectID, domain.StagePipeline, err, nil)
	}
	entry := domain.NewLogEntry(projectID, domain.StagePipeline, domain.LogStatusCompleted, "パイプラインが完了しました").
		WithDuration(time.Since(runStart))
	if err := pl.repo.AppendLog(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "完了ログの書き込みに失敗しました", "error", err)
	}
	pl.emit(StepComplete, 100, "コミックの生成が完了しました", 6)

	slog.InfoContext(ctx, "パイプラインが完了しました",
		"project_id", projectID, "pages", len(pages), "duration", time.Since(runStart))
	return nil
}

// runExtraction はステージ1を実行し、抽出結果を永続化します。
func (pl *Pipeline) runExtraction(ctx context.Context, project *domain.ComicProject) (*domain.ExtractedPlot, error) {
	stageStart := time.Now()
	if err := pl.logStage(ctx, project.ID, domain.StageTextAnalysis, domain.LogStatusStarted, "プロット抽出を開始", 0, nil); err != nil {
		return nil, err
	}

	plot, err := pl.plots.ExtractPlot(ctx, project.InputText, extractor.Options{
		MaxScenes: project.Settings.MaxScenes,
		TargetAge: project.Settings.TargetAge,
		Style:     project.Settings.Style,
	})
	if err != nil {
		return nil, fmt.Errorf("プロット抽出に失敗しました: %w", err)
	}

	if err := pl.repo.SavePlot(ctx, project.ID, plot); err != nil {
		return nil, fmt.Errorf("プロットの保存に失敗しました: %w", err)
	}
	project.Plot = plot

	if err := pl.logStage(ctx, project.ID, domain.StageTextAnalysis, domain.LogStatusCompleted,
		fmt.Sprintf("%d個のシーンを抽出", len(plot.Scenes)), time.Since(stageStart), nil); err != nil {
		return nil, err
	}
	return plot, nil
}

// runAssembly はステージ2を実行します。
func (pl *Pipeline) runAssembly(ctx context.Context, project *domain.ComicProject, plot *domain.ExtractedPlot) ([]*domain.ComicPage, error) {
	stageStart := time.Now()
	if err := pl.logStage(ctx, project.ID, domain.StagePageAssembly, domain.LogStatusStarted, "ページ組み立てを開始", 0, nil); err != nil {
		return nil, err
	}

	pages, err := pl.pages.AssemblePages(ctx, project.ID, plot, project.Settings)
	if err != nil {
		return nil, fmt.Errorf("ページ組み立てに失敗しました: %w", err)
	}

	if err := pl.logStage(ctx, project.ID, domain.StagePageAssembly, domain.LogStatusCompleted,
		fmt.Sprintf("%dページを作成", len(pages)), time.Since(stageStart), nil); err != nil {
		return nil, err
	}
	return pages, nil
}

// runSynthesis はステージ3を実行します。ページは有界な並列度と流量制限の
// もとで処理され、1ページの合成失敗はそのページを failed にするだけで
// ループ全体を止めません。永続化エラーだけが error として返るのだ。
func (pl *Pipeline) runSynthesis(ctx context.Context, project *domain.ComicProject, plot *domain.ExtractedPlot, pages []*domain.ComicPage) error {
	stageStart := time.Now()
	if err := pl.logStage(ctx, project.ID, domain.StageImageGeneration, domain.LogStatusStarted,
		fmt.Sprintf("%dページの画像合成を開始", len(pages)), 0, nil); err != nil {
		return err
	}

	limit := rate.Inf
	if pl.interval > 0 {
		limit = rate.Every(pl.interval)
	}
	limiter := rate.NewLimiter(limit, pl.workers)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(pl.workers)

	var progressMu sync.Mutex
	processed := 0
	failedPages := 0

	for _, page := range pages {
		page := page
		scene := sceneForPage(plot, page.PageNumber)

		eg.Go(func() error {
			if err := limiter.Wait(egCtx); err != nil {
				return err
			}

			if err := pl.repo.UpdatePageStatus(egCtx, page.ID, domain.PageStatusGenerating); err != nil {
				return fmt.Errorf("ページ %d の状態更新に失敗しました: %w", page.PageNumber, err)
			}

			result, synthErr := pl.images.Synthesize(egCtx, page.ImagePrompt, scene, synthesizer.Options{
				Style:       project.Settings.Style,
				AspectRatio: project.Settings.AspectRatio,
				Name:        fmt.Sprintf("%s/page_%02d", project.ID, page.PageNumber),
			})
			if synthErr != nil {
				// 失敗の隔離: このページだけを failed にして続行するのだ
				slog.ErrorContext(egCtx, "ページの画像合成に失敗しました",
					"project_id", project.ID, "page", page.PageNumber, "error", synthErr)
				if err := pl.repo.UpdatePageStatus(egCtx, page.ID, domain.PageStatusFailed); err != nil {
					return fmt.Errorf("ページ %d の失敗記録に失敗しました: %w", page.PageNumber, err)
				}
				entry := domain.NewLogEntry(project.ID, domain.StageImageGeneration, domain.LogStatusFailed,
					fmt.Sprintf("ページ %d の画像合成に失敗", page.PageNumber)).WithError(synthErr)
				if err := pl.repo.AppendLog(egCtx, entry); err != nil {
					return fmt.Errorf("ページ %d の失敗ログに失敗しました: %w", page.PageNumber, err)
				}
			} else {
				if err := pl.repo.SetPageImage(egCtx, page.ID, result.URL, result.IsFallback); err != nil {
					return fmt.Errorf("ページ %d の画像URL保存に失敗しました: %w", page.PageNumber, err)
				}
				if err := pl.repo.UpdatePageStatus(egCtx, page.ID, domain.PageStatusCompleted); err != nil {
					return fmt.Errorf("ページ %d の完了記録に失敗しました: %w", page.PageNumber, err)
				}
				page.ImageURL = result.URL
				page.IsFallback = result.IsFallback
			}

			// 進捗は処理済みページ数から計算し、発行ごと直列化して単調性を守るのだ
			progressMu.Lock()
			processed++
			if synthErr != nil {
				failedPages++
			}
			progress := 50 + 40*processed/len(pages)
			pl.emit(StepSynthesize, progress,
				fmt.Sprintf("画像を合成中 (%d/%d)", processed, len(pages)), 4)
			progressMu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	return pl.logStage(ctx, project.ID, domain.StageImageGeneration, domain.LogStatusCompleted,
		fmt.Sprintf("画像合成が完了 (成功 %d / 失敗 %d)", len(pages)-failedPages, failedPages),
		time.Since(stageStart), nil)
}

// runLayout はステージ4を実行します。セリフのある全ページについて
// 決定論的な配置を計算し、空でない行ごとに1つのテキストボックスを
// 永続化するのだ。
func (pl *Pipeline) runLayout(ctx context.Context, project *domain.ComicProject, pages []*domain.ComicPage) error {
	stageStart := time.Now()
	if err := pl.logStage(ctx, project.ID, domain.StageTextBoxLayout, domain.LogStatusStarted, "テキストボックス配置を開始", 0, nil); err != nil {
		return err
	}

	boxes := 0
	for _, page := range pages {
		if strings.TrimSpace(page.DialogueText) == "" {
			continue
		}
		lines := strings.Split(page.DialogueText, "\n")
		rects := layout.LayoutDialogue(lines)

		for i, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue // 空行はボックスを作らないのだ
			}
			box := domain.NewComicTextBox(page.ID, line,
				rects[i].X, rects[i].Y, rects[i].Width, rects[i].Height,
				layout.ClassifyBoxType(line), project.Settings)
			if err := pl.repo.CreateTextBox(ctx, box); err != nil {
				return fmt.Errorf("ページ %d のテキストボックス保存に失敗しました: %w", page.PageNumber, err)
			}
			boxes++
		}
	}

	return pl.logStage(ctx, project.ID, domain.StageTextBoxLayout, domain.LogStatusCompleted,
		fmt.Sprintf("%d個のテキストボックスを配置", boxes), time.Since(stageStart), nil)
}

// failProject はプロジェクトを failed に遷移させ、原因をログへ記録した上で
// 呼び出し元へ返すエラーを組み立てます。二次エラーは握りつぶさずに
// slog へ流すだけに留めるのだ。
func (pl *Pipeline) failProject(ctx context.Context, projectID, stage string, cause error, stack []byte) error {
	entry := domain.NewLogEntry(projectID, stage, domain.LogStatusFailed, cause.Error()).WithError(cause)
	if stack != nil {
		entry.ErrorDetail = cause.Error() + "\n" + string(stack)
	}
	if err := pl.repo.AppendLog(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "失敗ログの書き込みに失敗しました", "project_id", projectID, "error", err)
	}
	if err := pl.repo.UpdateProjectStatus(ctx, projectID, domain.ProjectStatusFailed); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		slog.ErrorContext(ctx, "プロジェクトの失敗遷移に失敗しました", "project_id", projectID, "error", err)
	}
	slog.ErrorContext(ctx, "パイプラインが失敗しました", "project_id", projectID, "stage", stage, "error", cause)
	return fmt.Errorf("パイプライン実行に失敗しました (stage=%s): %w", stage, cause)
}

// logStage はステージ遷移ログを1行書きます。追記の失敗は永続化エラー
// としてそのまま返します。
func (pl *Pipeline) logStage(ctx context.Context, projectID, stage string, status domain.LogStatus, message string, d time.Duration, cause error) error {
	entry := domain.NewLogEntry(projectID, stage, status, message).WithError(cause)
	if d > 0 {
		entry.WithDuration(d)
	}
	if err := pl.repo.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("処理ログの書き込みに失敗しました: %w", err)
	}
	return nil
}

// emit は進捗イベントをブロードキャスターとコールバックへ届けます。
func (pl *Pipeline) emit(step string, progress int, message string, current int) {
	pl.emitMu.Lock()
	defer pl.emitMu.Unlock()

	event := domain.ProgressEvent{
		Step:        step,
		Progress:    progress,
		Message:     message,
		TotalSteps:  totalSteps,
		CurrentStep: current,
	}
	pl.progress.Publish(event)
	if pl.callback != nil {
		pl.callback(event)
	}
}

// sceneForPage はページ番号に対応するシーンを返します。範囲外なら nil です。
func sceneForPage(plot *domain.ExtractedPlot, pageNumber int) *domain.Scene {
	if plot == nil || pageNumber < 1 || pageNumber > len(plot.Scenes) {
		return nil
	}
	return &plot.Scenes[pageNumber-1]
}
