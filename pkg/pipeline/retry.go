package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/synthesizer"
)

// RetryPage は failed なページ1枚だけ画像合成をやり直します。
// プロジェクト全体を再実行せずに済ませるための救済経路なのだ。
func (pl *Pipeline) RetryPage(ctx context.Context, projectID string, pageNumber int) error {
	project, err := pl.repo.GetProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	if project == nil {
		return fmt.Errorf("プロジェクト %s が見つかりません", projectID)
	}

	page, err := pl.repo.PageByNumber(ctx, projectID, pageNumber)
	if err != nil {
		return fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	if page == nil {
		return fmt.Errorf("ページ %d が見つかりません", pageNumber)
	}
	if page.Status != domain.PageStatusFailed {
		return fmt.Errorf("ページ %d は failed ではないため再試行できません (status=%s)", pageNumber, page.Status)
	}

	slog.InfoContext(ctx, "ページの再合成を開始します",
		"project_id", projectID, "page", pageNumber)

	// failed → generating は再試行のために唯一許される巻き戻し遷移なのだ
	if err := pl.repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusGenerating); err != nil {
		return fmt.Errorf("ページ %d の状態更新に失敗しました: %w", pageNumber, err)
	}

	start := time.Now()
	result, synthErr := pl.images.Synthesize(ctx, page.ImagePrompt, sceneForPage(project.Plot, pageNumber), synthesizer.Options{
		Style:       project.Settings.Style,
		AspectRatio: project.Settings.AspectRatio,
		Name:        fmt.Sprintf("%s/page_%02d", project.ID, pageNumber),
	})
	if synthErr != nil {
		if err := pl.repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusFailed); err != nil {
			return fmt.Errorf("ページ %d の失敗記録に失敗しました: %w", pageNumber, err)
		}
		entry := domain.NewLogEntry(projectID, domain.StageImageGeneration, domain.LogStatusFailed,
			fmt.Sprintf("ページ %d の再合成に失敗", pageNumber)).WithError(synthErr)
		if err := pl.repo.AppendLog(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "再試行の失敗ログの書き込みに失敗しました", "error", err)
		}
		return fmt.Errorf("ページ %d の再合成に失敗しました: %w", pageNumber, synthErr)
	}

	if err := pl.repo.SetPageImage(ctx, page.ID, result.URL, result.IsFallback); err != nil {
		return fmt.Errorf("ページ %d の画像URL保存に失敗しました: %w", pageNumber, err)
	}
	if err := pl.repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusCompleted); err != nil {
		return fmt.Errorf("ページ %d の完了記録に失敗しました: %w", pageNumber, err)
	}

	entry := domain.NewLogEntry(projectID, domain.StageImageGeneration, domain.LogStatusCompleted,
		fmt.Sprintf("ページ %d の再合成が完了", pageNumber)).WithDuration(time.Since(start))
	if err := pl.repo.AppendLog(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "再試行の完了ログの書き込みに失敗しました", "error", err)
	}
	return nil
}
