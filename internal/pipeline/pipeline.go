// Package pipeline は CLI コマンドとコアライブラリをつなぐ実行層なのだ。
// 依存関係の組み立て、入力テキストの取得、進捗の表示をここでまとめます。
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/store"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
)

// Execute は物語テキストから新しいプロジェクトを起こし、パイプラインを
// 最後まで実行するのだ。
func Execute(ctx context.Context, cfg *config.Config) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer appCtx.Store.Close()

	text, err := readStoryText(ctx, appCtx)
	if err != nil {
		return err
	}

	title := cfg.Options.Title
	if title == "" {
		title = "Untitled Comic"
	}
	project := domain.NewComicProject(cfg.Options.UserID, title, text, domain.GenerationSettings{
		Style:       cfg.Options.Style,
		TargetAge:   cfg.Options.TargetAge,
		AspectRatio: cfg.Options.AspectRatio,
		MaxScenes:   cfg.Options.MaxScenes,
	})
	if err := appCtx.Store.CreateProject(ctx, project); err != nil {
		return fmt.Errorf("プロジェクトの作成に失敗しました: %w", err)
	}
	slog.InfoContext(ctx, "プロジェクトを作成したのだ", "project_id", project.ID, "title", title)

	comicPipeline, err := builder.BuildComicPipeline(appCtx)
	if err != nil {
		return err
	}
	defer comicPipeline.Close()

	events := comicPipeline.Subscribe(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			slog.InfoContext(ctx, "進捗",
				"step", event.Step,
				"progress", fmt.Sprintf("%d%%", event.Progress),
				"message", event.Message)
		}
	}()

	runErr := comicPipeline.Run(ctx, project.ID)
	comicPipeline.Close()
	<-done
	if runErr != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", runErr)
	}

	printSummary(ctx, appCtx.Store, project.ID)
	return nil
}

// ExecuteRetry は失敗したページ1枚の画像合成をやり直すのだ。
func ExecuteRetry(ctx context.Context, cfg *config.Config, projectID string, pageNumber int) error {
	appCtx, err := setupAppContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer appCtx.Store.Close()

	comicPipeline, err := builder.BuildComicPipeline(appCtx)
	if err != nil {
		return err
	}
	defer comicPipeline.Close()

	if err := comicPipeline.RetryPage(ctx, projectID, pageNumber); err != nil {
		return err
	}
	slog.InfoContext(ctx, "ページの再合成が完了したのだ", "project_id", projectID, "page", pageNumber)
	return nil
}

// OpenStore は閲覧系コマンド（projects, logs）が使うストアを開くのだ。
func OpenStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.Open(cfg.Options.DBPath)
}

// setupAppContext は、提供された設定と共有コンポーネントを使用して、アプリケーションコンテキストを初期化して返すのだ。
func setupAppContext(ctx context.Context, cfg *config.Config) (*builder.AppContext, error) {
	httpClient := httpkit.New(cfg.Options.HTTPTimeout)
	aiClient, err := builder.InitializeAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}

	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, err
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, err
	}

	projectStore, err := store.Open(cfg.Options.DBPath)
	if err != nil {
		return nil, fmt.Errorf("ストアのオープンに失敗しました: %w", err)
	}

	appCtx := builder.NewAppContext(cfg, httpClient, aiClient, reader, writer, projectStore)
	return &appCtx, nil
}

// readStoryText は --story-url、--story-file、標準入力の順で物語テキストを
// 取得するのだ。
func readStoryText(ctx context.Context, appCtx *builder.AppContext) (string, error) {
	opts := appCtx.Options

	var source io.ReadCloser
	switch {
	case opts.StoryURL != "":
		rc, err := appCtx.Reader.Open(ctx, opts.StoryURL)
		if err != nil {
			return "", fmt.Errorf("物語URL '%s' の読み込みに失敗しました: %w", opts.StoryURL, err)
		}
		source = rc
	case opts.StoryFile != "" && opts.StoryFile != "-":
		rc, err := appCtx.Reader.Open(ctx, opts.StoryFile)
		if err != nil {
			return "", fmt.Errorf("物語ファイル '%s' の読み込みに失敗しました: %w", opts.StoryFile, err)
		}
		source = rc
	default:
		source = os.Stdin
	}
	if source != os.Stdin {
		defer source.Close()
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, source); err != nil {
		return "", fmt.Errorf("物語テキストの読み込みに失敗しました: %w", err)
	}
	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", fmt.Errorf("物語テキストが空なのだ")
	}
	return text, nil
}

// printSummary は実行結果のページ一覧を出力するのだ。
func printSummary(ctx context.Context, repo *store.SQLiteStore, projectID string) {
	pages, err := repo.PagesByProject(ctx, projectID)
	if err != nil {
		slog.WarnContext(ctx, "ページ一覧の取得に失敗しました", "error", err)
		return
	}
	for _, page := range pages {
		slog.InfoContext(ctx, "ページ",
			"page", page.PageNumber,
			"status", string(page.Status),
			"image", page.ImageURL,
			"fallback", page.IsFallback)
	}
	slog.InfoContext(ctx, "すべての生成工程が完了したのだ！", "project_id", projectID, "pages", len(pages))
}
