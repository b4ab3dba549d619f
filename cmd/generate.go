package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、物語テキストからコミック一式の生成を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "物語テキストからコミックを生成しますなのだ。",
	Long: `物語テキストを解析してキーシーンを抽出し、ページごとの画像合成と
セリフの吹き出し配置までを実行するのだ。進捗はログに流れるのだよ。`,
	RunE: generateCommand,
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.StoryURL == "" && opts.StoryFile == "" && !isStdin() {
		return fmt.Errorf("ソース（--story-url または --story-file）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts

	slog.Info("コミック生成パイプラインを起動するのだ！",
		"style", opts.Style,
		"max_scenes", opts.MaxScenes,
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"image_dir", opts.OutputImageDir)

	if err := pipeline.Execute(ctx, cfg); err != nil {
		return fmt.Errorf("パイプライン実行中にエラーが発生したのだ: %w", err)
	}
	return nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
