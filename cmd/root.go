package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-comic-kit/internal/config"

	"github.com/spf13/cobra"
)

// opts は全コマンドで共有する実行時オプションなのだ。
var opts config.GenerateOptions

var rootCmd = &cobra.Command{
	Use:   "comic-kit",
	Short: "物語テキストを子供向けのコミックに変換するツールなのだ。",
	Long: `物語テキストを解析してキーシーンを抽出し、ページ割り、画像合成、
セリフの吹き出し配置までを一気通貫で実行するのだ。`,
	PersistentPreRunE: preRunAppE,
	SilenceUsage:      true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags() {
	// --- ソース入力関連 ---
	rootCmd.PersistentFlags().StringVarP(&opts.StoryURL, "story-url", "u", "", "Webページから物語を取得するためのURLなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.StoryFile, "story-file", "f", "", "物語ファイルのパス（'-'で標準入力なのだ）。")
	rootCmd.PersistentFlags().StringVar(&opts.Title, "title", "", "プロジェクトのタイトルなのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.UserID, "user", "local", "プロジェクトの所有者IDなのだ。")

	// --- 生成設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.Style, "style", config.DefaultStyle, "画像のスタイル（cartoon, watercolor など）なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.TargetAge, "target-age", config.DefaultTargetAge, "想定読者の年齢層なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.AspectRatio, "aspect-ratio", config.DefaultAspectRatio, "ページ画像のアスペクト比なのだ。")
	rootCmd.PersistentFlags().IntVarP(&opts.MaxScenes, "max-scenes", "p", config.DefaultMaxScenes, "抽出するシーン（ページ）の最大数なのだ。")

	// --- 生成結果の出力設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.DBPath, "db", config.DefaultDBFile, "プロジェクトデータベースのパスなのだ。")
	rootCmd.PersistentFlags().StringVarP(&opts.OutputImageDir, "output-image-dir", "i", config.DefaultLocalImageDir, "合成された画像を保存するディレクトリ（ローカル or gs://...）なのだ。")

	// --- 実行制御 ---
	rootCmd.PersistentFlags().IntVar(&opts.Workers, "workers", config.DefaultImageWorkers, "画像合成の同時実行数なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.RateInterval, "rate-interval", config.DefaultRateInterval, "画像合成APIの呼び出し間隔なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "Webリクエストのタイムアウトなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// 閲覧系コマンドは API キーなしでも動くのだ
	if cmd.Name() == "projects" || cmd.Name() == "logs" {
		return nil
	}
	// Gemini APIを利用するため、APIキーの存在チェックは欠かせないのだ！
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	return nil
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	addAppFlags()
	rootCmd.AddCommand(generateCmd, retryCmd, projectsCmd, logsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
