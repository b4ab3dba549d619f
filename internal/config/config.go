package config

import (
	"time"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel         = "gemini-3-flash-preview"
	DefaultImageModel    = "gemini-3-pro-image-preview"
	DefaultHTTPTimeout   = 30 * time.Second
	DefaultRateInterval  = 10 * time.Second
	DefaultImageWorkers  = 2
	DefaultMaxScenes     = 6
	DefaultStyle         = "cartoon"
	DefaultTargetAge     = "all ages"
	DefaultAspectRatio   = "4:3"
	DefaultDBFile        = "output/comic.db"     // プロジェクトと進行状況の保存先なのだ
	DefaultLocalImageDir = "output/images"       // 合成画像のデフォルト保存先なのだ
	DefaultCacheTTL      = 30 * time.Minute
	DefaultCacheSweep    = 1 * time.Hour
)

// Config はアプリケーション全体の環境設定（APIキーやクラウド設定）を保持する構造体なのだ。
type Config struct {
	ProjectID        string
	LocationID       string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		ProjectID:        envutil.GetEnv("PROJECT_ID", ""),
		LocationID:       envutil.GetEnv("REGION", ""),
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
	}
	return cfg
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// ソース入力関連
	StoryURL  string // --story-url
	StoryFile string // --story-file
	Title     string // --title
	UserID    string // --user

	// 生成設定
	Style       string // --style
	TargetAge   string // --target-age
	AspectRatio string // --aspect-ratio
	MaxScenes   int    // --max-scenes

	// 出力関連
	DBPath         string // --db
	OutputImageDir string // --output-image-dir

	// 実行制御
	Workers      int           // --workers: 画像合成の同時実行数
	RateInterval time.Duration // --rate-interval
	HTTPTimeout  time.Duration // --http-timeout
}
