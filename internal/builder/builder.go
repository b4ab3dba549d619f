package builder

import (
	"context"
	"fmt"
	"time"

	"github.com/shouni/go-comic-kit/pkg/assembler"
	"github.com/shouni/go-comic-kit/pkg/extractor"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
	"github.com/shouni/go-comic-kit/pkg/synthesizer"

	"github.com/patrickmn/go-cache"
	imggen "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// InitializeAIClient は gemini クライアントを初期化します。
func InitializeAIClient(ctx context.Context, apiKey string) (gemini.GenerativeModel, error) {
	const defaultGeminiTemperature = float32(0.2)
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

// InitializeImageGenerator は ImageGeneratorを初期化します。
func InitializeImageGenerator(appCtx *AppContext) (imggen.ImageGenerator, error) {
	imgCache := cache.New(30*time.Minute, 1*time.Hour)
	cacheTTL := 1 * time.Hour

	// 画像処理コアを生成
	core, err := imggen.NewGeminiImageCore(
		appCtx.aiClient,
		appCtx.Reader,
		appCtx.httpClient,
		imgCache,
		cacheTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiImageCoreの初期化に失敗したのだ: %w", err)
	}

	imgGen, err := imggen.NewGeminiGenerator(
		core,
		appCtx.aiClient,
		appCtx.Config.GeminiImageModel,
	)
	if err != nil {
		return nil, fmt.Errorf("GeminiGeneratorの初期化に失敗したのだ: %w", err)
	}

	return imgGen, nil
}

// BuildComicPipeline はプロット抽出から画像合成までの全依存を組み立てて
// Pipeline を返します。
func BuildComicPipeline(appCtx *AppContext) (*pipeline.Pipeline, error) {
	backend, err := extractor.NewGeminiBackend(appCtx.aiClient, appCtx.Config.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("抽出バックエンドの初期化に失敗しました: %w", err)
	}
	plots, err := extractor.New(backend)
	if err != nil {
		return nil, fmt.Errorf("PlotExtractorの初期化に失敗しました: %w", err)
	}

	pages, err := assembler.New(plots, appCtx.Store)
	if err != nil {
		return nil, fmt.Errorf("PageAssemblerの初期化に失敗しました: %w", err)
	}

	imgGen, err := InitializeImageGenerator(appCtx)
	if err != nil {
		return nil, err
	}
	synthBackend, err := synthesizer.NewGeminiBackend(imgGen)
	if err != nil {
		return nil, fmt.Errorf("合成バックエンドの初期化に失敗しました: %w", err)
	}
	sink, err := synthesizer.NewRemoteSink(appCtx.Writer, appCtx.Options.OutputImageDir)
	if err != nil {
		return nil, fmt.Errorf("画像保存先の初期化に失敗しました: %w", err)
	}
	images, err := synthesizer.New(synthBackend, sink)
	if err != nil {
		return nil, fmt.Errorf("ImageSynthesizerの初期化に失敗しました: %w", err)
	}

	comicPipeline, err := pipeline.New(pipeline.Args{
		Repo:         appCtx.Store,
		Plots:        plots,
		Pages:        pages,
		Images:       images,
		Workers:      appCtx.Options.Workers,
		RateInterval: appCtx.Options.RateInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("Pipelineの初期化に失敗しました: %w", err)
	}
	return comicPipeline, nil
}
