package synthesizer

import (
	"context"
	"fmt"

	imgdom "github.com/shouni/gemini-image-kit/pkg/domain"
	imggen "github.com/shouni/gemini-image-kit/pkg/generator"
	"github.com/shouni/gemini-image-kit/pkg/imgutil"
)

// JPEG 圧縮の設定なのだ。PNG のまま保存するとページ数ぶんの容量が
// かさむため、保存前に圧縮します。
const (
	useImageCompression     = true
	imageCompressionQuality = 75
)

// GeminiBackend は gemini-image-kit の ImageGenerator を Backend に
// 適合させるアダプターです。
type GeminiBackend struct {
	generator imggen.ImageGenerator
}

// NewGeminiBackend は GeminiBackend を初期化します。
func NewGeminiBackend(generator imggen.ImageGenerator) (*GeminiBackend, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator (imggen.ImageGenerator) is required")
	}
	return &GeminiBackend{generator: generator}, nil
}

// Synthesize は1枚のパネル画像を生成します。
func (b *GeminiBackend) Synthesize(ctx context.Context, req Request) (*Image, error) {
	resp, err := b.generator.GenerateMangaPanel(ctx, imgdom.ImageGenerationRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		AspectRatio:    req.AspectRatio,
		Seed:           req.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini画像生成エラー: %w", err)
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, fmt.Errorf("Gemini応答に画像データが含まれていません")
	}

	data, mimeType := resp.Data, resp.MimeType
	if useImageCompression && mimeType != "image/jpeg" {
		if compressed, cErr := imgutil.CompressToJPEG(data, imageCompressionQuality); cErr == nil {
			data, mimeType = compressed, "image/jpeg"
		}
		// 圧縮失敗は致命傷ではないので元データのまま進めるのだ
	}

	return &Image{Data: data, MimeType: mimeType}, nil
}
