// Package synthesizer は1つのシーン記述から1枚のイラストを生成します。
// リモートの画像生成バックエンドをちょうど1回だけ呼び、失敗したときは
// ローカル描画の決定論的プレースホルダーへフォールバックするのだ。
package synthesizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/placeholder"
)

// DefaultNegativePrompt は不自然な描画を防ぐための標準ネガティブプロンプトです。
const DefaultNegativePrompt = "speech bubble, dialogue balloon, text, letters, watermark, low quality, distorted, bad anatomy, deformed faces, extra limbs"

// Backend は画像生成エンジンへの narrow なインターフェースです。
type Backend interface {
	Synthesize(ctx context.Context, req Request) (*Image, error)
}

// Request は1回の画像生成要求です。
type Request struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	Seed           *int64
}

// Image はバックエンドが返す生成画像です。
type Image struct {
	Data     []byte
	MimeType string
}

// Sink は画像バイト列を保存し、参照可能な URL を返すインターフェースです。
type Sink interface {
	Store(ctx context.Context, name string, data []byte, mimeType string) (string, error)
}

// Options は合成処理の実行時パラメータです。
type Options struct {
	Style       string
	AspectRatio string
	Seed        *int64
	// Name は保存時のオブジェクト名（ページごとに一意）です。
	Name string
}

// Result は1ページぶんの合成結果です。IsFallback はプレースホルダー画像で
// あることを示し、呼び出し元とテストが本物の出力と区別できるようにします。
type Result struct {
	URL        string
	MimeType   string
	IsFallback bool
}

// ImageSynthesizer は合成処理の本体です。
type ImageSynthesizer struct {
	backend Backend
	sink    Sink
}

// New は ImageSynthesizer を初期化します。
func New(backend Backend, sink Sink) (*ImageSynthesizer, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend (synthesizer.Backend) is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink (synthesizer.Sink) is required")
	}
	return &ImageSynthesizer{backend: backend, sink: sink}, nil
}

// Synthesize はプロンプトをスタイルとシーンのヒントで強化し、バックエンドを
// 1回だけ呼びます（自動リトライなし）。呼び出しが失敗するか画像が空の場合は
// プレースホルダーへフォールバックし、それすら保存できないときだけ error を
// 返すのだ。ページKの失敗がページK+1の合成を妨げることはありません。
func (is *ImageSynthesizer) Synthesize(ctx context.Context, promptText string, scene *domain.Scene, opts Options) (*Result, error) {
	enhanced := enhancePrompt(promptText, scene, opts.Style)

	img, err := is.backend.Synthesize(ctx, Request{
		Prompt:         enhanced,
		NegativePrompt: DefaultNegativePrompt,
		AspectRatio:    opts.AspectRatio,
		Seed:           opts.Seed,
	})
	if err == nil && (img == nil || len(img.Data) == 0) {
		err = fmt.Errorf("バックエンドが画像ペイロードを返しませんでした")
	}
	if err != nil {
		slog.WarnContext(ctx, "リモート画像生成に失敗したためプレースホルダーを使います",
			"name", opts.Name, "error", err)
		return is.renderFallback(ctx, enhanced, opts)
	}

	url, storeErr := is.sink.Store(ctx, opts.Name, img.Data, img.MimeType)
	if storeErr != nil {
		return nil, fmt.Errorf("生成画像の保存に失敗しました: %w", storeErr)
	}
	return &Result{URL: url, MimeType: img.MimeType, IsFallback: false}, nil
}

// renderFallback はローカル描画のプレースホルダーを生成して保存します。
func (is *ImageSynthesizer) renderFallback(ctx context.Context, promptText string, opts Options) (*Result, error) {
	data, err := placeholder.Render(promptText, opts.AspectRatio)
	if err != nil {
		return nil, fmt.Errorf("プレースホルダーの描画に失敗しました: %w", err)
	}
	url, err := is.sink.Store(ctx, opts.Name+"_placeholder", data, "image/png")
	if err != nil {
		return nil, fmt.Errorf("プレースホルダーの保存に失敗しました: %w", err)
	}
	return &Result{URL: url, MimeType: "image/png", IsFallback: true}, nil
}

// enhancePrompt はスタイルキーワードと、シーンメタデータがあれば感情・照明・
// 構図のヒントをプロンプトへ合成します。
func enhancePrompt(promptText string, scene *domain.Scene, style string) string {
	parts := []string{strings.TrimSpace(promptText)}
	if style != "" {
		parts = append(parts, fmt.Sprintf("%s style", style))
	}
	if scene != nil {
		if hint, ok := emotionHints[strings.ToLower(scene.Emotion)]; ok {
			parts = append(parts, hint)
		}
		if hint := lightingHint(scene.Setting); hint != "" {
			parts = append(parts, hint)
		}
		parts = append(parts, compositionHint)
	}
	parts = append(parts, childFriendlyHint)

	var clean []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, ", ")
}
