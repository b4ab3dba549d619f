package synthesizer

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

func TestSynthesize(t *testing.T) {
	ctx := context.Background()
	scene := &domain.Scene{Emotion: "happy", Setting: "forest at dawn"}
	opts := Options{Style: "cartoon", AspectRatio: "4:3", Name: "page_1"}

	t.Run("成功時はバックエンドの画像が保存されるのだ", func(t *testing.T) {
		backend := &stubImageBackend{image: &Image{Data: []byte("png-bytes"), MimeType: "image/png"}}
		sink := newMemorySink()
		is, err := New(backend, sink)
		require.NoError(t, err)

		result, err := is.Synthesize(ctx, "a boy in a forest", scene, opts)
		require.NoError(t, err)

		assert.False(t, result.IsFallback)
		assert.Equal(t, 1, backend.calls)
		assert.Contains(t, sink.stored, result.URL)

		// プロンプトにスタイルと感情・照明ヒントが合成されていること
		prompt := backend.lastRequest.Prompt
		assert.Contains(t, prompt, "a boy in a forest")
		assert.Contains(t, prompt, "cartoon style")
		assert.Contains(t, prompt, "joyful, bright, cheerful atmosphere")
		assert.Contains(t, prompt, "dappled sunlight through leaves")
	})

	t.Run("バックエンド失敗時はプレースホルダーにフォールバックするのだ", func(t *testing.T) {
		backend := &stubImageBackend{err: fmt.Errorf("remote unavailable")}
		sink := newMemorySink()
		is, _ := New(backend, sink)

		result, err := is.Synthesize(ctx, "prompt", scene, opts)
		require.NoError(t, err)

		assert.True(t, result.IsFallback)
		assert.Equal(t, "image/png", result.MimeType)
		assert.Equal(t, 1, backend.calls, "リトライはしない")
		assert.Contains(t, result.URL, "placeholder")
	})

	t.Run("空ペイロードもフォールバック扱いなのだ", func(t *testing.T) {
		backend := &stubImageBackend{image: &Image{}}
		sink := newMemorySink()
		is, _ := New(backend, sink)

		result, err := is.Synthesize(ctx, "prompt", nil, opts)
		require.NoError(t, err)
		assert.True(t, result.IsFallback)
	})

	t.Run("フォールバックの保存も失敗したときだけ error なのだ", func(t *testing.T) {
		backend := &stubImageBackend{err: fmt.Errorf("remote down")}
		sink := newMemorySink()
		sink.err = fmt.Errorf("disk full")
		is, _ := New(backend, sink)

		_, err := is.Synthesize(ctx, "prompt", scene, opts)
		assert.Error(t, err)
	})

	t.Run("シーンなしでもスタイルだけで強化されるのだ", func(t *testing.T) {
		backend := &stubImageBackend{image: &Image{Data: []byte("x"), MimeType: "image/jpeg"}}
		sink := newMemorySink()
		is, _ := New(backend, sink)

		_, err := is.Synthesize(ctx, "prompt", nil, Options{Style: "manga", AspectRatio: "1:1", Name: "p"})
		require.NoError(t, err)
		assert.Contains(t, backend.lastRequest.Prompt, "manga style")
		assert.NotContains(t, backend.lastRequest.Prompt, compositionHint)
	})
}

func TestEnhancePrompt(t *testing.T) {
	t.Run("未知の感情はヒントを加えないのだ", func(t *testing.T) {
		scene := &domain.Scene{Emotion: "perplexed", Setting: "void"}
		prompt := enhancePrompt("base", scene, "")
		assert.Equal(t, "base, "+compositionHint+", "+childFriendlyHint, prompt)
	})

	t.Run("感情の大文字小文字は無視するのだ", func(t *testing.T) {
		scene := &domain.Scene{Emotion: "Happy"}
		assert.Contains(t, enhancePrompt("base", scene, ""), "joyful")
	})
}
