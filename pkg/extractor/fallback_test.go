package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentFallback(t *testing.T) {
	t.Run("5文は3シーンにまとまるのだ", func(t *testing.T) {
		// chunkSize = ceil(5/4) = 2 → グループ数 3
		plot := segmentFallback("A one. B two. C three. D four. E five.")
		assert.Len(t, plot.Scenes, 3)
		assert.Equal(t, "Scene 1", plot.Scenes[0].Label)
		assert.Equal(t, "Scene 3", plot.Scenes[2].Label)
	})

	t.Run("文末記号がなくても1シーンは作るのだ", func(t *testing.T) {
		plot := segmentFallback("terminator のないテキスト")
		require.Len(t, plot.Scenes, 1)
		assert.Equal(t, "terminator のないテキスト", plot.Scenes[0].Description)
	})

	t.Run("和文の句点でも分割できるのだ", func(t *testing.T) {
		plot := segmentFallback("一文目。二文目。三文目。四文目。")
		assert.Len(t, plot.Scenes, 4)
	})

	t.Run("セリフは切り詰められるのだ", func(t *testing.T) {
		long := strings.Repeat("あ", 100) + "。"
		plot := segmentFallback(long)
		require.Len(t, plot.Scenes, 1)
		dialogue := plot.Scenes[0].Dialogue[0]
		assert.LessOrEqual(t, len([]rune(dialogue)), fallbackDialogueRunes+1) // 末尾の省略記号込み
		assert.True(t, strings.HasSuffix(dialogue, "…"))
	})

	t.Run("大量の文でも4シーンを超えないのだ", func(t *testing.T) {
		var sb strings.Builder
		for i := 0; i < 50; i++ {
			sb.WriteString("Sentence here. ")
		}
		plot := segmentFallback(sb.String())
		assert.Len(t, plot.Scenes, 4)
	})
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"英文ピリオド", "First. Second. Third.", 3},
		{"疑問符と感嘆符", "What? Wow! Ok.", 3},
		{"和文記号", "ねえ？すごい！おわり。", 3},
		{"終端記号なし", "no terminator at all", 1},
		{"空白のみ", "   ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, splitSentences(tt.in), tt.want)
		})
	}
}
