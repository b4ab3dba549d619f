package extractor

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// フォールバック分割器の定数なのだ。
const (
	fallbackMaxGroups      = 4
	fallbackDialogueRunes  = 40
	fallbackCharacter      = "the protagonist"
	fallbackTitle          = "Untitled Story"
)

var sentenceTerminators = []rune{'.', '!', '?', '。', '！', '？'}

// segmentFallback は LLM 応答が使えないときの決定論的ヒューリスティックです。
// 文末記号で文に分割し、⌈文数/4⌉件ずつ最大4グループにまとめ、
// グループごとに汎用キャラクターと切り詰めたセリフを持つシーンを合成するのだ。
// 空でない入力に対して必ず1つ以上のシーンを返します。
func segmentFallback(text string) *domain.ExtractedPlot {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		sentences = []string{strings.TrimSpace(text)}
	}

	chunkSize := (len(sentences) + fallbackMaxGroups - 1) / fallbackMaxGroups
	if chunkSize < 1 {
		chunkSize = 1
	}

	var scenes []domain.Scene
	for i := 0; i < len(sentences) && len(scenes) < fallbackMaxGroups; i += chunkSize {
		end := i + chunkSize
		if end > len(sentences) {
			end = len(sentences)
		}
		chunk := strings.Join(sentences[i:end], " ")

		scenes = append(scenes, domain.Scene{
			Label:       fmt.Sprintf("Scene %d", len(scenes)+1),
			Description: chunk,
			Characters:  []string{fallbackCharacter},
			Dialogue:    []string{truncateRunes(sentences[i], fallbackDialogueRunes)},
			Emotion:     domain.DefaultEmotion,
			Setting:     domain.DefaultSetting,
		})
	}

	return &domain.ExtractedPlot{
		Title:          fallbackTitle,
		Summary:        truncateRunes(sentences[0], 80),
		Scenes:         scenes,
		MainCharacters: []string{fallbackCharacter},
	}
}

// splitSentences は文末記号ごとにテキストを文へ分割します。
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	for _, r := range text {
		current.WriteRune(r)
		if isTerminator(r) {
			flush()
		}
	}
	flush()

	return sentences
}

func isTerminator(r rune) bool {
	for _, t := range sentenceTerminators {
		if r == t {
			return true
		}
	}
	return false
}

func truncateRunes(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "…"
}
