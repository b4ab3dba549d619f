package synthesizer

import "strings"

// childFriendlyHint は読者層に合わせて全プロンプトへ付与する装飾なのだ。
const childFriendlyHint = "child-friendly, colorful"

// 感情 → 雰囲気キーワードの固定対応表なのだ。
var emotionHints = map[string]string{
	"happy":     "joyful, bright, cheerful atmosphere",
	"sad":       "melancholic, soft shadows, muted colors",
	"angry":     "tense, dramatic contrast, harsh lighting",
	"scared":    "dark, uneasy, looming shadows",
	"surprised": "dynamic, wide-eyed, bursting energy",
	"excited":   "vivid, energetic, motion lines",
	"neutral":   "calm, balanced mood",
}

// 舞台設定のキーワード → 照明ヒントの固定対応表なのだ。
// 最初に一致した項目を採用するため、順序付きのスライスで持ちます。
var settingLighting = []struct {
	keyword string
	hint    string
}{
	{"forest", "dappled sunlight through leaves"},
	{"night", "moonlit, deep blue tones"},
	{"indoor", "warm interior lighting"},
	{"sea", "glittering reflections on water"},
	{"school", "bright daylight through windows"},
	{"city", "neon accents, urban glow"},
}

const compositionHint = "cinematic composition, rule of thirds"

// lightingHint は舞台設定の記述に既知のキーワードが含まれていれば
// 対応する照明ヒントを返します。
func lightingHint(setting string) string {
	lower := strings.ToLower(setting)
	for _, entry := range settingLighting {
		if strings.Contains(lower, entry.keyword) {
			return entry.hint
		}
	}
	return ""
}
