package domain

import "strings"

// デフォルト値の定義なのだ
const (
	DefaultEmotion = "neutral"
	DefaultSetting = "unspecified"
)

// ExtractedPlot は LLM（またはフォールバック分割器）が原文から抽出した
// 構造化プロットです。Scenes の並び順が物語の順序そのものです。
type ExtractedPlot struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	TotalScenes    int      `json:"totalScenes"`
	Scenes         []Scene  `json:"scenes"`
	MainCharacters []string `json:"mainCharacters"`
	Theme          string   `json:"theme"`
	TargetAge      string   `json:"targetAge"`
}

// Scene は漫画1ページに対応する物語の1単位（ビート）です。
type Scene struct {
	Label       string   `json:"scene"`
	Description string   `json:"description"`
	Characters  []string `json:"characters"`
	Dialogue    []string `json:"dialogue"`
	Emotion     string   `json:"emotion"`
	Setting     string   `json:"setting"`
	Action      string   `json:"action"`
}

// Normalize は省略されたオプションフィールドにデフォルト値を補完し、
// TotalScenes をシーン数に一致させるのだ。
func (p *ExtractedPlot) Normalize() {
	for i := range p.Scenes {
		if p.Scenes[i].Emotion == "" {
			p.Scenes[i].Emotion = DefaultEmotion
		}
		if p.Scenes[i].Setting == "" {
			p.Scenes[i].Setting = DefaultSetting
		}
		if p.Scenes[i].Dialogue == nil {
			p.Scenes[i].Dialogue = []string{}
		}
	}
	p.TotalScenes = len(p.Scenes)
}

// ClampScenes はシーン数を maxScenes 以下に切り詰めます。
// maxScenes が 0 以下の場合は何もしないのだ。
func (p *ExtractedPlot) ClampScenes(maxScenes int) {
	if maxScenes > 0 && len(p.Scenes) > maxScenes {
		p.Scenes = p.Scenes[:maxScenes]
		p.TotalScenes = maxScenes
	}
}

// JoinedDialogue はシーン内のセリフを1つの文字列に連結します。
func (s Scene) JoinedDialogue() string {
	nonEmpty := make([]string, 0, len(s.Dialogue))
	for _, line := range s.Dialogue {
		if strings.TrimSpace(line) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(line))
		}
	}
	return strings.Join(nonEmpty, "\n")
}
