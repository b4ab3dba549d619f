package extractor

import (
	"fmt"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// buildPlotPrompt は固定スキーマの JSON を要求する単一プロンプトを構築します。
// スキーマを崩さないことが最優先なので、指示はすべて英語で与えるのだ。
func buildPlotPrompt(text string, opts Options) string {
	maxScenes := opts.MaxScenes
	if maxScenes <= 0 {
		maxScenes = 6
	}
	targetAge := opts.TargetAge
	if targetAge == "" {
		targetAge = "all ages"
	}
	style := opts.Style
	if style == "" {
		style = "cartoon"
	}

	var sb strings.Builder
	sb.WriteString("You are a professional story analyst. Break the following text into key scenes for a comic.\n\n")
	sb.WriteString("### REQUIREMENTS ###\n")
	sb.WriteString(fmt.Sprintf("- Extract at most %d scenes, in narrative order.\n", maxScenes))
	sb.WriteString("- Each scene must carry a concrete visual description (characters, action, environment).\n")
	sb.WriteString("- Keep the story coherent from scene to scene.\n")
	sb.WriteString(fmt.Sprintf("- The result must be suitable for readers aged %s.\n", targetAge))
	sb.WriteString(fmt.Sprintf("- Visual style hint: %s.\n\n", style))
	sb.WriteString("### SOURCE TEXT ###\n")
	sb.WriteString(text)
	sb.WriteString("\n\n### OUTPUT FORMAT ###\n")
	sb.WriteString("Return ONLY a JSON object with exactly this shape:\n")
	sb.WriteString(`{
  "title": "story title",
  "summary": "one-line summary",
  "totalScenes": 4,
  "scenes": [
    {
      "scene": "Scene 1",
      "description": "visual description for image generation",
      "characters": ["name"],
      "dialogue": ["spoken line"],
      "emotion": "happy",
      "setting": "forest",
      "action": "running"
    }
  ],
  "mainCharacters": ["name"],
  "theme": "theme",
  "targetAge": "6-12"
}`)
	return sb.String()
}

// EnhanceDescription はシーンの記述を画像生成向けプロンプトへ拡張します。
// 記述が空のシーンに対してはエラーを返し、呼び出し元の劣化パスに委ねるのだ。
func (pe *PlotExtractor) EnhanceDescription(scene domain.Scene, style string) (string, error) {
	desc := strings.TrimSpace(scene.Description)
	if desc == "" {
		return "", fmt.Errorf("シーン %q に視覚的な記述がありません", scene.Label)
	}

	parts := []string{desc}
	if scene.Action != "" {
		parts = append(parts, scene.Action)
	}
	if scene.Setting != "" && scene.Setting != domain.DefaultSetting {
		parts = append(parts, fmt.Sprintf("set in %s", scene.Setting))
	}
	if len(scene.Characters) > 0 {
		parts = append(parts, fmt.Sprintf("featuring %s", strings.Join(scene.Characters, ", ")))
	}
	if style != "" {
		parts = append(parts, fmt.Sprintf("%s style", style))
	}
	parts = append(parts, "comic panel, clear storytelling, expressive characters")

	return strings.Join(parts, ", "), nil
}
