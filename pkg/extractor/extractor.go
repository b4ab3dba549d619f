// Package extractor は原文テキストを構造化プロット（シーン列）へ変換します。
// LLM バックエンドの応答を第一候補とし、パースできない応答に対しては
// 決定論的なヒューリスティック分割器へ必ずフォールバックするのだ。
package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// Backend は LLM プロバイダへの narrow なインターフェースです。
// 戻り値はモデルの生テキスト応答で、JSON の解釈は呼び出し側が担います。
type Backend interface {
	Extract(ctx context.Context, prompt string) (string, error)
}

// Options はプロット抽出の実行時パラメータです。
type Options struct {
	MaxScenes int
	TargetAge string
	Style     string
}

// PlotExtractor は抽出処理の本体です。
type PlotExtractor struct {
	backend Backend
}

// New は PlotExtractor を初期化します。
func New(backend Backend) (*PlotExtractor, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend (extractor.Backend) is required")
	}
	return &PlotExtractor{backend: backend}, nil
}

// ExtractPlot は原文テキストからプロットを抽出します。
// バックエンドの通信エラーのみが error として伝播し、応答のパース・検証の
// 失敗はフォールバック分割器で回復されるため、空でない入力に対して
// バックエンドが応答を返す限りこの関数は必ず1つ以上のシーンを返すのだ。
func (pe *PlotExtractor) ExtractPlot(ctx context.Context, text string, opts Options) (*domain.ExtractedPlot, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("抽出対象のテキストが空です")
	}

	prompt := buildPlotPrompt(trimmed, opts)

	slog.InfoContext(ctx, "プロット抽出を開始します", "chars", len(trimmed), "max_scenes", opts.MaxScenes)
	raw, err := pe.backend.Extract(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("LLMバックエンドの呼び出しに失敗しました: %w", err)
	}

	plot, parseErr := parsePlotResponse(raw)
	if parseErr != nil {
		slog.WarnContext(ctx, "LLM応答のパースに失敗したためフォールバック分割を使います",
			"error", parseErr)
		plot = segmentFallback(trimmed)
	}

	plot.Normalize()
	plot.ClampScenes(opts.MaxScenes)
	if plot.TargetAge == "" {
		plot.TargetAge = opts.TargetAge
	}

	return plot, nil
}

// parsePlotResponse はモデル応答から JSON を取り出して検証します。
// Markdown のコードフェンス包みと、前後に説明文が混ざった応答の両方を許容するのだ。
func parsePlotResponse(raw string) (*domain.ExtractedPlot, error) {
	raw = strings.TrimSpace(raw)
	var rawJSON string

	matches := jsonBlockRegex.FindStringSubmatch(raw)
	if len(matches) > 1 {
		rawJSON = matches[1]
	} else {
		// フォールバック1: 最外周の JSON オブジェクトを探す
		firstBracket := strings.Index(raw, "{")
		lastBracket := strings.LastIndex(raw, "}")
		if firstBracket != -1 && lastBracket != -1 && lastBracket > firstBracket {
			rawJSON = raw[firstBracket : lastBracket+1]
		} else {
			// フォールバック2: 応答全体を JSON とみなす
			rawJSON = raw
		}
	}

	var plot domain.ExtractedPlot
	if err := json.Unmarshal([]byte(rawJSON), &plot); err != nil {
		return nil, fmt.Errorf("応答JSONの解析に失敗しました (応答抜粋: %q): %w", truncateString(raw, 200), err)
	}
	if len(plot.Scenes) == 0 {
		return nil, fmt.Errorf("応答に scenes が含まれていません")
	}
	return &plot, nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
