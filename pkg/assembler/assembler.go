// Package assembler は抽出済みプロットからページレコードの骨格を作ります。
// シーンごとに画像プロンプトを用意し、pending 状態の ComicPage として
// 永続化するのだ。
package assembler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// PromptEnhancer はシーン記述を画像プロンプトへ拡張するインターフェースです。
// PlotExtractor の EnhanceDescription がこれを満たします。
type PromptEnhancer interface {
	EnhanceDescription(scene domain.Scene, style string) (string, error)
}

// PageWriter はページの永続化を担う narrow なインターフェースです。
type PageWriter interface {
	CreatePage(ctx context.Context, page *domain.ComicPage) error
}

// PageAssembler は組み立て処理の本体です。
type PageAssembler struct {
	enhancer PromptEnhancer
	pages    PageWriter
}

// New は PageAssembler を初期化します。
func New(enhancer PromptEnhancer, pages PageWriter) (*PageAssembler, error) {
	if enhancer == nil {
		return nil, fmt.Errorf("enhancer (assembler.PromptEnhancer) is required")
	}
	if pages == nil {
		return nil, fmt.Errorf("pages (assembler.PageWriter) is required")
	}
	return &PageAssembler{enhancer: enhancer, pages: pages}, nil
}

// AssemblePages はプロットの各シーンを物語順に1ページずつ起こします。
// ページ番号は 1 始まりの連番です。プロンプト生成の失敗はそのページだけを
// 劣化させ（プロンプト = 生のシーン記述）、後続ページの組み立ては続行します。
// 永続化の失敗だけが error として伝播するのだ。
func (pa *PageAssembler) AssemblePages(ctx context.Context, projectID string, plot *domain.ExtractedPlot, settings domain.GenerationSettings) ([]*domain.ComicPage, error) {
	if plot == nil || len(plot.Scenes) == 0 {
		return nil, fmt.Errorf("組み立て対象のシーンがありません")
	}

	pages := make([]*domain.ComicPage, 0, len(plot.Scenes))
	for i, scene := range plot.Scenes {
		prompt, err := pa.enhancer.EnhanceDescription(scene, settings.Style)
		if err != nil {
			// 劣化パス: 生のシーン記述をそのままプロンプトにするのだ
			slog.WarnContext(ctx, "画像プロンプトの生成に失敗したため生の記述を使います",
				"project_id", projectID, "page", i+1, "error", err)
			prompt = scene.Description
		}

		page := domain.NewComicPage(projectID, i+1, scene, prompt)
		if err := pa.pages.CreatePage(ctx, page); err != nil {
			return nil, fmt.Errorf("ページ %d の保存に失敗しました: %w", i+1, err)
		}
		pages = append(pages, page)
	}

	slog.InfoContext(ctx, "ページ骨格の組み立てが完了しました",
		"project_id", projectID, "pages", len(pages))
	return pages, nil
}
