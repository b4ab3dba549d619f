// Package layout はページ画像に重ねるテキストボックスの矩形配置を計算します。
// 完全に決定論的な純関数のみで構成され、同じ入力に対して常に同じ配置を返すため、
// 同一ページへの再実行は冪等になるのだ。
package layout

import (
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// 配置アルゴリズムの定数なのだ。1つの水平バンドに最大3箱を左から右へ並べ、
// 4箱目から次の段へ折り返します。
const (
	BoxWidth   = 150
	BoxHeight  = 40
	BaseX      = 50
	BaseY      = 200
	ColumnStep = 120
	ColumnSpan = 300
	RowSpacing = 60
	BoxesPerRow = 3
)

// Rect はテキストボックスの配置矩形です。
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// LayoutDialogue はセリフ行のリストを重ならない矩形配置に写像します。
// 配置はインデックスのみから導出されるため len(lines) だけで再現可能です。
// 空行もインデックスを消費しますが、ボックスを永続化するかは呼び出し元が決めます。
func LayoutDialogue(lines []string) []Rect {
	rects := make([]Rect, len(lines))
	for i := range lines {
		rects[i] = Rect{
			X:      BaseX + (i*ColumnStep)%ColumnSpan,
			Y:      BaseY + (i/BoxesPerRow)*RowSpacing,
			Width:  BoxWidth,
			Height: BoxHeight,
		}
	}
	return rects
}

// ClassifyBoxType はセリフ行からボックス種別を推定します。
// 丸括弧で囲まれた行は心の声、「ナレーション:」前置きの行は地の文として扱うのだ。
func ClassifyBoxType(line string) domain.BoxType {
	trimmed := strings.TrimSpace(line)
	if isWrapped(trimmed, "(", ")") || isWrapped(trimmed, "（", "）") {
		return domain.BoxTypeThought
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "narration:") || strings.HasPrefix(trimmed, "ナレーション:") || strings.HasPrefix(trimmed, "ナレーション：") {
		return domain.BoxTypeNarration
	}
	return domain.BoxTypeDialogue
}

func isWrapped(s, prefix, suffix string) bool {
	return len(s) > len(prefix)+len(suffix) && strings.HasPrefix(s, prefix) && strings.HasSuffix(s, suffix)
}
