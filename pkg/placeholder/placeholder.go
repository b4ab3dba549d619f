// Package placeholder はリモート画像生成が失敗したときに使う、
// ローカル描画のスタンドイン画像を生成します。入力（プロンプト文字列と
// アスペクト比）だけから出力が決まる純粋な描画関数で、同じ入力に対して
// 常に同じ PNG バイト列を返すのだ。
package placeholder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// 描画パラメータなのだ。
const (
	baseEdge    = 512
	marginX     = 24
	marginTop   = 48
	lineHeight  = 16
	maxLines    = 20
	glyphWidth  = 7 // basicfont.Face7x13 の固定グリフ幅
)

var (
	backgroundColor = color.RGBA{R: 0xee, G: 0xee, B: 0xf2, A: 0xff}
	borderColor     = color.RGBA{R: 0x88, G: 0x88, B: 0x99, A: 0xff}
	textColor       = color.RGBA{R: 0x33, G: 0x33, B: 0x3d, A: 0xff}
)

// Dimensions はアスペクト比文字列をピクセル寸法へ変換します。
// 未知の比率は 1:1 として扱うのだ。
func Dimensions(aspectRatio string) (width, height int) {
	switch aspectRatio {
	case "4:3":
		return baseEdge, baseEdge * 3 / 4
	case "16:9":
		return baseEdge, baseEdge * 9 / 16
	case "3:4":
		return baseEdge * 3 / 4, baseEdge
	case "9:16":
		return baseEdge * 9 / 16, baseEdge
	default:
		return baseEdge, baseEdge
	}
}

// Render はプロンプト文字列を折り返して収めたラベル付き矩形を PNG で返します。
func Render(promptText, aspectRatio string) ([]byte, error) {
	width, height := Dimensions(aspectRatio)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backgroundColor}, image.Point{}, draw.Src)
	drawBorder(img, borderColor)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: textColor},
		Face: basicfont.Face7x13,
	}

	lines := append([]string{"[PLACEHOLDER]", ""}, wrapText(promptText, (width-2*marginX)/glyphWidth)...)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(marginX, marginTop+i*lineHeight)
		drawer.DrawString(line)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("プレースホルダーPNGのエンコードに失敗しました: %w", err)
	}
	return buf.Bytes(), nil
}

// drawBorder は外周1ピクセルの枠線を描きます。
func drawBorder(img *image.RGBA, c color.Color) {
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		img.Set(x, b.Min.Y, c)
		img.Set(x, b.Max.Y-1, c)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		img.Set(b.Min.X, y, c)
		img.Set(b.Max.X-1, y, c)
	}
}

// wrapText は単語境界を優先してテキストを折り返します。
// 1単語が1行に収まらない場合はその単語の途中で切るのだ。
func wrapText(text string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = 1
	}

	var lines []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		for len(word) > maxChars {
			if current.Len() > 0 {
				lines = append(lines, current.String())
				current.Reset()
			}
			lines = append(lines, word[:maxChars])
			word = word[maxChars:]
		}
		switch {
		case current.Len() == 0:
			current.WriteString(word)
		case current.Len()+1+len(word) <= maxChars:
			current.WriteString(" ")
			current.WriteString(word)
		default:
			lines = append(lines, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
