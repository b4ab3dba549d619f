package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PageStatus は1ページの画像生成ライフサイクルです。
// 遷移は単調で、完了済みのページが前の状態に戻ることはありません。
type PageStatus string

const (
	PageStatusPending    PageStatus = "pending"
	PageStatusGenerating PageStatus = "generating"
	PageStatusCompleted  PageStatus = "completed"
	PageStatusFailed     PageStatus = "failed"
)

// pageStatusRank は単調性チェック用の順位なのだ。
// failed → generating だけは再試行のために許可される例外です。
var pageStatusRank = map[PageStatus]int{
	PageStatusPending:    0,
	PageStatusGenerating: 1,
	PageStatusCompleted:  2,
	PageStatusFailed:     2,
}

// CanTransition は from から to へのページ状態遷移が許可されているかを返します。
func (s PageStatus) CanTransition(to PageStatus) bool {
	if s == to {
		return false
	}
	// 再試行: 失敗ページのみ generating へ再突入できるのだ
	if s == PageStatusFailed && to == PageStatusGenerating {
		return true
	}
	if s == PageStatusCompleted {
		return false
	}
	return pageStatusRank[to] > pageStatusRank[s]
}

// ComicPage は1シーンに対応する漫画ページです。
// ImageURL は画像生成が完了するまで空のままです。
type ComicPage struct {
	ID               string
	ProjectID        string
	PageNumber       int // 1始まりの連番
	SceneDescription string
	DialogueText     string
	ImagePrompt      string
	ImageURL         string
	IsFallback       bool
	Status           PageStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewComicPage は pending 状態の新しいページを生成するのだ。
func NewComicPage(projectID string, pageNumber int, scene Scene, imagePrompt string) *ComicPage {
	now := time.Now().UTC()
	return &ComicPage{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		PageNumber:       pageNumber,
		SceneDescription: scene.Description,
		DialogueText:     scene.JoinedDialogue(),
		ImagePrompt:      imagePrompt,
		Status:           PageStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Transition はページ状態を検証付きで変更します。
func (p *ComicPage) Transition(to PageStatus) error {
	if !p.Status.CanTransition(to) {
		return fmt.Errorf("%w: page %d %s→%s", ErrInvalidTransition, p.PageNumber, p.Status, to)
	}
	p.Status = to
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// BoxType はテキストボックスの種別です。
type BoxType string

const (
	BoxTypeDialogue  BoxType = "dialogue"
	BoxTypeNarration BoxType = "narration"
	BoxTypeThought   BoxType = "thought"
)

// ComicTextBox はページ画像の上に重ねる1つのテキストボックスです。
// 空でないセリフ1行につき1つだけ作られます。
type ComicTextBox struct {
	ID              string
	PageID          string
	Text            string
	X               int
	Y               int
	Width           int
	Height          int
	FontFamily      string
	FontSize        int
	TextColor       string
	BackgroundColor string
	BoxType         BoxType
	CreatedAt       time.Time
}

// NewComicTextBox はテキストボックスを生成するのだ。
func NewComicTextBox(pageID, text string, x, y, width, height int, boxType BoxType, settings GenerationSettings) *ComicTextBox {
	fontFamily := settings.FontFamily
	if fontFamily == "" {
		fontFamily = "sans-serif"
	}
	fontSize := settings.FontSize
	if fontSize <= 0 {
		fontSize = 14
	}
	return &ComicTextBox{
		ID:              uuid.NewString(),
		PageID:          pageID,
		Text:            text,
		X:               x,
		Y:               y,
		Width:           width,
		Height:          height,
		FontFamily:      fontFamily,
		FontSize:        fontSize,
		TextColor:       "#1a1a1a",
		BackgroundColor: "#ffffff",
		BoxType:         boxType,
		CreatedAt:       time.Now().UTC(),
	}
}
