package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProjectStatus はコミックプロジェクトのライフサイクル状態です。
type ProjectStatus string

const (
	ProjectStatusCreated    ProjectStatus = "created"
	ProjectStatusProcessing ProjectStatus = "processing"
	ProjectStatusCompleted  ProjectStatus = "completed"
	ProjectStatusFailed     ProjectStatus = "failed"
)

// ErrInvalidTransition は許可されていない状態遷移を表すセンチネルエラーなのだ。
var ErrInvalidTransition = fmt.Errorf("invalid status transition")

// projectTransitions は許可された遷移の集合です。failed は吸収状態なのだ。
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusCreated:    {ProjectStatusProcessing},
	ProjectStatusProcessing: {ProjectStatusCompleted, ProjectStatusFailed},
}

// CanTransition は from から to への遷移が許可されているかを返します。
func (s ProjectStatus) CanTransition(to ProjectStatus) bool {
	for _, next := range projectTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// GenerationSettings はプロジェクト単位の生成設定を保持します。
type GenerationSettings struct {
	Style       string `json:"style"`
	FontFamily  string `json:"font_family"`
	FontSize    int    `json:"font_size"`
	TargetAge   string `json:"target_age"`
	AspectRatio string `json:"aspect_ratio"`
	MaxScenes   int    `json:"max_scenes"`
}

// ComicProject は1つの変換ジョブ（原文テキスト → 複数ページの漫画）を表します。
// Plot はステージ1が完了するまで nil のままです。
type ComicProject struct {
	ID          string
	UserID      string
	Title       string
	InputText   string
	Plot        *ExtractedPlot
	Status      ProjectStatus
	Settings    GenerationSettings
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// NewComicProject は created 状態の新しいプロジェクトを生成するのだ。
func NewComicProject(userID, title, inputText string, settings GenerationSettings) *ComicProject {
	now := time.Now().UTC()
	return &ComicProject{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		InputText: inputText,
		Status:    ProjectStatusCreated,
		Settings:  settings,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition はステータスを検証付きで変更します。
// completed への遷移は Plot が設定済みであることを要求します。
func (p *ComicProject) Transition(to ProjectStatus) error {
	if !p.Status.CanTransition(to) {
		return fmt.Errorf("%w: project %s→%s", ErrInvalidTransition, p.Status, to)
	}
	if to == ProjectStatusCompleted && p.Plot == nil {
		return fmt.Errorf("%w: completed にはプロットの抽出が必要です", ErrInvalidTransition)
	}
	now := time.Now().UTC()
	p.Status = to
	p.UpdatedAt = now
	if to == ProjectStatusCompleted {
		p.CompletedAt = &now
	}
	return nil
}
