package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogStatus は処理ログエントリの状態です。
type LogStatus string

const (
	LogStatusStarted   LogStatus = "started"
	LogStatusCompleted LogStatus = "completed"
	LogStatusFailed    LogStatus = "failed"
)

// パイプラインの各ステージ名なのだ。ログと進捗イベントで共有します。
const (
	StageTextAnalysis    = "text_analysis"
	StagePageAssembly    = "page_assembly"
	StageImageGeneration = "image_generation"
	StageTextBoxLayout   = "textbox_layout"
	StagePipeline        = "pipeline"
)

// ProcessingLogEntry はステージの開始・成功・失敗を記録する追記専用の
// 監査レコードです。一度書かれた行は更新も削除もされません。
type ProcessingLogEntry struct {
	ID             string
	ProjectID      string
	Stage          string
	Status         LogStatus
	Message        string
	DurationMillis int64
	ErrorDetail    string
	CreatedAt      time.Time
}

// NewLogEntry は新しいログエントリを生成するのだ。
func NewLogEntry(projectID, stage string, status LogStatus, message string) *ProcessingLogEntry {
	return &ProcessingLogEntry{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Stage:     stage,
		Status:    status,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// WithDuration はステージの所要時間を記録します。
func (e *ProcessingLogEntry) WithDuration(d time.Duration) *ProcessingLogEntry {
	e.DurationMillis = d.Milliseconds()
	return e
}

// WithError は構造化エラー詳細を記録します。
func (e *ProcessingLogEntry) WithError(err error) *ProcessingLogEntry {
	if err != nil {
		e.ErrorDetail = err.Error()
	}
	return e
}
