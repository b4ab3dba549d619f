package pipeline

import (
	"context"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/extractor"
	"github.com/shouni/go-comic-kit/pkg/synthesizer"
)

// Repository はパイプラインが依存する抽象永続化層です。
// 具体実装には SQLite 版（store.SQLiteStore）とテスト・組み込み用の
// インメモリ版（store.MemoryStore)があります。
type Repository interface {
	CreateProject(ctx context.Context, project *domain.ComicProject) error
	GetProject(ctx context.Context, id string) (*domain.ComicProject, error)
	ListProjects(ctx context.Context, userID string) ([]*domain.ComicProject, error)
	// UpdateProjectStatus は遷移規則（created→processing→{completed,failed}、
	// completed はプロット必須）を検証し、違反には domain.ErrInvalidTransition を返します。
	UpdateProjectStatus(ctx context.Context, id string, to domain.ProjectStatus) error
	SavePlot(ctx context.Context, projectID string, plot *domain.ExtractedPlot) error

	CreatePage(ctx context.Context, page *domain.ComicPage) error
	PagesByProject(ctx context.Context, projectID string) ([]*domain.ComicPage, error)
	PageByNumber(ctx context.Context, projectID string, pageNumber int) (*domain.ComicPage, error)
	// UpdatePageStatus はページ状態の単調性を強制します。
	UpdatePageStatus(ctx context.Context, pageID string, to domain.PageStatus) error
	SetPageImage(ctx context.Context, pageID, url string, isFallback bool) error

	CreateTextBox(ctx context.Context, box *domain.ComicTextBox) error
	TextBoxesByPage(ctx context.Context, pageID string) ([]*domain.ComicTextBox, error)

	// AppendLog は追記専用の監査レコードを書き込みます。
	AppendLog(ctx context.Context, entry *domain.ProcessingLogEntry) error
	LogsByProject(ctx context.Context, projectID string) ([]*domain.ProcessingLogEntry, error)
}

// PlotService はステージ1（プロット抽出）のインターフェースです。
type PlotService interface {
	ExtractPlot(ctx context.Context, text string, opts extractor.Options) (*domain.ExtractedPlot, error)
}

// PageService はステージ2（ページ組み立て）のインターフェースです。
type PageService interface {
	AssemblePages(ctx context.Context, projectID string, plot *domain.ExtractedPlot, settings domain.GenerationSettings) ([]*domain.ComicPage, error)
}

// ImageService はステージ3（画像合成）のインターフェースです。
type ImageService interface {
	Synthesize(ctx context.Context, prompt string, scene *domain.Scene, opts synthesizer.Options) (*synthesizer.Result, error)
}

// ProgressFunc は進捗イベントを受け取る同期コールバックです。
// UI へのファイア・アンド・フォーゲットな通知を想定しており、
// ブロックしてはいけません。
type ProgressFunc func(event domain.ProgressEvent)
