package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// MemoryStore は pipeline.Repository のインメモリ実装です。
// ライブラリ組み込みで永続化が要らないときと、テストで使うのだ。
// SQLite 版と同じ遷移規則を強制します。
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*domain.ComicProject
	pages    map[string]*domain.ComicPage
	boxes    map[string][]*domain.ComicTextBox
	logs     map[string][]*domain.ProcessingLogEntry
}

// NewMemoryStore は空の MemoryStore を初期化します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects: make(map[string]*domain.ComicProject),
		pages:    make(map[string]*domain.ComicPage),
		boxes:    make(map[string][]*domain.ComicTextBox),
		logs:     make(map[string][]*domain.ProcessingLogEntry),
	}
}

// CreateProject はプロジェクトを登録します。同一IDの二重登録はエラーです。
func (m *MemoryStore) CreateProject(_ context.Context, project *domain.ComicProject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.projects[project.ID]; exists {
		return fmt.Errorf("プロジェクト %s は既に存在します", project.ID)
	}
	clone := *project
	m.projects[project.ID] = &clone
	return nil
}

// GetProject は ID でプロジェクトを返します。見つからなければ (nil, nil) です。
func (m *MemoryStore) GetProject(_ context.Context, id string) (*domain.ComicProject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	project, ok := m.projects[id]
	if !ok {
		return nil, nil
	}
	clone := *project
	return &clone, nil
}

// ListProjects はユーザーのプロジェクトを新しい順で返します。
func (m *MemoryStore) ListProjects(_ context.Context, userID string) ([]*domain.ComicProject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ComicProject
	for _, p := range m.projects {
		if p.UserID == userID {
			clone := *p
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// UpdateProjectStatus は遷移規則を検証してからステータスを更新します。
func (m *MemoryStore) UpdateProjectStatus(_ context.Context, id string, to domain.ProjectStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("プロジェクト %s が見つかりません", id)
	}
	return project.Transition(to)
}

// SavePlot は抽出済みプロットを保存します。
func (m *MemoryStore) SavePlot(_ context.Context, projectID string, plot *domain.ExtractedPlot) error {
	if plot == nil {
		return fmt.Errorf("plot is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[projectID]
	if !ok {
		return fmt.Errorf("プロジェクト %s が見つかりません", projectID)
	}
	project.Plot = plot
	project.UpdatedAt = time.Now().UTC()
	return nil
}

// CreatePage はページを登録します。ページ番号の重複はエラーです。
func (m *MemoryStore) CreatePage(_ context.Context, page *domain.ComicPage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pages {
		if p.ProjectID == page.ProjectID && p.PageNumber == page.PageNumber {
			return fmt.Errorf("ページ %d は既に存在します", page.PageNumber)
		}
	}
	clone := *page
	m.pages[page.ID] = &clone
	return nil
}

// PagesByProject はプロジェクトの全ページをページ番号順で返します。
func (m *MemoryStore) PagesByProject(_ context.Context, projectID string) ([]*domain.ComicPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.ComicPage
	for _, p := range m.pages {
		if p.ProjectID == projectID {
			clone := *p
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].PageNumber < result[j].PageNumber
	})
	return result, nil
}

// PageByNumber はページ番号でページを返します。見つからなければ (nil, nil) です。
func (m *MemoryStore) PageByNumber(_ context.Context, projectID string, pageNumber int) (*domain.ComicPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.pages {
		if p.ProjectID == projectID && p.PageNumber == pageNumber {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

// UpdatePageStatus はページ状態の単調性を検証してから更新します。
func (m *MemoryStore) UpdatePageStatus(_ context.Context, pageID string, to domain.PageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[pageID]
	if !ok {
		return fmt.Errorf("ページ %s が見つかりません", pageID)
	}
	return page.Transition(to)
}

// SetPageImage は合成済み画像のURLとフォールバック印を記録します。
func (m *MemoryStore) SetPageImage(_ context.Context, pageID, url string, isFallback bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[pageID]
	if !ok {
		return fmt.Errorf("ページ %s が見つかりません", pageID)
	}
	page.ImageURL = url
	page.IsFallback = isFallback
	page.UpdatedAt = time.Now().UTC()
	return nil
}

// CreateTextBox はテキストボックスを登録します。
func (m *MemoryStore) CreateTextBox(_ context.Context, box *domain.ComicTextBox) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *box
	m.boxes[box.PageID] = append(m.boxes[box.PageID], &clone)
	return nil
}

// TextBoxesByPage はページのテキストボックスを作成順で返します。
func (m *MemoryStore) TextBoxesByPage(_ context.Context, pageID string) ([]*domain.ComicTextBox, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	boxes := m.boxes[pageID]
	result := make([]*domain.ComicTextBox, 0, len(boxes))
	for _, b := range boxes {
		clone := *b
		result = append(result, &clone)
	}
	return result, nil
}

// AppendLog は処理ログを追記します。
func (m *MemoryStore) AppendLog(_ context.Context, entry *domain.ProcessingLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *entry
	m.logs[entry.ProjectID] = append(m.logs[entry.ProjectID], &clone)
	return nil
}

// LogsByProject はプロジェクトの処理ログを追記順で返します。
func (m *MemoryStore) LogsByProject(_ context.Context, projectID string) ([]*domain.ProcessingLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	logs := m.logs[projectID]
	result := make([]*domain.ProcessingLogEntry, 0, len(logs))
	for _, e := range logs {
		clone := *e
		result = append(result, &clone)
	}
	return result, nil
}
