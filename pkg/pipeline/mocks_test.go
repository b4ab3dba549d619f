package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/extractor"
	"github.com/shouni/go-comic-kit/pkg/synthesizer"
)

// fakeRepo は Repository のインメモリ実装です。状態遷移の検証を含めて
// 本物のストアと同じ契約で振る舞うのだ。
type fakeRepo struct {
	mu       sync.Mutex
	projects map[string]*domain.ComicProject
	pages    map[string]*domain.ComicPage
	boxes    []*domain.ComicTextBox
	logs     []*domain.ProcessingLogEntry

	failAppendLog     bool
	failCreateTextBox bool
	failSetPageImage  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects: make(map[string]*domain.ComicProject),
		pages:    make(map[string]*domain.ComicPage),
	}
}

func (r *fakeRepo) CreateProject(_ context.Context, project *domain.ComicProject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[project.ID] = project
	return nil
}

func (r *fakeRepo) GetProject(_ context.Context, id string) (*domain.ComicProject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[id], nil
}

func (r *fakeRepo) ListProjects(_ context.Context, userID string) ([]*domain.ComicProject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.ComicProject
	for _, p := range r.projects {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeRepo) UpdateProjectStatus(_ context.Context, id string, to domain.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("project %s not found", id)
	}
	return project.Transition(to)
}

func (r *fakeRepo) SavePlot(_ context.Context, projectID string, plot *domain.ExtractedPlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[projectID]
	if !ok {
		return fmt.Errorf("project %s not found", projectID)
	}
	project.Plot = plot
	return nil
}

func (r *fakeRepo) CreatePage(_ context.Context, page *domain.ComicPage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[page.ID] = page
	return nil
}

func (r *fakeRepo) PagesByProject(_ context.Context, projectID string) ([]*domain.ComicPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.ComicPage
	for _, p := range r.pages {
		if p.ProjectID == projectID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeRepo) PageByNumber(_ context.Context, projectID string, pageNumber int) (*domain.ComicPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pages {
		if p.ProjectID == projectID && p.PageNumber == pageNumber {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) UpdatePageStatus(_ context.Context, pageID string, to domain.PageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	page, ok := r.pages[pageID]
	if !ok {
		return fmt.Errorf("page %s not found", pageID)
	}
	return page.Transition(to)
}

func (r *fakeRepo) SetPageImage(_ context.Context, pageID, url string, isFallback bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSetPageImage {
		return fmt.Errorf("injected: set page image failed")
	}
	page, ok := r.pages[pageID]
	if !ok {
		return fmt.Errorf("page %s not found", pageID)
	}
	page.ImageURL = url
	page.IsFallback = isFallback
	return nil
}

func (r *fakeRepo) CreateTextBox(_ context.Context, box *domain.ComicTextBox) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateTextBox {
		return fmt.Errorf("injected: create text box failed")
	}
	r.boxes = append(r.boxes, box)
	return nil
}

func (r *fakeRepo) TextBoxesByPage(_ context.Context, pageID string) ([]*domain.ComicTextBox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.ComicTextBox
	for _, b := range r.boxes {
		if b.PageID == pageID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (r *fakeRepo) AppendLog(_ context.Context, entry *domain.ProcessingLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAppendLog {
		return fmt.Errorf("injected: append log failed")
	}
	r.logs = append(r.logs, entry)
	return nil
}

func (r *fakeRepo) LogsByProject(_ context.Context, projectID string) ([]*domain.ProcessingLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.ProcessingLogEntry
	for _, e := range r.logs {
		if e.ProjectID == projectID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeRepo) lookupPage(projectID string, pageNumber int) *domain.ComicPage {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pages {
		if p.ProjectID == projectID && p.PageNumber == pageNumber {
			return p
		}
	}
	return nil
}

func (r *fakeRepo) logCount(projectID, stage string, status domain.LogStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, e := range r.logs {
		if e.ProjectID == projectID && e.Stage == stage && e.Status == status {
			count++
		}
	}
	return count
}

var _ Repository = (*fakeRepo)(nil)

// stubPlots は PlotService の固定応答スタブです。
type stubPlots struct {
	plot *domain.ExtractedPlot
	err  error
}

func (s *stubPlots) ExtractPlot(_ context.Context, _ string, _ extractor.Options) (*domain.ExtractedPlot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plot, nil
}

// stubPages はシーンごとに pending ページを作ってリポジトリへ保存するのだ。
type stubPages struct {
	repo Repository
	err  error
}

func (s *stubPages) AssemblePages(ctx context.Context, projectID string, plot *domain.ExtractedPlot, _ domain.GenerationSettings) ([]*domain.ComicPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	var pages []*domain.ComicPage
	for i, scene := range plot.Scenes {
		page := domain.NewComicPage(projectID, i+1, scene, "prompt for "+scene.Label)
		if err := s.repo.CreatePage(ctx, page); err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// stubImages はプロンプト単位で失敗を注入できる ImageService です。
type stubImages struct {
	mu      sync.Mutex
	failFor map[string]bool
	calls   int
}

func (s *stubImages) Synthesize(_ context.Context, prompt string, _ *domain.Scene, opts synthesizer.Options) (*synthesizer.Result, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failFor[prompt] {
		return nil, fmt.Errorf("injected: synthesis failed")
	}
	return &synthesizer.Result{
		URL:      "output/images/" + opts.Name + ".png",
		MimeType: "image/png",
	}, nil
}

func testPlot(sceneCount int) *domain.ExtractedPlot {
	plot := &domain.ExtractedPlot{
		Title:   "テスト物語",
		Summary: "テスト用のあらすじ",
	}
	for i := 1; i <= sceneCount; i++ {
		plot.Scenes = append(plot.Scenes, domain.Scene{
			Label:       fmt.Sprintf("Scene %d", i),
			Description: fmt.Sprintf("シーン%dの描写", i),
			Dialogue:    []string{fmt.Sprintf("セリフ%d-1", i), fmt.Sprintf("セリフ%d-2", i)},
			Emotion:     "happy",
			Setting:     "forest",
		})
	}
	plot.Normalize()
	return plot
}
