package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/pipeline"
)

// 両実装が pipeline.Repository の契約を満たすことの静的検査なのだ。
var (
	_ pipeline.Repository = (*SQLiteStore)(nil)
	_ pipeline.Repository = (*MemoryStore)(nil)
)

// eachStore は同じ契約テストを SQLite とインメモリの両方に流すのだ。
func eachStore(t *testing.T, test func(t *testing.T, repo pipeline.Repository)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		store, err := Open(filepath.Join(t.TempDir(), "comic.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		test(t, store)
	})

	t.Run("memory", func(t *testing.T) {
		test(t, NewMemoryStore())
	})
}

func newProject(title string) *domain.ComicProject {
	return domain.NewComicProject("user-1", title, "昔々あるところに。", domain.GenerationSettings{
		Style:     "cartoon",
		TargetAge: "children",
		MaxScenes: 6,
	})
}

func TestProjectRoundTrip(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		project := newProject("テスト")
		require.NoError(t, repo.CreateProject(ctx, project))

		got, err := repo.GetProject(ctx, project.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, project.Title, got.Title)
		assert.Equal(t, project.InputText, got.InputText)
		assert.Equal(t, domain.ProjectStatusCreated, got.Status)
		assert.Equal(t, "cartoon", got.Settings.Style)
		assert.Equal(t, 6, got.Settings.MaxScenes)
		assert.Nil(t, got.Plot)
		assert.Nil(t, got.CompletedAt)

		missing, err := repo.GetProject(ctx, "no-such-id")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestSavePlot(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		project := newProject("テスト")
		require.NoError(t, repo.CreateProject(ctx, project))

		plot := &domain.ExtractedPlot{
			Title:   "抽出結果",
			Summary: "あらすじ",
			Scenes: []domain.Scene{
				{Label: "Scene 1", Description: "出会い", Dialogue: []string{"こんにちは"}},
			},
		}
		plot.Normalize()
		require.NoError(t, repo.SavePlot(ctx, project.ID, plot))

		got, err := repo.GetProject(ctx, project.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Plot)
		assert.Equal(t, "抽出結果", got.Plot.Title)
		require.Len(t, got.Plot.Scenes, 1)
		assert.Equal(t, "出会い", got.Plot.Scenes[0].Description)

		err = repo.SavePlot(ctx, "no-such-id", plot)
		assert.Error(t, err)
	})
}

func TestUpdateProjectStatus(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		t.Run("正常系の遷移が通ること", func(t *testing.T) {
			project := newProject("遷移")
			require.NoError(t, repo.CreateProject(ctx, project))
			require.NoError(t, repo.SavePlot(ctx, project.ID, &domain.ExtractedPlot{
				Scenes: []domain.Scene{{Label: "Scene 1", Description: "x"}},
			}))

			require.NoError(t, repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusProcessing))
			require.NoError(t, repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusCompleted))

			got, _ := repo.GetProject(ctx, project.ID)
			assert.Equal(t, domain.ProjectStatusCompleted, got.Status)
			assert.NotNil(t, got.CompletedAt)
		})

		t.Run("created から completed へ飛べないこと", func(t *testing.T) {
			project := newProject("飛び級")
			require.NoError(t, repo.CreateProject(ctx, project))

			err := repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusCompleted)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "got: %v", err)
		})

		t.Run("プロットなしで completed になれないこと", func(t *testing.T) {
			project := newProject("プロットなし")
			require.NoError(t, repo.CreateProject(ctx, project))
			require.NoError(t, repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusProcessing))

			err := repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusCompleted)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "got: %v", err)
		})

		t.Run("failed が吸収状態であること", func(t *testing.T) {
			project := newProject("失敗")
			require.NoError(t, repo.CreateProject(ctx, project))
			require.NoError(t, repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusProcessing))
			require.NoError(t, repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusFailed))

			err := repo.UpdateProjectStatus(ctx, project.ID, domain.ProjectStatusProcessing)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "got: %v", err)
		})
	})
}

func TestListProjects(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		older := newProject("古いの")
		older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := newProject("新しいの")
		newer.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		other := newProject("他人の")
		other.UserID = "user-2"

		require.NoError(t, repo.CreateProject(ctx, older))
		require.NoError(t, repo.CreateProject(ctx, newer))
		require.NoError(t, repo.CreateProject(ctx, other))

		projects, err := repo.ListProjects(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, projects, 2)
		assert.Equal(t, "新しいの", projects[0].Title)
		assert.Equal(t, "古いの", projects[1].Title)
	})
}

func TestPages(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		project := newProject("ページ")
		require.NoError(t, repo.CreateProject(ctx, project))

		scene := domain.Scene{Label: "Scene 1", Description: "森の中", Dialogue: []string{"行くぞ", "おー"}}
		page1 := domain.NewComicPage(project.ID, 1, scene, "prompt 1")
		page2 := domain.NewComicPage(project.ID, 2, scene, "prompt 2")
		require.NoError(t, repo.CreatePage(ctx, page1))
		require.NoError(t, repo.CreatePage(ctx, page2))

		t.Run("ページ番号の重複を拒否すること", func(t *testing.T) {
			dup := domain.NewComicPage(project.ID, 1, scene, "prompt dup")
			assert.Error(t, repo.CreatePage(ctx, dup))
		})

		t.Run("番号順で一覧できること", func(t *testing.T) {
			pages, err := repo.PagesByProject(ctx, project.ID)
			require.NoError(t, err)
			require.Len(t, pages, 2)
			assert.Equal(t, 1, pages[0].PageNumber)
			assert.Equal(t, 2, pages[1].PageNumber)
			assert.Equal(t, "行くぞ\nおー", pages[0].DialogueText)
			assert.Equal(t, domain.PageStatusPending, pages[0].Status)
		})

		t.Run("番号で1件取得できること", func(t *testing.T) {
			page, err := repo.PageByNumber(ctx, project.ID, 2)
			require.NoError(t, err)
			require.NotNil(t, page)
			assert.Equal(t, page2.ID, page.ID)

			missing, err := repo.PageByNumber(ctx, project.ID, 99)
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("画像URLを記録できること", func(t *testing.T) {
			require.NoError(t, repo.SetPageImage(ctx, page1.ID, "output/images/p1.png", true))
			page, _ := repo.PageByNumber(ctx, project.ID, 1)
			assert.Equal(t, "output/images/p1.png", page.ImageURL)
			assert.True(t, page.IsFallback)
		})
	})
}

func TestUpdatePageStatus(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		project := newProject("ページ状態")
		require.NoError(t, repo.CreateProject(ctx, project))
		page := domain.NewComicPage(project.ID, 1, domain.Scene{Label: "Scene 1", Description: "x"}, "p")
		require.NoError(t, repo.CreatePage(ctx, page))

		require.NoError(t, repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusGenerating))

		err := repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusPending)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "巻き戻りは拒否されるはず: %v", err)

		require.NoError(t, repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusFailed))
		// failed → generating は再試行のための例外なのだ
		require.NoError(t, repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusGenerating))
		require.NoError(t, repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusCompleted))

		err = repo.UpdatePageStatus(ctx, page.ID, domain.PageStatusGenerating)
		assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "completed は終端のはず: %v", err)
	})
}

func TestTextBoxes(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		project := newProject("吹き出し")
		require.NoError(t, repo.CreateProject(ctx, project))
		page := domain.NewComicPage(project.ID, 1, domain.Scene{Label: "Scene 1", Description: "x"}, "p")
		require.NoError(t, repo.CreatePage(ctx, page))

		settings := domain.GenerationSettings{FontFamily: "serif", FontSize: 16}
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		for i, text := range []string{"一言目", "二言目", "三言目"} {
			box := domain.NewComicTextBox(page.ID, text, 50+i*120, 200, 150, 40, domain.BoxTypeDialogue, settings)
			box.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, repo.CreateTextBox(ctx, box))
		}

		boxes, err := repo.TextBoxesByPage(ctx, page.ID)
		require.NoError(t, err)
		require.Len(t, boxes, 3)
		assert.Equal(t, "一言目", boxes[0].Text)
		assert.Equal(t, "三言目", boxes[2].Text)
		assert.Equal(t, 290, boxes[2].X)
		assert.Equal(t, "serif", boxes[0].FontFamily)
		assert.Equal(t, 16, boxes[0].FontSize)
		assert.Equal(t, domain.BoxTypeDialogue, boxes[0].BoxType)
	})
}

func TestLogs(t *testing.T) {
	ctx := context.Background()

	eachStore(t, func(t *testing.T, repo pipeline.Repository) {
		project := newProject("ログ")
		require.NoError(t, repo.CreateProject(ctx, project))

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		entries := []*domain.ProcessingLogEntry{
			domain.NewLogEntry(project.ID, domain.StageTextAnalysis, domain.LogStatusStarted, "開始"),
			domain.NewLogEntry(project.ID, domain.StageTextAnalysis, domain.LogStatusCompleted, "完了").WithDuration(1500 * time.Millisecond),
			domain.NewLogEntry(project.ID, domain.StageImageGeneration, domain.LogStatusFailed, "失敗").WithError(errors.New("backend down")),
		}
		for i, entry := range entries {
			entry.CreatedAt = base.Add(time.Duration(i) * time.Second)
			require.NoError(t, repo.AppendLog(ctx, entry))
		}

		logs, err := repo.LogsByProject(ctx, project.ID)
		require.NoError(t, err)
		require.Len(t, logs, 3)
		assert.Equal(t, domain.LogStatusStarted, logs[0].Status)
		assert.Equal(t, int64(1500), logs[1].DurationMillis)
		assert.Equal(t, "backend down", logs[2].ErrorDetail)
		assert.Equal(t, domain.StageImageGeneration, logs[2].Stage)
	})
}

func TestOpen(t *testing.T) {
	t.Run("同じファイルを再オープンできること", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "comic.db")
		store, err := Open(path)
		require.NoError(t, err)

		project := newProject("永続化")
		require.NoError(t, store.CreateProject(context.Background(), project))
		require.NoError(t, store.Close())

		reopened, err := Open(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = reopened.Close() })

		got, err := reopened.GetProject(context.Background(), project.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "永続化", got.Title)
	})

	t.Run("空のパスを拒否すること", func(t *testing.T) {
		_, err := Open("")
		assert.Error(t, err)
	})
}
