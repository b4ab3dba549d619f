package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

const projectColumns = "id, user_id, title, input_text, plot_json, status, settings_json, created_at, updated_at, completed_at"

// CreateProject は新しいプロジェクト行を挿入します。
func (s *SQLiteStore) CreateProject(ctx context.Context, project *domain.ComicProject) error {
	settingsJSON, err := json.Marshal(project.Settings)
	if err != nil {
		return fmt.Errorf("設定のシリアライズに失敗しました: %w", err)
	}

	var plotJSON any
	if project.Plot != nil {
		data, err := json.Marshal(project.Plot)
		if err != nil {
			return fmt.Errorf("プロットのシリアライズに失敗しました: %w", err)
		}
		plotJSON = string(data)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO comic_projects (id, user_id, title, input_text, plot_json, status, settings_json, created_at, updated_at, completed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.UserID, project.Title, project.InputText,
		plotJSON, string(project.Status), string(settingsJSON),
		formatTime(project.CreatedAt), formatTime(project.UpdatedAt), nil,
	)
	if err != nil {
		return fmt.Errorf("プロジェクトの挿入に失敗しました: %w", err)
	}
	return nil
}

// GetProject は ID でプロジェクトを取得します。見つからなければ (nil, nil) なのだ。
func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*domain.ComicProject, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM comic_projects WHERE id = ?", id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロジェクトの取得に失敗しました: %w", err)
	}
	return project, nil
}

// ListProjects はユーザーのプロジェクトを新しい順で返します。
func (s *SQLiteStore) ListProjects(ctx context.Context, userID string) ([]*domain.ComicProject, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM comic_projects WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクト一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var projects []*domain.ComicProject
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("プロジェクト行の読み取りに失敗しました: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpdateProjectStatus は遷移規則を検証してからステータスを更新します。
// 違反には domain.ErrInvalidTransition を返すのだ。
func (s *SQLiteStore) UpdateProjectStatus(ctx context.Context, id string, to domain.ProjectStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentStr string
	var plotJSON sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT status, plot_json FROM comic_projects WHERE id = ?", id,
	).Scan(&currentStr, &plotJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("プロジェクト %s が見つかりません", id)
	}
	if err != nil {
		return fmt.Errorf("現在のステータス取得に失敗しました: %w", err)
	}

	current := domain.ProjectStatus(currentStr)
	if !current.CanTransition(to) {
		return fmt.Errorf("%w: project %s→%s", domain.ErrInvalidTransition, current, to)
	}
	if to == domain.ProjectStatusCompleted && !plotJSON.Valid {
		return fmt.Errorf("%w: completed にはプロットの抽出が必要です", domain.ErrInvalidTransition)
	}

	now := formatTime(time.Now())
	var completedAt any
	if to == domain.ProjectStatusCompleted {
		completedAt = now
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE comic_projects SET status = ?, updated_at = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?",
		string(to), now, completedAt, id)
	if err != nil {
		return fmt.Errorf("ステータスの更新に失敗しました: %w", err)
	}
	return tx.Commit()
}

// SavePlot は抽出済みプロットをプロジェクトに保存します。
func (s *SQLiteStore) SavePlot(ctx context.Context, projectID string, plot *domain.ExtractedPlot) error {
	if plot == nil {
		return fmt.Errorf("plot is required")
	}
	data, err := json.Marshal(plot)
	if err != nil {
		return fmt.Errorf("プロットのシリアライズに失敗しました: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE comic_projects SET plot_json = ?, updated_at = ? WHERE id = ?",
		string(data), formatTime(time.Now()), projectID)
	if err != nil {
		return fmt.Errorf("プロットの保存に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("プロジェクト %s が見つかりません", projectID)
	}
	return nil
}

func scanProject(scanner interface{ Scan(dest ...any) error }) (*domain.ComicProject, error) {
	var (
		id           string
		userID       string
		title        string
		inputText    string
		plotJSON     sql.NullString
		statusStr    string
		settingsJSON string
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &userID, &title, &inputText, &plotJSON,
		&statusStr, &settingsJSON, &createdRaw, &updatedRaw, &completedRaw); err != nil {
		return nil, err
	}

	project := &domain.ComicProject{
		ID:        id,
		UserID:    userID,
		Title:     title,
		InputText: inputText,
		Status:    domain.ProjectStatus(statusStr),
		CreatedAt: parseTime(createdRaw),
		UpdatedAt: parseTime(updatedRaw),
	}
	if err := json.Unmarshal([]byte(settingsJSON), &project.Settings); err != nil {
		return nil, fmt.Errorf("設定のデシリアライズに失敗しました: %w", err)
	}
	if plotJSON.Valid {
		plot := &domain.ExtractedPlot{}
		if err := json.Unmarshal([]byte(plotJSON.String), plot); err != nil {
			return nil, fmt.Errorf("プロットのデシリアライズに失敗しました: %w", err)
		}
		project.Plot = plot
	}
	if completedRaw.Valid {
		t := parseTime(completedRaw)
		project.CompletedAt = &t
	}
	return project, nil
}
