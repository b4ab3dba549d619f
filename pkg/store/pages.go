package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

const pageColumns = "id, project_id, page_number, scene_description, dialogue_text, image_prompt, image_url, is_fallback, status, created_at, updated_at"

// CreatePage は新しいページ行を挿入します。
func (s *SQLiteStore) CreatePage(ctx context.Context, page *domain.ComicPage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comic_pages (id, project_id, page_number, scene_description, dialogue_text, image_prompt, image_url, is_fallback, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		page.ID, page.ProjectID, page.PageNumber, page.SceneDescription,
		page.DialogueText, page.ImagePrompt, nullableString(page.ImageURL),
		boolToInt(page.IsFallback), string(page.Status),
		formatTime(page.CreatedAt), formatTime(page.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("ページの挿入に失敗しました: %w", err)
	}
	return nil
}

// PagesByProject はプロジェクトの全ページをページ番号順で返します。
func (s *SQLiteStore) PagesByProject(ctx context.Context, projectID string) ([]*domain.ComicPage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+pageColumns+" FROM comic_pages WHERE project_id = ? ORDER BY page_number", projectID)
	if err != nil {
		return nil, fmt.Errorf("ページ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var pages []*domain.ComicPage
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("ページ行の読み取りに失敗しました: %w", err)
		}
		pages = append(pages, page)
	}
	return pages, rows.Err()
}

// PageByNumber はページ番号でページを取得します。見つからなければ (nil, nil) です。
func (s *SQLiteStore) PageByNumber(ctx context.Context, projectID string, pageNumber int) (*domain.ComicPage, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+pageColumns+" FROM comic_pages WHERE project_id = ? AND page_number = ?",
		projectID, pageNumber)
	page, err := scanPage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	return page, nil
}

// UpdatePageStatus はページ状態の単調性を検証してから更新します。
func (s *SQLiteStore) UpdatePageStatus(ctx context.Context, pageID string, to domain.PageStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var currentStr string
	var pageNumber int
	err = tx.QueryRowContext(ctx,
		"SELECT status, page_number FROM comic_pages WHERE id = ?", pageID,
	).Scan(&currentStr, &pageNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("ページ %s が見つかりません", pageID)
	}
	if err != nil {
		return fmt.Errorf("現在のページ状態の取得に失敗しました: %w", err)
	}

	current := domain.PageStatus(currentStr)
	if !current.CanTransition(to) {
		return fmt.Errorf("%w: page %d %s→%s", domain.ErrInvalidTransition, pageNumber, current, to)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE comic_pages SET status = ?, updated_at = ? WHERE id = ?",
		string(to), formatTime(time.Now()), pageID)
	if err != nil {
		return fmt.Errorf("ページ状態の更新に失敗しました: %w", err)
	}
	return tx.Commit()
}

// SetPageImage は合成済み画像のURLとフォールバック印を記録します。
func (s *SQLiteStore) SetPageImage(ctx context.Context, pageID, url string, isFallback bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE comic_pages SET image_url = ?, is_fallback = ?, updated_at = ? WHERE id = ?",
		url, boolToInt(isFallback), formatTime(time.Now()), pageID)
	if err != nil {
		return fmt.Errorf("画像URLの保存に失敗しました: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ページ %s が見つかりません", pageID)
	}
	return nil
}

// CreateTextBox はテキストボックス行を挿入します。
func (s *SQLiteStore) CreateTextBox(ctx context.Context, box *domain.ComicTextBox) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comic_text_boxes (id, page_id, text, x, y, width, height, font_family, font_size, text_color, background_color, box_type, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		box.ID, box.PageID, box.Text, box.X, box.Y, box.Width, box.Height,
		box.FontFamily, box.FontSize, box.TextColor, box.BackgroundColor,
		string(box.BoxType), formatTime(box.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("テキストボックスの挿入に失敗しました: %w", err)
	}
	return nil
}

// TextBoxesByPage はページのテキストボックスを作成順で返します。
func (s *SQLiteStore) TextBoxesByPage(ctx context.Context, pageID string) ([]*domain.ComicTextBox, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, page_id, text, x, y, width, height, font_family, font_size, text_color, background_color, box_type, created_at
         FROM comic_text_boxes WHERE page_id = ? ORDER BY created_at, id`, pageID)
	if err != nil {
		return nil, fmt.Errorf("テキストボックス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var boxes []*domain.ComicTextBox
	for rows.Next() {
		var box domain.ComicTextBox
		var boxType string
		var createdRaw sql.NullString
		if err := rows.Scan(&box.ID, &box.PageID, &box.Text, &box.X, &box.Y,
			&box.Width, &box.Height, &box.FontFamily, &box.FontSize,
			&box.TextColor, &box.BackgroundColor, &boxType, &createdRaw); err != nil {
			return nil, fmt.Errorf("テキストボックス行の読み取りに失敗しました: %w", err)
		}
		box.BoxType = domain.BoxType(boxType)
		box.CreatedAt = parseTime(createdRaw)
		boxes = append(boxes, &box)
	}
	return boxes, rows.Err()
}

func scanPage(scanner interface{ Scan(dest ...any) error }) (*domain.ComicPage, error) {
	var (
		page       domain.ComicPage
		imageURL   sql.NullString
		isFallback int
		statusStr  string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&page.ID, &page.ProjectID, &page.PageNumber,
		&page.SceneDescription, &page.DialogueText, &page.ImagePrompt,
		&imageURL, &isFallback, &statusStr, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	page.ImageURL = imageURL.String
	page.IsFallback = isFallback != 0
	page.Status = domain.PageStatus(statusStr)
	page.CreatedAt = parseTime(createdRaw)
	page.UpdatedAt = parseTime(updatedRaw)
	return &page, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
