package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// AppendLog は処理ログを追記します。ログは追記専用で、更新も削除も
// 提供しないのだ。
func (s *SQLiteStore) AppendLog(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comic_processing_logs (id, project_id, stage, status, message, duration_ms, error_detail, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ProjectID, entry.Stage, string(entry.Status),
		entry.Message, entry.DurationMillis, nullableString(entry.ErrorDetail),
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("処理ログの追記に失敗しました: %w", err)
	}
	return nil
}

// LogsByProject はプロジェクトの処理ログを古い順で返します。
func (s *SQLiteStore) LogsByProject(ctx context.Context, projectID string) ([]*domain.ProcessingLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, stage, status, message, duration_ms, error_detail, created_at
         FROM comic_processing_logs WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("処理ログの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []*domain.ProcessingLogEntry
	for rows.Next() {
		var entry domain.ProcessingLogEntry
		var statusStr string
		var errorDetail sql.NullString
		var createdRaw sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.Stage, &statusStr,
			&entry.Message, &entry.DurationMillis, &errorDetail, &createdRaw); err != nil {
			return nil, fmt.Errorf("処理ログ行の読み取りに失敗しました: %w", err)
		}
		entry.Status = domain.LogStatus(statusStr)
		entry.ErrorDetail = errorDetail.String
		entry.CreatedAt = parseTime(createdRaw)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
