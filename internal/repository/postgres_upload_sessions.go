package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// PostgresUploadSessionsRepo 上传会话 Repository 实现
type PostgresUploadSessionsRepo struct {
	db *sql.DB
}

// NewPostgresUploadSessionsRepo 创建上传会话 Repository
func NewPostgresUploadSessionsRepo(db *sql.DB) *PostgresUploadSessionsRepo {
	return &PostgresUploadSessionsRepo{db: db}
}

const sessionColumns = `
	id, file_name, file_hash, file_size, data_type, status,
	record_count, success_count, error_count, uploaded_at, finalized_at`

// Create 新建会话（status=uploading）
func (r *PostgresUploadSessionsRepo) Create(ctx context.Context, s *domain.UploadSession) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO upload_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, s.FileName, s.FileHash, s.FileSize, s.DataType, s.Status,
		s.RecordCount, s.SuccessCount, s.ErrorCount, s.UploadedAt, s.FinalizedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create upload session: %w", err)
	}
	return nil
}

// Finalize 结束会话：写入终态与计数
func (r *PostgresUploadSessionsRepo) Finalize(ctx context.Context, id string, fin SessionFinalize) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE upload_sessions
		SET status = $1, record_count = $2, success_count = $3, error_count = $4,
		    finalized_at = CURRENT_TIMESTAMP
		WHERE id = $5`,
		fin.Status, fin.RecordCount, fin.SuccessCount, fin.ErrorCount, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize upload session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// List 上传历史（最近在前），空会话不展示
func (r *PostgresUploadSessionsRepo) List(ctx context.Context, fileName, dataType string) ([]*domain.UploadSession, error) {
	where := []string{"record_count > 0"}
	args := []any{}
	argN := 1
	if fileName != "" {
		where = append(where, fmt.Sprintf("file_name = $%d", argN))
		args = append(args, fileName)
		argN++
	}
	if dataType != "" {
		where = append(where, fmt.Sprintf("data_type = $%d", argN))
		args = append(args, dataType)
		argN++
	}

	query := `SELECT ` + sessionColumns + ` FROM upload_sessions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY uploaded_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.UploadSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetByFileName 按文件名取最近一次会话（按文件删除用）
func (r *PostgresUploadSessionsRepo) GetByFileName(ctx context.Context, fileName, dataType string) (*domain.UploadSession, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM upload_sessions
		WHERE file_name = $1 AND data_type = $2
		ORDER BY uploaded_at DESC
		LIMIT 1`, fileName, dataType)

	s, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// Delete 删除会话记录
func (r *PostgresUploadSessionsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE id = $1`, id)
	return err
}

// DeleteEmpty 清理零记录会话（List 会过滤它们，不清会一直残留）
func (r *PostgresUploadSessionsRepo) DeleteEmpty(ctx context.Context, dataType string) (int, error) {
	query := `DELETE FROM upload_sessions WHERE record_count = 0`
	args := []any{}
	if dataType != "" {
		query += ` AND data_type = $1`
		args = append(args, dataType)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete empty sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.UploadSession, error) {
	var s domain.UploadSession
	if err := row.Scan(
		&s.ID, &s.FileName, &s.FileHash, &s.FileSize, &s.DataType, &s.Status,
		&s.RecordCount, &s.SuccessCount, &s.ErrorCount, &s.UploadedAt, &s.FinalizedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
