package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

func setupMockSessionsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresUploadSessionsRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresUploadSessionsRepo(db)
}

func testSession(id string) *domain.UploadSession {
	return &domain.UploadSession{
		ID:         id,
		FileName:   "incidents-jan.xlsx",
		FileHash:   "abc123",
		FileSize:   2048,
		DataType:   "incident",
		Status:     domain.UploadStatusUploading,
		UploadedAt: time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
	}
}

func TestSessionCreate(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO upload_sessions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), testSession("s-1")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCreate_RequiresID(t *testing.T) {
	db, _, repo := setupMockSessionsDB(t)
	defer db.Close()

	err := repo.Create(context.Background(), &domain.UploadSession{})
	require.Error(t, err)
}

func TestSessionFinalize(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectExec(`(?s)UPDATE upload_sessions.+SET status`).
		WithArgs(string(domain.UploadStatusCompleted), 100, 95, 5, "s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Finalize(context.Background(), "s-1", SessionFinalize{
		Status:       domain.UploadStatusCompleted,
		RecordCount:  100,
		SuccessCount: 95,
		ErrorCount:   5,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionFinalize_NotFound(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE upload_sessions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Finalize(context.Background(), "missing", SessionFinalize{
		Status: domain.UploadStatusFailed,
	})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func sessionRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "file_name", "file_hash", "file_size", "data_type", "status",
		"record_count", "success_count", "error_count", "uploaded_at", "finalized_at",
	})
	for _, id := range ids {
		rows.AddRow(id, "incidents-jan.xlsx", "abc123", int64(2048), "incident",
			string(domain.UploadStatusCompleted), 100, 95, 5,
			time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 16, 9, 1, 0, 0, time.UTC))
	}
	return rows
}

func TestSessionList_HidesEmptySessions(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM upload_sessions WHERE record_count > 0 ORDER BY uploaded_at DESC`).
		WillReturnRows(sessionRows("s-1", "s-2"))

	out, err := repo.List(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "s-1", out[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionList_FileNameFilter(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM upload_sessions WHERE record_count > 0 AND file_name = \$1 AND data_type = \$2`).
		WithArgs("incidents-jan.xlsx", "incident").
		WillReturnRows(sessionRows("s-1"))

	out, err := repo.List(context.Background(), "incidents-jan.xlsx", "incident")
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGetByFileName(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT .+ FROM upload_sessions.+WHERE file_name = \$1 AND data_type = \$2`).
		WithArgs("incidents-jan.xlsx", "incident").
		WillReturnRows(sessionRows("s-9"))

	s, err := repo.GetByFileName(context.Background(), "incidents-jan.xlsx", "incident")
	require.NoError(t, err)
	assert.Equal(t, "s-9", s.ID)
	assert.Equal(t, 100, s.RecordCount)
}

func TestSessionGetByFileName_NotFound(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM upload_sessions`).
		WillReturnRows(sessionRows())

	_, err := repo.GetByFileName(context.Background(), "nope.xlsx", "incident")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionDeleteEmpty(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM upload_sessions WHERE record_count = 0 AND data_type = \$1`).
		WithArgs("incident").
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteEmpty(context.Background(), "incident")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionDelete(t *testing.T) {
	db, mock, repo := setupMockSessionsDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM upload_sessions WHERE id = \$1`).
		WithArgs("s-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "s-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
