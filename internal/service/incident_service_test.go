package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/domain"
	"github.com/igmahardika/antic-sub002/internal/repository"
)

func TestListIncidents_FiltersAndPaginates(t *testing.T) {
	repo := repository.NewMemoryIncidentsRepo()
	seedStatsIncident(t, repo, "C-1", "Open", "High", domain.SeverityBlue, domain.DurationMetrics{})
	seedStatsIncident(t, repo, "C-2", "Closed", "High", domain.SeverityRed, domain.DurationMetrics{})
	seedStatsIncident(t, repo, "C-3", "Open", "Low", domain.SeverityBlue, domain.DurationMetrics{})

	svc := NewIncidentService(repo, zap.NewNop())

	resp, err := svc.ListIncidents(context.Background(), ListIncidentsRequest{
		Filters: repository.IncidentFilters{Status: "Open"},
		Page:    1,
		Size:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Items, 2)

	// 越界分页返回空页而不是错误
	resp, err = svc.ListIncidents(context.Background(), ListIncidentsRequest{
		Filters: repository.IncidentFilters{},
		Page:    99,
		Size:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Empty(t, resp.Items)
}

func TestListIncidents_DefaultsPageSize(t *testing.T) {
	repo := repository.NewMemoryIncidentsRepo()
	svc := NewIncidentService(repo, zap.NewNop())

	resp, err := svc.ListIncidents(context.Background(), ListIncidentsRequest{Page: -1, Size: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 50, resp.Size)
}

func TestDeleteAll(t *testing.T) {
	repo := repository.NewMemoryIncidentsRepo()
	seedStatsIncident(t, repo, "C-1", "Open", "High", domain.SeverityBlue, domain.DurationMetrics{})
	seedStatsIncident(t, repo, "C-2", "Open", "High", domain.SeverityBlue, domain.DurationMetrics{})

	svc := NewIncidentService(repo, zap.NewNop())
	deleted, err := svc.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCleanDuplicates(t *testing.T) {
	repo := repository.NewMemoryIncidentsRepo()
	start := sql.NullTime{Time: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), Valid: true}

	// 稳定主键之前的历史数据：同 (case, start) 不同 id
	first := &domain.IncidentRecord{
		ID: "legacy-1", CaseNumber: "C-1", Severity: domain.SeverityBlue,
		StartTime: start, ImportedAt: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
	}
	second := &domain.IncidentRecord{
		ID: "legacy-2", CaseNumber: "C-1", Severity: domain.SeverityBlue,
		StartTime: start, ImportedAt: time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
	}
	other := &domain.IncidentRecord{
		ID: "legacy-3", CaseNumber: "C-2", Severity: domain.SeverityBlue,
		StartTime: start, ImportedAt: time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Put(context.Background(), first))
	require.NoError(t, repo.Put(context.Background(), second))
	require.NoError(t, repo.Put(context.Background(), other))

	svc := NewIncidentService(repo, zap.NewNop())
	removed, err := svc.CleanDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	recs, err := repo.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	// 留下最早导入的那条
	for _, rec := range recs {
		assert.NotEqual(t, "legacy-2", rec.ID)
	}
}

func TestCleanDuplicates_NoDuplicates(t *testing.T) {
	repo := repository.NewMemoryIncidentsRepo()
	seedStatsIncident(t, repo, "C-1", "Open", "High", domain.SeverityBlue, domain.DurationMetrics{})

	svc := NewIncidentService(repo, zap.NewNop())
	removed, err := svc.CleanDuplicates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}
