package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// MemoryIncidentsRepo: 用于 DB 未就绪时的联测与单元测试。
// 语义与 Postgres 实现对齐：id 为 upsert 键，last write wins。
type MemoryIncidentsRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.IncidentRecord

	// FailBulkPut 让第 n 次（1-based）BulkPut 失败，测试 chunk
	// 级 best-effort 行为用
	FailBulkPut map[int]bool
	bulkCalls   int
}

func NewMemoryIncidentsRepo() *MemoryIncidentsRepo {
	return &MemoryIncidentsRepo{records: map[string]*domain.IncidentRecord{}}
}

// BulkPutCalls 已发生的 BulkPut 次数
func (r *MemoryIncidentsRepo) BulkPutCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bulkCalls
}

func (r *MemoryIncidentsRepo) Put(_ context.Context, rec *domain.IncidentRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("incident id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *MemoryIncidentsRepo) BulkPut(_ context.Context, recs []*domain.IncidentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkCalls++
	if r.FailBulkPut[r.bulkCalls] {
		return fmt.Errorf("simulated bulk put failure on call %d", r.bulkCalls)
	}
	for _, rec := range recs {
		if rec == nil || rec.ID == "" {
			continue
		}
		cp := *rec
		r.records[rec.ID] = &cp
	}
	return nil
}

func (r *MemoryIncidentsRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

func (r *MemoryIncidentsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *MemoryIncidentsRepo) DeleteByBatch(_ context.Context, batchID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, rec := range r.records {
		if rec.BatchID == batchID {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryIncidentsRepo) DeleteAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.records)
	r.records = map[string]*domain.IncidentRecord{}
	return n, nil
}

func (r *MemoryIncidentsRepo) ScanAll(_ context.Context) ([]*domain.IncidentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.IncidentRecord, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryIncidentsRepo) List(ctx context.Context, filters IncidentFilters, page, size int) ([]*domain.IncidentRecord, int, error) {
	all, _ := r.ScanAll(ctx)
	filtered := make([]*domain.IncidentRecord, 0, len(all))
	for _, rec := range all {
		if !matchIncident(rec, filters) {
			continue
		}
		filtered = append(filtered, rec)
	}
	sort.Slice(filtered, func(i, j int) bool {
		a, b := filtered[i], filtered[j]
		if a.StartTime.Valid != b.StartTime.Valid {
			return a.StartTime.Valid
		}
		if a.StartTime.Valid && !a.StartTime.Time.Equal(b.StartTime.Time) {
			return a.StartTime.Time.After(b.StartTime.Time)
		}
		return a.ID < b.ID
	})

	total := len(filtered)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	lo := (page - 1) * size
	if lo > total {
		lo = total
	}
	hi := lo + size
	if hi > total {
		hi = total
	}
	return filtered[lo:hi], total, nil
}

func matchIncident(rec *domain.IncidentRecord, f IncidentFilters) bool {
	if f.Status != "" && (!rec.Status.Valid || rec.Status.String != f.Status) {
		return false
	}
	if f.Priority != "" && (!rec.Priority.Valid || rec.Priority.String != f.Priority) {
		return false
	}
	if f.Site != "" && (!rec.Site.Valid || rec.Site.String != f.Site) {
		return false
	}
	if f.Severity != "" && string(rec.Severity) != f.Severity {
		return false
	}
	if f.DateFrom != "" {
		from, err := time.Parse(time.RFC3339, f.DateFrom)
		if err != nil || !rec.StartTime.Valid || rec.StartTime.Time.Before(from) {
			return false
		}
	}
	if f.DateTo != "" {
		to, err := time.Parse(time.RFC3339, f.DateTo)
		if err != nil || !rec.StartTime.Valid || rec.StartTime.Time.After(to) {
			return false
		}
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hit := strings.Contains(strings.ToLower(rec.CaseNumber), q) ||
			(rec.Site.Valid && strings.Contains(strings.ToLower(rec.Site.String), q)) ||
			(rec.Problem.Valid && strings.Contains(strings.ToLower(rec.Problem.String), q))
		if !hit {
			return false
		}
	}
	return true
}
