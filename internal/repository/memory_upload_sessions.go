package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// MemoryUploadSessionsRepo: DB 未就绪时的会话存储
type MemoryUploadSessionsRepo struct {
	mu       sync.RWMutex
	sessions map[string]*domain.UploadSession
}

func NewMemoryUploadSessionsRepo() *MemoryUploadSessionsRepo {
	return &MemoryUploadSessionsRepo{sessions: map[string]*domain.UploadSession{}}
}

func (r *MemoryUploadSessionsRepo) Create(_ context.Context, s *domain.UploadSession) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *MemoryUploadSessionsRepo) Finalize(_ context.Context, id string, fin SessionFinalize) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	s.Status = fin.Status
	s.RecordCount = fin.RecordCount
	s.SuccessCount = fin.SuccessCount
	s.ErrorCount = fin.ErrorCount
	s.FinalizedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	return nil
}

func (r *MemoryUploadSessionsRepo) List(_ context.Context, fileName, dataType string) ([]*domain.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*domain.UploadSession{}
	for _, s := range r.sessions {
		if s.RecordCount == 0 {
			continue
		}
		if fileName != "" && s.FileName != fileName {
			continue
		}
		if dataType != "" && s.DataType != dataType {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (r *MemoryUploadSessionsRepo) GetByFileName(_ context.Context, fileName, dataType string) (*domain.UploadSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.UploadSession
	for _, s := range r.sessions {
		if s.FileName != fileName || s.DataType != dataType {
			continue
		}
		if latest == nil || s.UploadedAt.After(latest.UploadedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrSessionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *MemoryUploadSessionsRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemoryUploadSessionsRepo) DeleteEmpty(_ context.Context, dataType string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		if s.RecordCount != 0 {
			continue
		}
		if dataType != "" && s.DataType != dataType {
			continue
		}
		delete(r.sessions, id)
		removed++
	}
	return removed, nil
}
