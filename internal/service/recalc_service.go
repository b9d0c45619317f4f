package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/domain"
	"github.com/igmahardika/antic-sub002/internal/ingest"
	"github.com/igmahardika/antic-sub002/internal/repository"
)

// RecalcService 指标重算服务接口
type RecalcService interface {
	// Recalculate 全量重算派生指标，返回重算的记录数
	Recalculate(ctx context.Context) (int, error)
}

// recalcService 指标重算服务实现
type recalcService struct {
	incidents repository.IncidentsRepo
	caps      ingest.Caps
	chunkSize int
	logger    *zap.Logger
}

// NewRecalcService 创建重算服务
func NewRecalcService(incidents repository.IncidentsRepo, caps ingest.Caps, chunkSize int, logger *zap.Logger) RecalcService {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &recalcService{incidents: incidents, caps: caps, chunkSize: chunkSize, logger: logger}
}

// Recalculate 两遍式重算：第一遍把所有指标清零写回，第二遍重新装配
// 并写回。两遍之间没有事务衔接，中途失败留下的零值态可以通过再跑
// 一次恢复（装配是记录的纯函数）。
func (s *recalcService) Recalculate(ctx context.Context) (int, error) {
	records, err := s.incidents.ScanAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to scan incidents: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	// pass 1: 清零
	for _, rec := range records {
		rec.Metrics = domain.DurationMetrics{}
	}
	if err := s.bulkPutChunked(ctx, records); err != nil {
		return 0, fmt.Errorf("zeroing pass failed: %w", err)
	}

	// pass 2: 重建
	for _, rec := range records {
		rec.Metrics = ingest.AssembleMetrics(rec, s.caps)
	}
	if err := s.bulkPutChunked(ctx, records); err != nil {
		return 0, fmt.Errorf("rebuild pass failed: %w", err)
	}

	s.logger.Info("durations recalculated", zap.Int("fixed_count", len(records)))
	return len(records), nil
}

func (s *recalcService) bulkPutChunked(ctx context.Context, recs []*domain.IncidentRecord) error {
	for start := 0; start < len(recs); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		if err := s.incidents.BulkPut(ctx, recs[start:end]); err != nil {
			return fmt.Errorf("chunk %d-%d: %w", start+1, end, err)
		}
	}
	return nil
}
