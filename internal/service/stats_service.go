package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/domain"
	"github.com/igmahardika/antic-sub002/internal/repository"
	"github.com/igmahardika/antic-sub002/internal/store"
)

// statsCacheKey / statsCacheTTL 统计缓存参数
const (
	statsCachePrefix = "incidents:"
	statsCacheKey    = statsCachePrefix + "stats"
	statsCacheTTL    = 5 * time.Minute
)

// StatsService 统计服务接口
type StatsService interface {
	// GetStats 返回全量统计，优先走缓存
	GetStats(ctx context.Context) (*IncidentStats, error)
	// Invalidate 导入/删除/重算后清缓存
	Invalidate(ctx context.Context)
}

// IncidentStats 工单统计
type IncidentStats struct {
	Total             int            `json:"total"`
	OpenCount         int            `json:"open_count"`
	ClosedCount       int            `json:"closed_count"`
	AvgNetDurationMin float64        `json:"avg_net_duration_min"` // MTTR
	AvgVendorMin      float64        `json:"avg_vendor_min"`
	PauseRatio        float64        `json:"pause_ratio"` // sum(pause) / sum(total)
	ByPriority        map[string]int `json:"by_priority"`
	BySite            map[string]int `json:"by_site"`
	ByClassification  map[string]int `json:"by_classification"`
	BySeverity        map[string]int `json:"by_severity"`
	GeneratedAt       string         `json:"generated_at"`
}

// statsService 统计服务实现
type statsService struct {
	incidents repository.IncidentsRepo
	kv        store.KV
	logger    *zap.Logger
}

// NewStatsService 创建统计服务。kv 可为 nil（无 Redis 时直算）。
func NewStatsService(incidents repository.IncidentsRepo, kv store.KV, logger *zap.Logger) StatsService {
	return &statsService{incidents: incidents, kv: kv, logger: logger}
}

// GetStats 返回统计，缓存未命中时重算并回填
func (s *statsService) GetStats(ctx context.Context) (*IncidentStats, error) {
	if s.kv != nil {
		cached, err := s.kv.Get(ctx, statsCacheKey)
		if err == nil {
			var stats IncidentStats
			if jsonErr := json.Unmarshal([]byte(cached), &stats); jsonErr == nil {
				return &stats, nil
			}
		} else if err != store.ErrMiss {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	records, err := s.incidents.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan incidents: %w", err)
	}
	stats := computeStats(records)

	if s.kv != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.kv.Set(ctx, statsCacheKey, string(payload), statsCacheTTL); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// Invalidate 清除 incidents: 前缀下的全部缓存键
func (s *statsService) Invalidate(ctx context.Context) {
	if s.kv == nil {
		return
	}
	keys, err := s.kv.ScanKeys(ctx, statsCachePrefix+"*")
	if err != nil {
		s.logger.Warn("stats cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.kv.Del(ctx, keys...); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

// computeStats 从全量记录推导统计
func computeStats(records []*domain.IncidentRecord) *IncidentStats {
	stats := &IncidentStats{
		ByPriority:       map[string]int{},
		BySite:           map[string]int{},
		ByClassification: map[string]int{},
		BySeverity:       map[string]int{},
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
	}
	stats.Total = len(records)

	var sumNet, sumVendor, sumPause, sumTotal float64
	var closedNet int
	for _, rec := range records {
		status := ""
		if rec.Status.Valid {
			status = strings.ToLower(strings.TrimSpace(rec.Status.String))
		}
		if status == "closed" || status == "done" || status == "resolved" {
			stats.ClosedCount++
			// MTTR 只统计已关闭的工单
			sumNet += rec.Metrics.NetDurationMin
			closedNet++
		} else {
			stats.OpenCount++
		}

		sumVendor += rec.Metrics.VendorDurationMin
		sumPause += rec.Metrics.TotalPauseMin
		sumTotal += rec.Metrics.TotalDurationMin

		bump(stats.ByPriority, rec.Priority.String, rec.Priority.Valid)
		bump(stats.BySite, rec.Site.String, rec.Site.Valid)
		bump(stats.ByClassification, rec.Classification.String, rec.Classification.Valid)
		stats.BySeverity[string(rec.Severity)]++
	}

	if closedNet > 0 {
		stats.AvgNetDurationMin = round2(sumNet / float64(closedNet))
	}
	if stats.Total > 0 {
		stats.AvgVendorMin = round2(sumVendor / float64(stats.Total))
	}
	if sumTotal > 0 {
		stats.PauseRatio = round2(sumPause / sumTotal)
	}
	return stats
}

func bump(m map[string]int, key string, valid bool) {
	if !valid || key == "" {
		key = "unknown"
	}
	m[key]++
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
