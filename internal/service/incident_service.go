package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/igmahardika/antic-sub002/internal/domain"
	"github.com/igmahardika/antic-sub002/internal/repository"
)

// IncidentService 工单查询与维护服务接口
type IncidentService interface {
	// ListIncidents 条件查询 + 分页
	ListIncidents(ctx context.Context, req ListIncidentsRequest) (*ListIncidentsResponse, error)
	// DeleteAll 清空工单表，返回删除条数
	DeleteAll(ctx context.Context) (int, error)
	// CleanDuplicates 按 (case_number, start_time) 去重，保留最早导入的一条。
	// 稳定主键上线后的新数据不会产生重复，这是针对历史数据的维护操作。
	CleanDuplicates(ctx context.Context) (int, error)
	// ExportAll 导出全量记录（xlsx 下载用）
	ExportAll(ctx context.Context) ([]*domain.IncidentRecord, error)
}

// incidentService 工单服务实现
type incidentService struct {
	incidents repository.IncidentsRepo
	logger    *zap.Logger
}

// NewIncidentService 创建工单服务
func NewIncidentService(incidents repository.IncidentsRepo, logger *zap.Logger) IncidentService {
	return &incidentService{incidents: incidents, logger: logger}
}

// ListIncidentsRequest 列表请求
type ListIncidentsRequest struct {
	Filters repository.IncidentFilters
	Page    int
	Size    int
}

// ListIncidentsResponse 列表响应
type ListIncidentsResponse struct {
	Items []map[string]any `json:"items"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Size  int              `json:"size"`
}

// ListIncidents 条件查询
func (s *incidentService) ListIncidents(ctx context.Context, req ListIncidentsRequest) (*ListIncidentsResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Size < 1 || req.Size > 1000 {
		req.Size = 50
	}
	records, total, err := s.incidents.List(ctx, req.Filters, req.Page, req.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.ToJSON())
	}
	return &ListIncidentsResponse{Items: items, Total: total, Page: req.Page, Size: req.Size}, nil
}

// DeleteAll 清空工单表
func (s *incidentService) DeleteAll(ctx context.Context) (int, error) {
	deleted, err := s.incidents.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete incidents: %w", err)
	}
	s.logger.Info("all incidents deleted", zap.Int("count", deleted))
	return deleted, nil
}

// CleanDuplicates 按 (case_number, start_time) 分组去重
func (s *incidentService) CleanDuplicates(ctx context.Context) (int, error) {
	records, err := s.incidents.ScanAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to scan incidents: %w", err)
	}

	keep := map[string]*domain.IncidentRecord{}
	removed := 0
	for _, rec := range records {
		key := dedupeKey(rec)
		first, ok := keep[key]
		if !ok {
			keep[key] = rec
			continue
		}
		victim := rec
		if rec.ImportedAt.Before(first.ImportedAt) {
			victim = first
			keep[key] = rec
		}
		if err := s.incidents.Delete(ctx, victim.ID); err != nil {
			return removed, fmt.Errorf("failed to delete duplicate %s: %w", victim.ID, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("duplicate incidents removed", zap.Int("count", removed))
	}
	return removed, nil
}

// ExportAll 全量导出
func (s *incidentService) ExportAll(ctx context.Context) ([]*domain.IncidentRecord, error) {
	return s.incidents.ScanAll(ctx)
}

func dedupeKey(rec *domain.IncidentRecord) string {
	iso := ""
	if rec.StartTime.Valid {
		iso = rec.StartTime.Time.UTC().Format(time.RFC3339)
	}
	return rec.CaseNumber + "|" + iso
}
