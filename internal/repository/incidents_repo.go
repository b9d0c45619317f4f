package repository

import (
	"context"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// IncidentFilters 列表查询条件
type IncidentFilters struct {
	Search   string // case_number/site/problem 模糊
	Status   string
	Priority string
	Site     string
	Severity string
	DateFrom string // start_time 闭区间，RFC3339
	DateTo   string
}

// IncidentsRepo 工单存储协作方。引擎只依赖这个接口；
// put/bulkPut 以 id 为 upsert 键，重复导入与重算都是幂等替换。
type IncidentsRepo interface {
	Put(ctx context.Context, rec *domain.IncidentRecord) error
	BulkPut(ctx context.Context, recs []*domain.IncidentRecord) error
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteByBatch(ctx context.Context, batchID string) (int, error)
	DeleteAll(ctx context.Context) (int, error)
	ScanAll(ctx context.Context) ([]*domain.IncidentRecord, error)
	List(ctx context.Context, filters IncidentFilters, page, size int) ([]*domain.IncidentRecord, int, error)
}
