package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// PostgresIncidentsRepo 工单 Repository 实现（强类型）
type PostgresIncidentsRepo struct {
	db *sql.DB
}

// NewPostgresIncidentsRepo 创建工单 Repository
func NewPostgresIncidentsRepo(db *sql.DB) *PostgresIncidentsRepo {
	return &PostgresIncidentsRepo{db: db}
}

const incidentColumns = `
	id, case_number, priority, site, severity, status, level, vendor,
	start_time, end_time, vendor_start_time,
	pause1_start, pause1_end, pause2_start, pause2_end,
	problem, root_cause, classification,
	total_duration_min, vendor_duration_min, total_pause_min,
	net_vendor_duration_min, net_duration_min,
	batch_id, imported_at`

const upsertIncidentQuery = `
	INSERT INTO incidents (` + incidentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
	        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	ON CONFLICT (id) DO UPDATE SET
		case_number = EXCLUDED.case_number,
		priority = EXCLUDED.priority,
		site = EXCLUDED.site,
		severity = EXCLUDED.severity,
		status = EXCLUDED.status,
		level = EXCLUDED.level,
		vendor = EXCLUDED.vendor,
		start_time = EXCLUDED.start_time,
		end_time = EXCLUDED.end_time,
		vendor_start_time = EXCLUDED.vendor_start_time,
		pause1_start = EXCLUDED.pause1_start,
		pause1_end = EXCLUDED.pause1_end,
		pause2_start = EXCLUDED.pause2_start,
		pause2_end = EXCLUDED.pause2_end,
		problem = EXCLUDED.problem,
		root_cause = EXCLUDED.root_cause,
		classification = EXCLUDED.classification,
		total_duration_min = EXCLUDED.total_duration_min,
		vendor_duration_min = EXCLUDED.vendor_duration_min,
		total_pause_min = EXCLUDED.total_pause_min,
		net_vendor_duration_min = EXCLUDED.net_vendor_duration_min,
		net_duration_min = EXCLUDED.net_duration_min,
		batch_id = EXCLUDED.batch_id,
		imported_at = EXCLUDED.imported_at`

func incidentArgs(rec *domain.IncidentRecord) []any {
	return []any{
		rec.ID, rec.CaseNumber, rec.Priority, rec.Site, string(rec.Severity),
		rec.Status, rec.Level, rec.Vendor,
		rec.StartTime, rec.EndTime, rec.VendorStartTime,
		rec.Pause1Start, rec.Pause1End, rec.Pause2Start, rec.Pause2End,
		rec.Problem, rec.RootCause, rec.Classification,
		rec.Metrics.TotalDurationMin, rec.Metrics.VendorDurationMin,
		rec.Metrics.TotalPauseMin, rec.Metrics.NetVendorDurationMin,
		rec.Metrics.NetDurationMin,
		rec.BatchID, rec.ImportedAt,
	}
}

// Put 单条 upsert
func (r *PostgresIncidentsRepo) Put(ctx context.Context, rec *domain.IncidentRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("incident id is required")
	}
	if _, err := r.db.ExecContext(ctx, upsertIncidentQuery, incidentArgs(rec)...); err != nil {
		return fmt.Errorf("failed to upsert incident %s: %w", rec.ID, err)
	}
	return nil
}

// BulkPut 一个 chunk 在一个事务里顺序 upsert。
// 调用方（批量写入协调器）负责分块与失败后继续。
func (r *PostgresIncidentsRepo) BulkPut(ctx context.Context, recs []*domain.IncidentRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertIncidentQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, incidentArgs(rec)...); err != nil {
			return fmt.Errorf("failed to upsert incident %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// Count 记录总数
func (r *PostgresIncidentsRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Delete 按 id 删除
func (r *PostgresIncidentsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	return err
}

// DeleteByBatch 按来源批次删除，返回删除条数
func (r *PostgresIncidentsRepo) DeleteByBatch(ctx context.Context, batchID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incidents WHERE batch_id = $1`, batchID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteAll 清空工单表
func (r *PostgresIncidentsRepo) DeleteAll(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incidents`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ScanAll 全表扫描（重算驱动器使用）
func (r *PostgresIncidentsRepo) ScanAll(ctx context.Context) ([]*domain.IncidentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+incidentColumns+` FROM incidents ORDER BY imported_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// List 带过滤与分页的列表查询
func (r *PostgresIncidentsRepo) List(ctx context.Context, filters IncidentFilters, page, size int) ([]*domain.IncidentRecord, int, error) {
	where := []string{}
	args := []any{}
	argN := 1

	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(case_number ILIKE $%d OR site ILIKE $%d OR problem ILIKE $%d)", argN, argN, argN))
		args = append(args, "%"+filters.Search+"%")
		argN++
	}
	if filters.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", argN))
		args = append(args, filters.Status)
		argN++
	}
	if filters.Priority != "" {
		where = append(where, fmt.Sprintf("priority = $%d", argN))
		args = append(args, filters.Priority)
		argN++
	}
	if filters.Site != "" {
		where = append(where, fmt.Sprintf("site = $%d", argN))
		args = append(args, filters.Site)
		argN++
	}
	if filters.Severity != "" {
		where = append(where, fmt.Sprintf("severity = $%d", argN))
		args = append(args, filters.Severity)
		argN++
	}
	if filters.DateFrom != "" && filters.DateTo != "" {
		where = append(where, fmt.Sprintf("start_time BETWEEN $%d AND $%d", argN, argN+1))
		args = append(args, filters.DateFrom, filters.DateTo)
		argN += 2
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	args = append(args, size, (page-1)*size)

	query := `SELECT ` + incidentColumns + ` FROM incidents ` + whereClause +
		fmt.Sprintf(` ORDER BY start_time DESC NULLS LAST, id LIMIT $%d OFFSET $%d`, argN, argN+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := scanIncidents(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanIncidents(rows *sql.Rows) ([]*domain.IncidentRecord, error) {
	out := []*domain.IncidentRecord{}
	for rows.Next() {
		var rec domain.IncidentRecord
		var severity string
		if err := rows.Scan(
			&rec.ID, &rec.CaseNumber, &rec.Priority, &rec.Site, &severity,
			&rec.Status, &rec.Level, &rec.Vendor,
			&rec.StartTime, &rec.EndTime, &rec.VendorStartTime,
			&rec.Pause1Start, &rec.Pause1End, &rec.Pause2Start, &rec.Pause2End,
			&rec.Problem, &rec.RootCause, &rec.Classification,
			&rec.Metrics.TotalDurationMin, &rec.Metrics.VendorDurationMin,
			&rec.Metrics.TotalPauseMin, &rec.Metrics.NetVendorDurationMin,
			&rec.Metrics.NetDurationMin,
			&rec.BatchID, &rec.ImportedAt,
		); err != nil {
			return nil, err
		}
		rec.Severity = domain.Severity(severity)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
