package domain

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"time"
)

// IncidentRecord 对应 incidents 表：一条从 Excel 导入的故障工单记录。
// 时间字段统一以 UTC 存储；durations 由 MetricAssembler 派生，整体替换。
type IncidentRecord struct {
	// 主键：sha1(case_number|start_time_iso)，内容寻址，重复导入时原地覆盖
	ID string `db:"id"`

	CaseNumber string         `db:"case_number"` // NOT NULL
	Priority   sql.NullString `db:"priority"`
	Site       sql.NullString `db:"site"`
	Severity   Severity       `db:"severity"` // NOT NULL（NCAL 枚举）
	Status     sql.NullString `db:"status"`
	Level      sql.NullInt64  `db:"level"`
	Vendor     sql.NullString `db:"vendor"` // TS / technical support 列

	StartTime       sql.NullTime `db:"start_time"`
	EndTime         sql.NullTime `db:"end_time"`
	VendorStartTime sql.NullTime `db:"vendor_start_time"` // start escalation vendor

	Pause1Start sql.NullTime `db:"pause1_start"`
	Pause1End   sql.NullTime `db:"pause1_end"`
	Pause2Start sql.NullTime `db:"pause2_start"`
	Pause2End   sql.NullTime `db:"pause2_end"`

	Problem        sql.NullString `db:"problem"`
	RootCause      sql.NullString `db:"root_cause"`
	Classification sql.NullString `db:"classification"`

	Metrics DurationMetrics // 展开为 5 个 *_min 列

	BatchID    string    `db:"batch_id"` // UploadSession.ID
	ImportedAt time.Time `db:"imported_at"`
}

// DurationMetrics 派生指标块，单位分钟（2 位小数），永远非负。
// 记录其它字段的纯函数：输入相同则输出必然相同。
type DurationMetrics struct {
	TotalDurationMin     float64 `db:"total_duration_min"`
	VendorDurationMin    float64 `db:"vendor_duration_min"`
	TotalPauseMin        float64 `db:"total_pause_min"`
	NetVendorDurationMin float64 `db:"net_vendor_duration_min"`
	NetDurationMin       float64 `db:"net_duration_min"`
}

// IncidentID 由 (caseNumber, startInstant) 派生稳定主键。
// start 缺失时以空串参与哈希：记录仍可持久化（指标为零）。
func IncidentID(caseNumber string, start sql.NullTime) string {
	iso := ""
	if start.Valid {
		iso = start.Time.UTC().Format(time.RFC3339)
	}
	sum := sha1.Sum([]byte(caseNumber + "|" + iso))
	return hex.EncodeToString(sum[:])
}

// PauseWindow 返回第 n 个暂停窗口（n 为 0 或 1）。
func (r *IncidentRecord) PauseWindow(n int) (start, end sql.NullTime) {
	if n == 0 {
		return r.Pause1Start, r.Pause1End
	}
	return r.Pause2Start, r.Pause2End
}

// ToJSON 转换为 HTTP 响应格式
func (r *IncidentRecord) ToJSON() map[string]any {
	m := map[string]any{
		"id":                      r.ID,
		"case_number":             r.CaseNumber,
		"severity":                string(r.Severity),
		"batch_id":                r.BatchID,
		"imported_at":             r.ImportedAt.UTC().Format(time.RFC3339),
		"total_duration_min":      r.Metrics.TotalDurationMin,
		"vendor_duration_min":     r.Metrics.VendorDurationMin,
		"total_pause_min":         r.Metrics.TotalPauseMin,
		"net_vendor_duration_min": r.Metrics.NetVendorDurationMin,
		"net_duration_min":        r.Metrics.NetDurationMin,
	}
	putNullString(m, "priority", r.Priority)
	putNullString(m, "site", r.Site)
	putNullString(m, "status", r.Status)
	putNullString(m, "vendor", r.Vendor)
	putNullString(m, "problem", r.Problem)
	putNullString(m, "root_cause", r.RootCause)
	putNullString(m, "classification", r.Classification)
	if r.Level.Valid {
		m["level"] = r.Level.Int64
	}
	putNullTime(m, "start_time", r.StartTime)
	putNullTime(m, "end_time", r.EndTime)
	putNullTime(m, "vendor_start_time", r.VendorStartTime)
	putNullTime(m, "pause1_start", r.Pause1Start)
	putNullTime(m, "pause1_end", r.Pause1End)
	putNullTime(m, "pause2_start", r.Pause2Start)
	putNullTime(m, "pause2_end", r.Pause2End)
	return m
}

func putNullString(m map[string]any, key string, v sql.NullString) {
	if v.Valid {
		m[key] = v.String
	}
}

func putNullTime(m map[string]any, key string, v sql.NullTime) {
	if v.Valid {
		m[key] = v.Time.UTC().Format(time.RFC3339)
	}
}
