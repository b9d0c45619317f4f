package ingest

import (
	"database/sql"
	"time"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// Caps 时长上限策略（分钟）
type Caps struct {
	TotalMinutes float64 // 端到端跨度与供应商时长
	PauseMinutes float64 // 单个暂停窗口
}

// DefaultCaps 默认策略值
func DefaultCaps() Caps {
	return Caps{TotalMinutes: DefaultTotalCapMinutes, PauseMinutes: DefaultPauseCapMinutes}
}

// AssembleMetrics 由记录的时间字段派生完整指标块。纯函数：
// 相同输入必得相同输出，重算永不漂移。
//
// start 缺失时记录尚不可用：五项指标全为 0，记录照常持久化。
// 计算次序：
//  1. total    = Minutes(start, end)
//  2. vendor   = Minutes(vendorStart, end)（vendorStart 缺失为 0）
//  3. pause    = Σ Minutes(各暂停窗口)
//  4. netVendor = max(vendor − overlap(暂停, 供应商窗口), 0)
//     只扣供应商窗口内的暂停，无条件扣 pause 总量会多扣
//  5. net      = max(total − pause, 0)
func AssembleMetrics(rec *domain.IncidentRecord, caps Caps) domain.DurationMetrics {
	var m domain.DurationMetrics
	if !rec.StartTime.Valid {
		return m
	}

	start := nullTime(rec.StartTime)
	end := nullTime(rec.EndTime)
	vendorStart := nullTime(rec.VendorStartTime)

	windows := []PauseWindow{
		{Start: nullTime(rec.Pause1Start), End: nullTime(rec.Pause1End)},
		{Start: nullTime(rec.Pause2Start), End: nullTime(rec.Pause2End)},
	}

	m.TotalDurationMin = Minutes(start, end, caps.TotalMinutes)
	m.VendorDurationMin = Minutes(vendorStart, end, caps.TotalMinutes)
	m.TotalPauseMin = TotalPauseMinutes(windows, caps.PauseMinutes)

	overlap := VendorOverlapMinutes(windows, vendorStart, end)
	m.NetVendorDurationMin = round2(clampZero(m.VendorDurationMin - overlap))
	m.NetDurationMin = round2(clampZero(m.TotalDurationMin - m.TotalPauseMin))
	return m
}

func nullTime(v sql.NullTime) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}

func clampZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
