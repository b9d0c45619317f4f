package ingest

import "time"

// PauseWindow 一个暂停区间；端点允许缺失（零值）。
type PauseWindow struct {
	Start time.Time
	End   time.Time
}

// TotalPauseMinutes 各窗口时长之和。窗口彼此独立求值，即使互相
// 重叠也不合并；无效/缺失窗口计 0。
func TotalPauseMinutes(windows []PauseWindow, capMinutes float64) float64 {
	var total float64
	for _, w := range windows {
		total += Minutes(w.Start, w.End, capMinutes)
	}
	return round2(total)
}

// VendorOverlapMinutes 各暂停窗口与供应商窗口 [vendorStart, end]
// 的交集分钟数之和。只有落在供应商介入窗口内的暂停才应从
// 供应商时长里扣除。
func VendorOverlapMinutes(windows []PauseWindow, vendorStart, end time.Time) float64 {
	if vendorStart.IsZero() || end.IsZero() {
		return 0
	}
	var total float64
	for _, w := range windows {
		total += Overlap(w.Start, w.End, vendorStart, end)
	}
	return round2(total)
}
