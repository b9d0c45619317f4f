package ingest

import (
	"math"
	"time"
)

// 时长上限的默认策略值，单位分钟。上限是参数而非常量：
// 暂停窗口用短上限、端到端工单跨度用长上限。
const (
	DefaultTotalCapMinutes = 7 * 24 * 60 // 一周
	DefaultPauseCapMinutes = 24 * 60     // 一天
)

// Minutes 计算两个时刻间的分钟数（2 位小数）。
// 任一时刻缺失（零值）或 end < start 返回 0；超过 capMinutes 截断
// 为 capMinutes：录入错误被限幅而不是丢弃整条记录。
func Minutes(start, end time.Time, capMinutes float64) float64 {
	if start.IsZero() || end.IsZero() {
		return 0
	}
	d := end.Sub(start).Minutes()
	if d <= 0 {
		return 0
	}
	if capMinutes > 0 && d > capMinutes {
		d = capMinutes
	}
	return round2(d)
}

// Overlap 两个区间交集的分钟数：max(0, min(aEnd,bEnd) − max(aStart,bStart))。
// 任一端点缺失按无交集处理。
func Overlap(aStart, aEnd, bStart, bEnd time.Time) float64 {
	if aStart.IsZero() || aEnd.IsZero() || bStart.IsZero() || bEnd.IsZero() {
		return 0
	}
	s := aStart
	if bStart.After(s) {
		s = bStart
	}
	e := aEnd
	if bEnd.Before(e) {
		e = bEnd
	}
	d := e.Sub(s).Minutes()
	if d <= 0 {
		return 0
	}
	return round2(d)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
