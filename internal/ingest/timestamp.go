package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Excel（Windows）序列日期基准：1899-12-30。
// 用 25569（1970-01-01 的序列号）折算等价于该基准，并保留
// Lotus 1-2-3 的 1900 闰年错（序列号 60 之前的历史数据不回调）。
const excelUnixEpochSerial = 25569

// 序列日期的合理取值范围，防止把普通数字列当成日期
const (
	minExcelSerial = 1000
	maxExcelSerial = 100000
)

var (
	// DD/MM/YYYY 与 DD-MM-YYYY，时间部分可选，秒可选，支持 2 位年份
	reDMY = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})(?:[ T](\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)
	// YYYY-MM-DD，时间部分可选
	reYMD = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T](\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)
)

// verboseLayouts 冗长本地化字符串的兜底布局（按字面量重建，仍是 UTC）
var verboseLayouts = []string{
	"2 January 2006 15:04:05",
	"2 January 2006 15:04",
	"2 January 2006",
	"January 2, 2006 15:04:05",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Mon Jan 2 15:04:05 2006",
	"Mon, 2 Jan 2006 15:04:05",
}

// Instant 把异构的单元格值规范化为 UTC 时刻。
//
// 统一采用"字面量提取"：无论输入是原生日期值、Excel 序列数还是
// 字符串，都取其表面的年月日时分秒在 UTC 下重建，绝不经过
// 时区换算（泛化解析会把 "15/01 00:30" 悄悄挪到前一天）。
// 解析失败返回 ok=false（下游按字段缺失处理），从不报错。
func Instant(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		// 按原生值的本地日历/时钟分量重建，不做时区移位
		y, mo, d := x.Date()
		h, mi, s := x.Clock()
		return time.Date(y, mo, d, h, mi, s, 0, time.UTC), true
	case float64:
		return fromExcelSerial(x)
	case int:
		return fromExcelSerial(float64(x))
	case int64:
		return fromExcelSerial(float64(x))
	case string:
		return parseInstantString(x)
	}
	return time.Time{}, false
}

func fromExcelSerial(serial float64) (time.Time, bool) {
	if serial < minExcelSerial || serial >= maxExcelSerial || math.IsNaN(serial) {
		return time.Time{}, false
	}
	sec := math.Round((serial - excelUnixEpochSerial) * 86400)
	return time.Unix(int64(sec), 0).UTC(), true
}

func parseInstantString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// 数字字符串：excelize RawCellValue 模式下日期单元格以序列数出现
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return fromExcelSerial(n)
	}

	// 纯 ISO（带 T/Z）
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}

	if m := reDMY.FindStringSubmatch(s); m != nil {
		return buildInstant(m[3], m[2], m[1], m[4], m[5], m[6])
	}
	if m := reYMD.FindStringSubmatch(s); m != nil {
		return buildInstant(m[1], m[2], m[3], m[4], m[5], m[6])
	}

	// 冗长本地化写法，如 "15 January 2024 08:00"
	for _, layout := range verboseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// buildInstant 按字面分量在 UTC 下重建时刻，非法分量返回 ok=false。
func buildInstant(year, month, day, hour, minute, second string) (time.Time, bool) {
	y := atoi(year)
	if y < 100 {
		// 2 位年份：<50 视为 20xx，其余 19xx
		if y < 50 {
			y += 2000
		} else {
			y += 1900
		}
	}
	mo, d := atoi(month), atoi(day)
	h, mi, s := atoi(hour), atoi(minute), atoi(second)
	if mo < 1 || mo > 12 || d < 1 || d > 31 || h < 0 || h > 23 || mi < 0 || mi > 59 || s < 0 || s > 59 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC)
	// time.Date 会把 31/02 之类归一化到下个月，视为非法输入
	if int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
