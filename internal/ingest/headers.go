package ingest

import (
	"errors"
	"strings"
)

// ErrMissingRequiredColumn 表级错误：缺少必需的判别列（severity/NCAL）。
// 该 sheet 被跳过，导入继续处理其余 sheet。
var ErrMissingRequiredColumn = errors.New("missing required column")

// 规范字段名。表头解析后行数据一律通过这些键取值。
const (
	FieldPriority       = "priority"
	FieldSite           = "site"
	FieldCaseNumber     = "no case"
	FieldSeverity       = "ncal"
	FieldStatus         = "status"
	FieldLevel          = "level"
	FieldVendor         = "ts"
	FieldStart          = "start"
	FieldVendorStart    = "start escalation vendor"
	FieldEnd            = "end"
	FieldProblem        = "problem"
	FieldRootCause      = "penyebab"
	FieldClassification = "klasifikasi gangguan"
	FieldPause1Start    = "start pause"
	FieldPause1End      = "end pause"
	FieldPause2Start    = "start pause 2"
	FieldPause2End      = "end pause 2"
)

// headerSynonyms 规范字段 → 已规范化的同义词表。
// 匹配必须整串相等，不允许子串包含：历史上 "duration" 子串匹配
// 会误命中 "duration vendor" 列。
var headerSynonyms = map[string][]string{
	FieldPriority:   {"priority", "prio", "prioritas", "level priority"},
	FieldSite:       {"site", "lokasi", "lokasi site", "nama site", "site name"},
	FieldCaseNumber: {"no case", "nocase", "case", "no kasus", "kasus", "case number", "nomor case", "no case number"},
	FieldSeverity:   {"ncal", "ncals", "ncal level"},
	FieldStatus:     {"status", "status gangguan", "status case"},
	FieldLevel:      {"level", "level gangguan", "level case"},
	FieldVendor:     {"ts", "technical support", "vendor", "technical support vendor", "vendor ts"},
	FieldStart:      {"start", "mulai", "start time", "waktu mulai", "start gangguan"},
	FieldVendorStart: {
		"start escalation vendor", "mulai eskalasi vendor", "mulai vendor", "vendor start",
		"start escalation", "escalation start", "mulai eskalasi", "start vendor", "vendor start time",
	},
	FieldEnd:            {"end", "selesai", "end time", "waktu selesai", "end gangguan"},
	FieldProblem:        {"problem", "masalah", "problem description", "deskripsi masalah"},
	FieldRootCause:      {"penyebab", "cause", "root cause", "penyebab gangguan"},
	FieldClassification: {"klasifikasi gangguan", "klasifikasi", "classification", "jenis gangguan"},
	FieldPause1Start:    {"start pause", "pause", "jeda", "jeda 1", "pause start", "mulai jeda", "start pause 1"},
	FieldPause1End:      {"end pause", "restart", "lanjut", "lanjut 1", "pause end", "selesai jeda", "end pause 1", "resume"},
	FieldPause2Start:    {"start pause 2", "pause 2", "pause2", "jeda 2", "pause start 2", "mulai jeda 2"},
	FieldPause2End:      {"end pause 2", "restart 2", "restart2", "lanjut 2", "pause end 2", "selesai jeda 2", "resume 2"},
}

// canonicalFields 固定遍历次序（map 遍历顺序不稳定）
var canonicalFields = []string{
	FieldPriority, FieldSite, FieldCaseNumber, FieldSeverity, FieldStatus,
	FieldLevel, FieldVendor, FieldStart, FieldVendorStart, FieldEnd,
	FieldProblem, FieldRootCause, FieldClassification,
	FieldPause1Start, FieldPause1End, FieldPause2Start, FieldPause2End,
}

// NormalizeHeader 表头字符串规范化：去 BOM、trim、小写、
// 分隔符（/ _ -）与连续空白折叠为单个空格。
func NormalizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\uFEFF", "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '_', '-':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// FindHeaderRow 在前 maxScan 行里找真正的表头行：逐行统计命中的
// 规范字段数，取得分最高的一行（容忍表头上方的标题行/空行）。
func FindHeaderRow(rows [][]string, maxScan int) int {
	if maxScan <= 0 {
		maxScan = 10
	}
	bestIdx, bestScore := 0, -1
	limit := maxScan
	if len(rows) < limit {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		cells := make([]string, len(rows[i]))
		for j, c := range rows[i] {
			cells[j] = NormalizeHeader(c)
		}
		score := 0
		for _, field := range canonicalFields {
			if matchColumn(cells, field) >= 0 {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

// HeaderIndex 规范字段名 → 列下标
type HeaderIndex map[string]int

// ResolveHeaders 把原始表头行映射为规范字段下标。
// severity 列缺失时返回 ErrMissingRequiredColumn。
func ResolveHeaders(headerRow []string) (HeaderIndex, error) {
	cells := make([]string, len(headerRow))
	for i, c := range headerRow {
		cells[i] = NormalizeHeader(c)
	}
	idx := make(HeaderIndex, len(canonicalFields))
	for _, field := range canonicalFields {
		if col := matchColumn(cells, field); col >= 0 {
			idx[field] = col
		}
	}
	if _, ok := idx[FieldSeverity]; !ok {
		return nil, ErrMissingRequiredColumn
	}
	return idx, nil
}

// Unmapped 返回未命中的规范字段（用于导入日志告警）
func (h HeaderIndex) Unmapped() []string {
	var missing []string
	for _, field := range canonicalFields {
		if _, ok := h[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

// Pick 按规范字段取行内单元格，越界/未映射/空白返回 ""。
func (h HeaderIndex) Pick(row []string, field string) string {
	col, ok := h[field]
	if !ok || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func matchColumn(normalizedCells []string, field string) int {
	for _, alias := range headerSynonyms[field] {
		for col, cell := range normalizedCells {
			if cell == alias {
				return col
			}
		}
	}
	return -1
}
