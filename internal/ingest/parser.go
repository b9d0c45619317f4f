package ingest

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/igmahardika/antic-sub002/internal/domain"
)

// ParseResult 一个工作簿解析完成后的产出。
// Records 已带派生指标，但 ID/BatchID/ImportedAt 由批量写入协调器补齐。
type ParseResult struct {
	Records     []*domain.IncidentRecord
	Errors      []string
	SkippedRows int
	TotalRows   int // 已处理 sheet 的数据行总数（不含被跳过的 sheet）
}

// maxErrorMessages 限制 errors 数组规模（源表动辄上万行）
const maxErrorMessages = 200

// ParseWorkbook 解析 xlsx 工作簿的所有 sheet 为工单记录。
//
// 容错模型：没有任何条件中止整个导入。缺 NCAL 列跳过该 sheet；
// 时间戳解析失败按字段缺失处理；NCAL 枚举外的行整行拒绝并记入
// errors；全空行计入 skipped。
func ParseWorkbook(r io.Reader, caps Caps) (*ParseResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	res := &ParseResult{}
	for _, sheetName := range f.GetSheetList() {
		// RawCellValue：日期单元格拿到序列数而不是按单元格格式
		// 渲染后的本地化字符串，交给 Instant 统一归一化
		rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
		if err != nil {
			res.appendError(fmt.Sprintf(`sheet "%s": failed to read rows: %v`, sheetName, err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		headerIdx := FindHeaderRow(rows, 10)
		idx, err := ResolveHeaders(rows[headerIdx])
		if err != nil {
			res.appendError(fmt.Sprintf(`sheet "%s": %v (ncal)`, sheetName, err))
			continue
		}

		data := rows[headerIdx+1:]
		res.TotalRows += len(data)

		for i, row := range data {
			rowNum := headerIdx + i + 2 // 1-based，含表头
			rec, skip, rowErr := parseRow(idx, row, caps)
			if rowErr != "" {
				res.appendError(fmt.Sprintf(`row %d in "%s": %s`, rowNum, sheetName, rowErr))
				continue
			}
			if skip {
				res.SkippedRows++
				continue
			}
			if rec.CaseNumber == "" {
				// 兜底：site，再不行用合成键，行仍有稳定身份
				if rec.Site.Valid {
					rec.CaseNumber = rec.Site.String
				} else {
					rec.CaseNumber = fmt.Sprintf("ROW-%s-%d", sheetName, rowNum)
				}
			}
			res.Records = append(res.Records, rec)
		}
	}
	return res, nil
}

// parseRow 单行 → 记录。返回 (记录, 是否空行跳过, 行级错误)。
func parseRow(idx HeaderIndex, row []string, caps Caps) (*domain.IncidentRecord, bool, string) {
	if isEmptyRow(idx, row) {
		return nil, true, ""
	}

	rawSeverity := idx.Pick(row, FieldSeverity)
	severity, ok := domain.ParseSeverity(rawSeverity)
	if !ok {
		// severity 驱动下游 SLA 策略，脏值不入库
		return nil, false, fmt.Sprintf("invalid severity %q", rawSeverity)
	}

	rec := &domain.IncidentRecord{
		CaseNumber:     idx.Pick(row, FieldCaseNumber),
		Severity:       severity,
		Priority:       nullString(idx.Pick(row, FieldPriority)),
		Site:           nullString(idx.Pick(row, FieldSite)),
		Status:         nullString(idx.Pick(row, FieldStatus)),
		Vendor:         nullString(idx.Pick(row, FieldVendor)),
		Problem:        nullString(idx.Pick(row, FieldProblem)),
		RootCause:      nullString(idx.Pick(row, FieldRootCause)),
		Classification: nullString(idx.Pick(row, FieldClassification)),
		Level:          nullInt(idx.Pick(row, FieldLevel)),

		StartTime:       pickInstant(idx, row, FieldStart),
		EndTime:         pickInstant(idx, row, FieldEnd),
		VendorStartTime: pickInstant(idx, row, FieldVendorStart),
		Pause1Start:     pickInstant(idx, row, FieldPause1Start),
		Pause1End:       pickInstant(idx, row, FieldPause1End),
		Pause2Start:     pickInstant(idx, row, FieldPause2Start),
		Pause2End:       pickInstant(idx, row, FieldPause2End),
	}

	rec.Metrics = AssembleMetrics(rec, caps)
	return rec, false, ""
}

func (r *ParseResult) appendError(msg string) {
	if len(r.Errors) == maxErrorMessages {
		r.Errors = append(r.Errors, "... further errors truncated")
	}
	if len(r.Errors) <= maxErrorMessages {
		r.Errors = append(r.Errors, msg)
	}
}

func isEmptyRow(idx HeaderIndex, row []string) bool {
	for field := range idx {
		if idx.Pick(row, field) != "" {
			return false
		}
	}
	return true
}

func pickInstant(idx HeaderIndex, row []string, field string) sql.NullTime {
	t, ok := Instant(idx.Pick(row, field))
	if !ok {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(s string) sql.NullInt64 {
	if s == "" {
		return sql.NullInt64{}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
