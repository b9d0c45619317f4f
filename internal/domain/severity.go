package domain

import "strings"

// Severity 工单 NCAL 等级（固定枚举，驱动下游 SLA 策略）
type Severity string

const (
	SeverityBlue   Severity = "Blue"
	SeverityYellow Severity = "Yellow"
	SeverityOrange Severity = "Orange"
	SeverityRed    Severity = "Red"
	SeverityBlack  Severity = "Black"
)

// severityAliases 源表中出现过的写法（含印尼语）→ 规范枚举
var severityAliases = map[string]Severity{
	"blue":   SeverityBlue,
	"biru":   SeverityBlue,
	"yellow": SeverityYellow,
	"kuning": SeverityYellow,
	"orange": SeverityOrange,
	"oranye": SeverityOrange,
	"red":    SeverityRed,
	"merah":  SeverityRed,
	"black":  SeverityBlack,
	"hitam":  SeverityBlack,
}

// ParseSeverity 规范化 NCAL 取值。不在枚举内返回 ok=false，
// 调用方应整行拒绝（severity 决定 SLA，不允许脏值入库）。
func ParseSeverity(raw string) (Severity, bool) {
	s, ok := severityAliases[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// SeverityOrder 用于排序/聚合的固定次序
func SeverityOrder(s Severity) int {
	switch s {
	case SeverityBlue:
		return 1
	case SeverityYellow:
		return 2
	case SeverityOrange:
		return 3
	case SeverityRed:
		return 4
	case SeverityBlack:
		return 5
	}
	return 0
}
