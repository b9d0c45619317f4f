package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstant_ExcelSerial(t *testing.T) {
	// 45306 = 2024-01-15 00:00:00 UTC
	got, ok := Instant(45306.0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)

	// 小数部分是一天内的比例：.5 = 正午
	got, ok = Instant(45306.5)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), got)

	// 25569 = Unix 纪元
	got, ok = Instant(25569.0)
	require.True(t, ok)
	assert.Equal(t, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestInstant_SerialStringFromRawCell(t *testing.T) {
	// RawCellValue 模式下日期单元格到达时是序列数字符串
	got, ok := Instant("45306.354166666664")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), got)
}

func TestInstant_SerialOutOfRange(t *testing.T) {
	// 普通数字列不能被当成日期
	_, ok := Instant(42.0)
	assert.False(t, ok)
	_, ok = Instant(250000.0)
	assert.False(t, ok)
}

func TestInstant_DMYStrings(t *testing.T) {
	for _, s := range []string{
		"15/01/2024 08:30:00",
		"15/01/2024 08:30",
		"15-01-2024 08:30",
	} {
		got, ok := Instant(s)
		require.True(t, ok, s)
		assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), got, s)
	}

	// 无时间部分取午夜
	got, ok := Instant("15/01/2024")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestInstant_YMDStrings(t *testing.T) {
	got, ok := Instant("2024-01-15 08:30:45")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 45, 0, time.UTC), got)

	got, ok = Instant("2024-01-15")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestInstant_ISOString(t *testing.T) {
	got, ok := Instant("2024-01-15T08:30:00Z")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC), got)
}

func TestInstant_TwoDigitYears(t *testing.T) {
	got, ok := Instant("15/01/24 08:00")
	require.True(t, ok)
	assert.Equal(t, 2024, got.Year())

	got, ok = Instant("15/01/99")
	require.True(t, ok)
	assert.Equal(t, 1999, got.Year())

	got, ok = Instant("15/01/49")
	require.True(t, ok)
	assert.Equal(t, 2049, got.Year())
}

func TestInstant_VerboseLayouts(t *testing.T) {
	got, ok := Instant("15 January 2024 08:00:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), got)

	got, ok = Instant("January 15, 2024 08:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC), got)
}

func TestInstant_NativeTimeFaceValue(t *testing.T) {
	// 带时区的原生值按表面的日历/时钟分量重建，不做时区移位
	loc := time.FixedZone("WIB", 7*3600)
	in := time.Date(2024, 1, 15, 0, 30, 0, 0, loc)

	got, ok := Instant(in)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 30, 0, 0, time.UTC), got)
}

func TestInstant_Invalid(t *testing.T) {
	for _, v := range []any{
		nil,
		"",
		"   ",
		"not a date",
		"31/02/2024", // time.Date 归一化检测
		"15/13/2024",
		time.Time{},
		true,
	} {
		_, ok := Instant(v)
		assert.False(t, ok, "%v", v)
	}
}
