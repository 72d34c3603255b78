package calday

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const Layout = "2006-01-02"

// Normalize 截断到UTC自然日零点
func Normalize(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay 两个时间是否落在同一个UTC自然日
func SameDay(a, b time.Time) bool {
	return Normalize(a).Equal(Normalize(b))
}

func Today(now time.Time) time.Time {
	return Normalize(now)
}

func Yesterday(now time.Time) time.Time {
	return AddDays(now, -1)
}

// AddDays 按自然日偏移，结果已归一化
func AddDays(t time.Time, days int) time.Time {
	d := Normalize(t)
	return time.Date(d.Year(), d.Month(), d.Day()+days, 0, 0, 0, 0, time.UTC)
}

// DaysBetween 返回 to - from 的整天数
func DaysBetween(from, to time.Time) int {
	return int(Normalize(to).Sub(Normalize(from)).Hours() / 24)
}

// Within 闭区间 [from, to]
func Within(t, from, to time.Time) bool {
	d := Normalize(t)
	return !d.Before(Normalize(from)) && !d.After(Normalize(to))
}

func Format(t time.Time) string {
	return Normalize(t).Format(Layout)
}

func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// MonthKey yyyy-mm
func MonthKey(t time.Time) string {
	d := Normalize(t)
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

func MonthStart(t time.Time) time.Time {
	d := Normalize(t)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseFlexible 依次尝试 MM/DD/YYYY、YYYY-MM-DD、DD/MM/YYYY。
// 斜杠格式先按月/日解析，月份越界时再按日/月解析。
func ParseFlexible(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if parts := strings.Split(s, "/"); len(parts) == 3 {
		a, b, y, ok := atoi3(parts[0], parts[1], parts[2])
		if ok {
			if t, ok := makeDate(y, a, b); ok {
				return t, nil
			}
			if t, ok := makeDate(y, b, a); ok {
				return t, nil
			}
		}
	}

	if parts := strings.Split(s, "-"); len(parts) == 3 {
		y, m, d, ok := atoi3(parts[0], parts[1], parts[2])
		if ok {
			if t, ok := makeDate(y, m, d); ok {
				return t, nil
			}
		}
	}

	// ISO时间戳，例如 JSON 导出的 2025-01-02T00:00:00Z
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Normalize(t), nil
	}

	return time.Time{}, fmt.Errorf("unsupported date %q, expected MM/DD/YYYY, YYYY-MM-DD or DD/MM/YYYY", s)
}

func atoi3(a, b, c string) (int, int, int, bool) {
	x, err1 := strconv.Atoi(strings.TrimSpace(a))
	y, err2 := strconv.Atoi(strings.TrimSpace(b))
	z, err3 := strconv.Atoi(strings.TrimSpace(c))
	return x, y, z, err1 == nil && err2 == nil && err3 == nil
}

// makeDate 拒绝 time.Date 会自动进位的非法日期
func makeDate(year, month, day int) (time.Time, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
