package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/dushixiang/alpha/pkg/calday"
)

// Recent 最近 n 条记录，按日期倒序
func (a *Account) Recent(n int) []DailyRecord {
	out := make([]DailyRecord, 0, n)
	for i := len(a.PointsHistory) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, a.PointsHistory[i])
	}
	return out
}

// MonthGroup 按月分组的记录
type MonthGroup struct {
	Key     string        `json:"key"`
	Month   time.Time     `json:"month"`
	Records []DailyRecord `json:"records"`
}

// MonthGroups 月份和组内记录均为倒序
func (a *Account) MonthGroups() []MonthGroup {
	var groups []MonthGroup
	for i := len(a.PointsHistory) - 1; i >= 0; i-- {
		r := a.PointsHistory[i]
		month := calday.MonthStart(r.Date)
		if n := len(groups); n > 0 && groups[n-1].Month.Equal(month) {
			groups[n-1].Records = append(groups[n-1].Records, r)
			continue
		}
		groups = append(groups, MonthGroup{Key: calday.MonthKey(month), Month: month, Records: []DailyRecord{r}})
	}
	return groups
}

// CalendarDay 日历中的一格
type CalendarDay struct {
	Date          time.Time `json:"date"`
	Label         int       `json:"label"`
	InMonth       bool      `json:"in_month"`
	HasRecord     bool      `json:"has_record"`
	Diff          *float64  `json:"diff"`
	Points        *float64  `json:"points"`
	IsFuture      bool      `json:"is_future"`
	MissingVolume bool      `json:"missing_volume"`
}

const calendarCells = 42

// Calendar 6周的月视图，从周日开始
func (a *Account) Calendar(year int, month time.Month, now time.Time) []CalendarDay {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	gridStart := calday.AddDays(first, -int(first.Weekday()))
	today := calday.Today(now)

	days := make([]CalendarDay, 0, calendarCells)
	for i := 0; i < calendarCells; i++ {
		d := calday.AddDays(gridStart, i)
		cell := CalendarDay{
			Date:     d,
			Label:    d.Day(),
			InMonth:  d.Month() == month && d.Year() == year,
			IsFuture: d.After(today),
		}
		if r, ok := a.Record(d); ok {
			diff := r.EndBalance - r.StartBalance
			pts := r.TotalPoints
			cell.HasRecord = true
			cell.Diff = &diff
			cell.Points = &pts
			cell.MissingVolume = d.Equal(today) && r.Volume == 0
		}
		days = append(days, cell)
	}
	return days
}

// Summary 账户列表中的一行
type Summary struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Balance         float64    `json:"balance"`
	LastUpdated     time.Time  `json:"last_updated"`
	TodayPoints     float64    `json:"today_points"`
	TomorrowPoints  float64    `json:"tomorrow_points"`
	TodayPnL        float64    `json:"today_pnl"`
	LifetimePnL     float64    `json:"lifetime_pnl"`
	TodayVolume     float64    `json:"today_volume"`
	TodayBalance    float64    `json:"today_balance"`
	TodayStart      float64    `json:"today_start_balance"`
	HasNoVolume     bool       `json:"has_no_volume"`
	LastLogin       *time.Time `json:"last_login"`
	LogoutDeadline  *time.Time `json:"logout_deadline"`
	LogoutRemaining *int64     `json:"logout_remaining_seconds"`
	RiskDate        *time.Time `json:"risk_date"`
	RiskDays        *int       `json:"risk_days"`
	Selected        bool       `json:"selected"`
}

// Summarize 计算账户在 now 时刻的展示数据
func (a *Account) Summarize(now time.Time) Summary {
	today := a.GetOrSynthesize(now).Record
	s := Summary{
		ID:             a.ID,
		Name:           a.Name,
		Balance:        a.Balance,
		LastUpdated:    a.LastUpdated,
		TodayPoints:    a.OperationalWindowSum(now),
		TomorrowPoints: a.ForwardWindowSum(now),
		TodayPnL:       a.DayPnL(now),
		LifetimePnL:    a.LifetimePnL(),
		TodayVolume:    today.Volume,
		TodayBalance:   today.Balance,
		TodayStart:     today.StartBalance,
		HasNoVolume:    a.HasNoVolume(now),
		LastLogin:      a.LastLogin,
		LogoutDeadline: a.LogoutDeadline(),
		RiskDate:       a.RiskDate,
		RiskDays:       a.RiskDays(now),
	}
	if remaining, ok := a.LogoutRemaining(now); ok {
		secs := int64(remaining / time.Second)
		s.LogoutRemaining = &secs
	}
	return s
}

// SortSummaries 按列排序，未知列保持原顺序
func SortSummaries(items []Summary, column string, desc bool) {
	less := summaryLess(column)
	if less == nil {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

func summaryLess(column string) func(a, b Summary) bool {
	switch column {
	case "stt", "id":
		return func(a, b Summary) bool { return a.ID < b.ID }
	case "name":
		return func(a, b Summary) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case "balance":
		return func(a, b Summary) bool { return a.Balance < b.Balance }
	case "todayPoints":
		return func(a, b Summary) bool { return a.TodayPoints < b.TodayPoints }
	case "tomorrowPoints":
		return func(a, b Summary) bool { return a.TomorrowPoints < b.TomorrowPoints }
	case "pnl":
		return func(a, b Summary) bool { return a.TodayPnL < b.TodayPnL }
	case "tradeVolume":
		return func(a, b Summary) bool { return a.TodayVolume < b.TodayVolume }
	case "logoutCountdown":
		// 未登录的账户排在最前
		return func(a, b Summary) bool {
			if a.LogoutRemaining == nil || b.LogoutRemaining == nil {
				return a.LogoutRemaining == nil && b.LogoutRemaining != nil
			}
			return *a.LogoutRemaining < *b.LogoutRemaining
		}
	default:
		return nil
	}
}
