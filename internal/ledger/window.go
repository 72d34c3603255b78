package ledger

import (
	"time"

	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/shopspring/decimal"
)

// WindowDays 滚动窗口固定15个自然日，两端都包含
const WindowDays = 15

// WindowSumAt 以 ref 为最后一天的15日积分之和：[ref-14, ref]
func (a *Account) WindowSumAt(ref time.Time) float64 {
	end := calday.Normalize(ref)
	start := calday.AddDays(end, -(WindowDays - 1))

	sum := decimal.Zero
	for _, r := range a.PointsHistory {
		if calday.Within(r.Date, start, end) {
			sum = sum.Add(decimal.NewFromFloat(r.TotalPoints))
		}
	}
	return sum.InexactFloat64()
}

// OperationalWindowSum 今日积分：截止到昨天的15日窗口
func (a *Account) OperationalWindowSum(now time.Time) float64 {
	return a.WindowSumAt(calday.Yesterday(now))
}

// ForwardWindowSum 明日积分：包含今天的15日窗口
func (a *Account) ForwardWindowSum(now time.Time) float64 {
	return a.WindowSumAt(calday.Today(now))
}

// LifetimePnL 全部记录的 (end - start) + profit
func (a *Account) LifetimePnL() float64 {
	sum := decimal.Zero
	for _, r := range a.PointsHistory {
		sum = sum.Add(pnl(r))
	}
	return sum.InexactFloat64()
}

// DayPnL 某天的盈亏，没有记录时按推算记录计算
func (a *Account) DayPnL(day time.Time) float64 {
	return pnl(a.GetOrSynthesize(day).Record).InexactFloat64()
}

// TotalPoints 全部历史积分
func (a *Account) TotalPoints() float64 {
	sum := decimal.Zero
	for _, r := range a.PointsHistory {
		sum = sum.Add(decimal.NewFromFloat(r.TotalPoints))
	}
	return sum.InexactFloat64()
}

func pnl(r DailyRecord) decimal.Decimal {
	return decimal.NewFromFloat(r.EndBalance).
		Sub(decimal.NewFromFloat(r.StartBalance)).
		Add(decimal.NewFromFloat(r.Profit))
}
