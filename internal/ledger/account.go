package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dushixiang/alpha/internal/xe"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/dushixiang/alpha/pkg/points"
)

const (
	// LogoutAfter 登录后固定5天被登出
	LogoutAfter = 5 * 24 * time.Hour

	DefaultBalance = 1000
	DefaultVolume  = 32768
)

// Account 交易账户
type Account struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Balance       float64       `json:"balance"`
	LastUpdated   time.Time     `json:"lastUpdated"`
	PointsHistory []DailyRecord `json:"pointsHistory"`
	LastLogin     *time.Time    `json:"lastLogin,omitempty"`
	RiskDate      *time.Time    `json:"riskDate,omitempty"`
}

// DailyRecord 每个账户每个UTC自然日至多一条
type DailyRecord struct {
	Date           time.Time `json:"date"`
	Balance        float64   `json:"balance"`      // 计算余额积分使用的余额
	StartBalance   float64   `json:"startBalance"` // 日初余额
	EndBalance     float64   `json:"endBalance"`   // 日终余额
	Volume         float64   `json:"volume"`
	BalancePoints  int       `json:"balancePoints"`
	VolumePoints   int       `json:"volumePoints"`
	TotalPoints    float64   `json:"totalPoints"`
	Profit         float64   `json:"profit"`
	DeductedPoints float64   `json:"deductedPoints"`
	BonusPoints    float64   `json:"bonusPoints"`
	Modified       bool      `json:"modified"`
}

// PnL (end - start) + profit
func (r DailyRecord) PnL() float64 {
	return r.EndBalance - r.StartBalance + r.Profit
}

func (r *DailyRecord) recompute() {
	r.Date = calday.Normalize(r.Date)
	r.BalancePoints = 0
	if r.Balance > 0 {
		r.BalancePoints = points.BalancePoints(r.Balance)
	}
	r.VolumePoints = points.VolumePoints(r.Volume)
	r.TotalPoints = points.Total(r.BalancePoints, r.VolumePoints, r.BonusPoints, r.DeductedPoints)
}

// Entry 某一天的录入数据
type Entry struct {
	StartBalance   float64 `json:"start_balance" validate:"gte=0"`
	EndBalance     float64 `json:"end_balance" validate:"gte=0"`
	Volume         float64 `json:"volume" validate:"gte=0"`
	Balance        float64 `json:"balance" validate:"gte=0"` // 积分余额，可以是自定义值或平均值
	Profit         float64 `json:"profit"` // 当日盈亏，亏损为负
	DeductedPoints float64 `json:"deducted_points" validate:"gte=0"`
	BonusPoints    float64 `json:"bonus_points" validate:"gte=0"`
}

// Validate 盈亏可以为负，其他数值必须是非负有限数
func (e Entry) Validate() error {
	if math.IsNaN(e.Profit) || math.IsInf(e.Profit, 0) {
		return fmt.Errorf("%w: profit must be a finite number, got %v", xe.ErrValidation, e.Profit)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"start_balance", e.StartBalance},
		{"end_balance", e.EndBalance},
		{"volume", e.Volume},
		{"balance", e.Balance},
		{"deducted_points", e.DeductedPoints},
		{"bonus_points", e.BonusPoints},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", xe.ErrValidation, f.name, f.value)
		}
	}
	return nil
}

// DayView 读取某天的结果。Synthesized 为 true 时该记录只是推算值，不能写回。
type DayView struct {
	Record      DailyRecord `json:"record"`
	Synthesized bool        `json:"synthesized"`
}

func (a *Account) indexOf(day time.Time) int {
	for i := range a.PointsHistory {
		if calday.SameDay(a.PointsHistory[i].Date, day) {
			return i
		}
	}
	return -1
}

// Record 精确匹配某个自然日
func (a *Account) Record(day time.Time) (DailyRecord, bool) {
	if i := a.indexOf(day); i >= 0 {
		return a.PointsHistory[i], true
	}
	return DailyRecord{}, false
}

// GetOrSynthesize 没有记录时用前一天的数据推算，前一天也没有时使用默认值。
// 推算结果每次重新计算，不会写入历史。
func (a *Account) GetOrSynthesize(day time.Time) DayView {
	if r, ok := a.Record(day); ok {
		return DayView{Record: r}
	}

	d := calday.Normalize(day)
	balance, volume := float64(DefaultBalance), float64(DefaultVolume)
	if prev, ok := a.Record(calday.AddDays(d, -1)); ok {
		balance = prev.EndBalance
		if balance == 0 {
			balance = prev.Balance
		}
		volume = prev.Volume
	}

	return DayView{
		Record: DailyRecord{
			Date:         d,
			Balance:      balance,
			StartBalance: balance,
			EndBalance:   balance,
			Volume:       volume,
		},
		Synthesized: true,
	}
}

// Upsert 写入或覆盖某天的记录，失败时不做任何修改
func (a *Account) Upsert(day time.Time, e Entry, now time.Time) (DailyRecord, error) {
	if err := e.Validate(); err != nil {
		return DailyRecord{}, err
	}

	d := calday.Normalize(day)
	i := a.indexOf(d)
	if i < 0 {
		a.PointsHistory = append(a.PointsHistory, DailyRecord{Date: d})
		i = len(a.PointsHistory) - 1
	} else {
		a.PointsHistory[i].Modified = true
	}

	r := &a.PointsHistory[i]
	r.StartBalance = e.StartBalance
	r.EndBalance = e.EndBalance
	r.Volume = e.Volume
	r.Balance = e.Balance
	r.Profit = e.Profit
	r.DeductedPoints = e.DeductedPoints
	r.BonusPoints = e.BonusPoints
	r.recompute()
	saved := *r

	a.sortHistory()
	a.touch(now)
	return saved, nil
}

// AdjustBalances 修改已有记录的日初/日终余额，余额积分按两者平均值重算
func (a *Account) AdjustBalances(day time.Time, start, end float64, now time.Time) (DailyRecord, error) {
	i := a.indexOf(day)
	if i < 0 {
		return DailyRecord{}, xe.ErrRecordNotFound
	}
	r := a.PointsHistory[i]
	e := Entry{
		StartBalance:   start,
		EndBalance:     end,
		Volume:         r.Volume,
		Balance:        (start + end) / 2,
		Profit:         r.Profit,
		DeductedPoints: r.DeductedPoints,
		BonusPoints:    r.BonusPoints,
	}
	return a.Upsert(day, e, now)
}

func (a *Account) sortHistory() {
	sort.SliceStable(a.PointsHistory, func(i, j int) bool {
		return a.PointsHistory[i].Date.Before(a.PointsHistory[j].Date)
	})
}

// touch 缓存余额取时间上最新的一条记录，而不是刚写入的那条
func (a *Account) touch(now time.Time) {
	if n := len(a.PointsHistory); n > 0 {
		a.Balance = a.PointsHistory[n-1].EndBalance
	}
	a.LastUpdated = now
}

// LastDayBalance 最新一条记录的日终余额
func (a *Account) LastDayBalance() float64 {
	if n := len(a.PointsHistory); n > 0 {
		return a.PointsHistory[n-1].EndBalance
	}
	return 0
}

// LogoutDeadline lastLogin + 5天
func (a *Account) LogoutDeadline() *time.Time {
	if a.LastLogin == nil {
		return nil
	}
	t := a.LastLogin.Add(LogoutAfter)
	return &t
}

// LogoutRemaining 距离登出的剩余时间，未登录时 ok 为 false
func (a *Account) LogoutRemaining(now time.Time) (time.Duration, bool) {
	deadline := a.LogoutDeadline()
	if deadline == nil {
		return 0, false
	}
	return deadline.Sub(now), true
}

// RiskDays 标记风险后经过的自然日
func (a *Account) RiskDays(now time.Time) *int {
	if a.RiskDate == nil {
		return nil
	}
	days := calday.DaysBetween(*a.RiskDate, now)
	return &days
}

// HasNoVolume 今天没有记录或交易量为0
func (a *Account) HasNoVolume(now time.Time) bool {
	r, ok := a.Record(now)
	return !ok || r.Volume == 0
}

// Clone 深拷贝，避免调用方修改内部状态
func (a *Account) Clone() Account {
	c := *a
	c.PointsHistory = append([]DailyRecord(nil), a.PointsHistory...)
	if a.LastLogin != nil {
		t := *a.LastLogin
		c.LastLogin = &t
	}
	if a.RiskDate != nil {
		t := *a.RiskDate
		c.RiskDate = &t
	}
	return c
}

// normalize 恢复持久化数据后重建不变量：日期归一化、按日去重、排序、重算积分
func (a *Account) normalize() {
	byDay := make(map[time.Time]int, len(a.PointsHistory))
	records := make([]DailyRecord, 0, len(a.PointsHistory))
	for _, r := range a.PointsHistory {
		r.recompute()
		if i, ok := byDay[r.Date]; ok {
			records[i] = r
			continue
		}
		byDay[r.Date] = len(records)
		records = append(records, r)
	}
	a.PointsHistory = records
	a.sortHistory()
	a.normalizeRiskDate()
	if n := len(a.PointsHistory); n > 0 {
		a.Balance = a.PointsHistory[n-1].EndBalance
	}
}

func (a *Account) normalizeRiskDate() {
	if a.RiskDate != nil {
		d := calday.Normalize(*a.RiskDate)
		a.RiskDate = &d
	}
}
