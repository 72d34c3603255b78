package handler

import (
	"net/http"
	"time"

	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/service"
	"github.com/dushixiang/alpha/internal/xe"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const recentRecords = 16

// RecordHandler 每日记录、积分窗口和日历
type RecordHandler struct {
	logger         *zap.Logger
	accountService *service.AccountService
}

func NewRecordHandler(logger *zap.Logger, accountService *service.AccountService) *RecordHandler {
	return &RecordHandler{
		logger:         logger,
		accountService: accountService,
	}
}

func (h *RecordHandler) registry() *ledger.Registry {
	return h.accountService.Registry()
}

// List 全部记录，按日期升序
// GET /api/accounts/:id/records
func (h *RecordHandler) List(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.PointsHistory)
}

// Recent GET /api/accounts/:id/records/recent?n=16
func (h *RecordHandler) Recent(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	n, err := queryInt(c, "n", recentRecords)
	if err != nil {
		return err
	}
	if n <= 0 {
		return xe.ErrInvalidParams
	}
	return c.JSON(http.StatusOK, a.Recent(n))
}

// Months GET /api/accounts/:id/records/months
func (h *RecordHandler) Months(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	groups := a.MonthGroups()
	if groups == nil {
		groups = []ledger.MonthGroup{}
	}
	return c.JSON(http.StatusOK, groups)
}

// GetDay 没有记录时返回推算值，synthesized=true
// GET /api/accounts/:id/records/:day
func (h *RecordHandler) GetDay(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	day, err := pathDay(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.GetOrSynthesize(day))
}

// Upsert 写入或覆盖某天的记录
// PUT /api/accounts/:id/records/:day
func (h *RecordHandler) Upsert(c echo.Context) error {
	day, err := pathDay(c)
	if err != nil {
		return err
	}
	var entry ledger.Entry
	if err := bindAndValidate(c, &entry); err != nil {
		return err
	}
	record, err := h.registry().Upsert(c.Param("id"), day, entry)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

type balancesRequest struct {
	Start float64 `json:"start" validate:"gte=0"`
	End   float64 `json:"end" validate:"gte=0"`
}

// AdjustBalances 修改日初/日终余额
// PATCH /api/accounts/:id/records/:day/balances
func (h *RecordHandler) AdjustBalances(c echo.Context) error {
	day, err := pathDay(c)
	if err != nil {
		return err
	}
	var req balancesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	record, err := h.registry().AdjustBalances(c.Param("id"), day, req.Start, req.End)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}

// Points 今日/明日15日积分和盈亏
// GET /api/accounts/:id/points
func (h *RecordHandler) Points(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	now := h.registry().Now()
	return c.JSON(http.StatusOK, orz.Map{
		"today_points":     a.OperationalWindowSum(now),
		"tomorrow_points":  a.ForwardWindowSum(now),
		"total_points":     a.TotalPoints(),
		"today_pnl":        a.DayPnL(now),
		"lifetime_pnl":     a.LifetimePnL(),
		"last_day_balance": a.LastDayBalance(),
		"has_no_volume":    a.HasNoVolume(now),
	})
}

// PointsAt 以 :day 为最后一天的15日积分
// GET /api/accounts/:id/points/at/:day
func (h *RecordHandler) PointsAt(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	day, err := pathDay(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, orz.Map{
		"day":        calday.Format(day),
		"window_sum": a.WindowSumAt(day),
		"day_pnl":    a.DayPnL(day),
	})
}

// Calendar 月视图，默认当前月
// GET /api/accounts/:id/calendar?year=2025&month=6
func (h *RecordHandler) Calendar(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	now := h.registry().Now()
	year, err := queryInt(c, "year", now.UTC().Year())
	if err != nil {
		return err
	}
	month, err := queryInt(c, "month", int(now.UTC().Month()))
	if err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return xe.ErrInvalidParams
	}
	return c.JSON(http.StatusOK, orz.Map{
		"year":  year,
		"month": month,
		"days":  a.Calendar(year, time.Month(month), now),
	})
}

// RegisterRoutes 注册路由
func (h *RecordHandler) RegisterRoutes(g *echo.Group) {
	accounts := g.Group("/accounts/:id")
	accounts.GET("/records", h.List)
	accounts.GET("/records/recent", h.Recent)
	accounts.GET("/records/months", h.Months)
	accounts.GET("/records/:day", h.GetDay)
	accounts.PUT("/records/:day", h.Upsert)
	accounts.PATCH("/records/:day/balances", h.AdjustBalances)
	accounts.GET("/points", h.Points)
	accounts.GET("/points/at/:day", h.PointsAt)
	accounts.GET("/calendar", h.Calendar)
}
