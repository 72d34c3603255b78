package handler

import (
	"net/http"
	"time"

	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/service"
	"github.com/dushixiang/alpha/internal/xe"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/dushixiang/alpha/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AccountHandler 账户管理
type AccountHandler struct {
	logger         *zap.Logger
	accountService *service.AccountService
	scoreService   *service.ScoreService
	scheduler      *service.Scheduler
}

// NewAccountHandler 创建账户处理器
func NewAccountHandler(
	logger *zap.Logger,
	accountService *service.AccountService,
	scoreService *service.ScoreService,
	scheduler *service.Scheduler,
) *AccountHandler {
	return &AccountHandler{
		logger:         logger,
		accountService: accountService,
		scoreService:   scoreService,
		scheduler:      scheduler,
	}
}

func (h *AccountHandler) registry() *ledger.Registry {
	return h.accountService.Registry()
}

type nameRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// List 账户列表
// GET /api/accounts?sort=balance&dir=desc
func (h *AccountHandler) List(c echo.Context) error {
	items := h.registry().Summaries(c.QueryParam("sort"), nostd.QueryBool(c, "dir"))
	return c.JSON(http.StatusOK, items)
}

// Create 新建账户
// POST /api/accounts
func (h *AccountHandler) Create(c echo.Context) error {
	var req nameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	a := h.registry().AddAccount(req.Name)
	h.logger.Info("account created", zap.String("account_id", a.ID), zap.String("name", a.Name))
	return c.JSON(http.StatusCreated, a)
}

// Get GET /api/accounts/:id
func (h *AccountHandler) Get(c echo.Context) error {
	a, err := findAccount(h.registry(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Rename PUT /api/accounts/:id
func (h *AccountHandler) Rename(c echo.Context) error {
	var req nameRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	a, ok := h.registry().Rename(c.Param("id"), req.Name)
	if !ok {
		return xe.ErrAccountNotFound
	}
	return c.JSON(http.StatusOK, a)
}

// Delete DELETE /api/accounts/:id
func (h *AccountHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if err := h.accountService.DeleteAccount(c.Request().Context(), id); err != nil {
		return err
	}
	h.logger.Info("account deleted", zap.String("account_id", id))
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll DELETE /api/accounts
func (h *AccountHandler) DeleteAll(c echo.Context) error {
	n := h.accountService.DeleteAll(c.Request().Context())
	h.logger.Warn("all accounts deleted", zap.Int("count", n))
	return c.JSON(http.StatusOK, orz.Map{"deleted": n})
}

// Select POST /api/accounts/:id/select
func (h *AccountHandler) Select(c echo.Context) error {
	id := c.Param("id")
	if !h.registry().Select(id) {
		return xe.ErrAccountNotFound
	}
	a, _ := h.registry().Account(id)
	return c.JSON(http.StatusOK, a)
}

// Selected 当前选中账户，没有时 selected 为 null
// GET /api/accounts/selected
func (h *AccountHandler) Selected(c echo.Context) error {
	a, ok := h.registry().Selected()
	if !ok {
		return c.JSON(http.StatusOK, orz.Map{"selected": nil})
	}
	return c.JSON(http.StatusOK, orz.Map{"selected": a})
}

// SetRiskDate date 为空或 null 时清除
// PUT /api/accounts/:id/risk-date
func (h *AccountHandler) SetRiskDate(c echo.Context) error {
	var req struct {
		Date *string `json:"date"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var day *time.Time
	if req.Date != nil && *req.Date != "" {
		d, err := calday.ParseFlexible(*req.Date)
		if err != nil {
			return xe.ErrInvalidParams
		}
		day = &d
	}
	a, ok := h.registry().SetRiskDate(c.Param("id"), day)
	if !ok {
		return xe.ErrAccountNotFound
	}
	return c.JSON(http.StatusOK, a)
}

// SetLogin time 为空时使用当前时间
// PUT /api/accounts/:id/login
func (h *AccountHandler) SetLogin(c echo.Context) error {
	var req struct {
		Time *time.Time `json:"time"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var (
		a  ledger.Account
		ok bool
	)
	if req.Time == nil {
		a, ok = h.registry().RecordLogin(c.Param("id"))
	} else {
		a, ok = h.registry().SetLastLogin(c.Param("id"), *req.Time)
	}
	if !ok {
		return xe.ErrAccountNotFound
	}
	return c.JSON(http.StatusOK, a)
}

// Scores 每日积分快照
// GET /api/accounts/:id/scores?limit=30
func (h *AccountHandler) Scores(c echo.Context) error {
	id := c.Param("id")
	if _, err := findAccount(h.registry(), id); err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 30)
	if err != nil {
		return err
	}
	histories, err := h.scoreService.GetHistories(c.Request().Context(), id, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, histories)
}

// LatestScore 最近一次积分快照
// GET /api/accounts/:id/scores/latest
func (h *AccountHandler) LatestScore(c echo.Context) error {
	id := c.Param("id")
	if _, err := findAccount(h.registry(), id); err != nil {
		return err
	}
	m, found, err := h.scoreService.GetLatest(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !found {
		return c.JSON(http.StatusOK, orz.Map{"latest": nil})
	}
	return c.JSON(http.StatusOK, orz.Map{"latest": m})
}

// Status 调度器状态
// GET /api/status
func (h *AccountHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, orz.Map{
		"accounts":  len(h.registry().Accounts()),
		"selected":  h.registry().SelectedID(),
		"scheduler": h.scheduler.GetStatus(),
		"now":       h.registry().Now(),
	})
}

// RegisterRoutes 注册路由
func (h *AccountHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.Status)

	accounts := g.Group("/accounts")
	accounts.GET("", h.List)
	accounts.POST("", h.Create)
	accounts.DELETE("", h.DeleteAll)
	accounts.GET("/selected", h.Selected)
	accounts.GET("/:id", h.Get)
	accounts.PUT("/:id", h.Rename)
	accounts.DELETE("/:id", h.Delete)
	accounts.POST("/:id/select", h.Select)
	accounts.PUT("/:id/risk-date", h.SetRiskDate)
	accounts.PUT("/:id/login", h.SetLogin)
	accounts.GET("/:id/scores", h.Scores)
	accounts.GET("/:id/scores/latest", h.LatestScore)
}
