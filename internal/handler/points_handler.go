package handler

import (
	"net/http"

	"github.com/dushixiang/alpha/pkg/points"
	"github.com/go-orz/orz"
	"github.com/labstack/echo/v4"
)

// PointsHandler 积分计算器，不依赖账户数据
type PointsHandler struct{}

func NewPointsHandler() *PointsHandler {
	return &PointsHandler{}
}

// Calc GET /api/points/calc?balance=1500&volume=4096&bonus=0&deducted=0
func (h *PointsHandler) Calc(c echo.Context) error {
	values := map[string]float64{}
	for _, name := range []string{"balance", "volume", "bonus", "deducted"} {
		v, err := queryFloat(c, name)
		if err != nil {
			return err
		}
		values[name] = v
	}

	bp := points.BalancePoints(values["balance"])
	vp := points.VolumePoints(values["volume"])
	return c.JSON(http.StatusOK, orz.Map{
		"balance_points": bp,
		"volume_points":  vp,
		"total_points":   points.Total(bp, vp, values["bonus"], values["deducted"]),
	})
}

// Options 编辑器下拉选项
// GET /api/points/volume-options
func (h *PointsHandler) Options(c echo.Context) error {
	volumes := make([]orz.Map, 0)
	for _, v := range points.VolumeOptions() {
		volumes = append(volumes, orz.Map{"volume": v, "points": points.VolumePoints(v)})
	}
	balances := make([]orz.Map, 0)
	for _, b := range points.BalanceOptions() {
		balances = append(balances, orz.Map{"balance": b, "points": points.BalancePoints(b)})
	}
	return c.JSON(http.StatusOK, orz.Map{"volumes": volumes, "balances": balances})
}

// RegisterRoutes 注册路由
func (h *PointsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/points/calc", h.Calc)
	g.GET("/points/volume-options", h.Options)
}
