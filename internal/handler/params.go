package handler

import (
	"fmt"
	"time"

	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/xe"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
)

// pathDay 解析路径中的 :day（yyyy-mm-dd）
func pathDay(c echo.Context) (time.Time, error) {
	day, err := calday.Parse(c.Param("day"))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q", xe.ErrInvalidParams, c.Param("day"))
	}
	return day, nil
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	v, err := cast.ToIntE(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", xe.ErrInvalidParams, name)
	}
	return v, nil
}

func queryFloat(c echo.Context, name string) (float64, error) {
	s := c.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", xe.ErrInvalidParams, name)
	}
	return v, nil
}

func findAccount(registry *ledger.Registry, id string) (ledger.Account, error) {
	a, ok := registry.Account(id)
	if !ok {
		return ledger.Account{}, xe.ErrAccountNotFound
	}
	return a, nil
}

// bindAndValidate 解析请求体并校验
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: invalid request body", xe.ErrInvalidParams)
	}
	return c.Validate(req)
}
