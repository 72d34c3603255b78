package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dushixiang/alpha/internal"
	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/handler"
	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/models"
	"github.com/dushixiang/alpha/internal/service"
	"github.com/dushixiang/alpha/pkg/nostd"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 6, 20, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	e        *echo.Echo
	accounts *service.AccountService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.Snapshot{}, models.ScoreHistory{}))

	seq := 0
	registry := ledger.NewRegistry(
		ledger.WithClock(func() time.Time { return testNow }),
		ledger.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("acc-%02d", seq)
		}),
	)

	nop := zap.NewNop()
	conf := &config.Config{}
	accounts := service.NewAccountServiceWithRegistry(db, conf, nop, registry)
	require.NoError(t, accounts.Load(context.Background()))
	t.Cleanup(accounts.Close)
	scores := service.NewScoreService(db, conf, accounts, nop)
	reminders := service.NewReminderService(conf, accounts, nil, nop)
	scheduler := service.NewScheduler(conf, scores, reminders, nop)

	e := echo.New()
	cv := &nostd.CustomValidator{Validator: validator.New()}
	require.NoError(t, cv.TransInit())
	e.Validator = cv
	e.Use(internal.WithErrorHandler(nop))

	api := e.Group("/api")
	handler.NewAccountHandler(nop, accounts, scores, scheduler).RegisterRoutes(api)
	handler.NewRecordHandler(nop, accounts).RegisterRoutes(api)
	handler.NewTransferHandler(nop, accounts).RegisterRoutes(api)
	handler.NewPointsHandler().RegisterRoutes(api)
	handler.NewStreamHandler(nop, accounts).RegisterRoutes(api)

	return &testEnv{e: e, accounts: accounts}
}

func (env *testEnv) do(method, path, body, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) json(method, path, body string) *httptest.ResponseRecorder {
	ct := ""
	if body != "" {
		ct = echo.MIMEApplicationJSON
	}
	return env.do(method, path, body, ct)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func TestAccountRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.json(http.MethodPost, "/api/accounts", `{"name":"  main  "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[ledger.Account](t, rec)
	assert.Equal(t, "acc-01", created.ID)
	assert.Equal(t, "main", created.Name)

	rec = env.json(http.MethodPost, "/api/accounts", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Message, "name is a required field")

	env.json(http.MethodPost, "/api/accounts", `{"name":"second"}`)

	rec = env.json(http.MethodGet, "/api/accounts?sort=name&dir=desc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ledger.Summary](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)

	rec = env.json(http.MethodPut, "/api/accounts/acc-01", `{"name":"renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "renamed", decode[ledger.Account](t, rec).Name)

	rec = env.json(http.MethodGet, "/api/accounts/selected", "")
	assert.JSONEq(t, `{"selected":null}`, rec.Body.String())

	rec = env.json(http.MethodPost, "/api/accounts/acc-01/select", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.json(http.MethodGet, "/api/accounts/selected", "")
	sel := decode[struct {
		Selected ledger.Account `json:"selected"`
	}](t, rec)
	assert.Equal(t, "acc-01", sel.Selected.ID)

	rec = env.json(http.MethodPut, "/api/accounts/acc-01/risk-date", `{"date":"2025-06-10"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[ledger.Account](t, rec)
	require.NotNil(t, a.RiskDate)
	assert.Equal(t, "2025-06-10", a.RiskDate.Format("2006-01-02"))

	rec = env.json(http.MethodPut, "/api/accounts/acc-01/risk-date", `{"date":null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[ledger.Account](t, rec).RiskDate)

	rec = env.json(http.MethodPut, "/api/accounts/acc-01/login", "")
	require.Equal(t, http.StatusOK, rec.Code)
	a = decode[ledger.Account](t, rec)
	require.NotNil(t, a.LastLogin)
	assert.True(t, a.LastLogin.Equal(testNow))

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/scores/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"latest":null}`, rec.Body.String())

	rec = env.json(http.MethodDelete, "/api/accounts/acc-01", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.json(http.MethodDelete, "/api/accounts/acc-01", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 10404, decode[errorBody](t, rec).Code)

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/scores", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.json(http.MethodDelete, "/api/accounts", "")
	assert.JSONEq(t, `{"deleted":1}`, rec.Body.String())

	rec = env.json(http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accounts":0`)
}

func TestRecordAcceptsLoss(t *testing.T) {
	env := newTestEnv(t)
	env.json(http.MethodPost, "/api/accounts", `{"name":"main"}`)

	rec := env.json(http.MethodPut, "/api/accounts/acc-01/records/2025-06-19", `{"start_balance":100,"end_balance":90,"profit":-2.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, -2.5, decode[ledger.DailyRecord](t, rec).Profit)

	rec = env.json(http.MethodPut, "/api/accounts/acc-01/records/2025-06-19", `{"start_balance":-1,"profit":-2.5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordRoutes(t *testing.T) {
	env := newTestEnv(t)
	env.json(http.MethodPost, "/api/accounts", `{"name":"main"}`)

	rec := env.json(http.MethodPut, "/api/accounts/acc-01/records/2025-06-19",
		`{"start_balance":1000,"end_balance":1200,"volume":1024,"balance":1100,"profit":3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	r := decode[ledger.DailyRecord](t, rec)
	assert.Equal(t, 2, r.BalancePoints)
	assert.Equal(t, 10, r.VolumePoints)
	assert.Equal(t, 12.0, r.TotalPoints)

	rec = env.json(http.MethodPut, "/api/accounts/acc-01/records/2025-06-19", `{"volume":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.json(http.MethodPut, "/api/accounts/acc-01/records/19-06-2025", `{"volume":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 10400, decode[errorBody](t, rec).Code)

	rec = env.json(http.MethodPut, "/api/accounts/missing/records/2025-06-19", `{"volume":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/records/2025-06-20", "")
	view := decode[ledger.DayView](t, rec)
	assert.True(t, view.Synthesized)
	assert.Equal(t, 1200.0, view.Record.StartBalance)
	assert.Equal(t, 1024.0, view.Record.Volume)

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/records/2025-06-19", "")
	assert.False(t, decode[ledger.DayView](t, rec).Synthesized)

	rec = env.json(http.MethodPatch, "/api/accounts/acc-01/records/2025-06-19/balances", `{"start":900,"end":1100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	r = decode[ledger.DailyRecord](t, rec)
	assert.Equal(t, 1000.0, r.Balance)
	assert.Equal(t, 3.0, r.Profit)
	assert.True(t, r.Modified)

	rec = env.json(http.MethodPatch, "/api/accounts/acc-01/records/2025-06-18/balances", `{"start":1,"end":2}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 10405, decode[errorBody](t, rec).Code)

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/records", "")
	assert.Len(t, decode[[]ledger.DailyRecord](t, rec), 1)
	rec = env.json(http.MethodGet, "/api/accounts/acc-01/records/recent?n=5", "")
	assert.Len(t, decode[[]ledger.DailyRecord](t, rec), 1)
	rec = env.json(http.MethodGet, "/api/accounts/acc-01/records/months", "")
	assert.Len(t, decode[[]ledger.MonthGroup](t, rec), 1)

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/points", "")
	pts := decode[map[string]any](t, rec)
	assert.Equal(t, 12.0, pts["today_points"])
	assert.Equal(t, 12.0, pts["tomorrow_points"])
	assert.Equal(t, 1100.0, pts["last_day_balance"])
	assert.Equal(t, 203.0, pts["lifetime_pnl"])
	assert.Equal(t, true, pts["has_no_volume"])

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/points/at/2025-07-03", "")
	assert.Equal(t, 12.0, decode[map[string]any](t, rec)["window_sum"])
	rec = env.json(http.MethodGet, "/api/accounts/acc-01/points/at/2025-07-04", "")
	assert.Equal(t, 0.0, decode[map[string]any](t, rec)["window_sum"])

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/calendar?year=2025&month=6", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[struct {
		Days []ledger.CalendarDay `json:"days"`
	}](t, rec)
	assert.Len(t, cal.Days, 42)

	rec = env.json(http.MethodGet, "/api/accounts/acc-01/calendar?month=13", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransferRoutes(t *testing.T) {
	env := newTestEnv(t)

	csv := "AccountName,Date,Start,End,Vol,Profit,Deducted\n" +
		"main,06/18/2025,1000,1010,1024,0,0\n" +
		"main,13/13/2025,1,1,1,0,0\n" +
		"other,2025-06-19,50,40,2,0,0\n"
	rec := env.do(http.MethodPost, "/api/import/csv", csv, "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[ledger.ImportResult](t, rec)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Errors)

	rec = env.do(http.MethodGet, "/api/export/csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "alpha_points_2025-06-20.csv")
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))

	rec = env.do(http.MethodGet, "/api/accounts/acc-01/export/csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "alpha_points_main_2025-06-20.csv")

	rec = env.do(http.MethodGet, "/api/export/xlsx", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotZero(t, rec.Body.Len())

	rec = env.do(http.MethodGet, "/api/accounts/missing/export/json", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/api/export/json", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.String()

	env.accounts.Registry().DeleteAll()
	rec = env.do(http.MethodPost, "/api/import/json", exported, echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"accounts":2}`, rec.Body.String())
	assert.Len(t, env.accounts.Registry().Accounts(), 2)

	rec = env.do(http.MethodPost, "/api/import/json", "{", echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 10407, decode[errorBody](t, rec).Code)
}

func TestPointsRoutes(t *testing.T) {
	env := newTestEnv(t)

	rec := env.json(http.MethodGet, "/api/points/calc?balance=1500&volume=4096&deducted=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"balance_points":2,"volume_points":12,"total_points":13}`, rec.Body.String())

	rec = env.json(http.MethodGet, "/api/points/calc?volume=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.json(http.MethodGet, "/api/points/volume-options", "")
	opts := decode[struct {
		Volumes []struct {
			Volume float64 `json:"volume"`
			Points int     `json:"points"`
		} `json:"volumes"`
	}](t, rec)
	require.Len(t, opts.Volumes, 12)
	assert.Equal(t, 1024.0, opts.Volumes[0].Volume)
	assert.Equal(t, 10, opts.Volumes[0].Points)
}

func TestStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.e)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/stream", nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var state ledger.State
	require.NoError(t, ws.ReadJSON(&state))
	assert.Empty(t, state.Accounts)

	a := env.accounts.Registry().AddAccount("main")
	env.accounts.Registry().Select(a.ID)

	// 推送可能被合并，读到选中状态为止
	for {
		require.NoError(t, ws.ReadJSON(&state))
		if state.Selected != nil {
			break
		}
	}
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, a.ID, state.Selected.ID)
}
