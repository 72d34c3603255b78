package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/handler"
	"github.com/dushixiang/alpha/internal/models"
	"github.com/dushixiang/alpha/internal/service"
	"github.com/dushixiang/alpha/internal/telegram"
	"github.com/dushixiang/alpha/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := &AlphaApp{}

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	err = framework.Run()
	app.Shutdown()
	return err
}


var _ orz.Application = (*AlphaApp)(nil)

type AppComponents struct {
	AccountHandler  *handler.AccountHandler
	RecordHandler   *handler.RecordHandler
	TransferHandler *handler.TransferHandler
	PointsHandler   *handler.PointsHandler
	StreamHandler   *handler.StreamHandler

	AccountService *service.AccountService
	Scheduler      *service.Scheduler

	tg *telegram.Telegram
}

type AlphaApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *AlphaApp) GetComponents() *AppComponents {
	return r.components
}

func (r *AlphaApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.ApplyDefaults()

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Snapshot{}, models.ScoreHistory{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		// websocket 连接不能压缩
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/stream")
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api")
	{
		r.components.AccountHandler.RegisterRoutes(api)
		r.components.RecordHandler.RegisterRoutes(api)
		r.components.TransferHandler.RegisterRoutes(api)
		r.components.PointsHandler.RegisterRoutes(api)
		r.components.StreamHandler.RegisterRoutes(api)
	}

	return nil
}

func (r *AlphaApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Binance Alpha Points Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	ctx := context.Background()
	if err := components.AccountService.Load(ctx); err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}

	if err := components.Scheduler.Start(ctx); err != nil {
		return err
	}

	if components.tg != nil {
		components.tg.Start()
		logger.Info("telegram bot started")
	}
	return nil
}

// Shutdown 停止定时任务，再把尚未写入的账户数据落盘
func (r *AlphaApp) Shutdown() {
	components := r.GetComponents()
	if components == nil {
		return
	}
	if components.tg != nil {
		components.tg.Stop()
	}
	components.Scheduler.Stop()
	components.AccountService.Close()
}
