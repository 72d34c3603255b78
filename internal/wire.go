//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/handler"
	"github.com/dushixiang/alpha/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewAccountHandler,
		handler.NewRecordHandler,
		handler.NewTransferHandler,
		handler.NewPointsHandler,
		handler.NewStreamHandler,
	)

	ledgerSet = wire.NewSet(
		service.NewAccountService,
		service.NewScoreService,
		service.NewReminderService,
		service.NewScheduler,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		ledgerSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
