package internal

import (
	"net/http"
	"time"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/telegram"
	"go.uber.org/zap"
)

const telegramHTTPTimeout = 10 * time.Second

// provideTelegram 未启用或初始化失败时返回 nil，提醒只写日志
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}
