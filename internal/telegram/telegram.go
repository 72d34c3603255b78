package telegram

import (
	"net/http"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

type Settings struct {
	Token  string
	Client *http.Client
}

type Telegram struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
}

type Option func(telegram *Telegram)

const helpText = "Binance Alpha 积分助手\n" +
	"/points 查看各账户今日/明日积分\n" +
	"/help 显示帮助"

func NewTelegram(logger *zap.Logger, settings Settings, options ...Option) (*Telegram, error) {
	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdownV2,
		Token:     settings.Token,
		Poller:    poller,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	err = client.SetCommands([]tele.Command{
		{Text: "/start", Description: "显示帮助"},
		{Text: "/help", Description: "获取帮助信息"},
		{Text: "/points", Description: "查看账户积分"},
	})
	if err != nil {
		return nil, err
	}

	bot := &Telegram{
		logger:   logger,
		settings: settings,
		client:   client,
	}

	help := func(c tele.Context) error {
		return c.Send(escapeMarkdownV2(helpText))
	}
	client.Handle("/start", help)
	client.Handle("/help", help)

	for _, option := range options {
		option(bot)
	}

	return bot, nil
}

// Handle 注册命令，fn 返回的纯文本会被转义后回复
func (r *Telegram) Handle(command string, fn func() (string, error)) {
	r.client.Handle(command, func(c tele.Context) error {
		text, err := fn()
		if err != nil {
			r.logger.Error("telegram command failed", zap.String("command", command), zap.Error(err))
			return c.Send(escapeMarkdownV2("出错了: " + err.Error()))
		}
		return c.Send(escapeMarkdownV2(text))
	})
}

func (r *Telegram) Start() {
	go r.client.Start()
}

func (r *Telegram) Stop() {
	r.client.Stop()
}

// Notify 发送纯文本消息
func (r *Telegram) Notify(chatId, msg string) error {
	_chatId := cast.ToInt64(chatId)
	_, err := r.client.Send(tele.ChatID(_chatId), escapeMarkdownV2(msg), &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
	return err
}
