package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/telegram"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/valyala/fasttemplate"
	"go.uber.org/zap"
)

const (
	ReminderNoVolume = "no_volume"
	ReminderLogout   = "logout"
)

var (
	noVolumeTemplate = fasttemplate.New("[{{name}}] {{day}} 还没有交易量，当前15日积分 {{points}}", "{{", "}}")
	logoutTemplate   = fasttemplate.New("[{{name}}] 将在 {{hours}} 小时后被登出（{{deadline}} UTC）", "{{", "}}")
	pointsTemplate   = fasttemplate.New("{{name}}: 今日 {{today}} / 明日 {{tomorrow}}，余额 {{balance}}", "{{", "}}")
)

// Notifier 发送提醒消息
type Notifier interface {
	Notify(chatId, msg string) error
}

// Reminder 需要提醒的账户事项
type Reminder struct {
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// ReminderService 检查当天没有交易量或即将被登出的账户
type ReminderService struct {
	logger         *zap.Logger
	accountService *AccountService
	conf           config.ReminderConf
	chatID         string
	notifier       Notifier
}

// NewReminderService tg 为 nil 时提醒只写日志
func NewReminderService(conf *config.Config, accountService *AccountService, tg *telegram.Telegram, logger *zap.Logger) *ReminderService {
	conf.ApplyDefaults()
	s := &ReminderService{
		logger:         logger,
		accountService: accountService,
		conf:           conf.Reminder,
		chatID:         conf.Telegram.ChatID,
	}
	if tg != nil {
		s.notifier = tg
		tg.Handle("/points", s.PointsText)
	}
	return s
}

// Check 计算 now 时刻需要发出的提醒
func (s *ReminderService) Check(now time.Time) []Reminder {
	warn := time.Duration(s.conf.LogoutWarnHours) * time.Hour

	var reminders []Reminder
	for _, a := range s.accountService.Registry().Accounts() {
		if a.HasNoVolume(now) {
			reminders = append(reminders, Reminder{
				AccountID: a.ID,
				Kind:      ReminderNoVolume,
				Message: noVolumeTemplate.ExecuteString(map[string]any{
					"name":   a.Name,
					"day":    calday.Format(now),
					"points": formatPoints(a.OperationalWindowSum(now)),
				}),
			})
		}
		// 已经登出的账户不再提醒
		if remaining, ok := a.LogoutRemaining(now); ok && remaining > 0 && remaining <= warn {
			reminders = append(reminders, Reminder{
				AccountID: a.ID,
				Kind:      ReminderLogout,
				Message: logoutTemplate.ExecuteString(map[string]any{
					"name":     a.Name,
					"hours":    fmt.Sprintf("%.1f", remaining.Hours()),
					"deadline": a.LogoutDeadline().UTC().Format("2006-01-02 15:04"),
				}),
			})
		}
	}
	return reminders
}

// Run 执行一次检查并发送
func (s *ReminderService) Run(ctx context.Context) error {
	reminders := s.Check(s.accountService.Registry().Now())
	if len(reminders) == 0 {
		s.logger.Debug("no reminders")
		return nil
	}

	if s.notifier == nil || s.chatID == "" {
		for _, r := range reminders {
			s.logger.Info("reminder", zap.String("account_id", r.AccountID), zap.String("kind", r.Kind), zap.String("message", r.Message))
		}
		return nil
	}

	messages := make([]string, 0, len(reminders))
	for _, r := range reminders {
		messages = append(messages, r.Message)
	}
	if err := s.notifier.Notify(s.chatID, strings.Join(messages, "\n")); err != nil {
		return fmt.Errorf("failed to send reminders: %w", err)
	}
	s.logger.Info("reminders sent", zap.Int("count", len(reminders)))
	return nil
}

// PointsText 每个账户一行积分概览
func (s *ReminderService) PointsText() (string, error) {
	summaries := s.accountService.Registry().Summaries("name", false)
	if len(summaries) == 0 {
		return "", errors.New("no accounts")
	}
	lines := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		lines = append(lines, pointsTemplate.ExecuteString(map[string]any{
			"name":     sum.Name,
			"today":    formatPoints(sum.TodayPoints),
			"tomorrow": formatPoints(sum.TomorrowPoints),
			"balance":  fmt.Sprintf("%.2f", sum.Balance),
		}))
	}
	return strings.Join(lines, "\n"), nil
}

func formatPoints(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
