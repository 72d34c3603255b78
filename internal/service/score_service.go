package service

import (
	"context"
	"fmt"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/models"
	"github.com/dushixiang/alpha/internal/repo"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScoreService 每日积分快照
type ScoreService struct {
	logger *zap.Logger

	*orz.Service
	*repo.ScoreHistoryRepo

	accountService *AccountService
	conf           config.ReminderConf
}

// NewScoreService 创建积分快照服务
func NewScoreService(db *gorm.DB, conf *config.Config, accountService *AccountService, logger *zap.Logger) *ScoreService {
	return &ScoreService{
		logger:           logger,
		Service:          orz.NewService(db),
		ScoreHistoryRepo: repo.NewScoreHistoryRepo(db),
		accountService:   accountService,
		conf:             conf.Reminder,
	}
}

// RecordDaily 为每个账户保存当天的积分快照，同一天重复执行会覆盖
func (s *ScoreService) RecordDaily(ctx context.Context) (int, error) {
	registry := s.accountService.Registry()
	now := registry.Now()
	day := calday.Today(now)
	summaries := registry.Summaries("", false)

	err := s.Transaction(ctx, func(ctx context.Context) error {
		for _, sum := range summaries {
			history := &models.ScoreHistory{
				ID:             ulid.Make().String(),
				AccountID:      sum.ID,
				AccountName:    sum.Name,
				Day:            day,
				Balance:        sum.Balance,
				TodayPoints:    sum.TodayPoints,
				TomorrowPoints: sum.TomorrowPoints,
				LifetimePnl:    sum.LifetimePnL,
				HasNoVolume:    sum.HasNoVolume,
				RecordedAt:     now,
			}
			if err := s.ScoreHistoryRepo.UpsertDaily(ctx, history); err != nil {
				return fmt.Errorf("failed to save score of %s: %w", sum.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if days := s.conf.ScoreRetentionDays; days > 0 {
		if err := s.ScoreHistoryRepo.DeleteBefore(ctx, calday.AddDays(day, -days)); err != nil {
			s.logger.Warn("failed to prune score histories", zap.Error(err))
		}
	}

	s.logger.Info("daily scores recorded",
		zap.String("day", calday.Format(day)),
		zap.Int("accounts", len(summaries)))
	return len(summaries), nil
}

// GetLatest 账户最近一次快照，没有时 found=false
func (s *ScoreService) GetLatest(ctx context.Context, accountID string) (models.ScoreHistory, bool, error) {
	return s.ScoreHistoryRepo.FindLatest(ctx, accountID)
}

// GetHistories 账户的积分快照，按日期升序
func (s *ScoreService) GetHistories(ctx context.Context, accountID string, limit int) ([]models.ScoreHistory, error) {
	return s.ScoreHistoryRepo.FindByAccountID(ctx, accountID, limit)
}
