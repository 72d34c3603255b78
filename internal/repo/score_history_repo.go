package repo

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/alpha/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewScoreHistoryRepo(db *gorm.DB) *ScoreHistoryRepo {
	return &ScoreHistoryRepo{
		Repository: orz.NewRepository[models.ScoreHistory, string](db),
	}
}

type ScoreHistoryRepo struct {
	orz.Repository[models.ScoreHistory, string]
}

// FindByAccountID 获取账户的积分历史（按日期排序）
func (r ScoreHistoryRepo) FindByAccountID(ctx context.Context, accountID string, limit int) ([]models.ScoreHistory, error) {
	var histories []models.ScoreHistory
	db := r.GetDB(ctx).Table(r.GetTableName()).
		Where("account_id = ?", accountID).
		Order("day DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&histories).Error
	if err != nil {
		return nil, err
	}
	// 返回升序，便于画曲线
	for i, j := 0, len(histories)-1; i < j; i, j = i+1, j-1 {
		histories[i], histories[j] = histories[j], histories[i]
	}
	return histories, nil
}

// FindLatest 获取账户最近一次记录
func (r ScoreHistoryRepo) FindLatest(ctx context.Context, accountID string) (m models.ScoreHistory, found bool, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("account_id = ?", accountID).
		Order("day DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, false, nil
	}
	return m, err == nil, err
}

// UpsertDaily 同一账户同一天只保留一条
func (r ScoreHistoryRepo) UpsertDaily(ctx context.Context, m *models.ScoreHistory) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_name", "balance", "today_points", "tomorrow_points",
				"lifetime_pnl", "has_no_volume", "recorded_at", "updated_at",
			}),
		}).
		Create(m).Error
}

// DeleteByAccountID 删除账户时清理历史
func (r ScoreHistoryRepo) DeleteByAccountID(ctx context.Context, accountID string) error {
	db := r.GetDB(ctx)
	return db.Where("account_id = ?", accountID).Delete(&models.ScoreHistory{}).Error
}

// DeleteBefore 清理早于指定日期的历史
func (r ScoreHistoryRepo) DeleteBefore(ctx context.Context, day time.Time) error {
	db := r.GetDB(ctx)
	return db.Where("day < ?", day).Delete(&models.ScoreHistory{}).Error
}

// DeleteAll 清空全部历史
func (r ScoreHistoryRepo) DeleteAll(ctx context.Context) error {
	db := r.GetDB(ctx)
	return db.Where("1 = 1").Delete(&models.ScoreHistory{}).Error
}
