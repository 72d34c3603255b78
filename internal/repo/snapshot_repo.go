package repo

import (
	"context"
	"errors"

	"github.com/dushixiang/alpha/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewSnapshotRepo(db *gorm.DB) *SnapshotRepo {
	return &SnapshotRepo{
		Repository: orz.NewRepository[models.Snapshot, string](db),
	}
}

type SnapshotRepo struct {
	orz.Repository[models.Snapshot, string]
}

// FindByKey 不存在时返回 found=false
func (r SnapshotRepo) FindByKey(ctx context.Context, key string) (m models.Snapshot, found bool, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("storage_key = ?", key).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, false, nil
	}
	if err != nil {
		return m, false, err
	}
	return m, true, nil
}

// Upsert 按键覆盖写入
func (r SnapshotRepo) Upsert(ctx context.Context, key string, content []byte) error {
	db := r.GetDB(ctx)
	m := models.Snapshot{Key: key, Content: content}
	return db.Table(r.GetTableName()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "storage_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
		}).
		Create(&m).Error
}
