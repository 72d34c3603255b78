package models

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot 按固定键保存的序列化数据
type Snapshot struct {
	Key       string         `gorm:"column:storage_key;primaryKey;size:64" json:"key"`
	Content   datatypes.JSON `gorm:"type:json" json:"content"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Snapshot) TableName() string {
	return "snapshots"
}
