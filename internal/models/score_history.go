package models

import "time"

// ScoreHistory 每日结算时记录的账户积分快照
type ScoreHistory struct {
	ID             string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	AccountID      string    `gorm:"type:varchar(26);not null;index:idx_score_account_day,unique" json:"account_id"`
	AccountName    string    `gorm:"type:varchar(100)" json:"account_name"`
	Day            time.Time `gorm:"not null;index:idx_score_account_day,unique" json:"day"` // UTC自然日
	Balance        float64   `gorm:"type:decimal(20,8)" json:"balance"`                      // 当日缓存余额
	TodayPoints    float64   `gorm:"type:decimal(12,2)" json:"today_points"`                 // 截止昨天的15日积分
	TomorrowPoints float64   `gorm:"type:decimal(12,2)" json:"tomorrow_points"`              // 包含今天的15日积分
	LifetimePnl    float64   `gorm:"type:decimal(20,8)" json:"lifetime_pnl"`                 // 累计盈亏
	HasNoVolume    bool      `json:"has_no_volume"`
	RecordedAt     time.Time `gorm:"not null;index" json:"recorded_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (ScoreHistory) TableName() string {
	return "score_histories"
}
