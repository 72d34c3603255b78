package config

const (
	DefaultStorageKey   = "binance_alpha_accounts"
	DefaultSelectionKey = "lastSelectedAccount"
	DefaultScoreCron    = "5 0 * * *"
	DefaultReminderCron = "0 20 * * *"
)

type Config struct {
	Ledger   LedgerConf   `json:"ledger"`
	Reminder ReminderConf `json:"reminder"`
	Telegram TelegramConf `json:"telegram"`
}

type LedgerConf struct {
	StorageKey   string `json:"storage_key"`   // 账户数据的存储键，默认 binance_alpha_accounts
	SelectionKey string `json:"selection_key"` // 选中账户的存储键，默认 lastSelectedAccount
}

type ReminderConf struct {
	Enabled            bool   `json:"enabled"`
	ScoreCron          string `json:"score_cron"`           // 每日积分快照，UTC，默认 5 0 * * *
	Cron               string `json:"cron"`                 // 提醒检查，UTC，默认 0 20 * * *
	LogoutWarnHours    int    `json:"logout_warn_hours"`    // 距离登出多少小时内提醒，默认24
	ScoreRetentionDays int    `json:"score_retention_days"` // 积分快照保留天数，0 表示不清理
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

// ApplyDefaults 填充未配置的字段
func (c *Config) ApplyDefaults() {
	if c.Ledger.StorageKey == "" {
		c.Ledger.StorageKey = DefaultStorageKey
	}
	if c.Ledger.SelectionKey == "" {
		c.Ledger.SelectionKey = DefaultSelectionKey
	}
	if c.Reminder.ScoreCron == "" {
		c.Reminder.ScoreCron = DefaultScoreCron
	}
	if c.Reminder.Cron == "" {
		c.Reminder.Cron = DefaultReminderCron
	}
	if c.Reminder.LogoutWarnHours <= 0 {
		c.Reminder.LogoutWarnHours = 24
	}
}
