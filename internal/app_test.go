package internal

import (
	"context"
	"testing"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/models"
	"github.com/dushixiang/alpha/internal/service"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestAlphaAppShutdownFlushesAccounts(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.Snapshot{}, models.ScoreHistory{}))

	nop := zap.NewNop()
	components, err := InitializeApp(nop, db, &config.Config{})
	require.NoError(t, err)
	app := &AlphaApp{components: components}
	require.NoError(t, app.Init(nop))
	require.True(t, components.Scheduler.IsRunning())

	components.AccountService.Registry().AddAccount("main")
	components.AccountService.Registry().AddAccount("second")
	app.Shutdown()

	assert.False(t, components.Scheduler.IsRunning())

	restored := service.NewAccountService(db, &config.Config{}, nop)
	require.NoError(t, restored.Load(context.Background()))
	defer restored.Close()
	assert.Len(t, restored.Registry().Accounts(), 2)

	// 重复调用和未初始化时都不会出错
	app.Shutdown()
	(&AlphaApp{}).Shutdown()
}
