package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler 定时任务：每日积分快照和提醒，按 UTC 调度
type Scheduler struct {
	config          config.ReminderConf
	scoreService    *ScoreService
	reminderService *ReminderService
	logger          *zap.Logger

	mu        sync.Mutex
	startTime time.Time
	isRunning bool
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
	jobs      map[string]cron.EntryID
}

// NewScheduler 创建调度器
func NewScheduler(
	config *config.Config,
	scoreService *ScoreService,
	reminderService *ReminderService,
	logger *zap.Logger,
) *Scheduler {
	config.ApplyDefaults()
	return &Scheduler{
		config:          config.Reminder,
		scoreService:    scoreService,
		reminderService: reminderService,
		logger:          logger,
	}
}

// Start 注册任务并启动，不阻塞
func (t *Scheduler) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	t.ctx, t.cancel = context.WithCancel(ctx)
	t.cron = cron.New(cron.WithLocation(time.UTC))
	t.jobs = make(map[string]cron.EntryID)

	if err := t.addJob("score", t.config.ScoreCron, func(ctx context.Context) error {
		_, err := t.scoreService.RecordDaily(ctx)
		return err
	}); err != nil {
		return err
	}

	if t.config.Enabled {
		if err := t.addJob("reminder", t.config.Cron, t.reminderService.Run); err != nil {
			return err
		}
	}

	t.cron.Start()
	t.isRunning = true
	t.startTime = time.Now()

	t.logger.Info("scheduler started",
		zap.String("score_cron", t.config.ScoreCron),
		zap.Bool("reminder_enabled", t.config.Enabled),
		zap.String("reminder_cron", t.config.Cron))
	return nil
}

func (t *Scheduler) addJob(name, expr string, fn func(ctx context.Context) error) error {
	ctx := t.ctx
	id, err := t.cron.AddFunc(expr, func() {
		if err := fn(ctx); err != nil {
			t.logger.Error("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		t.cancel()
		return fmt.Errorf("failed to add %s job (%q): %w", name, expr, err)
	}
	t.jobs[name] = id
	return nil
}

// Stop 停止调度并等待正在执行的任务
func (t *Scheduler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isRunning {
		return
	}

	stopped := t.cron.Stop()
	<-stopped.Done()
	t.cancel()

	t.isRunning = false
	t.logger.Info("scheduler stopped")
}

func (t *Scheduler) IsRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.isRunning
}

// JobStatus 单个任务的下次执行时间
type JobStatus struct {
	Name string    `json:"name"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev"`
}

// SchedulerStatus 调度器状态
type SchedulerStatus struct {
	Running   bool        `json:"running"`
	StartTime time.Time   `json:"start_time"`
	Jobs      []JobStatus `json:"jobs"`
}

func (t *Scheduler) GetStatus() SchedulerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := SchedulerStatus{Running: t.isRunning, StartTime: t.startTime, Jobs: []JobStatus{}}
	if !t.isRunning {
		return status
	}
	for _, name := range []string{"score", "reminder"} {
		id, ok := t.jobs[name]
		if !ok {
			continue
		}
		entry := t.cron.Entry(id)
		status.Jobs = append(status.Jobs, JobStatus{Name: name, Next: entry.Next, Prev: entry.Prev})
	}
	return status
}
