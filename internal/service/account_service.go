package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dushixiang/alpha/internal/config"
	"github.com/dushixiang/alpha/internal/csvio"
	"github.com/dushixiang/alpha/internal/ledger"
	"github.com/dushixiang/alpha/internal/repo"
	"github.com/dushixiang/alpha/internal/xe"
	"github.com/go-orz/orz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountService 持有账户注册表，负责加载、持久化和导入导出
type AccountService struct {
	logger *zap.Logger

	*orz.Service
	snapshotRepo *repo.SnapshotRepo
	scoreRepo    *repo.ScoreHistoryRepo

	conf     config.LedgerConf
	registry *ledger.Registry

	mu          sync.Mutex
	signal      chan struct{}
	done        chan struct{}
	unsubscribe func()
	closed      bool
}

// NewAccountService 创建账户服务
func NewAccountService(db *gorm.DB, conf *config.Config, logger *zap.Logger) *AccountService {
	return NewAccountServiceWithRegistry(db, conf, logger, ledger.NewRegistry())
}

// NewAccountServiceWithRegistry 使用指定的注册表，测试中注入时钟
func NewAccountServiceWithRegistry(db *gorm.DB, conf *config.Config, logger *zap.Logger, registry *ledger.Registry) *AccountService {
	conf.ApplyDefaults()
	return &AccountService{
		logger:       logger,
		Service:      orz.NewService(db),
		snapshotRepo: repo.NewSnapshotRepo(db),
		scoreRepo:    repo.NewScoreHistoryRepo(db),
		conf:         conf.Ledger,
		registry:     registry,
	}
}

func (s *AccountService) Registry() *ledger.Registry {
	return s.registry
}

// Load 从存储恢复账户和选中状态，然后开始持久化后续修改。
// 数据无法解析时记录日志并以空状态启动。
func (s *AccountService) Load(ctx context.Context) error {
	snapshot, err := s.readSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, xe.ErrSerialization) {
			return err
		}
		s.logger.Error("stored accounts are unreadable, starting empty",
			zap.String("storage_key", s.conf.StorageKey), zap.Error(err))
		snapshot = ledger.Snapshot{}
	}
	s.registry.Restore(snapshot)

	s.logger.Info("accounts loaded",
		zap.Int("accounts", len(snapshot.Accounts)),
		zap.String("selected", s.registry.SelectedID()))

	s.startPersister()
	return nil
}

func (s *AccountService) readSnapshot(ctx context.Context) (ledger.Snapshot, error) {
	var snapshot ledger.Snapshot

	m, found, err := s.snapshotRepo.FindByKey(ctx, s.conf.StorageKey)
	if err != nil {
		return snapshot, fmt.Errorf("failed to read %s: %w", s.conf.StorageKey, err)
	}
	if found && len(m.Content) > 0 {
		if err := json.Unmarshal(m.Content, &snapshot.Accounts); err != nil {
			return snapshot, fmt.Errorf("%w: %s: %v", xe.ErrSerialization, s.conf.StorageKey, err)
		}
	}

	m, found, err = s.snapshotRepo.FindByKey(ctx, s.conf.SelectionKey)
	if err != nil {
		return snapshot, fmt.Errorf("failed to read %s: %w", s.conf.SelectionKey, err)
	}
	if found && len(m.Content) > 0 {
		// 选中状态损坏不影响账户数据
		if err := json.Unmarshal(m.Content, &snapshot.SelectedID); err != nil {
			s.logger.Warn("stored selection is unreadable", zap.Error(err))
			snapshot.SelectedID = ""
		}
	}
	return snapshot, nil
}

func (s *AccountService) startPersister() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signal != nil {
		return
	}
	s.signal = make(chan struct{}, 1)
	s.done = make(chan struct{})
	go s.persistLoop(s.signal, s.done)

	s.unsubscribe = s.registry.Subscribe(func(ledger.State) {
		s.enqueue()
	})
}

// enqueue 标记有待写入的修改，连续的修改合并为一次写入
func (s *AccountService) enqueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *AccountService) persistLoop(signal <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for range signal {
		// 写入时读取注册表的最新状态，不依赖通知的先后
		snapshot := s.registry.Snapshot()
		if err := s.save(context.Background(), snapshot); err != nil {
			s.logger.Error("failed to persist accounts", zap.Error(err))
		}
	}
}

func (s *AccountService) save(ctx context.Context, snapshot ledger.Snapshot) error {
	accounts := snapshot.Accounts
	if accounts == nil {
		accounts = []ledger.Account{}
	}
	content, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("%w: %v", xe.ErrSerialization, err)
	}
	selected, err := json.Marshal(snapshot.SelectedID)
	if err != nil {
		return fmt.Errorf("%w: %v", xe.ErrSerialization, err)
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		if err := s.snapshotRepo.Upsert(ctx, s.conf.StorageKey, content); err != nil {
			return fmt.Errorf("failed to save %s: %w", s.conf.StorageKey, err)
		}
		if err := s.snapshotRepo.Upsert(ctx, s.conf.SelectionKey, selected); err != nil {
			return fmt.Errorf("failed to save %s: %w", s.conf.SelectionKey, err)
		}
		return nil
	})
}

// Close 停止订阅并等待最后一次写入完成
func (s *AccountService) Close() {
	s.mu.Lock()
	if s.closed || s.signal == nil {
		s.closed = true
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe, signal, done := s.unsubscribe, s.signal, s.done
	s.mu.Unlock()

	unsubscribe()
	close(signal)
	<-done
}

// DeleteAccount 删除账户并清理其积分快照
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	if !s.registry.Delete(id) {
		return xe.ErrAccountNotFound
	}
	if err := s.scoreRepo.DeleteByAccountID(ctx, id); err != nil {
		s.logger.Warn("failed to delete score histories", zap.String("account_id", id), zap.Error(err))
	}
	return nil
}

// DeleteAll 删除全部账户，返回删除数量
func (s *AccountService) DeleteAll(ctx context.Context) int {
	n := s.registry.DeleteAll()
	if err := s.scoreRepo.DeleteAll(ctx); err != nil {
		s.logger.Warn("failed to delete score histories", zap.Error(err))
	}
	return n
}

// accountsFor id 为空表示全部账户
func (s *AccountService) accountsFor(id string) ([]ledger.Account, error) {
	if id == "" {
		return s.registry.Accounts(), nil
	}
	a, ok := s.registry.Account(id)
	if !ok {
		return nil, xe.ErrAccountNotFound
	}
	return []ledger.Account{a}, nil
}

// ImportCSV 逐行导入，单行失败不影响其他行
func (s *AccountService) ImportCSV(ctx context.Context, r io.Reader) (ledger.ImportResult, error) {
	rows, err := csvio.ParseCSV(r)
	if err != nil {
		return ledger.ImportResult{}, fmt.Errorf("%w: %v", xe.ErrParse, err)
	}
	result := s.registry.Import(rows)

	s.logger.Info("csv imported",
		zap.Int("rows", len(rows)),
		zap.Int("imported", result.Imported),
		zap.Int("errors", result.Errors))
	for _, re := range result.RowErrors {
		s.logger.Debug("csv row rejected", zap.Int("line", re.Line), zap.String("reason", re.Message))
	}
	return result, nil
}

// ImportJSON 用导出的 JSON 替换全部账户
func (s *AccountService) ImportJSON(ctx context.Context, r io.Reader) (int, error) {
	var accounts []ledger.Account
	if err := json.NewDecoder(r).Decode(&accounts); err != nil {
		return 0, fmt.Errorf("%w: %v", xe.ErrSerialization, err)
	}
	for _, a := range accounts {
		for _, rec := range a.PointsHistory {
			e := ledger.Entry{
				StartBalance:   rec.StartBalance,
				EndBalance:     rec.EndBalance,
				Volume:         rec.Volume,
				Balance:        rec.Balance,
				Profit:         rec.Profit,
				DeductedPoints: rec.DeductedPoints,
				BonusPoints:    rec.BonusPoints,
			}
			if err := e.Validate(); err != nil {
				return 0, fmt.Errorf("account %q: %w", a.Name, err)
			}
		}
	}
	s.registry.ReplaceAll(accounts)

	s.logger.Info("json imported", zap.Int("accounts", len(accounts)))
	return len(accounts), nil
}

// ExportJSON 导出为 JSON 数组，可以直接再导入
func (s *AccountService) ExportJSON(w io.Writer, id string) error {
	accounts, err := s.accountsFor(id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(accounts)
}

func (s *AccountService) ExportCSV(w io.Writer, id string) error {
	accounts, err := s.accountsFor(id)
	if err != nil {
		return err
	}
	return csvio.WriteCSV(w, accounts)
}

func (s *AccountService) ExportXLSX(w io.Writer, id string) error {
	accounts, err := s.accountsFor(id)
	if err != nil {
		return err
	}
	return csvio.WriteXLSX(w, accounts, s.registry.Now())
}
