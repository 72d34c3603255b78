package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/dushixiang/alpha/internal/xe"
	"github.com/dushixiang/alpha/pkg/calday"
	"github.com/oklog/ulid/v2"
)

// State 推送给观察者的只读快照
type State struct {
	Accounts []Account `json:"accounts"`
	Selected *Account  `json:"selected"`
}

// Observer 只读订阅者，每次修改后被调用
type Observer func(State)

// Snapshot 可持久化的完整状态
type Snapshot struct {
	Accounts   []Account `json:"accounts"`
	SelectedID string    `json:"selected_id"`
}

type Option func(r *Registry)

// WithClock 注入时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		r.newID = fn
	}
}

// Registry 账户集合和当前选中账户。
// 同一账户的读-改-写都在 mu 内完成，观察者在解锁后收到深拷贝。
// pubMu 保证观察者按顺序收到状态，后到的通知不会比先到的旧。
type Registry struct {
	mu         sync.RWMutex
	accounts   []*Account
	selectedID string

	now   func() time.Time
	newID func() string

	pubMu     sync.Mutex
	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		now:       time.Now,
		newID:     func() string { return ulid.Make().String() },
		observers: make(map[int]Observer),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *Registry) Now() time.Time {
	return r.now()
}

// Subscribe 注册观察者，返回取消函数
func (r *Registry) Subscribe(o Observer) func() {
	r.obsMu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = o
	r.obsMu.Unlock()

	return func() {
		r.obsMu.Lock()
		delete(r.observers, id)
		r.obsMu.Unlock()
	}
}

// publish 观察者在 pubMu 内被调用，不能再修改注册表
func (r *Registry) publish() {
	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	state := r.State()

	r.obsMu.Lock()
	observers := make([]Observer, 0, len(r.observers))
	for _, o := range r.observers {
		observers = append(observers, o)
	}
	r.obsMu.Unlock()

	for _, o := range observers {
		o(state)
	}
}

// State 当前账户列表和选中账户
func (r *Registry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := State{Accounts: make([]Account, 0, len(r.accounts))}
	for _, a := range r.accounts {
		state.Accounts = append(state.Accounts, a.Clone())
	}
	if a := r.find(r.selectedID); a != nil {
		c := a.Clone()
		state.Selected = &c
	}
	return state
}

func (r *Registry) find(id string) *Account {
	if id == "" {
		return nil
	}
	for _, a := range r.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (r *Registry) findByName(name string) *Account {
	for _, a := range r.accounts {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (r *Registry) Accounts() []Account {
	return r.State().Accounts
}

// Account 未知id返回 false
func (r *Registry) Account(id string) (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a := r.find(id)
	if a == nil {
		return Account{}, false
	}
	return a.Clone(), true
}

func (r *Registry) AddAccount(name string) Account {
	r.mu.Lock()
	a := r.create(strings.TrimSpace(name))
	c := a.Clone()
	r.mu.Unlock()

	r.publish()
	return c
}

func (r *Registry) create(name string) *Account {
	a := &Account{
		ID:            r.newID(),
		Name:          name,
		LastUpdated:   r.now(),
		PointsHistory: []DailyRecord{},
	}
	r.accounts = append(r.accounts, a)
	return a
}

// Select 选中账户，未知id时不改变选择
func (r *Registry) Select(id string) bool {
	r.mu.Lock()
	ok := r.find(id) != nil
	if ok {
		r.selectedID = id
	}
	r.mu.Unlock()

	if ok {
		r.publish()
	}
	return ok
}

func (r *Registry) Selected() (Account, bool) {
	return r.Account(r.SelectedID())
}

func (r *Registry) SelectedID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selectedID
}

// Delete 删除账户及其全部记录，若为选中账户则清空选择
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	idx := -1
	for i, a := range r.accounts {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		r.accounts = append(r.accounts[:idx], r.accounts[idx+1:]...)
		if r.selectedID == id {
			r.selectedID = ""
		}
	}
	r.mu.Unlock()

	if idx < 0 {
		return false
	}
	r.publish()
	return true
}

// DeleteAll 删除全部账户，返回删除数量
func (r *Registry) DeleteAll() int {
	r.mu.Lock()
	n := len(r.accounts)
	r.accounts = nil
	r.selectedID = ""
	r.mu.Unlock()

	r.publish()
	return n
}

// mutate 对单个账户加锁修改并推送
func (r *Registry) mutate(id string, fn func(a *Account) error) (Account, error) {
	r.mu.Lock()
	a := r.find(id)
	if a == nil {
		r.mu.Unlock()
		return Account{}, xe.ErrAccountNotFound
	}
	if err := fn(a); err != nil {
		r.mu.Unlock()
		return Account{}, err
	}
	c := a.Clone()
	r.mu.Unlock()

	r.publish()
	return c, nil
}

func (r *Registry) Rename(id, name string) (Account, bool) {
	a, err := r.mutate(id, func(a *Account) error {
		a.Name = strings.TrimSpace(name)
		a.LastUpdated = r.now()
		return nil
	})
	return a, err == nil
}

// SetRiskDate day 为 nil 时清除风险标记
func (r *Registry) SetRiskDate(id string, day *time.Time) (Account, bool) {
	a, err := r.mutate(id, func(a *Account) error {
		if day == nil {
			a.RiskDate = nil
		} else {
			d := calday.Normalize(*day)
			a.RiskDate = &d
		}
		a.LastUpdated = r.now()
		return nil
	})
	return a, err == nil
}

func (r *Registry) SetLastLogin(id string, at time.Time) (Account, bool) {
	a, err := r.mutate(id, func(a *Account) error {
		t := at.UTC()
		a.LastLogin = &t
		a.LastUpdated = r.now()
		return nil
	})
	return a, err == nil
}

// RecordLogin 以当前时间作为登录时间
func (r *Registry) RecordLogin(id string) (Account, bool) {
	return r.SetLastLogin(id, r.now())
}

// Upsert 写入某账户某天的记录
func (r *Registry) Upsert(id string, day time.Time, e Entry) (DailyRecord, error) {
	var saved DailyRecord
	_, err := r.mutate(id, func(a *Account) error {
		var err error
		saved, err = a.Upsert(day, e, r.now())
		return err
	})
	return saved, err
}

func (r *Registry) AdjustBalances(id string, day time.Time, start, end float64) (DailyRecord, error) {
	if err := (Entry{StartBalance: start, EndBalance: end}).Validate(); err != nil {
		return DailyRecord{}, err
	}
	var saved DailyRecord
	_, err := r.mutate(id, func(a *Account) error {
		var err error
		saved, err = a.AdjustBalances(day, start, end, r.now())
		return err
	})
	return saved, err
}

// Snapshot 导出可持久化状态
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{Accounts: make([]Account, 0, len(r.accounts)), SelectedID: r.selectedID}
	for _, a := range r.accounts {
		s.Accounts = append(s.Accounts, a.Clone())
	}
	return s
}

// Restore 用持久化数据替换当前状态，选中的id不存在时忽略
func (r *Registry) Restore(s Snapshot) {
	r.mu.Lock()
	r.load(s.Accounts)
	if r.find(s.SelectedID) != nil {
		r.selectedID = s.SelectedID
	} else {
		r.selectedID = ""
	}
	r.mu.Unlock()

	r.publish()
}

// ReplaceAll 导入账户列表替换全部数据，保留仍然存在的选中账户
func (r *Registry) ReplaceAll(accounts []Account) {
	r.mu.Lock()
	r.load(accounts)
	if r.find(r.selectedID) == nil {
		r.selectedID = ""
	}
	r.mu.Unlock()

	r.publish()
}

func (r *Registry) load(accounts []Account) {
	r.accounts = make([]*Account, 0, len(accounts))
	for i := range accounts {
		a := accounts[i].Clone()
		if a.ID == "" {
			a.ID = r.newID()
		}
		if a.PointsHistory == nil {
			a.PointsHistory = []DailyRecord{}
		}
		a.normalize()
		r.accounts = append(r.accounts, &a)
	}
}

// Summaries 账户列表展示数据
func (r *Registry) Summaries(column string, desc bool) []Summary {
	now := r.now()

	r.mu.RLock()
	items := make([]Summary, 0, len(r.accounts))
	for _, a := range r.accounts {
		s := a.Summarize(now)
		s.Selected = a.ID == r.selectedID
		items = append(items, s)
	}
	r.mu.RUnlock()

	SortSummaries(items, column, desc)
	return items
}
