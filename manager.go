// Package walletsession tracks a browser-style wallet connection: it detects an
// injected provider, connects an account, keeps its native balance current and
// follows the provider's account and disconnect notifications.
//
// A Manager owns exactly one session. Create it at application start, hand it
// to consumers (directly or through WithManager), and Close it on shutdown.
package walletsession

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultBalanceTimeout bounds a single balance query
const DefaultBalanceTimeout = 30 * time.Second

type registeredListener struct {
	name EventName
	id   ListenerID
}

// Manager is the wallet session state machine
type Manager struct {
	id             string
	provider       Provider
	logger         *zap.Logger
	balanceTimeout time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	connects singleflight.Group
	fetches  sync.WaitGroup
	notify   chan struct{}
	loopDone chan struct{}

	closeOnce sync.Once
	// set while notifyLoop runs subscriber callbacks
	dispatching atomic.Bool

	mu          sync.RWMutex
	account     string
	balance     string
	generation  uint64
	version     uint64
	closed      bool
	listeners   []registeredListener
	subscribers map[uint64]func(Session)
	nextSubID   uint64
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLogger sets the logger used for provider failures and transitions
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithBalanceTimeout bounds each balance query
func WithBalanceTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.balanceTimeout = timeout
		}
	}
}

// WithSessionID overrides the generated session identifier
func WithSessionID(id string) ManagerOption {
	return func(m *Manager) {
		if id != "" {
			m.id = id
		}
	}
}

// NewManager detects the wallet provider in env once and subscribes to its
// notifications. A nil env, or one without a supported wallet, yields a
// manager that stays in StateNoProvider for its whole lifetime.
func NewManager(env Environment, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		id:             uuid.New().String(),
		logger:         zap.NewNop(),
		balanceTimeout: DefaultBalanceTimeout,
		ctx:            ctx,
		cancel:         cancel,
		notify:         make(chan struct{}, 1),
		loopDone:       make(chan struct{}),
		subscribers:    make(map[uint64]func(Session)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(zap.String("session", m.id))

	m.provider = DetectProvider(env)
	if m.provider.Kind() == ProviderNone {
		m.logger.Info("no wallet provider detected")
	} else {
		m.logger.Info("wallet provider detected", zap.Stringer("provider", m.provider.Kind()))
		m.subscribe()
	}

	go m.notifyLoop()
	return m
}

func (m *Manager) subscribe() {
	source := m.provider.events()
	for _, name := range m.provider.subscribedEvents() {
		id := source.On(name, m.handleEvent)
		m.listeners = append(m.listeners, registeredListener{name: name, id: id})
	}
}

// ID returns the session identifier
func (m *Manager) ID() string {
	m.mustBeOpen()
	return m.id
}

// Provider returns the detected provider
func (m *Manager) Provider() Provider {
	m.mustBeOpen()
	return m.provider
}

// Session returns the current snapshot
func (m *Manager) Session() Session {
	m.mustBeOpen()
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// State returns the current state machine position
func (m *Manager) State() State {
	return m.Session().State()
}

// Connect requests account access from the provider. On success the first
// returned account becomes active and a balance fetch is started. On failure
// the session is left untouched, the failure is logged, and a *SessionError
// (ErrNoProviderFound or ErrConnectionRejected) is returned for inspection.
//
// Overlapping calls share a single provider request.
func (m *Manager) Connect(ctx context.Context) error {
	m.mustBeOpen()

	if m.provider.Kind() == ProviderNone {
		m.logger.Info("connect ignored, no wallet provider")
		return ErrNoProviderFound
	}

	_, err, _ := m.connects.Do("connect", func() (interface{}, error) {
		account, err := m.provider.requestAccount(ctx)
		if err != nil {
			sessionErr := classifyConnectError(err)
			m.logger.Warn("wallet connection failed",
				zap.Stringer("provider", m.provider.Kind()),
				zap.Error(sessionErr))
			return nil, sessionErr
		}
		m.logger.Info("wallet connected", zap.String("account", account))
		m.setAccount(account, true)
		return account, nil
	})
	return err
}

// Disconnect clears the account and balance. It never talks to the provider
// and is safe to call in any state.
func (m *Manager) Disconnect() {
	m.mustBeOpen()
	m.clearAccount()
}

// Subscribe registers fn to receive snapshots after every change. Delivery is
// asynchronous and ordered; fn always sees the latest snapshot, so a burst of
// changes may be coalesced. The returned function removes the subscription.
func (m *Manager) Subscribe(fn func(Session)) (cancel func()) {
	m.mustBeOpen()

	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subscribers, id)
			m.mu.Unlock()
		})
	}
}

// Close removes the provider listeners registered at construction, cancels
// in-flight balance queries and waits for them. Using the manager afterwards
// panics with ErrInvalidContextUse.
//
// Close does not wait for a subscriber callback that is already running, so
// a callback may call Close itself. No further callbacks run after Close.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		listeners := m.listeners
		m.listeners = nil
		m.subscribers = nil
		m.mu.Unlock()

		if source := m.provider.events(); source != nil {
			for _, l := range listeners {
				if !source.RemoveListener(l.name, l.id) {
					m.logger.Warn("provider listener already removed", zap.String("event", string(l.name)))
				}
			}
		}

		m.cancel()
		m.fetches.Wait()
		if !m.dispatching.Load() {
			<-m.loopDone
		}
		m.logger.Debug("session closed")
	})
	return nil
}

// ============================================================================
// Internal transitions
// ============================================================================

func (m *Manager) handleEvent(ev Event) {
	switch ev.Name {
	case EventAccountsChanged, EventAccountChanged:
		account, ok := parseEventAccount(ev)
		if !ok {
			m.logger.Info("wallet accounts removed")
			m.clearAccount()
			return
		}
		m.logger.Debug("wallet account changed", zap.String("account", account))
		m.setAccount(account, false)
	case EventDisconnect:
		m.logger.Info("wallet provider disconnected", zap.Error(ev.Err))
		m.clearAccount()
	}
}

// setAccount activates account. A change of account drops the old balance and
// starts a fetch for the new one; refresh forces a fetch for an unchanged
// account.
func (m *Manager) setAccount(account string, refresh bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	changed := m.account != account
	if !changed && !refresh {
		m.mu.Unlock()
		return
	}
	if changed {
		m.account = account
		m.balance = ""
		m.generation++
		m.version++
	}
	generation := m.generation
	m.fetches.Add(1)
	m.mu.Unlock()

	if changed {
		m.publish()
	}
	go m.refreshBalance(account, generation)
}

func (m *Manager) clearAccount() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	// invalidates any balance query still in flight
	m.generation++
	if m.account == "" && m.balance == "" {
		m.mu.Unlock()
		return
	}
	m.account = ""
	m.balance = ""
	m.version++
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) refreshBalance(account string, generation uint64) {
	defer m.fetches.Done()

	ctx, cancel := context.WithTimeout(m.ctx, m.balanceTimeout)
	defer cancel()

	balance, err := m.provider.fetchBalance(ctx, account)
	if err != nil {
		m.logger.Warn("balance fetch failed",
			zap.String("account", account),
			zap.Error(NewSessionError(ErrCodeBalanceFetchFailed, "balance query failed", err)))
		return
	}

	m.mu.Lock()
	if m.closed || m.generation != generation || m.account != account {
		m.mu.Unlock()
		m.logger.Debug("discarding stale balance", zap.String("account", account))
		return
	}
	if m.balance == balance {
		m.mu.Unlock()
		return
	}
	m.balance = balance
	m.version++
	m.mu.Unlock()

	m.publish()
}

func (m *Manager) publish() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *Manager) notifyLoop() {
	defer close(m.loopDone)

	var delivered uint64
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.notify:
		}

		m.mu.RLock()
		snapshot := m.snapshotLocked()
		subscribers := make([]func(Session), 0, len(m.subscribers))
		for _, fn := range m.subscribers {
			subscribers = append(subscribers, fn)
		}
		m.mu.RUnlock()

		if snapshot.Version <= delivered {
			continue
		}
		delivered = snapshot.Version
		m.dispatching.Store(true)
		for _, fn := range subscribers {
			if m.ctx.Err() != nil {
				break
			}
			fn(snapshot)
		}
		m.dispatching.Store(false)
	}
}

func (m *Manager) snapshotLocked() Session {
	return Session{
		ID:       m.id,
		Version:  m.version,
		Provider: m.provider.Kind(),
		Account:  m.account,
		Balance:  m.balance,
	}
}

func (m *Manager) mustBeOpen() {
	if m == nil {
		panic(ErrInvalidContextUse)
	}
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		panic(NewSessionError(ErrCodeInvalidContextUse, "session manager is closed", nil))
	}
}

func classifyConnectError(err error) *SessionError {
	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		return sessionErr
	}
	if IsUserRejected(err) {
		return NewSessionError(ErrCodeConnectionRejected, "user rejected the account request", err)
	}
	return NewSessionError(ErrCodeConnectionRejected, "account request failed", err)
}
