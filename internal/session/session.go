package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/connection"
	"github.com/rickgao/camsync/internal/event"
	"github.com/rickgao/camsync/internal/poller"
	"github.com/rickgao/camsync/internal/state"
)

// Sync is what a surface may do with the shared session.
type Sync interface {
	View() state.Snapshot
	OnChange(fn state.ChangeFunc)
	Subscribe(kind event.Kind, h event.Handler) event.Subscription
	Unsubscribe(sub event.Subscription) bool
	Send(data []byte) bool
	ConnectionState() connection.State
	PushAvailable() bool
}

// Config holds the settings for the parts a Session owns.
type Config struct {
	Connection connection.ManagerConfig
	Poller     poller.Config
}

// Stats aggregates the counters of every owned component.
type Stats struct {
	ID            string                  `json:"id"`
	PushAvailable bool                    `json:"push_available"`
	Connection    connection.ManagerStats `json:"connection"`
	Bus           event.BusStats          `json:"bus"`
	Poller        poller.Stats            `json:"poller"`
	Reconciler    state.ReconcilerStats   `json:"reconciler"`
}

// Session owns the bus, connection manager, poller and reconciler.
type Session struct {
	id     uuid.UUID
	logger *slog.Logger
	client *api.Client

	bus        *event.Bus
	manager    *connection.Manager
	poller     *poller.Poller
	reconciler *state.Reconciler

	mu      sync.Mutex
	started bool

	tapMu    sync.RWMutex
	pollTaps []func(state.Snapshot)

	pushLost atomic.Bool
}

var _ Sync = (*Session)(nil)

// ErrNotStarted is returned by Stop on a session that was never started.
var ErrNotStarted = errors.New("session not started")

// New builds a Session. Nothing runs until Start.
func New(cfg Config, client *api.Client, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	logger = logger.With("session_id", id.String())

	bus := event.NewBus(logger)
	reconciler := state.NewReconciler(logger)
	reconciler.Attach(bus)

	connCfg := cfg.Connection
	connCfg.Bus = bus

	s := &Session{
		id:         id,
		logger:     logger,
		client:     client,
		bus:        bus,
		reconciler: reconciler,
		manager:    connection.NewManager(connCfg, logger.With("component", "connection")),
	}
	s.poller = poller.New(cfg.Poller, client.GetStreamStatus, client.GetProgress,
		poller.SnapshotHandlerFunc(s.handlePoll), logger.With("component", "poller"))

	return s
}

// Start opens the push channel and begins polling.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	if err := s.poller.Start(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}
	s.connect()
	s.started = true

	s.logger.Info("session started")
	return nil
}

// Stop closes the push channel and waits for the poller to finish.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return ErrNotStarted
	}
	s.started = false

	s.manager.Disconnect()
	if err := s.poller.Stop(ctx); err != nil {
		return fmt.Errorf("stop poller: %w", err)
	}

	s.logger.Info("session stopped")
	return nil
}

// Reconnect retries the push channel after it was given up on. It does
// nothing while the channel is connecting or open.
func (s *Session) Reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.connect()
	}
}

func (s *Session) connect() {
	s.pushLost.Store(false)
	s.manager.Connect(nil, s.onPushError)
}

func (s *Session) onPushError(err error) {
	if errors.Is(err, connection.ErrMaxAttempts) {
		s.pushLost.Store(true)
		s.logger.Error("push channel unavailable, continuing on polling only", "error", err)
		return
	}
	s.logger.Debug("push channel error", "error", err)
}

// OnPoll registers fn to receive every raw poll snapshot after it has been
// applied to the view. Register before Start.
func (s *Session) OnPoll(fn func(state.Snapshot)) {
	s.tapMu.Lock()
	s.pollTaps = append(s.pollTaps, fn)
	s.tapMu.Unlock()
}

func (s *Session) handlePoll(snap state.Snapshot) {
	s.reconciler.HandleSnapshot(snap)

	s.tapMu.RLock()
	taps := s.pollTaps
	s.tapMu.RUnlock()
	for _, fn := range taps {
		fn(snap)
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// API returns the REST client the session polls with.
func (s *Session) API() *api.Client { return s.client }

// Bus returns the event bus.
func (s *Session) Bus() *event.Bus { return s.bus }

func (s *Session) View() state.Snapshot { return s.reconciler.CurrentView() }

func (s *Session) OnChange(fn state.ChangeFunc) { s.reconciler.OnChange(fn) }

func (s *Session) Subscribe(kind event.Kind, h event.Handler) event.Subscription {
	return s.bus.Subscribe(kind, h)
}

func (s *Session) Unsubscribe(sub event.Subscription) bool { return s.bus.Unsubscribe(sub) }

func (s *Session) Send(data []byte) bool { return s.manager.Send(data) }

func (s *Session) ConnectionState() connection.State { return s.manager.State() }

// PushAvailable is false once the push channel has exhausted its retries.
// The view is then kept current by polling alone.
func (s *Session) PushAvailable() bool { return !s.pushLost.Load() }

// Stats returns a snapshot of all component counters.
func (s *Session) Stats() Stats {
	return Stats{
		ID:            s.id.String(),
		PushAvailable: s.PushAvailable(),
		Connection:    s.manager.Stats(),
		Bus:           s.bus.Stats(),
		Poller:        s.poller.Stats(),
		Reconciler:    s.reconciler.Stats(),
	}
}
