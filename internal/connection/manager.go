package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/camsync/internal/event"
)

// Manager keeps the push channel open and reconnects with backoff.
type Manager struct {
	cfg       ManagerConfig
	logger    *slog.Logger
	newClient func(ClientConfig, *slog.Logger) Client

	mu       sync.Mutex
	state    State
	attempts int
	cur      *run // nil when no Connect is in effect
	client   Client
	timer    *time.Timer

	dials        atomic.Int64
	events       atomic.Int64
	decodeErrors atomic.Int64
	failures     atomic.Int64
}

// run is one Connect call's lifetime. Timers and loops belonging to an
// older run compare against m.cur and stand down.
type run struct {
	ctx     context.Context
	cancel  context.CancelFunc
	onEvent func(event.Event)
	onError func(error)
}

// NewManager creates a Manager in the Idle state.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultManagerConfig().MaxAttempts
	}

	return &Manager{
		cfg:       cfg,
		logger:    logger,
		newClient: NewClient,
	}
}

// Connect starts the push channel. It returns immediately; the dial happens
// in the background. Calling Connect while Connecting, Open, Reconnecting or
// Closing does nothing. From Idle or Closed it starts with a fresh failure count.
// Either callback may be nil.
func (m *Manager) Connect(onEvent func(event.Event), onError func(error)) {
	m.mu.Lock()
	switch m.state {
	case StateConnecting, StateOpen, StateReconnecting, StateClosing:
		m.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{ctx: ctx, cancel: cancel, onEvent: onEvent, onError: onError}
	m.cur = r
	m.attempts = 0
	from := m.setState(StateConnecting)
	m.mu.Unlock()

	m.notify(from, StateConnecting)
	m.logger.Info("connecting push channel", "url", m.cfg.Client.URL)

	go m.dial(r)
}

// Disconnect cancels any pending retry, closes the active connection and
// leaves the manager Closed. An active channel passes through Closing while
// it is torn down. Safe to call at any time, any number of times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	switch m.state {
	case StateClosing:
		m.mu.Unlock()
		return
	case StateIdle, StateClosed:
		from := m.setState(StateClosed)
		m.mu.Unlock()
		m.notify(from, StateClosed)
		return
	}

	r := m.cur
	m.cur = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	c := m.client
	m.client = nil
	from := m.setState(StateClosing)
	m.mu.Unlock()

	m.notify(from, StateClosing)

	if r != nil {
		r.cancel()
	}
	if c != nil {
		c.Close()
	}

	m.mu.Lock()
	from = m.setState(StateClosed)
	m.mu.Unlock()

	m.notify(from, StateClosed)
	m.logger.Info("push channel disconnected")
}

// Send writes data while Open. Otherwise the payload is dropped and Send
// returns false; nothing is queued.
func (m *Manager) Send(data []byte) bool {
	m.mu.Lock()
	if m.state != StateOpen || m.client == nil {
		m.mu.Unlock()
		return false
	}
	c := m.client
	m.mu.Unlock()

	if err := c.Send(data); err != nil {
		m.logger.Debug("send failed", "error", err)
		return false
	}
	return true
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempt returns the number of consecutive failures so far.
func (m *Manager) Attempt() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Stats returns counters for the manager's lifetime.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	state, attempts := m.state, m.attempts
	m.mu.Unlock()

	return ManagerStats{
		State:        state,
		Attempt:      attempts,
		Dials:        m.dials.Load(),
		Events:       m.events.Load(),
		DecodeErrors: m.decodeErrors.Load(),
		Failures:     m.failures.Load(),
	}
}

// setState must be called with mu held. It returns the previous state.
func (m *Manager) setState(to State) State {
	from := m.state
	m.state = to
	return from
}

func (m *Manager) notify(from, to State) {
	if from == to || m.cfg.OnStateChange == nil {
		return
	}
	m.cfg.OnStateChange(from, to)
}

func (m *Manager) dial(r *run) {
	c := m.newClient(m.cfg.Client, m.logger)
	m.dials.Add(1)

	err := c.Connect(r.ctx)

	m.mu.Lock()
	if m.cur != r {
		m.mu.Unlock()
		c.Close()
		return
	}
	if err != nil {
		m.mu.Unlock()
		c.Close()
		m.fail(r, "dial", err)
		return
	}
	m.client = c
	m.attempts = 0
	from := m.setState(StateOpen)
	m.mu.Unlock()

	m.notify(from, StateOpen)
	m.logger.Info("push channel open", "url", m.cfg.Client.URL)

	go m.pump(r, c)
}

// pump delivers frames from one client until it fails or the run ends.
func (m *Manager) pump(r *run, c Client) {
	for {
		select {
		case <-r.ctx.Done():
			return

		case msg := <-c.Messages():
			m.dispatch(r, msg.Data)

		case err := <-c.Errors():
			// Frames read before the failure still go out first.
			for drained := false; !drained; {
				select {
				case msg := <-c.Messages():
					m.dispatch(r, msg.Data)
				default:
					drained = true
				}
			}
			c.Close()

			op := "read"
			if err == ErrStaleConnection {
				op = "heartbeat"
			}
			m.fail(r, op, err)
			return
		}
	}
}

func (m *Manager) dispatch(r *run, data []byte) {
	if r.ctx.Err() != nil {
		return
	}

	ev, err := event.Decode(data)
	if err != nil {
		m.decodeErrors.Add(1)
		m.logger.Warn("dropping undecodable frame", "error", err, "bytes", len(data))
		if r.onError != nil {
			r.onError(err)
		}
		return
	}

	m.events.Add(1)
	m.logger.Debug("event received", "kind", ev.Kind())

	if m.cfg.Bus != nil {
		m.cfg.Bus.Publish(ev)
	}
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}

// fail counts a consecutive failure and either schedules a retry or gives up.
func (m *Manager) fail(r *run, op string, cause error) {
	m.failures.Add(1)

	m.mu.Lock()
	if m.cur != r {
		m.mu.Unlock()
		return
	}
	m.client = nil
	m.attempts++
	n := m.attempts

	if n >= m.cfg.MaxAttempts {
		m.cur = nil
		from := m.setState(StateClosed)
		m.mu.Unlock()

		r.cancel()
		m.notify(from, StateClosed)

		fatal := &TransportError{
			Op:      op,
			Attempt: n,
			Err:     fmt.Errorf("%w after %d attempts: %w", ErrMaxAttempts, n, cause),
		}
		m.logger.Error("push channel lost", "error", fatal)
		if r.onError != nil {
			r.onError(fatal)
		}
		return
	}

	delay := m.cfg.Backoff.NextDelay(n)
	from := m.setState(StateReconnecting)
	m.mu.Unlock()

	m.notify(from, StateReconnecting)
	m.logger.Warn("push channel failed, reconnecting",
		"op", op,
		"attempt", n,
		"delay", delay,
		"error", cause,
	)
	if m.cfg.OnReconnect != nil {
		m.cfg.OnReconnect(ReconnectAttempt{Count: n, NextDelay: delay, Err: cause})
	}

	// Arm the timer last so observers see this attempt before the next dial.
	m.mu.Lock()
	if m.cur == r && m.state == StateReconnecting {
		m.timer = time.AfterFunc(delay, func() { m.retry(r) })
	}
	m.mu.Unlock()
}

func (m *Manager) retry(r *run) {
	m.mu.Lock()
	if m.cur != r || m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	from := m.setState(StateConnecting)
	m.mu.Unlock()

	m.notify(from, StateConnecting)
	m.dial(r)
}
