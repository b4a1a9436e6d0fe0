package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/state"
)

// StatusFunc fetches the stream status. (*api.Client).GetStreamStatus fits.
type StatusFunc func(ctx context.Context) (*api.StreamStatus, error)

// ProgressFunc fetches processing progress. (*api.Client).GetProgress fits.
type ProgressFunc func(ctx context.Context) (*api.Progress, error)

// SnapshotHandler receives merged poll snapshots.
type SnapshotHandler interface {
	HandleSnapshot(snapshot state.Snapshot)
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(state.Snapshot)

func (f SnapshotHandlerFunc) HandleSnapshot(s state.Snapshot) {
	f(s)
}

// Config holds poller configuration.
type Config struct {
	Interval time.Duration // Poll interval (default: 2s)
	Timeout  time.Duration // Per-cycle timeout covering both requests (default: 5s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: 2 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Stats counts poll outcomes since Start.
type Stats struct {
	Cycles         int64
	Emitted        int64
	StatusErrors   int64
	ProgressErrors int64
	Empty          int64 // Cycles where both requests failed
}

// Poller periodically fetches status and progress via REST API.
type Poller struct {
	cfg      Config
	status   StatusFunc
	progress ProgressFunc
	handler  SnapshotHandler
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// emitMu makes the stopped check and the handler call one step, so a
	// Stop that returns has seen the last emit finish.
	emitMu  sync.Mutex
	stopped bool

	beforeEmit func() // test hook

	cycles         atomic.Int64
	emitted        atomic.Int64
	statusErrors   atomic.Int64
	progressErrors atomic.Int64
	empty          atomic.Int64
}

// New creates a new Poller. Either fetcher may be nil to skip it.
func New(cfg Config, status StatusFunc, progress ProgressFunc, handler SnapshotHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &Poller{
		cfg:      cfg,
		status:   status,
		progress: progress,
		handler:  handler,
		logger:   logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.emitMu.Lock()
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.stopped = false
	p.emitMu.Unlock()

	p.wg.Add(1)
	go p.run()

	p.logger.Info("status poller started", "interval", p.cfg.Interval)

	return nil
}

// Stop gracefully shuts down the poller. A cycle still in flight when Stop
// is called emits nothing. The handler must not call Stop.
func (p *Poller) Stop(ctx context.Context) error {
	p.emitMu.Lock()
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	p.emitMu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("status poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns poll counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Cycles:         p.cycles.Load(),
		Emitted:        p.emitted.Load(),
		StatusErrors:   p.statusErrors.Load(),
		ProgressErrors: p.progressErrors.Load(),
		Empty:          p.empty.Load(),
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

// pollOnce runs one cycle: both fetches in parallel, merge, emit.
func (p *Poller) pollOnce() {
	start := time.Now()
	p.cycles.Add(1)

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	var (
		status   *api.StreamStatus
		progress *api.Progress
	)

	// Each goroutine returns nil so one failure never cancels the other.
	var g errgroup.Group
	if p.status != nil {
		g.Go(func() error {
			s, err := p.status(ctx)
			if err != nil {
				p.statusErrors.Add(1)
				p.logger.Warn("failed to poll stream status", "err", err)
				return nil
			}
			status = s
			return nil
		})
	}
	if p.progress != nil {
		g.Go(func() error {
			pr, err := p.progress(ctx)
			if err != nil {
				p.progressErrors.Add(1)
				p.logger.Warn("failed to poll progress", "err", err)
				return nil
			}
			progress = pr
			return nil
		})
	}
	g.Wait()

	snap := Merge(status, progress)
	if snap.IsEmpty() {
		p.empty.Add(1)
		p.logger.Debug("poll cycle produced nothing", "duration", time.Since(start))
		return
	}

	if p.beforeEmit != nil {
		p.beforeEmit()
	}
	if !p.emit(snap) {
		return
	}

	p.logger.Debug("poll cycle complete",
		"status", status != nil,
		"progress", progress != nil,
		"duration", time.Since(start),
	)
}

// emit hands snap to the handler unless Stop has been called.
func (p *Poller) emit(snap state.Snapshot) bool {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	if p.stopped || p.ctx.Err() != nil {
		return false
	}
	if p.handler != nil {
		p.handler.HandleSnapshot(snap)
	}
	p.emitted.Add(1)
	return true
}

// Merge builds one partial snapshot from whichever responses are present.
func Merge(status *api.StreamStatus, progress *api.Progress) state.Snapshot {
	var s state.Snapshot
	if status != nil {
		s.IsStreaming = ptr(status.IsStreaming)
		s.IsRecording = ptr(status.IsRecording)
		s.MotionDetected = ptr(status.MotionDetected)
		if status.CameraIndex != nil {
			s.CameraIndex = ptr(*status.CameraIndex)
		}
		if status.RTSPURL != nil {
			s.RTSPURL = ptr(*status.RTSPURL)
		}
	}
	if progress != nil {
		s.SecondsProcessed = ptr(progress.SecondsProcessed)
		s.ClipsProcessed = ptr(progress.ClipsProcessed)
		s.QueueLength = ptr(progress.QueueLength)
		s.IsProcessing = ptr(progress.IsProcessing)
	}
	return s
}

func ptr[T any](v T) *T { return &v }
