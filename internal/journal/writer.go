package journal

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rickgao/camsync/internal/event"
	"github.com/rickgao/camsync/internal/state"
)

// KindSnapshot is the kind recorded for poll snapshots.
const KindSnapshot = "snapshot"

// BatchSender sends a pgx batch. *pgxpool.Pool implements it.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config holds batching settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	BufferSize    int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     200,
		FlushInterval: time.Second,
		BufferSize:    4096,
	}
}

// Metrics counts journal activity.
type Metrics struct {
	Inserts int64
	Dropped int64
	Errors  int64
	Flushes int64
}

// row is one sync_events record.
type row struct {
	SessionID  uuid.UUID
	ReceivedAt int64 // Unix microseconds
	Source     state.Source
	Kind       string
	Payload    []byte
}

// flushTimeout bounds an insert started by the background loops. Those
// inserts outlive cancellation of the run so Stop never strands a batch.
const flushTimeout = 10 * time.Second

const insertSQL = `
	INSERT INTO sync_events (session_id, received_at, source, kind, payload)
	VALUES ($1, $2, $3, $4, $5)
`

// Writer batches rows into sync_events.
type Writer struct {
	cfg       Config
	sessionID uuid.UUID
	db        BatchSender
	logger    *slog.Logger
	now       func() time.Time

	input chan row

	batch   []row
	batchMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewWriter creates a Writer for one session.
func NewWriter(cfg Config, sessionID uuid.UUID, db BatchSender, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaults.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	return &Writer{
		cfg:       cfg,
		sessionID: sessionID,
		db:        db,
		logger:    logger,
		now:       time.Now,
		input:     make(chan row, cfg.BufferSize),
		batch:     make([]row, 0, cfg.BatchSize),
	}
}

// Attach subscribes the writer to every event kind on bus.
func (w *Writer) Attach(bus *event.Bus) []event.Subscription {
	subs := make([]event.Subscription, 0, len(event.Kinds))
	for _, kind := range event.Kinds {
		subs = append(subs, bus.Subscribe(kind, func(ev event.Event) error {
			w.RecordEvent(ev)
			return nil
		}))
	}
	return subs
}

// RecordEvent queues a push event.
func (w *Writer) RecordEvent(ev event.Event) {
	payload, err := event.Encode(ev)
	if err != nil {
		w.logger.Warn("cannot encode event for journal", "kind", ev.Kind(), "error", err)
		return
	}
	w.enqueue(row{
		SessionID:  w.sessionID,
		ReceivedAt: w.now().UnixMicro(),
		Source:     state.SourcePush,
		Kind:       string(ev.Kind()),
		Payload:    payload,
	})
}

// RecordSnapshot queues a poll snapshot.
func (w *Writer) RecordSnapshot(s state.Snapshot) {
	payload, err := json.Marshal(s)
	if err != nil {
		w.logger.Warn("cannot encode snapshot for journal", "error", err)
		return
	}
	w.enqueue(row{
		SessionID:  w.sessionID,
		ReceivedAt: w.now().UnixMicro(),
		Source:     state.SourcePoll,
		Kind:       KindSnapshot,
		Payload:    payload,
	})
}

func (w *Writer) enqueue(r row) {
	select {
	case w.input <- r:
	default:
		w.batchMu.Lock()
		w.metrics.Dropped++
		w.batchMu.Unlock()
		w.logger.Warn("journal buffer full, dropping row", "kind", r.Kind)
	}
}

// Start begins consuming rows and writing to the database.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop drains queued rows and performs a final flush.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
		return ctx.Err()
	}

	for drained := false; !drained; {
		select {
		case r := <-w.input:
			w.add(r)
		default:
			drained = true
		}
	}
	w.flush(ctx)

	w.logger.Info("journal writer stopped")
	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case r := <-w.input:
			if w.add(r) {
				w.loopFlush()
			}
		}
	}
}

func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.loopFlush()
		}
	}
}

// loopFlush flushes with a context detached from the run's cancellation.
func (w *Writer) loopFlush() {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(w.ctx), flushTimeout)
	defer cancel()
	w.flush(ctx)
}

// add appends a row and reports whether the batch is full.
func (w *Writer) add(r row) bool {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	w.batch = append(w.batch, r)
	return len(w.batch) >= w.cfg.BatchSize
}

func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]row, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("journal insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal", "count", len(batch), "duration", time.Since(start))
}

func (w *Writer) batchInsert(ctx context.Context, rows []row) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertSQL, r.SessionID, r.ReceivedAt, string(r.Source), r.Kind, r.Payload)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
