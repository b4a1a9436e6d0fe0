// Package archive copies finished clips from the server into object storage.
// A clip is archived once the server reports processing_complete for it.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/event"
)

// ErrQueueFull is returned by Enqueue when the backlog is at capacity.
var ErrQueueFull = errors.New("archive queue full")

// VideoSource downloads clips. *api.Client implements it.
type VideoSource interface {
	GetVideo(ctx context.Context, clipPath string) (*api.Video, error)
}

// Config holds archiver settings.
type Config struct {
	QueueSize     int
	UploadTimeout time.Duration
}

// DefaultConfig returns default settings.
func DefaultConfig() Config {
	return Config{
		QueueSize:     64,
		UploadTimeout: 5 * time.Minute,
	}
}

// Stats counts archiver activity.
type Stats struct {
	Archived int64
	Failed   int64
	Dropped  int64
	Bytes    int64
}

// Archiver uploads clips one at a time from a bounded queue.
type Archiver struct {
	cfg    Config
	src    VideoSource
	store  ObjectStore
	prefix string
	logger *slog.Logger

	queue chan string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	archived atomic.Int64
	failed   atomic.Int64
	dropped  atomic.Int64
	bytes    atomic.Int64
}

// New creates an Archiver. Objects are stored under prefix, normally the
// session id.
func New(cfg Config, src VideoSource, store ObjectStore, prefix string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = DefaultConfig().UploadTimeout
	}
	return &Archiver{
		cfg:    cfg,
		src:    src,
		store:  store,
		prefix: prefix,
		logger: logger,
		queue:  make(chan string, cfg.QueueSize),
	}
}

// Key returns the object key a clip is stored under.
func (a *Archiver) Key(clipPath string) string {
	return a.prefix + "/" + path.Base(clipPath)
}

// Attach queues every clip the bus reports as complete.
func (a *Archiver) Attach(bus *event.Bus) event.Subscription {
	return bus.Subscribe(event.KindClipComplete, func(ev event.Event) error {
		done, ok := ev.(event.ClipComplete)
		if !ok || done.ClipPath == "" {
			return nil
		}
		if err := a.Enqueue(done.ClipPath); err != nil {
			a.logger.Warn("clip not archived", "clip", done.ClipPath, "error", err)
		}
		return nil
	})
}

// Enqueue schedules one clip for upload without blocking.
func (a *Archiver) Enqueue(clipPath string) error {
	select {
	case a.queue <- clipPath:
		return nil
	default:
		a.dropped.Add(1)
		return ErrQueueFull
	}
}

// Start runs the upload worker.
func (a *Archiver) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go a.run()

	a.logger.Info("archiver started", "prefix", a.prefix)
	return nil
}

// Stop cancels any upload in progress and waits for the worker. Queued clips
// that were not started are left behind.
func (a *Archiver) Stop(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("archiver stopped", "pending", len(a.queue))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns archiver counters.
func (a *Archiver) Stats() Stats {
	return Stats{
		Archived: a.archived.Load(),
		Failed:   a.failed.Load(),
		Dropped:  a.dropped.Load(),
		Bytes:    a.bytes.Load(),
	}
}

func (a *Archiver) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case clip := <-a.queue:
			if err := a.archive(clip); err != nil {
				a.failed.Add(1)
				a.logger.Warn("archive failed", "clip", clip, "error", err)
			}
		}
	}
}

func (a *Archiver) archive(clipPath string) error {
	ctx, cancel := context.WithTimeout(a.ctx, a.cfg.UploadTimeout)
	defer cancel()

	video, err := a.src.GetVideo(ctx, clipPath)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer video.Close()

	body := &countingReader{r: video.Body}
	key := a.Key(clipPath)
	if err := a.store.Put(ctx, key, body, video.Size, video.ContentType); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	a.archived.Add(1)
	a.bytes.Add(body.n)
	a.logger.Info("clip archived", "clip", clipPath, "key", key, "bytes", body.n)
	return nil
}
