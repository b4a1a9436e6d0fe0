package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/camsync/internal/event"
)

// Source names the channel an update arrived on.
type Source string

const (
	SourcePush Source = "push"
	SourcePoll Source = "poll"
)

// ChangeFunc is called with a copy of the view after an update changed it.
type ChangeFunc func(view Snapshot, source Source)

// ReconcilerStats contains runtime statistics.
type ReconcilerStats struct {
	PushApplied int64     // Events that changed the view
	PollApplied int64     // Poll snapshots that changed the view
	Ignored     int64     // Updates that carried nothing new
	LastPushAt  time.Time // Arrival of the last push update
	LastPollAt  time.Time // Arrival of the last poll update
}

// Reconciler merges push events and poll snapshots into one view.
type Reconciler struct {
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	view      Snapshot
	stats     ReconcilerStats
	listeners []ChangeFunc
	seq       uint64 // Commits that changed the view

	// notifyMu serializes listener calls. delivered is the seq of the last
	// view handed to listeners; older views are never delivered after it.
	notifyMu  sync.Mutex
	delivered uint64
}

// NewReconciler creates a Reconciler with an empty view.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		logger: logger,
		now:    time.Now,
	}
}

// ApplyEvent folds a push event into the view. It reports whether the view
// changed. Events that carry no state (Unknown) are ignored.
func (r *Reconciler) ApplyEvent(ev event.Event) bool {
	if ev == nil {
		return false
	}
	update, ok := r.fromEvent(ev)
	if !ok {
		return false
	}
	return r.apply(update, SourcePush)
}

// ApplyPollSnapshot folds a polled snapshot into the view. It reports whether
// the view changed.
func (r *Reconciler) ApplyPollSnapshot(s Snapshot) bool {
	return r.apply(s, SourcePoll)
}

// HandleSnapshot lets the Reconciler act as a poller handler.
func (r *Reconciler) HandleSnapshot(s Snapshot) {
	r.ApplyPollSnapshot(s)
}

// CurrentView returns a copy of the merged view.
func (r *Reconciler) CurrentView() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view.Clone()
}

// OnChange registers fn to run after an update changes the view. Listeners
// see views in commit order; when updates race, a view already superseded
// by a delivered one is skipped. fn must not apply updates itself.
func (r *Reconciler) OnChange(fn ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Stats returns current statistics.
func (r *Reconciler) Stats() ReconcilerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Attach subscribes the Reconciler to every state-bearing event kind on bus.
// The returned subscriptions can be passed to bus.Unsubscribe on teardown.
func (r *Reconciler) Attach(bus *event.Bus) []event.Subscription {
	kinds := []event.Kind{
		event.KindMotion,
		event.KindStatus,
		event.KindProgress,
		event.KindClipQueued,
		event.KindClipStarted,
		event.KindClipComplete,
		event.KindClipError,
	}

	subs := make([]event.Subscription, 0, len(kinds))
	for _, kind := range kinds {
		subs = append(subs, bus.Subscribe(kind, func(ev event.Event) error {
			r.ApplyEvent(ev)
			return nil
		}))
	}
	return subs
}

func (r *Reconciler) apply(update Snapshot, source Source) bool {
	r.mu.Lock()
	now := r.now()
	switch source {
	case SourcePush:
		r.stats.LastPushAt = now
	case SourcePoll:
		r.stats.LastPollAt = now
	}

	next := r.view.Merge(update)
	if next.Equal(r.view) {
		r.stats.Ignored++
		r.mu.Unlock()
		return false
	}

	r.view = next
	if source == SourcePush {
		r.stats.PushApplied++
	} else {
		r.stats.PollApplied++
	}
	r.seq++
	seq := r.seq
	listeners := r.listeners
	r.mu.Unlock()

	r.logger.Debug("view updated", "source", source, "seq", seq)
	r.notify(seq, next, source, listeners)
	return true
}

func (r *Reconciler) notify(seq uint64, view Snapshot, source Source, listeners []ChangeFunc) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	if seq <= r.delivered {
		r.logger.Debug("skipping superseded view", "seq", seq, "delivered", r.delivered)
		return
	}
	r.delivered = seq

	for _, fn := range listeners {
		fn(view.Clone(), source)
	}
}

// fromEvent maps an event onto the snapshot fields it carries.
func (r *Reconciler) fromEvent(ev event.Event) (Snapshot, bool) {
	switch e := ev.(type) {
	case event.Motion:
		return Snapshot{MotionDetected: e.Detected}, true
	case event.Status:
		return Snapshot{
			IsStreaming:    e.IsStreaming,
			IsRecording:    e.IsRecording,
			MotionDetected: e.MotionDetected,
			CameraIndex:    e.CameraIndex,
			RTSPURL:        e.RTSPURL,
		}, true
	case event.Progress:
		return Snapshot{
			SecondsProcessed: e.SecondsProcessed,
			ClipsProcessed:   e.ClipsProcessed,
		}, true
	case event.ClipQueued:
		return r.clip(e.ClipPath, ClipQueued, ""), true
	case event.ClipStarted:
		s := r.clip(e.ClipPath, ClipProcessing, "")
		s.IsProcessing = event.Ptr(true)
		return s, true
	case event.ClipComplete:
		s := r.clip(e.ClipPath, ClipComplete, "")
		s.IsProcessing = event.Ptr(false)
		return s, true
	case event.ClipError:
		s := r.clip(e.ClipPath, ClipFailed, e.Error)
		s.IsProcessing = event.Ptr(false)
		return s, true
	case event.Unknown:
		return Snapshot{}, false
	default:
		r.logger.Warn("unhandled event variant", "kind", ev.Kind())
		return Snapshot{}, false
	}
}

func (r *Reconciler) clip(path string, phase ClipPhase, errMsg string) Snapshot {
	return Snapshot{
		LastClip: &ClipActivity{
			Path:      path,
			Phase:     phase,
			Error:     errMsg,
			UpdatedAt: r.now(),
		},
	}
}
