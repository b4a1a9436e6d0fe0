package state

import (
	"sync"
	"testing"
	"time"

	"github.com/rickgao/camsync/internal/event"
)

func TestReconciler_PartialUpdates(t *testing.T) {
	r := NewReconciler(nil)

	r.ApplyEvent(event.Progress{SecondsProcessed: event.Ptr(12)})
	r.ApplyPollSnapshot(Snapshot{ClipsProcessed: event.Ptr(3)})

	view := r.CurrentView()
	if got := Int(view.SecondsProcessed); got != 12 {
		t.Errorf("SecondsProcessed = %d, want 12", got)
	}
	if got := Int(view.ClipsProcessed); got != 3 {
		t.Errorf("ClipsProcessed = %d, want 3", got)
	}
	if view.IsStreaming != nil {
		t.Errorf("IsStreaming = %v, want nil", *view.IsStreaming)
	}
}

func TestReconciler_LastWriterWins(t *testing.T) {
	r := NewReconciler(nil)

	r.ApplyEvent(event.Progress{SecondsProcessed: event.Ptr(64), ClipsProcessed: event.Ptr(4)})
	// A stale poll that arrives later still wins; arrival order is the only
	// recency signal available.
	r.ApplyPollSnapshot(Snapshot{SecondsProcessed: event.Ptr(48)})

	view := r.CurrentView()
	if got := Int(view.SecondsProcessed); got != 48 {
		t.Errorf("SecondsProcessed = %d, want 48", got)
	}
	if got := Int(view.ClipsProcessed); got != 4 {
		t.Errorf("ClipsProcessed = %d, want 4", got)
	}

	r.ApplyEvent(event.Motion{Detected: event.Ptr(true)})
	r.ApplyPollSnapshot(Snapshot{MotionDetected: event.Ptr(false)})
	r.ApplyEvent(event.Motion{Detected: event.Ptr(true)})

	if !Bool(r.CurrentView().MotionDetected) {
		t.Error("MotionDetected = false, want true")
	}
}

func TestReconciler_StatusEvent(t *testing.T) {
	r := NewReconciler(nil)

	r.ApplyEvent(event.Status{
		IsStreaming:    event.Ptr(true),
		IsRecording:    event.Ptr(true),
		MotionDetected: event.Ptr(false),
		CameraIndex:    event.Ptr(1),
	})
	r.ApplyEvent(event.Status{IsRecording: event.Ptr(false)})

	view := r.CurrentView()
	if !Bool(view.IsStreaming) {
		t.Error("IsStreaming = false, want true")
	}
	if Bool(view.IsRecording) {
		t.Error("IsRecording = true, want false")
	}
	if got := Int(view.CameraIndex); got != 1 {
		t.Errorf("CameraIndex = %d, want 1", got)
	}
}

func TestReconciler_ClipLifecycle(t *testing.T) {
	r := NewReconciler(nil)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.ApplyEvent(event.ClipQueued{ClipPath: "clip_0001.mp4"})
	if got := r.CurrentView().LastClip; got == nil || got.Phase != ClipQueued {
		t.Fatalf("LastClip = %+v, want phase %q", got, ClipQueued)
	}

	r.ApplyEvent(event.ClipStarted{ClipPath: "clip_0001.mp4"})
	view := r.CurrentView()
	if view.LastClip.Phase != ClipProcessing {
		t.Errorf("Phase = %q, want %q", view.LastClip.Phase, ClipProcessing)
	}
	if !Bool(view.IsProcessing) {
		t.Error("IsProcessing = false, want true")
	}

	r.ApplyEvent(event.ClipError{ClipPath: "clip_0001.mp4", Error: "model timeout"})
	view = r.CurrentView()
	if view.LastClip.Phase != ClipFailed {
		t.Errorf("Phase = %q, want %q", view.LastClip.Phase, ClipFailed)
	}
	if view.LastClip.Error != "model timeout" {
		t.Errorf("Error = %q, want %q", view.LastClip.Error, "model timeout")
	}
	if Bool(view.IsProcessing) {
		t.Error("IsProcessing = true, want false")
	}
	if !view.LastClip.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", view.LastClip.UpdatedAt, fixed)
	}
}

func TestReconciler_UnknownIgnored(t *testing.T) {
	r := NewReconciler(nil)

	if r.ApplyEvent(event.Unknown{Tag: "ping"}) {
		t.Error("ApplyEvent(Unknown) = true, want false")
	}
	if r.ApplyEvent(nil) {
		t.Error("ApplyEvent(nil) = true, want false")
	}
	if !r.CurrentView().IsEmpty() {
		t.Errorf("view = %+v, want empty", r.CurrentView())
	}
}

func TestReconciler_CurrentViewIsCopy(t *testing.T) {
	r := NewReconciler(nil)
	r.ApplyPollSnapshot(Snapshot{ClipsProcessed: event.Ptr(5)})

	view := r.CurrentView()
	*view.ClipsProcessed = 99

	if got := Int(r.CurrentView().ClipsProcessed); got != 5 {
		t.Errorf("ClipsProcessed = %d, want 5", got)
	}
}

func TestReconciler_OnChange(t *testing.T) {
	r := NewReconciler(nil)

	var calls []Source
	r.OnChange(func(view Snapshot, source Source) {
		calls = append(calls, source)
	})

	r.ApplyEvent(event.Motion{Detected: event.Ptr(true)})
	r.ApplyEvent(event.Motion{Detected: event.Ptr(true)}) // no change
	r.ApplyPollSnapshot(Snapshot{MotionDetected: event.Ptr(false)})
	r.ApplyPollSnapshot(Snapshot{})

	if len(calls) != 2 {
		t.Fatalf("calls = %v, want 2 entries", calls)
	}
	if calls[0] != SourcePush || calls[1] != SourcePoll {
		t.Errorf("calls = %v, want [push poll]", calls)
	}

	stats := r.Stats()
	if stats.PushApplied != 1 || stats.PollApplied != 1 || stats.Ignored != 2 {
		t.Errorf("stats = %+v, want 1 push, 1 poll, 2 ignored", stats)
	}
}

func TestReconciler_OnChangeFollowsCommitOrder(t *testing.T) {
	r := NewReconciler(nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu       sync.Mutex
		notified []int
	)
	r.OnChange(func(view Snapshot, source Source) {
		mu.Lock()
		first := len(notified) == 0
		notified = append(notified, Int(view.SecondsProcessed))
		mu.Unlock()
		if first {
			close(entered)
			<-release
		}
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.ApplyEvent(event.Progress{SecondsProcessed: event.Ptr(1)})
	}()
	<-entered

	// The poll commits while the first listener call is still running.
	go func() {
		defer wg.Done()
		r.ApplyPollSnapshot(Snapshot{SecondsProcessed: event.Ptr(2)})
	}()
	deadline := time.Now().Add(2 * time.Second)
	for Int(r.CurrentView().SecondsProcessed) != 2 {
		if time.Now().After(deadline) {
			t.Fatal("poll update not committed")
		}
		time.Sleep(time.Millisecond)
	}

	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
		t.Errorf("notified = %v, want [1 2]", notified)
	}
}

func TestReconciler_LastNotificationMatchesView(t *testing.T) {
	r := NewReconciler(nil)

	var (
		mu   sync.Mutex
		last int
		seen int
	)
	r.OnChange(func(view Snapshot, source Source) {
		mu.Lock()
		last = Int(view.SecondsProcessed)
		seen++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 200; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				r.ApplyEvent(event.Progress{SecondsProcessed: event.Ptr(n)})
			} else {
				r.ApplyPollSnapshot(Snapshot{SecondsProcessed: event.Ptr(n)})
			}
		}(i)
	}
	wg.Wait()

	want := Int(r.CurrentView().SecondsProcessed)
	mu.Lock()
	defer mu.Unlock()
	if last != want {
		t.Errorf("last notified = %d, want current view %d", last, want)
	}
	if seen == 0 {
		t.Error("no notifications delivered")
	}
}

func TestReconciler_Attach(t *testing.T) {
	bus := event.NewBus(nil)
	r := NewReconciler(nil)

	subs := r.Attach(bus)
	if len(subs) != 7 {
		t.Errorf("len(subs) = %d, want 7", len(subs))
	}

	bus.Publish(event.Motion{Detected: event.Ptr(true)})
	bus.Publish(event.Progress{ClipsProcessed: event.Ptr(2)})

	view := r.CurrentView()
	if !Bool(view.MotionDetected) {
		t.Error("MotionDetected = false, want true")
	}
	if got := Int(view.ClipsProcessed); got != 2 {
		t.Errorf("ClipsProcessed = %d, want 2", got)
	}

	for _, sub := range subs {
		bus.Unsubscribe(sub)
	}
	bus.Publish(event.Progress{ClipsProcessed: event.Ptr(9)})
	if got := Int(r.CurrentView().ClipsProcessed); got != 2 {
		t.Errorf("ClipsProcessed after detach = %d, want 2", got)
	}
}

func TestReconciler_PublishWithoutSubscribersLeavesView(t *testing.T) {
	bus := event.NewBus(nil)
	r := NewReconciler(nil)
	r.ApplyPollSnapshot(Snapshot{IsStreaming: event.Ptr(true)})
	before := r.CurrentView()

	bus.Publish(event.Motion{Detected: event.Ptr(true)})

	if !r.CurrentView().Equal(before) {
		t.Errorf("view = %+v, want %+v", r.CurrentView(), before)
	}
}
