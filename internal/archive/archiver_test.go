package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/event"
)

type fakeSource struct {
	mu     sync.Mutex
	videos map[string]string
	asked  []string
}

func (f *fakeSource) GetVideo(ctx context.Context, clipPath string) (*api.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = append(f.asked, clipPath)

	body, ok := f.videos[clipPath]
	if !ok {
		return nil, &api.APIError{StatusCode: 404, Message: "Not Found"}
	}
	return &api.Video{
		Name:        clipPath,
		ContentType: "video/mp4",
		Size:        int64(len(body)),
		Body:        io.NopCloser(strings.NewReader(body)),
	}, nil
}

type storedObject struct {
	size        int64
	contentType string
	data        string
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
	err     error
}

func (f *fakeStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string]storedObject)
	}
	f.objects[key] = storedObject{size, contentType, string(data)}
	return nil
}

func (f *fakeStore) get(key string) (storedObject, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	return obj, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestArchiver_Key(t *testing.T) {
	a := New(DefaultConfig(), &fakeSource{}, &fakeStore{}, "b1c2", nil)

	tests := []struct {
		clip string
		want string
	}{
		{"clip_0001.mp4", "b1c2/clip_0001.mp4"},
		{"recordings/2024/clip_0002.mp4", "b1c2/clip_0002.mp4"},
	}

	for _, tt := range tests {
		if got := a.Key(tt.clip); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.clip, got, tt.want)
		}
	}
}

func TestArchiver_ArchivesCompletedClips(t *testing.T) {
	src := &fakeSource{videos: map[string]string{"recordings/clip_0001.mp4": "mp4-bytes"}}
	store := &fakeStore{}
	a := New(DefaultConfig(), src, store, "sess", nil)

	bus := event.NewBus(nil)
	a.Attach(bus)
	a.Start(context.Background())
	defer a.Stop(context.Background())

	bus.Publish(event.ClipQueued{ClipPath: "recordings/clip_0001.mp4"})
	bus.Publish(event.ClipComplete{ClipPath: "recordings/clip_0001.mp4"})

	waitFor(t, func() bool { return a.Stats().Archived == 1 })

	obj, ok := store.get("sess/clip_0001.mp4")
	if !ok {
		t.Fatal("object not stored")
	}
	if obj.data != "mp4-bytes" || obj.size != 9 || obj.contentType != "video/mp4" {
		t.Errorf("object = %+v", obj)
	}
	if got := a.Stats().Bytes; got != 9 {
		t.Errorf("Bytes = %d, want 9", got)
	}
	if len(src.asked) != 1 {
		t.Errorf("downloads = %v, want only the completed clip", src.asked)
	}
}

func TestArchiver_FailuresCounted(t *testing.T) {
	tests := []struct {
		name  string
		src   *fakeSource
		store *fakeStore
	}{
		{
			name:  "download fails",
			src:   &fakeSource{},
			store: &fakeStore{},
		},
		{
			name:  "upload fails",
			src:   &fakeSource{videos: map[string]string{"clip.mp4": "x"}},
			store: &fakeStore{err: errors.New("bucket gone")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(DefaultConfig(), tt.src, tt.store, "sess", nil)
			a.Start(context.Background())
			defer a.Stop(context.Background())

			if err := a.Enqueue("clip.mp4"); err != nil {
				t.Fatalf("Enqueue() error = %v", err)
			}

			waitFor(t, func() bool { return a.Stats().Failed == 1 })
			if got := a.Stats().Archived; got != 0 {
				t.Errorf("Archived = %d, want 0", got)
			}
		})
	}
}

func TestArchiver_EnqueueFull(t *testing.T) {
	a := New(Config{QueueSize: 2}, &fakeSource{}, &fakeStore{}, "sess", nil)

	a.Enqueue("a.mp4")
	a.Enqueue("b.mp4")
	if err := a.Enqueue("c.mp4"); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Enqueue() error = %v, want ErrQueueFull", err)
	}
	if got := a.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}

func TestArchiver_StopBeforeStart(t *testing.T) {
	a := New(DefaultConfig(), &fakeSource{}, &fakeStore{}, "sess", nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
