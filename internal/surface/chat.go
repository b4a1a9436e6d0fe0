package surface

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/session"
	"github.com/rickgao/camsync/internal/state"
)

// ChatAPI is the part of *api.Client the chat screen uses.
type ChatAPI interface {
	Query(ctx context.Context, req api.QueryRequest) (*api.QueryResponse, error)
	VideoURL(clipPath string) string
}

// ClipRef is one timestamped clip cited by an answer.
type ClipRef struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	VideoPath string `json:"video_path"`
	URL       string `json:"url"`
}

// Exchange is one question and its answer.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Clips    []ClipRef `json:"clips"`
	AskedAt  time.Time `json:"asked_at"`
}

// Chat is the chat screen view-model.
type Chat struct {
	sync   session.Sync
	api    ChatAPI
	topK   int
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	history []Exchange
}

// NewChat creates a Chat. topK <= 0 lets the server pick.
func NewChat(s session.Sync, a ChatAPI, topK int, logger *slog.Logger) *Chat {
	if logger == nil {
		logger = slog.Default()
	}
	if topK < 0 {
		topK = 0
	}
	return &Chat{
		sync:   s,
		api:    a,
		topK:   topK,
		logger: logger.With("surface", "chat"),
		now:    time.Now,
	}
}

// Ask sends a question about the recorded footage and records the exchange.
func (c *Chat) Ask(ctx context.Context, question string) (Exchange, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Exchange{}, api.ErrEmptyQuery
	}
	resp, err := c.api.Query(ctx, api.QueryRequest{Query: question, TopK: c.topK})
	if err != nil {
		return Exchange{}, fmt.Errorf("query: %w", err)
	}

	ex := Exchange{
		Question: question,
		Answer:   resp.Answer,
		AskedAt:  c.now(),
	}
	for _, ts := range resp.Timestamps {
		ref := ClipRef{Start: ts["start"], End: ts["end"], VideoPath: ts["video_path"]}
		if ref.VideoPath != "" {
			ref.URL = c.api.VideoURL(ref.VideoPath)
		}
		ex.Clips = append(ex.Clips, ref)
	}

	c.mu.Lock()
	c.history = append(c.history, ex)
	c.mu.Unlock()

	c.logger.Debug("query answered", "clips", len(ex.Clips))
	return ex, nil
}

// History returns the exchanges so far, oldest first.
func (c *Chat) History() []Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Exchange(nil), c.history...)
}

// ProgressLine summarizes processing progress for the chat header.
// It is empty until any progress field is known.
func (c *Chat) ProgressLine() string {
	v := c.sync.View()
	if v.SecondsProcessed == nil && v.ClipsProcessed == nil {
		return ""
	}

	line := fmt.Sprintf("%s of video processed, %d clips indexed",
		time.Duration(state.Int(v.SecondsProcessed))*time.Second,
		state.Int(v.ClipsProcessed))
	if n := state.Int(v.QueueLength); n > 0 {
		line += fmt.Sprintf(", %d queued", n)
	}
	if state.Bool(v.IsProcessing) {
		line += " (processing)"
	}
	return line
}

// LastClip returns the most recent clip activity, if any.
func (c *Chat) LastClip() (state.ClipActivity, bool) {
	v := c.sync.View()
	if v.LastClip == nil {
		return state.ClipActivity{}, false
	}
	return *v.LastClip, true
}

// VideoURL resolves a clip path into a playable URL.
func (c *Chat) VideoURL(clipPath string) string {
	return c.api.VideoURL(clipPath)
}
