package surface

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/camsync/internal/api"
	"github.com/rickgao/camsync/internal/event"
	"github.com/rickgao/camsync/internal/session"
	"github.com/rickgao/camsync/internal/state"
)

// CameraAPI is the part of *api.Client the camera screen uses.
type CameraAPI interface {
	ListCameras(ctx context.Context) ([]api.CameraInfo, error)
	StartStream(ctx context.Context, req api.StartStreamRequest) (*api.StartStreamResponse, error)
	StopStream(ctx context.Context) (*api.StopStreamResponse, error)
}

// Indicator is everything the camera screen renders from the view.
type Indicator struct {
	Streaming  bool   `json:"streaming"`
	Recording  bool   `json:"recording"`
	Motion     bool   `json:"motion"`
	Source     string `json:"source"`     // "camera 0", an RTSP URL, or ""
	Connection string `json:"connection"` // Push channel state
	Live       bool   `json:"live"`       // False when only polling keeps the view current
}

// StartRequest selects a stream source. Set CameraIndex or RTSPURL, not both.
type StartRequest struct {
	CameraIndex     *int
	RTSPURL         string
	MotionThreshold int // 0 = server default
}

// Camera is the camera screen view-model.
type Camera struct {
	sync   session.Sync
	api    CameraAPI
	logger *slog.Logger
}

// NewCamera creates a Camera.
func NewCamera(s session.Sync, a CameraAPI, logger *slog.Logger) *Camera {
	if logger == nil {
		logger = slog.Default()
	}
	return &Camera{sync: s, api: a, logger: logger.With("surface", "camera")}
}

// Indicator derives the status indicator from the current view.
func (c *Camera) Indicator() Indicator {
	v := c.sync.View()
	return Indicator{
		Streaming:  state.Bool(v.IsStreaming),
		Recording:  state.Bool(v.IsRecording),
		Motion:     state.Bool(v.MotionDetected),
		Source:     sourceLabel(v),
		Connection: c.sync.ConnectionState().String(),
		Live:       c.sync.PushAvailable(),
	}
}

func sourceLabel(v state.Snapshot) string {
	if v.RTSPURL != nil && *v.RTSPURL != "" {
		return *v.RTSPURL
	}
	if v.CameraIndex != nil {
		return fmt.Sprintf("camera %d", *v.CameraIndex)
	}
	return ""
}

// Cameras lists local capture devices known to the server.
func (c *Camera) Cameras(ctx context.Context) ([]api.CameraInfo, error) {
	cams, err := c.api.ListCameras(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	return cams, nil
}

// Start asks the server to begin streaming from the chosen source.
func (c *Camera) Start(ctx context.Context, req StartRequest) error {
	body := api.StartStreamRequest{CameraIndex: req.CameraIndex}
	if url := strings.TrimSpace(req.RTSPURL); url != "" {
		body.RTSPURL = &url
	}
	if req.MotionThreshold > 0 {
		threshold := req.MotionThreshold
		body.MotionThreshold = &threshold
	}

	resp, err := c.api.StartStream(ctx, body)
	if err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	c.logger.Info("stream started", "status", resp.Status)
	return nil
}

// Stop asks the server to stop streaming.
func (c *Camera) Stop(ctx context.Context) error {
	resp, err := c.api.StopStream(ctx)
	if err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	c.logger.Info("stream stopped", "status", resp.Status)
	return nil
}

// OnMotion calls fn for every pushed motion event that carries a value.
// Pass the returned subscription to Close to stop.
func (c *Camera) OnMotion(fn func(detected bool)) event.Subscription {
	return c.sync.Subscribe(event.KindMotion, func(ev event.Event) error {
		if m, ok := ev.(event.Motion); ok && m.Detected != nil {
			fn(*m.Detected)
		}
		return nil
	})
}

// Close removes a subscription made through this view-model.
func (c *Camera) Close(sub event.Subscription) {
	c.sync.Unsubscribe(sub)
}
