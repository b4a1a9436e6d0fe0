package api

import (
	"context"
	"errors"
)

// ErrStreamSource is returned when a start request names no source or both.
var ErrStreamSource = errors.New("exactly one of camera_index or rtsp_url is required")

// GetStreamStatus fetches the current stream state.
func (c *Client) GetStreamStatus(ctx context.Context) (*StreamStatus, error) {
	var resp StreamStatus
	if err := c.get(ctx, "/api/stream/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProgress fetches processing counters.
func (c *Client) GetProgress(ctx context.Context) (*Progress, error) {
	var resp Progress
	if err := c.get(ctx, "/api/progress", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCameras fetches the capture devices the server can open.
func (c *Client) ListCameras(ctx context.Context) ([]CameraInfo, error) {
	var resp []CameraInfo
	if err := c.get(ctx, "/api/cameras", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// StartStream starts capture with motion detection.
func (c *Client) StartStream(ctx context.Context, req StartStreamRequest) (*StartStreamResponse, error) {
	if (req.CameraIndex == nil) == (req.RTSPURL == nil) {
		return nil, ErrStreamSource
	}

	var resp StartStreamResponse
	if err := c.post(ctx, "/api/stream/start", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopStream stops capture.
func (c *Client) StopStream(ctx context.Context) (*StopStreamResponse, error) {
	var resp StopStreamResponse
	if err := c.post(ctx, "/api/stream/stop", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
