package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// Video is an open clip download. The caller must Close it.
type Video struct {
	Name        string
	ContentType string
	Size        int64 // -1 when unknown
	Body        io.ReadCloser
}

// Close releases the response body.
func (v *Video) Close() error {
	return v.Body.Close()
}

// VideoPath returns the request path for a clip. Only the base name of
// clipPath is used, matching what the server accepts.
func VideoPath(clipPath string) string {
	return "/api/video/" + url.PathEscape(path.Base(clipPath))
}

// VideoURL returns an absolute URL a player can stream the clip from.
func (c *Client) VideoURL(clipPath string) string {
	return c.baseURL + VideoPath(clipPath)
}

// GetVideo opens a clip download.
func (c *Client) GetVideo(ctx context.Context, clipPath string) (*Video, error) {
	resp, err := c.send(ctx, http.MethodGet, VideoPath(clipPath), nil, nil)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	return &Video{
		Name:        path.Base(clipPath),
		ContentType: contentType,
		Size:        resp.ContentLength,
		Body:        resp.Body,
	}, nil
}

// String implements fmt.Stringer for logging.
func (v *Video) String() string {
	return fmt.Sprintf("%s (%s, %d bytes)", v.Name, v.ContentType, v.Size)
}
