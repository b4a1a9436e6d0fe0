package event

import (
	"encoding/json"
)

// Kind identifies the dispatch key of an event.
type Kind string

const (
	KindMotion       Kind = "motion"
	KindStatus       Kind = "status"
	KindProgress     Kind = "progress"
	KindClipQueued   Kind = "clip_queued"
	KindClipStarted  Kind = "processing_started"
	KindClipComplete Kind = "processing_complete"
	KindClipError    Kind = "processing_error"

	// KindMessage is the dispatch key for frames with an unrecognized tag.
	KindMessage Kind = "message"
)

// Kinds lists every dispatch key.
var Kinds = []Kind{
	KindMotion,
	KindStatus,
	KindProgress,
	KindClipQueued,
	KindClipStarted,
	KindClipComplete,
	KindClipError,
	KindMessage,
}

// Event is one decoded push-channel message. The set of implementations is
// closed; use a type switch over the concrete variants.
type Event interface {
	Kind() Kind
	sealed()
}

// Motion reports a change of the motion flag.
type Motion struct {
	Detected *bool `json:"motion_detected,omitempty"`
}

// Status reports the stream state.
type Status struct {
	IsStreaming    *bool   `json:"is_streaming,omitempty"`
	IsRecording    *bool   `json:"is_recording,omitempty"`
	MotionDetected *bool   `json:"motion_detected,omitempty"`
	CameraIndex    *int    `json:"camera_index,omitempty"`
	RTSPURL        *string `json:"rtsp_url,omitempty"`
}

// Progress reports processing counters.
type Progress struct {
	SecondsProcessed *int `json:"seconds_processed,omitempty"`
	ClipsProcessed   *int `json:"clips_processed,omitempty"`
}

// ClipQueued is sent when a recorded clip enters the processing queue.
type ClipQueued struct {
	ClipPath string `json:"clip_path"`
}

// ClipStarted is sent when analysis of a clip begins.
type ClipStarted struct {
	ClipPath string `json:"clip_path"`
}

// ClipComplete is sent when a clip has been analysed and stored.
type ClipComplete struct {
	ClipPath string `json:"clip_path"`
}

// ClipError is sent when analysis of a clip fails.
type ClipError struct {
	ClipPath string `json:"clip_path"`
	Error    string `json:"error"`
}

// Unknown carries a frame whose tag is not recognized.
type Unknown struct {
	Tag string          // Original "type" value
	Raw json.RawMessage // Entire frame
}

func (Motion) Kind() Kind       { return KindMotion }
func (Status) Kind() Kind       { return KindStatus }
func (Progress) Kind() Kind     { return KindProgress }
func (ClipQueued) Kind() Kind   { return KindClipQueued }
func (ClipStarted) Kind() Kind  { return KindClipStarted }
func (ClipComplete) Kind() Kind { return KindClipComplete }
func (ClipError) Kind() Kind    { return KindClipError }
func (Unknown) Kind() Kind      { return KindMessage }

func (Motion) sealed()       {}
func (Status) sealed()       {}
func (Progress) sealed()     {}
func (ClipQueued) sealed()   {}
func (ClipStarted) sealed()  {}
func (ClipComplete) sealed() {}
func (ClipError) sealed()    {}
func (Unknown) sealed()      {}

// Ptr returns a pointer to v. Useful for building optional fields.
func Ptr[T any](v T) *T {
	return &v
}
