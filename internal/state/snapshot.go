package state

import "time"

// ClipPhase is the lifecycle stage of the most recent clip.
type ClipPhase string

const (
	ClipQueued     ClipPhase = "queued"
	ClipProcessing ClipPhase = "processing"
	ClipComplete   ClipPhase = "complete"
	ClipFailed     ClipPhase = "failed"
)

// ClipActivity describes the most recent clip lifecycle event.
type ClipActivity struct {
	Path      string    `json:"path"`
	Phase     ClipPhase `json:"phase"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is the last-known value per field. A nil field is unknown.
type Snapshot struct {
	IsStreaming    *bool   `json:"is_streaming,omitempty"`
	IsRecording    *bool   `json:"is_recording,omitempty"`
	MotionDetected *bool   `json:"motion_detected,omitempty"`
	CameraIndex    *int    `json:"camera_index,omitempty"`
	RTSPURL        *string `json:"rtsp_url,omitempty"`

	SecondsProcessed *int  `json:"seconds_processed,omitempty"`
	ClipsProcessed   *int  `json:"clips_processed,omitempty"`
	QueueLength      *int  `json:"queue_length,omitempty"`
	IsProcessing     *bool `json:"is_processing,omitempty"`

	LastClip *ClipActivity `json:"last_clip,omitempty"`
}

// IsEmpty reports whether no field is set.
func (s Snapshot) IsEmpty() bool {
	return s == Snapshot{}
}

// Merge returns s with every field present in update overwritten.
func (s Snapshot) Merge(update Snapshot) Snapshot {
	out := s.Clone()
	assign(&out.IsStreaming, update.IsStreaming)
	assign(&out.IsRecording, update.IsRecording)
	assign(&out.MotionDetected, update.MotionDetected)
	assign(&out.CameraIndex, update.CameraIndex)
	assign(&out.RTSPURL, update.RTSPURL)
	assign(&out.SecondsProcessed, update.SecondsProcessed)
	assign(&out.ClipsProcessed, update.ClipsProcessed)
	assign(&out.QueueLength, update.QueueLength)
	assign(&out.IsProcessing, update.IsProcessing)
	assign(&out.LastClip, update.LastClip)
	return out
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		IsStreaming:      clone(s.IsStreaming),
		IsRecording:      clone(s.IsRecording),
		MotionDetected:   clone(s.MotionDetected),
		CameraIndex:      clone(s.CameraIndex),
		RTSPURL:          clone(s.RTSPURL),
		SecondsProcessed: clone(s.SecondsProcessed),
		ClipsProcessed:   clone(s.ClipsProcessed),
		QueueLength:      clone(s.QueueLength),
		IsProcessing:     clone(s.IsProcessing),
		LastClip:         clone(s.LastClip),
	}
}

// Equal compares field values, not pointers.
func (s Snapshot) Equal(o Snapshot) bool {
	return eq(s.IsStreaming, o.IsStreaming) &&
		eq(s.IsRecording, o.IsRecording) &&
		eq(s.MotionDetected, o.MotionDetected) &&
		eq(s.CameraIndex, o.CameraIndex) &&
		eq(s.RTSPURL, o.RTSPURL) &&
		eq(s.SecondsProcessed, o.SecondsProcessed) &&
		eq(s.ClipsProcessed, o.ClipsProcessed) &&
		eq(s.QueueLength, o.QueueLength) &&
		eq(s.IsProcessing, o.IsProcessing) &&
		eq(s.LastClip, o.LastClip)
}

// Bool returns the value of an optional flag, or false when unknown.
func Bool(p *bool) bool {
	return p != nil && *p
}

// Int returns the value of an optional counter, or 0 when unknown.
func Int(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func assign[T any](dst **T, src *T) {
	if src != nil {
		*dst = clone(src)
	}
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func eq[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
