package api

// StreamStatus from GET /api/stream/status
type StreamStatus struct {
	IsStreaming    bool    `json:"is_streaming"`
	IsRecording    bool    `json:"is_recording"`
	MotionDetected bool    `json:"motion_detected"`
	CameraIndex    *int    `json:"camera_index,omitempty"`
	RTSPURL        *string `json:"rtsp_url,omitempty"`
}

// Progress from GET /api/progress
type Progress struct {
	SecondsProcessed int  `json:"seconds_processed"`
	ClipsProcessed   int  `json:"clips_processed"`
	QueueLength      int  `json:"queue_length"`
	IsProcessing     bool `json:"is_processing"`
}

// CameraInfo is one entry of GET /api/cameras.
type CameraInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// StartStreamRequest is the body of POST /api/stream/start.
// Exactly one of CameraIndex or RTSPURL must be set.
type StartStreamRequest struct {
	CameraIndex     *int    `json:"camera_index,omitempty"`
	RTSPURL         *string `json:"rtsp_url,omitempty"`
	MotionThreshold *int    `json:"motion_threshold,omitempty"` // Changed pixels that count as motion
}

// StartStreamResponse from POST /api/stream/start
type StartStreamResponse struct {
	Status      string  `json:"status"`
	CameraIndex *int    `json:"camera_index,omitempty"`
	RTSPURL     *string `json:"rtsp_url,omitempty"`
}

// StopStreamResponse from POST /api/stream/stop
type StopStreamResponse struct {
	Status string `json:"status"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// QueryResponse from POST /api/query
type QueryResponse struct {
	Answer        string              `json:"answer"`
	Timestamps    []map[string]string `json:"timestamps"`    // [{"start": "0s", "end": "32s", "video_path": "..."}]
	RelevantClips []map[string]string `json:"relevant_clips"`
}

// ClearDatabaseResponse from POST /api/clear-database
type ClearDatabaseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
