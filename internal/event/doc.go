// Package event defines the push-channel event model and the in-process bus
// that dispatches it.
//
// Events form a closed set of variants (Motion, Status, Progress, the four
// clip lifecycle events, and Unknown). Decode turns one wire frame into a
// variant; Bus delivers it to the handlers registered for its Kind.
//
// Wire format: one flat JSON object per frame with a "type" tag, e.g.
//
//	{"type":"motion","motion_detected":true}
//	{"type":"progress","seconds_processed":32,"clips_processed":2}
//	{"type":"processing_error","clip_path":"clip_0003.mp4","error":"timeout"}
package event
