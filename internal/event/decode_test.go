package event

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Run("motion", func(t *testing.T) {
		ev, err := Decode([]byte(`{"type":"motion","motion_detected":true}`))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		m, ok := ev.(Motion)
		if !ok {
			t.Fatalf("event type = %T, want Motion", ev)
		}
		if m.Detected == nil || !*m.Detected {
			t.Errorf("Detected = %v, want true", m.Detected)
		}
	})

	t.Run("status with camera index", func(t *testing.T) {
		frame := `{"type":"status","is_streaming":true,"is_recording":false,"motion_detected":false,"camera_index":2,"rtsp_url":null}`
		ev, err := Decode([]byte(frame))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		s := ev.(Status)
		if s.IsStreaming == nil || !*s.IsStreaming {
			t.Errorf("IsStreaming = %v, want true", s.IsStreaming)
		}
		if s.IsRecording == nil || *s.IsRecording {
			t.Errorf("IsRecording = %v, want false", s.IsRecording)
		}
		if s.CameraIndex == nil || *s.CameraIndex != 2 {
			t.Errorf("CameraIndex = %v, want 2", s.CameraIndex)
		}
		if s.RTSPURL != nil {
			t.Errorf("RTSPURL = %v, want nil", *s.RTSPURL)
		}
	})

	t.Run("partial progress", func(t *testing.T) {
		ev, err := Decode([]byte(`{"type":"progress","seconds_processed":12}`))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		p := ev.(Progress)
		if p.SecondsProcessed == nil || *p.SecondsProcessed != 12 {
			t.Errorf("SecondsProcessed = %v, want 12", p.SecondsProcessed)
		}
		if p.ClipsProcessed != nil {
			t.Errorf("ClipsProcessed = %v, want nil", *p.ClipsProcessed)
		}
	})

	t.Run("clip lifecycle", func(t *testing.T) {
		tests := []struct {
			frame string
			want  Event
		}{
			{`{"type":"clip_queued","clip_path":"a.mp4"}`, ClipQueued{ClipPath: "a.mp4"}},
			{`{"type":"processing_started","clip_path":"a.mp4"}`, ClipStarted{ClipPath: "a.mp4"}},
			{`{"type":"processing_complete","clip_path":"a.mp4"}`, ClipComplete{ClipPath: "a.mp4"}},
			{`{"type":"processing_error","clip_path":"a.mp4","error":"boom"}`, ClipError{ClipPath: "a.mp4", Error: "boom"}},
		}
		for _, tt := range tests {
			ev, err := Decode([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Decode(%s) failed: %v", tt.frame, err)
			}
			if ev != tt.want {
				t.Errorf("Decode(%s) = %#v, want %#v", tt.frame, ev, tt.want)
			}
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		frame := []byte(`{"type":"ping","message":"pong"}`)
		ev, err := Decode(frame)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		u, ok := ev.(Unknown)
		if !ok {
			t.Fatalf("event type = %T, want Unknown", ev)
		}
		if u.Tag != "ping" {
			t.Errorf("Tag = %q, want %q", u.Tag, "ping")
		}
		if u.Kind() != KindMessage {
			t.Errorf("Kind() = %q, want %q", u.Kind(), KindMessage)
		}
		if string(u.Raw) != string(frame) {
			t.Errorf("Raw = %s, want %s", u.Raw, frame)
		}
	})
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `{not json`},
		{"empty", ``},
		{"array", `[1,2,3]`},
		{"missing type", `{"motion_detected":true}`},
		{"wrong field type", `{"type":"progress","seconds_processed":"many"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.frame))
			if err == nil {
				t.Fatalf("Decode(%q) = %v, want error", tt.frame, ev)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error type = %T, want *DecodeError", err)
			}
			if string(de.Frame) != tt.frame {
				t.Errorf("Frame = %q, want %q", de.Frame, tt.frame)
			}
		})
	}

	_, err := Decode([]byte(`{"motion_detected":true}`))
	if !errors.Is(err, ErrMissingType) {
		t.Errorf("error = %v, want ErrMissingType", err)
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(Progress{SecondsProcessed: Ptr(48), ClipsProcessed: Ptr(3)})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "progress" {
		t.Errorf("type = %v, want progress", got["type"])
	}
	if got["seconds_processed"] != float64(48) {
		t.Errorf("seconds_processed = %v, want 48", got["seconds_processed"])
	}

	raw := []byte(`{"type":"ping"}`)
	data, err = Encode(Unknown{Tag: "ping", Raw: raw})
	if err != nil {
		t.Fatalf("Encode unknown failed: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("Encode(Unknown) = %s, want %s", data, raw)
	}
}
