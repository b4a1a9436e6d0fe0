package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingType is returned for frames without a "type" field.
var ErrMissingType = errors.New("frame has no type")

// DecodeError reports a single frame that could not be decoded.
type DecodeError struct {
	Frame []byte // Raw frame as received
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses one JSON frame into an Event.
// Frames with an unrecognized tag decode to Unknown.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &DecodeError{Frame: frame, Err: err}
	}
	if env.Type == "" {
		return nil, &DecodeError{Frame: frame, Err: ErrMissingType}
	}

	var (
		ev  Event
		err error
	)

	switch Kind(env.Type) {
	case KindMotion:
		var m Motion
		err = json.Unmarshal(frame, &m)
		ev = m
	case KindStatus:
		var s Status
		err = json.Unmarshal(frame, &s)
		ev = s
	case KindProgress:
		var p Progress
		err = json.Unmarshal(frame, &p)
		ev = p
	case KindClipQueued:
		var c ClipQueued
		err = json.Unmarshal(frame, &c)
		ev = c
	case KindClipStarted:
		var c ClipStarted
		err = json.Unmarshal(frame, &c)
		ev = c
	case KindClipComplete:
		var c ClipComplete
		err = json.Unmarshal(frame, &c)
		ev = c
	case KindClipError:
		var c ClipError
		err = json.Unmarshal(frame, &c)
		ev = c
	default:
		raw := make(json.RawMessage, len(frame))
		copy(raw, frame)
		ev = Unknown{Tag: env.Type, Raw: raw}
	}

	if err != nil {
		return nil, &DecodeError{Frame: frame, Err: fmt.Errorf("%s payload: %w", env.Type, err)}
	}
	return ev, nil
}

// Encode renders an event back into its wire form, including the "type" tag.
// Unknown events are returned as their original frame.
func Encode(ev Event) ([]byte, error) {
	if u, ok := ev.(Unknown); ok {
		return u.Raw, nil
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	tag, _ := json.Marshal(string(ev.Kind()))
	fields["type"] = tag

	return json.Marshal(fields)
}
