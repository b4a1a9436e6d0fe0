// Package connection owns the push channel to the processing server.
//
// A Manager keeps at most one WebSocket open to the server's /ws endpoint:
//   - Idle → Connecting → Open on a successful dial
//   - Open → Reconnecting on a read error, stale heartbeat or remote close
//   - Reconnecting waits backoff.NextDelay(n) and dials again
//   - after MaxAttempts consecutive failures the manager is Closed and
//     reports one *TransportError wrapping ErrMaxAttempts
//
// Each text frame is decoded into an event.Event. Frames that fail to decode
// are reported as *event.DecodeError and the channel stays open.
package connection
