// Package poller implements the Status Poller component.
//
// The Status Poller:
//   - Polls GET /api/stream/status and GET /api/progress on a fixed interval
//   - Runs both requests concurrently and merges what succeeded into one snapshot
//   - Keeps polling whether or not the push channel is healthy
//   - Emits nothing for a cycle where both requests fail
package poller
