// Package state holds the merged view of server-reported status and progress
// that UI surfaces read.
//
// Two sources write into it: push events from the connection manager and
// snapshots from the status poller. Every field is optional; an update only
// touches the fields it carries. Neither source has ordering metadata, so
// the last write to arrive wins.
package state
