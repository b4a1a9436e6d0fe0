// Package session wires one push channel, one status poller and one
// reconciled view together and hands the result to UI surfaces.
//
// A process normally owns a single Session. Surfaces never construct the
// connection, poller or reconciler themselves; they receive the Sync
// interface and read the shared view through it.
package session
