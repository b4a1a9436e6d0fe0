// Package journal appends every push event and poll snapshot of a session
// to the sync_events table.
//
// The journal is write-only: nothing in the client reads it back. Rows are
// queued without blocking the caller, batched, and inserted with pgx.Batch
// when the batch fills or the flush interval elapses. A full queue drops the
// row and counts it.
package journal
