// Package database provides the PostgreSQL/TimescaleDB connection pool used
// by the event journal, plus the journal schema.
package database
