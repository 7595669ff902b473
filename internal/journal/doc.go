// Package journal records connectivity transitions and error events in
// PostgreSQL.
//
// The Writer subscribes to the fan-out publisher, buffers entries in a
// growable queue and batch-inserts them with pgx. Snapshot events are
// ignored; telemetry values are never persisted.
package journal
