// Package storage defines the cycle history store interface and the
// persisted record shape shared by the SQL backends.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// CycleRecord is the durable form of one improvement cycle outcome.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package, which builds records from its richer result types.
type CycleRecord struct {
	// ID is the snowflake identifier stamped by the manager.
	ID int64

	// AgentID identifies the agent the cycle ran for.
	AgentID string

	// Updated reports whether the cycle crossed the update threshold and
	// modified the agent.
	Updated bool

	// Priority is the trigger's priority label; empty for skipped cycles.
	Priority string

	// Reason explains why a cycle was skipped; empty for updated cycles.
	Reason string

	// Timestamp is when the cycle completed.
	Timestamp time.Time

	// Payload is the JSON-encoded cycle detail (evaluation, metrics,
	// insights). Stored opaquely; the store never inspects it.
	Payload json.RawMessage
}

// CycleStore persists cycle records. Implementations must be safe for
// concurrent use; the manager may save from its background loop while a
// caller reads history.
type CycleStore interface {
	// SaveCycle appends one record.
	SaveCycle(ctx context.Context, rec *CycleRecord) error

	// RecentCycles returns up to limit records, newest first.
	RecentCycles(ctx context.Context, limit int) ([]*CycleRecord, error)

	// CountCycles returns the number of stored records.
	CountCycles(ctx context.Context) (int64, error)

	// PruneCycles deletes all but the newest keep records and returns the
	// number deleted.
	PruneCycles(ctx context.Context, keep int) (int64, error)

	// Close releases the underlying database handle.
	Close() error
}
