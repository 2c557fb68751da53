// Package repository persists event snapshots so a restarted service can
// rebuild its engines.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// Store keeps the latest snapshot of each event.
type Store interface {
	// SaveIfNewer stores rec unless the stored record for the same event is
	// newer. Returns true if rec was written.
	SaveIfNewer(ctx context.Context, rec model.SnapshotRecord) (bool, error)

	// Load returns the stored record for an event.
	// Returns ErrNotFound if the event is unknown.
	Load(ctx context.Context, eventID string) (model.SnapshotRecord, error)

	// List returns every stored event ordered by creation time.
	List(ctx context.Context) ([]model.EventInfo, error)

	// Delete removes an event. Deleting an unknown event is not an error.
	Delete(ctx context.Context, eventID string) error

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying resources.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Config selects and configures a store.
type Config struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// Open creates the store named by cfg.Driver.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return NewMemoryStore(), nil
	case DriverBadger:
		return OpenBadger(BadgerConfig{Path: cfg.Path}, opts...)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// isNewer reports whether rec supersedes cur.
func isNewer(rec, cur model.SnapshotRecord) bool { //nolint:gocritic // hugeParam: records are compared by value
	if rec.Sequence != cur.Sequence {
		return rec.Sequence > cur.Sequence
	}
	return rec.SavedAt.After(cur.SavedAt)
}

func validateRecord(rec model.SnapshotRecord) error { //nolint:gocritic // hugeParam
	if strings.TrimSpace(rec.Event.ID) == "" {
		return fmt.Errorf("%w: empty event id", ErrInvalidRecord)
	}
	return nil
}
