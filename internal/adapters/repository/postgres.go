package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
	"github.com/nourdesoukizz/Cozmx-fencing/pkg/logger"
)

//go:embed schema.sql
var schema embed.FS

// PostgresStore keeps snapshots in a Postgres table, one row per event.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// OpenPostgres connects to dsn and applies the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres: database url is required")
	}
	o := buildOptions("postgres", opts)
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	s := &PostgresStore{pool: p, logger: o.logger}
	if err := s.Migrate(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	s.logger.Debug(ctx, "schema applied")
	return nil
}

// Ping checks the connection.
func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// SaveIfNewer implements Store. The comparison runs inside the upsert so
// concurrent writers cannot regress a row.
func (s *PostgresStore) SaveIfNewer(ctx context.Context, rec model.SnapshotRecord) (bool, error) { //nolint:gocritic // hugeParam
	if err := validateRecord(rec); err != nil {
		return false, err
	}
	body, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return false, fmt.Errorf("postgres: encode %s: %w", rec.Event.ID, err)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO event_snapshots (event_id, name, created_at, sequence, saved_at, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO UPDATE
		   SET name = EXCLUDED.name,
		       sequence = EXCLUDED.sequence,
		       saved_at = EXCLUDED.saved_at,
		       snapshot = EXCLUDED.snapshot
		 WHERE event_snapshots.sequence < EXCLUDED.sequence
		    OR (event_snapshots.sequence = EXCLUDED.sequence AND event_snapshots.saved_at < EXCLUDED.saved_at)
	`, rec.Event.ID, rec.Event.Name, rec.Event.CreatedAt.UTC(), int64(rec.Sequence), rec.SavedAt.UTC(), body) //nolint:gosec // sequences fit in int64
	if err != nil {
		return false, fmt.Errorf("postgres: save %s: %w", rec.Event.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Load implements Store.
func (s *PostgresStore) Load(ctx context.Context, eventID string) (model.SnapshotRecord, error) {
	var (
		rec  model.SnapshotRecord
		seq  int64
		body []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT event_id, name, created_at, sequence, saved_at, snapshot
		  FROM event_snapshots WHERE event_id = $1
	`, eventID).Scan(&rec.Event.ID, &rec.Event.Name, &rec.Event.CreatedAt, &seq, &rec.SavedAt, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SnapshotRecord{}, ErrNotFound
	}
	if err != nil {
		return model.SnapshotRecord{}, fmt.Errorf("postgres: load %s: %w", eventID, err)
	}
	if err := json.Unmarshal(body, &rec.Snapshot); err != nil {
		return model.SnapshotRecord{}, fmt.Errorf("postgres: decode %s: %w", eventID, err)
	}
	rec.Sequence = uint64(seq) //nolint:gosec // stored from a uint64
	return rec, nil
}

// List implements Store.
func (s *PostgresStore) List(ctx context.Context) ([]model.EventInfo, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, name, created_at
		  FROM event_snapshots
		 ORDER BY created_at, event_id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list: %w", err)
	}
	defer rows.Close()

	var out []model.EventInfo
	for rows.Next() {
		var info model.EventInfo
		var created time.Time
		if err := rows.Scan(&info.ID, &info.Name, &created); err != nil {
			return nil, fmt.Errorf("postgres: list: %w", err)
		}
		info.CreatedAt = created
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, eventID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM event_snapshots WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("postgres: delete %s: %w", eventID, err)
	}
	return nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM event_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
