package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `
	seq, ts, op, tranche_id, distribution_id, actor, amount, units_delta, result_state
`

// Append adds one event. Returns ErrDuplicateKey on a repeated seq.
func (s *EventStore) Append(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		int64(e.Seq),
		e.Timestamp,
		string(e.Op),
		e.TrancheID,
		e.DistributionID,
		string(e.Actor),
		int64(e.Amount),
		int64(e.UnitsDelta),
		e.ResultState,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// GetByTranche retrieves a tranche's events in sequence order.
func (s *EventStore) GetByTranche(ctx context.Context, trancheID string, limit int) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE tranche_id = $1 ORDER BY seq ASC`
	args := []any{trancheID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events by tranche: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetSince retrieves events with seq > after, in sequence order.
func (s *EventStore) GetSince(ctx context.Context, after uint64, limit int) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE seq > $1 ORDER BY seq ASC`
	args := []any{int64(after)}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get events since: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LatestSeq returns the highest stored sequence number, zero when empty.
func (s *EventStore) LatestSeq(ctx context.Context) (uint64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest event seq: %w", err)
	}
	return uint64(seq), nil
}

func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var out []*domain.Event
	for rows.Next() {
		var (
			e          domain.Event
			seq        int64
			op         string
			actor      string
			amount     int64
			unitsDelta int64
		)
		err := rows.Scan(&seq, &e.Timestamp, &op, &e.TrancheID, &e.DistributionID,
			&actor, &amount, &unitsDelta, &e.ResultState)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Seq = uint64(seq)
		e.Op = domain.Op(op)
		e.Actor = domain.Address(actor)
		e.Amount = uint64(amount)
		e.UnitsDelta = uint64(unitsDelta)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
