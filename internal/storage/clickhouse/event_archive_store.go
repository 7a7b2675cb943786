package clickhouse

import (
	"context"
	"fmt"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// EventArchiveStore implements storage.EventArchive using ClickHouse.
// The table is a ReplacingMergeTree keyed by (tranche_id, seq), so replayed
// batches collapse to one row after merges. Reads deduplicate with FINAL.
type EventArchiveStore struct {
	conn *Conn
}

// NewEventArchiveStore creates a new EventArchiveStore.
func NewEventArchiveStore(conn *Conn) *EventArchiveStore {
	return &EventArchiveStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventArchive = (*EventArchiveStore)(nil)

// ArchiveBulk appends a batch of events.
func (s *EventArchiveStore) ArchiveBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO event_archive (
			seq, ts, op, tranche_id, distribution_id, actor, amount, units_delta, result_state
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Seq, e.Timestamp, string(e.Op), e.TrancheID, e.DistributionID,
			string(e.Actor), e.Amount, e.UnitsDelta, e.ResultState,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByTranche retrieves a tranche's archived events in sequence order.
func (s *EventArchiveStore) GetByTranche(ctx context.Context, trancheID string, limit int) ([]*domain.Event, error) {
	query := `
		SELECT seq, ts, op, tranche_id, distribution_id, actor, amount, units_delta, result_state
		FROM event_archive FINAL
		WHERE tranche_id = ?
		ORDER BY seq ASC
	`
	args := []any{trancheID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, uint64(limit))
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events by tranche: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// CountByOp aggregates a tranche's archived events per operation.
func (s *EventArchiveStore) CountByOp(ctx context.Context, trancheID string) (map[domain.Op]uint64, error) {
	query := `
		SELECT op, count(*) AS c
		FROM event_archive FINAL
		WHERE tranche_id = ?
		GROUP BY op
	`

	rows, err := s.conn.Query(ctx, query, trancheID)
	if err != nil {
		return nil, fmt.Errorf("count events by op: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Op]uint64)
	for rows.Next() {
		var (
			op    string
			count uint64
		)
		if err := rows.Scan(&op, &count); err != nil {
			return nil, fmt.Errorf("scan op count: %w", err)
		}
		counts[domain.Op(op)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate op counts: %w", err)
	}
	return counts, nil
}

// LatestSeq returns the highest archived sequence number, zero when empty.
func (s *EventArchiveStore) LatestSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.conn.QueryRow(ctx, `SELECT coalesce(max(seq), 0) FROM event_archive`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest archived seq: %w", err)
	}
	return seq, nil
}

type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEvents(rows chRows) ([]*domain.Event, error) {
	var out []*domain.Event
	for rows.Next() {
		var (
			e     domain.Event
			op    string
			actor string
		)
		err := rows.Scan(&e.Seq, &e.Timestamp, &op, &e.TrancheID, &e.DistributionID,
			&actor, &e.Amount, &e.UnitsDelta, &e.ResultState)
		if err != nil {
			return nil, fmt.Errorf("scan archived event: %w", err)
		}
		e.Op = domain.Op(op)
		e.Actor = domain.Address(actor)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archived events: %w", err)
	}
	return out, nil
}
