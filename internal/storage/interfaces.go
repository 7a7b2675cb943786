package storage

import (
	"context"

	"revora-ledger/internal/domain"
)

// TrancheStore persists tranche records and their funding state.
type TrancheStore interface {
	// Insert adds a new tranche. Returns ErrDuplicateKey if tranche_id exists.
	Insert(ctx context.Context, t *domain.Tranche) error

	// UpdateFunding overwrites the mutable funding fields of a tranche.
	UpdateFunding(ctx context.Context, s domain.FundingState) error

	// SetActive toggles the registry activity flag.
	SetActive(ctx context.Context, trancheID string, active bool, seq uint64) error

	// SetOperator records an ownership transfer.
	SetOperator(ctx context.Context, trancheID string, operator domain.Address, seq uint64) error

	// GetByID retrieves a tranche by its id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, trancheID string) (*domain.Tranche, error)

	// GetFunding retrieves the funding state of a tranche.
	GetFunding(ctx context.Context, trancheID string) (*domain.FundingState, error)

	// GetAll retrieves all tranches in creation order.
	GetAll(ctx context.Context) ([]*domain.Tranche, error)

	// GetActive retrieves all active tranches in creation order.
	GetActive(ctx context.Context) ([]*domain.Tranche, error)
}

// DistributionStore persists distribution records and claims.
type DistributionStore interface {
	// Insert adds a new distribution. Returns ErrDuplicateKey if it exists.
	Insert(ctx context.Context, d *domain.Distribution) error

	// UpdateTotalClaimed overwrites a distribution's monotonic claim total.
	UpdateTotalClaimed(ctx context.Context, distributionID string, totalClaimed uint64) error

	// InsertClaim records one holder's claim. Returns ErrDuplicateKey for
	// a repeated (distribution_id, holder) pair.
	InsertClaim(ctx context.Context, c *domain.Claim) error

	// GetByID retrieves a distribution. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, distributionID string) (*domain.Distribution, error)

	// GetByTranche retrieves a tranche's distributions in creation order.
	GetByTranche(ctx context.Context, trancheID string) ([]*domain.Distribution, error)

	// GetClaims retrieves all claims against a distribution, ordered by
	// claim sequence.
	GetClaims(ctx context.Context, distributionID string) ([]*domain.Claim, error)
}

// RefundStore persists per-tranche refund bookkeeping.
type RefundStore interface {
	// Upsert writes the refund state of a tranche.
	Upsert(ctx context.Context, s domain.RefundState) error

	// GetByTranche retrieves a tranche's refund state. Returns ErrNotFound
	// if the tranche was never cancelled.
	GetByTranche(ctx context.Context, trancheID string) (*domain.RefundState, error)
}

// EventArchive keeps a bulk-loadable analytics copy of the operation log.
// The EventStore stays the source of truth; archiving is idempotent, so a
// crashed archiver can safely replay a batch.
type EventArchive interface {
	// ArchiveBulk appends a batch of events. Re-archiving an already
	// stored seq is a no-op after background merges.
	ArchiveBulk(ctx context.Context, events []*domain.Event) error

	// GetByTranche retrieves a tranche's archived events in sequence
	// order, at most limit (0 = no limit).
	GetByTranche(ctx context.Context, trancheID string, limit int) ([]*domain.Event, error)

	// CountByOp aggregates a tranche's archived events per operation.
	CountByOp(ctx context.Context, trancheID string) (map[domain.Op]uint64, error)

	// LatestSeq returns the highest archived sequence number, zero when
	// empty. The archiver resumes from here.
	LatestSeq(ctx context.Context) (uint64, error)
}

// EventStore persists the structured operation log.
type EventStore interface {
	// Append adds one event. Returns ErrDuplicateKey on a repeated seq.
	Append(ctx context.Context, e *domain.Event) error

	// GetByTranche retrieves a tranche's events in sequence order,
	// at most limit (0 = no limit).
	GetByTranche(ctx context.Context, trancheID string, limit int) ([]*domain.Event, error)

	// GetSince retrieves events with seq > after, in sequence order,
	// at most limit (0 = no limit).
	GetSince(ctx context.Context, after uint64, limit int) ([]*domain.Event, error)

	// LatestSeq returns the highest stored sequence number, zero when empty.
	LatestSeq(ctx context.Context) (uint64, error)
}
