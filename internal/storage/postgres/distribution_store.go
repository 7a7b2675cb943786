package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// DistributionStore implements storage.DistributionStore using PostgreSQL.
type DistributionStore struct {
	pool *Pool
}

// NewDistributionStore creates a new DistributionStore.
func NewDistributionStore(pool *Pool) *DistributionStore {
	return &DistributionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DistributionStore = (*DistributionStore)(nil)

const distributionColumns = `
	distribution_id, tranche_id, payment_asset, total_amount, tranche_amount,
	secondary_amount, effective_bps, snapshot_seq, tranche_supply_at_snapshot,
	secondary_supply_at_snapshot, claim_deadline, total_claimed, created_at, created_seq
`

// Insert adds a new distribution. Returns ErrDuplicateKey if it exists.
func (s *DistributionStore) Insert(ctx context.Context, d *domain.Distribution) error {
	query := `
		INSERT INTO distributions (` + distributionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.pool.Exec(ctx, query,
		d.DistributionID,
		d.TrancheID,
		d.PaymentAsset,
		int64(d.TotalAmount),
		int64(d.TrancheAmount),
		int64(d.SecondaryAmount),
		int32(d.EffectiveBps),
		int64(d.SnapshotSeq),
		int64(d.TrancheSupplyAtSnapshot),
		int64(d.SecondarySupplyAtSnapshot),
		d.ClaimDeadline,
		int64(d.TotalClaimed),
		d.CreatedAt,
		int64(d.CreatedSeq),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert distribution: %w", err)
	}
	return nil
}

// UpdateTotalClaimed overwrites a distribution's monotonic claim total.
func (s *DistributionStore) UpdateTotalClaimed(ctx context.Context, distributionID string, totalClaimed uint64) error {
	query := `UPDATE distributions SET total_claimed = $2 WHERE distribution_id = $1`

	tag, err := s.pool.Exec(ctx, query, distributionID, int64(totalClaimed))
	if err != nil {
		return fmt.Errorf("update total claimed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// InsertClaim records one holder's claim. Returns ErrDuplicateKey for a
// repeated (distribution_id, holder) pair.
func (s *DistributionStore) InsertClaim(ctx context.Context, c *domain.Claim) error {
	query := `
		INSERT INTO distribution_claims (distribution_id, holder, amount, claimed_at, claimed_seq)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		c.DistributionID,
		string(c.Holder),
		int64(c.Amount),
		c.ClaimedAt,
		int64(c.ClaimedSeq),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// GetByID retrieves a distribution. Returns ErrNotFound if not exists.
func (s *DistributionStore) GetByID(ctx context.Context, distributionID string) (*domain.Distribution, error) {
	query := `SELECT ` + distributionColumns + ` FROM distributions WHERE distribution_id = $1`

	row := s.pool.QueryRow(ctx, query, distributionID)
	d, err := scanDistribution(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get distribution by id: %w", err)
	}
	return d, nil
}

// GetByTranche retrieves a tranche's distributions in creation order.
func (s *DistributionStore) GetByTranche(ctx context.Context, trancheID string) ([]*domain.Distribution, error) {
	query := `
		SELECT ` + distributionColumns + `
		FROM distributions
		WHERE tranche_id = $1
		ORDER BY created_seq ASC
	`

	rows, err := s.pool.Query(ctx, query, trancheID)
	if err != nil {
		return nil, fmt.Errorf("get distributions by tranche: %w", err)
	}
	defer rows.Close()

	var out []*domain.Distribution
	for rows.Next() {
		d, err := scanDistribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributions: %w", err)
	}
	return out, nil
}

// GetClaims retrieves all claims against a distribution, ordered by claim
// sequence.
func (s *DistributionStore) GetClaims(ctx context.Context, distributionID string) ([]*domain.Claim, error) {
	query := `
		SELECT distribution_id, holder, amount, claimed_at, claimed_seq
		FROM distribution_claims
		WHERE distribution_id = $1
		ORDER BY claimed_seq ASC
	`

	rows, err := s.pool.Query(ctx, query, distributionID)
	if err != nil {
		return nil, fmt.Errorf("get claims: %w", err)
	}
	defer rows.Close()

	var out []*domain.Claim
	for rows.Next() {
		var (
			c          domain.Claim
			holder     string
			amount     int64
			claimedSeq int64
		)
		if err := rows.Scan(&c.DistributionID, &holder, &amount, &c.ClaimedAt, &claimedSeq); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		c.Holder = domain.Address(holder)
		c.Amount = uint64(amount)
		c.ClaimedSeq = uint64(claimedSeq)
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

func scanDistribution(row pgx.Row) (*domain.Distribution, error) {
	var (
		d               domain.Distribution
		totalAmount     int64
		trancheAmount   int64
		secondaryAmount int64
		effectiveBps    int32
		snapshotSeq     int64
		trancheSupply   int64
		secondarySupply int64
		totalClaimed    int64
		createdSeq      int64
	)
	err := row.Scan(
		&d.DistributionID,
		&d.TrancheID,
		&d.PaymentAsset,
		&totalAmount,
		&trancheAmount,
		&secondaryAmount,
		&effectiveBps,
		&snapshotSeq,
		&trancheSupply,
		&secondarySupply,
		&d.ClaimDeadline,
		&totalClaimed,
		&d.CreatedAt,
		&createdSeq,
	)
	if err != nil {
		return nil, err
	}
	d.TotalAmount = uint64(totalAmount)
	d.TrancheAmount = uint64(trancheAmount)
	d.SecondaryAmount = uint64(secondaryAmount)
	d.EffectiveBps = uint32(effectiveBps)
	d.SnapshotSeq = uint64(snapshotSeq)
	d.TrancheSupplyAtSnapshot = uint64(trancheSupply)
	d.SecondarySupplyAtSnapshot = uint64(secondarySupply)
	d.TotalClaimed = uint64(totalClaimed)
	d.CreatedSeq = uint64(createdSeq)
	return &d, nil
}
