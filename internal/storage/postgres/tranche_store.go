package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// TrancheStore implements storage.TrancheStore using PostgreSQL.
// Amounts are stored as BIGINT; the payment-asset base units in play fit
// comfortably below 2^63.
type TrancheStore struct {
	pool *Pool
}

// NewTrancheStore creates a new TrancheStore.
func NewTrancheStore(pool *Pool) *TrancheStore {
	return &TrancheStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrancheStore = (*TrancheStore)(nil)

const trancheColumns = `
	tranche_id, name, symbol, description, funding_goal, unit_price,
	payment_asset, treasury, operator, created_at, created_seq, is_active
`

// Insert adds a new tranche. Returns ErrDuplicateKey if tranche_id exists.
func (s *TrancheStore) Insert(ctx context.Context, t *domain.Tranche) error {
	query := `
		INSERT INTO tranches (
			tranche_id, name, symbol, description, funding_goal, unit_price,
			payment_asset, treasury, operator, created_at, created_seq, is_active,
			funding_active, funding_complete, total_raised, total_supply, status, updated_seq
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, TRUE, FALSE, 0, 0, $13, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TrancheID,
		t.Name,
		t.Symbol,
		t.Description,
		int64(t.FundingGoal),
		int64(t.UnitPrice),
		t.PaymentAsset,
		string(t.Treasury),
		string(t.Operator),
		t.CreatedAt,
		int64(t.CreatedSeq),
		t.IsActive,
		string(domain.StatusActive),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tranche: %w", err)
	}
	return nil
}

// UpdateFunding overwrites the mutable funding fields of a tranche.
func (s *TrancheStore) UpdateFunding(ctx context.Context, st domain.FundingState) error {
	query := `
		UPDATE tranches
		SET funding_active = $2, funding_complete = $3, total_raised = $4,
		    total_supply = $5, status = $6, updated_seq = $7
		WHERE tranche_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		st.TrancheID,
		st.FundingActive,
		st.FundingComplete,
		int64(st.TotalRaised),
		int64(st.TotalSupply),
		string(st.Status),
		int64(st.UpdatedSeq),
	)
	if err != nil {
		return fmt.Errorf("update funding state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetActive toggles the registry activity flag.
func (s *TrancheStore) SetActive(ctx context.Context, trancheID string, active bool, seq uint64) error {
	query := `UPDATE tranches SET is_active = $2, updated_seq = $3 WHERE tranche_id = $1`

	tag, err := s.pool.Exec(ctx, query, trancheID, active, int64(seq))
	if err != nil {
		return fmt.Errorf("set tranche active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SetOperator records an ownership transfer.
func (s *TrancheStore) SetOperator(ctx context.Context, trancheID string, operator domain.Address, seq uint64) error {
	query := `UPDATE tranches SET operator = $2, updated_seq = $3 WHERE tranche_id = $1`

	tag, err := s.pool.Exec(ctx, query, trancheID, string(operator), int64(seq))
	if err != nil {
		return fmt.Errorf("set tranche operator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a tranche by its id. Returns ErrNotFound if not exists.
func (s *TrancheStore) GetByID(ctx context.Context, trancheID string) (*domain.Tranche, error) {
	query := `SELECT ` + trancheColumns + ` FROM tranches WHERE tranche_id = $1`

	row := s.pool.QueryRow(ctx, query, trancheID)
	t, err := scanTranche(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tranche by id: %w", err)
	}
	return t, nil
}

// GetFunding retrieves the funding state of a tranche.
func (s *TrancheStore) GetFunding(ctx context.Context, trancheID string) (*domain.FundingState, error) {
	query := `
		SELECT tranche_id, funding_active, funding_complete, total_raised,
		       total_supply, status, updated_seq
		FROM tranches
		WHERE tranche_id = $1
	`

	var (
		st          domain.FundingState
		totalRaised int64
		totalSupply int64
		updatedSeq  int64
		status      string
	)
	err := s.pool.QueryRow(ctx, query, trancheID).Scan(
		&st.TrancheID,
		&st.FundingActive,
		&st.FundingComplete,
		&totalRaised,
		&totalSupply,
		&status,
		&updatedSeq,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get funding state: %w", err)
	}
	st.TotalRaised = uint64(totalRaised)
	st.TotalSupply = uint64(totalSupply)
	st.Status = domain.TrancheStatus(status)
	st.UpdatedSeq = uint64(updatedSeq)
	return &st, nil
}

// GetAll retrieves all tranches in creation order.
func (s *TrancheStore) GetAll(ctx context.Context) ([]*domain.Tranche, error) {
	query := `SELECT ` + trancheColumns + ` FROM tranches ORDER BY created_seq ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all tranches: %w", err)
	}
	defer rows.Close()

	return scanTranches(rows)
}

// GetActive retrieves all active tranches in creation order.
func (s *TrancheStore) GetActive(ctx context.Context) ([]*domain.Tranche, error) {
	query := `SELECT ` + trancheColumns + ` FROM tranches WHERE is_active ORDER BY created_seq ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active tranches: %w", err)
	}
	defer rows.Close()

	return scanTranches(rows)
}

func scanTranche(row pgx.Row) (*domain.Tranche, error) {
	var (
		t           domain.Tranche
		fundingGoal int64
		unitPrice   int64
		createdSeq  int64
		treasury    string
		operator    string
	)
	err := row.Scan(
		&t.TrancheID,
		&t.Name,
		&t.Symbol,
		&t.Description,
		&fundingGoal,
		&unitPrice,
		&t.PaymentAsset,
		&treasury,
		&operator,
		&t.CreatedAt,
		&createdSeq,
		&t.IsActive,
	)
	if err != nil {
		return nil, err
	}
	t.FundingGoal = uint64(fundingGoal)
	t.UnitPrice = uint64(unitPrice)
	t.CreatedSeq = uint64(createdSeq)
	t.Treasury = domain.Address(treasury)
	t.Operator = domain.Address(operator)
	return &t, nil
}

func scanTranches(rows pgx.Rows) ([]*domain.Tranche, error) {
	var out []*domain.Tranche
	for rows.Next() {
		t, err := scanTranche(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tranche: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tranches: %w", err)
	}
	return out, nil
}
