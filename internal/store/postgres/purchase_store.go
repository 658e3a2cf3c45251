package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brickvest-labs/brickvest/internal/domain"
)

// PurchaseStore implements domain.PurchaseStore using PostgreSQL.
type PurchaseStore struct {
	pool *pgxpool.Pool
}

// NewPurchaseStore creates a new PurchaseStore backed by the given pool.
func NewPurchaseStore(pool *pgxpool.Pool) *PurchaseStore {
	return &PurchaseStore{pool: pool}
}

// Create inserts a new purchase attempt.
func (s *PurchaseStore) Create(ctx context.Context, a domain.PurchaseAttempt) error {
	const query = `
		INSERT INTO purchase_attempts (
			id, property_id, wallet, token_amount, state,
			tx_reference, failure_reason, created_at, completed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			NULLIF($6, ''), NULLIF($7, ''), $8, $9, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.PropertyID, a.Wallet, a.TokenAmount, string(a.State),
		a.TxReference, a.FailureReason, a.CreatedAt, a.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create attempt %s: %w", a.ID, err)
	}
	return nil
}

// UpdateState advances the stored state. Terminal states also stamp
// completed_at.
func (s *PurchaseStore) UpdateState(ctx context.Context, id string, state domain.PurchaseState) error {
	var query string
	if state.Terminal() {
		query = `UPDATE purchase_attempts SET state = $1, completed_at = NOW(), updated_at = NOW() WHERE id = $2`
	} else {
		query = `UPDATE purchase_attempts SET state = $1, updated_at = NOW() WHERE id = $2`
	}

	tag, err := s.pool.Exec(ctx, query, string(state), id)
	if err != nil {
		return fmt.Errorf("postgres: update attempt state %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetReference stores the transaction reference.
func (s *PurchaseStore) SetReference(ctx context.Context, id string, reference string) error {
	const query = `UPDATE purchase_attempts SET tx_reference = $1, updated_at = NOW() WHERE id = $2`

	tag, err := s.pool.Exec(ctx, query, reference, id)
	if err != nil {
		return fmt.Errorf("postgres: set attempt reference %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed moves the attempt to the failed state with a reason.
func (s *PurchaseStore) MarkFailed(ctx context.Context, id string, reason string) error {
	const query = `
		UPDATE purchase_attempts
		SET state = $1, failure_reason = $2, completed_at = NOW(), updated_at = NOW()
		WHERE id = $3`

	tag, err := s.pool.Exec(ctx, query, string(domain.PurchaseFailed), reason, id)
	if err != nil {
		return fmt.Errorf("postgres: mark attempt failed %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const attemptSelectCols = `id, property_id, wallet, token_amount, state,
	tx_reference, failure_reason, created_at, completed_at`

func scanAttempt(scanner interface{ Scan(dest ...any) error }) (domain.PurchaseAttempt, error) {
	var a domain.PurchaseAttempt
	var state string
	var reference, reason *string

	err := scanner.Scan(
		&a.ID, &a.PropertyID, &a.Wallet, &a.TokenAmount, &state,
		&reference, &reason, &a.CreatedAt, &a.CompletedAt,
	)
	if err != nil {
		return domain.PurchaseAttempt{}, err
	}

	a.State = domain.PurchaseState(state)
	if reference != nil {
		a.TxReference = *reference
	}
	if reason != nil {
		a.FailureReason = *reason
	}
	return a, nil
}

// GetByID retrieves one attempt.
func (s *PurchaseStore) GetByID(ctx context.Context, id string) (domain.PurchaseAttempt, error) {
	query := `SELECT ` + attemptSelectCols + ` FROM purchase_attempts WHERE id = $1`

	a, err := scanAttempt(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PurchaseAttempt{}, domain.ErrNotFound
		}
		return domain.PurchaseAttempt{}, fmt.Errorf("postgres: get attempt %s: %w", id, err)
	}
	return a, nil
}

// ListByWallet returns a wallet's attempts, newest first.
func (s *PurchaseStore) ListByWallet(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.PurchaseAttempt, error) {
	query := `SELECT ` + attemptSelectCols + ` FROM purchase_attempts WHERE wallet = $1`
	args := []any{wallet}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list attempts for %s: %w", wallet, err)
	}
	defer rows.Close()

	var attempts []domain.PurchaseAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list attempts rows: %w", err)
	}
	return attempts, nil
}

var _ domain.PurchaseStore = (*PurchaseStore)(nil)
