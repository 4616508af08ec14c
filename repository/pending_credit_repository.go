package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// PendingCreditRepository implements the payout outbox
type PendingCreditRepository struct {
	q Queryable
}

// NewPendingCreditRepository creates a new pending credit repository
func NewPendingCreditRepository(db *database.DB) *PendingCreditRepository {
	return &PendingCreditRepository{q: db.Pool}
}

func newPendingCreditRepositoryWithTx(tx Queryable) *PendingCreditRepository {
	return &PendingCreditRepository{q: tx}
}

// Create records a payout to be delivered. Duplicate (session, member) rows
// collapse onto the first write.
func (r *PendingCreditRepository) Create(ctx context.Context, credit *models.PendingCredit) error {
	query := `
		INSERT INTO pending_credits (session_id, member_id, amount, idempotency_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, member_id) DO NOTHING
	`

	_, err := r.q.Exec(ctx, query,
		credit.SessionID,
		credit.MemberID,
		credit.Amount,
		credit.IdempotencyKey,
	)
	if err != nil {
		return wrapStorageErr(err, "failed to record pending credit")
	}

	return nil
}

// GetUndelivered returns credits not yet accepted by the wallet, oldest first
func (r *PendingCreditRepository) GetUndelivered(ctx context.Context, limit int) ([]*models.PendingCredit, error) {
	query := `
		SELECT id, session_id, member_id, amount, idempotency_key, attempts, credited_at, created_at
		FROM pending_credits
		WHERE credited_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`

	return r.queryCredits(ctx, query, limit)
}

// GetUndeliveredBySession returns a session's credits not yet accepted by the
// wallet. Drives the immediate post-settlement delivery attempt.
func (r *PendingCreditRepository) GetUndeliveredBySession(ctx context.Context, sessionID int64) ([]*models.PendingCredit, error) {
	query := `
		SELECT id, session_id, member_id, amount, idempotency_key, attempts, credited_at, created_at
		FROM pending_credits
		WHERE session_id = $1 AND credited_at IS NULL
		ORDER BY id
	`

	return r.queryCredits(ctx, query, sessionID)
}

func (r *PendingCreditRepository) queryCredits(ctx context.Context, query string, args ...any) ([]*models.PendingCredit, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get undelivered credits")
	}
	defer rows.Close()

	var credits []*models.PendingCredit
	for rows.Next() {
		var credit models.PendingCredit
		if err := rows.Scan(
			&credit.ID,
			&credit.SessionID,
			&credit.MemberID,
			&credit.Amount,
			&credit.IdempotencyKey,
			&credit.Attempts,
			&credit.CreditedAt,
			&credit.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending credit: %w", err)
		}
		credits = append(credits, &credit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending credits: %w", err)
	}

	return credits, nil
}

// MarkDelivered stamps a credit as accepted by the wallet
func (r *PendingCreditRepository) MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) error {
	query := `UPDATE pending_credits SET credited_at = $2 WHERE id = $1 AND credited_at IS NULL`

	if _, err := r.q.Exec(ctx, query, id, deliveredAt); err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to mark credit %d delivered", id))
	}

	return nil
}

// RecordAttempt bumps the delivery attempt counter after a wallet failure
func (r *PendingCreditRepository) RecordAttempt(ctx context.Context, id int64) error {
	query := `UPDATE pending_credits SET attempts = attempts + 1 WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, id); err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to record attempt for credit %d", id))
	}

	return nil
}

// SumBySession returns the total coins recorded for payout on a session.
// Used by audit checks against the payout conservation invariant.
func (r *PendingCreditRepository) SumBySession(ctx context.Context, sessionID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM pending_credits
		WHERE session_id = $1
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, sessionID).Scan(&total); err != nil {
		return 0, wrapStorageErr(err, "failed to sum session credits")
	}

	return total, nil
}
