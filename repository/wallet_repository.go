package repository

import (
	"context"
	"fmt"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// WalletRepository implements coin wallet data access. Every balance movement
// writes a wallet_entries row keyed by an idempotency key; replaying a key is
// a successful no-op, which is what makes at-least-once payout delivery safe.
type WalletRepository struct {
	q Queryable
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *database.DB) *WalletRepository {
	return &WalletRepository{q: db.Pool}
}

func newWalletRepositoryWithTx(tx Queryable) *WalletRepository {
	return &WalletRepository{q: tx}
}

// GetBalance returns the member's current coin balance. A member with no
// wallet account yet has a balance of zero.
func (r *WalletRepository) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(balance), 0) FROM wallet_accounts WHERE member_id = $1`

	var balance int64
	if err := r.q.QueryRow(ctx, query, memberID).Scan(&balance); err != nil {
		return 0, wrapStorageErr(err, "failed to get balance")
	}
	return balance, nil
}

// recordEntry inserts the ledger entry for a movement. Returns false when the
// idempotency key was already used, meaning the movement already happened.
func (r *WalletRepository) recordEntry(ctx context.Context, memberID, amount int64, idempotencyKey string) (bool, error) {
	query := `
		INSERT INTO wallet_entries (member_id, amount, idempotency_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (idempotency_key) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, memberID, amount, idempotencyKey)
	if err != nil {
		return false, wrapStorageErr(err, "failed to record wallet entry")
	}
	return tag.RowsAffected() == 1, nil
}

// Credit adds coins to the member's balance, creating the account on first
// touch. Replaying an idempotency key is a no-op success.
func (r *WalletRepository) Credit(ctx context.Context, memberID, amount int64, idempotencyKey string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	applied, err := r.recordEntry(ctx, memberID, amount, idempotencyKey)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	query := `
		INSERT INTO wallet_accounts (member_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (member_id) DO UPDATE
		SET balance = wallet_accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, memberID, amount); err != nil {
		return wrapStorageErr(err, "failed to credit wallet")
	}
	return nil
}

// Debit removes coins from the member's balance. Fails with
// models.ErrInsufficientBalance when the balance does not cover the amount;
// the conditional update makes concurrent debits race safely. Replaying an
// idempotency key is a no-op success.
func (r *WalletRepository) Debit(ctx context.Context, memberID, amount int64, idempotencyKey string) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	applied, err := r.recordEntry(ctx, memberID, -amount, idempotencyKey)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	query := `
		UPDATE wallet_accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE member_id = $1 AND balance >= $2
	`

	tag, err := r.q.Exec(ctx, query, memberID, amount)
	if err != nil {
		return wrapStorageErr(err, "failed to debit wallet")
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("member %d debit of %d: %w", memberID, amount, models.ErrInsufficientBalance)
	}
	return nil
}
