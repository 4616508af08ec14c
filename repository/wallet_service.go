package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/service"
)

// WalletService implements the standalone service.Wallet collaborator. Each
// movement runs in its own transaction, so the ledger entry and the balance
// update commit together even for callers holding no unit of work.
type WalletService struct {
	db *database.DB
}

// NewWalletService creates a new standalone wallet
func NewWalletService(db *database.DB) service.Wallet {
	return &WalletService{db: db}
}

// GetBalance returns the member's current coin balance
func (w *WalletService) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	return NewWalletRepository(w.db).GetBalance(ctx, memberID)
}

// Credit adds coins to the member's balance, idempotent on the key
func (w *WalletService) Credit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error {
	return w.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return newWalletRepositoryWithTx(tx).Credit(ctx, memberID, amount, idempotencyKey)
	})
}

// Debit removes coins from the member's balance, idempotent on the key
func (w *WalletService) Debit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error {
	return w.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return newWalletRepositoryWithTx(tx).Debit(ctx, memberID, amount, idempotencyKey)
	})
}
