package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/service"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db                *database.DB
	tx                pgx.Tx
	ctx               context.Context
	transactionalBus  *events.TransactionalBus
	memberRepo        service.MemberRepository
	gameNightRepo     service.GameNightRepository
	gameSessionRepo   service.GameSessionRepository
	oddsRepo          service.OddsRepository
	betRepo           service.BetRepository
	pendingCreditRepo service.PendingCreditRepository
	walletRepo        service.WalletRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return wrapStorageErr(err, "failed to begin transaction")
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.memberRepo = newMemberRepositoryWithTx(tx)
	u.gameNightRepo = newGameNightRepositoryWithTx(tx)
	u.gameSessionRepo = newGameSessionRepositoryWithTx(tx)
	u.oddsRepo = newOddsRepositoryWithTx(tx)
	u.betRepo = newBetRepositoryWithTx(tx)
	u.pendingCreditRepo = newPendingCreditRepositoryWithTx(tx)
	u.walletRepo = newWalletRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return wrapStorageErr(err, "failed to commit transaction")
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// MemberRepository returns the member repository for this unit of work
func (u *unitOfWork) MemberRepository() service.MemberRepository {
	if u.memberRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.memberRepo
}

// GameNightRepository returns the game night repository for this unit of work
func (u *unitOfWork) GameNightRepository() service.GameNightRepository {
	if u.gameNightRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gameNightRepo
}

// GameSessionRepository returns the game session repository for this unit of work
func (u *unitOfWork) GameSessionRepository() service.GameSessionRepository {
	if u.gameSessionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.gameSessionRepo
}

// OddsRepository returns the odds repository for this unit of work
func (u *unitOfWork) OddsRepository() service.OddsRepository {
	if u.oddsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.oddsRepo
}

// BetRepository returns the bet repository for this unit of work
func (u *unitOfWork) BetRepository() service.BetRepository {
	if u.betRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.betRepo
}

// PendingCreditRepository returns the pending credit repository for this unit of work
func (u *unitOfWork) PendingCreditRepository() service.PendingCreditRepository {
	if u.pendingCreditRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.pendingCreditRepo
}

// WalletRepository returns the wallet repository for this unit of work
func (u *unitOfWork) WalletRepository() service.WalletRepository {
	if u.walletRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
