package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/config"
	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

const deliveryBatchSize = 100

// creditDeliverer pushes one outbox entry to the wallet and stamps it
// delivered. Shared by the immediate post-settlement attempt and the retry
// worker; the payout idempotency key makes overlap between the two harmless.
type creditDeliverer struct {
	uowFactory UnitOfWorkFactory
	wallet     Wallet
}

func newCreditDeliverer(uowFactory UnitOfWorkFactory, wallet Wallet) *creditDeliverer {
	return &creditDeliverer{
		uowFactory: uowFactory,
		wallet:     wallet,
	}
}

func (d *creditDeliverer) deliver(ctx context.Context, credit *models.PendingCredit) error {
	if err := d.wallet.Credit(ctx, credit.MemberID, credit.Amount, credit.IdempotencyKey); err != nil {
		return fmt.Errorf("wallet credit failed: %w", err)
	}

	// The wallet accepted (or had already accepted) the credit. If the
	// stamp below fails the entry is redelivered later and the wallet
	// dedupes it on the idempotency key.
	uow := d.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PendingCreditRepository().MarkDelivered(ctx, credit.ID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark credit delivered: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreditWorker redrives undelivered payout credits from the outbox until the
// wallet accepts them. At-least-once: a crash between wallet accept and the
// delivered stamp just means one more idempotent replay.
type CreditWorker struct {
	deliverer  *creditDeliverer
	uowFactory UnitOfWorkFactory
	eventBus   *events.Bus
	interval   time.Duration
	maxAlert   int
}

// NewCreditWorker creates a new credit retry worker
func NewCreditWorker(uowFactory UnitOfWorkFactory, wallet Wallet, eventBus *events.Bus) *CreditWorker {
	cfg := config.Get()
	return &CreditWorker{
		deliverer:  newCreditDeliverer(uowFactory, wallet),
		uowFactory: uowFactory,
		eventBus:   eventBus,
		interval:   cfg.CreditRetryInterval,
		maxAlert:   cfg.CreditMaxAttempts,
	}
}

// Run loops until the context is cancelled
func (w *CreditWorker) Run(ctx context.Context) {
	log.WithField("interval", w.interval).Info("Credit retry worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Credit retry worker stopped")
			return
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				log.WithError(err).Error("Credit retry pass failed")
			}
		}
	}
}

// runOnce redrives one batch of undelivered credits
func (w *CreditWorker) runOnce(ctx context.Context) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	credits, err := uow.PendingCreditRepository().GetUndelivered(ctx, deliveryBatchSize)
	if err != nil {
		return fmt.Errorf("failed to get undelivered credits: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, credit := range credits {
		if err := w.deliverer.deliver(ctx, credit); err != nil {
			w.recordFailure(ctx, credit, err)
			continue
		}

		w.eventBus.Emit(ctx, events.CreditRetriedEvent{
			SessionID: credit.SessionID,
			MemberID:  credit.MemberID,
			Amount:    credit.Amount,
			Attempts:  credit.Attempts + 1,
		})
	}

	return nil
}

func (w *CreditWorker) recordFailure(ctx context.Context, credit *models.PendingCredit, deliverErr error) {
	logger := log.WithError(deliverErr).WithFields(log.Fields{
		"creditID":  credit.ID,
		"sessionID": credit.SessionID,
		"memberID":  credit.MemberID,
		"attempts":  credit.Attempts + 1,
	})
	if credit.Attempts+1 >= w.maxAlert {
		logger.Error("Payout credit still undelivered, needs attention")
	} else {
		logger.Warn("Payout credit delivery failed, will retry")
	}

	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Error("Failed to record credit delivery attempt")
		return
	}
	defer uow.Rollback()

	if err := uow.PendingCreditRepository().RecordAttempt(ctx, credit.ID); err != nil {
		log.WithError(err).Error("Failed to record credit delivery attempt")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).Error("Failed to record credit delivery attempt")
	}
}
