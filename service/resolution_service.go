package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/config"
	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

type resolutionService struct {
	uowFactory  UnitOfWorkFactory
	ratingModel *RatingModel
	deliverer   *creditDeliverer
	oddsCache   OddsCache
}

// NewResolutionService creates a new resolution service. wallet receives the
// immediate post-settlement payout attempts; undelivered credits are picked up
// by the retry worker. cache may be nil.
func NewResolutionService(uowFactory UnitOfWorkFactory, wallet Wallet, cache OddsCache) ResolutionService {
	return &resolutionService{
		uowFactory:  uowFactory,
		ratingModel: NewRatingModel(config.Get().EloKFactor),
		deliverer:   newCreditDeliverer(uowFactory, wallet),
		oddsCache:   cache,
	}
}

// ResolveSession settles every bet on a played session exactly once: payouts
// and rating updates commit atomically with the move to resolved. Wallet
// crediting happens after the commit, at-least-once, from the pending credit
// outbox written inside the settlement transaction.
func (s *resolutionService) ResolveSession(ctx context.Context, sessionID int64) (*models.ResolutionResult, error) {
	result, err := withRetry(ctx, func() (*models.ResolutionResult, error) {
		return s.resolve(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"sessionID":    sessionID,
		"winningBets":  len(result.WinningBets),
		"losingBets":   len(result.LosingBets),
		"totalPaidOut": result.TotalPaidOut,
	}).Info("Session resolved")

	// Immediate delivery attempt; anything that fails here stays in the
	// outbox for the retry worker.
	s.deliverPayouts(ctx, sessionID)

	if s.oddsCache != nil {
		if err := s.oddsCache.Invalidate(ctx, sessionID); err != nil {
			log.WithError(err).WithField("sessionID", sessionID).Warn("Failed to invalidate odds cache")
		}
	}

	return result, nil
}

func (s *resolutionService) resolve(ctx context.Context, sessionID int64) (*models.ResolutionResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// First-writer-wins claim. A rollback anywhere below restores played,
	// so a failed resolution is retryable; a concurrent claimant loses the
	// compare-and-set and backs off with ErrAlreadyResolved.
	claimed, err := uow.GameSessionRepository().TransitionState(ctx, sessionID, models.SessionStatePlayed, models.SessionStateResolving)
	if err != nil {
		return nil, fmt.Errorf("failed to claim session for resolution: %w", err)
	}
	if !claimed {
		session, err := uow.GameSessionRepository().GetByID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if session == nil {
			return nil, fmt.Errorf("session %d not found", sessionID)
		}
		switch session.State {
		case models.SessionStateResolving, models.SessionStateResolved:
			return nil, fmt.Errorf("session %d: %w", sessionID, models.ErrAlreadyResolved)
		default:
			return nil, fmt.Errorf("session %d has no recorded outcome (state: %s)", sessionID, session.State)
		}
	}

	session, err := uow.GameSessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	participantIDs, err := uow.GameSessionRepository().GetParticipantIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	outcome := &models.SessionOutcome{
		SessionID:      sessionID,
		ParticipantIDs: participantIDs,
		WinnerMemberID: session.WinnerMemberID,
		WinnerTeamName: session.WinnerTeamName,
		// A played session with neither a winning member nor a winning
		// team was recorded as a draw.
		IsDraw: session.WinnerMemberID == nil && session.WinnerTeamName == nil,
	}

	// Outcome recording refuses team victories without a winning member, so
	// this only trips on rows written outside the service. Refuse rather
	// than guess at a settlement.
	if session.WinnerTeamName != nil && session.WinnerMemberID == nil {
		return nil, fmt.Errorf("session %d has a team winner with no member recorded: %w", sessionID, models.ErrUnsupportedOutcome)
	}

	now := time.Now()

	winningBets, losingBets, totalPaidOut, err := s.settleBets(ctx, uow, session, now)
	if err != nil {
		return nil, err
	}

	ratingChanges, err := s.applyRatingUpdates(ctx, uow, outcome, now)
	if err != nil {
		return nil, err
	}

	moved, err := uow.GameSessionRepository().TransitionState(ctx, sessionID, models.SessionStateResolving, models.SessionStateResolved)
	if err != nil {
		return nil, fmt.Errorf("failed to mark session resolved: %w", err)
	}
	if !moved {
		return nil, fmt.Errorf("session %d left resolving state mid-settlement", sessionID)
	}

	session, err = uow.GameSessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	deltas := make(map[int64]int, len(ratingChanges))
	for _, change := range ratingChanges {
		deltas[change.MemberID] = change.Delta()
	}
	uow.EventBus().Publish(events.SessionResolvedEvent{
		SessionID:      sessionID,
		BoardGame:      session.BoardGame,
		WinnerMemberID: session.WinnerMemberID,
		WinnerTeamName: session.WinnerTeamName,
		WinningBets:    len(winningBets),
		LosingBets:     len(losingBets),
		TotalPaidOut:   totalPaidOut,
		RatingDeltas:   deltas,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.ResolutionResult{
		Session:       session,
		WinningBets:   winningBets,
		LosingBets:    losingBets,
		TotalPaidOut:  totalPaidOut,
		RatingChanges: ratingChanges,
	}, nil
}

// settleBets resolves every unresolved bet on the session and writes pending
// credits for the winners. The bets are locked for update, so a concurrent
// reader cannot observe a half-settled session.
func (s *resolutionService) settleBets(ctx context.Context, uow UnitOfWork, session *models.GameSession, now time.Time) (winning, losing []*models.Bet, totalPaidOut int64, err error) {
	bets, err := uow.BetRepository().GetUnresolvedBySession(ctx, session.ID)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to get unresolved bets: %w", err)
	}

	for _, bet := range bets {
		isWinner := session.WinnerMemberID != nil && bet.Predicts(*session.WinnerMemberID)

		var payout int64
		if isWinner {
			payout = bet.WinningPayout()
		}

		settled, err := uow.BetRepository().MarkResolved(ctx, bet.ID, payout, now)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to settle bet %d: %w", bet.ID, err)
		}
		if !settled {
			// Unreachable while the claim protocol holds; the guard
			// keeps a bug from ever paying a bet twice.
			return nil, nil, 0, fmt.Errorf("bet %d: %w", bet.ID, models.ErrAlreadyResolved)
		}

		bet.IsResolved = true
		bet.Payout = payout
		bet.ResolvedAt = &now

		if !isWinner {
			losing = append(losing, bet)
			continue
		}

		winning = append(winning, bet)
		totalPaidOut += payout

		if payout > 0 {
			credit := &models.PendingCredit{
				SessionID:      session.ID,
				MemberID:       bet.MemberID,
				Amount:         payout,
				IdempotencyKey: models.PayoutKey(session.ID, bet.MemberID),
			}
			if err := uow.PendingCreditRepository().Create(ctx, credit); err != nil {
				return nil, nil, 0, fmt.Errorf("failed to record pending credit: %w", err)
			}
		}
	}

	return winning, losing, totalPaidOut, nil
}

// applyRatingUpdates runs the pure rating model over the participants and
// persists the new ratings, stamping rating_updated_at with the same instant.
func (s *resolutionService) applyRatingUpdates(ctx context.Context, uow UnitOfWork, outcome *models.SessionOutcome, now time.Time) ([]models.RatingChange, error) {
	members, err := uow.MemberRepository().GetByIDs(ctx, outcome.ParticipantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	ratings := make(map[int64]int, len(outcome.ParticipantIDs))
	for _, id := range outcome.ParticipantIDs {
		member, ok := members[id]
		if !ok {
			return nil, fmt.Errorf("participant %d not found", id)
		}
		ratings[id] = member.Rating
	}

	changes, err := s.ratingModel.UpdateRatings(ratings, outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating updates: %w", err)
	}

	for _, change := range changes {
		if err := uow.MemberRepository().UpdateRating(ctx, change.MemberID, change.NewRating, now); err != nil {
			return nil, fmt.Errorf("failed to update rating for member %d: %w", change.MemberID, err)
		}
	}

	return changes, nil
}

// deliverPayouts pushes the session's outbox entries to the wallet right
// after settlement commits. Best effort only.
func (s *resolutionService) deliverPayouts(ctx context.Context, sessionID int64) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).WithField("sessionID", sessionID).Warn("Failed to read pending credits for delivery")
		return
	}
	defer uow.Rollback()

	credits, err := uow.PendingCreditRepository().GetUndeliveredBySession(ctx, sessionID)
	if err != nil {
		log.WithError(err).WithField("sessionID", sessionID).Warn("Failed to read pending credits for delivery")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("sessionID", sessionID).Warn("Failed to read pending credits for delivery")
		return
	}

	for _, credit := range credits {
		if err := s.deliverer.deliver(ctx, credit); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"sessionID": credit.SessionID,
				"memberID":  credit.MemberID,
			}).Warn("Payout delivery failed, leaving for retry worker")
		}
	}
}

// EnsureResolved is the idempotent resolution wrapper: a retry that finds the
// session already resolved (or being resolved by another caller) is success.
func (s *resolutionService) EnsureResolved(ctx context.Context, sessionID int64) error {
	_, err := s.ResolveSession(ctx, sessionID)
	if err != nil && !errors.Is(err, models.ErrAlreadyResolved) {
		return err
	}
	return nil
}
