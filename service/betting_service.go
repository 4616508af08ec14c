package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

type bettingService struct {
	uowFactory UnitOfWorkFactory
}

// NewBettingService creates a new betting service
func NewBettingService(uowFactory UnitOfWorkFactory) BettingService {
	return &bettingService{uowFactory: uowFactory}
}

// PlaceBet places a coin wager on a candidate to win a session, freezing the
// candidate's current odds onto the bet. Preconditions are checked in a fixed
// order so each failure mode is distinct: session state, night lifecycle,
// candidate, duplicate, balance. The stake debit and the bet insert share one
// transaction, so no partial placement can survive.
func (s *bettingService) PlaceBet(ctx context.Context, sessionID, memberID, candidateID int64, amount int64) (*models.Bet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("bet amount must be positive, got %d", amount)
	}

	bet, err := withRetry(ctx, func() (*models.Bet, error) {
		return s.placeBet(ctx, sessionID, memberID, candidateID, amount)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"betID":        bet.ID,
		"sessionID":    sessionID,
		"memberID":     memberID,
		"candidateID":  candidateID,
		"amount":       amount,
		"oddsTimes100": bet.OddsTimes100,
	}).Info("Bet placed")

	return bet, nil
}

func (s *bettingService) placeBet(ctx context.Context, sessionID, memberID, candidateID int64, amount int64) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The share lock holds the session state steady for the rest of the
	// transaction: a concurrent outcome recording waits behind it.
	session, err := uow.GameSessionRepository().GetByIDLocked(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}
	if !session.IsOpenForBetting() {
		return nil, fmt.Errorf("session %d (state: %s): %w", sessionID, session.State, models.ErrSessionNotOpenForBetting)
	}

	allowed, err := canMemberBet(ctx, uow, session.GameNightID, memberID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("member %d on night %d: %w", memberID, session.GameNightID, models.ErrBettingLocked)
	}

	odds, err := uow.OddsRepository().GetByCandidate(ctx, sessionID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get odds: %w", err)
	}
	if odds == nil {
		return nil, fmt.Errorf("candidate %d on session %d: %w", candidateID, sessionID, models.ErrUnknownCandidate)
	}

	existing, err := uow.BetRepository().GetBySessionAndMember(ctx, sessionID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing bet: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("member %d on session %d: %w", memberID, sessionID, models.ErrDuplicateBet)
	}

	balance, err := uow.WalletRepository().GetBalance(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance < amount {
		return nil, fmt.Errorf("member %d has %d coins, needs %d: %w", memberID, balance, amount, models.ErrInsufficientBalance)
	}

	stakeKey := models.StakeKey(sessionID, memberID)
	if err := uow.WalletRepository().Debit(ctx, memberID, amount, stakeKey); err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}

	bet := &models.Bet{
		SessionID:               sessionID,
		MemberID:                memberID,
		PredictedWinnerMemberID: candidateID,
		Amount:                  amount,
		OddsTimes100:            odds.OddsTimes100,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		BetID:        bet.ID,
		SessionID:    sessionID,
		MemberID:     memberID,
		CandidateID:  candidateID,
		Amount:       amount,
		OddsTimes100: odds.OddsTimes100,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bet, nil
}

// GetBetsForMember returns a member's bets, most recent first
func (s *bettingService) GetBetsForMember(ctx context.Context, memberID int64, limit int) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().GetByMember(ctx, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bets, nil
}

// GetBetsForSession returns all bets on a session
func (s *bettingService) GetBetsForSession(ctx context.Context, sessionID int64) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return bets, nil
}
