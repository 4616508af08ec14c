package service

import (
	"context"
	"fmt"
	"time"

	"github.com/htc101524/BoardGameMondays-sub002/models"
)

type sessionService struct {
	uowFactory UnitOfWorkFactory
}

// NewSessionService creates a new session service
func NewSessionService(uowFactory UnitOfWorkFactory) SessionService {
	return &sessionService{uowFactory: uowFactory}
}

// CreateSession adds a planned session for a board game to a night
func (s *sessionService) CreateSession(ctx context.Context, nightID int64, boardGame string) (*models.GameSession, error) {
	if boardGame == "" {
		return nil, fmt.Errorf("board game name is required")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	night, err := uow.GameNightRepository().GetByID(ctx, nightID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game night: %w", err)
	}
	if night == nil {
		return nil, fmt.Errorf("game night %d not found", nightID)
	}

	session, err := uow.GameSessionRepository().Create(ctx, nightID, boardGame)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

// ConfirmSession locks the player roster and moves the session from planned
// to confirmed. From here on odds may be generated and bets placed.
func (s *sessionService) ConfirmSession(ctx context.Context, sessionID int64, participantIDs []int64) (*models.GameSession, error) {
	if len(participantIDs) < 2 {
		return nil, fmt.Errorf("session needs at least 2 participants, got %d", len(participantIDs))
	}
	seen := make(map[int64]bool, len(participantIDs))
	for _, id := range participantIDs {
		if seen[id] {
			return nil, fmt.Errorf("duplicate participant %d", id)
		}
		seen[id] = true
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	members, err := uow.MemberRepository().GetByIDs(ctx, participantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	for _, id := range participantIDs {
		if _, ok := members[id]; !ok {
			return nil, fmt.Errorf("member %d not found", id)
		}
	}

	moved, err := uow.GameSessionRepository().TransitionState(ctx, sessionID, models.SessionStatePlanned, models.SessionStateConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm session: %w", err)
	}
	if !moved {
		session, err := uow.GameSessionRepository().GetByID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if session == nil {
			return nil, fmt.Errorf("session %d not found", sessionID)
		}
		return nil, fmt.Errorf("session %d is not planned (state: %s)", sessionID, session.State)
	}

	if err := uow.GameSessionRepository().SetParticipants(ctx, sessionID, participantIDs); err != nil {
		return nil, fmt.Errorf("failed to set participants: %w", err)
	}

	session, err := uow.GameSessionRepository().GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}

// RecordOutcome stores the winner and moves the session from confirmed to
// played, which closes betting. Resolution is a separate step.
func (s *sessionService) RecordOutcome(ctx context.Context, outcome *models.SessionOutcome) (*models.GameSession, error) {
	if outcome.WinnerMemberID == nil && outcome.WinnerTeamName == nil && !outcome.IsDraw {
		return nil, fmt.Errorf("outcome needs a winner or an explicit draw")
	}
	// Settlement needs an individual winner. Accepting a bare team name here
	// would strand the session in played with no way to pay out its bets, so
	// team outcomes must name the winning member too.
	if outcome.WinnerTeamName != nil && outcome.WinnerMemberID == nil {
		return nil, fmt.Errorf("team outcome for session %d needs the winning member: %w", outcome.SessionID, models.ErrUnsupportedOutcome)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if outcome.WinnerMemberID != nil {
		participantIDs, err := uow.GameSessionRepository().GetParticipantIDs(ctx, outcome.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get participants: %w", err)
		}
		found := false
		for _, id := range participantIDs {
			if id == *outcome.WinnerMemberID {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("winner %d is not a participant of session %d", *outcome.WinnerMemberID, outcome.SessionID)
		}
	}

	moved, err := uow.GameSessionRepository().RecordOutcome(ctx, outcome.SessionID, outcome.WinnerMemberID, outcome.WinnerTeamName, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record outcome: %w", err)
	}
	if !moved {
		session, err := uow.GameSessionRepository().GetByID(ctx, outcome.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if session == nil {
			return nil, fmt.Errorf("session %d not found", outcome.SessionID)
		}
		return nil, fmt.Errorf("session %d is not confirmed (state: %s)", outcome.SessionID, session.State)
	}

	session, err := uow.GameSessionRepository().GetByID(ctx, outcome.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return session, nil
}
