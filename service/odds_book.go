package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/htc101524/BoardGameMondays-sub002/config"
	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// epsilon guards the odds conversion against a vanishing win probability
const oddsEpsilon = 1e-9

type oddsService struct {
	config     *config.Config
	uowFactory UnitOfWorkFactory
	cache      OddsCache
}

// NewOddsService creates a new odds service. cache may be nil, in which case
// every read goes to the database.
func NewOddsService(uowFactory UnitOfWorkFactory, cache OddsCache) OddsService {
	return &oddsService{
		config:     config.Get(),
		uowFactory: uowFactory,
		cache:      cache,
	}
}

// computeOddsTimes100 converts candidate ratings into decimal odds ×100.
// Implied win probabilities come from a logistic transform of each rating
// against the field mean, normalized to sum to 1. The house margin scales
// payouts down; the floor keeps every candidate at even money or better.
// Candidates with equal ratings always get equal odds.
func computeOddsTimes100(ratings map[int64]int, marginBps int) map[int64]int64 {
	ids := make([]int64, 0, len(ratings))
	total := 0
	for id, rating := range ratings {
		ids = append(ids, id)
		total += rating
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	mean := float64(total) / float64(len(ids))

	raw := make(map[int64]float64, len(ids))
	var rawSum float64
	for _, id := range ids {
		p := 1 / (1 + math.Pow(10, -(float64(ratings[id])-mean)/400))
		raw[id] = p
		rawSum += p
	}

	margin := float64(marginBps) / 10000
	odds := make(map[int64]int64, len(ids))
	for _, id := range ids {
		p := raw[id] / rawSum
		value := int64(math.Round(100 * (1 - margin) / math.Max(p, oddsEpsilon)))
		if value < models.MinOddsTimes100 {
			value = models.MinOddsTimes100
		}
		odds[id] = value
	}

	return odds
}

// GenerateOdds computes and persists the odds sheet for a confirmed session
func (s *oddsService) GenerateOdds(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error) {
	return s.generate(ctx, sessionID, false)
}

// RegenerateOdds replaces the odds sheet for a session with no bets yet
func (s *oddsService) RegenerateOdds(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error) {
	return s.generate(ctx, sessionID, true)
}

func (s *oddsService) generate(ctx context.Context, sessionID int64, regenerate bool) ([]*models.OddsEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// The exclusive lock conflicts with the share lock placement holds, so
	// the no-bets check below cannot race a bet committing mid-regeneration.
	session, err := uow.GameSessionRepository().GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}
	if !session.IsConfirmed() {
		return nil, fmt.Errorf("session %d is not confirmed (state: %s)", sessionID, session.State)
	}

	hasOdds, err := uow.OddsRepository().ExistsForSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing odds: %w", err)
	}

	if hasOdds {
		if !regenerate {
			return nil, fmt.Errorf("session %d already has odds", sessionID)
		}

		// Regeneration is only legal while no bet has frozen the sheet
		hasBets, err := uow.BetRepository().ExistsForSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing bets: %w", err)
		}
		if hasBets {
			return nil, fmt.Errorf("session %d: %w", sessionID, models.ErrOddsLocked)
		}

		if err := uow.OddsRepository().DeleteBySession(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("failed to delete odds: %w", err)
		}

		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, sessionID); err != nil {
				log.WithError(err).WithField("sessionID", sessionID).Warn("Failed to invalidate odds cache")
			}
		}
	}

	candidateIDs, err := uow.GameSessionRepository().GetParticipantIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	if len(candidateIDs) < 2 {
		return nil, fmt.Errorf("session %d needs at least 2 participants for odds, has %d", sessionID, len(candidateIDs))
	}

	members, err := uow.MemberRepository().GetByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate members: %w", err)
	}

	ratings := make(map[int64]int, len(candidateIDs))
	for _, id := range candidateIDs {
		member, ok := members[id]
		if !ok {
			return nil, fmt.Errorf("participant %d not found", id)
		}
		ratings[id] = member.Rating
	}

	oddsByCandidate := computeOddsTimes100(ratings, s.config.HouseMarginBps)

	entries := make([]*models.OddsEntry, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		entries = append(entries, &models.OddsEntry{
			SessionID:         sessionID,
			CandidateMemberID: id,
			OddsTimes100:      oddsByCandidate[id],
		})
	}

	if err := uow.OddsRepository().CreateAll(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to persist odds: %w", err)
	}

	uow.EventBus().Publish(events.OddsGeneratedEvent{
		SessionID: sessionID,
		BoardGame: session.BoardGame,
		Odds:      oddsByCandidate,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetOdds(ctx, sessionID, entries); err != nil {
			log.WithError(err).WithField("sessionID", sessionID).Warn("Failed to cache odds sheet")
		}
	}

	return entries, nil
}

// GetOddsForSession returns the odds sheet, served from cache when warm
func (s *oddsService) GetOddsForSession(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error) {
	if s.cache != nil {
		entries, found, err := s.cache.GetOdds(ctx, sessionID)
		if err != nil {
			log.WithError(err).WithField("sessionID", sessionID).Warn("Odds cache read failed")
		} else if found {
			return entries, nil
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.OddsRepository().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get odds: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.cache != nil && len(entries) > 0 {
		if err := s.cache.SetOdds(ctx, sessionID, entries); err != nil {
			log.WithError(err).WithField("sessionID", sessionID).Warn("Failed to cache odds sheet")
		}
	}

	return entries, nil
}
