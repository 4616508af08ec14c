package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// nightDate hands out distinct dates; game_nights has a unique date constraint.
var nightDateSeq = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func nextNightDate() time.Time {
	nightDateSeq = nightDateSeq.AddDate(0, 0, 1)
	return nightDateSeq
}

func seedMember(t *testing.T, db *database.DB, name string) *models.Member {
	t.Helper()
	member, err := NewMemberRepository(db).Create(context.Background(), name)
	require.NoError(t, err)
	return member
}

func seedNight(t *testing.T, db *database.DB) *models.GameNight {
	t.Helper()
	night, err := NewGameNightRepository(db).Create(context.Background(), nextNightDate())
	require.NoError(t, err)
	return night
}

func seedSession(t *testing.T, db *database.DB, nightID int64, boardGame string) *models.GameSession {
	t.Helper()
	session, err := NewGameSessionRepository(db).Create(context.Background(), nightID, boardGame)
	require.NoError(t, err)
	return session
}

// seedConfirmedSession creates a session with a locked roster, ready for odds
// and bets.
func seedConfirmedSession(t *testing.T, db *database.DB, nightID int64, boardGame string, participantIDs []int64) *models.GameSession {
	t.Helper()
	ctx := context.Background()
	repo := NewGameSessionRepository(db)

	session := seedSession(t, db, nightID, boardGame)
	moved, err := repo.TransitionState(ctx, session.ID, models.SessionStatePlanned, models.SessionStateConfirmed)
	require.NoError(t, err)
	require.True(t, moved)
	require.NoError(t, repo.SetParticipants(ctx, session.ID, participantIDs))

	session, err = repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	return session
}
