package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htc101524/BoardGameMondays-sub002/models"
	"github.com/htc101524/BoardGameMondays-sub002/repository/testutil"
)

func TestGameSessionRepository_TransitionState(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGameSessionRepository(testDB.DB)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)

	t.Run("new sessions start planned", func(t *testing.T) {
		session := seedSession(t, testDB.DB, night.ID, "Catan")
		assert.Equal(t, models.SessionStatePlanned, session.State)
		assert.Nil(t, session.ConfirmedAt)
	})

	t.Run("transition succeeds exactly once", func(t *testing.T) {
		session := seedSession(t, testDB.DB, night.ID, "Azul")

		moved, err := repo.TransitionState(ctx, session.ID, models.SessionStatePlanned, models.SessionStateConfirmed)
		require.NoError(t, err)
		assert.True(t, moved)

		// Second attempt finds the row already out of the from-state
		moved, err = repo.TransitionState(ctx, session.ID, models.SessionStatePlanned, models.SessionStateConfirmed)
		require.NoError(t, err)
		assert.False(t, moved)

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStateConfirmed, got.State)
		assert.NotNil(t, got.ConfirmedAt)
	})

	t.Run("transition from the wrong state is refused", func(t *testing.T) {
		session := seedSession(t, testDB.DB, night.ID, "Wingspan")

		moved, err := repo.TransitionState(ctx, session.ID, models.SessionStateConfirmed, models.SessionStatePlayed)
		require.NoError(t, err)
		assert.False(t, moved)

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatePlanned, got.State)
	})

	t.Run("unknown session", func(t *testing.T) {
		moved, err := repo.TransitionState(ctx, 99999, models.SessionStatePlanned, models.SessionStateConfirmed)
		require.NoError(t, err)
		assert.False(t, moved)
	})
}

func TestGameSessionRepository_Participants(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGameSessionRepository(testDB.DB)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)
	alice := seedMember(t, testDB.DB, "alice")
	bob := seedMember(t, testDB.DB, "bob")
	carol := seedMember(t, testDB.DB, "carol")

	session := seedConfirmedSession(t, testDB.DB, night.ID, "Catan", []int64{carol.ID, alice.ID, bob.ID})

	ids, err := repo.GetParticipantIDs(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice.ID, bob.ID, carol.ID}, ids)

	t.Run("no participants", func(t *testing.T) {
		empty := seedSession(t, testDB.DB, night.ID, "Azul")

		ids, err := repo.GetParticipantIDs(ctx, empty.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestGameSessionRepository_LockModes(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)
	session := seedSession(t, testDB.DB, night.ID, "Catan")

	t.Run("share locks coexist", func(t *testing.T) {
		tx1, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx1.Rollback(ctx)
		tx2, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx2.Rollback(ctx)

		_, err = newGameSessionRepositoryWithTx(tx1).GetByIDLocked(ctx, session.ID)
		require.NoError(t, err)

		lockCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err = newGameSessionRepositoryWithTx(tx2).GetByIDLocked(lockCtx, session.ID)
		assert.NoError(t, err, "two share locks on the same session must not block each other")
	})

	t.Run("exclusive lock waits out a share lock", func(t *testing.T) {
		// Holding the share lock the bet placement path takes, an odds
		// regeneration's exclusive read must block until the placement
		// finishes rather than proceed on a stale view of the bets.
		placement, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		_, err = newGameSessionRepositoryWithTx(placement).GetByIDLocked(ctx, session.ID)
		require.NoError(t, err)

		regen, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer regen.Rollback(ctx)

		lockCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = newGameSessionRepositoryWithTx(regen).GetByIDForUpdate(lockCtx, session.ID)
		assert.Error(t, err, "exclusive read must wait behind the share lock")

		require.NoError(t, placement.Rollback(ctx))
	})

	t.Run("exclusive lock released on commit", func(t *testing.T) {
		regen, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		got, err := newGameSessionRepositoryWithTx(regen).GetByIDForUpdate(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NoError(t, regen.Commit(ctx))

		lockCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		tx, err := testDB.DB.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)
		_, err = newGameSessionRepositoryWithTx(tx).GetByIDLocked(lockCtx, session.ID)
		assert.NoError(t, err)
	})
}

func TestGameSessionRepository_RecordOutcome(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewGameSessionRepository(testDB.DB)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)
	alice := seedMember(t, testDB.DB, "alice")
	bob := seedMember(t, testDB.DB, "bob")
	roster := []int64{alice.ID, bob.ID}

	t.Run("winner moves the session to played", func(t *testing.T) {
		session := seedConfirmedSession(t, testDB.DB, night.ID, "Catan", roster)

		moved, err := repo.RecordOutcome(ctx, session.ID, &alice.ID, nil, time.Now())
		require.NoError(t, err)
		assert.True(t, moved)

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatePlayed, got.State)
		require.NotNil(t, got.WinnerMemberID)
		assert.Equal(t, alice.ID, *got.WinnerMemberID)
		assert.NotNil(t, got.PlayedAt)
	})

	t.Run("draw stores no winner", func(t *testing.T) {
		session := seedConfirmedSession(t, testDB.DB, night.ID, "Azul", roster)

		moved, err := repo.RecordOutcome(ctx, session.ID, nil, nil, time.Now())
		require.NoError(t, err)
		assert.True(t, moved)

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SessionStatePlayed, got.State)
		assert.Nil(t, got.WinnerMemberID)
		assert.Nil(t, got.WinnerTeamName)
	})

	t.Run("team name is stored", func(t *testing.T) {
		session := seedConfirmedSession(t, testDB.DB, night.ID, "Codenames", roster)

		team := "red"
		moved, err := repo.RecordOutcome(ctx, session.ID, nil, &team, time.Now())
		require.NoError(t, err)
		assert.True(t, moved)

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		require.NotNil(t, got.WinnerTeamName)
		assert.Equal(t, "red", *got.WinnerTeamName)
	})

	t.Run("planned session is refused", func(t *testing.T) {
		session := seedSession(t, testDB.DB, night.ID, "Wingspan")

		moved, err := repo.RecordOutcome(ctx, session.ID, &alice.ID, nil, time.Now())
		require.NoError(t, err)
		assert.False(t, moved)
	})

	t.Run("second outcome is refused", func(t *testing.T) {
		session := seedConfirmedSession(t, testDB.DB, night.ID, "Root", roster)

		moved, err := repo.RecordOutcome(ctx, session.ID, &alice.ID, nil, time.Now())
		require.NoError(t, err)
		require.True(t, moved)

		moved, err = repo.RecordOutcome(ctx, session.ID, &bob.ID, nil, time.Now())
		require.NoError(t, err)
		assert.False(t, moved)

		got, err := repo.GetByID(ctx, session.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, *got.WinnerMemberID)
	})
}
