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

func TestBetRepository_Create(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)
	alice := seedMember(t, testDB.DB, "alice")
	bob := seedMember(t, testDB.DB, "bob")
	punter := seedMember(t, testDB.DB, "punter")
	session := seedConfirmedSession(t, testDB.DB, night.ID, "Catan", []int64{alice.ID, bob.ID})

	t.Run("successful creation", func(t *testing.T) {
		bet := testutil.CreateTestBetWithStake(session.ID, punter.ID, alice.ID, 500, 190)

		err := repo.Create(ctx, bet)
		require.NoError(t, err)
		assert.NotZero(t, bet.ID)
		assert.False(t, bet.IsResolved)
		assert.Zero(t, bet.Payout)
		assert.False(t, bet.CreatedAt.IsZero())
	})

	t.Run("one bet per member per session", func(t *testing.T) {
		dup := testutil.CreateTestBet(session.ID, punter.ID, bob.ID)

		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, models.ErrDuplicateBet)
	})

	t.Run("same member may bet on another session", func(t *testing.T) {
		other := seedConfirmedSession(t, testDB.DB, night.ID, "Azul", []int64{alice.ID, bob.ID})
		bet := testutil.CreateTestBet(other.ID, punter.ID, bob.ID)

		err := repo.Create(ctx, bet)
		require.NoError(t, err)
	})
}

func TestBetRepository_MarkResolved(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)
	alice := seedMember(t, testDB.DB, "alice")
	bob := seedMember(t, testDB.DB, "bob")
	punter := seedMember(t, testDB.DB, "punter")
	session := seedConfirmedSession(t, testDB.DB, night.ID, "Catan", []int64{alice.ID, bob.ID})

	bet := testutil.CreateTestBetWithStake(session.ID, punter.ID, alice.ID, 500, 190)
	require.NoError(t, repo.Create(ctx, bet))

	t.Run("first settlement wins", func(t *testing.T) {
		resolved, err := repo.MarkResolved(ctx, bet.ID, 950, time.Now())
		require.NoError(t, err)
		assert.True(t, resolved)

		got, err := repo.GetByID(ctx, bet.ID)
		require.NoError(t, err)
		assert.True(t, got.IsResolved)
		assert.Equal(t, int64(950), got.Payout)
		assert.NotNil(t, got.ResolvedAt)
	})

	t.Run("second settlement is refused", func(t *testing.T) {
		resolved, err := repo.MarkResolved(ctx, bet.ID, 950, time.Now())
		require.NoError(t, err)
		assert.False(t, resolved)
	})

	t.Run("resolved bets drop out of the unresolved set", func(t *testing.T) {
		other := testutil.CreateTestBet(session.ID, bob.ID, bob.ID)
		require.NoError(t, repo.Create(ctx, other))

		unresolved, err := repo.GetUnresolvedBySession(ctx, session.ID)
		require.NoError(t, err)
		require.Len(t, unresolved, 1)
		assert.Equal(t, other.ID, unresolved[0].ID)
	})
}

func TestBetRepository_GetByMember(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)
	alice := seedMember(t, testDB.DB, "alice")
	bob := seedMember(t, testDB.DB, "bob")
	punter := seedMember(t, testDB.DB, "punter")

	var sessionIDs []int64
	for _, game := range []string{"Catan", "Azul", "Root"} {
		session := seedConfirmedSession(t, testDB.DB, night.ID, game, []int64{alice.ID, bob.ID})
		bet := testutil.CreateTestBet(session.ID, punter.ID, alice.ID)
		require.NoError(t, repo.Create(ctx, bet))
		sessionIDs = append(sessionIDs, session.ID)
	}

	t.Run("newest first", func(t *testing.T) {
		bets, err := repo.GetByMember(ctx, punter.ID, 10)
		require.NoError(t, err)
		require.Len(t, bets, 3)
		assert.Equal(t, sessionIDs[2], bets[0].SessionID)
		assert.Equal(t, sessionIDs[0], bets[2].SessionID)
	})

	t.Run("limit applies", func(t *testing.T) {
		bets, err := repo.GetByMember(ctx, punter.ID, 2)
		require.NoError(t, err)
		assert.Len(t, bets, 2)
	})

	t.Run("no bets", func(t *testing.T) {
		bets, err := repo.GetByMember(ctx, alice.ID, 10)
		require.NoError(t, err)
		assert.Empty(t, bets)
	})
}

func TestBetRepository_ExistsForSession(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBetRepository(testDB.DB)
	ctx := context.Background()

	night := seedNight(t, testDB.DB)
	alice := seedMember(t, testDB.DB, "alice")
	bob := seedMember(t, testDB.DB, "bob")
	session := seedConfirmedSession(t, testDB.DB, night.ID, "Catan", []int64{alice.ID, bob.ID})

	exists, err := repo.ExistsForSession(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	bet := testutil.CreateTestBet(session.ID, bob.ID, alice.ID)
	require.NoError(t, repo.Create(ctx, bet))

	exists, err = repo.ExistsForSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}
