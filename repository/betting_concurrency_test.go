package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
	"github.com/htc101524/BoardGameMondays-sub002/repository/testutil"
	"github.com/htc101524/BoardGameMondays-sub002/service"
)

// Concurrent placements of the same (session, member) wager race the duplicate
// precheck inside the betting service; the bets table constraint is what keeps
// the guarantee, so this drives the full service path against real Postgres.
func TestBettingService_ConcurrentDuplicatePlacements(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	factory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	wallet := NewWalletService(testDB.DB)
	svc := service.NewBettingService(factory)

	night := seedNight(t, testDB.DB)
	alice := seedMember(t, testDB.DB, "alice")
	bob := seedMember(t, testDB.DB, "bob")
	punter := seedMember(t, testDB.DB, "punter")
	session := seedConfirmedSession(t, testDB.DB, night.ID, "Catan", []int64{alice.ID, bob.ID})

	oddsRepo := NewOddsRepository(testDB.DB)
	require.NoError(t, oddsRepo.CreateAll(ctx, []*models.OddsEntry{
		testutil.CreateTestOddsEntry(session.ID, alice.ID, 190),
		testutil.CreateTestOddsEntry(session.ID, bob.ID, 190),
	}))

	require.NoError(t, wallet.Credit(ctx, punter.ID, 10000, "grubstake:punter"))

	const placements = 8

	var wg sync.WaitGroup
	errs := make([]error, placements)
	for i := 0; i < placements; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.PlaceBet(ctx, session.ID, punter.ID, alice.ID, 500)
			errs[i] = err
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrDuplicateBet)
	}
	assert.Equal(t, 1, succeeded, "exactly one of the racing placements may win")

	// A single bet exists and a single stake was debited.
	bet, err := NewBetRepository(testDB.DB).GetBySessionAndMember(ctx, session.ID, punter.ID)
	require.NoError(t, err)
	require.NotNil(t, bet)
	assert.Equal(t, int64(500), bet.Amount)

	balance, err := wallet.GetBalance(ctx, punter.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9500), balance)
}
