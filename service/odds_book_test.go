package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/htc101524/BoardGameMondays-sub002/config"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

func TestComputeOddsTimes100_EqualRatings(t *testing.T) {
	ratings := map[int64]int{1: 1200, 2: 1200}

	odds := computeOddsTimes100(ratings, 0)
	assert.Equal(t, int64(200), odds[1])
	assert.Equal(t, int64(200), odds[2])

	// 5% margin trims the payout: round(100 * 0.95 / 0.5) = 190
	odds = computeOddsTimes100(ratings, 500)
	assert.Equal(t, int64(190), odds[1])
	assert.Equal(t, int64(190), odds[2])
}

func TestComputeOddsTimes100_TiesYieldEqualOdds(t *testing.T) {
	ratings := map[int64]int{1: 1200, 2: 1200, 3: 1200}

	odds := computeOddsTimes100(ratings, 500)
	assert.Equal(t, odds[1], odds[2])
	assert.Equal(t, odds[2], odds[3])
	// Each candidate carries probability 1/3: round(95 / (1/3)) = 285
	assert.Equal(t, int64(285), odds[1])
}

func TestComputeOddsTimes100_FavoriteAndUnderdog(t *testing.T) {
	ratings := map[int64]int{1: 1000, 2: 1400}

	odds := computeOddsTimes100(ratings, 0)
	// Probabilities come out 1/11 and 10/11 against the 1200 mean.
	assert.Equal(t, int64(1100), odds[1])
	assert.Equal(t, int64(110), odds[2])
	assert.Greater(t, odds[1], odds[2])
}

func TestComputeOddsTimes100_FloorAt100(t *testing.T) {
	// An overwhelming favorite would otherwise pay less than 1:1 once the
	// margin is applied.
	ratings := map[int64]int{1: 3000, 2: 1000}

	odds := computeOddsTimes100(ratings, 500)
	assert.Equal(t, int64(models.MinOddsTimes100), odds[1])
	assert.GreaterOrEqual(t, odds[2], int64(models.MinOddsTimes100))
}

func TestOddsService_GenerateOdds(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMemberRepo := new(MockMemberRepository)
	mockSessionRepo := new(MockGameSessionRepository)
	mockOddsRepo := new(MockOddsRepository)

	mockUoW.SetRepositories(mockMemberRepo, nil, mockSessionRepo, mockOddsRepo, nil, nil, nil)

	svc := NewOddsService(mockFactory, nil)

	session := &models.GameSession{ID: 5, GameNightID: 1, BoardGame: "Catan", State: models.SessionStateConfirmed}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)

	mockSessionRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(session, nil)
	mockOddsRepo.On("ExistsForSession", ctx, int64(5)).Return(false, nil)
	mockSessionRepo.On("GetParticipantIDs", ctx, int64(5)).Return([]int64{10, 11}, nil)
	mockMemberRepo.On("GetByIDs", ctx, []int64{10, 11}).Return(map[int64]*models.Member{
		10: {ID: 10, Name: "alice", Rating: 1200},
		11: {ID: 11, Name: "bob", Rating: 1200},
	}, nil)
	mockOddsRepo.On("CreateAll", ctx, mock.MatchedBy(func(entries []*models.OddsEntry) bool {
		return len(entries) == 2 &&
			entries[0].CandidateMemberID == 10 && entries[0].OddsTimes100 == 190 &&
			entries[1].CandidateMemberID == 11 && entries[1].OddsTimes100 == 190
	})).Return(nil)

	entries, err := svc.GenerateOdds(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(190), entries[0].OddsTimes100)

	mockFactory.AssertExpectations(t)
	mockUoW.AssertExpectations(t)
	mockOddsRepo.AssertExpectations(t)
}

func TestOddsService_GenerateOdds_RejectsUnconfirmedSession(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSessionRepo := new(MockGameSessionRepository)

	mockUoW.SetRepositories(nil, nil, mockSessionRepo, nil, nil, nil, nil)

	svc := NewOddsService(mockFactory, nil)

	planned := &models.GameSession{ID: 5, State: models.SessionStatePlanned}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(planned, nil)

	_, err := svc.GenerateOdds(ctx, 5)
	assert.Error(t, err)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestOddsService_GenerateOdds_RejectsExistingOdds(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSessionRepo := new(MockGameSessionRepository)
	mockOddsRepo := new(MockOddsRepository)

	mockUoW.SetRepositories(nil, nil, mockSessionRepo, mockOddsRepo, nil, nil, nil)

	svc := NewOddsService(mockFactory, nil)

	session := &models.GameSession{ID: 5, State: models.SessionStateConfirmed}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(session, nil)
	mockOddsRepo.On("ExistsForSession", ctx, int64(5)).Return(true, nil)

	_, err := svc.GenerateOdds(ctx, 5)
	assert.Error(t, err)
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestOddsService_RegenerateOdds_LockedOnceBetExists(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockSessionRepo := new(MockGameSessionRepository)
	mockOddsRepo := new(MockOddsRepository)
	mockBetRepo := new(MockBetRepository)

	mockUoW.SetRepositories(nil, nil, mockSessionRepo, mockOddsRepo, mockBetRepo, nil, nil)

	svc := NewOddsService(mockFactory, nil)

	session := &models.GameSession{ID: 5, State: models.SessionStateConfirmed}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(session, nil)
	mockOddsRepo.On("ExistsForSession", ctx, int64(5)).Return(true, nil)
	mockBetRepo.On("ExistsForSession", ctx, int64(5)).Return(true, nil)

	_, err := svc.RegenerateOdds(ctx, 5)
	assert.ErrorIs(t, err, models.ErrOddsLocked)

	mockOddsRepo.AssertNotCalled(t, "DeleteBySession")
	mockUoW.AssertNotCalled(t, "Commit")

	// The no-bets check is only trustworthy behind the exclusive session
	// lock; the share-lock read must never appear on this path.
	mockSessionRepo.AssertNotCalled(t, "GetByIDLocked")
	mockSessionRepo.AssertCalled(t, "GetByIDForUpdate", ctx, int64(5))
}

func TestOddsService_RegenerateOdds_ReplacesSheetBeforeFirstBet(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockMemberRepo := new(MockMemberRepository)
	mockSessionRepo := new(MockGameSessionRepository)
	mockOddsRepo := new(MockOddsRepository)
	mockBetRepo := new(MockBetRepository)

	mockUoW.SetRepositories(mockMemberRepo, nil, mockSessionRepo, mockOddsRepo, mockBetRepo, nil, nil)

	svc := NewOddsService(mockFactory, nil)

	session := &models.GameSession{ID: 5, BoardGame: "Azul", State: models.SessionStateConfirmed}

	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockSessionRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(session, nil)
	mockOddsRepo.On("ExistsForSession", ctx, int64(5)).Return(true, nil)
	mockBetRepo.On("ExistsForSession", ctx, int64(5)).Return(false, nil)
	mockOddsRepo.On("DeleteBySession", ctx, int64(5)).Return(nil)
	mockSessionRepo.On("GetParticipantIDs", ctx, int64(5)).Return([]int64{10, 11}, nil)
	mockMemberRepo.On("GetByIDs", ctx, []int64{10, 11}).Return(map[int64]*models.Member{
		10: {ID: 10, Rating: 1000},
		11: {ID: 11, Rating: 1400},
	}, nil)
	mockOddsRepo.On("CreateAll", ctx, mock.AnythingOfType("[]*models.OddsEntry")).Return(nil)

	entries, err := svc.RegenerateOdds(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Greater(t, entries[0].OddsTimes100, entries[1].OddsTimes100, "underdog pays more")

	mockOddsRepo.AssertExpectations(t)
}

func TestOddsService_GetOddsForSession_CacheHit(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()

	mockFactory := new(MockUnitOfWorkFactory)
	mockCache := new(MockOddsCache)

	svc := NewOddsService(mockFactory, mockCache)

	cached := []*models.OddsEntry{{SessionID: 5, CandidateMemberID: 10, OddsTimes100: 190}}
	mockCache.On("GetOdds", ctx, int64(5)).Return(cached, true, nil)

	entries, err := svc.GetOddsForSession(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, cached, entries)

	mockFactory.AssertNotCalled(t, "Create")
}

func TestOddsService_GetOddsForSession_CacheMissFallsThrough(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()

	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockOddsRepo := new(MockOddsRepository)
	mockCache := new(MockOddsCache)

	mockUoW.SetRepositories(nil, nil, nil, mockOddsRepo, nil, nil, nil)

	svc := NewOddsService(mockFactory, mockCache)

	stored := []*models.OddsEntry{{SessionID: 5, CandidateMemberID: 10, OddsTimes100: 190}}

	mockCache.On("GetOdds", ctx, int64(5)).Return(nil, false, nil)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", ctx).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
	mockOddsRepo.On("GetBySession", ctx, int64(5)).Return(stored, nil)
	mockCache.On("SetOdds", ctx, int64(5), stored).Return(nil)

	entries, err := svc.GetOddsForSession(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, stored, entries)

	mockCache.AssertExpectations(t)
}
