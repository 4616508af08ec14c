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

type resolutionMocks struct {
	uow         *MockUnitOfWork
	factory     *MockUnitOfWorkFactory
	memberRepo  *MockMemberRepository
	sessionRepo *MockGameSessionRepository
	betRepo     *MockBetRepository
	creditRepo  *MockPendingCreditRepository
	wallet      *MockWallet
}

func newResolutionMocks() *resolutionMocks {
	m := &resolutionMocks{
		uow:         new(MockUnitOfWork),
		factory:     new(MockUnitOfWorkFactory),
		memberRepo:  new(MockMemberRepository),
		sessionRepo: new(MockGameSessionRepository),
		betRepo:     new(MockBetRepository),
		creditRepo:  new(MockPendingCreditRepository),
		wallet:      new(MockWallet),
	}
	m.uow.SetRepositories(m.memberRepo, nil, m.sessionRepo, nil, m.betRepo, m.creditRepo, nil)
	m.factory.On("Create").Return(m.uow)
	return m
}

func TestResolutionService_ResolveSession(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	winner := int64(10)
	session := &models.GameSession{
		ID:             5,
		GameNightID:    2,
		BoardGame:      "Catan",
		State:          models.SessionStateResolving,
		WinnerMemberID: &winner,
	}

	// Member 20 backed the winner at 2.5x for 100 coins; member 21 backed
	// the loser.
	winningBet := &models.Bet{ID: 1, SessionID: 5, MemberID: 20, PredictedWinnerMemberID: 10, Amount: 100, OddsTimes100: 250}
	losingBet := &models.Bet{ID: 2, SessionID: 5, MemberID: 21, PredictedWinnerMemberID: 11, Amount: 40, OddsTimes100: 180}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(true, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(session, nil)
	m.sessionRepo.On("GetParticipantIDs", ctx, int64(5)).Return([]int64{10, 11}, nil)

	m.betRepo.On("GetUnresolvedBySession", ctx, int64(5)).Return([]*models.Bet{winningBet, losingBet}, nil)
	m.betRepo.On("MarkResolved", ctx, int64(1), int64(250), mock.AnythingOfType("time.Time")).Return(true, nil)
	m.betRepo.On("MarkResolved", ctx, int64(2), int64(0), mock.AnythingOfType("time.Time")).Return(true, nil)

	m.creditRepo.On("Create", ctx, mock.MatchedBy(func(c *models.PendingCredit) bool {
		return c.SessionID == 5 &&
			c.MemberID == 20 &&
			c.Amount == 250 &&
			c.IdempotencyKey == "payout:5:20"
	})).Return(nil)

	m.memberRepo.On("GetByIDs", ctx, []int64{10, 11}).Return(map[int64]*models.Member{
		10: {ID: 10, Rating: 1200},
		11: {ID: 11, Rating: 1200},
	}, nil)
	m.memberRepo.On("UpdateRating", ctx, int64(10), 1216, mock.AnythingOfType("time.Time")).Return(nil)
	m.memberRepo.On("UpdateRating", ctx, int64(11), 1184, mock.AnythingOfType("time.Time")).Return(nil)

	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStateResolving, models.SessionStateResolved).Return(true, nil)

	// Post-commit delivery of the outbox entry
	credit := &models.PendingCredit{ID: 9, SessionID: 5, MemberID: 20, Amount: 250, IdempotencyKey: "payout:5:20"}
	m.creditRepo.On("GetUndeliveredBySession", ctx, int64(5)).Return([]*models.PendingCredit{credit}, nil)
	m.wallet.On("Credit", ctx, int64(20), int64(250), "payout:5:20").Return(nil)
	m.creditRepo.On("MarkDelivered", ctx, int64(9), mock.AnythingOfType("time.Time")).Return(nil)

	result, err := svc.ResolveSession(ctx, 5)
	require.NoError(t, err)

	assert.Len(t, result.WinningBets, 1)
	assert.Len(t, result.LosingBets, 1)
	assert.Equal(t, int64(250), result.TotalPaidOut)
	assert.Equal(t, int64(250), result.WinningBets[0].Payout)
	assert.Equal(t, int64(0), result.LosingBets[0].Payout)
	require.Len(t, result.RatingChanges, 2)

	m.uow.AssertExpectations(t)
	m.betRepo.AssertExpectations(t)
	m.creditRepo.AssertExpectations(t)
	m.memberRepo.AssertExpectations(t)
	m.wallet.AssertExpectations(t)
}

func TestResolutionService_ResolveSession_AlreadyResolved(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	resolved := &models.GameSession{ID: 5, State: models.SessionStateResolved}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(false, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(resolved, nil)

	_, err := svc.ResolveSession(ctx, 5)
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)

	m.betRepo.AssertNotCalled(t, "GetUnresolvedBySession")
	m.uow.AssertNotCalled(t, "Commit")
}

func TestResolutionService_ResolveSession_ConcurrentClaimLoses(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	claiming := &models.GameSession{ID: 5, State: models.SessionStateResolving}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(false, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(claiming, nil)

	_, err := svc.ResolveSession(ctx, 5)
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)
}

func TestResolutionService_ResolveSession_NotPlayed(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	confirmed := &models.GameSession{ID: 5, State: models.SessionStateConfirmed}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(false, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(confirmed, nil)

	_, err := svc.ResolveSession(ctx, 5)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrAlreadyResolved)
}

func TestResolutionService_ResolveSession_TeamWinnerWithoutMemberRefused(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	team := "red"
	session := &models.GameSession{ID: 5, State: models.SessionStateResolving, WinnerTeamName: &team}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(true, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(session, nil)
	m.sessionRepo.On("GetParticipantIDs", ctx, int64(5)).Return([]int64{10, 11}, nil)

	_, err := svc.ResolveSession(ctx, 5)
	assert.ErrorIs(t, err, models.ErrUnsupportedOutcome)

	m.betRepo.AssertNotCalled(t, "MarkResolved")
	m.uow.AssertNotCalled(t, "Commit")
}

func TestResolutionService_ResolveSession_DefensiveSettleGuard(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	winner := int64(10)
	session := &models.GameSession{ID: 5, State: models.SessionStateResolving, WinnerMemberID: &winner}
	bet := &models.Bet{ID: 1, SessionID: 5, MemberID: 20, PredictedWinnerMemberID: 10, Amount: 100, OddsTimes100: 250}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(true, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(session, nil)
	m.sessionRepo.On("GetParticipantIDs", ctx, int64(5)).Return([]int64{10, 11}, nil)
	m.betRepo.On("GetUnresolvedBySession", ctx, int64(5)).Return([]*models.Bet{bet}, nil)
	m.betRepo.On("MarkResolved", ctx, int64(1), int64(250), mock.AnythingOfType("time.Time")).Return(false, nil)

	_, err := svc.ResolveSession(ctx, 5)
	assert.ErrorIs(t, err, models.ErrAlreadyResolved)

	m.uow.AssertNotCalled(t, "Commit")
}

func TestResolutionService_EnsureResolved_MapsAlreadyResolvedToSuccess(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	resolved := &models.GameSession{ID: 5, State: models.SessionStateResolved}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(false, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(resolved, nil)

	assert.NoError(t, svc.EnsureResolved(ctx, 5))
}

func TestResolutionService_ResolveSession_WalletFailureDoesNotFailResolution(t *testing.T) {
	config.SetTestConfig(config.NewTestConfig())
	ctx := context.Background()
	m := newResolutionMocks()

	svc := NewResolutionService(m.factory, m.wallet, nil)

	winner := int64(10)
	session := &models.GameSession{ID: 5, State: models.SessionStateResolving, WinnerMemberID: &winner}
	bet := &models.Bet{ID: 1, SessionID: 5, MemberID: 20, PredictedWinnerMemberID: 10, Amount: 100, OddsTimes100: 200}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStatePlayed, models.SessionStateResolving).Return(true, nil)
	m.sessionRepo.On("GetByID", ctx, int64(5)).Return(session, nil)
	m.sessionRepo.On("GetParticipantIDs", ctx, int64(5)).Return([]int64{10, 11}, nil)
	m.betRepo.On("GetUnresolvedBySession", ctx, int64(5)).Return([]*models.Bet{bet}, nil)
	m.betRepo.On("MarkResolved", ctx, int64(1), int64(200), mock.AnythingOfType("time.Time")).Return(true, nil)
	m.creditRepo.On("Create", ctx, mock.AnythingOfType("*models.PendingCredit")).Return(nil)
	m.memberRepo.On("GetByIDs", ctx, []int64{10, 11}).Return(map[int64]*models.Member{
		10: {ID: 10, Rating: 1200},
		11: {ID: 11, Rating: 1200},
	}, nil)
	m.memberRepo.On("UpdateRating", ctx, mock.AnythingOfType("int64"), mock.AnythingOfType("int"), mock.AnythingOfType("time.Time")).Return(nil)
	m.sessionRepo.On("TransitionState", ctx, int64(5), models.SessionStateResolving, models.SessionStateResolved).Return(true, nil)

	credit := &models.PendingCredit{ID: 9, SessionID: 5, MemberID: 20, Amount: 200, IdempotencyKey: "payout:5:20"}
	m.creditRepo.On("GetUndeliveredBySession", ctx, int64(5)).Return([]*models.PendingCredit{credit}, nil)
	m.wallet.On("Credit", ctx, int64(20), int64(200), "payout:5:20").Return(assert.AnError)

	result, err := svc.ResolveSession(ctx, 5)
	require.NoError(t, err, "settlement state is the source of truth; delivery is retried later")
	assert.Equal(t, int64(200), result.TotalPaidOut)

	m.creditRepo.AssertNotCalled(t, "MarkDelivered")
}
