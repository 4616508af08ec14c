package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// MockMemberRepository is a mock implementation of MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, name string) (*models.Member, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Member, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*models.Member), args.Error(1)
}

func (m *MockMemberRepository) UpdateRating(ctx context.Context, memberID int64, newRating int, updatedAt time.Time) error {
	args := m.Called(ctx, memberID, newRating, updatedAt)
	return args.Error(0)
}

// MockGameNightRepository is a mock implementation of GameNightRepository
type MockGameNightRepository struct {
	mock.Mock
}

func (m *MockGameNightRepository) Create(ctx context.Context, date time.Time) (*models.GameNight, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameNight), args.Error(1)
}

func (m *MockGameNightRepository) GetByID(ctx context.Context, id int64) (*models.GameNight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameNight), args.Error(1)
}

func (m *MockGameNightRepository) MarkStarted(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockGameNightRepository) CheckIn(ctx context.Context, nightID, memberID int64) (*models.Attendee, error) {
	args := m.Called(ctx, nightID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attendee), args.Error(1)
}

func (m *MockGameNightRepository) IsAttendee(ctx context.Context, nightID, memberID int64) (bool, error) {
	args := m.Called(ctx, nightID, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGameNightRepository) CountAttendees(ctx context.Context, nightID int64) (int, error) {
	args := m.Called(ctx, nightID)
	return args.Int(0), args.Error(1)
}

// MockGameSessionRepository is a mock implementation of GameSessionRepository
type MockGameSessionRepository struct {
	mock.Mock
}

func (m *MockGameSessionRepository) Create(ctx context.Context, nightID int64, boardGame string) (*models.GameSession, error) {
	args := m.Called(ctx, nightID, boardGame)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) GetByID(ctx context.Context, id int64) (*models.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) GetByIDLocked(ctx context.Context, id int64) (*models.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.GameSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GameSession), args.Error(1)
}

func (m *MockGameSessionRepository) TransitionState(ctx context.Context, id int64, from, to models.SessionState) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockGameSessionRepository) RecordOutcome(ctx context.Context, id int64, winnerMemberID *int64, winnerTeamName *string, playedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, winnerMemberID, winnerTeamName, playedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockGameSessionRepository) SetParticipants(ctx context.Context, sessionID int64, memberIDs []int64) error {
	args := m.Called(ctx, sessionID, memberIDs)
	return args.Error(0)
}

func (m *MockGameSessionRepository) GetParticipantIDs(ctx context.Context, sessionID int64) ([]int64, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockGameSessionRepository) GetByNight(ctx context.Context, nightID int64) ([]*models.GameSession, error) {
	args := m.Called(ctx, nightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GameSession), args.Error(1)
}

// MockOddsRepository is a mock implementation of OddsRepository
type MockOddsRepository struct {
	mock.Mock
}

func (m *MockOddsRepository) CreateAll(ctx context.Context, entries []*models.OddsEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockOddsRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OddsEntry), args.Error(1)
}

func (m *MockOddsRepository) GetByCandidate(ctx context.Context, sessionID, candidateMemberID int64) (*models.OddsEntry, error) {
	args := m.Called(ctx, sessionID, candidateMemberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OddsEntry), args.Error(1)
}

func (m *MockOddsRepository) DeleteBySession(ctx context.Context, sessionID int64) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockOddsRepository) ExistsForSession(ctx context.Context, sessionID int64) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

// MockBetRepository is a mock implementation of BetRepository
type MockBetRepository struct {
	mock.Mock
}

func (m *MockBetRepository) Create(ctx context.Context, bet *models.Bet) error {
	args := m.Called(ctx, bet)
	return args.Error(0)
}

func (m *MockBetRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetBySessionAndMember(ctx context.Context, sessionID, memberID int64) (*models.Bet, error) {
	args := m.Called(ctx, sessionID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetUnresolvedBySession(ctx context.Context, sessionID int64) ([]*models.Bet, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) GetByMember(ctx context.Context, memberID int64, limit int) ([]*models.Bet, error) {
	args := m.Called(ctx, memberID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bet), args.Error(1)
}

func (m *MockBetRepository) ExistsForSession(ctx context.Context, sessionID int64) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBetRepository) MarkResolved(ctx context.Context, betID int64, payout int64, resolvedAt time.Time) (bool, error) {
	args := m.Called(ctx, betID, payout, resolvedAt)
	return args.Bool(0), args.Error(1)
}

// MockPendingCreditRepository is a mock implementation of PendingCreditRepository
type MockPendingCreditRepository struct {
	mock.Mock
}

func (m *MockPendingCreditRepository) Create(ctx context.Context, credit *models.PendingCredit) error {
	args := m.Called(ctx, credit)
	return args.Error(0)
}

func (m *MockPendingCreditRepository) GetUndelivered(ctx context.Context, limit int) ([]*models.PendingCredit, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PendingCredit), args.Error(1)
}

func (m *MockPendingCreditRepository) GetUndeliveredBySession(ctx context.Context, sessionID int64) ([]*models.PendingCredit, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PendingCredit), args.Error(1)
}

func (m *MockPendingCreditRepository) MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) error {
	args := m.Called(ctx, id, deliveredAt)
	return args.Error(0)
}

func (m *MockPendingCreditRepository) RecordAttempt(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPendingCreditRepository) SumBySession(ctx context.Context, sessionID int64) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockWalletRepository is a mock implementation of WalletRepository
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletRepository) Credit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error {
	args := m.Called(ctx, memberID, amount, idempotencyKey)
	return args.Error(0)
}

func (m *MockWalletRepository) Debit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error {
	args := m.Called(ctx, memberID, amount, idempotencyKey)
	return args.Error(0)
}

// MockWallet is a mock implementation of the standalone Wallet collaborator
type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) GetBalance(ctx context.Context, memberID int64) (int64, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWallet) Credit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error {
	args := m.Called(ctx, memberID, amount, idempotencyKey)
	return args.Error(0)
}

func (m *MockWallet) Debit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error {
	args := m.Called(ctx, memberID, amount, idempotencyKey)
	return args.Error(0)
}

// MockOddsCache is a mock implementation of OddsCache
type MockOddsCache struct {
	mock.Mock
}

func (m *MockOddsCache) GetOdds(ctx context.Context, sessionID int64) ([]*models.OddsEntry, bool, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*models.OddsEntry), args.Bool(1), args.Error(2)
}

func (m *MockOddsCache) SetOdds(ctx context.Context, sessionID int64, entries []*models.OddsEntry) error {
	args := m.Called(ctx, sessionID, entries)
	return args.Error(0)
}

func (m *MockOddsCache) Invalidate(ctx context.Context, sessionID int64) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// noopEventPublisher swallows events for tests that don't assert on them
type noopEventPublisher struct{}

func (noopEventPublisher) Publish(events.Event) {}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository getters
// return whatever SetRepositories installed rather than going through mock
// expectations; Begin/Commit/Rollback are asserted normally.
type MockUnitOfWork struct {
	mock.Mock

	memberRepo        MemberRepository
	gameNightRepo     GameNightRepository
	gameSessionRepo   GameSessionRepository
	oddsRepo          OddsRepository
	betRepo           BetRepository
	pendingCreditRepo PendingCreditRepository
	walletRepo        WalletRepository
	eventPublisher    EventPublisher
}

// SetRepositories installs the repositories the getters hand out. Nil is fine
// for repositories the test never touches.
func (m *MockUnitOfWork) SetRepositories(
	memberRepo MemberRepository,
	gameNightRepo GameNightRepository,
	gameSessionRepo GameSessionRepository,
	oddsRepo OddsRepository,
	betRepo BetRepository,
	pendingCreditRepo PendingCreditRepository,
	walletRepo WalletRepository,
) {
	m.memberRepo = memberRepo
	m.gameNightRepo = gameNightRepo
	m.gameSessionRepo = gameSessionRepo
	m.oddsRepo = oddsRepo
	m.betRepo = betRepo
	m.pendingCreditRepo = pendingCreditRepo
	m.walletRepo = walletRepo
}

// SetEventPublisher installs a publisher for tests asserting on events
func (m *MockUnitOfWork) SetEventPublisher(p EventPublisher) {
	m.eventPublisher = p
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) MemberRepository() MemberRepository {
	return m.memberRepo
}

func (m *MockUnitOfWork) GameNightRepository() GameNightRepository {
	return m.gameNightRepo
}

func (m *MockUnitOfWork) GameSessionRepository() GameSessionRepository {
	return m.gameSessionRepo
}

func (m *MockUnitOfWork) OddsRepository() OddsRepository {
	return m.oddsRepo
}

func (m *MockUnitOfWork) BetRepository() BetRepository {
	return m.betRepo
}

func (m *MockUnitOfWork) PendingCreditRepository() PendingCreditRepository {
	return m.pendingCreditRepo
}

func (m *MockUnitOfWork) WalletRepository() WalletRepository {
	return m.walletRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventPublisher == nil {
		return noopEventPublisher{}
	}
	return m.eventPublisher
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
