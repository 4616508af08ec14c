package service

import (
	"context"
	"time"

	"github.com/htc101524/BoardGameMondays-sub002/events"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// MemberRepository defines the interface for member data access
type MemberRepository interface {
	// Create creates a new member with the default rating
	Create(ctx context.Context, name string) (*models.Member, error)

	// GetByID retrieves a member by ID
	GetByID(ctx context.Context, id int64) (*models.Member, error)

	// GetByIDs retrieves members by ID, keyed by member ID
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Member, error)

	// UpdateRating updates a member's rating and stamps rating_updated_at
	UpdateRating(ctx context.Context, memberID int64, newRating int, updatedAt time.Time) error
}

// GameNightRepository defines the interface for game night and attendee data access
type GameNightRepository interface {
	// Create creates a new game night for a unique calendar date
	Create(ctx context.Context, date time.Time) (*models.GameNight, error)

	// GetByID retrieves a game night by ID
	GetByID(ctx context.Context, id int64) (*models.GameNight, error)

	// MarkStarted flips has_started; false when the night had already started
	MarkStarted(ctx context.Context, id int64) (bool, error)

	// CheckIn records a member as an attendee of a night
	CheckIn(ctx context.Context, nightID, memberID int64) (*models.Attendee, error)

	// IsAttendee reports whether a member is checked in to a night
	IsAttendee(ctx context.Context, nightID, memberID int64) (bool, error)

	// CountAttendees returns the number of checked-in members
	CountAttendees(ctx context.Context, nightID int64) (int, error)
}

// GameSessionRepository defines the interface for game session data access
type GameSessionRepository interface {
	// Create creates a new session in the planned state
	Create(ctx context.Context, nightID int64, boardGame string) (*models.GameSession, error)

	// GetByID retrieves a session by ID
	GetByID(ctx context.Context, id int64) (*models.GameSession, error)

	// GetByIDLocked retrieves a session holding a share lock on its row for
	// the remainder of the transaction, so a concurrent state transition
	// serializes against the caller.
	GetByIDLocked(ctx context.Context, id int64) (*models.GameSession, error)

	// GetByIDForUpdate retrieves a session holding an exclusive lock on its
	// row, conflicting with the share lock bet placement takes. A caller that
	// must not race in-flight placements uses this variant.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.GameSession, error)

	// TransitionState conditionally moves a session between states; exactly
	// one of any set of concurrent callers observes true.
	TransitionState(ctx context.Context, id int64, from, to models.SessionState) (bool, error)

	// RecordOutcome stores the winner and moves confirmed to played
	RecordOutcome(ctx context.Context, id int64, winnerMemberID *int64, winnerTeamName *string, playedAt time.Time) (bool, error)

	// SetParticipants replaces the roster for a session
	SetParticipants(ctx context.Context, sessionID int64, memberIDs []int64) error

	// GetParticipantIDs returns the roster, ordered by member ID
	GetParticipantIDs(ctx context.Context, sessionID int64) ([]int64, error)

	// GetByNight returns all sessions belonging to a night
	GetByNight(ctx context.Context, nightID int64) ([]*models.GameSession, error)
}

// OddsRepository defines the interface for odds entry data access
type OddsRepository interface {
	// CreateAll persists a full odds sheet for a session
	CreateAll(ctx context.Context, entries []*models.OddsEntry) error

	// GetBySession returns the odds sheet for a session
	GetBySession(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error)

	// GetByCandidate returns the odds entry for a single candidate
	GetByCandidate(ctx context.Context, sessionID, candidateMemberID int64) (*models.OddsEntry, error)

	// DeleteBySession removes the odds sheet for a session
	DeleteBySession(ctx context.Context, sessionID int64) error

	// ExistsForSession reports whether a session already has odds
	ExistsForSession(ctx context.Context, sessionID int64) (bool, error)
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create creates a new bet; a duplicate (session, member) placement
	// fails with models.ErrDuplicateBet
	Create(ctx context.Context, bet *models.Bet) error

	// GetByID retrieves a bet by ID
	GetByID(ctx context.Context, id int64) (*models.Bet, error)

	// GetBySessionAndMember retrieves a member's bet on a session
	GetBySessionAndMember(ctx context.Context, sessionID, memberID int64) (*models.Bet, error)

	// GetBySession returns all bets on a session
	GetBySession(ctx context.Context, sessionID int64) ([]*models.Bet, error)

	// GetUnresolvedBySession returns unresolved bets, locked for update
	GetUnresolvedBySession(ctx context.Context, sessionID int64) ([]*models.Bet, error)

	// GetByMember returns a member's bets, most recent first
	GetByMember(ctx context.Context, memberID int64, limit int) ([]*models.Bet, error)

	// ExistsForSession reports whether any bet references the session
	ExistsForSession(ctx context.Context, sessionID int64) (bool, error)

	// MarkResolved flips a bet to resolved with its payout; false when the
	// bet was already resolved
	MarkResolved(ctx context.Context, betID int64, payout int64, resolvedAt time.Time) (bool, error)
}

// PendingCreditRepository defines the interface for the payout outbox
type PendingCreditRepository interface {
	// Create records a payout to be delivered at least once
	Create(ctx context.Context, credit *models.PendingCredit) error

	// GetUndelivered returns credits not yet accepted by the wallet
	GetUndelivered(ctx context.Context, limit int) ([]*models.PendingCredit, error)

	// GetUndeliveredBySession returns a session's undelivered credits
	GetUndeliveredBySession(ctx context.Context, sessionID int64) ([]*models.PendingCredit, error)

	// MarkDelivered stamps a credit as accepted by the wallet
	MarkDelivered(ctx context.Context, id int64, deliveredAt time.Time) error

	// RecordAttempt bumps the delivery attempt counter
	RecordAttempt(ctx context.Context, id int64) error

	// SumBySession returns the total coins recorded for payout on a session
	SumBySession(ctx context.Context, sessionID int64) (int64, error)
}

// WalletRepository defines transaction-bound wallet data access, used where a
// balance movement must commit or roll back together with other writes (the
// stake debit beside the bet insert). Credit and Debit are idempotent:
// replaying an idempotency key is a no-op success.
type WalletRepository interface {
	// GetBalance returns the member's current coin balance
	GetBalance(ctx context.Context, memberID int64) (int64, error)

	// Credit adds coins to the member's balance
	Credit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error

	// Debit removes coins from the member's balance; fails with
	// models.ErrInsufficientBalance when the balance does not cover it
	Debit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error
}

// Wallet defines the standalone coin wallet collaborator for movements that
// run outside any unit of work, such as payout delivery. Credit and Debit are
// idempotent: replaying an idempotency key is a no-op success.
type Wallet interface {
	// GetBalance returns the member's current coin balance
	GetBalance(ctx context.Context, memberID int64) (int64, error)

	// Credit adds coins to the member's balance
	Credit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error

	// Debit removes coins from the member's balance; fails with
	// models.ErrInsufficientBalance when the balance does not cover it
	Debit(ctx context.Context, memberID int64, amount int64, idempotencyKey string) error
}

// OddsCache defines the read-path cache for odds sheets
type OddsCache interface {
	// GetOdds returns the cached odds sheet; found is false on a miss
	GetOdds(ctx context.Context, sessionID int64) (entries []*models.OddsEntry, found bool, err error)

	// SetOdds stores an odds sheet
	SetOdds(ctx context.Context, sessionID int64, entries []*models.OddsEntry) error

	// Invalidate drops a cached odds sheet
	Invalidate(ctx context.Context, sessionID int64) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction and discards pending events
	Rollback() error

	// Repository getters
	MemberRepository() MemberRepository
	GameNightRepository() GameNightRepository
	GameSessionRepository() GameSessionRepository
	OddsRepository() OddsRepository
	BetRepository() BetRepository
	PendingCreditRepository() PendingCreditRepository
	WalletRepository() WalletRepository

	// EventBus returns the transactional event publisher; events published
	// on it are emitted only after Commit
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// LifecycleService manages game nights, check-ins and the attendee betting lock
type LifecycleService interface {
	// CreateNight creates a game night for a calendar date
	CreateNight(ctx context.Context, date time.Time) (*models.GameNight, error)

	// StartNight flips the night to started, locking attendees out of betting
	StartNight(ctx context.Context, nightID int64) error

	// CheckIn registers a member as an attendee of a night
	CheckIn(ctx context.Context, nightID, memberID int64) (*models.Attendee, error)

	// CanMemberBet reports whether the night's lifecycle allows the member
	// to place bets on its sessions
	CanMemberBet(ctx context.Context, nightID, memberID int64) (bool, error)
}

// SessionService manages the session roster and outcome recording
type SessionService interface {
	// CreateSession adds a planned session for a board game to a night
	CreateSession(ctx context.Context, nightID int64, boardGame string) (*models.GameSession, error)

	// ConfirmSession locks the player roster; the earliest point odds may exist
	ConfirmSession(ctx context.Context, sessionID int64, participantIDs []int64) (*models.GameSession, error)

	// RecordOutcome stores the winner and moves the session to played
	RecordOutcome(ctx context.Context, outcome *models.SessionOutcome) (*models.GameSession, error)
}

// OddsService derives and serves odds sheets
type OddsService interface {
	// GenerateOdds computes and persists the odds sheet for a confirmed
	// session that has none
	GenerateOdds(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error)

	// RegenerateOdds replaces the odds sheet; fails with models.ErrOddsLocked
	// once any bet exists
	RegenerateOdds(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error)

	// GetOddsForSession returns the odds sheet, served from cache when warm
	GetOddsForSession(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error)
}

// BettingService is the wager ledger's placement and read surface
type BettingService interface {
	// PlaceBet places a coin wager on a candidate, freezing the current odds
	PlaceBet(ctx context.Context, sessionID, memberID, candidateID int64, amount int64) (*models.Bet, error)

	// GetBetsForMember returns a member's bets, most recent first
	GetBetsForMember(ctx context.Context, memberID int64, limit int) ([]*models.Bet, error)

	// GetBetsForSession returns all bets on a session
	GetBetsForSession(ctx context.Context, sessionID int64) ([]*models.Bet, error)
}

// ResolutionService settles sessions exactly once
type ResolutionService interface {
	// ResolveSession settles every bet on a played session, applies rating
	// updates and moves the session to resolved. A session that is already
	// resolving or resolved fails with models.ErrAlreadyResolved.
	ResolveSession(ctx context.Context, sessionID int64) (*models.ResolutionResult, error)

	// EnsureResolved is the idempotent wrapper: a retry that finds the
	// session already resolved is success, not an error
	EnsureResolved(ctx context.Context, sessionID int64) error
}
