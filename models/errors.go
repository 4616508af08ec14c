package models

import "errors"

// Failure taxonomy for the wagering engine. Services return these wrapped with
// context; callers branch with errors.Is.
var (
	// ErrSessionNotOpenForBetting is returned when the session is not in the
	// confirmed state (still planned, already played, or resolved).
	ErrSessionNotOpenForBetting = errors.New("session not open for betting")

	// ErrBettingLocked is returned when a night has started and the member is
	// checked in as an attendee of that night.
	ErrBettingLocked = errors.New("betting locked for attendees of a started night")

	// ErrUnknownCandidate is returned when the predicted winner has no odds
	// entry for the session.
	ErrUnknownCandidate = errors.New("candidate has no odds for this session")

	// ErrDuplicateBet is returned when the member already has a bet on the
	// session. Backed by the (session_id, member_id) uniqueness constraint.
	ErrDuplicateBet = errors.New("member already has a bet on this session")

	// ErrInsufficientBalance is returned when the wallet balance does not
	// cover the stake.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrOddsLocked is returned when odds regeneration is requested after a
	// bet has been placed against the existing odds.
	ErrOddsLocked = errors.New("odds are locked once a bet exists")

	// ErrAlreadyResolved is returned when resolution (or bet settlement) is
	// attempted a second time. Callers treating a retry as idempotent should
	// map this to success.
	ErrAlreadyResolved = errors.New("already resolved")

	// ErrTransientPersistence marks storage failures that are safe to retry.
	ErrTransientPersistence = errors.New("transient persistence failure")

	// ErrUnsupportedOutcome is returned when a session outcome cannot be
	// mapped onto bet settlement or rating updates (e.g. a team victory with
	// no winning member recorded).
	ErrUnsupportedOutcome = errors.New("unsupported outcome for resolution")
)
