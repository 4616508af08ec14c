package models

// SessionOutcome describes who played a session and how it ended. Supplied by
// the game-night workflow when the session transitions to played.
type SessionOutcome struct {
	SessionID      int64
	ParticipantIDs []int64
	WinnerMemberID *int64
	WinnerTeamName *string
	// IsDraw marks an explicitly tied outcome for games that support draws.
	// Only meaningful for two-player sessions.
	IsDraw bool
}

// HasIndividualWinner reports whether a single winning member was recorded.
func (o *SessionOutcome) HasIndividualWinner() bool {
	return o.WinnerMemberID != nil
}

// RatingChange is the result of applying the rating model to one participant.
type RatingChange struct {
	MemberID  int64
	OldRating int
	NewRating int
}

// Delta returns the signed rating movement.
func (rc RatingChange) Delta() int {
	return rc.NewRating - rc.OldRating
}

// ResolutionResult summarizes an exactly-once session resolution.
type ResolutionResult struct {
	Session       *GameSession
	WinningBets   []*Bet
	LosingBets    []*Bet
	TotalPaidOut  int64
	RatingChanges []RatingChange
}
