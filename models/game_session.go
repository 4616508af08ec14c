package models

import "time"

// SessionState is the lifecycle state of a game session. The only legal
// forward path is planned → confirmed → played → resolving → resolved,
// enforced by conditional updates at the storage layer.
type SessionState string

const (
	SessionStatePlanned   SessionState = "planned"
	SessionStateConfirmed SessionState = "confirmed"
	SessionStatePlayed    SessionState = "played"
	SessionStateResolving SessionState = "resolving"
	SessionStateResolved  SessionState = "resolved"
)

// GameSession is one board game played during one game night: the unit of
// betting and resolution.
type GameSession struct {
	ID             int64        `db:"id"`
	GameNightID    int64        `db:"game_night_id"`
	BoardGame      string       `db:"board_game"`
	State          SessionState `db:"state"`
	WinnerMemberID *int64       `db:"winner_member_id"`
	WinnerTeamName *string      `db:"winner_team_name"`
	CreatedAt      time.Time    `db:"created_at"`
	ConfirmedAt    *time.Time   `db:"confirmed_at"`
	PlayedAt       *time.Time   `db:"played_at"`
	ResolvedAt     *time.Time   `db:"resolved_at"`
}

// IsConfirmed reports whether the roster is locked and odds may exist.
func (s *GameSession) IsConfirmed() bool {
	return s.State == SessionStateConfirmed
}

// IsOpenForBetting reports whether bets may be placed against the session.
// Betting opens at confirmation and closes the moment an outcome is recorded.
func (s *GameSession) IsOpenForBetting() bool {
	return s.State == SessionStateConfirmed
}

// IsPlayed reports whether an outcome has been recorded.
func (s *GameSession) IsPlayed() bool {
	return s.State == SessionStatePlayed
}

// IsResolved reports whether settlement has completed.
func (s *GameSession) IsResolved() bool {
	return s.State == SessionStateResolved
}

// HasWinner reports whether an individual winner was recorded. Team victories
// may carry only a team name.
func (s *GameSession) HasWinner() bool {
	return s.WinnerMemberID != nil
}
