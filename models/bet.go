package models

import "time"

// Bet is one member's coin wager on one session. OddsTimes100 is copied from
// the matching OddsEntry at placement and never recomputed, even if the
// session's odds sheet is later regenerated. Unique per (session, member).
type Bet struct {
	ID                      int64      `db:"id"`
	SessionID               int64      `db:"session_id"`
	MemberID                int64      `db:"member_id"`
	PredictedWinnerMemberID int64      `db:"predicted_winner_member_id"`
	Amount                  int64      `db:"amount"`
	OddsTimes100            int64      `db:"odds_times_100"`
	IsResolved              bool       `db:"is_resolved"`
	Payout                  int64      `db:"payout"`
	CreatedAt               time.Time  `db:"created_at"`
	ResolvedAt              *time.Time `db:"resolved_at"`
}

// WinningPayout returns the payout this bet earns if it wins:
// floor(amount * odds / 100).
func (b *Bet) WinningPayout() int64 {
	return b.Amount * b.OddsTimes100 / 100
}

// Predicts reports whether the bet backs the given member.
func (b *Bet) Predicts(memberID int64) bool {
	return b.PredictedWinnerMemberID == memberID
}
