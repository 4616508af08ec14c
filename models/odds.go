package models

import "time"

// MinOddsTimes100 is the floor for decimal odds: a winning bet never pays
// less than its stake back.
const MinOddsTimes100 = 100

// OddsEntry holds the decimal odds for one candidate on one session. Odds are
// encoded as an integer scaled by 100 (175 = 1.75x) so payout arithmetic never
// touches floating point. Entries are immutable once any bet references them.
type OddsEntry struct {
	ID                int64     `db:"id" json:"id"`
	SessionID         int64     `db:"session_id" json:"sessionId"`
	CandidateMemberID int64     `db:"candidate_member_id" json:"candidateMemberId"`
	OddsTimes100      int64     `db:"odds_times_100" json:"oddsTimes100"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// Decimal returns the odds as a human-readable multiplier.
func (o *OddsEntry) Decimal() float64 {
	return float64(o.OddsTimes100) / 100
}
