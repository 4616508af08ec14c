package models

import (
	"fmt"
	"time"
)

// PendingCredit is a wallet payout recorded inside the settlement transaction
// and delivered at-least-once afterwards. The idempotency key, derived from
// (session, member), makes wallet replays harmless.
type PendingCredit struct {
	ID             int64      `db:"id"`
	SessionID      int64      `db:"session_id"`
	MemberID       int64      `db:"member_id"`
	Amount         int64      `db:"amount"`
	IdempotencyKey string     `db:"idempotency_key"`
	Attempts       int        `db:"attempts"`
	CreditedAt     *time.Time `db:"credited_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

// PayoutKey builds the idempotency key the wallet dedupes payouts on.
func PayoutKey(sessionID, memberID int64) string {
	return fmt.Sprintf("payout:%d:%d", sessionID, memberID)
}

// StakeKey builds the idempotency key the wallet dedupes stake debits on.
// The stake debit runs in the same transaction as the bet insert, so the key
// only matters to ledger forensics, but every wallet entry carries one.
func StakeKey(sessionID, memberID int64) string {
	return fmt.Sprintf("stake:%d:%d", sessionID, memberID)
}
