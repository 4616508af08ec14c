package testutil

import (
	"time"

	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// CreateTestBet builds an unresolved bet with default stake and odds
func CreateTestBet(sessionID, memberID, candidateID int64) *models.Bet {
	return &models.Bet{
		SessionID:               sessionID,
		MemberID:                memberID,
		PredictedWinnerMemberID: candidateID,
		Amount:                  500,
		OddsTimes100:            190,
		CreatedAt:               time.Now(),
	}
}

// CreateTestBetWithStake builds a bet with a specific stake and odds
func CreateTestBetWithStake(sessionID, memberID, candidateID, amount, oddsTimes100 int64) *models.Bet {
	bet := CreateTestBet(sessionID, memberID, candidateID)
	bet.Amount = amount
	bet.OddsTimes100 = oddsTimes100
	return bet
}

// CreateTestOddsEntry builds an odds sheet row for a session candidate
func CreateTestOddsEntry(sessionID, candidateID, oddsTimes100 int64) *models.OddsEntry {
	return &models.OddsEntry{
		SessionID:         sessionID,
		CandidateMemberID: candidateID,
		OddsTimes100:      oddsTimes100,
		CreatedAt:         time.Now(),
	}
}

// CreateTestPendingCredit builds an undelivered payout credit keyed on
// (session, member)
func CreateTestPendingCredit(sessionID, memberID, amount int64) *models.PendingCredit {
	return &models.PendingCredit{
		SessionID:      sessionID,
		MemberID:       memberID,
		Amount:         amount,
		IdempotencyKey: models.PayoutKey(sessionID, memberID),
		CreatedAt:      time.Now(),
	}
}
