package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// BetRepository implements bet data access
type BetRepository struct {
	q Queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx Queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `
	id, session_id, member_id, predicted_winner_member_id, amount,
	odds_times_100, is_resolved, payout, created_at, resolved_at
`

func scanBet(row pgx.Row) (*models.Bet, error) {
	var bet models.Bet
	err := row.Scan(
		&bet.ID,
		&bet.SessionID,
		&bet.MemberID,
		&bet.PredictedWinnerMemberID,
		&bet.Amount,
		&bet.OddsTimes100,
		&bet.IsResolved,
		&bet.Payout,
		&bet.CreatedAt,
		&bet.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bet, nil
}

// Create creates a new bet. The (session_id, member_id) uniqueness constraint
// turns a concurrent duplicate into ErrDuplicateBet: two racing placements
// for the same member get exactly one success.
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (session_id, member_id, predicted_winner_member_id, amount, odds_times_100)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_resolved, payout, created_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.SessionID,
		bet.MemberID,
		bet.PredictedWinnerMemberID,
		bet.Amount,
		bet.OddsTimes100,
	).Scan(&bet.ID, &bet.IsResolved, &bet.Payout, &bet.CreatedAt)

	if err != nil {
		if isUniqueViolation(err, "bets_session_id_member_id_key") {
			return fmt.Errorf("member %d on session %d: %w", bet.MemberID, bet.SessionID, models.ErrDuplicateBet)
		}
		return wrapStorageErr(err, "failed to create bet")
	}

	return nil
}

// GetByID retrieves a bet by ID
func (r *BetRepository) GetByID(ctx context.Context, id int64) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`

	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to get bet %d", id))
	}

	return bet, nil
}

// GetBySessionAndMember retrieves a member's bet on a session
func (r *BetRepository) GetBySessionAndMember(ctx context.Context, sessionID, memberID int64) (*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE session_id = $1 AND member_id = $2`

	bet, err := scanBet(r.q.QueryRow(ctx, query, sessionID, memberID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get bet")
	}

	return bet, nil
}

func (r *BetRepository) queryBets(ctx context.Context, query string, args ...any) ([]*models.Bet, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to query bets")
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		bet, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, bet)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}

	return bets, nil
}

// GetBySession returns all bets on a session
func (r *BetRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE session_id = $1 ORDER BY id`
	return r.queryBets(ctx, query, sessionID)
}

// GetUnresolvedBySession returns the unresolved bets on a session, locked for
// update so settlement is the only writer.
func (r *BetRepository) GetUnresolvedBySession(ctx context.Context, sessionID int64) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE session_id = $1 AND NOT is_resolved ORDER BY id FOR UPDATE`
	return r.queryBets(ctx, query, sessionID)
}

// GetByMember returns a member's bets, most recent first
func (r *BetRepository) GetByMember(ctx context.Context, memberID int64, limit int) ([]*models.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE member_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	return r.queryBets(ctx, query, memberID, limit)
}

// ExistsForSession reports whether any bet references the session's odds
func (r *BetRepository) ExistsForSession(ctx context.Context, sessionID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bets WHERE session_id = $1)`, sessionID,
	).Scan(&exists)
	if err != nil {
		return false, wrapStorageErr(err, "failed to check bet existence")
	}

	return exists, nil
}

// MarkResolved flips a bet to resolved with its payout. The is_resolved guard
// in the predicate makes settlement write each bet at most once; a second
// attempt affects zero rows.
func (r *BetRepository) MarkResolved(ctx context.Context, betID int64, payout int64, resolvedAt time.Time) (bool, error) {
	query := `
		UPDATE bets
		SET is_resolved = TRUE, payout = $2, resolved_at = $3
		WHERE id = $1 AND NOT is_resolved
	`

	result, err := r.q.Exec(ctx, query, betID, payout, resolvedAt)
	if err != nil {
		return false, wrapStorageErr(err, fmt.Sprintf("failed to resolve bet %d", betID))
	}

	return result.RowsAffected() == 1, nil
}
