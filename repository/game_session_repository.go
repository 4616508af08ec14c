package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// GameSessionRepository implements game session data access. State changes go
// through conditional updates so the planned → confirmed → played → resolving
// → resolved path has exactly one writer per transition.
type GameSessionRepository struct {
	q Queryable
}

// NewGameSessionRepository creates a new game session repository
func NewGameSessionRepository(db *database.DB) *GameSessionRepository {
	return &GameSessionRepository{q: db.Pool}
}

func newGameSessionRepositoryWithTx(tx Queryable) *GameSessionRepository {
	return &GameSessionRepository{q: tx}
}

const sessionColumns = `
	id, game_night_id, board_game, state, winner_member_id, winner_team_name,
	created_at, confirmed_at, played_at, resolved_at
`

func scanSession(row pgx.Row) (*models.GameSession, error) {
	var session models.GameSession
	err := row.Scan(
		&session.ID,
		&session.GameNightID,
		&session.BoardGame,
		&session.State,
		&session.WinnerMemberID,
		&session.WinnerTeamName,
		&session.CreatedAt,
		&session.ConfirmedAt,
		&session.PlayedAt,
		&session.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Create creates a new session in the planned state
func (r *GameSessionRepository) Create(ctx context.Context, nightID int64, boardGame string) (*models.GameSession, error) {
	query := `
		INSERT INTO game_sessions (game_night_id, board_game)
		VALUES ($1, $2)
		RETURNING ` + sessionColumns

	session, err := scanSession(r.q.QueryRow(ctx, query, nightID, boardGame))
	if err != nil {
		return nil, wrapStorageErr(err, "failed to create game session")
	}

	return session, nil
}

// GetByID retrieves a session by ID
func (r *GameSessionRepository) GetByID(ctx context.Context, id int64) (*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1`

	session, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to get session %d", id))
	}

	return session, nil
}

// GetByIDLocked retrieves a session under FOR SHARE. Concurrent bet
// placements share the lock freely; a state transition's UPDATE waits for
// them, and later placements observe the committed transition.
func (r *GameSessionRepository) GetByIDLocked(ctx context.Context, id int64) (*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1 FOR SHARE`

	session, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to lock session %d", id))
	}

	return session, nil
}

// GetByIDForUpdate retrieves a session under FOR UPDATE. The exclusive lock
// conflicts with the share lock bet placement holds, so a caller that needs a
// stable view of the session's bets serializes against in-flight placements.
func (r *GameSessionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE id = $1 FOR UPDATE`

	session, err := scanSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to lock session %d", id))
	}

	return session, nil
}

// TransitionState moves a session from one state to the next, stamping the
// matching timestamp column. Returns false when the session was not in the
// expected state; exactly one concurrent caller observes true.
func (r *GameSessionRepository) TransitionState(ctx context.Context, id int64, from, to models.SessionState) (bool, error) {
	var stampColumn string
	switch to {
	case models.SessionStateConfirmed:
		stampColumn = "confirmed_at"
	case models.SessionStatePlayed:
		stampColumn = "played_at"
	case models.SessionStateResolved:
		stampColumn = "resolved_at"
	}

	query := `UPDATE game_sessions SET state = $3 WHERE id = $1 AND state = $2`
	if stampColumn != "" {
		query = fmt.Sprintf(
			`UPDATE game_sessions SET state = $3, %s = NOW() WHERE id = $1 AND state = $2`,
			stampColumn,
		)
	}

	result, err := r.q.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, wrapStorageErr(err, fmt.Sprintf("failed to transition session %d from %s to %s", id, from, to))
	}

	return result.RowsAffected() == 1, nil
}

// RecordOutcome stores the winner and moves confirmed → played in one
// conditional update. The winner fields are written at most once: a session
// that already left the confirmed state is never touched.
func (r *GameSessionRepository) RecordOutcome(ctx context.Context, id int64, winnerMemberID *int64, winnerTeamName *string, playedAt time.Time) (bool, error) {
	query := `
		UPDATE game_sessions
		SET state = $4, winner_member_id = $2, winner_team_name = $3, played_at = $5
		WHERE id = $1 AND state = $6
	`

	result, err := r.q.Exec(ctx, query,
		id,
		winnerMemberID,
		winnerTeamName,
		models.SessionStatePlayed,
		playedAt,
		models.SessionStateConfirmed,
	)
	if err != nil {
		return false, wrapStorageErr(err, fmt.Sprintf("failed to record outcome for session %d", id))
	}

	return result.RowsAffected() == 1, nil
}

// SetParticipants replaces the roster for a session
func (r *GameSessionRepository) SetParticipants(ctx context.Context, sessionID int64, memberIDs []int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM session_participants WHERE session_id = $1`, sessionID); err != nil {
		return wrapStorageErr(err, "failed to clear session participants")
	}

	for _, memberID := range memberIDs {
		_, err := r.q.Exec(ctx,
			`INSERT INTO session_participants (session_id, member_id) VALUES ($1, $2)`,
			sessionID, memberID,
		)
		if err != nil {
			return wrapStorageErr(err, fmt.Sprintf("failed to add participant %d", memberID))
		}
	}

	return nil
}

// GetParticipantIDs returns the roster for a session, ordered by member ID
func (r *GameSessionRepository) GetParticipantIDs(ctx context.Context, sessionID int64) ([]int64, error) {
	query := `
		SELECT member_id FROM session_participants
		WHERE session_id = $1
		ORDER BY member_id
	`

	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get session participants")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return ids, nil
}

// GetByNight returns all sessions belonging to a night
func (r *GameSessionRepository) GetByNight(ctx context.Context, nightID int64) ([]*models.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM game_sessions WHERE game_night_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, nightID)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get sessions for night")
	}
	defer rows.Close()

	var sessions []*models.GameSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}
