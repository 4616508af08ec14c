package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// OddsRepository implements odds entry data access
type OddsRepository struct {
	q Queryable
}

// NewOddsRepository creates a new odds repository
func NewOddsRepository(db *database.DB) *OddsRepository {
	return &OddsRepository{q: db.Pool}
}

func newOddsRepositoryWithTx(tx Queryable) *OddsRepository {
	return &OddsRepository{q: tx}
}

// CreateAll persists a full odds sheet for a session
func (r *OddsRepository) CreateAll(ctx context.Context, entries []*models.OddsEntry) error {
	query := `
		INSERT INTO odds_entries (session_id, candidate_member_id, odds_times_100)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	for _, entry := range entries {
		err := r.q.QueryRow(ctx, query,
			entry.SessionID,
			entry.CandidateMemberID,
			entry.OddsTimes100,
		).Scan(&entry.ID, &entry.CreatedAt)
		if err != nil {
			return wrapStorageErr(err, fmt.Sprintf("failed to create odds entry for candidate %d", entry.CandidateMemberID))
		}
	}

	return nil
}

// GetBySession returns the odds sheet for a session, ordered by candidate
func (r *OddsRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.OddsEntry, error) {
	query := `
		SELECT id, session_id, candidate_member_id, odds_times_100, created_at
		FROM odds_entries
		WHERE session_id = $1
		ORDER BY candidate_member_id
	`

	rows, err := r.q.Query(ctx, query, sessionID)
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to get odds for session %d", sessionID))
	}
	defer rows.Close()

	var entries []*models.OddsEntry
	for rows.Next() {
		var entry models.OddsEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.CandidateMemberID,
			&entry.OddsTimes100,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan odds entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate odds entries: %w", err)
	}

	return entries, nil
}

// GetByCandidate returns the odds entry for a single candidate on a session
func (r *OddsRepository) GetByCandidate(ctx context.Context, sessionID, candidateMemberID int64) (*models.OddsEntry, error) {
	query := `
		SELECT id, session_id, candidate_member_id, odds_times_100, created_at
		FROM odds_entries
		WHERE session_id = $1 AND candidate_member_id = $2
	`

	var entry models.OddsEntry
	err := r.q.QueryRow(ctx, query, sessionID, candidateMemberID).Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.CandidateMemberID,
		&entry.OddsTimes100,
		&entry.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get odds entry")
	}

	return &entry, nil
}

// DeleteBySession removes the odds sheet for a session. Only legal while no
// bet references the sheet; the service layer enforces that before calling.
func (r *OddsRepository) DeleteBySession(ctx context.Context, sessionID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM odds_entries WHERE session_id = $1`, sessionID)
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to delete odds for session %d", sessionID))
	}

	return nil
}

// ExistsForSession reports whether a session already has an odds sheet
func (r *OddsRepository) ExistsForSession(ctx context.Context, sessionID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM odds_entries WHERE session_id = $1)`, sessionID,
	).Scan(&exists)
	if err != nil {
		return false, wrapStorageErr(err, "failed to check odds existence")
	}

	return exists, nil
}
