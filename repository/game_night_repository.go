package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// GameNightRepository implements game night and attendee data access
type GameNightRepository struct {
	q Queryable
}

// NewGameNightRepository creates a new game night repository
func NewGameNightRepository(db *database.DB) *GameNightRepository {
	return &GameNightRepository{q: db.Pool}
}

func newGameNightRepositoryWithTx(tx Queryable) *GameNightRepository {
	return &GameNightRepository{q: tx}
}

// Create creates a new game night for a calendar date. The date is unique.
func (r *GameNightRepository) Create(ctx context.Context, date time.Time) (*models.GameNight, error) {
	query := `
		INSERT INTO game_nights (night_date)
		VALUES ($1)
		RETURNING id, night_date, has_started, created_at
	`

	var night models.GameNight
	err := r.q.QueryRow(ctx, query, date).Scan(
		&night.ID,
		&night.Date,
		&night.HasStarted,
		&night.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("game night for %s already exists", date.Format("2006-01-02"))
		}
		return nil, wrapStorageErr(err, "failed to create game night")
	}

	return &night, nil
}

// GetByID retrieves a game night by ID
func (r *GameNightRepository) GetByID(ctx context.Context, id int64) (*models.GameNight, error) {
	query := `
		SELECT id, night_date, has_started, created_at
		FROM game_nights
		WHERE id = $1
	`

	var night models.GameNight
	err := r.q.QueryRow(ctx, query, id).Scan(
		&night.ID,
		&night.Date,
		&night.HasStarted,
		&night.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to get game night %d", id))
	}

	return &night, nil
}

// MarkStarted flips has_started. Returns false when the night was already
// started, so callers announce the start at most once.
func (r *GameNightRepository) MarkStarted(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE game_nights
		SET has_started = TRUE
		WHERE id = $1 AND has_started = FALSE
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, wrapStorageErr(err, fmt.Sprintf("failed to start game night %d", id))
	}

	return result.RowsAffected() == 1, nil
}

// CheckIn records a member as an attendee of a night. Checking in twice is a
// no-op returning the existing record.
func (r *GameNightRepository) CheckIn(ctx context.Context, nightID, memberID int64) (*models.Attendee, error) {
	query := `
		INSERT INTO attendees (game_night_id, member_id)
		VALUES ($1, $2)
		ON CONFLICT (game_night_id, member_id) DO UPDATE SET member_id = EXCLUDED.member_id
		RETURNING id, game_night_id, member_id, checked_in_at
	`

	var attendee models.Attendee
	err := r.q.QueryRow(ctx, query, nightID, memberID).Scan(
		&attendee.ID,
		&attendee.GameNightID,
		&attendee.MemberID,
		&attendee.CheckedInAt,
	)
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to check in member %d to night %d", memberID, nightID))
	}

	return &attendee, nil
}

// IsAttendee reports whether a member is checked in to a night
func (r *GameNightRepository) IsAttendee(ctx context.Context, nightID, memberID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM attendees
			WHERE game_night_id = $1 AND member_id = $2
		)
	`

	var exists bool
	if err := r.q.QueryRow(ctx, query, nightID, memberID).Scan(&exists); err != nil {
		return false, wrapStorageErr(err, "failed to check attendee")
	}

	return exists, nil
}

// CountAttendees returns the number of members checked in to a night
func (r *GameNightRepository) CountAttendees(ctx context.Context, nightID int64) (int, error) {
	query := `SELECT COUNT(*) FROM attendees WHERE game_night_id = $1`

	var count int
	if err := r.q.QueryRow(ctx, query, nightID).Scan(&count); err != nil {
		return 0, wrapStorageErr(err, "failed to count attendees")
	}

	return count, nil
}
