package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/htc101524/BoardGameMondays-sub002/database"
	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// MemberRepository implements member data access
type MemberRepository struct {
	q Queryable
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{q: db.Pool}
}

func newMemberRepositoryWithTx(tx Queryable) *MemberRepository {
	return &MemberRepository{q: tx}
}

// Create creates a new member with the default rating
func (r *MemberRepository) Create(ctx context.Context, name string) (*models.Member, error) {
	query := `
		INSERT INTO members (name)
		VALUES ($1)
		RETURNING id, name, rating, rating_updated_at, created_at
	`

	var member models.Member
	err := r.q.QueryRow(ctx, query, name).Scan(
		&member.ID,
		&member.Name,
		&member.Rating,
		&member.RatingUpdatedAt,
		&member.CreatedAt,
	)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to create member")
	}

	return &member, nil
}

// GetByID retrieves a member by ID
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	query := `
		SELECT id, name, rating, rating_updated_at, created_at
		FROM members
		WHERE id = $1
	`

	var member models.Member
	err := r.q.QueryRow(ctx, query, id).Scan(
		&member.ID,
		&member.Name,
		&member.Rating,
		&member.RatingUpdatedAt,
		&member.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorageErr(err, fmt.Sprintf("failed to get member %d", id))
	}

	return &member, nil
}

// GetByIDs retrieves members by ID, keyed by member ID
func (r *MemberRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Member, error) {
	query := `
		SELECT id, name, rating, rating_updated_at, created_at
		FROM members
		WHERE id = ANY($1)
	`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, wrapStorageErr(err, "failed to get members")
	}
	defer rows.Close()

	members := make(map[int64]*models.Member, len(ids))
	for rows.Next() {
		var member models.Member
		if err := rows.Scan(
			&member.ID,
			&member.Name,
			&member.Rating,
			&member.RatingUpdatedAt,
			&member.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members[member.ID] = &member
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// UpdateRating updates a member's rating and stamps rating_updated_at.
// Only the resolution path calls this.
func (r *MemberRepository) UpdateRating(ctx context.Context, memberID int64, newRating int, updatedAt time.Time) error {
	query := `
		UPDATE members
		SET rating = $2, rating_updated_at = $3
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, memberID, newRating, updatedAt)
	if err != nil {
		return wrapStorageErr(err, fmt.Sprintf("failed to update rating for member %d", memberID))
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("member with ID %d not found", memberID)
	}

	return nil
}
