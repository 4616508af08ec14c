package models

import "time"

// DefaultRating is the rating assigned to a member before they have played
// any rated session.
const DefaultRating = 1200

// Member represents a club member with an Elo-style skill rating. The rating
// is only ever written by the resolution path.
type Member struct {
	ID              int64      `db:"id"`
	Name            string     `db:"name"`
	Rating          int        `db:"rating"`
	RatingUpdatedAt *time.Time `db:"rating_updated_at"`
	CreatedAt       time.Time  `db:"created_at"`
}

// HasPlayedRated reports whether the member's rating has ever been updated.
func (m *Member) HasPlayedRated() bool {
	return m.RatingUpdatedAt != nil
}
