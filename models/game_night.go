package models

import "time"

// GameNight is one calendar evening of play. The date is unique; once the
// night has started, checked-in attendees can no longer place bets.
type GameNight struct {
	ID         int64     `db:"id"`
	Date       time.Time `db:"night_date"`
	HasStarted bool      `db:"has_started"`
	CreatedAt  time.Time `db:"created_at"`
}

// Attendee records a member checked in to a specific night. Unique per
// (night, member).
type Attendee struct {
	ID          int64     `db:"id"`
	GameNightID int64     `db:"game_night_id"`
	MemberID    int64     `db:"member_id"`
	CheckedInAt time.Time `db:"checked_in_at"`
}
