package model

import (
	"time"
)

// DoneRecord is one logged execution of a goal. GoalID is a weak reference:
// the goal may be edited or deleted afterwards without touching the record.
type DoneRecord struct {
	ID         string    `db:"id" json:"id"`
	GoalID     string    `db:"goals_id" json:"goals_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Microcycle int       `db:"goals_microcycle" json:"goals_microcycle"`
	Reps       int       `db:"reps" json:"reps"`
	Fail       bool      `db:"fail" json:"fail"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
