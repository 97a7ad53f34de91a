package model

import (
	"time"
)

// Goal is one planned exercise within one microcycle.
// Exercise, Sets and Reps keep their capitalized column and JSON names.
type Goal struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Microcycle int        `db:"microcycle" json:"microcycle"`
	Exercise   string     `db:"Exercise" json:"Exercise"`
	Sets       int        `db:"Sets" json:"Sets"`
	Reps       int        `db:"Reps" json:"Reps"`
	Categories Categories `db:"categories" json:"categories"`
	Active     bool       `db:"active" json:"active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Clone copies the goal into another microcycle. The copy has no identity yet.
func (g Goal) Clone(microcycle int) Goal {
	categories := make(Categories, len(g.Categories))
	copy(categories, g.Categories)

	return Goal{
		UserID:     g.UserID,
		Microcycle: microcycle,
		Exercise:   g.Exercise,
		Sets:       g.Sets,
		Reps:       g.Reps,
		Categories: categories,
		Active:     g.Active,
	}
}

// ActiveGoals returns the subset of goals eligible for the workout picker.
func ActiveGoals(goals []Goal) []Goal {
	var active []Goal
	for _, g := range goals {
		if g.Active {
			active = append(active, g)
		}
	}
	return active
}
