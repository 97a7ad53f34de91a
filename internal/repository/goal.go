package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/repcycle/internal/model"
)

const (
	GoalOrderID         = "id"
	GoalOrderMicrocycle = "microcycle"
	GoalOrderExercise   = "exercise"
	GoalOrderCreated    = "created_at"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
)

// goalOrderColumns whitelists the columns a caller may order by.
var goalOrderColumns = map[string]string{
	GoalOrderID:         "id",
	GoalOrderMicrocycle: "microcycle",
	GoalOrderExercise:   `"Exercise"`,
	GoalOrderCreated:    "created_at",
}

// GoalFilter selects goals by equality on the set fields.
// Zero values mean "no filter"; results are ordered by id ascending unless OrderBy is set.
type GoalFilter struct {
	UserID     string
	Microcycle int
	Active     *bool
	OrderBy    string
	Desc       bool
	Limit      int
}

// GoalChanges is a partial update; nil fields are left untouched.
type GoalChanges struct {
	Exercise   *string
	Sets       *int
	Reps       *int
	Categories *model.Categories
	Active     *bool
}

func (c GoalChanges) Empty() bool {
	return c.Exercise == nil && c.Sets == nil && c.Reps == nil && c.Categories == nil && c.Active == nil
}

//go:generate go tool mockgen -source=goal.go -destination=mocks/goal_mock.go -package=mocks

type GoalRepository interface {
	Goals(ctx context.Context, filter GoalFilter) ([]model.Goal, error)
	ByID(ctx context.Context, userID, goalID string) (*model.Goal, error)
	MaxMicrocycle(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, goals ...*model.Goal) error
	Update(ctx context.Context, userID, goalID string, changes GoalChanges) (*model.Goal, error)
	Delete(ctx context.Context, userID, goalID string) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Goals(ctx context.Context, filter GoalFilter) ([]model.Goal, error) {
	var (
		where []string
		args  []any
	)

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Microcycle > 0 {
		args = append(args, filter.Microcycle)
		where = append(where, fmt.Sprintf("microcycle = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		where = append(where, fmt.Sprintf("active = $%d", len(args)))
	}

	query := `SELECT * FROM goals`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}

	column, ok := goalOrderColumns[filter.OrderBy]
	if !ok {
		column = "id"
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", column, direction)
	if column != "id" {
		query += ", id ASC"
	}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	goals := []model.Goal{}
	err := r.db.SelectContext(ctx, &goals, query, args...)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) ByID(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, goal, query, goalID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

// MaxMicrocycle returns the highest microcycle holding goals for the user, 0 when there are none.
func (r *goalRepository) MaxMicrocycle(ctx context.Context, userID string) (int, error) {
	var microcycle int
	query := `SELECT microcycle FROM goals WHERE user_id = $1 ORDER BY microcycle DESC LIMIT 1`

	err := r.db.GetContext(ctx, &microcycle, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return microcycle, nil
}

// Create inserts one or many goals in a single transaction. Missing ids and
// timestamps are assigned in argument order, so ascending ids follow that order.
func (r *goalRepository) Create(ctx context.Context, goals ...*model.Goal) error {
	if len(goals) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO goals (id, user_id, microcycle, "Exercise", "Sets", "Reps", categories, active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for i, goal := range goals {
		if goal.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return fmt.Errorf("failed to generate goal id: %w", err)
			}
			goal.ID = id.String()
		}
		if goal.CreatedAt.IsZero() {
			goal.CreatedAt = now
		}
		if goal.Categories == nil {
			goal.Categories = model.Categories{}
		}

		_, err = stmt.ExecContext(ctx,
			goal.ID,
			goal.UserID,
			goal.Microcycle,
			goal.Exercise,
			goal.Sets,
			goal.Reps,
			goal.Categories,
			goal.Active,
			goal.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create goal %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

func (r *goalRepository) Update(ctx context.Context, userID, goalID string, changes GoalChanges) (*model.Goal, error) {
	if changes.Empty() {
		return r.ByID(ctx, userID, goalID)
	}

	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.Exercise != nil {
		add(`"Exercise"`, *changes.Exercise)
	}
	if changes.Sets != nil {
		add(`"Sets"`, *changes.Sets)
	}
	if changes.Reps != nil {
		add(`"Reps"`, *changes.Reps)
	}
	if changes.Categories != nil {
		add("categories", *changes.Categories)
	}
	if changes.Active != nil {
		add("active", *changes.Active)
	}

	args = append(args, goalID, userID)
	query := fmt.Sprintf(`UPDATE goals SET %s WHERE id = $%d AND user_id = $%d RETURNING *`,
		strings.Join(set, ", "), len(args)-1, len(args))

	goal := &model.Goal{}
	err := r.db.GetContext(ctx, goal, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func (r *goalRepository) Delete(ctx context.Context, userID, goalID string) error {
	query := `DELETE FROM goals WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, goalID, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}
