package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/repcycle/internal/model"
)

// DoneFilter selects done records by equality; newest first.
type DoneFilter struct {
	UserID     string
	GoalID     string
	Microcycle int
	Limit      int
}

//go:generate go tool mockgen -source=done.go -destination=mocks/done_mock.go -package=mocks

type DoneRepository interface {
	Create(ctx context.Context, record *model.DoneRecord) error
	Records(ctx context.Context, filter DoneFilter) ([]model.DoneRecord, error)
}

type doneRepository struct {
	db *sqlx.DB
}

func NewDoneRepository(db *sqlx.DB) DoneRepository {
	return &doneRepository{db: db}
}

func (r *doneRepository) Create(ctx context.Context, record *model.DoneRecord) error {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate done id: %w", err)
		}
		record.ID = id.String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO done (id, goals_id, user_id, goals_microcycle, reps, fail, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.GoalID,
		record.UserID,
		record.Microcycle,
		record.Reps,
		record.Fail,
		record.CreatedAt,
	)
	return err
}

func (r *doneRepository) Records(ctx context.Context, filter DoneFilter) ([]model.DoneRecord, error) {
	var (
		where []string
		args  []any
	)

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.GoalID != "" {
		args = append(args, filter.GoalID)
		where = append(where, fmt.Sprintf("goals_id = $%d", len(args)))
	}
	if filter.Microcycle > 0 {
		args = append(args, filter.Microcycle)
		where = append(where, fmt.Sprintf("goals_microcycle = $%d", len(args)))
	}

	query := `SELECT * FROM done`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	records := []model.DoneRecord{}
	err := r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, err
	}

	return records, nil
}
