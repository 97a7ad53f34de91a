package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
)

var errNegativeReps = errors.New("reps performed cannot be negative")

const historyLimit = 200

// WorkoutService drives the "do a random exercise, log it" loop.
type WorkoutService struct {
	engine  *CycleEngine
	stores  *GoalStores
	goals   repository.GoalRepository
	done    repository.DoneRepository
	metrics *metrics.Manager
}

func NewWorkoutService(
	engine *CycleEngine,
	stores *GoalStores,
	goals repository.GoalRepository,
	done repository.DoneRepository,
	m *metrics.Manager,
) *WorkoutService {
	return &WorkoutService{
		engine:  engine,
		stores:  stores,
		goals:   goals,
		done:    done,
		metrics: m,
	}
}

// ActiveGoals returns the active goals of the owner's current microcycle.
func (s *WorkoutService) ActiveGoals(ctx context.Context, owner string) ([]model.Goal, error) {
	state, err := s.engine.State(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !state.Initialized() {
		return []model.Goal{}, nil
	}

	active := true
	goals, err := s.goals.Goals(ctx, repository.GoalFilter{
		UserID:     owner,
		Microcycle: state.Current,
		Active:     &active,
		OrderBy:    repository.GoalOrderID,
	})
	if err != nil {
		return nil, remoteError("list active goals", err)
	}
	return goals, nil
}

// Next picks the next exercise. Nil when nothing is active.
func (s *WorkoutService) Next(ctx context.Context, owner string) (*model.Goal, error) {
	goals, err := s.ActiveGoals(ctx, owner)
	if err != nil {
		return nil, err
	}
	return s.engine.SelectRandomActive(goals), nil
}

// LogDone records a performed set for goalID, copying the goal's microcycle.
func (s *WorkoutService) LogDone(ctx context.Context, owner, goalID string, reps int, failed bool) (*model.DoneRecord, error) {
	if reps < 0 {
		return nil, newValidationError("reps", errNegativeReps)
	}

	goal, err := s.goals.ByID(ctx, owner, goalID)
	if err != nil {
		return nil, remoteError("load goal", err)
	}

	record := &model.DoneRecord{
		GoalID:     goal.ID,
		UserID:     owner,
		Microcycle: goal.Microcycle,
		Reps:       reps,
		Fail:       failed,
	}
	if err := s.done.Create(ctx, record); err != nil {
		return nil, remoteError("log done", err)
	}

	result := "ok"
	if failed {
		result = "fail"
	}
	s.metrics.CounterDoneLogged.WithLabelValues(result).Inc()
	slog.Debug("set logged", "user_id", owner, "goal_id", goal.ID, "microcycle", goal.Microcycle, "reps", reps, "fail", failed)

	return record, nil
}

// PauseGoal deactivates goalID and returns it with the refreshed active list.
func (s *WorkoutService) PauseGoal(ctx context.Context, owner, goalID string) (*model.Goal, []model.Goal, error) {
	goal, err := s.stores.For(owner).SetActive(ctx, goalID, false)
	if err != nil {
		return nil, nil, err
	}

	active, err := s.ActiveGoals(ctx, owner)
	if err != nil {
		return goal, nil, err
	}
	return goal, active, nil
}

// History lists logged sets for a microcycle, newest first.
func (s *WorkoutService) History(ctx context.Context, owner string, cycle int) ([]model.DoneRecord, error) {
	records, err := s.done.Records(ctx, repository.DoneFilter{
		UserID:     owner,
		Microcycle: cycle,
		Limit:      historyLimit,
	})
	if err != nil {
		return nil, remoteError("list history", err)
	}
	if records == nil {
		records = []model.DoneRecord{}
	}
	return records, nil
}
