package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/validation"
)

// GoalInput is the payload for a new goal.
type GoalInput struct {
	Exercise   string   `json:"Exercise"`
	Sets       int      `json:"Sets"`
	Reps       int      `json:"Reps"`
	Categories []string `json:"categories"`
}

// GoalPatch is a partial update. Nil fields are left alone. Categories holds
// raw JSON exactly as the client typed it and is parsed before any write.
type GoalPatch struct {
	Exercise   *string         `json:"Exercise"`
	Sets       *int            `json:"Sets"`
	Reps       *int            `json:"Reps"`
	Categories json.RawMessage `json:"categories"`
	Active     *bool           `json:"active"`
}

// GoalStore caches one owner's goals for the selected microcycle. The cache is
// only mutated after the database confirms a write, and never after Close.
type GoalStore struct {
	owner   string
	goals   repository.GoalRepository
	metrics *metrics.Manager

	mu         sync.Mutex
	cycle      int
	cache      []model.Goal
	generation uint64
	closed     bool
}

func NewGoalStore(owner string, goals repository.GoalRepository, m *metrics.Manager) *GoalStore {
	return &GoalStore{
		owner:   owner,
		goals:   goals,
		metrics: m,
	}
}

func (s *GoalStore) Owner() string {
	return s.owner
}

// ListGoals selects cycle and replaces the cached view with its goals.
// A response that arrives after a newer ListGoals, a confirmed write, or Close
// is returned to the caller but not cached.
func (s *GoalStore) ListGoals(ctx context.Context, cycle int) ([]model.Goal, error) {
	if err := validation.ValidateCycle(cycle); err != nil {
		return nil, newValidationError("microcycle", err)
	}

	s.mu.Lock()
	s.generation++
	generation := s.generation
	s.mu.Unlock()

	goals, err := s.goals.Goals(ctx, repository.GoalFilter{
		UserID:     s.owner,
		Microcycle: cycle,
		OrderBy:    repository.GoalOrderID,
	})
	if err != nil {
		return nil, remoteError("list goals", err)
	}
	if goals == nil {
		goals = []model.Goal{}
	}

	s.mu.Lock()
	if !s.closed && s.generation == generation {
		s.cycle = cycle
		s.cache = slices.Clone(goals)
	}
	s.mu.Unlock()

	return goals, nil
}

func (s *GoalStore) CreateGoal(ctx context.Context, cycle int, input GoalInput) (*model.Goal, error) {
	if err := validation.ValidateExercise(input.Exercise); err != nil {
		return nil, newValidationError("Exercise", err)
	}
	if err := validation.ValidateCycle(cycle); err != nil {
		return nil, newValidationError("microcycle", err)
	}

	categories := model.Categories(input.Categories)
	if categories == nil {
		categories = model.Categories{}
	}

	goal := &model.Goal{
		UserID:     s.owner,
		Microcycle: cycle,
		Exercise:   strings.TrimSpace(input.Exercise),
		Sets:       validation.PositiveOrDefault(input.Sets),
		Reps:       validation.PositiveOrDefault(input.Reps),
		Categories: categories,
		Active:     true,
	}
	if err := s.goals.Create(ctx, goal); err != nil {
		return nil, remoteError("create goal", err)
	}
	s.metrics.CounterGoalsCreated.Inc()

	s.mu.Lock()
	s.generation++
	if !s.closed && s.cycle == cycle {
		s.cache = append(s.cache, *goal)
	}
	s.mu.Unlock()

	slog.Debug("goal created", "user_id", s.owner, "goal_id", goal.ID, "microcycle", cycle)
	return goal, nil
}

func (s *GoalStore) UpdateGoal(ctx context.Context, id string, patch GoalPatch) (*model.Goal, error) {
	var changes repository.GoalChanges

	if patch.Exercise != nil {
		if err := validation.ValidateExercise(*patch.Exercise); err != nil {
			return nil, newValidationError("Exercise", err)
		}
		exercise := strings.TrimSpace(*patch.Exercise)
		changes.Exercise = &exercise
	}
	if patch.Sets != nil {
		sets := validation.PositiveOrDefault(*patch.Sets)
		changes.Sets = &sets
	}
	if patch.Reps != nil {
		reps := validation.PositiveOrDefault(*patch.Reps)
		changes.Reps = &reps
	}
	if patch.Categories != nil {
		parsed, err := validation.ParseCategories(patch.Categories)
		if err != nil {
			return nil, newValidationError("categories", err)
		}
		categories := model.Categories(parsed)
		changes.Categories = &categories
	}
	changes.Active = patch.Active

	return s.update(ctx, id, changes)
}

func (s *GoalStore) SetActive(ctx context.Context, id string, active bool) (*model.Goal, error) {
	return s.update(ctx, id, repository.GoalChanges{Active: &active})
}

// ToggleActive flips the active flag as the store currently sees it, falling
// back to the database when the goal is outside the cached cycle.
func (s *GoalStore) ToggleActive(ctx context.Context, id string) (*model.Goal, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	var active bool
	if idx >= 0 {
		active = s.cache[idx].Active
	}
	s.mu.Unlock()

	if idx < 0 {
		goal, err := s.goals.ByID(ctx, s.owner, id)
		if err != nil {
			return nil, remoteError("toggle goal", err)
		}
		active = goal.Active
	}

	return s.SetActive(ctx, id, !active)
}

func (s *GoalStore) DeleteGoal(ctx context.Context, id string) error {
	if err := s.goals.Delete(ctx, s.owner, id); err != nil {
		return remoteError("delete goal", err)
	}

	s.mu.Lock()
	s.generation++
	if !s.closed {
		if idx := s.indexOf(id); idx >= 0 {
			s.cache = slices.Delete(s.cache, idx, idx+1)
		}
	}
	s.mu.Unlock()

	slog.Debug("goal deleted", "user_id", s.owner, "goal_id", id)
	return nil
}

// Reset selects cycle with goals the caller already read from the database,
// such as the clones returned by CycleEngine.Advance.
func (s *GoalStore) Reset(cycle int, goals []model.Goal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.closed {
		return
	}
	s.cycle = cycle
	s.cache = slices.Clone(goals)
	if s.cache == nil {
		s.cache = []model.Goal{}
	}
}

// Goals returns a copy of the cached view.
func (s *GoalStore) Goals() []model.Goal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cache)
}

// Cycle returns the selected microcycle, 0 before the first ListGoals.
func (s *GoalStore) Cycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cycle
}

func (s *GoalStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cache = nil
}

func (s *GoalStore) update(ctx context.Context, id string, changes repository.GoalChanges) (*model.Goal, error) {
	goal, err := s.goals.Update(ctx, s.owner, id, changes)
	if err != nil {
		return nil, remoteError("update goal", err)
	}

	s.mu.Lock()
	s.generation++
	if !s.closed {
		if idx := s.indexOf(id); idx >= 0 {
			s.cache[idx] = *goal
		}
	}
	s.mu.Unlock()

	return goal, nil
}

// indexOf must be called with mu held.
func (s *GoalStore) indexOf(id string) int {
	return slices.IndexFunc(s.cache, func(g model.Goal) bool { return g.ID == id })
}
