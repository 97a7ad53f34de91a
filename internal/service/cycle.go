package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
)

// RandSource picks an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRandSource is safe for concurrent use.
var DefaultRandSource RandSource = globalRand{}

// CycleState is the owner's progression: Current is the highest microcycle
// holding goals, 0 while the owner has none.
type CycleState struct {
	Current int `json:"current"`
}

func (s CycleState) Initialized() bool {
	return s.Current > 0
}

func (s CycleState) String() string {
	if !s.Initialized() {
		return "uninitialized"
	}
	return fmt.Sprintf("at cycle %d", s.Current)
}

type CycleEngine struct {
	goals   repository.GoalRepository
	rand    RandSource
	metrics *metrics.Manager
}

func NewCycleEngine(goals repository.GoalRepository, rnd RandSource, m *metrics.Manager) *CycleEngine {
	if rnd == nil {
		rnd = DefaultRandSource
	}
	return &CycleEngine{
		goals:   goals,
		rand:    rnd,
		metrics: m,
	}
}

func (e *CycleEngine) State(ctx context.Context, owner string) (CycleState, error) {
	current, err := e.goals.MaxMicrocycle(ctx, owner)
	if err != nil {
		return CycleState{}, remoteError("read current microcycle", err)
	}
	return CycleState{Current: current}, nil
}

// Cycles lists 1..current for cycle selection. Empty when uninitialized.
func (e *CycleEngine) Cycles(ctx context.Context, owner string) ([]int, error) {
	state, err := e.State(ctx, owner)
	if err != nil {
		return nil, err
	}

	cycles := make([]int, 0, state.Current)
	for n := 1; n <= state.Current; n++ {
		cycles = append(cycles, n)
	}
	return cycles, nil
}

// Advance copies every goal of the current microcycle into the next one.
//
// The read of the current cycle and the insert are separate round trips, so two
// concurrent calls for the same owner may both clone into the same cycle. The
// insert itself is a single transaction.
func (e *CycleEngine) Advance(ctx context.Context, owner string) (CycleState, []model.Goal, error) {
	start := time.Now()
	defer func() {
		e.metrics.HistAdvanceDuration.Observe(time.Since(start).Seconds())
	}()

	state, err := e.State(ctx, owner)
	if err != nil {
		e.metrics.CounterAdvances.WithLabelValues("error").Inc()
		return CycleState{}, nil, err
	}
	if !state.Initialized() {
		e.metrics.CounterAdvances.WithLabelValues("empty_source").Inc()
		return state, nil, ErrEmptySourceCycle
	}

	sources, err := e.goals.Goals(ctx, repository.GoalFilter{
		UserID:     owner,
		Microcycle: state.Current,
		OrderBy:    repository.GoalOrderID,
	})
	if err != nil {
		e.metrics.CounterAdvances.WithLabelValues("error").Inc()
		return state, nil, remoteError("read source microcycle", err)
	}
	if len(sources) == 0 {
		e.metrics.CounterAdvances.WithLabelValues("empty_source").Inc()
		return state, nil, ErrEmptySourceCycle
	}

	next := state.Current + 1
	clones := make([]model.Goal, len(sources))
	ptrs := make([]*model.Goal, len(sources))
	for i, src := range sources {
		clones[i] = src.Clone(next)
		ptrs[i] = &clones[i]
	}

	if err := e.goals.Create(ctx, ptrs...); err != nil {
		e.metrics.CounterAdvances.WithLabelValues("error").Inc()
		return state, nil, remoteError("clone goals", err)
	}

	e.metrics.CounterAdvances.WithLabelValues("ok").Inc()
	e.metrics.CounterGoalsCloned.Add(float64(len(clones)))
	slog.Info("microcycle advanced", "user_id", owner, "from", state.Current, "to", next, "goals", len(clones))

	return CycleState{Current: next}, clones, nil
}

// SelectRandomActive picks uniformly among active goals. Nil when none are active.
func (e *CycleEngine) SelectRandomActive(goals []model.Goal) *model.Goal {
	active := model.ActiveGoals(goals)
	if len(active) == 0 {
		return nil
	}
	picked := active[e.rand.IntN(len(active))]
	return &picked
}
