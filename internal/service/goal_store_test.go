package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/repository/mocks"
	"go.uber.org/mock/gomock"
)

func TestGoalStore_CreateThenList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := f.store()

	for range 10 {
		input := GoalInput{
			Exercise: gofakeit.Noun(),
			Sets:     gofakeit.Number(1, 10),
			Reps:     gofakeit.Number(1, 20),
		}

		created, err := store.CreateGoal(ctx, 1, input)
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		goals, err := store.ListGoals(ctx, 1)
		require.NoError(t, err)

		var found *model.Goal
		for i := range goals {
			if goals[i].ID == created.ID {
				found = &goals[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, input.Exercise, found.Exercise)
		assert.Equal(t, input.Sets, found.Sets)
		assert.Equal(t, input.Reps, found.Reps)
		assert.True(t, found.Active)
	}
}

func TestGoalStore_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := f.store()

	goal, err := store.CreateGoal(ctx, 1, GoalInput{Exercise: "  Plank  ", Sets: 0, Reps: -2})
	require.NoError(t, err)
	assert.Equal(t, "Plank", goal.Exercise)
	assert.Equal(t, 1, goal.Sets)
	assert.Equal(t, 1, goal.Reps)
	assert.Equal(t, model.Categories{}, goal.Categories)
}

func TestGoalStore_CreateInvalidDoesNotWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGoalRepository(ctrl)
	// no expectations: any repository call fails the test
	store := NewGoalStore("u1", repo, metrics.NewTestManager())

	_, err := store.CreateGoal(context.Background(), 1, GoalInput{Exercise: "", Sets: 3, Reps: 5})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Exercise", verr.Field)

	_, err = store.CreateGoal(context.Background(), 0, GoalInput{Exercise: "Squat"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "microcycle", verr.Field)
}

func TestGoalStore_CreateFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGoalRepository(ctrl)
	store := NewGoalStore("u1", repo, metrics.NewTestManager())

	existing := []model.Goal{{ID: "g1", UserID: "u1", Microcycle: 1, Exercise: "Squat", Sets: 3, Reps: 5, Active: true}}
	repo.EXPECT().Goals(gomock.Any(), gomock.Any()).Return(existing, nil)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := store.ListGoals(ctx, 1)
	require.NoError(t, err)

	_, err = store.CreateGoal(ctx, 1, GoalInput{Exercise: "Bench"})
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, existing, store.Goals())
}

func TestGoalStore_ListEmptyCycle(t *testing.T) {
	f := newFixture(t)

	goals, err := f.store().ListGoals(context.Background(), 7)
	require.NoError(t, err)
	assert.NotNil(t, goals)
	assert.Empty(t, goals)
}

func TestGoalStore_ListRemoteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGoalRepository(ctrl)
	repo.EXPECT().Goals(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))

	_, err := NewGoalStore("u1", repo, metrics.NewTestManager()).ListGoals(context.Background(), 1)
	var remote *RemoteError
	assert.ErrorAs(t, err, &remote)
}

func TestGoalStore_UpdateCategoriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := f.store()

	goal, err := store.CreateGoal(ctx, 1, GoalInput{Exercise: "Squat", Sets: 3, Reps: 5, Categories: []string{"Legs"}})
	require.NoError(t, err)

	updated, err := store.UpdateGoal(ctx, goal.ID, GoalPatch{Categories: json.RawMessage(`["A","B"]`)})
	require.NoError(t, err)
	assert.Equal(t, model.Categories{"A", "B"}, updated.Categories)

	goals, err := store.ListGoals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, model.Categories{"A", "B"}, goals[0].Categories)
	assert.Equal(t, "Squat", goals[0].Exercise, "untouched fields survive")
}

func TestGoalStore_UpdateMalformedCategoriesDoesNotWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGoalRepository(ctrl)
	store := NewGoalStore("u1", repo, metrics.NewTestManager())

	_, err := store.UpdateGoal(context.Background(), "g1", GoalPatch{Categories: json.RawMessage(`Legs, Core`)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "categories", verr.Field)
}

func TestGoalStore_UpdateMissingGoal(t *testing.T) {
	f := newFixture(t)
	exercise := "Deadlift"

	_, err := f.store().UpdateGoal(context.Background(), "missing", GoalPatch{Exercise: &exercise})
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)
}

func TestGoalStore_SetActiveTwiceRestores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := f.store()

	goal, err := store.CreateGoal(ctx, 1, GoalInput{Exercise: "Squat", Sets: 3, Reps: 5})
	require.NoError(t, err)
	original := goal.Active

	_, err = store.SetActive(ctx, goal.ID, true)
	require.NoError(t, err)
	after, err := store.SetActive(ctx, goal.ID, false)
	require.NoError(t, err)
	assert.False(t, after.Active)

	back, err := store.SetActive(ctx, goal.ID, original)
	require.NoError(t, err)
	assert.Equal(t, original, back.Active)
}

func TestGoalStore_ToggleActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := f.store()

	goal, err := store.CreateGoal(ctx, 1, GoalInput{Exercise: "Squat"})
	require.NoError(t, err)

	// not cached yet: falls back to the database
	toggled, err := store.ToggleActive(ctx, goal.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	_, err = store.ListGoals(ctx, 1)
	require.NoError(t, err)

	toggled, err = store.ToggleActive(ctx, goal.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Active)
	assert.True(t, store.Goals()[0].Active)
}

func TestGoalStore_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := f.store()

	goal, err := store.CreateGoal(ctx, 1, GoalInput{Exercise: "Squat"})
	require.NoError(t, err)
	_, err = store.ListGoals(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, store.DeleteGoal(ctx, goal.ID))
	assert.Empty(t, store.Goals())

	err = store.DeleteGoal(ctx, goal.ID)
	assert.True(t, IsNotFound(err), "second delete reports not found")
}

func TestGoalStore_CacheFollowsSelectedCycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := f.store()

	_, err := store.ListGoals(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Cycle())

	_, err = store.CreateGoal(ctx, 1, GoalInput{Exercise: "Squat"})
	require.NoError(t, err)
	assert.Empty(t, store.Goals(), "goal for another cycle is not cached")

	_, err = store.CreateGoal(ctx, 2, GoalInput{Exercise: "Row"})
	require.NoError(t, err)
	require.Len(t, store.Goals(), 1)
	assert.Equal(t, "Row", store.Goals()[0].Exercise)
}

func TestGoalStore_CloseDropsLateResponse(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGoalRepository(ctrl)
	store := NewGoalStore("u1", repo, metrics.NewTestManager())

	late := []model.Goal{{ID: "g1", UserID: "u1", Microcycle: 1, Exercise: "Squat", Active: true}}
	repo.EXPECT().Goals(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, repository.GoalFilter) ([]model.Goal, error) {
			store.Close()
			return late, nil
		})

	goals, err := store.ListGoals(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, late, goals)
	assert.Empty(t, store.Goals())
	assert.Equal(t, 0, store.Cycle())
}

func TestGoalStore_StaleListIsNotCached(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGoalRepository(ctrl)
	store := NewGoalStore("u1", repo, metrics.NewTestManager())

	cycleOne := []model.Goal{{ID: "g1", Microcycle: 1, Exercise: "Squat"}}
	cycleTwo := []model.Goal{{ID: "g2", Microcycle: 2, Exercise: "Row"}}

	gomock.InOrder(
		repo.EXPECT().Goals(gomock.Any(), repository.GoalFilter{UserID: "u1", Microcycle: 1, OrderBy: repository.GoalOrderID}).DoAndReturn(
			func(context.Context, repository.GoalFilter) ([]model.Goal, error) {
				// a newer selection completes while this one is in flight
				_, err := store.ListGoals(ctx, 2)
				require.NoError(t, err)
				return cycleOne, nil
			}),
		repo.EXPECT().Goals(gomock.Any(), repository.GoalFilter{UserID: "u1", Microcycle: 2, OrderBy: repository.GoalOrderID}).Return(cycleTwo, nil),
	)

	_, err := store.ListGoals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, store.Cycle())
	assert.Equal(t, cycleTwo, store.Goals())
}

func TestGoalStore_ListInFlightDuringWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockGoalRepository(ctrl)
	store := NewGoalStore("u1", repo, metrics.NewTestManager())

	active := model.Goal{ID: "g1", Microcycle: 1, Exercise: "Squat", Active: true}
	paused := active
	paused.Active = false
	filter := repository.GoalFilter{UserID: "u1", Microcycle: 1, OrderBy: repository.GoalOrderID}
	pause, resume := false, true

	gomock.InOrder(
		repo.EXPECT().Goals(gomock.Any(), filter).Return([]model.Goal{active}, nil),
		repo.EXPECT().Goals(gomock.Any(), filter).DoAndReturn(
			func(context.Context, repository.GoalFilter) ([]model.Goal, error) {
				// the rows were read before this pause committed
				_, err := store.SetActive(ctx, "g1", false)
				require.NoError(t, err)
				return []model.Goal{active}, nil
			}),
		repo.EXPECT().Update(gomock.Any(), "u1", "g1", repository.GoalChanges{Active: &pause}).Return(&paused, nil),
		repo.EXPECT().Update(gomock.Any(), "u1", "g1", repository.GoalChanges{Active: &resume}).Return(&active, nil),
	)

	_, err := store.ListGoals(ctx, 1)
	require.NoError(t, err)

	_, err = store.ListGoals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, store.Goals(), 1)
	assert.False(t, store.Goals()[0].Active, "confirmed pause survives the late list")

	goal, err := store.ToggleActive(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, goal.Active)
}

func TestGoalStore_Reset(t *testing.T) {
	f := newFixture(t)
	store := f.store()

	_, err := store.ListGoals(context.Background(), 1)
	require.NoError(t, err)

	clones := []model.Goal{{ID: "g2", Microcycle: 2, Exercise: "Row", Active: true}}
	store.Reset(2, clones)
	assert.Equal(t, 2, store.Cycle())
	assert.Equal(t, clones, store.Goals())

	store.Close()
	store.Reset(3, nil)
	assert.Equal(t, 2, store.Cycle())
	assert.Empty(t, store.Goals())
}

func TestGoalStores_DropOnSignOut(t *testing.T) {
	f := newFixture(t)
	stores := NewGoalStores(f.goals, f.metrics)

	store := stores.For(f.owner)
	assert.Same(t, store, stores.For(f.owner))

	_, err := store.CreateGoal(context.Background(), 1, GoalInput{Exercise: "Squat"})
	require.NoError(t, err)
	_, err = store.ListGoals(context.Background(), 1)
	require.NoError(t, err)

	stores.HandleSessionChange(SessionEvent{Type: SessionSignedIn, UserID: f.owner})
	assert.Same(t, store, stores.For(f.owner))

	stores.HandleSessionChange(SessionEvent{Type: SessionSignedOut, UserID: f.owner})
	assert.Empty(t, store.Goals(), "old store is closed")
	assert.NotSame(t, store, stores.For(f.owner))
}

func TestGoalStores_EvictIdle(t *testing.T) {
	f := newFixture(t)
	stores := NewGoalStores(f.goals, f.metrics)
	t.Cleanup(stores.Close)

	clock := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	stores.now = func() time.Time { return clock }

	idle := stores.For(f.owner)
	_, err := idle.ListGoals(context.Background(), 1)
	require.NoError(t, err)

	other := f.otherOwner(t)
	clock = clock.Add(storeIdleTTL / 2)
	busy := stores.For(other)
	assert.Equal(t, 2, stores.size())

	clock = clock.Add(storeIdleTTL/2 + time.Second)
	assert.Same(t, busy, stores.For(other))
	assert.Equal(t, 1, stores.size(), "idle owner evicted")
	assert.Empty(t, idle.Goals())

	fresh := stores.For(f.owner)
	assert.NotSame(t, idle, fresh)
	assert.Equal(t, 2, stores.size())
}
