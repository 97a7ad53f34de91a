package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/repcycle/internal/db/dbtest"
	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
)

func newGoal(userID string, microcycle int, exercise string) *model.Goal {
	return &model.Goal{
		UserID:     userID,
		Microcycle: microcycle,
		Exercise:   exercise,
		Sets:       3,
		Reps:       5,
		Categories: model.Categories{"Strength", "Legs"},
		Active:     true,
	}
}

func TestGoalRepository_CreateAndSelect(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	repo := repository.NewGoalRepository(database)
	userID := dbtest.User(t, database)

	squat := newGoal(userID, 1, "Squat")
	bench := newGoal(userID, 1, "Bench")
	bench.Active = false
	row := newGoal(userID, 2, "Row")

	require.NoError(t, repo.Create(ctx, squat, bench, row))
	assert.NotEmpty(t, squat.ID)
	assert.Less(t, squat.ID, bench.ID, "ids follow insertion order")

	goals, err := repo.Goals(ctx, repository.GoalFilter{UserID: userID, Microcycle: 1})
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "Squat", goals[0].Exercise)
	assert.Equal(t, 3, goals[0].Sets)
	assert.Equal(t, 5, goals[0].Reps)
	assert.Equal(t, model.Categories{"Strength", "Legs"}, goals[0].Categories)
	assert.True(t, goals[0].Active)
	assert.Equal(t, "Bench", goals[1].Exercise)
	assert.False(t, goals[1].Active)

	active := true
	goals, err = repo.Goals(ctx, repository.GoalFilter{UserID: userID, Microcycle: 1, Active: &active})
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, squat.ID, goals[0].ID)

	goals, err = repo.Goals(ctx, repository.GoalFilter{UserID: userID, OrderBy: repository.GoalOrderMicrocycle, Desc: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Row", goals[0].Exercise)
}

func TestGoalRepository_GoalsEmpty(t *testing.T) {
	database := dbtest.New(t)
	repo := repository.NewGoalRepository(database)

	goals, err := repo.Goals(context.Background(), repository.GoalFilter{UserID: "nobody", Microcycle: 4})
	require.NoError(t, err)
	assert.NotNil(t, goals)
	assert.Empty(t, goals)
}

func TestGoalRepository_MaxMicrocycle(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	repo := repository.NewGoalRepository(database)
	userID := dbtest.User(t, database)
	otherID := dbtest.User(t, database)

	max, err := repo.MaxMicrocycle(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, max)

	require.NoError(t, repo.Create(ctx, newGoal(userID, 1, "Squat"), newGoal(userID, 3, "Squat"), newGoal(otherID, 9, "Curl")))

	max, err = repo.MaxMicrocycle(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, max, "other owners do not leak into the max")
}

func TestGoalRepository_CreateRollsBackBatch(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	repo := repository.NewGoalRepository(database)
	userID := dbtest.User(t, database)

	first := newGoal(userID, 1, "Squat")
	broken := newGoal(userID, 0, "Bench") // violates microcycle > 0

	require.Error(t, repo.Create(ctx, first, broken))

	goals, err := repo.Goals(ctx, repository.GoalFilter{UserID: userID})
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestGoalRepository_Update(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	repo := repository.NewGoalRepository(database)
	userID := dbtest.User(t, database)

	goal := newGoal(userID, 1, "Squat")
	require.NoError(t, repo.Create(ctx, goal))

	exercise := "Front Squat"
	reps := 8
	categories := model.Categories{"A", "B"}
	active := false
	updated, err := repo.Update(ctx, userID, goal.ID, repository.GoalChanges{
		Exercise:   &exercise,
		Reps:       &reps,
		Categories: &categories,
		Active:     &active,
	})
	require.NoError(t, err)
	assert.Equal(t, goal.ID, updated.ID)
	assert.Equal(t, "Front Squat", updated.Exercise)
	assert.Equal(t, 3, updated.Sets)
	assert.Equal(t, 8, updated.Reps)
	assert.Equal(t, model.Categories{"A", "B"}, updated.Categories)
	assert.False(t, updated.Active)

	_, err = repo.Update(ctx, userID, "missing", repository.GoalChanges{Active: &active})
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)

	_, err = repo.Update(ctx, "someone-else", goal.ID, repository.GoalChanges{Active: &active})
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)
}

func TestGoalRepository_Delete(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	repo := repository.NewGoalRepository(database)
	userID := dbtest.User(t, database)

	goal := newGoal(userID, 1, "Squat")
	require.NoError(t, repo.Create(ctx, goal))

	require.NoError(t, repo.Delete(ctx, userID, goal.ID))
	assert.ErrorIs(t, repo.Delete(ctx, userID, goal.ID), repository.ErrGoalNotFound)

	_, err := repo.ByID(ctx, userID, goal.ID)
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)
}
