package service

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/templui/repcycle/internal/db/dbtest"
	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/repository"
)

type fixture struct {
	db      *sqlx.DB
	goals   repository.GoalRepository
	done    repository.DoneRepository
	users   repository.UserRepository
	metrics *metrics.Manager
	owner   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := dbtest.New(t)
	return &fixture{
		db:      database,
		goals:   repository.NewGoalRepository(database),
		done:    repository.NewDoneRepository(database),
		users:   repository.NewUserRepository(database),
		metrics: metrics.NewTestManager(),
		owner:   dbtest.User(t, database),
	}
}

// otherOwner adds another user to the fixture database.
func (f *fixture) otherOwner(t *testing.T) string {
	return dbtest.User(t, f.db)
}

func (f *fixture) store() *GoalStore {
	return NewGoalStore(f.owner, f.goals, f.metrics)
}

// fixedRand always picks index n.
type fixedRand int

func (r fixedRand) IntN(int) int { return int(r) }
