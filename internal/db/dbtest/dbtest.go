// Package dbtest opens migrated throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/repcycle/internal/db"
)

// New returns a migrated SQLite database living in the test's temp dir.
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "repcycle.db")
	database, err := db.Init("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, db.RunMigrationsContext(context.Background(), database.DB, "sqlite"))
	return database
}

// User inserts a bare user row and returns its id. Goals and done rows need one.
func User(t testing.TB, database *sqlx.DB) string {
	t.Helper()

	id := uuid.NewString()
	_, err := database.Exec(
		`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, NULL, $3)`,
		id, gofakeit.Email(), time.Now().UTC(),
	)
	require.NoError(t, err)
	return id
}
