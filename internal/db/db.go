package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// driverAliases maps user-facing driver names to registered database/sql drivers.
var driverAliases = map[string]string{
	"postgres":   "pgx",
	"postgresql": "pgx",
	"sqlite3":    "sqlite",
}

// Driver normalizes a configured driver name.
func Driver(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := driverAliases[name]; ok {
		return alias
	}
	return name
}

func Init(driver, connection string) (*sqlx.DB, error) {
	driver = Driver(driver)

	// SQLite: create data directory if needed
	if driver == "sqlite" {
		dir := filepath.Dir(strings.TrimPrefix(connection, "file:"))
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect(driver, connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected", "driver", driver)

	err = db.Ping()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func Close(db *sqlx.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
