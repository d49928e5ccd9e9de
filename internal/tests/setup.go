package tests

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/vaani/client/internal/db"
	"github.com/vaani/client/internal/repo"
)

// OpenSQLiteStore opens a migrated sqlite session store in dir.
// The returned database must be closed by the caller.
func OpenSQLiteStore(ctx context.Context, dir string) (repo.SessionStore, *sql.DB, error) {
	database, err := db.Open(ctx, db.DriverSQLite, filepath.Join(dir, "vaani-test.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Migrate(database, db.DriverSQLite); err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return repo.NewSessionRepo(database), database, nil
}

// ClearSessionTable removes every persisted session value
func ClearSessionTable(ctx context.Context, database *sql.DB) error {
	if _, err := database.ExecContext(ctx, "DELETE FROM session_kv"); err != nil {
		return fmt.Errorf("clear session table: %w", err)
	}
	return nil
}
