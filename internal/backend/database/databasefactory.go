package database

import (
	"context"
	"fmt"
	"log/slog"
)

// NewDatabase opens the configured backend. Sqlite databases are migrated on open
// since an in-memory database starts empty; postgres schemas are owned by the
// migrate command.
func NewDatabase(ctx context.Context, databaseType, connectionString string, maxOpenConns int) (DatabaseService, error) {
	var database *SQLDatabase
	var err error

	switch databaseType {
	case DialectSQLite:
		database, err = NewSQLiteDatabase(connectionString)
		if err != nil {
			return nil, err
		}
		slog.Info("initializing database schema (ensuring tables exist)", "type", databaseType)
		if err := database.Migrate(ctx); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	case DialectPostgres:
		database, err = NewPostgresDatabase(connectionString, maxOpenConns)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}

	return database, nil
}
