// Package database persists table documents, their audit trail and user
// accounts. Postgres is the production backend; SQLite serves local runs
// and tests.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jason-s-yu/showtime/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("database: not found")
	// ErrConflict is returned when a unique key is already taken.
	ErrConflict = errors.New("database: conflict")
)

// Writer is the subset of Store the background saver needs.
type Writer interface {
	// SaveTable upserts doc unless a document with an equal or newer version
	// is already stored.
	SaveTable(ctx context.Context, doc models.TableDocument) error
	// AppendActions stores audit records. Records already present are skipped.
	AppendActions(ctx context.Context, recs []models.ActionRecord) error
	DeleteTable(ctx context.Context, tableID string) error
}

// Store is the full persistence surface.
type Store interface {
	Writer
	LoadTable(ctx context.Context, tableID string) (models.TableDocument, error)
	ListTables(ctx context.Context) ([]models.TableDocument, error)
	ListActions(ctx context.Context, tableID string) ([]models.ActionRecord, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	CreateUser(ctx context.Context, u models.User) error
	Close()
}

// Open connects to the backend named by driver ("postgres" or "sqlite") and
// applies the schema.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "postgres", "pg", "pgx":
		return NewPostgresStore(ctx, dsn)
	case "sqlite", "sqlite3":
		return NewSQLiteStore(ctx, dsn)
	}
	return nil, fmt.Errorf("database: unknown driver %q", driver)
}
