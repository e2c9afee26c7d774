package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/showtime/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tables (
    id         TEXT PRIMARY KEY,
    code       TEXT NOT NULL,
    host_id    TEXT NOT NULL,
    phase      TEXT NOT NULL,
    version    INTEGER NOT NULL,
    state      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS table_actions (
    table_id  TEXT NOT NULL,
    seq       INTEGER NOT NULL,
    player_id TEXT NOT NULL DEFAULT '',
    type      TEXT NOT NULL,
    payload   TEXT,
    ts        INTEGER NOT NULL,
    PRIMARY KEY (table_id, seq)
);

CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    rating        INTEGER NOT NULL DEFAULT 1200,
    is_admin      INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tables_phase ON tables(phase);
`

// SQLiteStore is the modernc.org/sqlite backed Store. Timestamps are stored
// as unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path (":memory:" for a private in-memory database)
// and applies the schema.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() { s.db.Close() }

func (s *SQLiteStore) SaveTable(ctx context.Context, doc models.TableDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tables (id, code, host_id, phase, version, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			code = excluded.code,
			host_id = excluded.host_id,
			phase = excluded.phase,
			version = excluded.version,
			state = excluded.state,
			updated_at = excluded.updated_at
		WHERE tables.version < excluded.version`,
		doc.ID, doc.Code, doc.HostID, doc.Phase, doc.Version, string(doc.State), doc.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save table %s: %w", doc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) AppendActions(ctx context.Context, recs []models.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append actions: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO table_actions (table_id, seq, player_id, type, payload, ts)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (table_id, seq) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("append actions: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return fmt.Errorf("encode action %s/%d: %w", r.TableID, r.Seq, err)
		}
		if _, err := stmt.ExecContext(ctx, r.TableID, r.Seq, r.PlayerID, r.Type, string(payload), r.Timestamp); err != nil {
			return fmt.Errorf("append action %s/%d: %w", r.TableID, r.Seq, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteTable(ctx context.Context, tableID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM table_actions WHERE table_id = ?`, tableID); err != nil {
		return fmt.Errorf("delete actions of %s: %w", tableID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tables WHERE id = ?`, tableID); err != nil {
		return fmt.Errorf("delete table %s: %w", tableID, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadTable(ctx context.Context, tableID string) (models.TableDocument, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, code, host_id, phase, version, state, updated_at
		FROM tables WHERE id = ?`, tableID)
	doc, err := scanSQLiteTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TableDocument{}, ErrNotFound
	}
	return doc, err
}

func (s *SQLiteStore) ListTables(ctx context.Context) ([]models.TableDocument, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, host_id, phase, version, state, updated_at
		FROM tables ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []models.TableDocument
	for rows.Next() {
		doc, err := scanSQLiteTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTable(row scanner) (models.TableDocument, error) {
	var doc models.TableDocument
	var state string
	var updated int64
	if err := row.Scan(&doc.ID, &doc.Code, &doc.HostID, &doc.Phase, &doc.Version, &state, &updated); err != nil {
		return doc, err
	}
	doc.State = json.RawMessage(state)
	doc.UpdatedAt = time.UnixMilli(updated).UTC()
	return doc, nil
}

func (s *SQLiteStore) ListActions(ctx context.Context, tableID string) ([]models.ActionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_id, seq, player_id, type, payload, ts
		FROM table_actions WHERE table_id = ? ORDER BY seq`, tableID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []models.ActionRecord
	for rows.Next() {
		var r models.ActionRecord
		var payload sql.NullString
		if err := rows.Scan(&r.TableID, &r.Seq, &r.PlayerID, &r.Type, &payload, &r.Timestamp); err != nil {
			return nil, err
		}
		if err := decodePayload([]byte(payload.String), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, rating, is_admin
		FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Rating, &u.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, rating, is_admin)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, u.Rating, u.IsAdmin)
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ErrConflict
		}
	}
	return err
}
