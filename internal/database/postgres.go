package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/showtime/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tables (
    id         TEXT PRIMARY KEY,
    code       TEXT NOT NULL,
    host_id    TEXT NOT NULL,
    phase      TEXT NOT NULL,
    version    BIGINT NOT NULL,
    state      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS table_actions (
    table_id  TEXT NOT NULL,
    seq       INTEGER NOT NULL,
    player_id TEXT NOT NULL DEFAULT '',
    type      TEXT NOT NULL,
    payload   JSONB,
    ts        BIGINT NOT NULL,
    PRIMARY KEY (table_id, seq)
);

CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    rating        INTEGER NOT NULL DEFAULT 1200,
    is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tables_phase ON tables(phase);
`

// PostgresStore is the pgx-backed Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pool on dsn and applies the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) SaveTable(ctx context.Context, doc models.TableDocument) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tables (id, code, host_id, phase, version, state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			code = EXCLUDED.code,
			host_id = EXCLUDED.host_id,
			phase = EXCLUDED.phase,
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
		WHERE tables.version < EXCLUDED.version`,
		doc.ID, doc.Code, doc.HostID, doc.Phase, doc.Version, []byte(doc.State), doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save table %s: %w", doc.ID, err)
	}
	return nil
}

func (s *PostgresStore) AppendActions(ctx context.Context, recs []models.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range recs {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return fmt.Errorf("encode action %s/%d: %w", r.TableID, r.Seq, err)
		}
		batch.Queue(`
			INSERT INTO table_actions (table_id, seq, player_id, type, payload, ts)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (table_id, seq) DO NOTHING`,
			r.TableID, r.Seq, r.PlayerID, r.Type, payload, r.Timestamp)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("append actions: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTable(ctx context.Context, tableID string) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM table_actions WHERE table_id = $1`, tableID); err != nil {
			return fmt.Errorf("delete actions of %s: %w", tableID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM tables WHERE id = $1`, tableID); err != nil {
			return fmt.Errorf("delete table %s: %w", tableID, err)
		}
		return nil
	})
}

func (s *PostgresStore) LoadTable(ctx context.Context, tableID string) (models.TableDocument, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, code, host_id, phase, version, state, updated_at
		FROM tables WHERE id = $1`, tableID)
	doc, err := scanPgTable(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.TableDocument{}, ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) ListTables(ctx context.Context) ([]models.TableDocument, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, code, host_id, phase, version, state, updated_at
		FROM tables ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []models.TableDocument
	for rows.Next() {
		doc, err := scanPgTable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func scanPgTable(row pgx.Row) (models.TableDocument, error) {
	var doc models.TableDocument
	var state []byte
	if err := row.Scan(&doc.ID, &doc.Code, &doc.HostID, &doc.Phase, &doc.Version, &state, &doc.UpdatedAt); err != nil {
		return doc, err
	}
	doc.State = state
	return doc, nil
}

func (s *PostgresStore) ListActions(ctx context.Context, tableID string) ([]models.ActionRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT table_id, seq, player_id, type, payload, ts
		FROM table_actions WHERE table_id = $1 ORDER BY seq`, tableID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []models.ActionRecord
	for rows.Next() {
		var r models.ActionRecord
		var payload []byte
		if err := rows.Scan(&r.TableID, &r.Seq, &r.PlayerID, &r.Type, &payload, &r.Timestamp); err != nil {
			return nil, err
		}
		if err := decodePayload(payload, &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, rating, is_admin
		FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Rating, &u.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, u models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash, rating, is_admin)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.PasswordHash, u.Rating, u.IsAdmin)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func decodePayload(raw []byte, r *models.ActionRecord) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &r.Payload); err != nil {
		return fmt.Errorf("decode action %s/%d: %w", r.TableID, r.Seq, err)
	}
	return nil
}
