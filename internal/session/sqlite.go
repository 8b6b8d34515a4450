package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/claimcheck/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	session_id  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	role        TEXT NOT NULL,
	body        TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (session_id, seq),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);
`

// SQLiteStore keeps transcripts durably in a local SQLite database
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
// ttl <= 0 keeps sessions forever.
func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer at a time avoids SQLITE_BUSY under concurrent appends
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &SQLiteStore{db: db, ttl: ttl}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var createdStr, updatedStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM sessions WHERE session_id = ?`, id,
	).Scan(&createdStr, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeError("get", err)
	}

	updated, err := time.Parse(time.RFC3339Nano, updatedStr)
	if err != nil {
		return nil, storeError("get", fmt.Errorf("decode updated_at: %w", err))
	}
	if s.ttl > 0 && time.Since(updated) > s.ttl {
		return nil, ErrNotFound
	}

	sess := &model.Session{ID: id, Turns: []model.Turn{}}
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr); err != nil {
		return nil, storeError("get", fmt.Errorf("decode created_at: %w", err))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM turns WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, storeError("get", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, storeError("get", err)
		}
		var t model.Turn
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, storeError("get", fmt.Errorf("decode turn: %w", err))
		}
		sess.Turns = append(sess.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("get", err)
	}
	return sess, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, turns ...model.Turn) error {
	ts := now()
	tsStr := ts.Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("append", fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	// an expired transcript starts over
	if s.ttl > 0 {
		cutoff := ts.Add(-s.ttl).Format(time.RFC3339Nano)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sessions WHERE session_id = ? AND updated_at < ?`, id, cutoff); err != nil {
			return storeError("append", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, tsStr, tsStr,
	); err != nil {
		return storeError("append", err)
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM turns WHERE session_id = ?`, id,
	).Scan(&next); err != nil {
		return storeError("append", err)
	}

	for i, t := range stamp(turns, ts) {
		body, err := json.Marshal(t)
		if err != nil {
			return storeError("append", fmt.Errorf("encode turn: %w", err))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, role, body, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, next+i, string(t.Role), string(body), t.CreatedAt.Format(time.RFC3339Nano),
		); err != nil {
			return storeError("append", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeError("append", fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
