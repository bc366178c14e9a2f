package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shashiX07/webhook-service/internal/token"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS endpoints (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint_id TEXT NOT NULL,
		method TEXT NOT NULL,
		headers TEXT,
		body TEXT,
		query TEXT,
		params TEXT,
		timestamp DATETIME NOT NULL,
		ip TEXT,
		FOREIGN KEY(endpoint_id) REFERENCES endpoints(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_requests_endpoint_id ON requests(endpoint_id);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureEndpoint(ctx context.Context, id string) (*Endpoint, bool, error) {
	if id != "" {
		var e Endpoint
		err := s.db.QueryRowContext(ctx, "SELECT id, created_at FROM endpoints WHERE id = ?", id).
			Scan(&e.ID, &e.CreatedAt)
		if err == nil {
			return &e, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, false, err
		}
	}

	e := &Endpoint{ID: token.New(), CreatedAt: time.Now().UTC()}
	// Duplicate generation is a no-op, not an error.
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO endpoints (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
		e.ID, e.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	return e, false, nil
}

func (s *SQLiteStore) EndpointExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM endpoints WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) AppendRequest(ctx context.Context, req *Request) error {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO requests (endpoint_id, method, headers, body, query, params, timestamp, ip)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, req.EndpointID, req.Method, req.Headers, req.Body, req.Query, req.Params, req.Timestamp, req.IP)
	if err != nil {
		return err
	}
	req.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListRequests(ctx context.Context, endpointID string) ([]*Request, error) {
	exists, err := s.EndpointExists(ctx, endpointID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, endpoint_id, method, headers, body, query, params, timestamp, ip
		FROM requests
		WHERE endpoint_id = ?
		ORDER BY timestamp ASC, id ASC
	`, endpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []*Request{}
	for rows.Next() {
		var r Request
		err := rows.Scan(&r.ID, &r.EndpointID, &r.Method, &r.Headers, &r.Body, &r.Query, &r.Params, &r.Timestamp, &r.IP)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, &r)
	}
	return reqs, rows.Err()
}

func (s *SQLiteStore) ClearRequests(ctx context.Context, endpointID string) (int64, error) {
	exists, err := s.EndpointExists(ctx, endpointID)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM requests WHERE endpoint_id = ?", endpointID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) SweepIdle(ctx context.Context, cutoff time.Time) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM endpoints
		WHERE created_at < ?
		AND id NOT IN (SELECT DISTINCT endpoint_id FROM requests WHERE timestamp >= ?)
	`, cutoff, cutoff)
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return ids, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	// Records go first so a failure mid-sweep never leaves orphans.
	if _, err := tx.ExecContext(ctx, "DELETE FROM requests WHERE endpoint_id IN ("+placeholders+")", args...); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM endpoints WHERE id IN ("+placeholders+")", args...); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}
