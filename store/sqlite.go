package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SqliteStore stores all collections in a single SQLite database.
//
// Tables:
//
//	documents(collection, key, data)  PRIMARY KEY (collection, key)
//	schemas(collection, schema)       PRIMARY KEY (collection)
type SqliteStore struct {
	db *sql.DB
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

var sqliteTables = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key TEXT NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, key)
	)`,
	`CREATE TABLE IF NOT EXISTS schemas (
		collection TEXT PRIMARY KEY,
		schema TEXT NOT NULL
	)`,
}

// NewSqliteStore opens (or creates) the database at dbPath.
//
// SQLite allows one writer at a time, so the pool is pinned to a single
// connection; database/sql then serialises access for us.
func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range append(append([]string{}, sqlitePragmas...), sqliteTables...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initialise database: %w", err)
		}
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SqliteStore) GetAll(ctx context.Context, collection string) (map[string]Doc, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, data FROM documents WHERE collection = ?", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]Doc)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var doc Doc
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
		}
		result[key] = doc
	}
	return result, rows.Err()
}

func (s *SqliteStore) Get(ctx context.Context, collection, key string) (Doc, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc Doc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s/%s: %w", collection, key, err)
	}
	return doc, nil
}

func (s *SqliteStore) Put(ctx context.Context, collection, key string, data Doc) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, key, data) VALUES (?, ?, ?)
		 ON CONFLICT(collection, key) DO UPDATE SET data = excluded.data`,
		collection, key, string(b),
	)
	return err
}

func (s *SqliteStore) Delete(ctx context.Context, collection, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND key = ?",
		collection, key,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SqliteStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT collection FROM documents ORDER BY collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SqliteStore) GetSchema(ctx context.Context, collection string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT schema FROM schemas WHERE collection = ?", collection).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", collection, err)
	}
	return schema, nil
}

func (s *SqliteStore) PutSchema(ctx context.Context, collection string, schema map[string]any) error {
	b, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schemas (collection, schema) VALUES (?, ?)
		 ON CONFLICT(collection) DO UPDATE SET schema = excluded.schema`,
		collection, string(b),
	)
	return err
}

func (s *SqliteStore) DeleteSchema(ctx context.Context, collection string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM schemas WHERE collection = ?", collection)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SqliteStore) ListSchemas(ctx context.Context) (map[string]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT collection, schema FROM schemas")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]map[string]any)
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, err
		}
		var schema map[string]any
		if err := json.Unmarshal([]byte(raw), &schema); err != nil {
			return nil, fmt.Errorf("decode schema %s: %w", name, err)
		}
		result[name] = schema
	}
	return result, rows.Err()
}
