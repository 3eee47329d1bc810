package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteSlot struct {
	db *sql.DB
}

func NewSQLiteSlot(dataSourceName string) (*SQLiteSlot, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteSlot{db: db}
	if err = s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}

func (s *SQLiteSlot) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS slots (
        key TEXT PRIMARY KEY,
        payload BLOB NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteSlot) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM slots WHERE key = ?", key).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("failed to query slot %s: %w", key, err)
	}
	return payload, nil
}

func (s *SQLiteSlot) Put(ctx context.Context, key string, payload []byte) error {
	stmt, err := s.db.PrepareContext(ctx, `
        INSERT INTO slots (key, payload, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare slot upsert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.ExecContext(ctx, key, payload, time.Now()); err != nil {
		return fmt.Errorf("failed to execute slot upsert: %w", err)
	}
	return nil
}
