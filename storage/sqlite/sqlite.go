/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sqlite is a token store backed by a SQLite metadata table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Comcast/conduit/storage"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`

var NotOpen = errors.New("storage not open")

type Storage struct {
	dsn string
	db  *sql.DB
}

// NewStorage makes a Storage for the given database file.  Use
// ":memory:" for a throwaway database.
func NewStorage(dsn string) (*Storage, error) {
	if dsn == "" {
		return nil, errors.New("no dsn")
	}
	return &Storage{
		dsn: dsn,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.dsn, err)
	}
	// A ":memory:" database exists per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) GetToken(ctx context.Context) (string, error) {
	if s.db == nil {
		return "", NotOpen
	}
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, storage.TokenKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata[%s]: %w", storage.TokenKey, err)
	}
	return string(value), nil
}

func (s *Storage) SetToken(ctx context.Context, token string) error {
	if s.db == nil {
		return NotOpen
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, storage.TokenKey, []byte(token))
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", storage.TokenKey, err)
	}
	return nil
}

func (s *Storage) ClearToken(ctx context.Context) error {
	if s.db == nil {
		return NotOpen
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, storage.TokenKey)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", storage.TokenKey, err)
	}
	return nil
}
