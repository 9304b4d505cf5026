/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	// pgx database/sql driver, registered as "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"

	applog "goscriptwriter/internal/log"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("history entry not found")

// Kind distinguishes generated stories from scripts.
type Kind string

const (
	KindStory  Kind = "story"
	KindScript Kind = "script"
)

// Entry is one generated text.
type Entry struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Kind      Kind      `json:"kind"`
	Prompt    string    `json:"prompt"`
	Text      string    `json:"text"`
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// Store is a history store backed by database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	// KeepLast prunes older entries after each Save when > 0.
	KeepLast int
}

// Open opens (and migrates) a history store. driver is "sqlite" or "pgx";
// for sqlite the dsn may be a plain file path.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("driver", driver))
	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "":
		d = dialectSQLite
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("sqlite dsn is required")
		}
		if !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
			dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(dsn))
		}
		if db, err = sql.Open("sqlite", dsn); err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// Set reasonable connection pool limits for embedded usage.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	case "pgx", "postgres", "postgresql":
		d = dialectPostgres
		if db, err = sql.Open("pgx", dsn); err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		l.Error("ping failed", slog.Any("err", err))
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if d == dialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			l.Warn("enable WAL failed", slog.Any("err", err))
		}
	}
	if err := applyMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info("history store ready")
	return &Store{db: db, dialect: d}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts an entry and returns its id. CreatedAt defaults to now.
func (s *Store) Save(ctx context.Context, e Entry) (int64, error) {
	if e.Kind != KindStory && e.Kind != KindScript {
		return 0, fmt.Errorf("invalid entry kind %q", e.Kind)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		s.q(`INSERT INTO entries(created_at, kind, prompt, text) VALUES(?, ?, ?, ?) RETURNING id`),
		e.CreatedAt.UnixMilli(), string(e.Kind), e.Prompt, e.Text,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	if s.KeepLast > 0 {
		if _, err := s.Prune(ctx, s.KeepLast); err != nil {
			applog.WithOperation(applog.WithComponent("storage"), "save").Warn("prune failed", slog.Any("err", err))
		}
	}
	return id, nil
}

// Get returns one entry by id.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, created_at, kind, prompt, text FROM entries WHERE id = ?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return e, err
}

// List returns up to limit entries, newest first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, created_at, kind, prompt, text FROM entries ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes everything but the newest keepLast entries and returns the number removed.
func (s *Store) Prune(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		s.q(`DELETE FROM entries WHERE id NOT IN (SELECT id FROM entries ORDER BY id DESC LIMIT ?)`), keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var (
		e    Entry
		ms   int64
		kind string
	)
	if err := r.Scan(&e.ID, &ms, &kind, &e.Prompt, &e.Text); err != nil {
		return Entry{}, err
	}
	e.CreatedAt = time.UnixMilli(ms).UTC()
	e.Kind = Kind(kind)
	return e, nil
}

func (s *Store) q(query string) string { return rebind(s.dialect, query) }

// rebind rewrites '?' placeholders to PostgreSQL's $n form.
func rebind(d dialect, query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nowMillis() int64 { return time.Now().UnixMilli() }
