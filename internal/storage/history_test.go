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
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "hist", "history.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveGetList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	id1, err := s.Save(ctx, Entry{Kind: KindStory, Prompt: "robot", Text: "Once upon a time", CreatedAt: at})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	id2, err := s.Save(ctx, Entry{Kind: KindScript, Prompt: "Once upon a time", Text: "INT. LAB - DAY"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id2 <= id1 {
		t.Fatalf("ids not increasing: %d then %d", id1, id2)
	}
	got, err := s.Get(ctx, id1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != KindStory || got.Prompt != "robot" || got.Text != "Once upon a time" || !got.CreatedAt.Equal(at) {
		t.Fatalf("unexpected entry: %+v", got)
	}
	list, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != id2 || list[1].ID != id1 {
		t.Fatalf("List should be newest first: %+v", list)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveRejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Save(context.Background(), Entry{Kind: "poem", Text: "x"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestPruneKeepsNewest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.KeepLast = 3
	var last int64
	for i := 0; i < 5; i++ {
		id, err := s.Save(ctx, Entry{Kind: KindStory, Text: "t"})
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		last = id
	}
	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 || list[0].ID != last {
		t.Fatalf("expected the 3 newest entries, got %+v", list)
	}
	if n, err := s.Prune(ctx, 0); err != nil || n != 0 {
		t.Fatalf("Prune(0) = %d, %v", n, err)
	}
}

func TestReopenKeepsDataAndMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	ctx := context.Background()
	s, err := Open(ctx, "sqlite", path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	id, err := s.Save(ctx, Entry{Kind: KindScript, Text: "EXT. SEA"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = s.Close()

	s, err = Open(ctx, "sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if e, err := s.Get(ctx, id); err != nil || e.Text != "EXT. SEA" {
		t.Fatalf("after reopen: %+v, %v", e, err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("schema_migrations rows = %d, %v", n, err)
	}
}

func TestRebindAndSplit(t *testing.T) {
	if got := rebind(dialectPostgres, "a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	if got := rebind(dialectSQLite, "a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n\nCREATE INDEX i ON a(x);\n")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %q", stmts)
	}
	if _, err := parseVersion("nope.sql"); err == nil {
		t.Fatalf("expected version parse error")
	}
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GSW_PG_DSN")
	if dsn == "" {
		t.Skip("GSW_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, "pgx", dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	defer s.Close()
	id, err := s.Save(ctx, Entry{Kind: KindStory, Prompt: "pg", Text: "hello"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	e, err := s.Get(ctx, id)
	if err != nil || e.Text != "hello" {
		t.Fatalf("Get: %+v, %v", e, err)
	}
	_, _ = s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
}

var _ rowScanner = (*sql.Row)(nil)
