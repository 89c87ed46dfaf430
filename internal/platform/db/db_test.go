package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write test file %s: %v", name, err)
		}
	}
}

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"002_referrer_columns.sql": "ALTER TABLE questionnaires ADD COLUMN x TEXT;",
		"001_initial.sql":          "CREATE TABLE questionnaires (id UUID PRIMARY KEY);",
		"010_later.sql":            "SELECT 1;",
		"README.md":                "not sql",
		"nonumber_x.sql":           "SELECT 1;",
		"003.sql":                  "SELECT 1;",
	})

	migrations, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	for i, v := range wantVersions {
		if migrations[i].Version != v {
			t.Errorf("migration %d: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
	if migrations[0].Name != "001_initial.sql" {
		t.Errorf("unexpected name %s", migrations[0].Name)
	}
	if migrations[0].SQL != "CREATE TABLE questionnaires (id UUID PRIMARY KEY);" {
		t.Errorf("unexpected SQL content: %s", migrations[0].SQL)
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"001_a.sql":  "SELECT 1;",
		"0001_b.sql": "SELECT 2;",
	})
	if _, err := NewMigrator(nil, dir).LoadMigrations(); err == nil {
		t.Error("expected error for duplicate version")
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	if _, err := NewMigrator(nil, "/nonexistent/path/that/does/not/exist").LoadMigrations(); err == nil {
		t.Error("expected error for non-existent directory")
	}
}

func TestBuildStatus(t *testing.T) {
	migs := []Migration{{Version: 1, Name: "001_initial.sql"}, {Version: 2, Name: "002_referrer_columns.sql"}}
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	st := BuildStatus(migs, map[int]time.Time{1: at})

	if len(st) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(st))
	}
	if !st[0].Applied || st[0].AppliedAt == nil || !st[0].AppliedAt.Equal(at) {
		t.Errorf("expected migration 1 applied at %s, got %+v", at, st[0])
	}
	if st[1].Applied || st[1].AppliedAt != nil {
		t.Errorf("expected migration 2 pending, got %+v", st[1])
	}
}

func TestProjectMigrationsLoad(t *testing.T) {
	migrations, err := NewMigrator(nil, "../../../migrations").LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations() error: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected project migrations")
	}
	if migrations[0].Version != 1 {
		t.Errorf("expected first version 1, got %d", migrations[0].Version)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", pgErr)) {
		t.Error("expected wrapped PgError 23505 to match")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation should not match")
	}
	if !IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "questionnaires_resident_id_key"`)) {
		t.Error("expected message fallback to match")
	}
	if IsUniqueViolation(errors.New("connection refused")) {
		t.Error("unrelated error should not match")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil should not match")
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)) {
		t.Error("expected wrapped ErrNoRows to match")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("unexpected match")
	}
}

func TestRunChecks(t *testing.T) {
	out := runChecks(context.Background(), []Check{
		{Name: "kv", Ping: func(context.Context) error { return nil }},
		{Name: "mail", Ping: func(context.Context) error { return errors.New("down") }},
	})
	if out["kv"] != "ok" {
		t.Errorf("expected kv ok, got %q", out["kv"])
	}
	if out["mail"] != "down" {
		t.Errorf("expected mail down, got %q", out["mail"])
	}
}
