package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "010_later.sql", "SELECT 10;")
	writeFile(t, dir, "001_core.sql", "SELECT 1;")
	writeFile(t, dir, "002_indexes.sql", "SELECT 2;")
	writeFile(t, dir, "README.md", "not a migration")
	writeFile(t, dir, "notes.sql", "no version prefix")

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations failed: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	wantVersions := []int{1, 2, 10}
	wantNames := []string{"core", "indexes", "later"}
	for i, mig := range migrations {
		if mig.Version != wantVersions[i] {
			t.Errorf("position %d: expected version %d, got %d", i, wantVersions[i], mig.Version)
		}
		if mig.Name != wantNames[i] {
			t.Errorf("position %d: expected name %q, got %q", i, wantNames[i], mig.Name)
		}
	}
	if migrations[0].SQL != "SELECT 1;" {
		t.Errorf("migration content not loaded: %q", migrations[0].SQL)
	}
}

func TestLoadMigrationsMissingDir(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "absent"))
	if _, err := m.LoadMigrations(); err == nil {
		t.Error("expected error for missing directory")
	}
}
