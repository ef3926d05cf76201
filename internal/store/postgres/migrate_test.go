package postgres

import (
	"testing"
	"testing/fstest"

	"vaxbook/migrations"
)

func TestDiscoverMigrations_Embedded(t *testing.T) {
	ms, err := discoverMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("discoverMigrations error: %v", err)
	}
	sorted := ms.Sorted()
	if len(sorted) == 0 {
		t.Fatalf("no embedded migrations")
	}
	first := sorted[0]
	if first.String() != "0001_init" {
		t.Fatalf("first migration = %q, want %q", first.String(), "0001_init")
	}
	if first.Up == nil || first.Down == nil {
		t.Fatalf("migration %s must have up and down files", first)
	}
}

func TestDiscoverMigrations_RejectsUnversionedFile(t *testing.T) {
	fsys := fstest.MapFS{
		"init.up.sql": &fstest.MapFile{Data: []byte("SELECT 1;\n")},
	}
	if _, err := discoverMigrations(fsys); err == nil {
		t.Fatalf("expected error for a file without a version prefix")
	}
}
