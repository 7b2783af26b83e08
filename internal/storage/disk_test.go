package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "model.json")
	db := filepath.Join(dir, "intentbot.db")
	mustWrite(t, snap, "hello")
	mustWrite(t, db, "abc")
	mustWrite(t, db+"-wal", "de")

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{snap}, 5},
		{"database with sidecars", []string{db}, 5},
		{"snapshot and database", []string{snap, db}, 10},
		{"missing skipped", []string{snap, filepath.Join(dir, "nonexistent.json")}, 5},
		{"empty path skipped", []string{"", snap}, 5},
		{"duplicates counted once", []string{snap, snap}, 5},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes(%v) = %d, want %d", tt.paths, got, tt.want)
			}
		})
	}
}

func TestDiskUsageBytes_RejectsDirectory(t *testing.T) {
	if _, err := DiskUsageBytes(t.TempDir()); !errors.Is(err, os.ErrInvalid) {
		t.Errorf("got %v, want os.ErrInvalid", err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
