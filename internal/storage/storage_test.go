package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "artifacts"))
	if err != nil {
		t.Fatalf("NewLocalStorage() error: %v", err)
	}

	key := ResultKey("job-1", ".md")
	if err := Put(ctx, s, key, []byte("# Processo"), "text/markdown"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	ok, err := s.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v", ok, err)
	}
	got, err := Get(ctx, s, key)
	if err != nil || string(got) != "# Processo" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("deleting a missing key must succeed: %v", err)
	}
	if _, err := Get(ctx, s, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete err = %v, want ErrNotFound", err)
	}
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, _ := NewLocalStorage(t.TempDir())
	if err := Put(context.Background(), s, "../outside", []byte("x"), ""); err == nil {
		t.Error("expected error for key escaping the root")
	}
}

func TestLocalStorageLeavesNoTempFiles(t *testing.T) {
	root := t.TempDir()
	s, _ := NewLocalStorage(root)
	if err := Put(context.Background(), s, "a/b.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "a"))
	if len(entries) != 1 || entries[0].Name() != "b.json" {
		t.Errorf("entries = %v", entries)
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"", StorageTypeLocal},
		{"https://abc.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.us-east-1.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeS3Compatible},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			if got := detectStorageType(tt.endpoint); got != tt.want {
				t.Errorf("detectStorageType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewStorageLocal(t *testing.T) {
	s, err := NewStorage(context.Background(), Config{Type: StorageTypeLocal, LocalDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStorage() error: %v", err)
	}
	if _, ok := s.(*LocalStorage); !ok {
		t.Errorf("got %T, want *LocalStorage", s)
	}
	if _, err := NewStorage(context.Background(), Config{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown type")
	}
	if prefixed("jobs/", "a") != "jobs/a" || prefixed("", "a") != "a" {
		t.Error("prefix join broken")
	}
}
