package save

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestSQLiteKV_RoundTrip(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, ok=%v", err, ok)
	}
	if string(got) != "v1" {
		t.Errorf("Get() = %q, want %q", got, "v1")
	}

	// Overwrite
	if err := s.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("overwrite Set() failed: %v", err)
	}
	got, _, _ = s.Get(ctx, "k")
	if string(got) != "v2" {
		t.Errorf("after overwrite Get() = %q, want %q", got, "v2")
	}
}

func TestSQLiteKV_GetMissingKey(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if ok {
		t.Error("Get() reported a value for a missing key")
	}
}

func TestSQLiteKV_Delete(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Error("key still present after Delete()")
	}

	// Deleting again is a no-op.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete() failed: %v", err)
	}
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s1.Set(ctx, "k", []byte("durable")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	got, ok, err := s2.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() after reopen = %v, ok=%v", err, ok)
	}
	if string(got) != "durable" {
		t.Errorf("Get() = %q, want %q", got, "durable")
	}
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	value := []byte("original")
	if err := kv.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	// Mutating the caller's slice must not reach the store.
	value[0] = 'X'

	got, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, ok=%v", err, ok)
	}
	if string(got) != "original" {
		t.Errorf("Get() = %q, want %q", got, "original")
	}

	// Mutating the returned slice must not reach the store either.
	got[0] = 'Y'
	again, _, _ := kv.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("store value mutated through returned slice: %q", again)
	}
}
