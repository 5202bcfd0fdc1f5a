package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Ledger()

	if _, ok, err := s.Get(ctx, "transactions:u:2025-01"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := s.Set(ctx, "transactions:u:2025-01", []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "transactions:u:2025-01", []byte(`[1,2]`)); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Get(ctx, "transactions:u:2025-01")
	if err != nil || !ok || string(v) != `[1,2]` {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	if err := s.Delete(ctx, "transactions:u:2025-01"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "transactions:u:2025-01"); ok {
		t.Fatal("key still present after delete")
	}
}

func TestStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	if err := db.Ledger().Set(ctx, "k", []byte("ledger")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := db.Archive().Get(ctx, "k"); ok {
		t.Fatal("archive namespace sees ledger key")
	}
}

func TestStore_ListKeysWithPrefix(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t).Archive()

	for _, k := range []string{
		"daily-archive:u:2025-01-31",
		"daily-archive:u:2025-01-01",
		"daily-archive:u:2025-02-01",
		"daily-archive:u2:2025-01-05",
		"monthly-report:u:2025-01",
	} {
		if err := s.Set(ctx, k, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListKeysWithPrefix(ctx, "daily-archive:u:2025-01-")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"daily-archive:u:2025-01-01", "daily-archive:u:2025-01-31"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	all, err := s.ListKeysWithPrefix(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Fatalf("empty prefix returned %d keys", len(all))
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Archive().Set(ctx, "monthly-archive:u:2025-01", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	if _, ok, err := db.Archive().Get(ctx, "monthly-archive:u:2025-01"); err != nil || !ok {
		t.Fatalf("Get after reopen = %v, %v", ok, err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abc", "abd"},
		{"daily-archive:u:2025-01-", "daily-archive:u:2025-01."},
		{"a\xff", "b"},
		{"\xff\xff", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := prefixUpperBound(tt.in); got != tt.want {
			t.Errorf("prefixUpperBound(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
