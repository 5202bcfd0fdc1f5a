package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ledgerbook/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	got, err := FromAppConfig(&config.Config{DataBackend: "mongo", MongoURI: "mongodb://db", MongoDB: "ledger"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != MongoBackend || got.MongoURI != "mongodb://db" || got.MongoDB != "ledger" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"mongo missing db", Config{Type: MongoBackend, MongoURI: "mongodb://x"}, true},
		{"mongo missing uri", Config{Type: MongoBackend, MongoDB: "x"}, true},
		{"unknown", Config{Type: "redis"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactory_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if err := res.Ledger.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := res.Archive.Get(ctx, "k"); ok {
		t.Error("ledger and archive must be separate namespaces")
	}
	if err := res.Pinger.Ping(ctx); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestFactory_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}

	if err := res.Archive.Set(ctx, "archive:alice:month:2025-01", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := res.Ledger.Get(ctx, "archive:alice:month:2025-01"); ok || err != nil {
		t.Errorf("ledger Get() = %v, %v", ok, err)
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestBackendResult_CloseNil(t *testing.T) {
	var res *BackendResult
	if err := res.Close(); err != nil {
		t.Error(err)
	}
	boom := errors.New("boom")
	res = &BackendResult{Cleanup: func() error { return boom }}
	if err := res.Close(); !errors.Is(err, boom) {
		t.Errorf("Close() = %v", err)
	}
}
