package data

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/data/sqlite"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/semantics"
)

func TestNewDefaultsToMemory(t *testing.T) {
	d, cleanup, err := New(context.Background(), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cleanup()

	if _, ok := d.Jobs.(*job.MemoryStore); !ok {
		t.Errorf("Jobs = %T, want *job.MemoryStore", d.Jobs)
	}
	if _, ok := d.Indexes.(*semantics.MemoryIndexStore); !ok {
		t.Errorf("Indexes = %T, want *semantics.MemoryIndexStore", d.Indexes)
	}
	if got := d.Health(context.Background())["status"]; got != "healthy" {
		t.Errorf("Health status = %v", got)
	}
}

func TestNewSQLite(t *testing.T) {
	cfg := &config.Data{
		Store:  config.StoreSQLite,
		Index:  config.StoreMemory,
		SQLite: &config.SQLite{Source: "file:" + filepath.Join(t.TempDir(), "jobs.db")},
	}
	d, cleanup, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, ok := d.Jobs.(*sqlite.Store); !ok {
		t.Fatalf("Jobs = %T, want *sqlite.Store", d.Jobs)
	}
	if _, err := d.Jobs.Create(context.Background(), "j1", job.KindAsk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	services := d.Health(context.Background())["services"].(map[string]any)
	if services["sqlite"] != "ok" {
		t.Errorf("sqlite health = %v", services["sqlite"])
	}

	cleanup()
	if errs := d.Close(); errs != nil {
		t.Errorf("second Close() = %v", errs)
	}
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	for _, cfg := range []*config.Data{
		{Store: "cassandra"},
		{Store: config.StoreMemory, Index: "elastic"},
	} {
		if _, _, err := New(context.Background(), cfg); err == nil {
			t.Errorf("New(%+v) succeeded", cfg)
		}
	}
}
