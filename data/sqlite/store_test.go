package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/job/jobtest"
)

func newTestStore(t *testing.T) job.Store {
	t.Helper()
	ctx := context.Background()
	src := fmt.Sprintf("file:%s?_busy_timeout=5000", filepath.Join(t.TempDir(), "jobs.db"))
	db, err := Open(ctx, &config.SQLite{Source: src})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s, err := NewStore(ctx, db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	jobtest.RunStoreTests(t, newTestStore)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	src := fmt.Sprintf("file:%s", filepath.Join(t.TempDir(), "jobs.db"))

	db, err := Open(ctx, &config.SQLite{Source: src})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	s, _ := NewStore(ctx, db)
	if _, err := s.Create(ctx, "persist", job.KindAsk); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_ = s.Close()

	db, err = Open(ctx, &config.SQLite{Source: src})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	s, _ = NewStore(ctx, db)
	defer s.Close()

	rec, err := s.Get(ctx, "persist")
	if err != nil || rec.State != job.StatePending {
		t.Fatalf("Get() after reopen = %+v, %v", rec, err)
	}
}

func TestOpenRejectsEmptySource(t *testing.T) {
	if _, err := Open(context.Background(), &config.SQLite{}); err == nil {
		t.Fatal("expected error for empty source")
	}
}
