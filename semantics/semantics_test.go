package semantics

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/ncobase/askflow/job"
)

func loadBookMDL(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile("testdata/book_2_mdl.json")
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	return string(raw)
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest(loadBookMDL(t))
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	if len(m.Models) != 2 || len(m.Relationships) != 1 {
		t.Fatalf("got %d models, %d relationships", len(m.Models), len(m.Relationships))
	}
	if got := m.TableName(m.Models[0]); got != `"wrenai"."book_2"."book"` {
		t.Errorf("TableName = %s", got)
	}
}

func TestParseManifestRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "  "},
		{"not json", "{models"},
		{"no models", `{"models": []}`},
		{"unnamed model", `{"models": [{"columns": []}]}`},
		{"duplicate model", `{"models": [{"name": "a"}, {"name": "a"}]}`},
		{"unnamed column", `{"models": [{"name": "a", "columns": [{"type": "INT"}]}]}`},
		{"relationship arity", `{"models": [{"name": "a"}], "relationships": [{"name": "r", "models": ["a"]}]}`},
		{"relationship unknown model", `{"models": [{"name": "a"}], "relationships": [{"name": "r", "models": ["a", "b"]}]}`},
		{"metric unknown base", `{"models": [{"name": "a"}], "metrics": [{"name": "m", "baseObject": "b"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(tt.raw)
			if !errors.Is(err, ErrInvalidManifest) {
				t.Fatalf("err = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"How many books are there?", []string{"many", "books", "book"}},
		{"Publication_Date", []string{"publication", "date"}},
		{"bookTitle", []string{"book", "title"}},
		{"categories", []string{"categories", "category"}},
		{"class", []string{"class"}},
	}
	for _, tt := range tests {
		if got := Tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestBuildIndex(t *testing.T) {
	m, err := ParseManifest(loadBookMDL(t))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := BuildIndex(context.Background(), "prep-1", m)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	want := Summary{Models: 2, Columns: 9, Relationships: 1}
	if got := idx.Summary(); got != want {
		t.Errorf("Summary = %+v, want %+v", got, want)
	}

	book := idx.Documents[0]
	if book.Name != "book" || book.Kind != DocModel {
		t.Fatalf("first document = %+v", book)
	}
	for _, term := range []string{"book", "writer", "title"} {
		if !contains(book.Terms, term) {
			t.Errorf("book terms %v missing %q", book.Terms, term)
		}
	}
	if contains(book.Columns, "publications") {
		t.Errorf("relationship column indexed as a value column")
	}
}

func TestBuildIndexCancelled(t *testing.T) {
	m, err := ParseManifest(loadBookMDL(t))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := BuildIndex(ctx, "prep-1", m); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestValidatePreparation(t *testing.T) {
	if err := ValidatePreparation(PreparationInput{ID: "p", MDL: loadBookMDL(t)}); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}
	tests := []struct {
		in     any
		prefix string
	}{
		{PreparationInput{ID: "p", MDL: "nope"}, "mdl invalid: "},
		{PreparationInput{MDL: loadBookMDL(t)}, "id required"},
		{"raw string", "unexpected preparation input"},
	}
	for _, tt := range tests {
		err := ValidatePreparation(tt.in)
		if !errors.Is(err, job.ErrInvalidRequest) {
			t.Errorf("ValidatePreparation(%v) = %v, want ErrInvalidRequest", tt.in, err)
			continue
		}
		if !strings.HasPrefix(err.Error(), tt.prefix) {
			t.Errorf("ValidatePreparation(%v) detail = %q, want prefix %q", tt.in, err.Error(), tt.prefix)
		}
	}
}

func TestPreparerRun(t *testing.T) {
	store := NewMemoryIndexStore()
	p := NewPreparer(store, nil)

	out, err := p.Run(context.Background(), PreparationInput{ID: "prep-1", MDL: loadBookMDL(t)}, func() bool { return false })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s, ok := out.(Summary); !ok || s.Models != 2 {
		t.Fatalf("result = %#v", out)
	}

	idx, err := store.Load(context.Background(), "prep-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Schema != "book_2" {
		t.Errorf("schema = %q", idx.Schema)
	}
}

// cancellingStore cancels the run context once a save has landed, the way a
// deadline firing mid-save would.
type cancellingStore struct {
	*MemoryIndexStore
	cancel context.CancelFunc
}

func (s *cancellingStore) Save(ctx context.Context, idx *Index) error {
	err := s.MemoryIndexStore.Save(ctx, idx)
	s.cancel()
	return err
}

func TestPreparerLeavesNoIndexAfterDeadline(t *testing.T) {
	t.Run("expired before save", func(t *testing.T) {
		store := NewMemoryIndexStore()
		p := NewPreparer(store, nil)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// the probe runs after the build, so cancelling there expires the run before the save
		probe := func() bool { cancel(); return false }
		if _, err := p.Run(ctx, PreparationInput{ID: "prep-1", MDL: loadBookMDL(t)}, probe); !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
		if _, err := store.Load(context.Background(), "prep-1"); !IsNotReady(err) {
			t.Errorf("Load() error = %v, want not ready", err)
		}
	})

	t.Run("expired during save", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := &cancellingStore{MemoryIndexStore: NewMemoryIndexStore(), cancel: cancel}
		p := NewPreparer(store, nil)

		if _, err := p.Run(ctx, PreparationInput{ID: "prep-1", MDL: loadBookMDL(t)}, nil); !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() error = %v, want context.Canceled", err)
		}
		if _, err := store.Load(context.Background(), "prep-1"); !IsNotReady(err) {
			t.Errorf("Load() error = %v, want the saved index discarded", err)
		}
	})
}

func TestPreparerRunParseFailure(t *testing.T) {
	p := NewPreparer(NewMemoryIndexStore(), nil)
	_, err := p.Run(context.Background(), PreparationInput{ID: "x", MDL: "{"}, nil)
	f := job.AsFailure(err)
	if f.Code != job.CodeMDLParseError {
		t.Fatalf("failure code = %s, want %s", f.Code, job.CodeMDLParseError)
	}
}

func TestMemoryIndexStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryIndexStore()
	if _, err := s.Load(ctx, "missing"); !IsNotReady(err) {
		t.Fatalf("Load missing = %v", err)
	}
	if err := s.Save(ctx, &Index{}); err == nil {
		t.Fatal("Save without id succeeded")
	}
	if err := s.Save(ctx, &Index{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, "a"); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("Load after delete = %v", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
