package ask

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/job"
	"github.com/ncobase/askflow/semantics"
)

func bookIndexStore(t *testing.T) *semantics.MemoryIndexStore {
	t.Helper()
	raw, err := os.ReadFile("testdata/book_2_mdl.json")
	if err != nil {
		t.Fatal(err)
	}
	m, err := semantics.ParseManifest(string(raw))
	if err != nil {
		t.Fatal(err)
	}
	idx, err := semantics.BuildIndex(context.Background(), "prep", m)
	if err != nil {
		t.Fatal(err)
	}
	store := semantics.NewMemoryIndexStore()
	if err := store.Save(context.Background(), idx); err != nil {
		t.Fatal(err)
	}
	return store
}

func never() bool { return false }

func TestPipelineAnswers(t *testing.T) {
	tests := []struct {
		query string
		sql   string
	}{
		{"How many books are there?", `SELECT COUNT(*) FROM "book"`},
		{"What is the average price of publications?", `SELECT AVG("Price") FROM "publication"`},
		{"Show the title and writer of books", `SELECT "Title", "Writer" FROM "book"`},
	}
	p := NewPipeline(bookIndexStore(t), NewRuleGenerator(), 3, nil)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			out, err := p.Run(context.Background(), Input{Query: tt.query, ID: "prep"}, never)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			cands := out.([]Candidate)
			if len(cands) == 0 {
				t.Fatal("no candidates")
			}
			if cands[0].SQL != tt.sql {
				t.Errorf("sql = %s, want %s", cands[0].SQL, tt.sql)
			}
			if cands[0].Summary == "" {
				t.Error("empty summary")
			}
		})
	}
}

func TestPipelineFailures(t *testing.T) {
	p := NewPipeline(bookIndexStore(t), NewRuleGenerator(), 3, nil)

	_, err := p.Run(context.Background(), Input{Query: "How many books?", ID: "unknown"}, never)
	if f := job.AsFailure(err); f.Code != job.CodePreparationNotReady {
		t.Errorf("unknown preparation: code = %s", f.Code)
	} else if f.Message != `semantics preparation "unknown" is not ready` {
		t.Errorf("unknown preparation: message = %q", f.Message)
	}

	_, err = p.Run(context.Background(), Input{Query: "weather tomorrow", ID: "prep"}, never)
	if f := job.AsFailure(err); f.Code != job.CodeNoRelevantData {
		t.Errorf("irrelevant query: code = %s", f.Code)
	}
}

type recordMap map[string]*job.Record

func (m recordMap) Get(_ context.Context, id string) (*job.Record, error) {
	rec, ok := m[id]
	if !ok {
		return nil, job.ErrNotFound
	}
	return rec, nil
}

func TestPipelineRequiresFinishedPreparation(t *testing.T) {
	tests := []struct {
		name   string
		record *job.Record
		ready  bool
	}{
		{"finished", &job.Record{ID: "prep", Kind: job.KindPreparation, State: job.StateFinished}, true},
		{"timed out with index left behind", &job.Record{ID: "prep", Kind: job.KindPreparation, State: job.StateFailed}, false},
		{"still indexing", &job.Record{ID: "prep", Kind: job.KindPreparation, State: job.StateIndexing}, false},
		{"not a preparation", &job.Record{ID: "prep", Kind: job.KindAsk, State: job.StateFinished}, false},
		{"unknown", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := recordMap{}
			if tt.record != nil {
				records["prep"] = tt.record
			}
			p := NewPipeline(bookIndexStore(t), NewRuleGenerator(), 3, nil, WithPreparations(records))

			out, err := p.Run(context.Background(), Input{Query: "How many books?", ID: "prep"}, never)
			if tt.ready {
				if err != nil {
					t.Fatalf("Run() error = %v", err)
				}
				if cands, _ := out.([]Candidate); len(cands) == 0 {
					t.Fatalf("Run() = %#v", out)
				}
				return
			}
			if f := job.AsFailure(err); f.Code != job.CodePreparationNotReady {
				t.Fatalf("Run() error = %v, want %s", err, job.CodePreparationNotReady)
			}
		})
	}
}

func TestPipelineStops(t *testing.T) {
	p := NewPipeline(bookIndexStore(t), NewRuleGenerator(), 3, nil)

	for stage := 1; stage <= 3; stage++ {
		calls := 0
		probe := func() bool {
			calls++
			return calls == stage
		}
		_, err := p.Run(context.Background(), Input{Query: "How many books?", ID: "prep"}, probe)
		if !errors.Is(err, job.ErrStopped) {
			t.Errorf("stop at checkpoint %d: err = %v", stage, err)
		}
	}
}

func TestPipelineHonoursContext(t *testing.T) {
	p := NewPipeline(bookIndexStore(t), NewRuleGenerator(), 3, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, Input{Query: "How many books?", ID: "prep"}, never); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		in     any
		detail string
	}{
		{Input{}, "query required"},
		{Input{Query: "   "}, "query empty"},
		{"How many books?", "unexpected ask input string"},
	}
	for _, tt := range tests {
		err := ValidateInput(tt.in)
		if !errors.Is(err, job.ErrInvalidRequest) {
			t.Errorf("ValidateInput(%#v) = %v", tt.in, err)
			continue
		}
		if err.Error() != tt.detail {
			t.Errorf("ValidateInput(%#v) detail = %q, want %q", tt.in, err.Error(), tt.detail)
		}
	}
	if err := ValidateInput(Input{Query: "How many books?"}); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}
}

func TestRetrieveRanksAndLimits(t *testing.T) {
	store := bookIndexStore(t)
	idx, _ := store.Load(context.Background(), "prep")

	matches := Retrieve(idx, semantics.Tokenize("books and their publications"), 1)
	if len(matches) != 1 {
		t.Fatalf("len = %d, want 1", len(matches))
	}
	if Retrieve(idx, nil, 3) != nil {
		t.Error("empty query matched documents")
	}
	rels := Related(idx, matches)
	if len(rels) != 1 || rels[0].Name != "book_publication" {
		t.Errorf("Related() = %+v", rels)
	}
}

func TestNewGenerator(t *testing.T) {
	if g, err := NewGenerator(nil); err != nil || g == nil {
		t.Fatalf("NewGenerator(nil) = %v, %v", g, err)
	}
	if _, err := NewGenerator(&config.Generator{Provider: config.GeneratorHTTP}); err == nil {
		t.Error("http generator without endpoint accepted")
	}
}
