package ask

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ncobase/askflow/config"
	"github.com/ncobase/askflow/semantics"
	"github.com/sony/gobreaker"
)

func bookRequest() Request {
	return Request{
		Query: "How many books are there?",
		Matches: []Match{{Document: semantics.Document{
			Kind:    semantics.DocModel,
			Name:    "book",
			Columns: []string{"Book_ID", "Title"},
		}}},
		Limit: 2,
	}
}

func TestHTTPGenerator(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		content := `{"results": [{"sql": "SELECT COUNT(*) FROM \"book\"", "summary": "Number of books"}, {"sql": "", "summary": "skipped"}]}`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	defer srv.Close()

	g, err := NewHTTPGenerator(&config.Generator{Endpoint: srv.URL + "/v1/", APIKey: "secret", Model: "test-model", Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	cands, err := g.Generate(context.Background(), bookRequest())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(cands) != 1 || cands[0].SQL != `SELECT COUNT(*) FROM "book"` {
		t.Errorf("candidates = %+v", cands)
	}
	if got.Model != "test-model" || len(got.Messages) != 2 {
		t.Fatalf("request = %+v", got)
	}
	if !strings.Contains(got.Messages[1].Content, `model "book"(Book_ID, Title)`) {
		t.Errorf("prompt missing schema: %s", got.Messages[1].Content)
	}
}

func TestHTTPGeneratorBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g, err := NewHTTPGenerator(&config.Generator{Endpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := g.Generate(context.Background(), bookRequest()); err == nil {
			t.Fatal("Generate() succeeded against a failing endpoint")
		}
	}
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %s, want open", g.State())
	}

	_, err = g.Generate(context.Background(), bookRequest())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if hits.Load() != 3 {
		t.Errorf("endpoint hit %d times, want 3", hits.Load())
	}
}

func TestParseCandidates(t *testing.T) {
	cands, err := parseCandidates("```json\n{\"results\": [{\"sql\": \"SELECT 1\", \"summary\": \"one\"}]}\n```")
	if err != nil || len(cands) != 1 {
		t.Fatalf("parseCandidates() = %v, %v", cands, err)
	}
	for _, content := range []string{"not json", `{"results": []}`, `{"results": [{"sql": " "}]}`} {
		if _, err := parseCandidates(content); err == nil {
			t.Errorf("parseCandidates(%q) succeeded", content)
		}
	}
}
