package ask

import (
	"context"
	"fmt"
	"strings"

	"github.com/ncobase/askflow/semantics"
)

// Candidate is one generated answer.
type Candidate struct {
	SQL     string `json:"sql"`
	Summary string `json:"summary"`
}

// Request carries everything a generator may use.
type Request struct {
	Query     string
	Tokens    []string
	Catalog   string
	Schema    string
	Matches   []Match
	Relations []semantics.Document
	Limit     int
}

// Generator turns a question and its retrieved context into SQL candidates.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]Candidate, error)
}

type aggregate struct {
	fn    string
	verb  string
	words []string
}

var aggregates = []aggregate{
	{"AVG", "Average", []string{"average", "avg", "mean"}},
	{"SUM", "Total", []string{"total", "sum"}},
	{"MAX", "Highest", []string{"max", "maximum", "highest", "largest", "most"}},
	{"MIN", "Lowest", []string{"min", "minimum", "lowest", "smallest", "least"}},
}

// RuleGenerator writes SQL from keyword rules. It is deterministic and
// needs no external service.
type RuleGenerator struct{}

// NewRuleGenerator creates a RuleGenerator.
func NewRuleGenerator() *RuleGenerator { return &RuleGenerator{} }

// Generate emits one candidate per match.
func (g *RuleGenerator) Generate(ctx context.Context, req Request) ([]Candidate, error) {
	query := " " + strings.ToLower(req.Query) + " "
	words := make(map[string]bool, len(req.Tokens))
	for _, t := range strings.Fields(strings.ToLower(req.Query)) {
		words[strings.Trim(t, "?!.,;:")] = true
	}

	var out []Candidate
	for _, m := range req.Matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.Limit > 0 && len(out) >= req.Limit {
			break
		}
		out = append(out, g.candidate(query, words, m))
	}
	return out, nil
}

func (g *RuleGenerator) candidate(query string, words map[string]bool, m Match) Candidate {
	doc := m.Document
	table := semantics.QuoteIdent(doc.Name)

	if doc.Kind != semantics.DocModel {
		return Candidate{
			SQL:     fmt.Sprintf("SELECT * FROM %s", table),
			Summary: fmt.Sprintf("All rows of %s %s", doc.Kind, doc.Name),
		}
	}

	if isCount(query) {
		return Candidate{
			SQL:     fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
			Summary: fmt.Sprintf("Number of %s records", doc.Name),
		}
	}

	if len(m.Columns) > 0 {
		for _, agg := range aggregates {
			if hasAny(words, agg.words) {
				col := m.Columns[0]
				return Candidate{
					SQL:     fmt.Sprintf("SELECT %s(%s) FROM %s", agg.fn, semantics.QuoteIdent(col), table),
					Summary: fmt.Sprintf("%s %s of %s", agg.verb, col, doc.Name),
				}
			}
		}
	}

	cols := m.Columns
	if len(cols) == 0 {
		cols = doc.Columns
	}
	if len(cols) == 0 {
		return Candidate{
			SQL:     fmt.Sprintf("SELECT * FROM %s", table),
			Summary: fmt.Sprintf("All %s records", doc.Name),
		}
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = semantics.QuoteIdent(c)
	}
	return Candidate{
		SQL:     fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), table),
		Summary: fmt.Sprintf("%s of each %s record", strings.Join(cols, ", "), doc.Name),
	}
}

func isCount(query string) bool {
	for _, p := range []string{" how many ", " count ", " number of "} {
		if strings.Contains(query, p) {
			return true
		}
	}
	return false
}

func hasAny(words map[string]bool, list []string) bool {
	for _, w := range list {
		if words[w] {
			return true
		}
	}
	return false
}
