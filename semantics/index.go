package semantics

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Document kinds
const (
	DocModel        = "model"
	DocRelationship = "relationship"
	DocMetric       = "metric"
	DocView         = "view"
)

// Document is one searchable unit of the index.
type Document struct {
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Source      string   `json:"source,omitempty"`
	Columns     []string `json:"columns,omitempty"`
	Description string   `json:"description,omitempty"`
	Terms       []string `json:"terms"`
}

// Index is the retrieval structure built by a preparation.
type Index struct {
	ID        string     `json:"id"`
	Catalog   string     `json:"catalog"`
	Schema    string     `json:"schema"`
	Documents []Document `json:"documents"`
	BuiltAt   time.Time  `json:"built_at"`
}

// Summary counts what an index holds.
type Summary struct {
	Models        int `json:"models"`
	Columns       int `json:"columns"`
	Relationships int `json:"relationships"`
	Metrics       int `json:"metrics"`
	Views         int `json:"views"`
}

// Summary counts the indexed documents.
func (idx *Index) Summary() Summary {
	var s Summary
	for _, d := range idx.Documents {
		switch d.Kind {
		case DocModel:
			s.Models++
			s.Columns += len(d.Columns)
		case DocRelationship:
			s.Relationships++
		case DocMetric:
			s.Metrics++
		case DocView:
			s.Views++
		}
	}
	return s
}

// BuildIndex turns a manifest into an index. It stops early when ctx ends.
func BuildIndex(ctx context.Context, id string, m *Manifest) (*Index, error) {
	idx := &Index{ID: id, Catalog: m.Catalog, Schema: m.Schema}

	for _, model := range m.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := Document{
			Kind:        DocModel,
			Name:        model.Name,
			Source:      m.TableName(model),
			Description: model.Properties["description"],
		}
		terms := append(Tokenize(model.Name), Tokenize(doc.Description)...)
		for _, col := range model.Columns {
			if col.Relationship != "" {
				// relationship columns are navigations, not selectable values
				continue
			}
			doc.Columns = append(doc.Columns, col.Name)
			terms = append(terms, Tokenize(col.Name)...)
			terms = append(terms, Tokenize(col.Properties["description"])...)
		}
		doc.Terms = dedupe(terms)
		idx.Documents = append(idx.Documents, doc)
	}

	for _, rel := range m.Relationships {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		terms := Tokenize(rel.Name)
		for _, name := range rel.Models {
			terms = append(terms, Tokenize(name)...)
		}
		idx.Documents = append(idx.Documents, Document{
			Kind:        DocRelationship,
			Name:        rel.Name,
			Source:      rel.Condition,
			Columns:     rel.Models,
			Description: rel.JoinType,
			Terms:       dedupe(terms),
		})
	}

	for _, metric := range m.Metrics {
		terms := append(Tokenize(metric.Name), Tokenize(metric.BaseObject)...)
		var cols []string
		for _, c := range append(metric.Dimension, metric.Measure...) {
			cols = append(cols, c.Name)
			terms = append(terms, Tokenize(c.Name)...)
		}
		idx.Documents = append(idx.Documents, Document{
			Kind:        DocMetric,
			Name:        metric.Name,
			Source:      metric.BaseObject,
			Columns:     cols,
			Description: metric.Properties["description"],
			Terms:       dedupe(terms),
		})
	}

	for _, view := range m.Views {
		idx.Documents = append(idx.Documents, Document{
			Kind:        DocView,
			Name:        view.Name,
			Source:      view.Statement,
			Description: view.Properties["description"],
			Terms:       dedupe(append(Tokenize(view.Name), Tokenize(view.Properties["description"])...)),
		})
	}

	idx.BuiltAt = time.Now().UTC()
	return idx, nil
}

// Tokenize lowercases s and splits it on non-alphanumerics and camel case
// boundaries. Plural words also yield their singular form.
func Tokenize(s string) []string {
	var (
		tokens []string
		cur    []rune
		prev   rune
	)
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				flush()
			}
			cur = append(cur, r)
		default:
			flush()
		}
		prev = r
	}
	flush()

	out := tokens[:0:0]
	for _, t := range tokens {
		if stopWords[t] {
			continue
		}
		out = append(out, t)
		if singular := singularize(t); singular != t {
			out = append(out, singular)
		}
	}
	return out
}

func singularize(t string) string {
	switch {
	case len(t) > 4 && strings.HasSuffix(t, "ies"):
		return t[:len(t)-3] + "y"
	case len(t) > 3 && strings.HasSuffix(t, "s") && !strings.HasSuffix(t, "ss"):
		return t[:len(t)-1]
	default:
		return t
	}
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "is": true, "are": true,
	"there": true, "what": true, "which": true, "how": true, "in": true,
	"on": true, "for": true, "to": true, "and": true, "or": true, "by": true,
	"me": true, "show": true, "list": true, "all": true, "do": true, "does": true,
}

func dedupe(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
