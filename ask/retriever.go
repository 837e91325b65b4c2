package ask

import (
	"sort"

	"github.com/ncobase/askflow/semantics"
)

// Match is a document ranked against a query.
type Match struct {
	Document semantics.Document
	Score    int
	// Columns are the document columns the query mentions.
	Columns []string
}

// Retrieve ranks the selectable documents of idx by how many query tokens
// they contain. Tokens naming the document itself count double. Documents
// with no overlap are dropped; at most limit matches are returned.
func Retrieve(idx *semantics.Index, tokens []string, limit int) []Match {
	if idx == nil || len(tokens) == 0 {
		return nil
	}
	query := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		query[t] = true
	}

	var matches []Match
	for _, doc := range idx.Documents {
		if doc.Kind == semantics.DocRelationship {
			continue
		}
		score := 0
		for _, term := range doc.Terms {
			if query[term] {
				score++
			}
		}
		for _, t := range semantics.Tokenize(doc.Name) {
			if query[t] {
				score++
			}
		}
		if score == 0 {
			continue
		}

		m := Match{Document: doc, Score: score}
		for _, col := range doc.Columns {
			for _, t := range semantics.Tokenize(col) {
				if query[t] && !nameTokens(doc.Name)[t] {
					m.Columns = append(m.Columns, col)
					break
				}
			}
		}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Document.Name < matches[j].Document.Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Related returns the relationships of idx touching any matched document.
func Related(idx *semantics.Index, matches []Match) []semantics.Document {
	names := make(map[string]bool, len(matches))
	for _, m := range matches {
		names[m.Document.Name] = true
	}
	var out []semantics.Document
	for _, doc := range idx.Documents {
		if doc.Kind != semantics.DocRelationship {
			continue
		}
		for _, model := range doc.Columns {
			if names[model] {
				out = append(out, doc)
				break
			}
		}
	}
	return out
}

func nameTokens(name string) map[string]bool {
	out := map[string]bool{}
	for _, t := range semantics.Tokenize(name) {
		out[t] = true
	}
	return out
}
