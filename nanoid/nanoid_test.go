package nanoid

import (
	"strings"
	"testing"
)

func TestEventID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := EventID()
		rest, ok := strings.CutPrefix(id, eventPrefix)
		if !ok || len(rest) != eventIDSize {
			t.Fatalf("EventID() = %q", id)
		}
		if j := strings.IndexFunc(rest, func(r rune) bool { return !strings.ContainsRune(Alphabet, r) }); j >= 0 {
			t.Fatalf("EventID() = %q has a character outside the alphabet", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
