package knowledge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity for a fuzzy recall.
const DefaultCutoff = 0.6

// CloseMatches returns up to n of the possibilities that are most similar to
// word, best first. Similarity is the SequenceMatcher ratio over characters;
// candidates scoring below cutoff are dropped. Equal scores are ordered by
// the larger string first.
func CloseMatches(word string, possibilities []string, n int, cutoff float64) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be > 0: %d", n)
	}
	if cutoff < 0 || cutoff > 1 {
		return nil, fmt.Errorf("cutoff must be in [0.0, 1.0]: %v", cutoff)
	}

	type scored struct {
		key   string
		score float64
	}
	var hits []scored

	m := difflib.NewMatcher(nil, chars(word))
	for _, x := range possibilities {
		m.SetSeq1(chars(x))
		// the cheap upper bounds go first
		if m.RealQuickRatio() >= cutoff && m.QuickRatio() >= cutoff {
			if r := m.Ratio(); r >= cutoff {
				hits = append(hits, scored{key: x, score: r})
			}
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].key > hits[j].key
	})
	if len(hits) > n {
		hits = hits[:n]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.key
	}
	return out, nil
}

func chars(s string) []string {
	return strings.Split(s, "")
}
