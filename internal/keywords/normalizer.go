// Package keywords cleans raw keyword and title strings and collapses
// semantically redundant keywords against a synonym taxonomy.
package keywords

import "strings"

// MaxKeywords is the keyword budget of a single microstock submission.
const MaxKeywords = 50

// Normalizer deduplicates keyword lists against an injected Taxonomy.
// It holds no per-call state and is safe for concurrent use.
type Normalizer struct {
	taxonomy *Taxonomy
	max      int
}

// NewNormalizer creates a Normalizer for the given taxonomy.
// A nil taxonomy disables synonym grouping.
func NewNormalizer(t *Taxonomy) *Normalizer {
	if t == nil {
		t = NewTaxonomy(nil)
	}
	return &Normalizer{taxonomy: t, max: MaxKeywords}
}

// Taxonomy returns the taxonomy in use.
func (n *Normalizer) Taxonomy() *Taxonomy {
	return n.taxonomy
}

// Normalize cleans raw tokens and deduplicates them.
func (n *Normalizer) Normalize(raw []string) []string {
	return n.Dedupe(CleanKeywords(raw))
}

// Dedupe collapses near-duplicate keywords in a single greedy, order-preserving
// pass. A keyword is dropped when it falls into a synonym group already taken
// by an earlier keyword, or when it equals, contains, is contained by, or is a
// trailing-"s" variant of a keyword already kept. The result holds at most
// MaxKeywords entries.
//
// Order matters: the first keyword to land in a group blocks every later
// keyword of that group, and groups matched by a rejected keyword stay taken.
func (n *Normalizer) Dedupe(raw []string) []string {
	out := make([]string, 0, min(len(raw), n.max))
	kept := make([]string, 0, len(raw))
	used := make(map[int]bool)

	for _, kw := range raw {
		lower := strings.ToLower(kw)
		if strings.TrimSpace(lower) == "" {
			continue
		}

		unique := true
		for i := 0; i < n.taxonomy.Len(); i++ {
			if !n.taxonomy.matches(i, lower) {
				continue
			}
			if used[i] {
				unique = false
				break
			}
			used[i] = true
		}
		if !unique || overlapsAny(lower, kept) {
			continue
		}

		out = append(out, kw)
		kept = append(kept, lower)
	}

	if len(out) > n.max {
		out = out[:n.max]
	}
	return out
}

// overlapsAny reports whether lower collides with any kept keyword.
func overlapsAny(lower string, kept []string) bool {
	for _, k := range kept {
		if k == lower ||
			strings.Contains(k, lower) ||
			strings.Contains(lower, k) ||
			k+"s" == lower ||
			lower+"s" == k {
			return true
		}
	}
	return false
}
