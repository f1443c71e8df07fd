package keywords

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestNormalizer_Dedupe(t *testing.T) {
	n := NewNormalizer(DefaultTaxonomy())

	t.Run("empty input", func(t *testing.T) {
		if got := n.Dedupe(nil); len(got) != 0 {
			t.Errorf("Dedupe(nil) = %v, want empty", got)
		}
	})

	t.Run("first synonym wins", func(t *testing.T) {
		got := n.Dedupe([]string{"chat bubble", "conversation piece", "metal"})
		want := []string{"chat bubble", "metal"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Dedupe() = %v, want %v", got, want)
		}
	})

	t.Run("plural collapses", func(t *testing.T) {
		got := n.Dedupe([]string{"dog", "dogs"})
		if !reflect.DeepEqual(got, []string{"dog"}) {
			t.Errorf("Dedupe() = %v, want [dog]", got)
		}
	})

	t.Run("case insensitive duplicates", func(t *testing.T) {
		got := n.Dedupe([]string{"Mountain", "mountain", "MOUNTAIN"})
		if !reflect.DeepEqual(got, []string{"Mountain"}) {
			t.Errorf("Dedupe() = %v, want [Mountain]", got)
		}
	})

	t.Run("substring rejected both ways", func(t *testing.T) {
		got := n.Dedupe([]string{"sun", "sunflower", "flower", "wild"})
		// "sunflower" contains "sun"; "flower" is inside nothing kept.
		want := []string{"sun", "flower", "wild"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Dedupe() = %v, want %v", got, want)
		}
	})

	t.Run("rejected keyword still takes its groups", func(t *testing.T) {
		// "vector poster" hits vector and banner groups but is dropped as a
		// superstring of "vector"; the banner group stays taken.
		got := n.Dedupe([]string{"vector", "vector poster", "billboard"})
		if !reflect.DeepEqual(got, []string{"vector"}) {
			t.Errorf("Dedupe() = %v, want [vector]", got)
		}
	})

	t.Run("original casing preserved", func(t *testing.T) {
		got := n.Dedupe([]string{"Eiffel Tower", "Paris"})
		if !reflect.DeepEqual(got, []string{"Eiffel Tower", "Paris"}) {
			t.Errorf("Dedupe() = %v", got)
		}
	})

	t.Run("truncates to max", func(t *testing.T) {
		plain := NewNormalizer(nil)
		raw := make([]string, 0, 80)
		for i := 0; i < 80; i++ {
			raw = append(raw, fmt.Sprintf("kw%c%c", 'a'+i/26, 'a'+i%26))
		}
		got := plain.Dedupe(raw)
		if len(got) != MaxKeywords {
			t.Errorf("len = %d, want %d", len(got), MaxKeywords)
		}
		if got[0] != raw[0] || got[MaxKeywords-1] != raw[MaxKeywords-1] {
			t.Error("truncation did not keep the leading keywords")
		}
	})
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(DefaultTaxonomy())
	got := n.Normalize([]string{" sunset! ", "sun-set", "ocean", "???"})
	want := []string{"sunset", "ocean"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize() = %v, want %v", got, want)
	}
}

// randomKeywords builds a keyword list mixing taxonomy members, plurals and
// unrelated words so the property checks below exercise every rejection path.
func randomKeywords(r *rand.Rand) []string {
	vocab := []string{
		"cat", "cats", "dog", "dogs", "sun", "sunset", "ocean", "oceans",
		"chat", "talk", "bubble", "balloon", "design", "art", "vector", "flat",
		"mountain", "river", "forest", "city", "night", "light", "lights",
		"Team", "team", "teamwork", "office", "desk", "laptop", "coffee",
		"happy", "joyful", "fast", "speed", "red", "blue", "green", "yellow",
	}
	n := r.Intn(120)
	out := make([]string, n)
	for i := range out {
		w := vocab[r.Intn(len(vocab))]
		if r.Intn(4) == 0 {
			w = fmt.Sprintf("%s%d", w, r.Intn(200))
		}
		out[i] = w
	}
	return out
}

func TestNormalizer_DedupeProperties(t *testing.T) {
	n := NewNormalizer(DefaultTaxonomy())
	r := rand.New(rand.NewSource(42))

	for iter := 0; iter < 300; iter++ {
		in := randomKeywords(r)
		got := n.Dedupe(in)

		if len(got) > MaxKeywords {
			t.Fatalf("len(Dedupe) = %d > %d for %v", len(got), MaxKeywords, in)
		}

		for i := range got {
			for j := range got {
				if i == j {
					continue
				}
				a, b := strings.ToLower(got[i]), strings.ToLower(got[j])
				if strings.Contains(a, b) {
					t.Fatalf("%q contains %q in %v", got[i], got[j], got)
				}
				if a+"s" == b {
					t.Fatalf("%q and %q differ by trailing s in %v", got[i], got[j], got)
				}
			}
		}

		if again := n.Dedupe(got); !reflect.DeepEqual(again, got) {
			t.Fatalf("Dedupe not idempotent:\nfirst:  %v\nsecond: %v", got, again)
		}
	}
}

func TestNormalizer_NoSharedGroups(t *testing.T) {
	tax := DefaultTaxonomy()
	n := NewNormalizer(tax)
	got := n.Dedupe([]string{"design", "artwork", "chat", "discussion", "big", "huge", "tree"})

	for i := 0; i < tax.Len(); i++ {
		count := 0
		for _, kw := range got {
			if tax.matches(i, strings.ToLower(kw)) {
				count++
			}
		}
		if count > 1 {
			t.Errorf("group %d has %d keywords in %v", i, count, got)
		}
	}
}
