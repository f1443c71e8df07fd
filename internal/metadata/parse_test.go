package metadata

import (
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/stockmeta/internal/keywords"
)

func TestParse(t *testing.T) {
	t.Run("sample response", func(t *testing.T) {
		res := Parse("TITLE- Sample Title\nKEYWORDS- cat, dog, cat, dogs\n")

		if res.Title != "Sample Title" {
			t.Errorf("Title = %q, want %q", res.Title, "Sample Title")
		}
		if !reflect.DeepEqual(res.Keywords, []string{"cat", "dog"}) {
			t.Errorf("Keywords = %v, want [cat dog]", res.Keywords)
		}
	})

	t.Run("all fields with both delimiters", func(t *testing.T) {
		raw := strings.Join([]string{
			"Here is your metadata:",
			"TITLE: Gold Anniversary Badges 1, 5, 10 – Vector!",
			"ALT_TITLE_1- Golden Jubilee Labels - Print Ready",
			"ALT_TITLE_2: Anniversary Emblems (Set)",
			"DESCRIPTION- Shiny gold badges for 1, 5, 10 years, ready for print.",
			"CATEGORY: Graphic Resources ",
			"KEYWORDS: anniversary, badge!, gold, golden, jubilee",
			"Thanks!",
		}, "\n")

		res := Parse(raw)

		if res.Title != "Gold Anniversary Badges 1 5 10  Vector" {
			t.Errorf("Title = %q", res.Title)
		}
		wantAlts := []string{"Golden Jubilee Labels  Print Ready", "Anniversary Emblems Set"}
		if !reflect.DeepEqual(res.AlternativeTitles, wantAlts) {
			t.Errorf("AlternativeTitles = %q, want %q", res.AlternativeTitles, wantAlts)
		}
		if res.Description != "Shiny gold badges for 1, 5, 10 years, ready for print." {
			t.Errorf("Description = %q (punctuation must be kept)", res.Description)
		}
		if res.Category != "Graphic Resources" {
			t.Errorf("Category = %q", res.Category)
		}
		// "golden" contains "gold"
		wantKw := []string{"anniversary", "badge", "gold", "jubilee"}
		if !reflect.DeepEqual(res.Keywords, wantKw) {
			t.Errorf("Keywords = %v, want %v", res.Keywords, wantKw)
		}
	})

	t.Run("missing alt title leaves no placeholder", func(t *testing.T) {
		res := Parse("TITLE- Only\nALT_TITLE_2- Second Variation\n")
		if !reflect.DeepEqual(res.AlternativeTitles, []string{"Second Variation"}) {
			t.Errorf("AlternativeTitles = %q", res.AlternativeTitles)
		}
	})

	t.Run("no recognized lines", func(t *testing.T) {
		res := Parse("I cannot help with that.")
		if !res.IsEmpty() {
			t.Errorf("expected empty result, got %+v", res)
		}
		if res.Keywords == nil {
			t.Error("Keywords should be an empty slice, not nil")
		}
	})

	t.Run("prefix must start the line", func(t *testing.T) {
		res := Parse("  TITLE- Indented\n**TITLE**- Bold\nTITLES- Wrong\n")
		if res.Title != "" {
			t.Errorf("Title = %q, want empty", res.Title)
		}
	})

	t.Run("crlf line endings", func(t *testing.T) {
		res := Parse("TITLE- Windows Title\r\nCATEGORY- Nature\r\n")
		if res.Title != "Windows Title" || res.Category != "Nature" {
			t.Errorf("got %+v", res)
		}
	})

	t.Run("last line wins", func(t *testing.T) {
		res := Parse("TITLE- First\nTITLE- Second\n")
		if res.Title != "Second" {
			t.Errorf("Title = %q, want Second", res.Title)
		}
	})

	t.Run("keywords emptied by cleaning are dropped", func(t *testing.T) {
		res := Parse("KEYWORDS- !!!, , river, ---\n")
		if !reflect.DeepEqual(res.Keywords, []string{"river"}) {
			t.Errorf("Keywords = %v, want [river]", res.Keywords)
		}
	})
}

func TestParser_CustomTaxonomy(t *testing.T) {
	tax := keywords.NewTaxonomy([][]string{{"car", "vehicle", "automobile"}})
	p := NewParser(keywords.NewNormalizer(tax))

	res := p.Parse("KEYWORDS- vehicle, automobile, road\n")
	if !reflect.DeepEqual(res.Keywords, []string{"vehicle", "road"}) {
		t.Errorf("Keywords = %v, want [vehicle road]", res.Keywords)
	}
}

func TestResult_Clone(t *testing.T) {
	orig := &Result{Title: "a", Keywords: []string{"x"}, AlternativeTitles: []string{"b"}}
	c := orig.Clone()
	c.Keywords[0] = "y"
	c.AlternativeTitles[0] = "z"
	if orig.Keywords[0] != "x" || orig.AlternativeTitles[0] != "b" {
		t.Error("Clone() shares slices with the original")
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt()
	for _, want := range []string{"TITLE- ", "ALT_TITLE_1- ", "ALT_TITLE_2- ", "DESCRIPTION- ", "CATEGORY- ", "KEYWORDS- ", "Exactly 50"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "{{") {
		t.Error("prompt contains unrendered template actions")
	}
}
