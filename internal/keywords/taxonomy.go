package keywords

import "strings"

// Taxonomy is an ordered, immutable table of synonym groups. Members of a
// group are lowercase substrings treated as interchangeable when judging
// whether two keywords say the same thing to a stock buyer.
type Taxonomy struct {
	groups [][]string
}

// NewTaxonomy builds a Taxonomy from the given groups. Members are lowercased
// and trimmed; empty members and empty groups are dropped. The input slices
// are copied.
func NewTaxonomy(groups [][]string) *Taxonomy {
	t := &Taxonomy{groups: make([][]string, 0, len(groups))}
	for _, g := range groups {
		members := make([]string, 0, len(g))
		for _, m := range g {
			m = strings.ToLower(strings.TrimSpace(m))
			if m != "" {
				members = append(members, m)
			}
		}
		if len(members) > 0 {
			t.groups = append(t.groups, members)
		}
	}
	return t
}

// Len returns the number of groups.
func (t *Taxonomy) Len() int {
	if t == nil {
		return 0
	}
	return len(t.groups)
}

// Groups returns a deep copy of the group table.
func (t *Taxonomy) Groups() [][]string {
	if t == nil {
		return nil
	}
	out := make([][]string, len(t.groups))
	for i, g := range t.groups {
		out[i] = append([]string(nil), g...)
	}
	return out
}

// Extend returns a new Taxonomy with extra groups appended after t's groups.
func (t *Taxonomy) Extend(extra [][]string) *Taxonomy {
	return NewTaxonomy(append(t.Groups(), extra...))
}

// matches reports whether lower (an already-lowercased keyword) belongs to
// group i: it contains a member, or a member contains it.
func (t *Taxonomy) matches(i int, lower string) bool {
	for _, m := range t.groups[i] {
		if strings.Contains(lower, m) || strings.Contains(m, lower) {
			return true
		}
	}
	return false
}

// DefaultTaxonomy returns the built-in synonym table tuned for design and
// business stock content.
func DefaultTaxonomy() *Taxonomy {
	return NewTaxonomy(defaultGroups)
}

var defaultGroups = [][]string{
	{"bubble", "bubbles", "balloon", "balloons"},
	{"dialogue", "conversation", "chat", "talk", "speaking", "discussion", "communication", "comment"},
	{"message", "messages", "text", "content"},
	{"graphic", "graphics", "design", "artwork", "illustration", "visual", "creative", "art"},
	{"element", "elements", "component", "components"},
	{"icon", "icons", "symbol", "symbols", "sign", "signs"},
	{"box", "boxes", "container", "containers"},
	{"template", "templates", "layout", "layouts"},
	{"website", "websites", "web", "site", "sites"},
	{"shape", "shapes", "form", "forms"},
	{"post", "posts", "posting", "share"},
	{"presentation", "presentations", "slide", "slides"},
	{"business", "corporate", "professional", "commercial", "enterprise", "company"},
	{"modern", "contemporary", "current", "new", "fresh", "trendy", "stylish"},
	{"colorful", "vibrant", "bright", "vivid", "color", "colour"},
	{"app", "application", "software", "program", "digital", "online", "internet"},
	{"social", "media", "network", "networking"},
	{"marketing", "branding", "advertising", "promotion"},
	{"banner", "signage", "poster", "board"},
	{"interface", "ui", "ux", "user"},
	{"vector", "scalable", "resolution"},
	{"flat", "simple", "minimal", "clean"},
	{"abstract", "geometric", "pattern", "texture"},
	{"background", "backdrop", "surface", "base"},
	{"big", "large", "huge", "small", "tiny", "mini", "massive", "enormous"},
	{"excellent", "outstanding", "premium", "superior", "top", "best", "perfect"},
	{"happy", "joyful", "cheerful", "glad", "pleased", "excited"},
	{"create", "make", "build", "produce", "generate", "develop"},
	{"style", "styling", "fashionable", "trend"},
	{"beautiful", "gorgeous", "stunning", "attractive", "pretty"},
	{"fast", "quick", "rapid", "speed"},
}
