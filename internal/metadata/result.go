// Package metadata defines the microstock metadata record produced for one
// image and parses it out of the model's line-prefixed text response.
package metadata

// Result is the metadata generated for one image. It is treated as immutable
// once returned; regeneration produces a new Result rather than editing one.
type Result struct {
	Title             string   `json:"title" yaml:"title"`
	AlternativeTitles []string `json:"alternative_titles,omitempty" yaml:"alternative_titles,omitempty"`
	Description       string   `json:"description" yaml:"description"`
	Category          string   `json:"category" yaml:"category"`
	Keywords          []string `json:"keywords" yaml:"keywords"`
}

// MaxAlternativeTitles is the number of alternative title slots in a response.
const MaxAlternativeTitles = 2

// IsEmpty reports whether the response yielded no usable fields at all.
func (r *Result) IsEmpty() bool {
	return r == nil || (r.Title == "" &&
		len(r.AlternativeTitles) == 0 &&
		r.Description == "" &&
		r.Category == "" &&
		len(r.Keywords) == 0)
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.AlternativeTitles = append([]string(nil), r.AlternativeTitles...)
	c.Keywords = append([]string(nil), r.Keywords...)
	return &c
}
