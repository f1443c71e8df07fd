package metadata

import (
	"strings"

	"github.com/jackzampolin/stockmeta/internal/keywords"
)

// Field prefixes of the response format. Each may be followed by '-' or ':'.
const (
	FieldTitle       = "TITLE"
	FieldAltTitle1   = "ALT_TITLE_1"
	FieldAltTitle2   = "ALT_TITLE_2"
	FieldDescription = "DESCRIPTION"
	FieldCategory    = "CATEGORY"
	FieldKeywords    = "KEYWORDS"
)

// Parser turns raw model text into a Result.
type Parser struct {
	normalizer *keywords.Normalizer
}

// NewParser creates a parser that deduplicates keywords with n.
// A nil normalizer uses the default taxonomy.
func NewParser(n *keywords.Normalizer) *Parser {
	if n == nil {
		n = keywords.NewNormalizer(keywords.DefaultTaxonomy())
	}
	return &Parser{normalizer: n}
}

// Parse extracts fields from newline-delimited, line-prefixed text.
// Unrecognized lines are ignored and missing fields stay empty; Parse never
// fails. When a field appears more than once the last line wins.
func (p *Parser) Parse(raw string) *Result {
	var (
		res  Result
		alts [MaxAlternativeTitles]string
	)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")

		if v, ok := fieldValue(line, FieldTitle); ok {
			res.Title = keywords.CleanText(v)
		} else if v, ok := fieldValue(line, FieldAltTitle1); ok {
			alts[0] = keywords.CleanText(v)
		} else if v, ok := fieldValue(line, FieldAltTitle2); ok {
			alts[1] = keywords.CleanText(v)
		} else if v, ok := fieldValue(line, FieldDescription); ok {
			res.Description = v
		} else if v, ok := fieldValue(line, FieldCategory); ok {
			res.Category = v
		} else if v, ok := fieldValue(line, FieldKeywords); ok {
			res.Keywords = p.normalizer.Normalize(keywords.SplitList(v))
		}
	}

	for _, alt := range alts {
		if alt != "" {
			res.AlternativeTitles = append(res.AlternativeTitles, alt)
		}
	}
	if res.Keywords == nil {
		res.Keywords = []string{}
	}
	return &res
}

// Parse parses raw with the default taxonomy.
func Parse(raw string) *Result {
	return NewParser(nil).Parse(raw)
}

// fieldValue returns the trimmed value of line when it starts with
// name followed by '-' or ':'.
func fieldValue(line, name string) (string, bool) {
	rest, ok := strings.CutPrefix(line, name)
	if !ok || rest == "" {
		return "", false
	}
	if rest[0] != '-' && rest[0] != ':' {
		return "", false
	}
	return strings.TrimSpace(rest[1:]), true
}
