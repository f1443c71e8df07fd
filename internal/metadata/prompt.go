package metadata

import (
	"bytes"
	_ "embed"
	"text/template"

	"github.com/jackzampolin/stockmeta/internal/keywords"
)

//go:embed prompt.tmpl
var promptTmpl string

var promptTemplate = template.Must(template.New("prompt").Parse(promptTmpl))

// PromptKey identifies the prompt version in call records.
const PromptKey = "stockmeta.generate.v1"

// PromptData is the data rendered into the instruction prompt.
type PromptData struct {
	KeywordCount     int
	TitleField       string
	AltTitle1Field   string
	AltTitle2Field   string
	DescriptionField string
	CategoryField    string
	KeywordsField    string
}

// Prompt returns the fixed instruction prompt sent alongside every image.
func Prompt() string {
	var buf bytes.Buffer
	data := PromptData{
		KeywordCount:     keywords.MaxKeywords,
		TitleField:       FieldTitle,
		AltTitle1Field:   FieldAltTitle1,
		AltTitle2Field:   FieldAltTitle2,
		DescriptionField: FieldDescription,
		CategoryField:    FieldCategory,
		KeywordsField:    FieldKeywords,
	}
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return promptTmpl
	}
	return buf.String()
}
