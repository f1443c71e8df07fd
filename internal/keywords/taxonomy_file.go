package keywords

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.schema.json
var taxonomySchema []byte

// TaxonomyFile is the on-disk form of a custom synonym table.
type TaxonomyFile struct {
	Replace bool       `json:"replace,omitempty" yaml:"replace,omitempty"`
	Groups  [][]string `json:"groups" yaml:"groups"`
}

// LoadTaxonomyFile reads a YAML or JSON taxonomy file, validates it and
// returns the resulting Taxonomy. Unless the file sets replace: true, its
// groups are appended to the default table.
func LoadTaxonomyFile(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return ParseTaxonomy(data, filepath.Ext(path))
}

// ParseTaxonomy decodes taxonomy data. ext selects the decoder: ".json" for
// JSON, anything else is read as YAML.
func ParseTaxonomy(data []byte, ext string) (*Taxonomy, error) {
	var doc any
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse taxonomy JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse taxonomy YAML: %w", err)
		}
	}

	if err := validateTaxonomy(doc); err != nil {
		return nil, err
	}

	// Round-trip through JSON so both formats decode into the same struct.
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize taxonomy: %w", err)
	}
	var tf TaxonomyFile
	if err := json.Unmarshal(normalized, &tf); err != nil {
		return nil, fmt.Errorf("failed to decode taxonomy: %w", err)
	}

	if tf.Replace {
		return NewTaxonomy(tf.Groups), nil
	}
	return DefaultTaxonomy().Extend(tf.Groups), nil
}

func validateTaxonomy(doc any) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("taxonomy.json", bytes.NewReader(taxonomySchema)); err != nil {
		return fmt.Errorf("failed to load taxonomy schema: %w", err)
	}
	schema, err := compiler.Compile("taxonomy.json")
	if err != nil {
		return fmt.Errorf("failed to compile taxonomy schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid taxonomy file: %w", err)
	}
	return nil
}
