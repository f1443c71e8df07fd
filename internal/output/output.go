// Package output renders command results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the output format for CLI commands.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultFormat is used when no --output flag is given.
const DefaultFormat = FormatText

// current is set by the root command's --output flag.
var current = DefaultFormat

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatYAML, FormatJSON:
		return f, nil
	case "":
		return DefaultFormat, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, yaml or json)", s)
	}
}

// SetFormat sets the global output format.
func SetFormat(f Format) {
	current = f
}

// Current returns the global output format.
func Current() Format {
	return current
}

// IsStructured reports whether the global format is machine-readable.
// Commands print human-friendly progress only when it is not.
func IsStructured() bool {
	return current == FormatJSON || current == FormatYAML
}

// Print writes data to stdout in the global format. In text mode data is
// written as YAML, which reads well enough for humans.
func Print(data any) error {
	return To(os.Stdout, current, data)
}

// To writes data to w in the given format.
func To(w io.Writer, f Format, data any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML, FormatText:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", f)
	}
}
