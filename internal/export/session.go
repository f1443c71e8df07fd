package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Session is a saved batch: every record plus enough context to know how it
// was produced. Saved as JSON, or YAML when the path ends in .yaml/.yml.
type Session struct {
	BatchID   string    `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Provider  string    `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model     string    `json:"model,omitempty" yaml:"model,omitempty"`
	Records   []Record  `json:"records" yaml:"records"`
}

// Find returns the record whose ID or filename equals key.
func (s *Session) Find(key string) (*Record, bool) {
	for i := range s.Records {
		if s.Records[i].ID == key || s.Records[i].Filename == key {
			return &s.Records[i], true
		}
	}
	return nil, false
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// SaveSession writes s to path.
func SaveSession(path string, s *Session) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadSession reads a session written by SaveSession.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Session
	if isYAML(path) {
		err = yaml.Unmarshal(data, &s)
	} else {
		err = json.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	return &s, nil
}
