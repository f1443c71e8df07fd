package llmcall

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Store reads call records back from a JSON Lines log.
type Store struct {
	path string
}

// NewStore creates a store over the log at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// QueryFilter specifies filters for listing calls.
type QueryFilter struct {
	ImageID   string
	BatchID   string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

func (f QueryFilter) match(c *Call) bool {
	switch {
	case f.ImageID != "" && c.ImageID != f.ImageID:
		return false
	case f.BatchID != "" && c.BatchID != f.BatchID:
		return false
	case f.PromptKey != "" && c.PromptKey != f.PromptKey:
		return false
	case f.Provider != "" && c.Provider != f.Provider:
		return false
	case f.Model != "" && c.Model != f.Model:
		return false
	case f.Success != nil && c.Success != *f.Success:
		return false
	case f.After != nil && !c.Timestamp.After(*f.After):
		return false
	case f.Before != nil && !c.Timestamp.Before(*f.Before):
		return false
	}
	return true
}

// Get retrieves a single call by ID. Returns nil, nil if not found.
func (s *Store) Get(id string) (*Call, error) {
	calls, err := s.readAll()
	if err != nil {
		return nil, err
	}
	for i := range calls {
		if calls[i].ID == id {
			return &calls[i], nil
		}
	}
	return nil, nil
}

// List returns calls matching the filter, newest first.
func (s *Store) List(filter QueryFilter) ([]Call, error) {
	calls, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var out []Call
	skipped := 0
	for i := len(calls) - 1; i >= 0; i-- {
		if !filter.match(&calls[i]) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, calls[i])
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// CountByStatus returns call counts grouped by success/failure.
func (s *Store) CountByStatus(filter QueryFilter) (succeeded, failed int, err error) {
	filter.Limit, filter.Offset = 0, 0
	calls, err := s.List(filter)
	if err != nil {
		return 0, 0, err
	}
	for _, c := range calls {
		if c.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed, nil
}

func (s *Store) readAll() ([]Call, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	var calls []Call
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var c Call
		if err := json.Unmarshal(scanner.Bytes(), &c); err != nil {
			return nil, fmt.Errorf("call log line %d: %w", line, err)
		}
		calls = append(calls, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call log: %w", err)
	}
	return calls, nil
}
