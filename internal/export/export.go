// Package export writes curated batch results to disk as microstock CSV or
// as a session file that can be reloaded for further curation.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackzampolin/stockmeta/internal/batch"
	"github.com/jackzampolin/stockmeta/internal/metadata"
)

// CSVHeader is the column order microstock sites expect.
var CSVHeader = []string{"filename", "title", "description", "keywords", "category"}

// KeywordSeparator joins keywords inside the keywords column.
const KeywordSeparator = ", "

// Record is one exported image.
type Record struct {
	ID       string           `json:"id" yaml:"id"`
	Filename string           `json:"filename" yaml:"filename"`
	Path     string           `json:"path,omitempty" yaml:"path,omitempty"`
	Metadata *metadata.Result `json:"metadata" yaml:"metadata"`

	// TopKeywords is the curated keyword list. When nil, Metadata.Keywords is exported.
	TopKeywords []string `json:"top_keywords,omitempty" yaml:"top_keywords,omitempty"`
}

// ExportKeywords returns the keywords that go into the CSV.
func (r *Record) ExportKeywords() []string {
	if r.TopKeywords != nil {
		return r.TopKeywords
	}
	if r.Metadata == nil {
		return nil
	}
	return r.Metadata.Keywords
}

// FromItems builds records from done batch items, in order.
func FromItems(items []batch.Item) []Record {
	recs := make([]Record, 0, len(items))
	for _, it := range items {
		if it.Status != batch.StatusDone || it.Result == nil {
			continue
		}
		rec := Record{ID: it.ID, Metadata: it.Result}
		if it.Image != nil {
			rec.Filename = it.Image.Name
			rec.Path = it.Image.Path
		}
		recs = append(recs, rec)
	}
	return recs
}

// DefaultCSVName returns microstock-metadata-YYYY-MM-DD.csv for t (UTC date).
func DefaultCSVName(t time.Time) string {
	return fmt.Sprintf("microstock-metadata-%s.csv", t.UTC().Format("2006-01-02"))
}

// WriteCSV writes the header and one row per record. Fields containing a
// comma, quote or newline are quoted with quotes doubled.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{r.Filename, "", "", strings.Join(r.ExportKeywords(), KeywordSeparator), ""}
		if m := r.Metadata; m != nil {
			row[1], row[2], row[4] = m.Title, m.Description, m.Category
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.Filename, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes recs to path, creating parent directories.
func WriteCSVFile(path string, recs []Record) error {
	if len(recs) == 0 {
		return fmt.Errorf("no data to export: generate metadata for images first")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, recs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
