package export

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackzampolin/stockmeta/internal/batch"
	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/metadata"
)

func TestWriteCSV(t *testing.T) {
	recs := []Record{
		{
			Filename: "badge.png",
			Metadata: &metadata.Result{
				Title:       "Gold Badge",
				Description: `A "shiny" badge, with ribbon`,
				Category:    "Graphic Resources",
				Keywords:    []string{"badge", "gold"},
			},
		},
		{
			Filename:    "sky.jpg",
			Metadata:    &metadata.Result{Title: "Sky", Description: "Line one\nline two", Category: "Nature", Keywords: []string{"sky"}},
			TopKeywords: []string{"sky", "blue"},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, recs); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "filename,title,description,keywords,category\n" +
		`badge.png,Gold Badge,"A ""shiny"" badge, with ribbon","badge, gold",Graphic Resources` + "\n" +
		`sky.jpg,Sky,"Line one` + "\n" + `line two","sky, blue",Nature` + "\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestDefaultCSVName(t *testing.T) {
	ts := time.Date(2026, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	if got := DefaultCSVName(ts); got != "microstock-metadata-2026-03-10.csv" {
		t.Errorf("DefaultCSVName() = %q", got)
	}
}

func TestWriteCSVFile(t *testing.T) {
	dir := t.TempDir()
	if err := WriteCSVFile(filepath.Join(dir, "empty.csv"), nil); err == nil {
		t.Error("expected error for empty export")
	}

	path := filepath.Join(dir, "nested", "out.csv")
	recs := []Record{{Filename: "a.png", Metadata: &metadata.Result{Title: "A", Keywords: []string{"a"}}}}
	if err := WriteCSVFile(path, recs); err != nil {
		t.Fatalf("WriteCSVFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "filename,title,description,keywords,category\na.png,A,,a,\n" {
		t.Errorf("file = %q", data)
	}
}

func TestFromItems(t *testing.T) {
	img := images.FromBytes("x.png", []byte("x"))
	res := &metadata.Result{Title: "X", Keywords: []string{"x"}}
	items := []batch.Item{
		{ID: img.ID, Image: img, Result: res, Status: batch.StatusDone},
		{ID: "pending", Image: images.FromBytes("p.png", nil), Status: batch.StatusPending},
	}
	recs := FromItems(items)
	if len(recs) != 1 || recs[0].Filename != "x.png" || recs[0].Metadata != res || recs[0].ID != img.ID {
		t.Errorf("FromItems() = %+v", recs)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := &Session{
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Provider:  "gemini",
		Records: []Record{{
			ID:          "id-1",
			Filename:    "a.png",
			Metadata:    &metadata.Result{Title: "A", AlternativeTitles: []string{"Alt"}, Keywords: []string{"a", "b"}},
			TopKeywords: []string{"b"},
		}},
	}

	for _, name := range []string{"session.json", "session.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := SaveSession(path, s); err != nil {
				t.Fatalf("SaveSession() error = %v", err)
			}
			got, err := LoadSession(path)
			if err != nil {
				t.Fatalf("LoadSession() error = %v", err)
			}
			if !got.CreatedAt.Equal(s.CreatedAt) || got.Provider != "gemini" {
				t.Errorf("session = %+v", got)
			}
			rec, ok := got.Find("a.png")
			if !ok {
				t.Fatal("Find(a.png) failed")
			}
			if !reflect.DeepEqual(rec.ExportKeywords(), []string{"b"}) {
				t.Errorf("ExportKeywords() = %v", rec.ExportKeywords())
			}
			if _, ok := got.Find("id-1"); !ok {
				t.Error("Find by ID failed")
			}
		})
	}

	if _, err := LoadSession(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing session")
	}
}
