package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/jackzampolin/stockmeta/internal/batch"
	"github.com/jackzampolin/stockmeta/internal/inference"
	"github.com/jackzampolin/stockmeta/internal/metadata"
)

type imageNote struct {
	Name   string `json:"name" yaml:"name"`
	Reason string `json:"reason" yaml:"reason"`
}

// progressPrinter reports batch progress on stderr and remembers failures
// for the final summary.
type progressPrinter struct {
	w io.Writer

	mu      sync.Mutex
	batchID string
	failed  []imageNote
}

var _ batch.Observer = (*progressPrinter)(nil)

func (p *progressPrinter) OnStart(batchID string, total int) {
	p.mu.Lock()
	p.batchID = batchID
	p.mu.Unlock()
	fmt.Fprintf(p.w, "Generating metadata for %d images\n", total)
}

func (p *progressPrinter) OnItemStart(index, total int, item batch.Item) {
	fmt.Fprintf(p.w, "[%d/%d] %s\n", index, total, item.Image.Name)
}

func (p *progressPrinter) OnInference(e inference.Event) {
	if e.Kind != inference.EventBackoff {
		return
	}
	fmt.Fprintf(p.w, "  API overloaded, retrying in %s (attempt %d/%d)\n", e.Delay, e.Attempt, e.MaxRetries)
}

func (p *progressPrinter) OnItemDone(item batch.Item) {
	fmt.Fprintf(p.w, "  %s (%d keywords)\n", item.Result.Title, len(item.Result.Keywords))
}

func (p *progressPrinter) OnItemFailed(item batch.Item, err error) {
	reason := inference.Describe(err)
	p.mu.Lock()
	p.failed = append(p.failed, imageNote{Name: item.Image.Name, Reason: reason})
	p.mu.Unlock()
	fmt.Fprintf(p.w, "  failed: %s\n", reason)
}

func (p *progressPrinter) OnProgress(pr batch.Progress) {
	fmt.Fprintf(p.w, "  progress %d%%\n", pr.Percent())
}

func (p *progressPrinter) OnFinish(results []*metadata.Result) {}

func (p *progressPrinter) BatchID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batchID
}

func (p *progressPrinter) Failed() []imageNote {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]imageNote(nil), p.failed...)
}
