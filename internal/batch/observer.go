package batch

import (
	"github.com/jackzampolin/stockmeta/internal/inference"
	"github.com/jackzampolin/stockmeta/internal/metadata"
)

// Progress is the batch position after an image finished (either way).
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Percent returns completion as 0-100.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}
	return p.Completed * 100 / p.Total
}

// Observer decouples batch notifications from presentation. The orchestrator
// only emits events; the CLI decides how to show them.
//
// Calls are made from the goroutine running GenerateBatch, one at a time.
type Observer interface {
	// OnStart is called once before the first image.
	OnStart(batchID string, total int)
	// OnItemStart is called before an image is sent (index is 1-based).
	OnItemStart(index, total int, item Item)
	// OnInference forwards attempt and backoff notifications.
	OnInference(e inference.Event)
	// OnItemDone is called after an image produced a result.
	OnItemDone(item Item)
	// OnItemFailed is called after an image failed and was dropped.
	OnItemFailed(item Item, err error)
	// OnProgress is called after every image, success or failure.
	OnProgress(p Progress)
	// OnFinish is called with the results of this run.
	OnFinish(results []*metadata.Result)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) OnStart(string, int)         {}
func (NopObserver) OnItemStart(int, int, Item)  {}
func (NopObserver) OnInference(inference.Event) {}
func (NopObserver) OnItemDone(Item)             {}
func (NopObserver) OnItemFailed(Item, error)    {}
func (NopObserver) OnProgress(Progress)         {}
func (NopObserver) OnFinish([]*metadata.Result) {}

var _ Observer = NopObserver{}

// ProgressFunc adapts a plain progress callback into an Observer.
type ProgressFunc func(Progress)

func (f ProgressFunc) OnStart(string, int)         {}
func (f ProgressFunc) OnItemStart(int, int, Item)  {}
func (f ProgressFunc) OnInference(inference.Event) {}
func (f ProgressFunc) OnItemDone(Item)             {}
func (f ProgressFunc) OnItemFailed(Item, error)    {}
func (f ProgressFunc) OnProgress(p Progress)       { f(p) }
func (f ProgressFunc) OnFinish([]*metadata.Result) {}

var _ Observer = ProgressFunc(nil)
