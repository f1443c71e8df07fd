// Package batch runs metadata generation over a batch of images, one image
// at a time, and keeps the per-image records keyed by a stable ID.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/inference"
	"github.com/jackzampolin/stockmeta/internal/metadata"
)

// Status is an item's lifecycle state. Failed items are removed rather than
// kept with a failed status.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// ErrItemNotFound is returned for unknown item IDs.
var ErrItemNotFound = errors.New("batch item not found")

// Item is one image and its generated metadata.
type Item struct {
	ID        string           `json:"id"`
	Image     *images.Image    `json:"image"`
	Result    *metadata.Result `json:"result,omitempty"`
	Status    Status           `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Generator produces metadata for one image. *inference.Client implements it.
type Generator interface {
	GenerateOne(ctx context.Context, img *images.Image, credential string, opts ...inference.CallOption) (*metadata.Result, error)
}

var _ Generator = (*inference.Client)(nil)

// Config configures an Orchestrator.
type Config struct {
	Generator Generator
	Observer  Observer
	Logger    *slog.Logger

	// ItemTimeout bounds each image including its retries. Zero means no
	// deadline beyond the caller's context.
	ItemTimeout time.Duration
}

// Orchestrator owns the item store. Generation is strictly sequential; the
// mutex only lets observers on other goroutines read the store safely.
type Orchestrator struct {
	gen     Generator
	obs     Observer
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.RWMutex
	items map[string]*Item
	order []string
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		gen:     cfg.Generator,
		obs:     cfg.Observer,
		logger:  cfg.Logger,
		timeout: cfg.ItemTimeout,
		items:   make(map[string]*Item),
	}
}

// Enqueue adds images as pending items and returns their IDs. An image
// without an ID gets one. An ID repeated within imgs is enqueued once.
func (o *Orchestrator) Enqueue(imgs ...*images.Image) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	ids := make([]string, 0, len(imgs))
	seen := make(map[string]bool, len(imgs))
	for _, img := range imgs {
		if img.ID == "" {
			img.ID = uuid.New().String()
		}
		if seen[img.ID] {
			continue
		}
		seen[img.ID] = true
		if _, exists := o.items[img.ID]; !exists {
			o.order = append(o.order, img.ID)
		}
		o.items[img.ID] = &Item{ID: img.ID, Image: img, Status: StatusPending, UpdatedAt: time.Now()}
		ids = append(ids, img.ID)
	}
	return ids
}

// GenerateBatch enqueues imgs and processes them in order. Images that fail
// are logged, reported to the observer and dropped; the returned slice holds
// only successes. Progress advances after every image so it reaches 100%
// under partial failure. Cancellation is checked between images; on
// cancellation the results gathered so far are returned and the remaining
// items stay pending.
func (o *Orchestrator) GenerateBatch(ctx context.Context, imgs []*images.Image, credential string) []*metadata.Result {
	ids := o.Enqueue(imgs...)
	total := len(ids)
	batchID := uuid.New().String()

	o.obs.OnStart(batchID, total)
	o.logger.Info("starting batch", "batch_id", batchID, "images", total)

	results := make([]*metadata.Result, 0, total)
	completed := 0

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			o.logger.Info("batch cancelled", "batch_id", batchID, "completed", completed, "total", total)
			break
		}

		item, ok := o.Get(id)
		if !ok {
			// removed by a concurrent Remove
			completed++
			o.obs.OnProgress(Progress{Completed: completed, Total: total})
			continue
		}

		o.obs.OnItemStart(i+1, total, item)
		o.logger.Info(fmt.Sprintf("Processing image %d of %d: %s", i+1, total, item.Image.Name))

		itemCtx, cancel := o.itemContext(ctx)
		res, err := o.gen.GenerateOne(itemCtx, item.Image, credential,
			inference.WithBatchID(batchID),
			inference.WithEvents(o.obs.OnInference))
		cancel()
		if err != nil && ctx.Err() != nil {
			o.logger.Info("batch cancelled", "batch_id", batchID, "completed", completed, "total", total)
			break
		}

		completed++
		if err != nil {
			o.Remove(id)
			o.logger.Warn("image failed, skipping",
				"image", item.Image.Name,
				"reason", inference.Describe(err),
				"error", err)
			o.obs.OnItemFailed(item, err)
		} else {
			done := o.complete(id, res)
			results = append(results, res)
			o.obs.OnItemDone(done)
		}
		o.obs.OnProgress(Progress{Completed: completed, Total: total})
	}

	o.logger.Info(fmt.Sprintf("Generated metadata for %d images", len(results)), "batch_id", batchID, "failed", completed-len(results))
	o.obs.OnFinish(results)
	return results
}

func (o *Orchestrator) itemContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.timeout)
}

// Regenerate re-runs generation for one stored item and replaces its record.
// On failure the existing record is kept and the error returned.
func (o *Orchestrator) Regenerate(ctx context.Context, id, credential string) (*metadata.Result, error) {
	item, ok := o.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	itemCtx, cancel := o.itemContext(ctx)
	defer cancel()
	res, err := o.gen.GenerateOne(itemCtx, item.Image, credential, inference.WithEvents(o.obs.OnInference))
	if err != nil {
		o.logger.Warn("regeneration failed, keeping previous metadata",
			"image", item.Image.Name,
			"reason", inference.Describe(err))
		return nil, err
	}
	o.complete(id, res)
	return res, nil
}

// SetResult replaces an item's metadata, e.g. after curation.
func (o *Orchestrator) SetResult(id string, res *metadata.Result) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	item.Result = res
	item.Status = StatusDone
	item.UpdatedAt = time.Now()
	return nil
}

func (o *Orchestrator) complete(id string, res *metadata.Result) Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[id]
	if !ok {
		// removed while generating; report but do not resurrect
		return Item{ID: id, Result: res, Status: StatusDone, UpdatedAt: time.Now()}
	}
	item.Result = res
	item.Status = StatusDone
	item.UpdatedAt = time.Now()
	return *item
}

// Get returns a copy of an item.
func (o *Orchestrator) Get(id string) (Item, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Items returns copies of all items in enqueue order.
func (o *Orchestrator) Items() []Item {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Item, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, *o.items[id])
	}
	return out
}

// Results returns the metadata of done items in enqueue order.
func (o *Orchestrator) Results() []*metadata.Result {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []*metadata.Result
	for _, id := range o.order {
		if it := o.items[id]; it.Status == StatusDone && it.Result != nil {
			out = append(out, it.Result)
		}
	}
	return out
}

// Remove deletes an item. Returns false if it did not exist.
func (o *Orchestrator) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.items[id]; !ok {
		return false
	}
	delete(o.items, id)
	for i, oid := range o.order {
		if oid == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of stored items.
func (o *Orchestrator) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}
