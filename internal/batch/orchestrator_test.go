package batch

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/inference"
	"github.com/jackzampolin/stockmeta/internal/metadata"
	"github.com/jackzampolin/stockmeta/internal/providers"
)

type recordingObserver struct {
	mu       sync.Mutex
	starts   []string
	progress []Progress
	failed   []string
	errs     []error
	done     []string
	events   []inference.EventKind
	finished int
}

func (r *recordingObserver) OnStart(batchID string, total int) {}

func (r *recordingObserver) OnItemStart(index, total int, item Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts = append(r.starts, item.Image.Name)
}

func (r *recordingObserver) OnInference(e inference.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Kind)
}

func (r *recordingObserver) OnItemDone(item Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, item.Image.Name)
}

func (r *recordingObserver) OnItemFailed(item Item, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, item.Image.Name)
	r.errs = append(r.errs, err)
}

func (r *recordingObserver) OnProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recordingObserver) OnFinish(results []*metadata.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newMockGenerator(mock *providers.MockClient) *inference.Client {
	return inference.NewClient(inference.Config{
		Vision: mock,
		Policy: &inference.RetryPolicy{Delays: inference.DefaultDelays, Sleep: noSleep},
	})
}

func testImages() []*images.Image {
	return []*images.Image{
		images.FromBytes("first.png", []byte("first")),
		images.FromBytes("second.png", []byte("second")),
		images.FromBytes("third.png", []byte("third")),
	}
}

func TestGenerateBatchPartialFailure(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "TITLE- Fine Image\nKEYWORDS- fine"
	mock.FailFor = map[string]error{
		"second": &providers.APIError{StatusCode: http.StatusBadRequest, Message: "bad image"},
	}
	obs := &recordingObserver{}
	o := New(Config{Generator: newMockGenerator(mock), Observer: obs})

	imgs := testImages()
	results := o.GenerateBatch(context.Background(), imgs, "key")

	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	last := obs.progress[len(obs.progress)-1]
	if last != (Progress{Completed: 3, Total: 3}) {
		t.Errorf("final progress = %+v, want 3/3", last)
	}
	if len(obs.progress) != 3 || obs.progress[0].Completed != 1 {
		t.Errorf("progress = %+v", obs.progress)
	}
	if !reflect.DeepEqual(obs.failed, []string{"second.png"}) {
		t.Errorf("failed = %v", obs.failed)
	}
	if !reflect.DeepEqual(obs.done, []string{"first.png", "third.png"}) {
		t.Errorf("done = %v", obs.done)
	}
	if obs.finished != 1 {
		t.Errorf("OnFinish calls = %d", obs.finished)
	}

	items := o.Items()
	if len(items) != 2 || items[0].ID != imgs[0].ID || items[1].ID != imgs[2].ID {
		t.Errorf("items = %+v", items)
	}
	for _, it := range items {
		if it.Status != StatusDone || it.Result == nil {
			t.Errorf("item %s status=%s result=%v", it.Image.Name, it.Status, it.Result)
		}
	}
	if _, ok := o.Get(imgs[1].ID); ok {
		t.Error("failed item should be removed")
	}
	if got := len(o.Results()); got != 2 {
		t.Errorf("Results() = %d", got)
	}
}

func TestGenerateBatchAllFailAuth(t *testing.T) {
	mock := providers.NewMockClient()
	obs := &recordingObserver{}
	o := New(Config{Generator: newMockGenerator(mock), Observer: obs})

	results := o.GenerateBatch(context.Background(), testImages(), "")
	if len(results) != 0 {
		t.Errorf("results = %d", len(results))
	}
	if mock.RequestCount() != 0 {
		t.Errorf("requests = %d, want 0", mock.RequestCount())
	}
	if last := obs.progress[len(obs.progress)-1]; last.Completed != 3 || last.Percent() != 100 {
		t.Errorf("final progress = %+v", last)
	}
	if o.Len() != 0 {
		t.Errorf("Len() = %d", o.Len())
	}
}

func TestGenerateBatchForwardsBackoff(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Script = []providers.MockStep{{StatusCode: http.StatusServiceUnavailable}}
	obs := &recordingObserver{}
	o := New(Config{Generator: newMockGenerator(mock), Observer: obs})

	results := o.GenerateBatch(context.Background(), testImages()[:1], "key")
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	want := []inference.EventKind{inference.EventAttempt, inference.EventBackoff, inference.EventAttempt}
	if !reflect.DeepEqual(obs.events, want) {
		t.Errorf("events = %v, want %v", obs.events, want)
	}
}

func TestGenerateBatchRetriesExhausted(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "TITLE- Fine Image\nKEYWORDS- fine"
	mock.FailFor = map[string]error{
		"second": &providers.APIError{StatusCode: http.StatusServiceUnavailable, Message: "overloaded"},
	}
	obs := &recordingObserver{}
	o := New(Config{Generator: newMockGenerator(mock), Observer: obs})

	results := o.GenerateBatch(context.Background(), testImages(), "key")
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !reflect.DeepEqual(obs.done, []string{"first.png", "third.png"}) {
		t.Errorf("done = %v", obs.done)
	}
	if last := obs.progress[len(obs.progress)-1]; last != (Progress{Completed: 3, Total: 3}) {
		t.Errorf("final progress = %+v, want 3/3", last)
	}
	if len(obs.errs) != 1 || !errors.Is(obs.errs[0], inference.ErrRetriesExhausted) {
		t.Fatalf("failure errors = %v, want ErrRetriesExhausted", obs.errs)
	}
	// one attempt each for first and third, four for second
	if got := mock.RequestCount(); got != 6 {
		t.Errorf("requests = %d, want 6", got)
	}
	backoffs := 0
	for _, k := range obs.events {
		if k == inference.EventBackoff {
			backoffs++
		}
	}
	if backoffs != 3 {
		t.Errorf("backoffs = %d, want 3", backoffs)
	}
}

type cancellingGenerator struct {
	cancel context.CancelFunc
	calls  int
}

func (g *cancellingGenerator) GenerateOne(ctx context.Context, img *images.Image, credential string, opts ...inference.CallOption) (*metadata.Result, error) {
	g.calls++
	if g.calls == 2 {
		g.cancel()
		return nil, ctx.Err()
	}
	return &metadata.Result{Title: img.Name, Keywords: []string{}}, nil
}

func TestGenerateBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &cancellingGenerator{cancel: cancel}
	obs := &recordingObserver{}
	o := New(Config{Generator: gen, Observer: obs})

	imgs := testImages()
	results := o.GenerateBatch(ctx, imgs, "key")
	if len(results) != 1 || results[0].Title != "first.png" {
		t.Fatalf("results = %+v", results)
	}
	if gen.calls != 2 {
		t.Errorf("calls = %d, want 2", gen.calls)
	}
	if len(obs.progress) != 1 || obs.progress[0].Completed != 1 {
		t.Errorf("progress = %+v", obs.progress)
	}
	if it, ok := o.Get(imgs[1].ID); !ok || it.Status != StatusPending {
		t.Errorf("interrupted item = %+v, %v; want pending", it, ok)
	}
	if it, ok := o.Get(imgs[2].ID); !ok || it.Status != StatusPending {
		t.Errorf("unreached item = %+v, %v; want pending", it, ok)
	}
}

type slowGenerator struct{}

func (slowGenerator) GenerateOne(ctx context.Context, img *images.Image, credential string, opts ...inference.CallOption) (*metadata.Result, error) {
	if img.Name == "second.png" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return &metadata.Result{Title: img.Name}, nil
}

func TestGenerateBatchItemTimeout(t *testing.T) {
	obs := &recordingObserver{}
	o := New(Config{Generator: slowGenerator{}, Observer: obs, ItemTimeout: 20 * time.Millisecond})

	results := o.GenerateBatch(context.Background(), testImages(), "key")
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if len(obs.failed) != 1 || obs.failed[0] != "second.png" {
		t.Errorf("failed = %v", obs.failed)
	}
	if last := obs.progress[len(obs.progress)-1]; last.Completed != 3 || last.Total != 3 {
		t.Errorf("final progress = %+v", last)
	}
}

type scriptedGenerator struct {
	results []*metadata.Result
	errs    []error
}

func (g *scriptedGenerator) GenerateOne(ctx context.Context, img *images.Image, credential string, opts ...inference.CallOption) (*metadata.Result, error) {
	res, err := g.results[0], g.errs[0]
	g.results, g.errs = g.results[1:], g.errs[1:]
	return res, err
}

func TestRegenerate(t *testing.T) {
	first := &metadata.Result{Title: "First", Keywords: []string{"a"}}
	second := &metadata.Result{Title: "Second", Keywords: []string{"b"}}
	gen := &scriptedGenerator{
		results: []*metadata.Result{first, nil, second},
		errs:    []error{nil, errors.New("boom"), nil},
	}
	o := New(Config{Generator: gen})
	img := images.FromBytes("only.png", []byte("x"))
	o.GenerateBatch(context.Background(), []*images.Image{img}, "key")

	t.Run("failure keeps previous record", func(t *testing.T) {
		if _, err := o.Regenerate(context.Background(), img.ID, "key"); err == nil {
			t.Fatal("expected error")
		}
		it, _ := o.Get(img.ID)
		if it.Result != first {
			t.Errorf("result = %+v, want first", it.Result)
		}
	})

	t.Run("success replaces in place", func(t *testing.T) {
		res, err := o.Regenerate(context.Background(), img.ID, "key")
		if err != nil {
			t.Fatalf("Regenerate() error = %v", err)
		}
		if res != second {
			t.Errorf("returned %+v", res)
		}
		it, _ := o.Get(img.ID)
		if it.Result != second || it.Status != StatusDone {
			t.Errorf("item = %+v", it)
		}
		if o.Len() != 1 {
			t.Errorf("Len() = %d", o.Len())
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := o.Regenerate(context.Background(), "nope", "key"); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("err = %v, want ErrItemNotFound", err)
		}
	})
}

func TestItemStore(t *testing.T) {
	o := New(Config{})
	imgs := testImages()
	ids := o.Enqueue(imgs...)

	if len(ids) != 3 || o.Len() != 3 {
		t.Fatalf("ids = %v", ids)
	}
	if len(o.Results()) != 0 {
		t.Error("pending items have no results")
	}

	res := &metadata.Result{Title: "Curated"}
	if err := o.SetResult(ids[1], res); err != nil {
		t.Fatalf("SetResult() error = %v", err)
	}
	if got := o.Results(); len(got) != 1 || got[0] != res {
		t.Errorf("Results() = %+v", got)
	}
	if err := o.SetResult("nope", res); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("SetResult(nope) = %v", err)
	}

	if !o.Remove(ids[0]) || o.Remove(ids[0]) {
		t.Error("Remove should succeed once")
	}
	items := o.Items()
	if len(items) != 2 || items[0].ID != ids[1] || items[1].ID != ids[2] {
		t.Errorf("items after remove = %+v", items)
	}

	// re-enqueueing an existing ID resets it without duplicating order
	o.Enqueue(imgs[1])
	if o.Len() != 2 {
		t.Errorf("Len() = %d", o.Len())
	}
	if it, _ := o.Get(ids[1]); it.Status != StatusPending {
		t.Errorf("status = %s", it.Status)
	}
}

func TestGenerateBatchRepeatedImage(t *testing.T) {
	gen := &scriptedGenerator{
		results: []*metadata.Result{{Title: "a"}, {Title: "b"}},
		errs:    []error{nil, nil},
	}
	obs := &recordingObserver{}
	o := New(Config{Generator: gen, Observer: obs})

	imgs := testImages()[:2]
	results := o.GenerateBatch(context.Background(), []*images.Image{imgs[0], imgs[1], imgs[0]}, "key")
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if !reflect.DeepEqual(obs.starts, []string{"first.png", "second.png"}) {
		t.Errorf("starts = %v", obs.starts)
	}
	if last := obs.progress[len(obs.progress)-1]; last != (Progress{Completed: 2, Total: 2}) {
		t.Errorf("final progress = %+v, want 2/2", last)
	}
	if ids := o.Enqueue(imgs[1], imgs[1]); len(ids) != 1 {
		t.Errorf("Enqueue(dup) ids = %v", ids)
	}
}

func TestProgressFunc(t *testing.T) {
	var got []Progress
	o := New(Config{
		Generator: &scriptedGenerator{
			results: []*metadata.Result{{Title: "a"}, nil},
			errs:    []error{nil, errors.New("x")},
		},
		Observer: ProgressFunc(func(p Progress) { got = append(got, p) }),
	})
	o.GenerateBatch(context.Background(), testImages()[:2], "key")
	want := []Progress{{1, 2}, {2, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %v, want %v", got, want)
	}
}
