package inference

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/jackzampolin/stockmeta/internal/images"
	"github.com/jackzampolin/stockmeta/internal/llmcall"
	"github.com/jackzampolin/stockmeta/internal/providers"
)

func newTestClient(mock *providers.MockClient, s *recordedSleep, rec *llmcall.Recorder) *Client {
	return NewClient(Config{
		Vision:   mock,
		Policy:   &RetryPolicy{Delays: DefaultDelays, Sleep: s.sleep},
		Recorder: rec,
	})
}

func TestGenerateOne(t *testing.T) {
	ctx := context.Background()
	img := images.FromBytes("cat.jpg", []byte("\xff\xd8\xff\xe0 fake jpeg"))

	t.Run("parses response", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "TITLE- Sample Title\nKEYWORDS- cat, dog, cat, dogs"
		c := newTestClient(mock, &recordedSleep{}, nil)

		res, err := c.GenerateOne(ctx, img, "key")
		if err != nil {
			t.Fatalf("GenerateOne() error = %v", err)
		}
		if res.Title != "Sample Title" {
			t.Errorf("Title = %q", res.Title)
		}
		if !reflect.DeepEqual(res.Keywords, []string{"cat", "dog"}) {
			t.Errorf("Keywords = %v", res.Keywords)
		}

		req := mock.Requests()[0]
		if req.APIKey != "key" || req.MIMEType != "image/jpeg" || string(req.Image) != "\xff\xd8\xff\xe0 fake jpeg" {
			t.Errorf("unexpected request: %+v", req)
		}
		if req.Prompt == "" || req.RequestID == "" {
			t.Error("expected prompt and request ID")
		}
	})

	t.Run("503 then success backs off once for 1s", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Script = []providers.MockStep{
			{StatusCode: http.StatusServiceUnavailable},
			{Text: "TITLE- Recovered"},
		}
		s := &recordedSleep{}
		c := newTestClient(mock, s, nil)

		var events []Event
		res, err := c.GenerateOne(ctx, img, "key", WithEvents(func(e Event) { events = append(events, e) }))
		if err != nil {
			t.Fatalf("GenerateOne() error = %v", err)
		}
		if res.Title != "Recovered" {
			t.Errorf("Title = %q", res.Title)
		}
		if len(s.delays) != 1 || s.delays[0] != time.Second {
			t.Errorf("delays = %v, want [1s]", s.delays)
		}
		if mock.RequestCount() != 2 {
			t.Errorf("requests = %d", mock.RequestCount())
		}

		kinds := make([]EventKind, len(events))
		for i, e := range events {
			kinds[i] = e.Kind
		}
		want := []EventKind{EventAttempt, EventBackoff, EventAttempt}
		if !reflect.DeepEqual(kinds, want) {
			t.Errorf("events = %v, want %v", kinds, want)
		}
		if b := events[1]; b.Attempt != 1 || b.MaxRetries != 3 || b.Delay != time.Second || b.ImageName != "cat.jpg" {
			t.Errorf("backoff event = %+v", b)
		}
	})

	t.Run("persistent 503 exhausts retries", func(t *testing.T) {
		mock := providers.NewMockClient()
		for i := 0; i < 4; i++ {
			mock.Script = append(mock.Script, providers.MockStep{StatusCode: http.StatusServiceUnavailable})
		}
		s := &recordedSleep{}
		c := newTestClient(mock, s, nil)

		_, err := c.GenerateOne(ctx, img, "key")
		if !errors.Is(err, ErrRetriesExhausted) {
			t.Fatalf("err = %v", err)
		}
		if apiErr, ok := providers.IsAPIError(err); !ok || apiErr.StatusCode != 503 {
			t.Errorf("err = %v, want 503 APIError", err)
		}
		if mock.RequestCount() != 4 || len(s.delays) != 3 {
			t.Errorf("requests=%d sleeps=%v", mock.RequestCount(), s.delays)
		}
	})

	t.Run("overload message on transport error is retried", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Script = []providers.MockStep{
			{Err: &providers.TransportError{Provider: "mock", Op: "request", Err: errors.New("upstream returned 503")}},
			{Text: "TITLE- Ok"},
		}
		s := &recordedSleep{}
		if _, err := newTestClient(mock, s, nil).GenerateOne(ctx, img, "key"); err != nil {
			t.Fatalf("GenerateOne() error = %v", err)
		}
		if len(s.delays) != 1 {
			t.Errorf("sleeps = %v", s.delays)
		}
	})

	t.Run("non-503 api error is terminal", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Script = []providers.MockStep{{StatusCode: http.StatusBadRequest}}
		s := &recordedSleep{}
		_, err := newTestClient(mock, s, nil).GenerateOne(ctx, img, "key")
		apiErr, ok := providers.IsAPIError(err)
		if !ok || apiErr.StatusCode != http.StatusBadRequest {
			t.Fatalf("err = %v, want 400 APIError", err)
		}
		if mock.RequestCount() != 1 || len(s.delays) != 0 {
			t.Errorf("requests=%d sleeps=%v", mock.RequestCount(), s.delays)
		}
	})

	t.Run("transport error is terminal", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Script = []providers.MockStep{{Err: &providers.TransportError{Provider: "mock", Op: "request", Err: errors.New("connection refused")}}}
		_, err := newTestClient(mock, &recordedSleep{}, nil).GenerateOne(ctx, img, "key")
		var te *providers.TransportError
		if !errors.As(err, &te) {
			t.Fatalf("err = %v, want TransportError", err)
		}
	})

	t.Run("empty credential makes no call", func(t *testing.T) {
		mock := providers.NewMockClient()
		_, err := newTestClient(mock, &recordedSleep{}, nil).GenerateOne(ctx, img, "  \t")
		if !errors.Is(err, ErrAuth) {
			t.Fatalf("err = %v, want ErrAuth", err)
		}
		if mock.RequestCount() != 0 {
			t.Errorf("requests = %d, want 0", mock.RequestCount())
		}
	})

	t.Run("empty text", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "  \n "
		_, err := newTestClient(mock, &recordedSleep{}, nil).GenerateOne(ctx, img, "key")
		if !errors.Is(err, ErrEmptyResponse) {
			t.Fatalf("err = %v, want ErrEmptyResponse", err)
		}
	})

	t.Run("unreadable image", func(t *testing.T) {
		mock := providers.NewMockClient()
		missing := &images.Image{Name: "gone.png", Path: filepath.Join(t.TempDir(), "gone.png")}
		if _, err := newTestClient(mock, &recordedSleep{}, nil).GenerateOne(ctx, missing, "key"); err == nil {
			t.Fatal("expected error")
		}
		if mock.RequestCount() != 0 {
			t.Error("expected no request")
		}
	})
}

func TestGenerateOneRecordsAttempts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	sink := llmcall.NewSink(llmcall.SinkConfig{Path: path, FlushInterval: time.Hour})
	sink.Start(context.Background())
	defer sink.Stop()

	mock := providers.NewMockClient()
	mock.Script = []providers.MockStep{{StatusCode: 503}, {Text: "TITLE- Logged"}}
	c := newTestClient(mock, &recordedSleep{}, llmcall.NewRecorder(sink))

	img := images.FromBytes("logged.png", []byte("\x89PNG\r\n\x1a\n"))
	if _, err := c.GenerateOne(context.Background(), img, "key", WithBatchID("batch-1")); err != nil {
		t.Fatalf("GenerateOne() error = %v", err)
	}
	if err := sink.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	calls, err := llmcall.NewStore(path).List(llmcall.QueryFilter{BatchID: "batch-1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("recorded %d calls, want 2", len(calls))
	}
	// newest first
	if !calls[0].Success || calls[0].Attempt != 2 {
		t.Errorf("latest call = %+v", calls[0])
	}
	if calls[1].Success || calls[1].StatusCode != 503 || calls[1].ImageID != img.ID {
		t.Errorf("first call = %+v", calls[1])
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrAuth, "missing API key"},
		{ErrEmptyResponse, "empty response from API"},
		{&providers.APIError{StatusCode: 400, Message: "bad"}, "API error 400: bad"},
		{&providers.TransportError{Err: errors.New("reset")}, "network error: reset"},
		{context.DeadlineExceeded, "timed out"},
	}
	for _, tt := range tests {
		if got := Describe(tt.err); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
