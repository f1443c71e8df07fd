package llmcall

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SinkConfig configures the call log sink.
type SinkConfig struct {
	Path          string        // JSON Lines file, created if missing
	BatchSize     int           // Flush after N calls (default: 20)
	FlushInterval time.Duration // Or after duration (default: 2s)
	QueueSize     int           // Buffer size (default: 256)
	Logger        *slog.Logger
}

// Sink batches Call records and appends them to a JSON Lines file from a
// single writer goroutine.
type Sink struct {
	path   string
	logger *slog.Logger

	batchSize     int
	flushInterval time.Duration

	queue   chan *Call
	flushCh chan chan struct{}
	batch   []*Call

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

// NewSink creates a new sink. Call Start before Send.
func NewSink(cfg SinkConfig) *Sink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sink{
		path:          cfg.Path,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan *Call, cfg.QueueSize),
		flushCh:       make(chan chan struct{}),
		batch:         make([]*Call, 0, cfg.BatchSize),
	}
}

// Path returns the log file path.
func (s *Sink) Path() string {
	return s.path
}

// Start begins processing.
func (s *Sink) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop flushes everything queued and shuts the sink down.
func (s *Sink) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		close(s.queue)
		s.mu.Unlock()

		s.wg.Wait()
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Send queues a call (fire-and-forget). Calls sent after Stop are dropped.
func (s *Sink) Send(call *Call) {
	if call == nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		s.logger.Warn("call sink stopped, dropping record", "call_id", call.ID)
		return
	}
	s.queue <- call
}

// Flush writes out whatever is batched and waits for the write to finish.
func (s *Sink) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.flushCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sink) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case call, ok := <-s.queue:
			if !ok {
				s.flush()
				return
			}
			s.batch = append(s.batch, call)
			if len(s.batch) >= s.batchSize {
				s.flush()
			}
		case <-ticker.C:
			s.flush()
		case done := <-s.flushCh:
			// Drain what is already queued so Flush covers every prior Send.
			for drained := false; !drained; {
				select {
				case call, ok := <-s.queue:
					if !ok {
						drained = true
						break
					}
					s.batch = append(s.batch, call)
				default:
					drained = true
				}
			}
			s.flush()
			close(done)
		case <-ctx.Done():
			s.flush()
			return
		}
	}
}

func (s *Sink) flush() {
	if len(s.batch) == 0 {
		return
	}
	calls := s.batch
	s.batch = make([]*Call, 0, s.batchSize)

	if err := s.appendCalls(calls); err != nil {
		s.logger.Error("failed to write call log", "path", s.path, "count", len(calls), "error", err)
		return
	}
	s.logger.Debug("flushed call log", "count", len(calls))
}

func (s *Sink) appendCalls(calls []*Call) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create call log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open call log: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, c := range calls {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to encode call %s: %w", c.ID, err)
		}
	}
	return w.Flush()
}
