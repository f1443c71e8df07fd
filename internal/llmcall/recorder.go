package llmcall

import (
	"github.com/jackzampolin/stockmeta/internal/providers"
)

// Recorder handles fire-and-forget call recording via a Sink.
// A nil Recorder, or one without a sink, records nothing.
type Recorder struct {
	sink *Sink
}

// NewRecorder creates a new call recorder.
func NewRecorder(sink *Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record captures one attempt asynchronously.
func (r *Recorder) Record(result *providers.VisionResult, err error, opts RecordOptions) {
	if r == nil || r.sink == nil {
		return
	}
	r.sink.Send(FromResult(result, err, opts))
}

// RecordCall captures an already-constructed Call asynchronously.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || r.sink == nil || call == nil {
		return
	}
	r.sink.Send(call)
}
