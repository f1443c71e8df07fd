package metrics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jackzampolin/stockmeta/internal/llmcall"
)

// Stats aggregates a set of calls.
type Stats struct {
	Count        int `json:"count" yaml:"count"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	ErrorCount   int `json:"error_count" yaml:"error_count"`

	// Overloaded counts 503 responses, each of which triggered a backoff.
	Overloaded int `json:"overloaded" yaml:"overloaded"`

	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
	TotalTokens  int `json:"total_tokens" yaml:"total_tokens"`

	// Latency in milliseconds
	LatencyAvg float64 `json:"latency_avg_ms" yaml:"latency_avg_ms"`
	LatencyP50 float64 `json:"latency_p50_ms" yaml:"latency_p50_ms"`
	LatencyP95 float64 `json:"latency_p95_ms" yaml:"latency_p95_ms"`
	LatencyMax float64 `json:"latency_max_ms" yaml:"latency_max_ms"`

	CostUSD decimal.Decimal `json:"cost_usd" yaml:"-"`
	// Cost is CostUSD as a fixed-point string for YAML output.
	Cost string `json:"-" yaml:"cost_usd"`

	latencies []float64
}

// Summary is the overall Stats plus a per-model breakdown.
type Summary struct {
	Stats          `yaml:",inline"`
	Images         int               `json:"images" yaml:"images"`
	ByModel        map[string]*Stats `json:"by_model,omitempty" yaml:"by_model,omitempty"`
	UnpricedModels []string          `json:"unpriced_models,omitempty" yaml:"unpriced_models,omitempty"`
}

// Summarize aggregates calls. Images counts distinct image IDs.
func Summarize(calls []llmcall.Call, pricing Pricing) *Summary {
	s := &Summary{ByModel: make(map[string]*Stats)}
	images := make(map[string]bool)
	unpriced := make(map[string]bool)

	for i := range calls {
		c := &calls[i]
		if c.ImageID != "" {
			images[c.ImageID] = true
		}
		price, ok := pricing.Lookup(c.Model)
		if !ok && c.Model != "" && (c.InputTokens > 0 || c.OutputTokens > 0) {
			unpriced[c.Model] = true
		}
		cost := price.Cost(c.InputTokens, c.OutputTokens)

		m := s.ByModel[c.Model]
		if m == nil {
			m = &Stats{}
			s.ByModel[c.Model] = m
		}
		m.add(c, cost)
		s.Stats.add(c, cost)
	}

	s.Stats.finish()
	for _, m := range s.ByModel {
		m.finish()
	}
	s.Images = len(images)
	for model := range unpriced {
		s.UnpricedModels = append(s.UnpricedModels, model)
	}
	sort.Strings(s.UnpricedModels)
	return s
}

func (st *Stats) add(c *llmcall.Call, cost decimal.Decimal) {
	st.Count++
	if c.Success {
		st.SuccessCount++
	} else {
		st.ErrorCount++
	}
	if c.StatusCode == 503 {
		st.Overloaded++
	}
	st.InputTokens += c.InputTokens
	st.OutputTokens += c.OutputTokens
	st.TotalTokens += c.InputTokens + c.OutputTokens
	st.CostUSD = st.CostUSD.Add(cost)
	if c.LatencyMs > 0 {
		st.latencies = append(st.latencies, float64(c.LatencyMs))
	}
}

func (st *Stats) finish() {
	st.Cost = st.CostUSD.StringFixed(6)
	if len(st.latencies) == 0 {
		return
	}
	sort.Float64s(st.latencies)
	var sum float64
	for _, l := range st.latencies {
		sum += l
	}
	st.LatencyAvg = sum / float64(len(st.latencies))
	st.LatencyP50 = percentile(st.latencies, 50)
	st.LatencyP95 = percentile(st.latencies, 95)
	st.LatencyMax = st.latencies[len(st.latencies)-1]
	st.latencies = nil
}

// percentile calculates the p-th percentile from a sorted slice of values,
// interpolating between neighbours.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	idx := (p / 100.0) * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
