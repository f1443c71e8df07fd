// Package metrics summarizes recorded inference calls: token usage, latency
// and estimated spend.
package metrics

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var million = decimal.NewFromInt(1_000_000)

// Price is the USD price per million tokens for one model.
type Price struct {
	InputPerMillion  decimal.Decimal
	OutputPerMillion decimal.Decimal
}

// Cost returns the price of one call's tokens.
func (p Price) Cost(inputTokens, outputTokens int) decimal.Decimal {
	in := p.InputPerMillion.Mul(decimal.NewFromInt(int64(inputTokens)))
	out := p.OutputPerMillion.Mul(decimal.NewFromInt(int64(outputTokens)))
	return in.Add(out).Div(million)
}

// Pricing maps model names to prices. Models without an entry cost zero and
// are listed in Summary.UnpricedModels.
type Pricing map[string]Price

// ParsePricing builds Pricing from decimal strings, e.g.
// {"gemini-1.5-flash": {"0.075", "0.30"}}.
func ParsePricing(raw map[string][2]string) (Pricing, error) {
	p := make(Pricing, len(raw))
	for model, v := range raw {
		in, err := decimal.NewFromString(v[0])
		if err != nil {
			return nil, fmt.Errorf("invalid input price for %s: %w", model, err)
		}
		out, err := decimal.NewFromString(v[1])
		if err != nil {
			return nil, fmt.Errorf("invalid output price for %s: %w", model, err)
		}
		if in.IsNegative() || out.IsNegative() {
			return nil, fmt.Errorf("negative price for %s", model)
		}
		p[model] = Price{InputPerMillion: in, OutputPerMillion: out}
	}
	return p, nil
}

// Lookup returns the price for model.
func (p Pricing) Lookup(model string) (Price, bool) {
	price, ok := p[model]
	return price, ok
}
