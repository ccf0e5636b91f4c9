package scoring

import (
	"context"

	"github.com/shopspring/decimal"
)

const scorePlaces = 3

var (
	survivability2m = decimal.NewFromFloat(0.7)
	survivability3m = decimal.NewFromFloat(0.5)
)

// Placeholder is a deterministic stand-in for the real evaluation pipeline.
// The score is the code point sum of the symbol modulo 100, scaled to [0,1).
type Placeholder struct{}

func (Placeholder) Evaluate(_ context.Context, symbol string) (Result, error) {
	var sum int64
	for _, r := range symbol {
		sum += int64(r)
	}
	score := decimal.NewFromInt(sum % 100).Div(decimal.NewFromInt(100)).Round(scorePlaces)
	hot := score.InexactFloat64()

	return Result{
		Symbol:     symbol,
		Hotness:    hot,
		Strategies: map[string]float64{"demo": hot},
		Survivability: map[string]float64{
			"1m": hot,
			"2m": score.Mul(survivability2m).Round(scorePlaces).InexactFloat64(),
			"3m": score.Mul(survivability3m).Round(scorePlaces).InexactFloat64(),
		},
	}, nil
}
