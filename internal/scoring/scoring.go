// Package scoring defines the symbol evaluation collaborator and runs it
// off the request goroutine.
package scoring

import (
	"context"
	"maps"
)

// Result is the evaluation of a single symbol.
type Result struct {
	Symbol        string             `json:"symbol"`
	Hotness       float64            `json:"hotness"`
	Strategies    map[string]float64 `json:"strategies"`
	Survivability map[string]float64 `json:"survivability,omitempty"`
}

// Empty reports whether the evaluator produced nothing for the symbol.
func (r Result) Empty() bool {
	return r.Symbol == ""
}

func (r Result) clone() Result {
	r.Strategies = maps.Clone(r.Strategies)
	r.Survivability = maps.Clone(r.Survivability)
	return r
}

// Evaluator scores a symbol. Implementations may block.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string) (Result, error)
}

// Func adapts a plain function to an Evaluator.
type Func func(ctx context.Context, symbol string) (Result, error)

func (f Func) Evaluate(ctx context.Context, symbol string) (Result, error) {
	return f(ctx, symbol)
}
