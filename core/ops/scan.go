package ops

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/jdelaire/scanrelay/core/policy"
	"github.com/jdelaire/scanrelay/internal/scoring"
)

const (
	ScanUsageText   = "Usage: /scan SYMBOL (admin only)"
	ScanDeniedText  = "Permission denied. Admins only."
	ScanFailureText = "Scan failed (see logs)"
)

// Scorer evaluates a symbol. *scoring.Runner satisfies it.
type Scorer interface {
	Evaluate(ctx context.Context, symbol string) (scoring.Result, error)
}

// ScanOp evaluates a symbol for the admin chat.
type ScanOp struct {
	Policy *policy.Policy
	Scorer Scorer
}

func (s *ScanOp) Name() string         { return "scan" }
func (s *ScanOp) Description() string  { return "Score a symbol (admin only)" }
func (s *ScanOp) FailureReply() string { return ScanFailureText }

func (s *ScanOp) Execute(ctx context.Context, req Request) (string, error) {
	if len(req.Args) == 0 {
		return ScanUsageText, nil
	}
	if err := s.Policy.Authorize(req.ChatID); err != nil {
		return ScanDeniedText, nil
	}

	symbol := strings.ToUpper(req.Args[0])
	result, err := s.Scorer.Evaluate(ctx, symbol)
	if err != nil {
		return "", fmt.Errorf("evaluate %s: %w", symbol, err)
	}
	if result.Empty() {
		return fmt.Sprintf("No result for %s", symbol), nil
	}
	return FormatResult(result), nil
}

// FormatResult renders an evaluation as a Markdown chat message.
// Strategies are listed in name order.
func FormatResult(r scoring.Result) string {
	names := lo.Keys(r.Strategies)
	slices.Sort(names)
	pairs := lo.Map(names, func(name string, _ int) string {
		return name + ":" + formatScore(r.Strategies[name])
	})
	return fmt.Sprintf("*%s* HOTNESS: *%s*\nStrategies: %s",
		r.Symbol, formatScore(r.Hotness), strings.Join(pairs, ", "))
}

// formatScore keeps one decimal place on whole numbers so 0 renders as 0.0.
func formatScore(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
