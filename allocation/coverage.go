/*
coverage.go - Required-vs-reserved classification for a material line

PURPOSE:
  Computes how much of a work-order material line's demand is covered by
  active reservations. This is the number behind the reservation progress
  display and the none/partial/full/over badge.

KEY INSIGHT:
  Coverage is a pure function of (required, reserved), recomputed on every
  read and after every mutation. It is never persisted, so it can never go
  stale or diverge from the reservation ledger.

PERCENT SEMANTICS:
  percent is NOT capped at 100: reserved=130 of required=100 reports 130.
  Progress() is the bounded reading for progress indicators and clamps at
  200 so a runaway over-reservation cannot blow up a display; the raw
  Percent stays exact.

  required == 0 is a degenerate line: percent is 100 when anything is
  reserved (all of nothing is covered), 0 otherwise.

SEE ALSO:
  - engine.go: Returns a CoverageResult from every commit and release
*/
package allocation

import "github.com/shopspring/decimal"

// CoverageStatus classifies reserved against required.
type CoverageStatus string

const (
	CoverageNone    CoverageStatus = "none"
	CoveragePartial CoverageStatus = "partial"
	CoverageFull    CoverageStatus = "full"
	CoverageOver    CoverageStatus = "over"
)

// maxProgress bounds the progress-indicator reading, not the raw percent.
const maxProgress = 200

// CoverageResult is the computed coverage of one material line.
type CoverageResult struct {
	Status    CoverageStatus
	Percent   int64 // uncapped: 130% over-reservation reports 130
	Shortfall decimal.Decimal
	Excess    decimal.Decimal
	Required  decimal.Decimal
	Reserved  decimal.Decimal
}

// Progress returns the percent clamped to [0, 200] for bounded progress
// indicators.
func (c CoverageResult) Progress() int64 {
	if c.Percent > maxProgress {
		return maxProgress
	}
	return c.Percent
}

// Coverage computes the coverage of reserved against required.
func Coverage(required, reserved decimal.Decimal) CoverageResult {
	result := CoverageResult{
		Required:  required,
		Reserved:  reserved,
		Shortfall: decimal.Max(decimal.Zero, required.Sub(reserved)),
		Excess:    decimal.Max(decimal.Zero, reserved.Sub(required)),
	}

	if required.IsZero() {
		if reserved.IsPositive() {
			result.Percent = 100
		}
	} else {
		result.Percent = reserved.Div(required).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	}

	switch {
	case !reserved.IsPositive():
		result.Status = CoverageNone
	case reserved.GreaterThan(required):
		result.Status = CoverageOver
	case reserved.Equal(required):
		result.Status = CoverageFull
	default:
		result.Status = CoveragePartial
	}
	return result
}
