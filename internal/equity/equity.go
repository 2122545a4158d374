// Package equity derives raised-versus-equity-granted series from CRM state.
package equity

import (
	"math"
	"sort"

	"github.com/ajitpratap0/fundcrm/internal/models"
)

const (
	// DefaultValuationCap is used for rounds whose cap is zero or unset.
	DefaultValuationCap = 10_000_000
	// DefaultEpsilon is the floor, in millions, for cumulative raised values.
	// The series feeds a log-scale axis that cannot show zero.
	DefaultEpsilon = 0.001

	millions = 1_000_000
)

// Options tunes Compute. Zero fields take the package defaults.
type Options struct {
	DefaultValuationCap float64
	Epsilon             float64
}

func (o Options) withDefaults() Options {
	if o.DefaultValuationCap <= 0 {
		o.DefaultValuationCap = DefaultValuationCap
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	return o
}

// Series holds the actual (finalized commitments) and target (round goals)
// equity point sequences, both ordered by round order.
type Series struct {
	Actual []models.EquityPoint `json:"actual"`
	Target []models.EquityPoint `json:"target"`
}

// running accumulates cumulative totals for one series.
type running struct {
	raised float64
	equity float64
}

func (r *running) point(rd models.Round, amount, valuation, eps float64) models.EquityPoint {
	granted := amount * 100 / valuation
	r.raised += amount
	r.equity += granted
	return models.EquityPoint{
		AmountRaised:     amount / millions,
		CumulativeRaised: math.Max(r.raised/millions, eps),
		EquityGranted:    granted,
		CumulativeEquity: r.equity,
		Label:            rd.Name,
		Order:            rd.Order,
	}
}

// Compute walks the rounds of s in order and returns both series.
// A round contributes an actual point only when it holds at least one
// finalized VC with a purchase amount.
func Compute(s models.State, opts Options) Series {
	opts = opts.withDefaults()

	rounds := make([]models.Round, len(s.Rounds))
	copy(rounds, s.Rounds)
	sort.SliceStable(rounds, func(i, j int) bool { return rounds[i].Order < rounds[j].Order })

	out := Series{
		Actual: []models.EquityPoint{},
		Target: make([]models.EquityPoint, 0, len(rounds)),
	}
	var actual, target running
	for _, rd := range rounds {
		valuation := rd.ValuationCap
		if valuation <= 0 {
			valuation = opts.DefaultValuationCap
		}

		out.Target = append(out.Target, target.point(rd, math.Max(rd.TargetAmount, 0), valuation, opts.Epsilon))

		sum, found := 0.0, false
		for _, id := range rd.VCs {
			vc, ok := s.VCs[id]
			if !ok {
				continue
			}
			if amt, ok := vc.Commitment(); ok {
				sum += amt
				found = true
			}
		}
		if found {
			out.Actual = append(out.Actual, actual.point(rd, sum, valuation, opts.Epsilon))
		}
	}
	return out
}

// FounderEquity is the percentage left to founders after every actual round.
func FounderEquity(actual []models.EquityPoint) float64 {
	if len(actual) == 0 {
		return 100
	}
	return 100 - actual[len(actual)-1].CumulativeEquity
}

// FounderSeries returns founder equity after each actual point.
func FounderSeries(actual []models.EquityPoint) []float64 {
	out := make([]float64, len(actual))
	for i, p := range actual {
		out[i] = 100 - p.CumulativeEquity
	}
	return out
}
