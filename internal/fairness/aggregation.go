package fairness

import (
	"fmt"
	"math"
	"strings"
)

// Aggregation reduces per-group rates to one disparity value.
type Aggregation string

func (a Aggregation) String() string { return string(a) }

const (
	// MaxGap is the largest pairwise difference, i.e. max minus min.
	MaxGap Aggregation = "max-gap"
	// MeanGap is the mean absolute difference over all group pairs.
	MeanGap Aggregation = "mean-gap"
)

// ParseAggregation resolves an aggregation name; empty selects MaxGap.
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "max", string(MaxGap):
		return MaxGap, nil
	case "mean", string(MeanGap):
		return MeanGap, nil
	}
	return "", fmt.Errorf("%w: aggregation %q (expected max-gap|mean-gap)", ErrUnknown, s)
}

// Reduce aggregates defined rate values. Fewer than two values give 0.
func (a Aggregation) Reduce(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	if a == MeanGap {
		var sum float64
		pairs := 0
		for i := 0; i < len(vals); i++ {
			for j := i + 1; j < len(vals); j++ {
				sum += math.Abs(vals[i] - vals[j])
				pairs++
			}
		}
		return sum / float64(pairs)
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}
