package fairness

import (
	"errors"
	"fmt"
	"strings"

	"github.com/idlab-discover/fairleak/internal/decision"
)

// ErrUnknown reports an unsupported metric or aggregation name.
var ErrUnknown = errors.New("unknown fairness option")

// Rate identifies a per-group rate derived from confusion counts.
type Rate string

func (r Rate) String() string { return string(r) }

const (
	TPR          Rate = "tpr"
	FPR          Rate = "fpr"
	PositiveRate Rate = "positive-rate"
)

// Of computes the rate for one group. ok is false when the rate is undefined.
func (r Rate) Of(c decision.Counts) (float64, bool) {
	switch r {
	case TPR:
		return c.TPR()
	case FPR:
		return c.FPR()
	default:
		return c.PositiveRate()
	}
}

// Metric is one of the supported group fairness criteria.
type Metric string

func (m Metric) String() string { return string(m) }

const (
	EqualOpportunity   Metric = "equal-opportunity"
	EqualizedOdds      Metric = "equalized-odds"
	PredictiveEquality Metric = "predictive-equality"
	DemographicParity  Metric = "demographic-parity"
)

// MetricSpec describes a metric as the rates whose spread it measures.
type MetricSpec struct {
	Metric      Metric
	Rates       []Rate
	Description string
}

var registry = []MetricSpec{
	{Metric: EqualOpportunity, Rates: []Rate{TPR}, Description: "spread of true positive rates"},
	{Metric: EqualizedOdds, Rates: []Rate{TPR, FPR}, Description: "max of the TPR and FPR spreads"},
	{Metric: PredictiveEquality, Rates: []Rate{FPR}, Description: "spread of false positive rates"},
	{Metric: DemographicParity, Rates: []Rate{PositiveRate}, Description: "spread of positive decision rates"},
}

// Registry lists the supported metrics.
func Registry() []MetricSpec {
	out := make([]MetricSpec, len(registry))
	copy(out, registry)
	return out
}

// Rates returns the rate components of m.
func (m Metric) Rates() []Rate {
	for _, s := range registry {
		if s.Metric == m {
			return append([]Rate(nil), s.Rates...)
		}
	}
	return nil
}

// ParseMetric resolves a metric name. Underscores and case are ignored.
func ParseMetric(s string) (Metric, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch name {
	case "eo", "eopp":
		return EqualOpportunity, nil
	case "eodds":
		return EqualizedOdds, nil
	}
	for _, spec := range registry {
		if string(spec.Metric) == name {
			return spec.Metric, nil
		}
	}
	return "", fmt.Errorf("%w: metric %q (expected %s)", ErrUnknown, s, strings.Join(MetricNames(), "|"))
}

// MetricNames lists metric names in registry order.
func MetricNames() []string {
	out := make([]string, len(registry))
	for i, s := range registry {
		out[i] = string(s.Metric)
	}
	return out
}
