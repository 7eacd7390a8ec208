// Package fairness computes per-group rates and aggregate disparity for
// binary leak decisions over any number of groups.
//
// A rate is undefined when its denominator is zero (no positives for TPR,
// no negatives for FPR). Undefined rates are excluded from the aggregate and
// reported in Result.Excluded; a component with fewer than two defined rates
// has disparity 0 and marks the result degenerate.
package fairness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/idlab-discover/fairleak/internal/decision"
)

// Value is a rate that may be undefined.
type Value struct {
	V       float64
	Defined bool
}

func (v Value) String() string {
	if !v.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v.V)
}

func valueOf(v float64, ok bool) Value { return Value{V: v, Defined: ok} }

// GroupRates holds one group's confusion counts and derived rates.
type GroupRates struct {
	Group        string
	Counts       decision.Counts
	TPR          Value
	FPR          Value
	PositiveRate Value
	Accuracy     Value
}

// Get returns the value of one rate.
func (g GroupRates) Get(r Rate) Value {
	switch r {
	case TPR:
		return g.TPR
	case FPR:
		return g.FPR
	default:
		return g.PositiveRate
	}
}

// Component is the disparity over one rate.
type Component struct {
	Rate       Rate
	Disparity  float64
	Excluded   []string
	Degenerate bool
}

// Result is the outcome of one evaluation.
type Result struct {
	Metric      Metric
	Aggregation Aggregation
	Groups      []GroupRates
	Components  []Component
	Disparity   float64
	Accuracy    float64
	Overall     decision.Counts
	// Excluded lists "group:rate" entries left out of the aggregate.
	Excluded   []string
	Degenerate bool
}

// Group returns the rates of a named group.
func (r Result) Group(name string) (GroupRates, bool) {
	for _, g := range r.Groups {
		if g.Group == name {
			return g, true
		}
	}
	return GroupRates{}, false
}

// Evaluate tallies the decisions in obs per group and scores them.
func Evaluate(obs []decision.Observation, m Metric, a Aggregation) Result {
	per, _ := decision.Tally(obs)
	return EvaluateCounts(decision.Groups(obs), per, m, a)
}

// Check reports an ErrUnknown error unless m and a are supported. The
// empty aggregation selects MaxGap.
func Check(m Metric, a Aggregation) error {
	if m.Rates() == nil {
		return fmt.Errorf("%w: metric %q (expected %s)", ErrUnknown, m, strings.Join(MetricNames(), "|"))
	}
	if _, err := ParseAggregation(string(a)); err != nil {
		return err
	}
	return nil
}

// EvaluateCounts scores precomputed confusion counts. Groups are reported in
// the given order; groups missing from order are appended sorted.
// m must pass Check: an unknown metric has no components and scores 0.
func EvaluateCounts(order []string, per map[string]decision.Counts, m Metric, a Aggregation) Result {
	if a == "" {
		a = MaxGap
	}
	res := Result{Metric: m, Aggregation: a}

	names := append([]string(nil), order...)
	listed := make(map[string]bool, len(names))
	for _, n := range names {
		listed[n] = true
	}
	var extra []string
	for n := range per {
		if !listed[n] {
			extra = append(extra, n)
		}
	}
	sort.Strings(extra)
	names = append(names, extra...)

	for _, n := range names {
		c := per[n]
		res.Overall.Merge(c)
		res.Groups = append(res.Groups, GroupRates{
			Group:        n,
			Counts:       c,
			TPR:          valueOf(c.TPR()),
			FPR:          valueOf(c.FPR()),
			PositiveRate: valueOf(c.PositiveRate()),
			Accuracy:     valueOf(c.Accuracy()),
		})
	}
	if acc, ok := res.Overall.Accuracy(); ok {
		res.Accuracy = acc
	}

	for _, rate := range m.Rates() {
		comp := Component{Rate: rate}
		var vals []float64
		for _, g := range res.Groups {
			v := g.Get(rate)
			if !v.Defined {
				comp.Excluded = append(comp.Excluded, g.Group)
				res.Excluded = append(res.Excluded, g.Group+":"+string(rate))
				continue
			}
			vals = append(vals, v.V)
		}
		comp.Degenerate = len(vals) < 2
		comp.Disparity = a.Reduce(vals)
		res.Degenerate = res.Degenerate || comp.Degenerate
		if comp.Disparity > res.Disparity {
			res.Disparity = comp.Disparity
		}
		res.Components = append(res.Components, comp)
	}
	return res
}

// PrintReport writes the result to the package logger, if one is set.
func PrintReport(r Result) {
	logf(string(r.Metric), "disparity=%.4f (%s) accuracy=%.4f", r.Disparity, r.Aggregation, r.Accuracy)
	for _, g := range r.Groups {
		logf(string(r.Metric), "group %s: tpr=%s fpr=%s n=%d", g.Group, g.TPR, g.FPR, g.Counts.Total())
	}
	if len(r.Excluded) > 0 {
		logf(string(r.Metric), "excluded (undefined): %v", r.Excluded)
	}
	if r.Degenerate {
		logf(string(r.Metric), "degenerate: fewer than two groups with a defined rate")
	}
}
