// Package enhance derives fairness-enhanced decisions for any number of
// groups by searching per-group operating points under an accuracy budget.
package enhance

import (
	"fmt"
	"math"

	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

// Status is the outcome of an enhancement run.
type Status string

const (
	StatusAdjusted    Status = "adjusted"
	StatusAlreadyFair Status = "already-fair"
	// StatusInfeasible is never set on an Outcome; reports use it for runs
	// that ended in an *InfeasibleError.
	StatusInfeasible  Status = "not-achievable"
)

// GroupAdjustment is the operating point chosen for one group.
type GroupAdjustment struct {
	Group string
	// Threshold applies to the base score (group-threshold) or to the
	// combined score (ensemble-reweight, always the global threshold).
	Threshold float64
	Weights   []float64
	Changed   bool
}

// Adjustment maps each group to its operating point.
type Adjustment struct {
	Method    Method
	Threshold float64
	Groups    []GroupAdjustment
}

// For returns the adjustment of a group.
func (a Adjustment) For(group string) (GroupAdjustment, bool) {
	for _, g := range a.Groups {
		if g.Group == group {
			return g, true
		}
	}
	return GroupAdjustment{}, false
}

// Apply returns copies of obs whose decisions follow the adjustment. The
// base score is rewritten so that the global threshold reproduces each
// decision, which lets the output be fed back into Enhance.
func (a Adjustment) Apply(obs []decision.Observation) []decision.Observation {
	out := decision.Clone(obs)
	theta := a.Threshold
	for i := range out {
		o := &out[i]
		g, ok := a.For(o.Group)
		if !ok || !g.Changed || len(o.Scores) == 0 {
			o.Decision = o.Score() >= theta
			continue
		}
		var s float64
		var flagged bool
		if g.Weights != nil {
			s = decision.Combine(o.Scores, g.Weights)
			flagged = s >= theta
		} else {
			flagged = o.Score() >= g.Threshold
			s = theta + (o.Score() - g.Threshold)
			below := math.Nextafter(theta, math.Inf(-1))
			switch {
			case math.IsInf(s, 0) || math.IsNaN(s):
				s = math.Min(o.Score(), below)
				if flagged {
					s = math.Max(o.Score(), theta)
				}
			case flagged && s < theta:
				s = theta
			case !flagged && s >= theta:
				s = below
			}
		}
		o.Scores[0] = s
		o.Decision = flagged
	}
	return out
}

// Outcome is a successful enhancement run.
type Outcome struct {
	Status     Status
	Request    Request
	Adjustment Adjustment
	Before     fairness.Result
	After      fairness.Result
}

// AccuracyLoss is the accuracy given up by the adjustment.
func (o *Outcome) AccuracyLoss() float64 { return o.Before.Accuracy - o.After.Accuracy }

func identity(method Method, theta float64, groups []string, k int) Adjustment {
	adj := Adjustment{Method: method, Threshold: theta}
	for _, g := range groups {
		ga := GroupAdjustment{Group: g, Threshold: theta}
		if method == EnsembleReweight {
			ga.Weights = baseWeights(k)
		}
		adj.Groups = append(adj.Groups, ga)
	}
	return adj
}

func members(obs []decision.Observation) (int, error) {
	k := len(obs[0].Scores)
	for _, o := range obs {
		if len(o.Scores) != k {
			return 0, fmt.Errorf("%w: observations carry %d and %d score members", ErrRequest, k, len(o.Scores))
		}
	}
	if k == 0 {
		return 0, fmt.Errorf("%w: observations carry no scores", ErrRequest)
	}
	return k, nil
}

// Enhance searches per-group operating points that minimise the disparity of
// req.Metric while losing at most req.Budget accuracy. Observations whose
// base decisions are already within req.Tolerance are returned unchanged
// with StatusAlreadyFair. When no admissible combination reaches the
// tolerance the error is an *InfeasibleError; under max-gap this is exact,
// as every tolerance window is searched.
func Enhance(obs []decision.Observation, req Request) (*Outcome, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: no observations", ErrRequest)
	}
	k, err := members(obs)
	if err != nil {
		return nil, err
	}
	if req.Method == EnsembleReweight {
		if n := gridSize(k, req.WeightSteps); n > maxWeightVectors {
			return nil, fmt.Errorf("%w: %d members with %d weight steps gives more than %d weight vectors",
				ErrRequest, k, req.WeightSteps, maxWeightVectors)
		}
	}

	theta := req.Threshold
	groups := decision.Groups(obs)
	before := fairness.Evaluate(decision.Decide(obs, theta), req.Metric, req.Aggregation)

	if before.Disparity <= req.Tolerance {
		logf(string(req.Method), "already fair: disparity=%.4f <= tolerance=%.4f", before.Disparity, req.Tolerance)
		return &Outcome{
			Status:     StatusAlreadyFair,
			Request:    req,
			Adjustment: identity(req.Method, theta, groups, k),
			Before:     before,
			After:      before,
		}, nil
	}

	split := byGroup(obs)
	s := &searcher{
		order:     groups,
		metric:    req.Metric,
		agg:       req.Aggregation,
		rates:     req.Metric.Rates(),
		baseAcc:   before.Accuracy,
		budget:    req.Budget,
		tolerance: req.Tolerance,
	}
	for _, g := range groups {
		if req.Method == EnsembleReweight {
			s.menus = append(s.menus, weightMenu(g, split[g], k, req.WeightSteps, theta))
		} else {
			s.menus = append(s.menus, thresholdMenu(g, split[g], theta))
		}
	}
	best := s.run()

	if best.disparity > req.Tolerance {
		logf(string(req.Method), "not achievable: best disparity=%.4f", best.disparity)
		return nil, &InfeasibleError{
			Metric:        req.Metric,
			Method:        req.Method,
			Tolerance:     req.Tolerance,
			Budget:        req.Budget,
			BestDisparity: best.disparity,
			BestAccuracy:  best.accuracy,
			Before:        before,
		}
	}

	adj := Adjustment{Method: req.Method, Threshold: theta}
	for gi, m := range s.menus {
		p := m.points[best.choice[gi]]
		adj.Groups = append(adj.Groups, GroupAdjustment{
			Group:     m.group,
			Threshold: p.threshold,
			Weights:   p.weights,
			Changed:   best.choice[gi] != 0,
		})
	}
	after := fairness.Evaluate(adj.Apply(obs), req.Metric, req.Aggregation)
	logf(string(req.Method), "adjusted: disparity %.4f -> %.4f, accuracy %.4f -> %.4f",
		before.Disparity, after.Disparity, before.Accuracy, after.Accuracy)

	return &Outcome{
		Status:     StatusAdjusted,
		Request:    req,
		Adjustment: adj,
		Before:     before,
		After:      after,
	}, nil
}
