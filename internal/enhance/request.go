package enhance

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/idlab-discover/fairleak/internal/fairness"
)

// Method selects the adjustment family searched by Enhance.
type Method string

func (m Method) String() string { return string(m) }

const (
	// GroupThreshold picks one decision threshold per group on the base score.
	GroupThreshold Method = "group-threshold"
	// EnsembleReweight keeps the global threshold and picks per-group convex
	// weights over the ensemble members.
	EnsembleReweight Method = "ensemble-reweight"
)

// Methods lists the supported methods.
func Methods() []Method { return []Method{GroupThreshold, EnsembleReweight} }

// ParseMethod resolves a method name.
func ParseMethod(s string) (Method, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", "threshold", string(GroupThreshold):
		return GroupThreshold, nil
	case "reweight", "ensemble", string(EnsembleReweight):
		return EnsembleReweight, nil
	}
	return "", fmt.Errorf("%w: method %q (expected group-threshold|ensemble-reweight)", fairness.ErrUnknown, s)
}

const (
	DefaultWeightSteps = 10
	// maxWeightVectors bounds the ensemble grid per group.
	maxWeightVectors = 20000
)

// ErrRequest reports an invalid enhancement request.
var ErrRequest = errors.New("invalid enhancement request")

// Request configures one enhancement run.
type Request struct {
	Metric      fairness.Metric
	Aggregation fairness.Aggregation
	Method      Method
	// Threshold is the global decision threshold on the (combined) score.
	Threshold float64
	// Budget is the largest accepted accuracy loss, as a fraction.
	Budget float64
	// Tolerance is the disparity at or below which a result counts as fair.
	Tolerance   float64
	WeightSteps int
}

func (r Request) withDefaults() Request {
	if r.Aggregation == "" {
		r.Aggregation = fairness.MaxGap
	}
	if r.Method == "" {
		r.Method = GroupThreshold
	}
	if r.WeightSteps == 0 {
		r.WeightSteps = DefaultWeightSteps
	}
	return r
}

// Validate checks the request fields.
func (r Request) Validate() error {
	r = r.withDefaults()
	if r.Metric.Rates() == nil {
		return fmt.Errorf("%w: unknown metric %q", ErrRequest, r.Metric)
	}
	if _, err := fairness.ParseAggregation(string(r.Aggregation)); err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if _, err := ParseMethod(string(r.Method)); err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) {
		return fmt.Errorf("%w: threshold must be finite", ErrRequest)
	}
	if r.Budget < 0 || r.Budget > 1 || math.IsNaN(r.Budget) {
		return fmt.Errorf("%w: budget must be within [0,1], got %g", ErrRequest, r.Budget)
	}
	if r.Tolerance < 0 || math.IsNaN(r.Tolerance) {
		return fmt.Errorf("%w: tolerance must be >= 0, got %g", ErrRequest, r.Tolerance)
	}
	if r.WeightSteps < 1 {
		return fmt.Errorf("%w: weight-steps must be >= 1, got %d", ErrRequest, r.WeightSteps)
	}
	return nil
}
