// Package fairleak is the public API for fairness analysis of leakage
// detection results: load a residual table with a sensor partition,
// evaluate group fairness, enhance it and compare configurations.
package fairleak

import (
	"context"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/experiment"
	"github.com/idlab-discover/fairleak/internal/fairness"
	"github.com/idlab-discover/fairleak/internal/group"
	"github.com/idlab-discover/fairleak/internal/residual"
)

type (
	Observation = decision.Observation
	Partition   = group.Partition
	Metric      = fairness.Metric
	Aggregation = fairness.Aggregation
	Result      = fairness.Result
	Method      = enhance.Method
	Request     = enhance.Request
	Outcome     = enhance.Outcome
	Adjustment  = enhance.Adjustment
	Config      = experiment.Config
	Report      = compare.Report
	Event       = compare.Event
)

const (
	EqualOpportunity   = fairness.EqualOpportunity
	EqualizedOdds      = fairness.EqualizedOdds
	PredictiveEquality = fairness.PredictiveEquality
	DemographicParity  = fairness.DemographicParity

	MaxGap  = fairness.MaxGap
	MeanGap = fairness.MeanGap

	GroupThreshold   = enhance.GroupThreshold
	EnsembleReweight = enhance.EnsembleReweight
)

var (
	ErrSchema     = residual.ErrSchema
	ErrPartition  = group.ErrConfig
	ErrInfeasible = enhance.ErrInfeasible
	ErrUnknown    = fairness.ErrUnknown
)

// LoadOptions names the input files.
type LoadOptions struct {
	Table  string
	Format string
	Sheet  string
	// Schema is a preset name ("default", "ltown"); Residuals overrides its
	// residual columns.
	Schema    string
	Residuals []string
	Stride    int
	Normalize bool

	// Leaks optionally names a leak-details table that labels the rows.
	Leaks string

	Sensors      string
	SensorFormat string
	Partition    string
}

// Load reads the residual table and the partition and aggregates them into
// one observation per (scenario, sensor).
func Load(opts LoadOptions) ([]Observation, *Partition, error) {
	schema, err := residual.Preset(opts.Schema)
	if err != nil {
		return nil, nil, err
	}
	if len(opts.Residuals) > 0 {
		schema = schema.Override(residual.Schema{Residuals: opts.Residuals})
	}
	cfg, err := group.LoadConfig(opts.Partition)
	if err != nil {
		return nil, nil, err
	}
	sensors, err := group.LoadSensors(opts.Sensors, opts.SensorFormat, "")
	if err != nil {
		return nil, nil, err
	}
	p, err := group.Assign(sensors, cfg)
	if err != nil {
		return nil, nil, err
	}
	table, err := residual.Load(opts.Table, residual.LoadOptions{
		Schema:    schema,
		Format:    opts.Format,
		Sheet:     opts.Sheet,
		Stride:    opts.Stride,
		Normalize: opts.Normalize,
		Leaks:     opts.Leaks,
	})
	if err != nil {
		return nil, nil, err
	}
	obs, err := decision.Aggregate(table, p)
	if err != nil {
		return nil, nil, err
	}
	return obs, p, nil
}

// BestThreshold returns the global threshold with the highest base accuracy.
func BestThreshold(obs []Observation) float64 { return decision.BestThreshold(obs) }

// Evaluate decides every observation at threshold and computes the metric.
// Unknown metrics and aggregations are rejected.
func Evaluate(obs []Observation, threshold float64, m Metric, a Aggregation) (Result, error) {
	if err := fairness.Check(m, a); err != nil {
		return Result{}, err
	}
	return fairness.Evaluate(decision.Decide(obs, threshold), m, a), nil
}

// Enhance runs one enhancement request. Infeasible targets return an
// error matching ErrInfeasible.
func Enhance(obs []Observation, req Request) (*Outcome, error) {
	return enhance.Enhance(obs, req)
}

// Compare evaluates every configuration at threshold.
func Compare(ctx context.Context, obs []Observation, experimentName string, threshold float64, configs []Config, onProgress func(Event)) (*Report, error) {
	return compare.Run(ctx, obs, configs, compare.Options{
		Experiment: experimentName,
		Threshold:  threshold,
		OnProgress: onProgress,
	})
}
