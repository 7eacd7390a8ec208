// Package compare evaluates several enhancement configurations over the same
// observations and collects them into one report.
package compare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/experiment"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

// Row is the outcome of one configuration.
type Row struct {
	Config      string
	Metric      fairness.Metric
	Aggregation fairness.Aggregation
	Method      enhance.Method
	Budget      float64
	Tolerance   float64
	Status      enhance.Status

	AccuracyBefore  float64
	AccuracyAfter   float64
	DisparityBefore float64
	DisparityAfter  float64
	// BestDisparity is the lowest admissible disparity found; for feasible
	// rows it equals DisparityAfter.
	BestDisparity float64

	Before     fairness.Result
	After      fairness.Result
	Adjustment *enhance.Adjustment
	// Decisions are the observations after the adjustment, or the base
	// decisions when the target was not achievable.
	Decisions []decision.Observation
}

// Feasible reports whether the configuration reached its tolerance.
func (r Row) Feasible() bool { return r.Status != enhance.StatusInfeasible }

// Report aggregates all rows of one experiment.
type Report struct {
	Experiment   string
	Threshold    float64
	Observations int
	Groups       []string
	CreatedAt    time.Time
	Rows         []Row
}

// Feasible counts rows that reached their tolerance.
func (r *Report) Feasible() int {
	n := 0
	for _, row := range r.Rows {
		if row.Feasible() {
			n++
		}
	}
	return n
}

// Best returns the feasible row with the lowest disparity after adjustment,
// breaking ties by accuracy.
func (r *Report) Best() (Row, bool) {
	var best Row
	found := false
	for _, row := range r.Rows {
		if !row.Feasible() {
			continue
		}
		if !found || row.DisparityAfter < best.DisparityAfter ||
			(row.DisparityAfter == best.DisparityAfter && row.AccuracyAfter > best.AccuracyAfter) {
			best, found = row, true
		}
	}
	return best, found
}

// EventType identifies a progress event.
type EventType int

const (
	EventConfigStart EventType = iota
	EventConfigDone
	EventConfigInfeasible
)

// Event is a progress update emitted by Run.
type Event struct {
	Type      EventType
	Config    string
	Index     int
	Total     int
	Status    enhance.Status
	Disparity float64
}

// ProgressCallback receives progress events.
type ProgressCallback func(Event)

// Options configures Run.
type Options struct {
	Experiment string
	Threshold  float64
	OnProgress ProgressCallback
}

// Run evaluates each configuration independently on obs. Infeasible targets
// become rows with StatusInfeasible; any other error aborts the run.
func Run(ctx context.Context, obs []decision.Observation, configs []experiment.Config, opts Options) (*Report, error) {
	progress := opts.OnProgress
	if progress == nil {
		progress = func(Event) {}
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("%w: no configurations to compare", experiment.ErrConfig)
	}

	rep := &Report{
		Experiment:   opts.Experiment,
		Threshold:    opts.Threshold,
		Observations: len(obs),
		Groups:       decision.Groups(obs),
		CreatedAt:    time.Now().UTC(),
	}

	for i, cfg := range configs {
		select {
		case <-ctx.Done():
			return rep, ctx.Err()
		default:
		}

		progress(Event{Type: EventConfigStart, Config: cfg.Name, Index: i, Total: len(configs)})

		req, err := cfg.Request(opts.Threshold)
		if err != nil {
			return nil, fmt.Errorf("%w: configuration %q: %v", experiment.ErrConfig, cfg.Name, err)
		}
		row, err := evaluate(obs, cfg.Name, req)
		if err != nil {
			return nil, fmt.Errorf("configuration %q: %w", cfg.Name, err)
		}
		rep.Rows = append(rep.Rows, row)

		evt := Event{Type: EventConfigDone, Config: cfg.Name, Index: i, Total: len(configs), Status: row.Status, Disparity: row.DisparityAfter}
		if !row.Feasible() {
			evt.Type = EventConfigInfeasible
			evt.Disparity = row.BestDisparity
		}
		progress(evt)
		logf(cfg.Name, "%s: disparity %.4f -> %.4f", row.Status, row.DisparityBefore, row.DisparityAfter)
	}
	return rep, nil
}

func evaluate(obs []decision.Observation, name string, req enhance.Request) (Row, error) {
	row := Row{
		Config:      name,
		Metric:      req.Metric,
		Aggregation: req.Aggregation,
		Method:      req.Method,
		Budget:      req.Budget,
		Tolerance:   req.Tolerance,
	}
	if row.Aggregation == "" {
		row.Aggregation = fairness.MaxGap
	}
	if row.Method == "" {
		row.Method = enhance.GroupThreshold
	}

	out, err := enhance.Enhance(obs, req)
	var inf *enhance.InfeasibleError
	switch {
	case errors.As(err, &inf):
		row.Status = enhance.StatusInfeasible
		row.Before, row.After = inf.Before, inf.Before
		row.AccuracyBefore, row.AccuracyAfter = inf.Before.Accuracy, inf.Before.Accuracy
		row.DisparityBefore, row.DisparityAfter = inf.Before.Disparity, inf.Before.Disparity
		row.BestDisparity = inf.BestDisparity
		row.Decisions = decision.Decide(obs, req.Threshold)
		return row, nil
	case err != nil:
		return Row{}, err
	}

	adj := out.Adjustment
	row.Status = out.Status
	row.Before, row.After = out.Before, out.After
	row.AccuracyBefore, row.AccuracyAfter = out.Before.Accuracy, out.After.Accuracy
	row.DisparityBefore, row.DisparityAfter = out.Before.Disparity, out.After.Disparity
	row.BestDisparity = out.After.Disparity
	row.Adjustment = &adj
	row.Decisions = adj.Apply(obs)
	return row, nil
}
