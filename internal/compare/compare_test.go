package compare

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/experiment"
)

func observations() []decision.Observation {
	mk := func(g string, label bool, s float64) decision.Observation {
		return decision.Observation{Group: g, Label: label, Scores: []float64{s}}
	}
	return []decision.Observation{
		mk("a", true, 0.9), mk("a", true, 0.8), mk("a", false, 0.1), mk("a", false, 0.2),
		mk("b", true, 0.9), mk("b", true, 0.3), mk("b", false, 0.1), mk("b", false, 0.2),
	}
}

func configs() []experiment.Config {
	return []experiment.Config{
		{Name: "eo-threshold", Metric: "equal-opportunity", Method: "group-threshold"},
		{Name: "eo-reweight", Metric: "equal-opportunity", Method: "ensemble-reweight"},
		{Name: "dp-threshold", Metric: "demographic-parity", Method: "group-threshold"},
	}
}

func TestRun_MixedOutcomes(t *testing.T) {
	var events []Event
	rep, err := Run(context.Background(), observations(), configs(), Options{
		Experiment: "unit",
		Threshold:  0.5,
		OnProgress: func(e Event) { events = append(events, e) },
	})
	require.NoError(t, err)
	require.Equal(t, "unit", rep.Experiment)
	require.Equal(t, 8, rep.Observations)
	require.Equal(t, []string{"a", "b"}, rep.Groups)
	require.Len(t, rep.Rows, 3)

	eo := rep.Rows[0]
	require.Equal(t, enhance.StatusAdjusted, eo.Status)
	require.InDelta(t, 0.5, eo.DisparityBefore, 1e-12)
	require.InDelta(t, 0.0, eo.DisparityAfter, 1e-12)
	require.NotNil(t, eo.Adjustment)
	require.Len(t, eo.Decisions, 8)

	rw := rep.Rows[1]
	require.Equal(t, enhance.StatusInfeasible, rw.Status)
	require.False(t, rw.Feasible())
	require.Nil(t, rw.Adjustment)
	require.InDelta(t, 0.5, rw.BestDisparity, 1e-12)
	require.Equal(t, rw.DisparityBefore, rw.DisparityAfter)

	dp := rep.Rows[2]
	require.Equal(t, enhance.StatusAdjusted, dp.Status)
	require.InDelta(t, 0.25, dp.DisparityBefore, 1e-12)

	require.Equal(t, 2, rep.Feasible())
	best, ok := rep.Best()
	require.True(t, ok)
	require.Equal(t, "eo-threshold", best.Config)

	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	require.Equal(t, []EventType{
		EventConfigStart, EventConfigDone,
		EventConfigStart, EventConfigInfeasible,
		EventConfigStart, EventConfigDone,
	}, types)
	require.Equal(t, 3, events[0].Total)
}

func TestRun_ConfigError(t *testing.T) {
	_, err := Run(context.Background(), observations(), []experiment.Config{{Name: "x", Metric: "calibration"}}, Options{Threshold: 0.5})
	require.True(t, errors.Is(err, experiment.ErrConfig), "got %v", err)

	_, err = Run(context.Background(), observations(), nil, Options{})
	require.True(t, errors.Is(err, experiment.ErrConfig))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := Run(ctx, observations(), configs(), Options{Threshold: 0.5})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, rep.Rows)
}

func TestReport_BestWithoutFeasibleRows(t *testing.T) {
	rep := &Report{Rows: []Row{{Status: enhance.StatusInfeasible}}}
	_, ok := rep.Best()
	require.False(t, ok)
	require.Equal(t, 0, rep.Feasible())
}
