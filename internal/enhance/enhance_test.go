package enhance

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

// obsFor builds observations of one group from positive and negative base scores.
func obsFor(group string, pos, neg []float64) []decision.Observation {
	var out []decision.Observation
	for i, s := range pos {
		out = append(out, decision.Observation{Scenario: "p", Sensor: group + string(rune('0'+i)), Group: group, Scores: []float64{s}, Label: true})
	}
	for i, s := range neg {
		out = append(out, decision.Observation{Scenario: "n", Sensor: group + string(rune('0'+i)), Group: group, Scores: []float64{s}})
	}
	return out
}

func concat(parts ...[]decision.Observation) []decision.Observation {
	var out []decision.Observation
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func decisions(obs []decision.Observation) []bool {
	out := make([]bool, len(obs))
	for i, o := range obs {
		out[i] = o.Decision
	}
	return out
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("Ensemble_Reweight")
	require.NoError(t, err)
	require.Equal(t, EnsembleReweight, m)
	m, err = ParseMethod("")
	require.NoError(t, err)
	require.Equal(t, GroupThreshold, m)
	_, err = ParseMethod("adversarial")
	require.True(t, errors.Is(err, fairness.ErrUnknown))
}

func TestRequestValidate(t *testing.T) {
	ok := Request{Metric: fairness.EqualOpportunity, Threshold: 0.5}
	require.NoError(t, ok.Validate())

	bad := []Request{
		{Metric: "calibration"},
		{Metric: fairness.EqualOpportunity, Budget: -0.1},
		{Metric: fairness.EqualOpportunity, Budget: 2},
		{Metric: fairness.EqualOpportunity, Tolerance: -1},
		{Metric: fairness.EqualOpportunity, WeightSteps: -3},
		{Metric: fairness.EqualOpportunity, Threshold: math.Inf(1)},
		{Metric: fairness.EqualOpportunity, Method: "magic"},
	}
	for _, r := range bad {
		require.True(t, errors.Is(r.Validate(), ErrRequest), "%+v", r)
	}

	_, err := Enhance(nil, ok)
	require.True(t, errors.Is(err, ErrRequest))
}

func TestEnhance_GroupThresholdAdjustsAndIsIdempotent(t *testing.T) {
	obs := concat(
		obsFor("a", []float64{0.9, 0.8}, []float64{0.1, 0.2}),
		obsFor("b", []float64{0.9, 0.3}, []float64{0.1, 0.2}),
	)
	req := Request{Metric: fairness.EqualOpportunity, Method: GroupThreshold, Threshold: 0.5}

	out, err := Enhance(obs, req)
	require.NoError(t, err)
	require.Equal(t, StatusAdjusted, out.Status)
	require.InDelta(t, 0.5, out.Before.Disparity, 1e-12)
	require.InDelta(t, 0.0, out.After.Disparity, 1e-12)
	require.InDelta(t, 1.0, out.After.Accuracy, 1e-12)
	require.LessOrEqual(t, out.AccuracyLoss(), 0.0)

	a, _ := out.Adjustment.For("a")
	require.False(t, a.Changed)
	b, _ := out.Adjustment.For("b")
	require.True(t, b.Changed)
	require.InDelta(t, 0.3, b.Threshold, 1e-12)

	adjusted := out.Adjustment.Apply(obs)
	for _, o := range adjusted {
		require.Equal(t, o.Decision, o.Score() >= req.Threshold, "%+v", o)
	}

	again, err := Enhance(adjusted, req)
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyFair, again.Status)
	require.Equal(t, decisions(adjusted), decisions(again.Adjustment.Apply(adjusted)))
	for i, o := range again.Adjustment.Apply(adjusted) {
		require.Equal(t, adjusted[i].Scores, o.Scores)
	}
}

func TestEnhance_EqualizedOddsIdempotent(t *testing.T) {
	obs := concat(
		obsFor("a", []float64{0.9, 0.8, 0.7}, []float64{0.1, 0.2, 0.6}),
		obsFor("b", []float64{0.9, 0.4, 0.3}, []float64{0.1, 0.2, 0.25}),
		obsFor("c", []float64{0.95, 0.6, 0.45}, []float64{0.05, 0.3, 0.55}),
	)
	req := Request{Metric: fairness.EqualizedOdds, Threshold: 0.5, Budget: 0.2, Tolerance: 0.05}

	out, err := Enhance(obs, req)
	require.NoError(t, err)
	require.LessOrEqual(t, out.After.Disparity, req.Tolerance)
	require.LessOrEqual(t, out.AccuracyLoss(), req.Budget+1e-12)

	adjusted := out.Adjustment.Apply(obs)
	again, err := Enhance(adjusted, req)
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyFair, again.Status)
	require.InDelta(t, out.After.Disparity, again.Before.Disparity, 1e-12)
	require.Equal(t, decisions(adjusted), decisions(again.Adjustment.Apply(adjusted)))
}

func TestEnhance_AlreadyFairReturnsIdentity(t *testing.T) {
	obs := concat(
		obsFor("a", []float64{0.9}, []float64{0.1}),
		obsFor("b", []float64{0.7}, []float64{0.3}),
	)
	out, err := Enhance(obs, Request{Metric: fairness.EqualizedOdds, Threshold: 0.5})
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyFair, out.Status)
	for _, g := range out.Adjustment.Groups {
		require.False(t, g.Changed)
		require.Equal(t, 0.5, g.Threshold)
	}
	applied := out.Adjustment.Apply(obs)
	for i := range obs {
		require.Equal(t, obs[i].Scores, applied[i].Scores)
	}
}

func TestEnhance_BudgetBindsAccuracyLoss(t *testing.T) {
	obs := concat(
		obsFor("a", []float64{0.9, 0.9}, []float64{0.1, 0.1}),
		obsFor("b", []float64{0.9, 0.1}, []float64{0.2, 0.2}),
	)
	req := Request{Metric: fairness.EqualOpportunity, Threshold: 0.5, Budget: 0.1}

	_, err := Enhance(obs, req)
	var inf *InfeasibleError
	require.True(t, errors.As(err, &inf), "got %v", err)
	require.InDelta(t, 0.5, inf.BestDisparity, 1e-12)

	req.Budget = 0.2
	out, err := Enhance(obs, req)
	require.NoError(t, err)
	require.InDelta(t, 0.0, out.After.Disparity, 1e-12)
	require.InDelta(t, 0.125, out.AccuracyLoss(), 1e-12)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func join(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// The point nearest to every reachable target costs too much accuracy; the
// cheaper one a little further away is still within tolerance.
func TestEnhance_CheaperPointWithinToleranceIsFeasible(t *testing.T) {
	obs := concat(
		obsFor("a", join(repeat(0.95, 10), repeat(0.85, 3), repeat(0.6, 7)), nil),
		obsFor("b", join(repeat(0.9, 11), repeat(0.3, 3), repeat(0.0, 6)), repeat(0.35, 20)),
	)
	req := Request{Metric: fairness.EqualOpportunity, Threshold: 0.5, Budget: 0.13, Tolerance: 0.11}

	out, err := Enhance(obs, req)
	require.NoError(t, err)
	require.Equal(t, StatusAdjusted, out.Status)
	require.InDelta(t, 0.45, out.Before.Disparity, 1e-9)
	require.InDelta(t, 0.85, out.Before.Accuracy, 1e-9)
	require.InDelta(t, 0.10, out.After.Disparity, 1e-9)
	require.InDelta(t, 44.0/60, out.After.Accuracy, 1e-9)
	require.LessOrEqual(t, out.AccuracyLoss(), req.Budget)

	a, _ := out.Adjustment.For("a")
	require.True(t, a.Changed)
	require.InDelta(t, 0.85, a.Threshold, 1e-12)
	b, _ := out.Adjustment.For("b")
	require.False(t, b.Changed)
}

func TestEnhance_GroupWithoutPositives(t *testing.T) {
	obs := concat(
		obsFor("a", []float64{0.9, 0.8}, []float64{0.1, 0.2}),
		obsFor("b", []float64{0.9, 0.3}, []float64{0.1, 0.2}),
		obsFor("c", nil, []float64{0.1, 0.6}),
	)

	out, err := Enhance(obs, Request{Metric: fairness.EqualOpportunity, Threshold: 0.5})
	require.NoError(t, err)
	require.Equal(t, StatusAdjusted, out.Status)
	require.Contains(t, out.Before.Excluded, "c:tpr")
	require.Contains(t, out.After.Excluded, "c:tpr")
	require.InDelta(t, 0.0, out.After.Disparity, 1e-12)
	require.InDelta(t, 1.0, out.After.Accuracy, 1e-12)
	c, ok := out.After.Group("c")
	require.True(t, ok)
	require.False(t, c.TPR.Defined)

	for _, m := range []Method{GroupThreshold, EnsembleReweight} {
		out, err := Enhance(obs, Request{Metric: fairness.EqualizedOdds, Method: m, Threshold: 0.5})
		if err != nil {
			var inf *InfeasibleError
			require.True(t, errors.As(err, &inf), "%s: %v", m, err)
			require.False(t, math.IsNaN(inf.BestDisparity))
			continue
		}
		require.False(t, math.IsNaN(out.After.Disparity))
		require.Contains(t, out.After.Excluded, "c:tpr")
	}
}

func TestEnhance_FiveGroupsZeroBudgetInfeasible(t *testing.T) {
	obs := concat(
		obsFor("g1", []float64{0.9, 0.9}, []float64{0.1, 0.1}),
		obsFor("g2", []float64{0.9, 0.1}, []float64{0.2, 0.2}),
		obsFor("g3", []float64{0.9, 0.9, 0.1}, []float64{0.2, 0.2, 0.2}),
		obsFor("g4", []float64{0.9, 0.1, 0.1}, []float64{0.2, 0.2, 0.2}),
		obsFor("g5", []float64{0.8, 0.9}, []float64{0.1, 0.3}),
	)
	for _, m := range []Method{GroupThreshold, EnsembleReweight} {
		req := Request{Metric: fairness.EqualOpportunity, Method: m, Threshold: 0.5}
		out, err := Enhance(obs, req)
		require.Nil(t, out)
		require.True(t, errors.Is(err, ErrInfeasible), "%s: %v", m, err)

		var inf *InfeasibleError
		require.True(t, errors.As(err, &inf))
		require.Equal(t, m, inf.Method)
		require.InDelta(t, 1-1.0/3, inf.BestDisparity, 1e-12)
		require.InDelta(t, 1-1.0/3, inf.Before.Disparity, 1e-12)
		require.Len(t, inf.Before.Groups, 5)
		require.True(t, strings.Contains(err.Error(), "not achievable"))
	}
}

func TestEnhance_EnsembleReweight(t *testing.T) {
	two := func(group string, label bool, s0, s1 float64) decision.Observation {
		return decision.Observation{Group: group, Label: label, Scores: []float64{s0, s1}}
	}
	obs := []decision.Observation{
		two("a", true, 0.9, 0.9), two("a", true, 0.8, 0.8),
		two("a", false, 0.1, 0.1), two("a", false, 0.2, 0.2),
		two("b", true, 0.3, 0.9), two("b", true, 0.4, 0.8),
		two("b", false, 0.1, 0.1), two("b", false, 0.2, 0.1),
	}
	req := Request{Metric: fairness.EqualOpportunity, Method: EnsembleReweight, Threshold: 0.5, WeightSteps: 10}

	out, err := Enhance(obs, req)
	require.NoError(t, err)
	require.Equal(t, StatusAdjusted, out.Status)
	require.InDelta(t, 0.0, out.After.Disparity, 1e-12)

	a, _ := out.Adjustment.For("a")
	require.False(t, a.Changed)
	require.Equal(t, []float64{1, 0}, a.Weights)
	b, _ := out.Adjustment.For("b")
	require.True(t, b.Changed)
	require.InDeltaSlice(t, []float64{0.6, 0.4}, b.Weights, 1e-12)

	again, err := Enhance(out.Adjustment.Apply(obs), req)
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyFair, again.Status)
}

func TestEnhance_MismatchedMembers(t *testing.T) {
	obs := []decision.Observation{
		{Group: "a", Scores: []float64{1, 2}},
		{Group: "b", Scores: []float64{1}},
	}
	_, err := Enhance(obs, Request{Metric: fairness.EqualOpportunity, Method: EnsembleReweight})
	require.True(t, errors.Is(err, ErrRequest))
}

func TestApply_InfiniteThresholdStaysFinite(t *testing.T) {
	adj := Adjustment{
		Method:    GroupThreshold,
		Threshold: 0.5,
		Groups:    []GroupAdjustment{{Group: "a", Threshold: math.Inf(1), Changed: true}},
	}
	out := adj.Apply(obsFor("a", []float64{0.9}, []float64{0.7}))
	for _, o := range out {
		require.False(t, o.Decision)
		require.False(t, math.IsInf(o.Score(), 0))
		require.Less(t, o.Score(), 0.5)
	}
}

func TestWeightGrid(t *testing.T) {
	grid := weightGrid(3, 4)
	require.Len(t, grid, gridSize(3, 4))
	require.Equal(t, 15, len(grid))
	require.Equal(t, []float64{1, 0, 0}, grid[0])
	for _, w := range grid {
		require.InDelta(t, 1.0, w[0]+w[1]+w[2], 1e-12)
	}
}

func TestEnhance_Logs(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(&buf)
	t.Cleanup(func() { SetLogger(nil) })

	obs := concat(
		obsFor("a", []float64{0.9, 0.8}, []float64{0.1, 0.2}),
		obsFor("b", []float64{0.9, 0.3}, []float64{0.1, 0.2}),
	)
	_, err := Enhance(obs, Request{Metric: fairness.EqualOpportunity, Threshold: 0.5})
	require.NoError(t, err)
	require.True(t, strings.Contains(buf.String(), "method=group-threshold"), buf.String())
}
