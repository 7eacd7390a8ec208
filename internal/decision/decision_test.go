package decision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/fairleak/internal/group"
	"github.com/idlab-discover/fairleak/internal/residual"
)

func table() *residual.Table {
	return &residual.Table{
		Channels: []string{"pressure", "demand"},
		Rows: []residual.Row{
			{Scenario: "s2", Sensor: "b", Step: 0, Residuals: []float64{0.1, 0.2}},
			{Scenario: "s1", Sensor: "a", Step: 0, Residuals: []float64{0.3, -0.9}},
			{Scenario: "s1", Sensor: "a", Step: 1, Residuals: []float64{-0.7, 0.1}, Leak: true},
			{Scenario: "s1", Sensor: "b", Step: 0, Residuals: []float64{0.05, 0.05}},
			{Scenario: "s2", Sensor: "b", Step: 1, Residuals: []float64{-0.4, 0.0}},
		},
	}
}

func TestAggregate(t *testing.T) {
	p := group.New([]string{"g1", "g2"}, map[string]string{"a": "g1", "b": "g2"})
	obs, err := Aggregate(table(), p)
	require.NoError(t, err)
	require.Len(t, obs, 3)

	require.Equal(t, "s1", obs[0].Scenario)
	require.Equal(t, "a", obs[0].Sensor)
	require.Equal(t, "g1", obs[0].Group)
	require.True(t, obs[0].Label)
	require.InDeltaSlice(t, []float64{0.7, 0.9}, obs[0].Scores, 1e-12)

	require.Equal(t, "s2", obs[2].Scenario)
	require.False(t, obs[2].Label)
	require.InDelta(t, 0.4, obs[2].Score(), 1e-12)
}

func TestAggregate_UnassignedSensor(t *testing.T) {
	p := group.New([]string{"g1"}, map[string]string{"a": "g1"})
	_, err := Aggregate(table(), p)
	require.True(t, errors.Is(err, group.ErrConfig), "got %v", err)
}

func TestDecideDoesNotMutate(t *testing.T) {
	obs := []Observation{{Scores: []float64{0.5}}, {Scores: []float64{0.2}}}
	out := Decide(obs, 0.5)
	require.True(t, out[0].Decision)
	require.False(t, out[1].Decision)
	require.False(t, obs[0].Decision)

	out[0].Scores[0] = 9
	require.Equal(t, 0.5, obs[0].Scores[0])
}

func TestCombine(t *testing.T) {
	require.InDelta(t, 0.25*2+0.75*4, Combine([]float64{2, 4}, []float64{0.25, 0.75}), 1e-12)
	require.InDelta(t, 2.0, Combine([]float64{2, 4}, []float64{1}), 1e-12)
}

func TestCounts(t *testing.T) {
	var c Counts
	c.Add(true, true)
	c.Add(true, false)
	c.Add(false, true)
	c.Add(false, false)
	c.Add(false, false)

	tpr, ok := c.TPR()
	require.True(t, ok)
	require.InDelta(t, 0.5, tpr, 1e-12)
	fpr, ok := c.FPR()
	require.True(t, ok)
	require.InDelta(t, 1.0/3, fpr, 1e-12)
	acc, _ := c.Accuracy()
	require.InDelta(t, 0.6, acc, 1e-12)

	var empty Counts
	_, ok = empty.TPR()
	require.False(t, ok)
	_, ok = empty.FPR()
	require.False(t, ok)
}

func TestTally(t *testing.T) {
	obs := []Observation{
		{Group: "a", Label: true, Decision: true},
		{Group: "a", Label: false, Decision: true},
		{Group: "b", Label: true, Decision: false},
	}
	per, all := Tally(obs)
	require.Equal(t, Counts{TP: 1, FP: 1}, per["a"])
	require.Equal(t, Counts{FN: 1}, per["b"])
	require.Equal(t, Counts{TP: 1, FP: 1, FN: 1}, all)
	require.Equal(t, []string{"a", "b"}, Groups(obs))
}

func TestBestThreshold(t *testing.T) {
	obs := []Observation{
		{Scores: []float64{0.1}},
		{Scores: []float64{0.2}},
		{Scores: []float64{0.6}, Label: true},
		{Scores: []float64{0.9}, Label: true},
	}
	require.Equal(t, 0.6, BestThreshold(obs))

	allNeg := []Observation{{Scores: []float64{0.1}}, {Scores: []float64{0.3}}}
	theta := BestThreshold(allNeg)
	require.Greater(t, theta, 0.3)
	for _, o := range Decide(allNeg, theta) {
		require.False(t, o.Decision)
	}
}
