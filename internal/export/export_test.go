package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

func report() *compare.Report {
	before := fairness.EvaluateCounts([]string{"a", "b"}, map[string]decision.Counts{
		"a": {TP: 2, TN: 2},
		"b": {TP: 1, FN: 1, TN: 2},
	}, fairness.EqualOpportunity, fairness.MaxGap)
	after := fairness.EvaluateCounts([]string{"a", "b"}, map[string]decision.Counts{
		"a": {TP: 2, TN: 2},
		"b": {TP: 2, TN: 2},
	}, fairness.EqualOpportunity, fairness.MaxGap)
	return &compare.Report{
		Experiment: "unit",
		Rows: []compare.Row{
			{
				Config: "eo", Status: enhance.StatusAdjusted,
				Before: before, After: after,
				DisparityBefore: before.Disparity, DisparityAfter: after.Disparity,
				AccuracyBefore: before.Accuracy, AccuracyAfter: after.Accuracy,
			},
			{
				Config: "eo-rw", Status: enhance.StatusInfeasible,
				Before: before, After: before,
				DisparityBefore: before.Disparity, DisparityAfter: before.Disparity,
			},
		},
	}
}

func TestObserve_Gauges(t *testing.T) {
	e := New("unit")
	e.Observe(report())

	require.InDelta(t, 0.5, testutil.ToFloat64(e.disparity.WithLabelValues("eo", "before")), 1e-12)
	require.InDelta(t, 0.0, testutil.ToFloat64(e.disparity.WithLabelValues("eo", "after")), 1e-12)
	require.InDelta(t, 1.0, testutil.ToFloat64(e.accuracy.WithLabelValues("eo", "after")), 1e-12)
	require.Equal(t, 1.0, testutil.ToFloat64(e.feasible.WithLabelValues("eo")))
	require.Equal(t, 0.0, testutil.ToFloat64(e.feasible.WithLabelValues("eo-rw")))

	families, err := e.Registry().Gather()
	require.NoError(t, err)
	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	require.Contains(t, byName, "fairleak_disparity")
	require.Contains(t, byName, "fairleak_config_feasible")
	for _, m := range byName["fairleak_disparity"].GetMetric() {
		found := false
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "experiment" && lp.GetValue() == "unit" {
				found = true
			}
		}
		require.True(t, found)
	}
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics", "fairleak.prom")
	require.NoError(t, WriteTextfile(path, report()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	require.True(t, strings.Contains(text, "# TYPE fairleak_disparity gauge"), text)
	require.True(t, strings.Contains(text, `fairleak_config_feasible{config="eo-rw",experiment="unit"} 0`), text)
	require.True(t, strings.Contains(text, `fairleak_group_rate{config="eo",experiment="unit",group="b",rate="tpr",stage="before"} 0.5`), text)
}
