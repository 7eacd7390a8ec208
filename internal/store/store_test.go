package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/experiment"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func report(t *testing.T, name string, created time.Time) *compare.Report {
	t.Helper()
	mk := func(g string, label bool, s float64) decision.Observation {
		return decision.Observation{Scenario: "s", Sensor: g + "1", Group: g, Label: label, Scores: []float64{s}}
	}
	obs := []decision.Observation{
		mk("a", true, 0.9), mk("a", false, 0.1),
		mk("b", true, 0.3), mk("b", false, 0.1),
	}
	rep, err := compare.Run(context.Background(), obs, []experiment.Config{
		{Name: "eo", Metric: "equal-opportunity", Method: "group-threshold"},
		{Name: "dp", Metric: "demographic-parity", Method: "group-threshold"},
	}, compare.Options{Experiment: name, Threshold: 0.5})
	require.NoError(t, err)
	rep.CreatedAt = created
	return rep
}

func TestSaveRunAndGetRun(t *testing.T) {
	s := tempDB(t)
	rep := report(t, "exp", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	run, err := s.SaveRun(rep)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, results, err := s.GetRun(run.ID)
	require.NoError(t, err)
	require.Equal(t, "exp", got.Experiment)
	require.Equal(t, 0.5, got.Threshold)
	require.Equal(t, []string{"a", "b"}, got.Groups)
	require.Equal(t, 2, got.Configs)
	require.True(t, got.CreatedAt.Equal(rep.CreatedAt))

	require.Len(t, results, 2)
	require.Equal(t, "eo", results[0].Config)
	require.Equal(t, "dp", results[1].Config)
	require.Equal(t, string(rep.Rows[0].Status), results[0].Status)
	require.InDelta(t, rep.Rows[0].DisparityAfter, results[0].DisparityAfter, 1e-12)

	decs, err := s.Decisions("exp", "eo")
	require.NoError(t, err)
	require.Len(t, decs, len(rep.Rows[0].Decisions))
	require.Equal(t, run.ID, decs[0].RunID)
}

func TestSaveRun_ReplacesDecisionsOfExperiment(t *testing.T) {
	s := tempDB(t)
	first, err := s.SaveRun(report(t, "exp", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	second, err := s.SaveRun(report(t, "exp", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = s.SaveRun(report(t, "other", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	decs, err := s.Decisions("exp", "")
	require.NoError(t, err)
	require.Len(t, decs, 8)
	for _, d := range decs {
		require.Equal(t, second.ID, d.RunID)
	}

	// run history survives
	_, _, err = s.GetRun(first.ID)
	require.NoError(t, err)

	other, err := s.Decisions("other", "")
	require.NoError(t, err)
	require.Len(t, other, 8)
}

func TestListRuns(t *testing.T) {
	s := tempDB(t)
	for i, name := range []string{"a", "b", "a"} {
		_, err := s.SaveRun(report(t, name, time.Date(2026, 3, i+1, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
	}

	all, err := s.ListRuns("")
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, 3, all[0].CreatedAt.Day())
	require.Equal(t, 1, all[2].CreatedAt.Day())

	onlyA, err := s.ListRuns("a")
	require.NoError(t, err)
	require.Len(t, onlyA, 2)

	has, err := s.HasExperiment("b")
	require.NoError(t, err)
	require.True(t, has)
	has, err = s.HasExperiment("zzz")
	require.NoError(t, err)
	require.False(t, has)
}

func TestGetRun_NotFound(t *testing.T) {
	s := tempDB(t)
	_, _, err := s.GetRun("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRun_Nil(t *testing.T) {
	s := tempDB(t)
	_, err := s.SaveRun(nil)
	require.Error(t, err)
}
