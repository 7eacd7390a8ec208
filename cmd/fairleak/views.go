package cmd

import (
	"math"
	"strconv"
	"strings"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/fairness"
	"github.com/idlab-discover/fairleak/internal/group"
	"github.com/idlab-discover/fairleak/internal/store"
	"github.com/idlab-discover/fairleak/internal/ui"
)

func rateCell(v fairness.Value) ui.RateCell { return ui.RateCell{V: v.V, Defined: v.Defined} }

func metricsView(r fairness.Result, threshold, tolerance float64) ui.MetricsView {
	v := ui.MetricsView{
		Metric:      string(r.Metric),
		Aggregation: string(r.Aggregation),
		Threshold:   threshold,
		Disparity:   r.Disparity,
		Tolerance:   tolerance,
		Accuracy:    r.Accuracy,
		Excluded:    r.Excluded,
		Degenerate:  r.Degenerate,
	}
	for _, g := range r.Groups {
		v.Groups = append(v.Groups, ui.GroupRow{
			Group:     g.Group,
			Positives: g.Counts.Positives(),
			Negatives: g.Counts.Negatives(),
			TPR:       rateCell(g.TPR),
			FPR:       rateCell(g.FPR),
			Positive:  rateCell(g.PositiveRate),
			Accuracy:  rateCell(g.Accuracy),
		})
	}
	return v
}

func partitionView(p *group.Partition, mode group.Mode) ui.PartitionView {
	v := ui.PartitionView{Mode: string(mode)}
	sizes := p.Sizes()
	for _, g := range p.Groups() {
		v.Groups = append(v.Groups, ui.GroupSize{Group: g, Size: sizes[g]})
	}
	return v
}

func setting(ga enhance.GroupAdjustment) string {
	if ga.Weights != nil {
		parts := make([]string, len(ga.Weights))
		for i, w := range ga.Weights {
			parts[i] = strconv.FormatFloat(w, 'f', -1, 64)
		}
		return "weights [" + strings.Join(parts, " ") + "]"
	}
	if math.IsInf(ga.Threshold, 1) {
		return "threshold +inf (flags none)"
	}
	return "threshold " + strconv.FormatFloat(ga.Threshold, 'f', 4, 64)
}

func adjustmentRows(adj enhance.Adjustment) []ui.AdjustmentRow {
	rows := make([]ui.AdjustmentRow, 0, len(adj.Groups))
	for _, ga := range adj.Groups {
		rows = append(rows, ui.AdjustmentRow{Group: ga.Group, Setting: setting(ga), Changed: ga.Changed})
	}
	return rows
}

func outcomeView(o *enhance.Outcome) ui.EnhanceView {
	return ui.EnhanceView{
		Metric:          string(o.Request.Metric),
		Method:          string(o.Request.Method),
		Status:          string(o.Status),
		Budget:          o.Request.Budget,
		Tolerance:       o.Request.Tolerance,
		AccuracyBefore:  o.Before.Accuracy,
		AccuracyAfter:   o.After.Accuracy,
		DisparityBefore: o.Before.Disparity,
		DisparityAfter:  o.After.Disparity,
		Adjustments:     adjustmentRows(o.Adjustment),
	}
}

func infeasibleView(e *enhance.InfeasibleError) ui.EnhanceView {
	return ui.EnhanceView{
		Metric:          string(e.Metric),
		Method:          string(e.Method),
		Status:          string(enhance.StatusInfeasible),
		Budget:          e.Budget,
		Tolerance:       e.Tolerance,
		AccuracyBefore:  e.Before.Accuracy,
		DisparityBefore: e.Before.Disparity,
		BestDisparity:   e.BestDisparity,
		BestAccuracy:    e.BestAccuracy,
	}
}

func compareView(r *compare.Report) ui.CompareView {
	v := ui.CompareView{Experiment: r.Experiment, Threshold: r.Threshold, Observations: r.Observations}
	for _, row := range r.Rows {
		v.Rows = append(v.Rows, ui.CompareRow{
			Config:          row.Config,
			Metric:          string(row.Metric),
			Method:          string(row.Method),
			Status:          string(row.Status),
			AccuracyBefore:  row.AccuracyBefore,
			AccuracyAfter:   row.AccuracyAfter,
			DisparityBefore: row.DisparityBefore,
			DisparityAfter:  row.DisparityAfter,
		})
	}
	if best, ok := r.Best(); ok {
		v.Best = best.Config
	}
	return v
}

func storedCompareView(run store.Run, results []store.Result) ui.CompareView {
	v := ui.CompareView{Experiment: run.Experiment, Threshold: run.Threshold, Observations: run.Observations}
	bestIdx := -1
	for i, r := range results {
		v.Rows = append(v.Rows, ui.CompareRow{
			Config:          r.Config,
			Metric:          r.Metric,
			Method:          r.Method,
			Status:          r.Status,
			AccuracyBefore:  r.AccuracyBefore,
			AccuracyAfter:   r.AccuracyAfter,
			DisparityBefore: r.DisparityBefore,
			DisparityAfter:  r.DisparityAfter,
		})
		if r.Status == string(enhance.StatusInfeasible) {
			continue
		}
		if bestIdx < 0 || r.DisparityAfter < results[bestIdx].DisparityAfter ||
			(r.DisparityAfter == results[bestIdx].DisparityAfter && r.AccuracyAfter > results[bestIdx].AccuracyAfter) {
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		v.Best = results[bestIdx].Config
	}
	return v
}

func runRows(runs []store.Run) []ui.RunRow {
	out := make([]ui.RunRow, 0, len(runs))
	for _, r := range runs {
		out = append(out, ui.RunRow{
			ID:         r.ID,
			Experiment: r.Experiment,
			Created:    r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			Configs:    r.Configs,
			Groups:     len(r.Groups),
		})
	}
	return out
}
