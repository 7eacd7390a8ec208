package ui

import (
	"fmt"
	"io"
	"strings"
)

// The view types below mirror the analysis results of the fairness, enhance
// and compare packages, which import ui for their log prefixes.

// RateCell is a rate that may be undefined for a group.
type RateCell struct {
	V       float64
	Defined bool
}

func (r RateCell) String() string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", r.V)
}

// GroupRow is one group line of a metrics report.
type GroupRow struct {
	Group     string
	Positives int
	Negatives int
	TPR       RateCell
	FPR       RateCell
	Positive  RateCell
	Accuracy  RateCell
}

// MetricsView is a fairness evaluation at one operating point.
type MetricsView struct {
	Metric      string
	Aggregation string
	Threshold   float64
	Groups      []GroupRow
	Disparity   float64
	Tolerance   float64
	Accuracy    float64
	Excluded    []string
	Degenerate  bool
}

// AdjustmentRow describes the setting chosen for one group.
type AdjustmentRow struct {
	Group   string
	Setting string
	Changed bool
}

// EnhanceView is the outcome of one enhancement run.
type EnhanceView struct {
	Metric          string
	Method          string
	Status          string
	Budget          float64
	Tolerance       float64
	AccuracyBefore  float64
	AccuracyAfter   float64
	DisparityBefore float64
	DisparityAfter  float64
	BestDisparity   float64
	BestAccuracy    float64
	Adjustments     []AdjustmentRow
}

// CompareRow is one configuration line of a comparison.
type CompareRow struct {
	Config          string
	Metric          string
	Method          string
	Status          string
	AccuracyBefore  float64
	AccuracyAfter   float64
	DisparityBefore float64
	DisparityAfter  float64
}

// CompareView is a full comparison.
type CompareView struct {
	Experiment   string
	Threshold    float64
	Observations int
	Rows         []CompareRow
	Best         string
}

// PartitionView lists group sizes.
type PartitionView struct {
	Mode   string
	Groups []GroupSize
}

// GroupSize is the number of sensors in a group.
type GroupSize struct {
	Group string
	Size  int
}

// RunRow is one stored run.
type RunRow struct {
	ID         string
	Experiment string
	Created    string
	Configs    int
	Groups     int
}

// AnalysisUI renders analysis results.
type AnalysisUI struct {
	writer io.Writer
	quiet  bool
}

// NewAnalysisUI creates a renderer writing to w. Quiet suppresses all output.
func NewAnalysisUI(w io.Writer, quiet bool) *AnalysisUI {
	return &AnalysisUI{writer: w, quiet: quiet}
}

func pad(s string, n int) string {
	if len([]rune(s)) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len([]rune(s)))
}

func rateStyle(r RateCell) string {
	s := pad(r.String(), 8)
	if !r.Defined {
		return Muted.Render(s)
	}
	return s
}

// PrintPartition renders group sizes.
func (a *AnalysisUI) PrintPartition(v PartitionView) {
	if a.quiet {
		return
	}
	var sb strings.Builder
	sb.WriteString(Title.Render("Sensor Partition"))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Mode", v.Mode))
	sb.WriteString("\n\n")
	total := 0
	for _, g := range v.Groups {
		total += g.Size
	}
	for _, g := range v.Groups {
		share := 0.0
		if total > 0 {
			share = float64(g.Size) / float64(total)
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n", GetBullet(), pad(g.Group, 16), bar(share, 20), Dim.Render(fmt.Sprintf("%d", g.Size)))
	}
	fmt.Fprintln(a.writer, Box.Render(strings.TrimRight(sb.String(), "\n")))
}

func bar(share float64, width int) string {
	filled := int(share*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	return ProgressFilled.Render(strings.Repeat("█", filled)) + ProgressEmpty.Render(strings.Repeat("░", width-filled))
}

// PrintMetrics renders per-group rates and the aggregate disparity.
func (a *AnalysisUI) PrintMetrics(v MetricsView) {
	if a.quiet {
		return
	}
	var sb strings.Builder
	sb.WriteString(Title.Render("Fairness Metrics"))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Metric", fmt.Sprintf("%s (%s)", v.Metric, v.Aggregation)))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Threshold", fmt.Sprintf("%.4f", v.Threshold)))
	sb.WriteString("\n\n")

	sb.WriteString(SectionHeader.Render(fmt.Sprintf("%s %s %s %s %s %s", pad("group", 16), pad("pos/neg", 10), pad("TPR", 8), pad("FPR", 8), pad("flagged", 8), "accuracy")))
	sb.WriteString("\n")
	for _, g := range v.Groups {
		fmt.Fprintf(&sb, "%s %s %s %s %s %s\n", pad(g.Group, 16), pad(fmt.Sprintf("%d/%d", g.Positives, g.Negatives), 10),
			rateStyle(g.TPR), rateStyle(g.FPR), rateStyle(g.Positive), g.Accuracy.String())
	}
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Disparity", DisparityStyle(v.Disparity, v.Tolerance).Render(fmt.Sprintf("%.4f", v.Disparity))))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Accuracy", ScoreStyle(v.Accuracy).Render(fmt.Sprintf("%.4f", v.Accuracy))))
	if len(v.Excluded) > 0 {
		sb.WriteString("\n")
		sb.WriteString(FormatStatus("warning", "undefined rates excluded: "+strings.Join(v.Excluded, ", ")))
	}
	if v.Degenerate {
		sb.WriteString("\n")
		sb.WriteString(FormatStatus("warning", "fewer than two groups with a defined rate; disparity reported as 0"))
	}
	fmt.Fprintln(a.writer, HighlightBox.Render(sb.String()))
}

// PrintEnhancement renders an adjusted, already-fair or infeasible outcome.
func (a *AnalysisUI) PrintEnhancement(v EnhanceView) {
	if a.quiet {
		return
	}
	var sb strings.Builder
	if v.Status == "not-achievable" {
		sb.WriteString(Error.Bold(true).Render("Fairness target not achievable"))
		sb.WriteString("\n")
		sb.WriteString(FormatKeyValue("Method", v.Method))
		sb.WriteString("\n")
		sb.WriteString(FormatKeyValue("Metric", v.Metric))
		sb.WriteString("\n")
		sb.WriteString(FormatKeyValue("Tolerance", fmt.Sprintf("%.4f", v.Tolerance)))
		sb.WriteString("\n")
		sb.WriteString(FormatKeyValue("Accuracy budget", fmt.Sprintf("%.4f", v.Budget)))
		sb.WriteString("\n")
		sb.WriteString(FormatKeyValue("Disparity", fmt.Sprintf("%.4f", v.DisparityBefore)))
		sb.WriteString("\n")
		sb.WriteString(FormatKeyValue("Best reachable", fmt.Sprintf("%.4f at accuracy %.4f", v.BestDisparity, v.BestAccuracy)))
		fmt.Fprintln(a.writer, ErrorBox.Render(sb.String()))
		return
	}

	title := "Fairness Enhancement"
	if v.Status == "already-fair" {
		title = "Already Fair"
	}
	sb.WriteString(Success.Bold(true).Render(title))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Method", v.Method))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Metric", v.Metric))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Disparity", fmt.Sprintf("%.4f -> %s", v.DisparityBefore,
		DisparityStyle(v.DisparityAfter, v.Tolerance).Render(fmt.Sprintf("%.4f", v.DisparityAfter)))))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Accuracy", fmt.Sprintf("%.4f -> %s", v.AccuracyBefore,
		ScoreStyle(v.AccuracyAfter).Render(fmt.Sprintf("%.4f", v.AccuracyAfter)))))
	if len(v.Adjustments) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(SectionHeader.Render("Per-group settings"))
		for _, adj := range v.Adjustments {
			mark := Dim.Render("=")
			if adj.Changed {
				mark = Highlight.Render("*")
			}
			fmt.Fprintf(&sb, "\n%s %s %s", mark, pad(adj.Group, 16), adj.Setting)
		}
	}
	fmt.Fprintln(a.writer, SuccessBox.Render(sb.String()))
}

func statusMark(status string) string {
	switch status {
	case "adjusted":
		return GetCheckMark()
	case "already-fair":
		return GetInfoMark()
	default:
		return GetCrossMark()
	}
}

// PrintComparison renders the comparison table.
func (a *AnalysisUI) PrintComparison(v CompareView) {
	if a.quiet {
		return
	}
	var sb strings.Builder
	sb.WriteString(Title.Render("Configuration Comparison"))
	sb.WriteString("\n")
	if v.Experiment != "" {
		sb.WriteString(FormatKeyValue("Experiment", v.Experiment))
		sb.WriteString("\n")
	}
	sb.WriteString(FormatKeyValue("Threshold", fmt.Sprintf("%.4f", v.Threshold)))
	sb.WriteString("\n")
	sb.WriteString(FormatKeyValue("Observations", fmt.Sprintf("%d", v.Observations)))
	sb.WriteString("\n\n")
	sb.WriteString(SectionHeader.Render(fmt.Sprintf("  %s %s %s %s %s", pad("configuration", 24), pad("status", 15), pad("accuracy", 17), pad("disparity", 17), "method")))
	for _, r := range v.Rows {
		fmt.Fprintf(&sb, "\n%s %s %s %s %s %s", statusMark(r.Status), pad(r.Config, 24), pad(r.Status, 15),
			pad(fmt.Sprintf("%.3f -> %.3f", r.AccuracyBefore, r.AccuracyAfter), 17),
			pad(fmt.Sprintf("%.3f -> %.3f", r.DisparityBefore, r.DisparityAfter), 17), Dim.Render(r.Method))
	}
	if v.Best != "" {
		sb.WriteString("\n\n")
		sb.WriteString(FormatKeyValue("Best", Highlight.Render(v.Best)))
	} else {
		sb.WriteString("\n\n")
		sb.WriteString(FormatStatus("warning", "no configuration reached its fairness target"))
	}
	fmt.Fprintln(a.writer, Box.Render(sb.String()))
}

// PrintRuns renders stored runs.
func (a *AnalysisUI) PrintRuns(runs []RunRow) {
	if a.quiet {
		return
	}
	if len(runs) == 0 {
		fmt.Fprintln(a.writer, FormatStatus("info", "no stored runs"))
		return
	}
	var sb strings.Builder
	sb.WriteString(Title.Render("Stored Runs"))
	for _, r := range runs {
		fmt.Fprintf(&sb, "\n%s %s %s %s", GetBullet(), pad(r.Experiment, 20), Dim.Render(r.Created),
			Muted.Render(fmt.Sprintf("%d configs · %d groups · %s", r.Configs, r.Groups, r.ID)))
	}
	fmt.Fprintln(a.writer, Box.Render(sb.String()))
}
