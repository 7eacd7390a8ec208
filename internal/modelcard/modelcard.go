// Package modelcard exports comparison results as a CycloneDX ML model card
// with per-group performance metrics and fairness assessments.
package modelcard

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

// ErrNoRows is returned for a report without configurations.
var ErrNoRows = errors.New("report has no configurations")

// Options configures Build.
type Options struct {
	// Config names the configuration described by metadata.component.
	// Empty selects the best feasible configuration, else the first one.
	Config      string
	ToolVersion string
	Now         time.Time
}

// Build creates a BOM whose metadata component is the selected
// configuration and whose components list every configuration.
func Build(r *compare.Report, opts Options) (*cdx.BOM, error) {
	if r == nil || len(r.Rows) == 0 {
		return nil, ErrNoRows
	}
	selected, err := selectRow(r, opts.Config)
	if err != nil {
		return nil, err
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	bom := cdx.NewBOM()
	meta := component(r, selected)
	meta.Name = "leak-detector/" + name(r)
	bom.Metadata = &cdx.Metadata{Component: &meta}

	comps := make([]cdx.Component, 0, len(r.Rows))
	for _, row := range r.Rows {
		comps = append(comps, component(r, row))
	}
	bom.Components = &comps

	AddMetaSerialNumber(bom)
	AddMetaTimestamp(bom, opts.Now)
	AddMetaTools(bom, opts.ToolVersion)
	logf(selected.Config, "model card with %d configurations", len(comps))
	return bom, nil
}

func name(r *compare.Report) string {
	if strings.TrimSpace(r.Experiment) == "" {
		return "experiment"
	}
	return r.Experiment
}

func selectRow(r *compare.Report, config string) (compare.Row, error) {
	if config != "" {
		for _, row := range r.Rows {
			if row.Config == config {
				return row, nil
			}
		}
		return compare.Row{}, fmt.Errorf("configuration %q not in report", config)
	}
	if best, ok := r.Best(); ok {
		return best, nil
	}
	return r.Rows[0], nil
}

func component(r *compare.Report, row compare.Row) cdx.Component {
	comp := cdx.Component{
		BOMRef:      "config:" + row.Config,
		Type:        cdx.ComponentTypeMachineLearningModel,
		Name:        row.Config,
		Description: fmt.Sprintf("%s via %s on %d observations", row.Metric, row.Method, r.Observations),
		ModelCard:   card(row),
	}
	props := []cdx.Property{
		{Name: "fairleak:metric", Value: string(row.Metric)},
		{Name: "fairleak:aggregation", Value: string(row.Aggregation)},
		{Name: "fairleak:method", Value: string(row.Method)},
		{Name: "fairleak:status", Value: string(row.Status)},
		{Name: "fairleak:budget", Value: num(row.Budget)},
		{Name: "fairleak:tolerance", Value: num(row.Tolerance)},
		{Name: "fairleak:threshold", Value: num(r.Threshold)},
	}
	comp.Properties = &props
	return comp
}

func num(v float64) string {
	if math.IsInf(v, 1) {
		return "+inf"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func rate(v fairness.Value) string {
	if !v.Defined {
		return "n/a"
	}
	return num(v.V)
}

func card(row compare.Row) *cdx.MLModelCard {
	family := "residual-threshold"
	if row.Method == enhance.EnsembleReweight {
		family = "residual-ensemble"
	}
	inputs := []cdx.MLInputOutputParameters{{Format: "residual-table"}}
	outputs := []cdx.MLInputOutputParameters{{Format: "binary-leak-decision"}}

	metrics := []cdx.MLPerformanceMetric{
		{Type: "accuracy-before", Value: num(row.AccuracyBefore), Slice: "all"},
		{Type: "accuracy-after", Value: num(row.AccuracyAfter), Slice: "all"},
		{Type: string(row.Metric) + "-disparity-before", Value: num(row.DisparityBefore), Slice: "all"},
		{Type: string(row.Metric) + "-disparity-after", Value: num(row.DisparityAfter), Slice: "all"},
	}
	var assessments []cdx.MLModelCardFairnessAssessment
	for _, before := range row.Before.Groups {
		after, _ := row.After.Group(before.Group)
		metrics = append(metrics,
			cdx.MLPerformanceMetric{Type: "tpr-before", Value: rate(before.TPR), Slice: before.Group},
			cdx.MLPerformanceMetric{Type: "tpr-after", Value: rate(after.TPR), Slice: before.Group},
			cdx.MLPerformanceMetric{Type: "fpr-before", Value: rate(before.FPR), Slice: before.Group},
			cdx.MLPerformanceMetric{Type: "fpr-after", Value: rate(after.FPR), Slice: before.Group},
		)
		assessments = append(assessments, cdx.MLModelCardFairnessAssessment{
			GroupAtRisk:        before.Group,
			Benefits:           fmt.Sprintf("leak detection rate %s -> %s", rate(before.TPR), rate(after.TPR)),
			Harms:              fmt.Sprintf("false alarm rate %s -> %s", rate(before.FPR), rate(after.FPR)),
			MitigationStrategy: mitigation(row, before.Group),
		})
	}

	tradeoffs := []string{fmt.Sprintf("accuracy %s -> %s for %s disparity %s -> %s",
		num(row.AccuracyBefore), num(row.AccuracyAfter), row.Metric, num(row.DisparityBefore), num(row.DisparityAfter))}
	cons := &cdx.MLModelCardConsiderations{
		PerformanceTradeoffs: &tradeoffs,
		FairnessAssessments:  &assessments,
	}
	if len(row.After.Excluded) > 0 {
		limits := []string{"undefined rates excluded from the disparity: " + strings.Join(row.After.Excluded, ", ")}
		cons.TechnicalLimitations = &limits
	}

	return &cdx.MLModelCard{
		BOMRef: "modelcard:" + row.Config,
		ModelParameters: &cdx.MLModelParameters{
			Approach:           &cdx.MLModelParametersApproach{Type: cdx.MLModelParametersApproachTypeSupervised},
			Task:               "leak-detection",
			ArchitectureFamily: family,
			Inputs:             &inputs,
			Outputs:            &outputs,
		},
		QuantitativeAnalysis: &cdx.MLQuantitativeAnalysis{PerformanceMetrics: &metrics},
		Considerations:       cons,
	}
}

func mitigation(row compare.Row, group string) string {
	switch row.Status {
	case enhance.StatusInfeasible:
		return fmt.Sprintf("none: target not achievable (best disparity %s)", num(row.BestDisparity))
	case enhance.StatusAlreadyFair:
		return "none: already within tolerance"
	}
	if row.Adjustment == nil {
		return "none"
	}
	ga, ok := row.Adjustment.For(group)
	if !ok || !ga.Changed {
		return "unchanged"
	}
	if ga.Weights != nil {
		parts := make([]string, len(ga.Weights))
		for i, w := range ga.Weights {
			parts[i] = strconv.FormatFloat(w, 'f', -1, 64)
		}
		return "ensemble weights [" + strings.Join(parts, " ") + "]"
	}
	return "group threshold " + num(ga.Threshold)
}
