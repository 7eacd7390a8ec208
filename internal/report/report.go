// Package report writes comparison reports and decision tables to files.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/store"
	"github.com/idlab-discover/fairleak/internal/tabular"
)

// Format is an output file format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ResolveFormat picks the format from an explicit value or the extension.
func ResolveFormat(path, format string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(format)))
	switch f {
	case "", FormatAuto:
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			return FormatJSON, nil
		case ".yaml", ".yml":
			return FormatYAML, nil
		case ".xlsx":
			return FormatXLSX, nil
		case ".tsv":
			return FormatTSV, nil
		default:
			return FormatCSV, nil
		}
	case FormatCSV, FormatTSV, FormatXLSX, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported report format %q (expected csv|tsv|xlsx|json|yaml)", format)
}

var comparisonHeader = []string{
	"config", "metric", "aggregation", "method", "budget", "tolerance", "status",
	"accuracy_before", "accuracy_after", "disparity_before", "disparity_after", "best_disparity",
	"group", "size", "threshold", "weights", "tpr_before", "tpr_after", "fpr_before", "fpr_after",
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func opt(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return num(*v)
}

// ComparisonTable flattens a document into one record per (configuration, group).
func ComparisonTable(doc Document) *tabular.Table {
	t := &tabular.Table{Header: append([]string(nil), comparisonHeader...)}
	for _, c := range doc.Configurations {
		for _, g := range c.Groups {
			threshold := ""
			switch {
			case g.FlagsNone:
				threshold = "+inf"
			case g.Threshold != nil:
				threshold = num(*g.Threshold)
			}
			weights := make([]string, len(g.Weights))
			for i, w := range g.Weights {
				weights[i] = strconv.FormatFloat(w, 'f', -1, 64)
			}
			t.Records = append(t.Records, []string{
				c.Name, c.Metric, c.Aggregation, c.Method, num(c.Budget), num(c.Tolerance), c.Status,
				num(c.AccuracyBefore), num(c.AccuracyAfter), num(c.DisparityBefore), num(c.DisparityAfter), num(c.BestDisparity),
				g.Group, strconv.Itoa(g.Size), threshold, strings.Join(weights, ";"),
				opt(g.TPRBefore), opt(g.TPRAfter), opt(g.FPRBefore), opt(g.FPRAfter),
			})
		}
	}
	return t
}

// Write stores the comparison report at path.
func Write(path, format string, r *compare.Report) error {
	f, err := ResolveFormat(path, format)
	if err != nil {
		return err
	}
	doc := NewDocument(r)
	switch f {
	case FormatJSON, FormatYAML:
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		out, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := Encode(out, f, doc); err != nil {
			_ = out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
	default:
		if err := tabular.Write(path, string(f), ComparisonTable(doc)); err != nil {
			return err
		}
	}
	logf(path, "wrote %d configurations as %s", len(doc.Configurations), f)
	return nil
}

// Encode writes the document as JSON, YAML or a delimited table.
func Encode(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV, FormatTSV:
		return tabular.Encode(w, tabular.Format(f), ComparisonTable(doc))
	}
	return fmt.Errorf("format %q cannot be streamed", f)
}

var decisionHeader = []string{"scenario", "sensor", "group", "score", "label", "decision"}

// DecisionTable converts observations into one record each.
func DecisionTable(obs []decision.Observation) *tabular.Table {
	t := &tabular.Table{Header: append([]string(nil), decisionHeader...)}
	for _, o := range obs {
		t.Records = append(t.Records, []string{
			o.Scenario, o.Sensor, o.Group, num(o.Score()),
			strconv.FormatBool(o.Label), strconv.FormatBool(o.Decision),
		})
	}
	return t
}

// WriteDecisions stores per-observation decisions as CSV, TSV or XLSX.
func WriteDecisions(path, format string, obs []decision.Observation) error {
	if err := tabular.Write(path, format, DecisionTable(obs)); err != nil {
		return err
	}
	logf(path, "wrote %d decisions", len(obs))
	return nil
}

var storedDecisionHeader = []string{"run", "config", "scenario", "sensor", "group", "label", "decision"}

// StoredDecisionTable converts decisions read back from the run store.
func StoredDecisionTable(decs []store.Decision) *tabular.Table {
	t := &tabular.Table{Header: append([]string(nil), storedDecisionHeader...)}
	for _, d := range decs {
		t.Records = append(t.Records, []string{
			d.RunID, d.Config, d.Scenario, d.Sensor, d.Group,
			strconv.FormatBool(d.Label), strconv.FormatBool(d.Decision),
		})
	}
	return t
}
