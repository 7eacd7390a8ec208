// Package export publishes comparison results as Prometheus gauges written
// to a text-exposition file (node_exporter textfile collector format).
package export

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

const namespace = "fairleak"

// Exporter holds the gauges of one experiment.
type Exporter struct {
	reg       *prometheus.Registry
	disparity *prometheus.GaugeVec
	accuracy  *prometheus.GaugeVec
	feasible  *prometheus.GaugeVec
	groupRate *prometheus.GaugeVec
}

// New registers the gauges on a fresh registry.
func New(experiment string) *Exporter {
	labels := prometheus.Labels{"experiment": experiment}
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		disparity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "disparity",
			Help:        "Aggregate disparity of the configuration's metric.",
			ConstLabels: labels,
		}, []string{"config", "stage"}),
		accuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "accuracy",
			Help:        "Overall accuracy of the leak decisions.",
			ConstLabels: labels,
		}, []string{"config", "stage"}),
		feasible: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "config_feasible",
			Help:        "1 when the configuration reached its disparity tolerance.",
			ConstLabels: labels,
		}, []string{"config"}),
		groupRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "group_rate",
			Help:        "Per-group rate; undefined rates are not exported.",
			ConstLabels: labels,
		}, []string{"config", "group", "rate", "stage"}),
	}
	e.reg.MustRegister(e.disparity, e.accuracy, e.feasible, e.groupRate)
	return e
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Observe sets the gauges from a comparison report.
func (e *Exporter) Observe(r *compare.Report) {
	for _, row := range r.Rows {
		e.disparity.WithLabelValues(row.Config, "before").Set(row.DisparityBefore)
		e.disparity.WithLabelValues(row.Config, "after").Set(row.DisparityAfter)
		e.accuracy.WithLabelValues(row.Config, "before").Set(row.AccuracyBefore)
		e.accuracy.WithLabelValues(row.Config, "after").Set(row.AccuracyAfter)
		feasible := 0.0
		if row.Feasible() {
			feasible = 1
		}
		e.feasible.WithLabelValues(row.Config).Set(feasible)

		e.observeGroups(row.Config, "before", row.Before)
		e.observeGroups(row.Config, "after", row.After)
	}
}

func (e *Exporter) observeGroups(config, stage string, res fairness.Result) {
	for _, g := range res.Groups {
		for _, rate := range []fairness.Rate{fairness.TPR, fairness.FPR, fairness.PositiveRate} {
			if v := g.Get(rate); v.Defined {
				e.groupRate.WithLabelValues(config, g.Group, string(rate), stage).Set(v.V)
			}
		}
	}
}

// WriteTextfile writes all gauges to path atomically.
func (e *Exporter) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := prometheus.WriteToTextfile(path, e.reg); err != nil {
		return err
	}
	logf(path, "wrote metrics textfile")
	return nil
}

// WriteTextfile is a shorthand for New, Observe and WriteTextfile.
func WriteTextfile(path string, r *compare.Report) error {
	e := New(r.Experiment)
	e.Observe(r)
	return e.WriteTextfile(path)
}
