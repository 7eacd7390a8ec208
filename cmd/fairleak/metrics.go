package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/fairness"
	"github.com/idlab-discover/fairleak/internal/report"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Per-group TPR/FPR and disparity at a global threshold",
	Long:  "Aggregate the residual table into per-(scenario, sensor) observations, flag every observation whose score reaches the threshold and report per-group rates with the aggregate disparity of the chosen metric.",
	RunE:  runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	quiet, err := resolveLogLevel(cmd, "metrics")
	if err != nil {
		return err
	}
	m, err := fairness.ParseMetric(viper.GetString("metrics.metric"))
	if err != nil {
		return apperr.Wrap(err)
	}
	agg, err := fairness.ParseAggregation(viper.GetString("metrics.aggregation"))
	if err != nil {
		return apperr.Wrap(err)
	}

	obs, _, err := loadObservations("metrics")
	if err != nil {
		return err
	}
	theta, err := parseThreshold(viper.GetString("metrics.threshold"), "auto", obs)
	if err != nil {
		return err
	}

	decided := decision.Decide(obs, theta)
	res := fairness.Evaluate(decided, m, agg)
	ui.NewAnalysisUI(cmd.OutOrStdout(), quiet).PrintMetrics(metricsView(res, theta, viper.GetFloat64("metrics.tolerance")))

	if out := viper.GetString("metrics.decisions"); out != "" {
		if err := report.WriteDecisions(out, "auto", decided); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	f := metricsCmd.Flags()
	f.StringP("metric", "m", "equal-opportunity", "Fairness metric: "+joinNames(fairness.MetricNames()))
	f.String("aggregation", "", "Disparity aggregation: max-gap|mean-gap")
	f.StringP("threshold", "t", "", "Global decision threshold, or auto for the most accurate one")
	f.Float64("tolerance", 0.05, "Disparity considered fair (colours the report)")
	f.String("decisions", "", "Write per-observation decisions to this file")
	bindFlags(metricsCmd, "metrics", "metric", "aggregation", "threshold", "tolerance", "decisions")
	addInputFlags(metricsCmd, "metrics")
	addLogLevelFlag(metricsCmd, "metrics")
}
