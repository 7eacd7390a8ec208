package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/experiment"
	"github.com/idlab-discover/fairleak/internal/fairness"
	"github.com/idlab-discover/fairleak/internal/report"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Equalise one fairness metric with per-group thresholds or ensemble weights",
	Long:  "Search per-group operating points that minimise the disparity of the metric while losing at most --budget accuracy. Prints the adjustment, or a not-achievable report and exit code 3 when the tolerance cannot be met.",
	RunE:  runEnhance,
}

func runEnhance(cmd *cobra.Command, args []string) error {
	quiet, err := resolveLogLevel(cmd, "enhance")
	if err != nil {
		return err
	}
	cfg := experiment.Config{
		Name:        "enhance",
		Metric:      viper.GetString("enhance.metric"),
		Aggregation: viper.GetString("enhance.aggregation"),
		Method:      viper.GetString("enhance.method"),
		Budget:      experiment.Float(viper.GetFloat64("enhance.budget")),
		Tolerance:   experiment.Float(viper.GetFloat64("enhance.tolerance")),
		WeightSteps: viper.GetInt("enhance.weight-steps"),
	}
	// validate the flags before loading any file
	if _, err := cfg.Request(0); err != nil {
		return apperr.Wrap(err)
	}

	obs, _, err := loadObservations("enhance")
	if err != nil {
		return err
	}
	theta, err := parseThreshold(viper.GetString("enhance.threshold"), "auto", obs)
	if err != nil {
		return err
	}
	req, err := cfg.Request(theta)
	if err != nil {
		return apperr.Wrap(err)
	}

	out := ui.NewAnalysisUI(cmd.OutOrStdout(), quiet)
	outcome, err := enhance.Enhance(obs, req)
	var infeasible *enhance.InfeasibleError
	if errors.As(err, &infeasible) {
		out.PrintEnhancement(infeasibleView(infeasible))
		return err
	}
	if err != nil {
		return apperr.Wrap(err)
	}
	out.PrintEnhancement(outcomeView(outcome))

	if path := viper.GetString("enhance.decisions"); path != "" {
		if err := report.WriteDecisions(path, "auto", outcome.Adjustment.Apply(obs)); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	f := enhanceCmd.Flags()
	f.StringP("metric", "m", "equal-opportunity", "Fairness metric: "+joinNames(fairness.MetricNames()))
	f.String("aggregation", "", "Disparity aggregation: max-gap|mean-gap")
	f.String("method", "", "Enhancement method: group-threshold|ensemble-reweight")
	f.StringP("threshold", "t", "", "Global decision threshold, or auto for the most accurate one")
	f.Float64("budget", 0.05, "Largest accepted accuracy loss (fraction)")
	f.Float64("tolerance", 0, "Disparity at or below which the result counts as fair")
	f.Int("weight-steps", 0, "Weight grid resolution for ensemble-reweight (default 10)")
	f.String("decisions", "", "Write the adjusted per-observation decisions to this file")
	bindFlags(enhanceCmd, "enhance", "metric", "aggregation", "method", "threshold", "budget", "tolerance", "weight-steps", "decisions")
	addInputFlags(enhanceCmd, "enhance")
	addLogLevelFlag(enhanceCmd, "enhance")
}
