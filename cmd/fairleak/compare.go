package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/experiment"
	"github.com/idlab-discover/fairleak/internal/export"
	"github.com/idlab-discover/fairleak/internal/fairness"
	"github.com/idlab-discover/fairleak/internal/report"
	"github.com/idlab-discover/fairleak/internal/store"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Evaluate many (metric, method) configurations and compare their trade-offs",
	Long:  "Evaluate the configurations of an experiment file, or the grid of --metrics x --methods, over one residual table. Writes a comparison report (csv, tsv, xlsx, json or yaml), an optional Prometheus textfile and stores the run in the SQLite run store.",
	RunE:  runCompare,
}

// configurations resolves the experiment file or the metric/method grid.
func configurations(key string) (name string, threshold *float64, configs []experiment.Config, err error) {
	if path := viper.GetString(key + ".experiment"); path != "" {
		exp, err := experiment.Load(path)
		if err != nil {
			return "", nil, nil, apperr.Wrap(err)
		}
		return exp.Name, exp.Threshold, exp.Resolved(), nil
	}

	var metrics []fairness.Metric
	for _, s := range viper.GetStringSlice(key + ".metrics") {
		m, err := fairness.ParseMetric(s)
		if err != nil {
			return "", nil, nil, apperr.Wrap(err)
		}
		metrics = append(metrics, m)
	}
	if len(metrics) == 0 {
		for _, spec := range fairness.Registry() {
			metrics = append(metrics, spec.Metric)
		}
	}
	var methods []enhance.Method
	for _, s := range viper.GetStringSlice(key + ".methods") {
		m, err := enhance.ParseMethod(s)
		if err != nil {
			return "", nil, nil, apperr.Wrap(err)
		}
		methods = append(methods, m)
	}
	if len(methods) == 0 {
		methods = enhance.Methods()
	}
	base := experiment.Config{
		Aggregation: viper.GetString(key + ".aggregation"),
		Budget:      experiment.Float(viper.GetFloat64(key + ".budget")),
		Tolerance:   experiment.Float(viper.GetFloat64(key + ".tolerance")),
		WeightSteps: viper.GetInt(key + ".weight-steps"),
	}
	name = viper.GetString(key + ".name")
	if name == "" {
		name = "grid"
	}
	return name, nil, experiment.Grid(metrics, methods, base), nil
}

func selectConfigurations(configs []experiment.Config) ([]experiment.Config, error) {
	items := make([]ui.SelectorItem, len(configs))
	for i, c := range configs {
		desc := c.Metric + " · " + c.Method
		if c.Budget != nil {
			desc += fmt.Sprintf(" · budget %.3f", *c.Budget)
		}
		items[i] = ui.SelectorItem{Name: c.Name, Description: desc}
	}
	names, err := ui.RunConfigSelector("Select configurations", items)
	if err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	var out []experiment.Config
	for _, c := range configs {
		if keep[c.Name] {
			out = append(out, c)
		}
	}
	return out, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	quiet, err := resolveLogLevel(cmd, "compare")
	if err != nil {
		return err
	}
	name, expThreshold, configs, err := configurations("compare")
	if err != nil {
		return err
	}
	if viper.GetBool("compare.interactive") {
		if configs, err = selectConfigurations(configs); err != nil {
			return err
		}
	}

	dbPath := viper.GetString("compare.store")
	var st *store.Store
	if dbPath != "" {
		if st, err = store.NewStore(dbPath); err != nil {
			return err
		}
		defer st.Close()
		exists, err := st.HasExperiment(name)
		if err != nil {
			return err
		}
		if exists && !viper.GetBool("compare.yes") {
			if !viper.GetBool("compare.interactive") {
				return apperr.Userf("experiment %q already stored in %s; pass --yes to replace its decisions", name, dbPath)
			}
			if err := ui.Confirm("Replace stored experiment?",
				fmt.Sprintf("Decisions of %q in %s will be overwritten.", name, dbPath)); err != nil {
				return err
			}
		}
	}

	var wf *ui.Workflow
	var loadIdx, evalIdx, writeIdx int
	if !quiet {
		wf = ui.NewWorkflow(cmd.OutOrStdout())
		loadIdx = wf.AddTask("Loading residual table")
		evalIdx = wf.AddTask("Evaluating configurations")
		writeIdx = wf.AddTask("Writing outputs")
		wf.Start()
		defer wf.Stop()
		wf.StartTask(loadIdx, ui.Dim.Render(viper.GetString("compare.input")))
	}
	// fail marks task idx failed before returning err.
	fail := func(idx int, err error) error {
		if wf != nil {
			wf.FailTask(idx, err.Error())
		}
		return err
	}

	obs, p, err := loadObservations("compare")
	if err != nil {
		return fail(loadIdx, err)
	}

	rawThreshold := viper.GetString("compare.threshold")
	if rawThreshold == "" && expThreshold != nil {
		rawThreshold = fmt.Sprint(*expThreshold)
	}
	theta, err := parseThreshold(rawThreshold, "auto", obs)
	if err != nil {
		return fail(loadIdx, err)
	}
	if wf != nil {
		wf.CompleteTask(loadIdx, fmt.Sprintf("%d observations in %d groups", len(obs), len(p.Groups())))
		wf.StartTask(evalIdx, ui.Dim.Render(fmt.Sprintf("0/%d", len(configs))))
	}

	onProgress := func(evt compare.Event) {
		if wf == nil {
			return
		}
		switch evt.Type {
		case compare.EventConfigStart:
			wf.UpdateMessage(evalIdx, ui.Dim.Render(fmt.Sprintf("%d/%d: %s", evt.Index+1, evt.Total, evt.Config)))
		case compare.EventConfigInfeasible:
			wf.UpdateMessage(evalIdx, ui.Warning.Render(fmt.Sprintf("%d/%d: %s not achievable", evt.Index+1, evt.Total, evt.Config)))
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rep, err := compare.Run(ctx, obs, configs, compare.Options{
		Experiment: name,
		Threshold:  theta,
		OnProgress: onProgress,
	})
	if err != nil {
		return fail(evalIdx, apperr.Wrap(err))
	}
	if wf != nil {
		wf.CompleteTask(evalIdx, fmt.Sprintf("%d/%d feasible", rep.Feasible(), len(rep.Rows)))
		wf.StartTask(writeIdx, "")
	}

	var written []string
	if out := viper.GetString("compare.output"); out != "" {
		if err := report.Write(out, viper.GetString("compare.format"), rep); err != nil {
			return fail(writeIdx, err)
		}
		written = append(written, out)
	}
	if tf := viper.GetString("compare.textfile"); tf != "" {
		if err := export.WriteTextfile(tf, rep); err != nil {
			return fail(writeIdx, err)
		}
		written = append(written, tf)
	}
	if st != nil {
		run, err := st.SaveRun(rep)
		if err != nil {
			return fail(writeIdx, err)
		}
		written = append(written, dbPath+"#"+run.ID)
	}
	if wf != nil {
		if len(written) == 0 {
			wf.SkipTask(writeIdx, "no output requested")
		} else {
			wf.CompleteTask(writeIdx, strings.Join(written, ", "))
		}
		wf.Stop()
	}

	ui.NewAnalysisUI(cmd.OutOrStdout(), quiet).PrintComparison(compareView(rep))
	return nil
}

// addGridFlags registers the experiment file and metric/method grid flags.
func addGridFlags(c *cobra.Command, key string) {
	f := c.Flags()
	f.StringP("experiment", "e", "", "Experiment file (yaml); overrides --metrics/--methods")
	f.String("name", "", "Experiment name for the metric/method grid (default grid)")
	f.StringSlice("metrics", nil, "Metrics of the grid (default all): "+joinNames(fairness.MetricNames()))
	f.StringSlice("methods", nil, "Methods of the grid (default all): group-threshold|ensemble-reweight")
	f.String("aggregation", "", "Disparity aggregation of the grid: max-gap|mean-gap")
	f.Float64("budget", 0.05, "Accuracy budget of the grid")
	f.Float64("tolerance", 0, "Disparity tolerance of the grid")
	f.Int("weight-steps", 0, "Weight grid resolution for ensemble-reweight")
	f.StringP("threshold", "t", "", "Global decision threshold, or auto (default: experiment threshold, else auto)")
	bindFlags(c, key, "experiment", "name", "metrics", "methods", "aggregation", "budget", "tolerance", "weight-steps", "threshold")
}

func init() {
	f := compareCmd.Flags()
	f.StringP("output", "o", "", "Comparison report path (csv|tsv|xlsx|json|yaml)")
	f.StringP("format", "f", "", "Report format: auto|csv|tsv|xlsx|json|yaml")
	f.String("textfile", "", "Write Prometheus gauges to this textfile")
	f.String("store", "", "SQLite run store path")
	f.BoolP("yes", "y", false, "Replace stored decisions of the experiment without asking")
	f.Bool("interactive", false, "Pick configurations interactively")
	bindFlags(compareCmd, "compare", "output", "format", "textfile", "store", "yes", "interactive")
	addGridFlags(compareCmd, "compare")
	addInputFlags(compareCmd, "compare")
	addLogLevelFlag(compareCmd, "compare")
}
