package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/report"
	"github.com/idlab-discover/fairleak/internal/store"
	"github.com/idlab-discover/fairleak/internal/tabular"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List stored experiment runs or show one run",
	Long:  "Without arguments, list the runs of the SQLite run store (newest first). With a run id, show its comparison. --decisions exports the stored decisions of an experiment.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRuns,
}

func runRuns(cmd *cobra.Command, args []string) error {
	quiet, err := resolveLogLevel(cmd, "runs")
	if err != nil {
		return err
	}
	dbPath := viper.GetString("runs.store")
	if dbPath == "" {
		return apperr.User("--store is required")
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	out := ui.NewAnalysisUI(cmd.OutOrStdout(), quiet)
	experimentName := viper.GetString("runs.experiment")

	if path := viper.GetString("runs.decisions"); path != "" {
		if experimentName == "" {
			return apperr.User("--decisions requires --experiment")
		}
		decs, err := st.Decisions(experimentName, viper.GetString("runs.config"))
		if err != nil {
			return err
		}
		return tabular.Write(path, "auto", report.StoredDecisionTable(decs))
	}

	if len(args) == 1 {
		run, results, err := st.GetRun(args[0])
		if err != nil {
			return apperr.Wrap(err)
		}
		out.PrintComparison(storedCompareView(run, results))
		return nil
	}

	runs, err := st.ListRuns(experimentName)
	if err != nil {
		return err
	}
	out.PrintRuns(runRows(runs))
	return nil
}

func init() {
	f := runsCmd.Flags()
	f.String("store", "", "SQLite run store path")
	f.StringP("experiment", "e", "", "Only runs of this experiment")
	f.String("decisions", "", "Export the stored decisions of --experiment to this file")
	f.StringP("config", "c", "", "Restrict exported decisions to one configuration")
	bindFlags(runsCmd, "runs", "store", "experiment", "decisions", "config")
	addLogLevelFlag(runsCmd, "runs")
}
