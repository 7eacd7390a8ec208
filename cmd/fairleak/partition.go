package cmd

import (
	"github.com/spf13/cobra"

	"github.com/idlab-discover/fairleak/internal/ui"
)

var partitionCmd = &cobra.Command{
	Use:   "partition",
	Short: "Assign sensors to protected groups and print the group sizes",
	Long:  "Assign every sensor of the attribute file to exactly one group of the partition file (categorical, threshold or quantile mode) and print the group sizes.",
	RunE:  runPartition,
}

func runPartition(cmd *cobra.Command, args []string) error {
	quiet, err := resolveLogLevel(cmd, "partition")
	if err != nil {
		return err
	}
	p, cfg, err := loadPartition("partition")
	if err != nil {
		return err
	}
	ui.NewAnalysisUI(cmd.OutOrStdout(), quiet).PrintPartition(partitionView(p, cfg.Mode))
	return nil
}

func init() {
	addPartitionFlags(partitionCmd, "partition")
	addLogLevelFlag(partitionCmd, "partition")
}
