package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/modelcard"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var modelcardCmd = &cobra.Command{
	Use:   "modelcard",
	Short: "Export a comparison as a CycloneDX ML model card with fairness assessments",
	Long:  "Run the comparison of the experiment file (or metric/method grid) and export it as a CycloneDX BOM. The metadata component carries the chosen configuration's model card with per-group performance metrics and one fairness assessment per group.",
	RunE:  runModelcard,
}

func runModelcard(cmd *cobra.Command, args []string) error {
	quiet, err := resolveLogLevel(cmd, "modelcard")
	if err != nil {
		return err
	}

	format := viper.GetString("modelcard.format")
	if format == "" {
		format = "auto"
	}
	spec := viper.GetString("modelcard.spec")
	if spec != "" {
		if _, ok := modelcard.ParseSpecVersion(spec); !ok {
			return apperr.Userf("unsupported CycloneDX spec version %q (expected 1.5|1.6)", spec)
		}
	}
	output := viper.GetString("modelcard.output")
	if output == "" {
		output = "dist/modelcard.json"
		if format == "xml" {
			output = "dist/modelcard.xml"
		}
	}

	name, expThreshold, configs, err := configurations("modelcard")
	if err != nil {
		return err
	}
	obs, _, err := loadObservations("modelcard")
	if err != nil {
		return err
	}
	raw := viper.GetString("modelcard.threshold")
	if raw == "" && expThreshold != nil {
		raw = fmt.Sprint(*expThreshold)
	}
	theta, err := parseThreshold(raw, "auto", obs)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rep, err := compare.Run(ctx, obs, configs, compare.Options{Experiment: name, Threshold: theta})
	if err != nil {
		return apperr.Wrap(err)
	}

	toolVersion := ""
	if version != "" && version != "dev" {
		toolVersion = version
	}
	bom, err := modelcard.Build(rep, modelcard.Options{
		Config:      viper.GetString("modelcard.config"),
		ToolVersion: toolVersion,
	})
	if err != nil {
		return apperr.Wrap(err)
	}
	if err := modelcard.Write(output, bom, format, spec); err != nil {
		return apperr.Wrap(err)
	}

	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStatus("success",
			fmt.Sprintf("Model card for %s written to %s", ui.Highlight.Render(bom.Metadata.Component.BOMRef), ui.Secondary.Render(filepath.Clean(output)))))
	}
	return nil
}

func init() {
	f := modelcardCmd.Flags()
	f.StringP("output", "o", "", "Output path (default dist/modelcard.json)")
	f.StringP("format", "f", "", "Output format: json|xml|auto")
	f.String("spec", "", "CycloneDX spec version (1.5|1.6, default latest)")
	f.StringP("config", "c", "", "Configuration described by the metadata component (default: best feasible)")
	bindFlags(modelcardCmd, "modelcard", "output", "format", "spec", "config")
	addGridFlags(modelcardCmd, "modelcard")
	addInputFlags(modelcardCmd, "modelcard")
	addLogLevelFlag(modelcardCmd, "modelcard")
}
