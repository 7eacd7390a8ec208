package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/modelcard"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var modelcardValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a model card carries fairness assessments for every group",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelcardValidate,
}

func runModelcardValidate(cmd *cobra.Command, args []string) error {
	quiet, err := resolveLogLevel(cmd, "modelcard-validate")
	if err != nil {
		return err
	}
	bom, err := modelcard.ReadFile(args[0], viper.GetString("modelcard-validate.format"))
	if err != nil {
		return apperr.Wrap(err)
	}
	problems := modelcard.Validate(bom, viper.GetBool("modelcard-validate.strict"))
	if len(problems) == 0 {
		if !quiet {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStatus("success", "model card is valid"))
		}
		return nil
	}
	if !quiet {
		for _, p := range problems {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatStatus("error", p))
		}
	}
	return apperr.Userf("%s: %d problem(s)", args[0], len(problems))
}

func init() {
	f := modelcardValidateCmd.Flags()
	f.StringP("format", "f", "", "Input format: json|xml|auto")
	f.Bool("strict", false, "Require a fairness assessment for every group with metrics")
	bindFlags(modelcardValidateCmd, "modelcard-validate", "format", "strict")
	addLogLevelFlag(modelcardValidateCmd, "modelcard-validate")
	modelcardCmd.AddCommand(modelcardValidateCmd)
}
