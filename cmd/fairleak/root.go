package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/ui"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fairleak",
	Short: "Fairness-enhancing leakage detection analysis for water distribution networks",
	Long:  longDescription,

	SilenceUsage: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initUIAndBanner(cmd)
	},

	// Without a subcommand, show help with the banner.
	RunE: func(cmd *cobra.Command, args []string) error {
		initUIAndBanner(cmd)
		return cmd.Help()
	},
}

var cfgFile string
var version string

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// GetRootCmd returns the root command for use with fang
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fairleak.yaml or ./config/defaults.yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable ANSI colors in log output (also NO_COLOR)")

	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		initUIAndBanner(cmd)
		defaultHelp(cmd, args)
	})

	rootCmd.AddCommand(partitionCmd, metricsCmd, enhanceCmd, compareCmd, modelcardCmd, runsCmd, synthCmd)
}

func initConfig() {
	// FAIRLEAK_COMPARE_THRESHOLD overrides compare.threshold, and so on.
	viper.SetEnvPrefix("FAIRLEAK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			cobra.CheckErr(err)
		}
		announceConfig()
		return
	}

	home, err := os.UserHomeDir()
	cobra.CheckErr(err)

	viper.SetConfigType("yaml")
	viper.AddConfigPath(home)
	viper.AddConfigPath("./config")

	viper.SetConfigName(".fairleak")
	err = viper.ReadInConfig()

	notFound := &viper.ConfigFileNotFoundError{}
	if err != nil && errors.As(err, notFound) {
		viper.SetConfigName("defaults")
		err = viper.ReadInConfig()
	}

	switch {
	case err != nil && !errors.As(err, notFound):
		cobra.CheckErr(err)
	case err != nil:
		// the config file is optional
	default:
		announceConfig()
	}
}

func announceConfig() {
	configMsg := ui.Dim.Render("Using config file: ") + ui.Secondary.Render(viper.ConfigFileUsed())
	fmt.Fprintln(os.Stderr, configMsg)
}

const longDescription = "Fairness analysis for leakage detection in water distribution networks. Partitions sensors into protected groups, measures per-group detection disparity and searches per-group thresholds or ensemble weights that equalise it within an accuracy budget."

func initUIAndBanner(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	noColor, _ := cmd.Flags().GetBool("no-color")
	ui.Init(noColor || os.Getenv("NO_COLOR") != "")
	cmd.Root().Long = ui.RenderGradientBanner(ui.BannerASCII) + "\n" + longDescription
}
