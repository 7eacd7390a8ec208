package cmd

import (
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/experiment"
	"github.com/idlab-discover/fairleak/internal/export"
	"github.com/idlab-discover/fairleak/internal/fairness"
	"github.com/idlab-discover/fairleak/internal/group"
	"github.com/idlab-discover/fairleak/internal/modelcard"
	"github.com/idlab-discover/fairleak/internal/report"
	"github.com/idlab-discover/fairleak/internal/residual"
	"github.com/idlab-discover/fairleak/internal/store"
	"github.com/idlab-discover/fairleak/internal/synth"
	"github.com/idlab-discover/fairleak/internal/tabular"
)

// bindFlags binds every named flag of c to "<key>.<flag>".
func bindFlags(c *cobra.Command, key string, names ...string) {
	for _, n := range names {
		viper.BindPFlag(key+"."+n, c.Flags().Lookup(n))
	}
}

func addLogLevelFlag(c *cobra.Command, key string) {
	c.Flags().String("log-level", "", "Log level: quiet|standard|debug")
	bindFlags(c, key, "log-level")
}

// resolveLogLevel validates <key>.log-level and wires package loggers to
// stderr in debug mode.
func resolveLogLevel(c *cobra.Command, key string) (quiet bool, err error) {
	level := strings.ToLower(strings.TrimSpace(viper.GetString(key + ".log-level")))
	if level == "" {
		level = "standard"
	}
	switch level {
	case "quiet", "standard", "debug":
	default:
		return false, apperr.Userf("invalid --log-level %q (expected quiet|standard|debug)", level)
	}
	var w io.Writer
	if level == "debug" {
		w = c.ErrOrStderr()
	}
	setLoggers(w)
	return level == "quiet", nil
}

func setLoggers(w io.Writer) {
	tabular.SetLogger(w)
	residual.SetLogger(w)
	group.SetLogger(w)
	decision.SetLogger(w)
	fairness.SetLogger(w)
	enhance.SetLogger(w)
	experiment.SetLogger(w)
	compare.SetLogger(w)
	report.SetLogger(w)
	export.SetLogger(w)
	modelcard.SetLogger(w)
	store.SetLogger(w)
	synth.SetLogger(w)
}

var partitionFlagNames = []string{"sensors", "sensor-format", "sensor-sheet", "partition"}

func addPartitionFlags(c *cobra.Command, key string) {
	f := c.Flags()
	f.StringP("sensors", "s", "", "Sensor attribute file with sensor, category and value columns")
	f.String("sensor-format", "", "Sensor file format: csv|tsv|xlsx|auto")
	f.String("sensor-sheet", "", "Spreadsheet sheet of the sensor file (default: first sheet)")
	f.StringP("partition", "p", "", "Partition file (yaml)")
	bindFlags(c, key, partitionFlagNames...)
}

var inputFlagNames = []string{"input", "input-format", "sheet", "schema", "residual-columns", "stride", "normalize", "leaks", "leaks-sheet"}

// addInputFlags registers the residual table and partition flags.
func addInputFlags(c *cobra.Command, key string) {
	f := c.Flags()
	f.StringP("input", "i", "", "Residual table (csv|tsv|xlsx)")
	f.String("input-format", "", "Residual table format: csv|tsv|xlsx|auto")
	f.String("sheet", "", "Spreadsheet sheet of the residual table (default: first sheet)")
	f.String("schema", "", "Network schema preset: "+strings.Join(residual.PresetNames(), "|"))
	f.StringSlice("residual-columns", nil, "Residual column names, overriding the schema preset")
	f.Int("stride", 0, "Keep every N-th time step")
	f.Bool("normalize", false, "Min-max normalise every residual channel to [0,1]")
	f.String("leaks", "", "Leak-details table (Description column with Leak Start/Leak End/Location rows) labelling the rows instead of the leak column")
	f.String("leaks-sheet", "", "Spreadsheet sheet of the leak-details table")
	bindFlags(c, key, inputFlagNames...)
	addPartitionFlags(c, key)
}

func loadPartition(key string) (*group.Partition, group.Config, error) {
	sensorsPath := viper.GetString(key + ".sensors")
	partitionPath := viper.GetString(key + ".partition")
	if sensorsPath == "" || partitionPath == "" {
		return nil, group.Config{}, apperr.User("--sensors and --partition are required")
	}
	cfg, err := group.LoadConfig(partitionPath)
	if err != nil {
		return nil, group.Config{}, apperr.Wrap(err)
	}
	sensors, err := group.LoadSensors(sensorsPath, viper.GetString(key+".sensor-format"), viper.GetString(key+".sensor-sheet"))
	if err != nil {
		return nil, group.Config{}, apperr.Wrap(err)
	}
	p, err := group.Assign(sensors, cfg)
	if err != nil {
		return nil, group.Config{}, apperr.Wrap(err)
	}
	return p, cfg, nil
}

// schemaFor resolves the preset, then the top-level "columns" config block,
// then --residual-columns.
func schemaFor(key string) (residual.Schema, error) {
	schema, err := residual.Preset(viper.GetString(key + ".schema"))
	if err != nil {
		return residual.Schema{}, apperr.Wrap(err)
	}
	var override residual.Schema
	if err := viper.UnmarshalKey("columns", &override); err != nil {
		return residual.Schema{}, apperr.Userf("invalid columns configuration: %v", err)
	}
	schema = schema.Override(override)
	if cols := viper.GetStringSlice(key + ".residual-columns"); len(cols) > 0 {
		schema = schema.Override(residual.Schema{Residuals: cols})
	}
	return schema, nil
}

// loadObservations loads the residual table and partition and aggregates
// them into per-(scenario, sensor) observations.
func loadObservations(key string) ([]decision.Observation, *group.Partition, error) {
	input := viper.GetString(key + ".input")
	if input == "" {
		return nil, nil, apperr.User("--input is required")
	}
	schema, err := schemaFor(key)
	if err != nil {
		return nil, nil, err
	}
	p, _, err := loadPartition(key)
	if err != nil {
		return nil, nil, err
	}
	table, err := residual.Load(input, residual.LoadOptions{
		Schema:     schema,
		Format:     viper.GetString(key + ".input-format"),
		Sheet:      viper.GetString(key + ".sheet"),
		Stride:     viper.GetInt(key + ".stride"),
		Normalize:  viper.GetBool(key + ".normalize"),
		Leaks:      viper.GetString(key + ".leaks"),
		LeaksSheet: viper.GetString(key + ".leaks-sheet"),
	})
	if err != nil {
		return nil, nil, err
	}
	obs, err := decision.Aggregate(table, p)
	if err != nil {
		return nil, nil, apperr.Wrap(err)
	}
	if len(obs) == 0 {
		return nil, nil, apperr.Userf("%s: no observations", input)
	}
	return obs, p, nil
}

// parseThreshold accepts a number or "auto" (best base accuracy). An empty
// value falls back to def.
func parseThreshold(raw, def string, obs []decision.Observation) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		s = def
	}
	if s == "auto" {
		return decision.BestThreshold(obs), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperr.Userf("invalid --threshold %q (expected a number or auto)", raw)
	}
	return v, nil
}

func floatFlag(key string) *float64 {
	if !viper.IsSet(key) {
		return nil
	}
	v := viper.GetFloat64(key)
	return &v
}

func joinNames(names []string) string { return strings.Join(names, "|") }
