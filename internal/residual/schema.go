package residual

import (
	"fmt"
	"sort"
	"strings"
)

// Schema maps the network-specific column names of a residual file onto the row model.
type Schema struct {
	Name      string   `yaml:"name" mapstructure:"name"`
	Scenario  string   `yaml:"scenario" mapstructure:"scenario"`
	Sensor    string   `yaml:"sensor" mapstructure:"sensor"`
	Step      string   `yaml:"step" mapstructure:"step"`
	Residuals []string `yaml:"residuals" mapstructure:"residuals"`
	Leak      string   `yaml:"leak" mapstructure:"leak"`
}

var presets = map[string]Schema{
	"default": {
		Name:      "default",
		Scenario:  "scenario",
		Sensor:    "sensor",
		Step:      "step",
		Residuals: []string{"residual"},
		Leak:      "leak",
	},
	// L-Town exports carry one pressure and one demand residual per node and
	// wall-clock timestamps instead of step indices.
	"ltown": {
		Name:      "ltown",
		Scenario:  "scenario_id",
		Sensor:    "node_id",
		Step:      "timestamp",
		Residuals: []string{"pressure_residual", "demand_residual"},
		Leak:      "leak",
	},
}

// Preset returns a built-in schema by name.
func Preset(name string) (Schema, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "default"
	}
	s, ok := presets[key]
	if !ok {
		return Schema{}, fmt.Errorf("%w: unknown network schema %q (expected %s)", ErrSchema, name, strings.Join(PresetNames(), "|"))
	}
	s.Residuals = append([]string(nil), s.Residuals...)
	return s, nil
}

// PresetNames lists the built-in schema names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Override replaces the non-empty fields of o into s.
func (s Schema) Override(o Schema) Schema {
	if o.Scenario != "" {
		s.Scenario = o.Scenario
	}
	if o.Sensor != "" {
		s.Sensor = o.Sensor
	}
	if o.Step != "" {
		s.Step = o.Step
	}
	if len(o.Residuals) > 0 {
		s.Residuals = append([]string(nil), o.Residuals...)
	}
	if o.Leak != "" {
		s.Leak = o.Leak
	}
	return s
}

// Validate checks that every column is named.
func (s Schema) Validate() error {
	missing := []string{}
	if s.Scenario == "" {
		missing = append(missing, "scenario")
	}
	if s.Sensor == "" {
		missing = append(missing, "sensor")
	}
	if s.Step == "" {
		missing = append(missing, "step")
	}
	if len(s.Residuals) == 0 {
		missing = append(missing, "residuals")
	}
	if s.Leak == "" {
		missing = append(missing, "leak")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: schema %q has no column for %s", ErrSchema, s.Name, strings.Join(missing, ", "))
	}
	return nil
}
