// Package synth generates synthetic residual tables with a controllable
// per-group detection skew, so the analysis pipeline can run without
// simulator output.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	yaml "go.yaml.in/yaml/v3"

	"github.com/idlab-discover/fairleak/internal/group"
	"github.com/idlab-discover/fairleak/internal/residual"
	"github.com/idlab-discover/fairleak/internal/tabular"
)

// ErrOptions reports invalid generator options.
var ErrOptions = errors.New("invalid synthetic options")

// Options controls the generator. Zero fields take the defaults below.
type Options struct {
	Groups          int
	SensorsPerGroup int
	Scenarios       int
	Steps           int
	Channels        int
	// LeakRate is the probability that a (scenario, sensor) pair sees a leak.
	LeakRate float64
	// Magnitude is the residual shift of a leak seen by a fully sensitive sensor.
	Magnitude float64
	Noise     float64
	// Skew in [0,1] lowers the sensitivity of later groups linearly; the last
	// group sees Magnitude*(1-Skew). Odd channels reverse the ordering.
	Skew float64
	Seed int64
}

const (
	defaultGroups          = 3
	defaultSensorsPerGroup = 4
	defaultScenarios       = 20
	defaultSteps           = 12
	defaultChannels        = 1
	defaultLeakRate        = 0.4
	defaultMagnitude       = 1.0
	defaultNoise           = 0.15
)

func (o Options) withDefaults() Options {
	if o.Groups == 0 {
		o.Groups = defaultGroups
	}
	if o.SensorsPerGroup == 0 {
		o.SensorsPerGroup = defaultSensorsPerGroup
	}
	if o.Scenarios == 0 {
		o.Scenarios = defaultScenarios
	}
	if o.Steps == 0 {
		o.Steps = defaultSteps
	}
	if o.Channels == 0 {
		o.Channels = defaultChannels
	}
	if o.LeakRate == 0 {
		o.LeakRate = defaultLeakRate
	}
	if o.Magnitude == 0 {
		o.Magnitude = defaultMagnitude
	}
	if o.Noise == 0 {
		o.Noise = defaultNoise
	}
	return o
}

// Validate checks option ranges after defaults are applied.
func (o Options) Validate() error {
	o = o.withDefaults()
	switch {
	case o.Groups < 2:
		return fmt.Errorf("%w: groups must be at least 2", ErrOptions)
	case o.SensorsPerGroup < 1, o.Scenarios < 1, o.Steps < 1, o.Channels < 1:
		return fmt.Errorf("%w: sensors, scenarios, steps and channels must be positive", ErrOptions)
	case o.LeakRate < 0 || o.LeakRate > 1:
		return fmt.Errorf("%w: leak rate must be in [0,1]", ErrOptions)
	case o.Skew < 0 || o.Skew > 1:
		return fmt.Errorf("%w: skew must be in [0,1]", ErrOptions)
	case o.Noise < 0 || o.Magnitude < 0:
		return fmt.Errorf("%w: noise and magnitude must be non-negative", ErrOptions)
	}
	return nil
}

// Dataset is a generated residual table with its sensor attributes and a
// categorical partition over the zones.
type Dataset struct {
	Table     *residual.Table
	Schema    residual.Schema
	Sensors   []group.Sensor
	Partition group.Config
}

// Zone returns the category of group index g.
func Zone(g int) string { return "zone-" + strconv.Itoa(g+1) }

// ChannelNames returns the residual column names for n channels.
func ChannelNames(n int) []string {
	if n == 1 {
		return []string{"residual"}
	}
	out := make([]string, n)
	for i := range out {
		out[i] = "residual_" + strconv.Itoa(i+1)
	}
	return out
}

// sensitivity of channel c for group g.
func (o Options) sensitivity(c, g int) float64 {
	pos := float64(g) / float64(o.Groups-1)
	if c%2 == 1 {
		pos = 1 - pos
	}
	return 1 - o.Skew*pos
}

// Generate builds a dataset. Equal seeds give equal datasets.
func Generate(opts Options) (*Dataset, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	channels := ChannelNames(opts.Channels)
	schema := residual.Schema{
		Name:      "synthetic",
		Scenario:  "scenario",
		Sensor:    "sensor",
		Step:      "step",
		Residuals: channels,
		Leak:      "leak",
	}

	ds := &Dataset{
		Table:     &residual.Table{Network: "synthetic", Channels: append([]string(nil), channels...)},
		Schema:    schema,
		Partition: group.Config{Mode: group.ModeCategorical},
	}

	type sensor struct {
		id string
		g  int
	}
	var sensors []sensor
	for g := 0; g < opts.Groups; g++ {
		ds.Partition.Groups = append(ds.Partition.Groups, group.Spec{Name: Zone(g), Categories: []string{Zone(g)}})
		for j := 0; j < opts.SensorsPerGroup; j++ {
			id := fmt.Sprintf("n%d-%02d", g+1, j+1)
			sensors = append(sensors, sensor{id: id, g: g})
			// elevation proxy: zones are stacked 10 m apart
			elevation := math.Round((float64(g)*10+rng.Float64()*10)*100) / 100
			ds.Sensors = append(ds.Sensors, group.Sensor{ID: id, Category: Zone(g), Value: elevation})
		}
	}

	leaks := 0
	for sc := 0; sc < opts.Scenarios; sc++ {
		scenario := fmt.Sprintf("scenario-%03d", sc+1)
		for _, s := range sensors {
			onset := -1
			if rng.Float64() < opts.LeakRate {
				onset = rng.Intn(opts.Steps)
				leaks++
			}
			for step := 0; step < opts.Steps; step++ {
				leaking := onset >= 0 && step >= onset
				res := make([]float64, opts.Channels)
				for c := range res {
					v := rng.NormFloat64() * opts.Noise
					if leaking {
						v += opts.Magnitude * opts.sensitivity(c, s.g)
					}
					res[c] = v
				}
				ds.Table.Rows = append(ds.Table.Rows, residual.Row{
					Scenario:  scenario,
					Sensor:    s.id,
					Step:      step,
					Residuals: res,
					Leak:      leaking,
				})
			}
		}
	}
	logf("generate", "%d sensors in %d groups, %d scenarios, %d leaking pairs", len(sensors), opts.Groups, opts.Scenarios, leaks)
	return ds, nil
}

// ResidualTabular renders the residual table with the dataset schema header.
func (d *Dataset) ResidualTabular() *tabular.Table {
	header := []string{d.Schema.Scenario, d.Schema.Sensor, d.Schema.Step}
	header = append(header, d.Schema.Residuals...)
	header = append(header, d.Schema.Leak)

	out := &tabular.Table{Header: header, Records: make([][]string, 0, len(d.Table.Rows))}
	for _, r := range d.Table.Rows {
		rec := []string{r.Scenario, r.Sensor, strconv.Itoa(r.Step)}
		for _, v := range r.Residuals {
			rec = append(rec, strconv.FormatFloat(v, 'f', 6, 64))
		}
		leak := "0"
		if r.Leak {
			leak = "1"
		}
		out.Records = append(out.Records, append(rec, leak))
	}
	return out
}

// SensorTabular renders the sensor attribute file.
func (d *Dataset) SensorTabular() *tabular.Table {
	out := &tabular.Table{Header: []string{"sensor", "category", "value"}}
	for _, s := range d.Sensors {
		out.Records = append(out.Records, []string{s.ID, s.Category, strconv.FormatFloat(s.Value, 'f', 2, 64)})
	}
	return out
}

// Paths are the files written by Write.
type Paths struct {
	Residuals string
	Sensors   string
	Partition string
}

// Write stores the residual table, the sensor file and the partition file
// in dir. format applies to the two tables.
func (d *Dataset) Write(dir string, format string) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, err
	}
	f, err := tabular.ResolveFormat("", format)
	if err != nil {
		return Paths{}, err
	}
	ext := "." + string(f)
	p := Paths{
		Residuals: filepath.Join(dir, "residuals"+ext),
		Sensors:   filepath.Join(dir, "sensors"+ext),
		Partition: filepath.Join(dir, "partition.yaml"),
	}
	if err := tabular.Write(p.Residuals, string(f), d.ResidualTabular()); err != nil {
		return Paths{}, err
	}
	if err := tabular.Write(p.Sensors, string(f), d.SensorTabular()); err != nil {
		return Paths{}, err
	}
	raw, err := yaml.Marshal(d.Partition)
	if err != nil {
		return Paths{}, err
	}
	if err := os.WriteFile(p.Partition, raw, 0o644); err != nil {
		return Paths{}, err
	}
	logf(dir, "wrote %s, %s, %s", filepath.Base(p.Residuals), filepath.Base(p.Sensors), filepath.Base(p.Partition))
	return p, nil
}
