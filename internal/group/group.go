// Package group partitions sensors into protected groups.
package group

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/idlab-discover/fairleak/internal/tabular"
)

// Sensor carries the protected attributes of one sensor.
type Sensor struct {
	ID       string
	Category string
	Value    float64 // NaN when the file has no value for this sensor
}

// HasValue reports whether the continuous attribute is present.
func (s Sensor) HasValue() bool { return !math.IsNaN(s.Value) }

// Partition maps every sensor to exactly one group.
type Partition struct {
	groups []string
	assign map[string]string
}

// New builds a partition from an explicit mapping. Groups keep the given
// order; groups referenced by the mapping but missing from order are appended
// in sorted order.
func New(order []string, assign map[string]string) *Partition {
	p := &Partition{assign: make(map[string]string, len(assign))}
	seen := map[string]bool{}
	for _, g := range order {
		if !seen[g] {
			seen[g] = true
			p.groups = append(p.groups, g)
		}
	}
	var extra []string
	for s, g := range assign {
		p.assign[s] = g
		if !seen[g] {
			seen[g] = true
			extra = append(extra, g)
		}
	}
	sort.Strings(extra)
	p.groups = append(p.groups, extra...)
	return p
}

// Groups returns the group names in configuration order.
func (p *Partition) Groups() []string { return append([]string(nil), p.groups...) }

// GroupOf returns the group of a sensor.
func (p *Partition) GroupOf(sensor string) (string, bool) {
	g, ok := p.assign[sensor]
	return g, ok
}

// Members returns the sorted sensors of a group.
func (p *Partition) Members(group string) []string {
	var out []string
	for s, g := range p.assign {
		if g == group {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Sizes returns the number of sensors per group, including empty groups.
func (p *Partition) Sizes() map[string]int {
	out := make(map[string]int, len(p.groups))
	for _, g := range p.groups {
		out[g] = 0
	}
	for _, g := range p.assign {
		out[g]++
	}
	return out
}

// Len is the number of assigned sensors.
func (p *Partition) Len() int { return len(p.assign) }

// Validate checks that every listed sensor is assigned to a known group.
func (p *Partition) Validate(sensors []string) error {
	known := make(map[string]bool, len(p.groups))
	for _, g := range p.groups {
		known[g] = true
	}
	for s, g := range p.assign {
		if !known[g] {
			return fmt.Errorf("%w: sensor %q assigned to unknown group %q", ErrConfig, s, g)
		}
	}
	for _, s := range sensors {
		if _, ok := p.assign[s]; !ok {
			return fmt.Errorf("%w: sensor %q has no group", ErrConfig, s)
		}
	}
	return nil
}

// Assign partitions sensors according to cfg. Sensor ids must be unique.
func Assign(sensors []Sensor, cfg Config) (*Partition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(sensors))
	for _, s := range sensors {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("%w: sensor without an id", ErrConfig)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: sensor %q listed twice", ErrConfig, s.ID)
		}
		seen[s.ID] = true
	}

	var (
		p   *Partition
		err error
	)
	switch cfg.Mode {
	case ModeCategorical:
		p, err = assignCategorical(sensors, cfg)
	case ModeThreshold:
		p, err = assignThreshold(sensors, cfg)
	default:
		p, err = assignQuantile(sensors, cfg.Bins)
	}
	if err != nil {
		return nil, err
	}
	for _, g := range p.groups {
		logf(string(cfg.Mode), "group %s: %d sensors", g, len(p.Members(g)))
	}
	return p, nil
}

func specNames(cfg Config) []string {
	out := make([]string, len(cfg.Groups))
	for i, g := range cfg.Groups {
		out[i] = g.Name
	}
	return out
}

func assignCategorical(sensors []Sensor, cfg Config) (*Partition, error) {
	owner := map[string]string{}
	for _, g := range cfg.Groups {
		for _, c := range g.Categories {
			owner[normCategory(c)] = g.Name
		}
	}
	assign := make(map[string]string, len(sensors))
	for _, s := range sensors {
		g, ok := owner[normCategory(s.Category)]
		if !ok {
			return nil, fmt.Errorf("%w: sensor %q has category %q outside every group", ErrConfig, s.ID, s.Category)
		}
		assign[s.ID] = g
	}
	return New(specNames(cfg), assign), nil
}

func assignThreshold(sensors []Sensor, cfg Config) (*Partition, error) {
	ivs := cfg.intervals()
	assign := make(map[string]string, len(sensors))
	for _, s := range sensors {
		if !s.HasValue() {
			return nil, fmt.Errorf("%w: sensor %q has no attribute value", ErrConfig, s.ID)
		}
		found := false
		for _, iv := range ivs {
			if s.Value >= iv.lo && s.Value < iv.hi {
				assign[s.ID] = iv.name
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: sensor %q value %g outside every bin", ErrConfig, s.ID, s.Value)
		}
	}
	return New(specNames(cfg), assign), nil
}

// assignQuantile sorts by (value, id) and cuts at equal counts. A run of
// equal values goes to the bin of its first element.
func assignQuantile(sensors []Sensor, bins int) (*Partition, error) {
	sorted := append([]Sensor(nil), sensors...)
	for _, s := range sorted {
		if !s.HasValue() {
			return nil, fmt.Errorf("%w: sensor %q has no attribute value", ErrConfig, s.ID)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value < sorted[j].Value
		}
		return sorted[i].ID < sorted[j].ID
	})
	names := make([]string, bins)
	for i := range names {
		names[i] = "q" + strconv.Itoa(i+1)
	}
	n := len(sorted)
	assign := make(map[string]string, n)
	bin := 0
	for i, s := range sorted {
		if i == 0 || s.Value != sorted[i-1].Value {
			bin = i * bins / n
		}
		assign[s.ID] = names[bin]
	}
	return New(names, assign), nil
}

// LoadSensors reads a sensor attribute file with columns sensor, category
// and an optional value column.
func LoadSensors(path, format, sheet string) ([]Sensor, error) {
	raw, err := tabular.Read(path, format, sheet)
	if err != nil {
		return nil, err
	}
	sensors, err := SensorsFromTable(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logf(path, "loaded %d sensors", len(sensors))
	return sensors, nil
}

// SensorsFromTable converts a raw table into sensors.
func SensorsFromTable(raw *tabular.Table) ([]Sensor, error) {
	idCol := raw.Index("sensor")
	if idCol < 0 {
		return nil, fmt.Errorf("%w: missing column %q", ErrConfig, "sensor")
	}
	catCol := raw.Index("category")
	valCol := raw.Index("value")
	if catCol < 0 && valCol < 0 {
		return nil, fmt.Errorf("%w: need a %q or %q column", ErrConfig, "category", "value")
	}
	out := make([]Sensor, 0, len(raw.Records))
	for i, rec := range raw.Records {
		s := Sensor{ID: strings.TrimSpace(rec[idCol]), Value: math.NaN()}
		if catCol >= 0 {
			s.Category = strings.TrimSpace(rec[catCol])
		}
		if valCol >= 0 {
			if cell := strings.TrimSpace(rec[valCol]); cell != "" {
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("%w: row %d: bad value %q", ErrConfig, i+2, cell)
				}
				s.Value = v
			}
		}
		out = append(out, s)
	}
	return out, nil
}
