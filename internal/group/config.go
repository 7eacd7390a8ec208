package group

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// ErrConfig reports an invalid partition configuration or a sensor whose
// attribute falls outside every configured group.
var ErrConfig = errors.New("partition configuration error")

// Mode selects how sensors are mapped onto groups.
type Mode string

const (
	// ModeCategorical matches the categorical attribute against each group's categories.
	ModeCategorical Mode = "categorical"
	// ModeThreshold places the continuous attribute into [min, max) bins.
	ModeThreshold Mode = "threshold"
	// ModeQuantile splits the continuous attribute into equal-frequency bins.
	ModeQuantile Mode = "quantile"
)

// Spec defines one protected group.
type Spec struct {
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories,omitempty"`
	Min        *float64 `yaml:"min,omitempty"`
	Max        *float64 `yaml:"max,omitempty"`
}

// Config is the partition file.
type Config struct {
	Mode   Mode   `yaml:"mode"`
	Groups []Spec `yaml:"groups,omitempty"`
	Bins   int    `yaml:"bins,omitempty"`
}

// LoadConfig reads and validates a partition file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := ParseConfig(bytes.NewReader(raw))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes a partition file. Unknown fields are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration independently of any sensor list.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeQuantile:
		if c.Bins < 2 {
			return fmt.Errorf("%w: quantile mode needs bins >= 2, got %d", ErrConfig, c.Bins)
		}
		if len(c.Groups) > 0 {
			return fmt.Errorf("%w: quantile mode derives its groups, remove the groups list", ErrConfig)
		}
		return nil
	case ModeCategorical, ModeThreshold:
	default:
		return fmt.Errorf("%w: unknown mode %q (expected categorical|threshold|quantile)", ErrConfig, c.Mode)
	}

	if len(c.Groups) < 2 {
		return fmt.Errorf("%w: at least two groups are required, got %d", ErrConfig, len(c.Groups))
	}
	names := map[string]bool{}
	for _, g := range c.Groups {
		name := strings.TrimSpace(g.Name)
		if name == "" {
			return fmt.Errorf("%w: group without a name", ErrConfig)
		}
		if names[name] {
			return fmt.Errorf("%w: duplicate group %q", ErrConfig, name)
		}
		names[name] = true
	}

	if c.Mode == ModeCategorical {
		return c.validateCategories()
	}
	return c.validateBins()
}

func (c Config) validateCategories() error {
	owner := map[string]string{}
	for _, g := range c.Groups {
		if len(g.Categories) == 0 {
			return fmt.Errorf("%w: group %q has no categories", ErrConfig, g.Name)
		}
		if g.Min != nil || g.Max != nil {
			return fmt.Errorf("%w: group %q: min/max are only valid in threshold mode", ErrConfig, g.Name)
		}
		for _, cat := range g.Categories {
			key := normCategory(cat)
			if prev, ok := owner[key]; ok {
				return fmt.Errorf("%w: category %q claimed by %q and %q", ErrConfig, cat, prev, g.Name)
			}
			owner[key] = g.Name
		}
	}
	return nil
}

type interval struct {
	name   string
	lo, hi float64
}

func (c Config) intervals() []interval {
	out := make([]interval, len(c.Groups))
	for i, g := range c.Groups {
		iv := interval{name: g.Name, lo: math.Inf(-1), hi: math.Inf(1)}
		if g.Min != nil {
			iv.lo = *g.Min
		}
		if g.Max != nil {
			iv.hi = *g.Max
		}
		out[i] = iv
	}
	return out
}

func (c Config) validateBins() error {
	for _, g := range c.Groups {
		if len(g.Categories) > 0 {
			return fmt.Errorf("%w: group %q: categories are only valid in categorical mode", ErrConfig, g.Name)
		}
	}
	ivs := c.intervals()
	for _, iv := range ivs {
		if !(iv.lo < iv.hi) {
			return fmt.Errorf("%w: group %q: min must be below max", ErrConfig, iv.name)
		}
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].lo < ivs[j].lo })
	for i := 1; i < len(ivs); i++ {
		if ivs[i].lo < ivs[i-1].hi {
			return fmt.Errorf("%w: groups %q and %q overlap", ErrConfig, ivs[i-1].name, ivs[i].name)
		}
	}
	return nil
}

func normCategory(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Float is a helper for building threshold specs in code.
func Float(v float64) *float64 { return &v }
