// Package experiment reads experiment files: a named list of enhancement
// configurations evaluated over one residual table.
package experiment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	yaml "go.yaml.in/yaml/v3"

	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

// ErrConfig reports an invalid experiment file.
var ErrConfig = errors.New("experiment configuration error")

// Config is one enhancement configuration. Zero fields inherit from the
// experiment defaults.
type Config struct {
	Name        string   `yaml:"name" validate:"required"`
	Metric      string   `yaml:"metric,omitempty" validate:"omitempty,metric"`
	Aggregation string   `yaml:"aggregation,omitempty" validate:"omitempty,aggregation"`
	Method      string   `yaml:"method,omitempty" validate:"omitempty,method"`
	Budget      *float64 `yaml:"budget,omitempty" validate:"omitempty,gte=0,lte=1"`
	Tolerance   *float64 `yaml:"tolerance,omitempty" validate:"omitempty,gte=0"`
	WeightSteps int      `yaml:"weight-steps,omitempty" validate:"gte=0,lte=1000"`
}

// Experiment is the experiment file.
type Experiment struct {
	Name string `yaml:"name" validate:"required"`
	// Threshold is the global decision threshold. Nil means calibrate on
	// the base scores for best accuracy.
	Threshold      *float64 `yaml:"threshold,omitempty"`
	Defaults       Config   `yaml:"defaults,omitempty" validate:"-"`
	Configurations []Config `yaml:"configurations" validate:"required,min=1,dive"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("metric", func(fl validator.FieldLevel) bool {
		_, err := fairness.ParseMetric(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("aggregation", func(fl validator.FieldLevel) bool {
		_, err := fairness.ParseAggregation(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("method", func(fl validator.FieldLevel) bool {
		_, err := enhance.ParseMethod(fl.Field().String())
		return err == nil
	})
}

// Load reads and validates an experiment file.
func Load(path string) (*Experiment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	exp, err := Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logf(exp.Name, "loaded %d configurations from %s", len(exp.Configurations), path)
	return exp, nil
}

// Parse decodes an experiment file. Unknown fields are rejected.
func Parse(r io.Reader) (*Experiment, error) {
	var exp Experiment
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&exp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := exp.Validate(); err != nil {
		return nil, err
	}
	return &exp, nil
}

// Validate checks field ranges, names and that every configuration resolves
// to a request.
func (e *Experiment) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := validate.StructExcept(e.Defaults, "Name"); err != nil {
		return fmt.Errorf("%w: defaults: %v", ErrConfig, err)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: experiment needs a name", ErrConfig)
	}
	seen := map[string]bool{}
	for _, c := range e.Configurations {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("%w: configuration without a name", ErrConfig)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate configuration %q", ErrConfig, name)
		}
		seen[name] = true
		if _, err := e.Resolve(c).Request(0); err != nil {
			return fmt.Errorf("%w: configuration %q: %v", ErrConfig, name, err)
		}
	}
	return nil
}

// Resolve fills the zero fields of c from the experiment defaults.
func (e *Experiment) Resolve(c Config) Config {
	d := e.Defaults
	if c.Metric == "" {
		c.Metric = d.Metric
	}
	if c.Aggregation == "" {
		c.Aggregation = d.Aggregation
	}
	if c.Method == "" {
		c.Method = d.Method
	}
	if c.Budget == nil {
		c.Budget = d.Budget
	}
	if c.Tolerance == nil {
		c.Tolerance = d.Tolerance
	}
	if c.WeightSteps == 0 {
		c.WeightSteps = d.WeightSteps
	}
	return c
}

// Resolved returns every configuration with defaults applied.
func (e *Experiment) Resolved() []Config {
	out := make([]Config, len(e.Configurations))
	for i, c := range e.Configurations {
		out[i] = e.Resolve(c)
	}
	return out
}

// Request converts the configuration into an enhancement request at the
// given global threshold.
func (c Config) Request(threshold float64) (enhance.Request, error) {
	if c.Metric == "" {
		return enhance.Request{}, fmt.Errorf("metric is required")
	}
	m, err := fairness.ParseMetric(c.Metric)
	if err != nil {
		return enhance.Request{}, err
	}
	a, err := fairness.ParseAggregation(c.Aggregation)
	if err != nil {
		return enhance.Request{}, err
	}
	method, err := enhance.ParseMethod(c.Method)
	if err != nil {
		return enhance.Request{}, err
	}
	req := enhance.Request{
		Metric:      m,
		Aggregation: a,
		Method:      method,
		Threshold:   threshold,
		WeightSteps: c.WeightSteps,
	}
	if c.Budget != nil {
		req.Budget = *c.Budget
	}
	if c.Tolerance != nil {
		req.Tolerance = *c.Tolerance
	}
	return req, req.Validate()
}

// Grid builds one configuration per (metric, method) pair, named
// "<metric>/<method>".
func Grid(metrics []fairness.Metric, methods []enhance.Method, base Config) []Config {
	var out []Config
	for _, m := range metrics {
		for _, meth := range methods {
			c := base
			c.Name = string(m) + "/" + string(meth)
			c.Metric = string(m)
			c.Method = string(meth)
			out = append(out, c)
		}
	}
	return out
}

// Float is a helper for optional numeric fields.
func Float(v float64) *float64 { return &v }
