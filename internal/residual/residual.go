// Package residual holds the typed row model of a residual table and its loaders.
//
// A residual table has one row per (scenario, sensor, time-step). Each row carries
// one value per residual channel (observed minus reconstructed reading) and the
// leak label of the scenario at that sensor. Labels come from a leak column or
// from a leak-details table (see Leak). Tables are immutable once loaded:
// Label, Normalize and Stride return new tables.
package residual

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/idlab-discover/fairleak/internal/tabular"
)

// ErrSchema reports a residual file that does not match the expected schema.
var ErrSchema = errors.New("residual schema mismatch")

// normEpsilon keeps min-max normalisation finite for constant channels.
const normEpsilon = 1e-12

// TimestampLayout is the wall-clock layout accepted in the step column.
const TimestampLayout = "2006-01-02 15:04:05"

// Row is one (scenario, sensor, time-step) record.
type Row struct {
	Scenario  string
	Sensor    string
	Step      int
	Residuals []float64
	Leak      bool
}

// Table is an in-memory residual table.
type Table struct {
	Network  string
	Channels []string
	Rows     []Row

	// Clock is set when the step column held timestamps.
	Clock *Clock
}

// Clock maps wall-clock timestamps onto step indices.
type Clock struct {
	Start    time.Time
	Interval time.Duration
}

// Index returns the step of ts, truncated towards zero.
func (c Clock) Index(ts time.Time) int {
	if c.Interval <= 0 {
		return 0
	}
	return int(ts.Sub(c.Start) / c.Interval)
}

// LoadOptions controls Load.
type LoadOptions struct {
	Schema    Schema
	Format    string
	Sheet     string
	Stride    int
	Normalize bool

	// Leaks names a leak-details table whose windows replace the leak
	// column, which then becomes optional.
	Leaks      string
	LeaksSheet string
}

// Load reads a residual file and converts it to the row model.
func Load(path string, opts LoadOptions) (*Table, error) {
	raw, err := tabular.Read(path, opts.Format, opts.Sheet)
	if err != nil {
		return nil, err
	}
	t, err := fromTabular(raw, opts.Schema, opts.Leaks == "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if opts.Leaks != "" {
		leaks, err := LoadLeaks(opts.Leaks, opts.LeaksSheet, t.Clock)
		if err != nil {
			return nil, err
		}
		t = t.Label(leaks)
		logf(opts.Leaks, "labelled rows from %d leaks", len(leaks))
	}
	if opts.Stride > 1 {
		t = t.Stride(opts.Stride)
	}
	if opts.Normalize {
		t = t.Normalize()
	}
	logf(path, "loaded rows=%d sensors=%d scenarios=%d channels=%s",
		len(t.Rows), len(t.Sensors()), len(t.Scenarios()), strings.Join(t.Channels, ","))
	return t, nil
}

// FromTabular maps raw records onto rows using schema.
func FromTabular(raw *tabular.Table, schema Schema) (*Table, error) {
	return fromTabular(raw, schema, true)
}

// fromTabular maps raw records onto rows. Without needLeak a missing leak
// column leaves every row unlabelled.
func fromTabular(raw *tabular.Table, schema Schema, needLeak bool) (*Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	col := func(name string) (int, error) {
		i := raw.Index(name)
		if i < 0 {
			return -1, fmt.Errorf("%w: missing column %q (have %s)", ErrSchema, name, strings.Join(raw.Header, ", "))
		}
		return i, nil
	}

	scIdx, err := col(schema.Scenario)
	if err != nil {
		return nil, err
	}
	snIdx, err := col(schema.Sensor)
	if err != nil {
		return nil, err
	}
	stIdx, err := col(schema.Step)
	if err != nil {
		return nil, err
	}
	lkIdx := raw.Index(schema.Leak)
	if lkIdx < 0 && needLeak {
		_, err := col(schema.Leak)
		return nil, err
	}
	resIdx := make([]int, len(schema.Residuals))
	for i, name := range schema.Residuals {
		if resIdx[i], err = col(name); err != nil {
			return nil, err
		}
	}

	stepCells := make([]string, len(raw.Records))
	for i, rec := range raw.Records {
		stepCells[i] = rec[stIdx]
	}
	steps, clock, err := parseSteps(stepCells)
	if err != nil {
		return nil, err
	}

	t := &Table{
		Network:  schema.Name,
		Channels: append([]string(nil), schema.Residuals...),
		Rows:     make([]Row, 0, len(raw.Records)),
		Clock:    clock,
	}
	for n, rec := range raw.Records {
		line := n + 2
		row := Row{
			Scenario:  rec[scIdx],
			Sensor:    rec[snIdx],
			Step:      steps[n],
			Residuals: make([]float64, len(resIdx)),
		}
		if row.Scenario == "" || row.Sensor == "" {
			return nil, fmt.Errorf("%w: line %d: empty scenario or sensor id", ErrSchema, line)
		}
		for k, idx := range resIdx {
			v, err := strconv.ParseFloat(rec[idx], 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: line %d: column %q: invalid residual %q", ErrSchema, line, schema.Residuals[k], rec[idx])
			}
			row.Residuals[k] = v
		}
		if lkIdx >= 0 {
			if row.Leak, err = ParseLabel(rec[lkIdx]); err != nil {
				return nil, fmt.Errorf("%w: line %d: column %q: %v", ErrSchema, line, schema.Leak, err)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ParseLabel accepts 1/0, true/false, yes/no and leak/none.
func ParseLabel(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true", "t", "yes", "y", "leak":
		return true, nil
	case "0", "0.0", "false", "f", "no", "n", "none":
		return false, nil
	default:
		return false, fmt.Errorf("invalid leak label %q", s)
	}
}

// parseSteps converts the step column. Either every cell is an integer index or
// every cell is a timestamp; timestamps become indices relative to the earliest
// timestamp using the smallest spacing between distinct timestamps, and the
// returned clock records that mapping.
func parseSteps(cells []string) ([]int, *Clock, error) {
	steps := make([]int, len(cells))
	ints := true
	for i, c := range cells {
		v, err := strconv.Atoi(strings.TrimSpace(c))
		if err != nil {
			ints = false
			break
		}
		steps[i] = v
	}
	if ints {
		return steps, nil, nil
	}

	stamps := make([]time.Time, len(cells))
	for i, c := range cells {
		ts, err := parseTimestamp(c)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: line %d: step %q is neither an integer nor a timestamp", ErrSchema, i+2, c)
		}
		stamps[i] = ts
	}

	distinct := make([]time.Time, 0, len(stamps))
	seen := map[int64]bool{}
	for _, ts := range stamps {
		if !seen[ts.UnixNano()] {
			seen[ts.UnixNano()] = true
			distinct = append(distinct, ts)
		}
	}
	sort.Slice(distinct, func(i, j int) bool { return distinct[i].Before(distinct[j]) })

	clock := &Clock{Start: distinct[0]}
	for i := 1; i < len(distinct); i++ {
		d := distinct[i].Sub(distinct[i-1])
		if clock.Interval == 0 || d < clock.Interval {
			clock.Interval = d
		}
	}
	for i, ts := range stamps {
		steps[i] = clock.Index(ts)
	}
	return steps, clock, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(TimestampLayout, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Sensors returns the distinct sensor ids in sorted order.
func (t *Table) Sensors() []string {
	return distinct(t.Rows, func(r Row) string { return r.Sensor })
}

// Scenarios returns the distinct scenario ids in sorted order.
func (t *Table) Scenarios() []string {
	return distinct(t.Rows, func(r Row) string { return r.Scenario })
}

func distinct(rows []Row, key func(Row) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range rows {
		k := key(r)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Stride keeps the rows whose step is a multiple of n.
func (t *Table) Stride(n int) *Table {
	if n <= 1 {
		return t
	}
	out := &Table{Network: t.Network, Channels: t.Channels}
	if t.Clock != nil {
		c := *t.Clock
		c.Interval *= time.Duration(n)
		out.Clock = &c
	}
	for _, r := range t.Rows {
		if r.Step%n == 0 {
			r.Step /= n
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// Normalize rescales the signed residuals of every channel to [0,1] with
// min-max normalisation: (v - min) / (max - min + 1e-12).
func (t *Table) Normalize() *Table {
	k := len(t.Channels)
	lo := make([]float64, k)
	hi := make([]float64, k)
	for c := range lo {
		lo[c] = math.Inf(1)
		hi[c] = math.Inf(-1)
	}
	for _, r := range t.Rows {
		for c, v := range r.Residuals {
			lo[c] = math.Min(lo[c], v)
			hi[c] = math.Max(hi[c], v)
		}
	}

	out := &Table{Network: t.Network, Channels: t.Channels, Clock: t.Clock, Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		vals := make([]float64, k)
		for c, v := range r.Residuals {
			vals[c] = (v - lo[c]) / (hi[c] - lo[c] + normEpsilon)
		}
		r.Residuals = vals
		out.Rows[i] = r
	}
	return out
}
