package residual

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/idlab-discover/fairleak/internal/tabular"
)

// Leak is one entry of a leak-details table: the listed sensors see the leak
// from step Start through step End. An empty Scenario or Sensors matches
// every scenario or sensor.
type Leak struct {
	ID       string
	Scenario string
	Sensors  []string
	Start    int
	End      int
	Peak     int
	HasPeak  bool
}

// Covers reports whether the leak is active at r.
func (l Leak) Covers(r Row) bool {
	if l.Scenario != "" && l.Scenario != r.Scenario {
		return false
	}
	if r.Step < l.Start || r.Step > l.End {
		return false
	}
	if len(l.Sensors) == 0 {
		return true
	}
	for _, s := range l.Sensors {
		if s == r.Sensor {
			return true
		}
	}
	return false
}

// Rows of a leak-details table, matched case-insensitively in the
// Description column.
const (
	descriptionColumn = "Description"
	rowLeakStart      = "leak start"
	rowLeakEnd        = "leak end"
	rowPeakTime       = "peak time"
	rowScenario       = "scenario"
)

// location rows, in order of preference
var locationRows = []string{"location", "sensors", "value"}

// LoadLeaks reads a leak-details table (csv, tsv or xlsx). Timestamps are
// converted to steps with clock, the mapping of the residual table.
func LoadLeaks(path, sheet string, clock *Clock) ([]Leak, error) {
	raw, err := tabular.Read(path, "", sheet)
	if err != nil {
		return nil, err
	}
	leaks, err := ParseLeaks(raw, clock)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return leaks, nil
}

// ParseLeaks reads the transposed leak-details layout: a Description column
// naming the rows (Leak Start, Leak End, optional Peak Time, Location or
// Value, Scenario) and one column per leak. Step cells are integers or
// timestamps; timestamps need a clock. Location cells list sensor ids
// separated by commas, semicolons or spaces.
func ParseLeaks(raw *tabular.Table, clock *Clock) ([]Leak, error) {
	desc := raw.Index(descriptionColumn)
	if desc < 0 {
		return nil, fmt.Errorf("%w: leak details need a %q column", ErrSchema, descriptionColumn)
	}
	rows := map[string][]string{}
	for _, rec := range raw.Records {
		rows[strings.ToLower(strings.TrimSpace(rec[desc]))] = rec
	}
	start, okStart := rows[rowLeakStart]
	end, okEnd := rows[rowLeakEnd]
	if !okStart || !okEnd {
		return nil, fmt.Errorf("%w: leak details need %q and %q rows", ErrSchema, "Leak Start", "Leak End")
	}
	var location []string
	for _, name := range locationRows {
		if rec, ok := rows[name]; ok {
			location = rec
			break
		}
	}

	var leaks []Leak
	for i, id := range raw.Header {
		if i == desc || (start[i] == "" && end[i] == "") {
			continue
		}
		l := Leak{ID: id}
		var err error
		if l.Start, err = stepOf(start[i], clock); err != nil {
			return nil, fmt.Errorf("%w: leak %q: Leak Start: %v", ErrSchema, id, err)
		}
		if l.End, err = stepOf(end[i], clock); err != nil {
			return nil, fmt.Errorf("%w: leak %q: Leak End: %v", ErrSchema, id, err)
		}
		if l.End < l.Start {
			return nil, fmt.Errorf("%w: leak %q ends at step %d before it starts at %d", ErrSchema, id, l.End, l.Start)
		}
		if peak, ok := rows[rowPeakTime]; ok && peak[i] != "" {
			if l.Peak, err = stepOf(peak[i], clock); err != nil {
				return nil, fmt.Errorf("%w: leak %q: Peak Time: %v", ErrSchema, id, err)
			}
			l.HasPeak = true
		}
		if location != nil {
			l.Sensors = strings.FieldsFunc(location[i], func(r rune) bool {
				return r == ',' || r == ';' || unicode.IsSpace(r)
			})
		}
		if sc, ok := rows[rowScenario]; ok {
			l.Scenario = sc[i]
		}
		leaks = append(leaks, l)
	}
	return leaks, nil
}

func stepOf(cell string, clock *Clock) (int, error) {
	cell = strings.TrimSpace(cell)
	if v, err := strconv.Atoi(cell); err == nil {
		return v, nil
	}
	ts, err := parseTimestamp(cell)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a step nor a timestamp", cell)
	}
	if clock == nil {
		return 0, fmt.Errorf("timestamp %q needs a residual table with timestamp steps", cell)
	}
	return clock.Index(ts), nil
}

// Label returns a copy of t whose leak labels are set from leaks: a row is
// a leak when any leak covers it.
func (t *Table) Label(leaks []Leak) *Table {
	out := &Table{Network: t.Network, Channels: t.Channels, Clock: t.Clock, Rows: make([]Row, len(t.Rows))}
	for i, r := range t.Rows {
		r.Leak = false
		for _, l := range leaks {
			if l.Covers(r) {
				r.Leak = true
				break
			}
		}
		out.Rows[i] = r
	}
	return out
}
