// Package decision turns residual rows into per-(scenario, sensor)
// observations and binary leak decisions.
package decision

import (
	"fmt"
	"math"
	"sort"

	"github.com/idlab-discover/fairleak/internal/group"
	"github.com/idlab-discover/fairleak/internal/residual"
)

// Observation is one classifier output: a sensor's view of one scenario.
type Observation struct {
	Scenario string
	Sensor   string
	Group    string
	// Scores holds one score per ensemble member. Scores[0] is the base score.
	Scores   []float64
	Label    bool
	Decision bool
}

// Score is the base score.
func (o Observation) Score() float64 {
	if len(o.Scores) == 0 {
		return 0
	}
	return o.Scores[0]
}

type key struct{ scenario, sensor string }

// Aggregate collapses rows into observations. Member k scores the maximum
// |residual k| over the pair's time steps; the label is set when any row is
// labelled leak. Every sensor must have a group in p.
func Aggregate(t *residual.Table, p *group.Partition) ([]Observation, error) {
	idx := map[key]int{}
	var out []Observation
	for _, r := range t.Rows {
		k := key{r.Scenario, r.Sensor}
		i, ok := idx[k]
		if !ok {
			g, found := p.GroupOf(r.Sensor)
			if !found {
				return nil, fmt.Errorf("%w: sensor %q has no group", group.ErrConfig, r.Sensor)
			}
			scores := make([]float64, len(r.Residuals))
			out = append(out, Observation{Scenario: r.Scenario, Sensor: r.Sensor, Group: g, Scores: scores})
			i = len(out) - 1
			idx[k] = i
		}
		o := &out[i]
		for c, v := range r.Residuals {
			if a := math.Abs(v); a > o.Scores[c] {
				o.Scores[c] = a
			}
		}
		o.Label = o.Label || r.Leak
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].Sensor < out[j].Sensor
	})
	logf("aggregate", "%d rows -> %d observations", len(t.Rows), len(out))
	return out, nil
}

// Clone deep-copies observations.
func Clone(obs []Observation) []Observation {
	out := make([]Observation, len(obs))
	for i, o := range obs {
		o.Scores = append([]float64(nil), o.Scores...)
		out[i] = o
	}
	return out
}

// Decide returns a copy of obs with Decision = base score >= theta.
func Decide(obs []Observation, theta float64) []Observation {
	out := Clone(obs)
	for i := range out {
		out[i].Decision = out[i].Score() >= theta
	}
	return out
}

// Combine is the weighted sum of member scores. Missing weights count as zero.
func Combine(scores, weights []float64) float64 {
	var s float64
	for k, v := range scores {
		if k < len(weights) {
			s += weights[k] * v
		}
	}
	return s
}

// BestThreshold returns the global threshold with the highest accuracy over
// the distinct base scores. Ties keep the lower threshold.
func BestThreshold(obs []Observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	sorted := Clone(obs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score() < sorted[j].Score() })

	// Threshold at sorted[i] flags everything from i on.
	var pos int
	for _, o := range sorted {
		if o.Label {
			pos++
		}
	}
	best, bestCorrect := sorted[0].Score(), pos
	negBelow, posBelow := 0, 0
	for i := 0; i < len(sorted); i++ {
		if i > 0 && sorted[i].Score() != sorted[i-1].Score() {
			correct := negBelow + (pos - posBelow)
			if correct > bestCorrect {
				best, bestCorrect = sorted[i].Score(), correct
			}
		}
		if sorted[i].Label {
			posBelow++
		} else {
			negBelow++
		}
	}
	if negBelow > bestCorrect {
		best = math.Nextafter(sorted[len(sorted)-1].Score(), math.Inf(1))
	}
	return best
}

// Groups returns the groups present in obs, sorted.
func Groups(obs []Observation) []string {
	seen := map[string]bool{}
	var out []string
	for _, o := range obs {
		if !seen[o.Group] {
			seen[o.Group] = true
			out = append(out, o.Group)
		}
	}
	sort.Strings(out)
	return out
}
