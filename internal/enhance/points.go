package enhance

import (
	"math"
	"sort"

	"github.com/idlab-discover/fairleak/internal/decision"
)

// point is one operating point of a group: the counts it reaches under one
// threshold or one weight vector.
type point struct {
	threshold float64
	weights   []float64
	counts    decision.Counts
	// shift measures how far the parameters are from the base.
	shift float64
}

// menu is the set of operating points available to one group. points[0]
// is always the base.
type menu struct {
	group  string
	points []point
}

func byGroup(obs []decision.Observation) map[string][]decision.Observation {
	out := map[string][]decision.Observation{}
	for _, o := range obs {
		out[o.Group] = append(out[o.Group], o)
	}
	return out
}

func countAt(obs []decision.Observation, flagged func(decision.Observation) bool) decision.Counts {
	var c decision.Counts
	for _, o := range obs {
		c.Add(o.Label, flagged(o))
	}
	return c
}

// dedupe keeps, per distinct confusion count, the point with the smallest
// shift. The base point stays first.
func dedupe(pts []point) []point {
	best := map[decision.Counts]int{}
	var out []point
	for _, p := range pts {
		i, ok := best[p.counts]
		if !ok {
			best[p.counts] = len(out)
			out = append(out, p)
			continue
		}
		if p.shift < out[i].shift {
			out[i] = p
		}
	}
	return out
}

// thresholdMenu sweeps every distinct base score of the group plus +Inf.
func thresholdMenu(group string, obs []decision.Observation, theta float64) menu {
	base := point{
		threshold: theta,
		counts:    countAt(obs, func(o decision.Observation) bool { return o.Score() >= theta }),
	}
	sorted := append([]decision.Observation(nil), obs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score() > sorted[j].Score() })

	var pos, neg int
	for _, o := range sorted {
		if o.Label {
			pos++
		} else {
			neg++
		}
	}
	pts := []point{base, {threshold: math.Inf(1), counts: decision.Counts{FN: pos, TN: neg}, shift: math.Inf(1)}}
	var tp, fp int
	for i, o := range sorted {
		if o.Label {
			tp++
		} else {
			fp++
		}
		if i+1 < len(sorted) && sorted[i+1].Score() == o.Score() {
			continue
		}
		t := o.Score()
		pts = append(pts, point{
			threshold: t,
			counts:    decision.Counts{TP: tp, FN: pos - tp, FP: fp, TN: neg - fp},
			shift:     math.Abs(t - theta),
		})
	}
	return menu{group: group, points: dedupe(pts)}
}

// weightGrid enumerates convex weight vectors over k members with step 1/steps.
// The first vector puts all weight on member 0.
func weightGrid(k, steps int) [][]float64 {
	var out [][]float64
	cur := make([]int, k)
	var rec func(i, left int)
	rec = func(i, left int) {
		if i == k-1 {
			cur[i] = left
			w := make([]float64, k)
			for j, c := range cur {
				w[j] = float64(c) / float64(steps)
			}
			out = append(out, w)
			return
		}
		for c := left; c >= 0; c-- {
			cur[i] = c
			rec(i+1, left-c)
		}
	}
	rec(0, steps)
	return out
}

// gridSize is the number of vectors weightGrid(k, steps) returns.
func gridSize(k, steps int) int {
	// C(steps+k-1, k-1)
	n := 1
	for i := 1; i < k; i++ {
		n = n * (steps + i) / i
		if n > maxWeightVectors {
			return n
		}
	}
	return n
}

func baseWeights(k int) []float64 {
	w := make([]float64, k)
	w[0] = 1
	return w
}

func weightShift(w []float64) float64 {
	var d float64
	for j, v := range w {
		target := 0.0
		if j == 0 {
			target = 1
		}
		d += math.Abs(v - target)
	}
	return d
}

// weightMenu evaluates every grid vector at the fixed global threshold.
func weightMenu(group string, obs []decision.Observation, k, steps int, theta float64) menu {
	var pts []point
	for _, w := range weightGrid(k, steps) {
		w := w
		pts = append(pts, point{
			threshold: theta,
			weights:   w,
			counts:    countAt(obs, func(o decision.Observation) bool { return decision.Combine(o.Scores, w) >= theta }),
			shift:     weightShift(w),
		})
	}
	return menu{group: group, points: dedupe(pts)}
}
