package enhance

import (
	"math"
	"sort"

	"github.com/idlab-discover/fairleak/internal/decision"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

const eps = 1e-12

// target is a rate vector some group can reach. Undefined components are
// ignored when measuring distance.
type target struct {
	v [3]float64
	d [3]bool
}

func rateVector(c decision.Counts, rates []fairness.Rate) target {
	var t target
	for i, r := range rates {
		t.v[i], t.d[i] = r.Of(c)
	}
	return t
}

// chebyshev is the largest component distance over components defined on
// both sides.
func chebyshev(a, b target, n int) float64 {
	var d float64
	for i := 0; i < n; i++ {
		if a.d[i] && b.d[i] {
			d = math.Max(d, math.Abs(a.v[i]-b.v[i]))
		}
	}
	return d
}

type combination struct {
	choice    []int
	result    fairness.Result
	disparity float64
	accuracy  float64
}

type searcher struct {
	menus   []menu
	order   []string
	metric  fairness.Metric
	agg     fairness.Aggregation
	rates   []fairness.Rate
	baseAcc float64
	budget  float64

	// tolerance is the width of the rate windows tried by windows.
	tolerance float64
}

func (s *searcher) evaluate(choice []int) combination {
	per := make(map[string]decision.Counts, len(s.menus))
	for g, m := range s.menus {
		per[m.group] = m.points[choice[g]].counts
	}
	res := fairness.EvaluateCounts(s.order, per, s.metric, s.agg)
	return combination{choice: choice, result: res, disparity: res.Disparity, accuracy: res.Accuracy}
}

func (s *searcher) admissible(c combination) bool {
	return s.baseAcc-c.accuracy <= s.budget+eps
}

func better(a, b combination) bool {
	if a.disparity < b.disparity-eps {
		return true
	}
	return math.Abs(a.disparity-b.disparity) <= eps && a.accuracy > b.accuracy+eps
}

// nearest picks the point of m closest to t. Ties prefer more correct
// decisions, then the smaller shift from the base.
func (s *searcher) nearest(m menu, t target) int {
	n := len(s.rates)
	best := 0
	bestDist := math.Inf(1)
	for i, p := range m.points {
		d := chebyshev(rateVector(p.counts, s.rates), t, n)
		q := m.points[best]
		switch {
		case d < bestDist-eps:
		case d > bestDist+eps:
			continue
		case p.counts.Correct() > q.counts.Correct():
		case p.counts.Correct() < q.counts.Correct():
			continue
		case p.shift < q.shift:
		default:
			continue
		}
		best, bestDist = i, d
	}
	return best
}

// mostCorrect picks the point of m with the most correct decisions among
// idx. Ties prefer the smaller shift from the base.
func mostCorrect(m menu, idx []int) int {
	best := idx[0]
	for _, i := range idx[1:] {
		p, q := m.points[i].counts, m.points[best].counts
		if p.Correct() > q.Correct() || (p.Correct() == q.Correct() && m.points[i].shift < m.points[best].shift) {
			best = i
		}
	}
	return best
}

// windows visits, for every box of side tolerance whose lower corner is made
// of reachable rate values, the combination in which each group takes its
// most correct point inside the box. Points with an undefined component are
// inside on that component. Under max-gap every combination within
// tolerance lies in one of these boxes, and its most accurate member is the
// one visited, so the budget check on the visited combinations decides
// feasibility exactly.
func (s *searcher) windows(visit func(choice []int)) int {
	cand := make([][]int, len(s.menus))
	for g, m := range s.menus {
		cand[g] = make([]int, len(m.points))
		for i := range m.points {
			cand[g][i] = i
		}
	}
	visited := 0
	var rec func(comp int, cand [][]int)
	rec = func(comp int, cand [][]int) {
		if comp == len(s.rates) {
			choice := make([]int, len(s.menus))
			for g, m := range s.menus {
				choice[g] = mostCorrect(m, cand[g])
			}
			visited++
			visit(choice)
			return
		}
		rate := s.rates[comp]
		seen := map[float64]bool{}
		var lows []float64
		for g, m := range s.menus {
			for _, i := range cand[g] {
				if v, ok := rate.Of(m.points[i].counts); ok && !seen[v] {
					seen[v] = true
					lows = append(lows, v)
				}
			}
		}
		if len(lows) == 0 {
			rec(comp+1, cand)
			return
		}
		sort.Float64s(lows)
		for _, lo := range lows {
			next := make([][]int, len(s.menus))
			fits := true
			for g, m := range s.menus {
				for _, i := range cand[g] {
					v, ok := rate.Of(m.points[i].counts)
					if !ok || (v >= lo-eps && v <= lo+s.tolerance+eps) {
						next[g] = append(next[g], i)
					}
				}
				if len(next[g]) == 0 {
					fits = false
					break
				}
			}
			if fits {
				rec(comp+1, next)
			}
		}
	}
	rec(0, cand)
	return visited
}

// run evaluates the base combination, one combination per reachable target
// and one per tolerance window, and returns the best admissible one.
func (s *searcher) run() combination {
	best := s.evaluate(make([]int, len(s.menus)))
	consider := func(choice []int) {
		c := s.evaluate(choice)
		if s.admissible(c) && better(c, best) {
			best = c
		}
	}

	seen := map[target]bool{}
	for _, m := range s.menus {
		for _, p := range m.points {
			t := rateVector(p.counts, s.rates)
			if seen[t] {
				continue
			}
			seen[t] = true

			choice := make([]int, len(s.menus))
			for g, gm := range s.menus {
				choice[g] = s.nearest(gm, t)
			}
			consider(choice)
		}
	}
	n := s.windows(consider)
	logf("search", "%d targets, %d windows, best disparity=%.4f accuracy=%.4f", len(seen), n, best.disparity, best.accuracy)
	return best
}
