package decision

// Counts is a confusion matrix.
type Counts struct {
	TP, FP, TN, FN int
}

// Add records one decision.
func (c *Counts) Add(label, decision bool) {
	switch {
	case label && decision:
		c.TP++
	case label:
		c.FN++
	case decision:
		c.FP++
	default:
		c.TN++
	}
}

// Merge adds other into c.
func (c *Counts) Merge(other Counts) {
	c.TP += other.TP
	c.FP += other.FP
	c.TN += other.TN
	c.FN += other.FN
}

func (c Counts) Positives() int { return c.TP + c.FN }
func (c Counts) Negatives() int { return c.FP + c.TN }
func (c Counts) Total() int     { return c.Positives() + c.Negatives() }
func (c Counts) Correct() int   { return c.TP + c.TN }

// TPR is TP/(TP+FN); ok is false when the group has no positives.
func (c Counts) TPR() (float64, bool) { return ratio(c.TP, c.Positives()) }

// FPR is FP/(FP+TN); ok is false when the group has no negatives.
func (c Counts) FPR() (float64, bool) { return ratio(c.FP, c.Negatives()) }

// PositiveRate is the share of positive decisions.
func (c Counts) PositiveRate() (float64, bool) { return ratio(c.TP+c.FP, c.Total()) }

// Accuracy is the share of correct decisions.
func (c Counts) Accuracy() (float64, bool) { return ratio(c.Correct(), c.Total()) }

func ratio(num, den int) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

// Tally counts decisions per group and overall.
func Tally(obs []Observation) (map[string]Counts, Counts) {
	per := map[string]Counts{}
	var all Counts
	for _, o := range obs {
		c := per[o.Group]
		c.Add(o.Label, o.Decision)
		per[o.Group] = c
		all.Add(o.Label, o.Decision)
	}
	return per, all
}
