package report

import (
	"math"
	"time"

	"github.com/idlab-discover/fairleak/internal/compare"
	"github.com/idlab-discover/fairleak/internal/fairness"
)

// Document is the serialised form of a comparison report.
type Document struct {
	Experiment     string      `json:"experiment" yaml:"experiment"`
	Threshold      float64     `json:"threshold" yaml:"threshold"`
	Observations   int         `json:"observations" yaml:"observations"`
	Groups         []string    `json:"groups" yaml:"groups"`
	CreatedAt      time.Time   `json:"createdAt" yaml:"createdAt"`
	Configurations []ConfigDoc `json:"configurations" yaml:"configurations"`
}

// ConfigDoc is one configuration row.
type ConfigDoc struct {
	Name            string     `json:"name" yaml:"name"`
	Metric          string     `json:"metric" yaml:"metric"`
	Aggregation     string     `json:"aggregation" yaml:"aggregation"`
	Method          string     `json:"method" yaml:"method"`
	Budget          float64    `json:"budget" yaml:"budget"`
	Tolerance       float64    `json:"tolerance" yaml:"tolerance"`
	Status          string     `json:"status" yaml:"status"`
	AccuracyBefore  float64    `json:"accuracyBefore" yaml:"accuracyBefore"`
	AccuracyAfter   float64    `json:"accuracyAfter" yaml:"accuracyAfter"`
	DisparityBefore float64    `json:"disparityBefore" yaml:"disparityBefore"`
	DisparityAfter  float64    `json:"disparityAfter" yaml:"disparityAfter"`
	BestDisparity   float64    `json:"bestDisparity" yaml:"bestDisparity"`
	Excluded        []string   `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Degenerate      bool       `json:"degenerate,omitempty" yaml:"degenerate,omitempty"`
	Groups          []GroupDoc `json:"groups" yaml:"groups"`
}

// GroupDoc holds one group's rates before and after the adjustment. Nil
// rates are undefined.
type GroupDoc struct {
	Group     string    `json:"group" yaml:"group"`
	Size      int       `json:"size" yaml:"size"`
	Threshold *float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Weights   []float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Changed   bool      `json:"changed" yaml:"changed"`
	// FlagsNone marks a group threshold of +Inf.
	FlagsNone bool      `json:"flagsNone,omitempty" yaml:"flagsNone,omitempty"`
	TPRBefore *float64  `json:"tprBefore" yaml:"tprBefore"`
	TPRAfter  *float64  `json:"tprAfter" yaml:"tprAfter"`
	FPRBefore *float64  `json:"fprBefore" yaml:"fprBefore"`
	FPRAfter  *float64  `json:"fprAfter" yaml:"fprAfter"`
}

func ptr(v fairness.Value) *float64 {
	if !v.Defined {
		return nil
	}
	x := v.V
	return &x
}

// NewDocument converts a comparison report.
func NewDocument(r *compare.Report) Document {
	doc := Document{
		Experiment:   r.Experiment,
		Threshold:    r.Threshold,
		Observations: r.Observations,
		Groups:       append([]string(nil), r.Groups...),
		CreatedAt:    r.CreatedAt,
	}
	for _, row := range r.Rows {
		cd := ConfigDoc{
			Name:            row.Config,
			Metric:          string(row.Metric),
			Aggregation:     string(row.Aggregation),
			Method:          string(row.Method),
			Budget:          row.Budget,
			Tolerance:       row.Tolerance,
			Status:          string(row.Status),
			AccuracyBefore:  row.AccuracyBefore,
			AccuracyAfter:   row.AccuracyAfter,
			DisparityBefore: row.DisparityBefore,
			DisparityAfter:  row.DisparityAfter,
			BestDisparity:   row.BestDisparity,
			Excluded:        row.After.Excluded,
			Degenerate:      row.After.Degenerate,
		}
		for _, before := range row.Before.Groups {
			after, _ := row.After.Group(before.Group)
			gd := GroupDoc{
				Group:     before.Group,
				Size:      before.Counts.Total(),
				TPRBefore: ptr(before.TPR),
				TPRAfter:  ptr(after.TPR),
				FPRBefore: ptr(before.FPR),
				FPRAfter:  ptr(after.FPR),
			}
			if row.Adjustment != nil {
				if ga, ok := row.Adjustment.For(before.Group); ok {
					if t := ga.Threshold; math.IsInf(t, 1) {
						gd.FlagsNone = true
					} else {
						gd.Threshold = &t
					}
					gd.Weights = ga.Weights
					gd.Changed = ga.Changed
				}
			}
			cd.Groups = append(cd.Groups, gd)
		}
		doc.Configurations = append(doc.Configurations, cd)
	}
	return doc
}
