package enhance

import (
	"errors"
	"fmt"

	"github.com/idlab-discover/fairleak/internal/fairness"
)

// ErrInfeasible matches every *InfeasibleError.
var ErrInfeasible = errors.New("fairness target not achievable")

// InfeasibleError reports that no admissible adjustment reaches the
// tolerance. Before is the evaluation of the unadjusted decisions.
type InfeasibleError struct {
	Metric        fairness.Metric
	Method        Method
	Tolerance     float64
	Budget        float64
	BestDisparity float64
	BestAccuracy  float64
	Before        fairness.Result
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: %s with %s: best disparity %.4f > tolerance %.4f within accuracy budget %.4f",
		ErrInfeasible, e.Metric, e.Method, e.BestDisparity, e.Tolerance, e.Budget)
}

func (e *InfeasibleError) Is(target error) bool { return target == ErrInfeasible }
