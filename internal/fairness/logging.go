package fairness

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Fairness:", PrefixColor: ui.FgYellow, ScopeKey: "metric"}

// SetLogger sets an optional destination for fairness reports.
// When set to nil, reports are disabled.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(metric string, format string, args ...any) {
	logger.Logf(metric, format, args...)
}
