package decision

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Decision:", PrefixColor: ui.FgGreen, ScopeKey: "step"}

// SetLogger sets an optional destination for aggregation logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(step string, format string, args ...any) {
	logger.Logf(step, format, args...)
}
