package store

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Store:", PrefixColor: ui.FgCyan, ScopeKey: "experiment"}

// SetLogger sets an optional destination for store logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(experiment string, format string, args ...any) {
	logger.Logf(experiment, format, args...)
}
