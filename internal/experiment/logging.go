package experiment

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Experiment:", PrefixColor: ui.FgMagenta, ScopeKey: "experiment"}

// SetLogger sets an optional destination for experiment logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(name string, format string, args ...any) {
	logger.Logf(name, format, args...)
}
