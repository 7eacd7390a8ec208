package enhance

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Enhance:", PrefixColor: ui.FgCyan, ScopeKey: "method"}

// SetLogger sets an optional destination for search logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(method string, format string, args ...any) {
	logger.Logf(method, format, args...)
}
