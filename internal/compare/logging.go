package compare

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Compare:", PrefixColor: ui.FgCyan, ScopeKey: "config"}

// SetLogger sets an optional destination for comparison logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(config string, format string, args ...any) {
	logger.Logf(config, format, args...)
}
