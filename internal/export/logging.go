package export

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Export:", PrefixColor: ui.FgMagenta, ScopeKey: "file"}

// SetLogger sets an optional destination for export logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(path string, format string, args ...any) {
	logger.Logf(path, format, args...)
}
