package synth

import (
	"io"

	"github.com/idlab-discover/fairleak/internal/logging"
	"github.com/idlab-discover/fairleak/internal/ui"
)

var logger = &logging.Logger{PrefixText: "Synth:", PrefixColor: ui.FgGreen, ScopeKey: "target"}

// SetLogger sets an optional destination for generator logs.
func SetLogger(w io.Writer) { logger.SetWriter(w) }

func logf(target string, format string, args ...any) {
	logger.Logf(target, format, args...)
}
