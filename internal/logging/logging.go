package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/idlab-discover/fairleak/internal/ui"
)

// Logger is a tiny opt-in logger used across internal packages.
// When Writer is nil, logging is disabled.
//
// The output format is:
//
//	<ColoredPrefix> <ScopeKey>=<scope> <formattedMessage>\n
//
// where <scope> is trimmed and defaults to "(none)". ScopeKey defaults to "scope";
// packages set it to what they iterate over ("config", "table", "run", …).
type Logger struct {
	Writer io.Writer

	PrefixText  string
	PrefixColor string
	ScopeKey    string

	// OmitScope controls whether the scope field is written.
	OmitScope bool
}

func (l *Logger) SetWriter(w io.Writer) { l.Writer = w }

func (l *Logger) Enabled() bool { return l != nil && l.Writer != nil }

func (l *Logger) Logf(scope string, format string, args ...any) {
	if l == nil || l.Writer == nil {
		return
	}
	prefix := l.PrefixText
	if prefix == "" {
		prefix = "Log:"
	}
	if l.PrefixColor != "" {
		prefix = ui.Color(prefix, l.PrefixColor)
	}
	msg := fmt.Sprintf(format, args...)
	if l.OmitScope {
		fmt.Fprintf(l.Writer, "%s %s\n", prefix, msg)
		return
	}

	key := l.ScopeKey
	if key == "" {
		key = "scope"
	}
	s := strings.TrimSpace(scope)
	if s == "" {
		s = "(none)"
	}
	fmt.Fprintf(l.Writer, "%s %s=%s %s\n", prefix, key, s, msg)
}
