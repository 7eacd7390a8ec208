package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/idlab-discover/fairleak/internal/ui"
)

func TestLogger_EnabledAndSetWriter(t *testing.T) {
	var l Logger
	if l.Enabled() {
		t.Fatalf("expected disabled when Writer is nil")
	}

	var buf bytes.Buffer
	l.SetWriter(&buf)
	if !l.Enabled() {
		t.Fatalf("expected enabled after setting Writer")
	}
}

func TestLogger_Logf_WritesPrefixScopeAndMessage(t *testing.T) {
	ui.Init(true) // disable ANSI color for stable assertions
	t.Cleanup(func() { ui.Init(false) })

	var buf bytes.Buffer
	l := Logger{Writer: &buf, PrefixText: "X:", PrefixColor: ui.FgGreen, ScopeKey: "config"}
	l.Logf("  eo-threshold  ", "msg %d", 1)

	out := buf.String()
	if out != "X: config=eo-threshold msg 1\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLogger_Logf_EmptyScope_UsesNone(t *testing.T) {
	ui.Init(true)
	t.Cleanup(func() { ui.Init(false) })

	var buf bytes.Buffer
	l := Logger{Writer: &buf, PrefixText: "X:"}
	l.Logf("   ", "x")

	if !strings.Contains(buf.String(), "scope=(none)") {
		t.Fatalf("expected default scope, got %q", buf.String())
	}
}

func TestLogger_Logf_DefaultPrefixAndOmitScope(t *testing.T) {
	ui.Init(true)
	t.Cleanup(func() { ui.Init(false) })

	var buf bytes.Buffer
	l := Logger{Writer: &buf, OmitScope: true}
	l.Logf("ignored", "hello %s", "world")

	if got := buf.String(); got != "Log: hello world\n" {
		t.Fatalf("output = %q", got)
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	if l.Enabled() {
		t.Fatalf("nil logger must be disabled")
	}
	l.Logf("x", "does not panic")
}

func TestLogger_ColorPrefix(t *testing.T) {
	ui.Init(false)

	var buf bytes.Buffer
	l := Logger{Writer: &buf, PrefixText: "X:", PrefixColor: ui.FgYellow, OmitScope: true}
	l.Logf("", "m")

	if !strings.HasPrefix(buf.String(), ui.FgYellow+"X:"+ui.Reset) {
		t.Fatalf("expected colored prefix, got %q", buf.String())
	}
}
