package modelcard

import (
	"bytes"
	"os/exec"
	"runtime/debug"
	"strings"
)

var (
	// Set these at build time with -ldflags "-X 'github.com/idlab-discover/fairleak/internal/modelcard.Version=...' -X '...Commit=...'"
	Version = ""
	Commit  = ""
)

var readBuildInfo = debug.ReadBuildInfo

// ToolVersion resolves the version recorded in metadata.tools.
func ToolVersion() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if info, ok := readBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	if d := gitDescribe(); d != "" {
		return d
	}
	if Commit != "" {
		return "commit-" + Commit
	}
	return "devel"
}

func gitDescribe() string {
	out, err := exec.Command("git", "describe", "--tags", "--always", "--dirty").Output()
	if err != nil {
		if out2, err2 := exec.Command("git", "rev-parse", "--short", "HEAD").Output(); err2 == nil {
			return strings.TrimSpace(string(out2))
		}
		return ""
	}
	return strings.TrimSpace(string(bytes.TrimSpace(out)))
}
