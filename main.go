package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"

	cmd "github.com/idlab-discover/fairleak/cmd/fairleak"
	"github.com/idlab-discover/fairleak/internal/apperr"
	"github.com/idlab-discover/fairleak/internal/enhance"
	"github.com/idlab-discover/fairleak/internal/ui"
)

// Version is set at build time
var Version = "dev"

func main() {
	cmd.SetVersion(Version)
	if err := fang.Execute(
		context.Background(),
		cmd.GetRootCmd(),
		fang.WithColorSchemeFunc(ui.FangColorScheme),
	); err != nil {
		switch {
		// User deliberately cancelled an interactive flow – not a failure.
		case errors.Is(err, apperr.ErrCancelled):
			os.Exit(0)
		case errors.Is(err, enhance.ErrInfeasible):
			os.Exit(3)
		}
		os.Exit(1)
	}
}
