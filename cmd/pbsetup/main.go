package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZebulonRouseFrantzich/pbsetup/internal/binary"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/platform"
	"github.com/ZebulonRouseFrantzich/pbsetup/internal/ui"
)

// Version will be set at build time via -ldflags
var Version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{
		console:  ui.NewConsole(os.Stdout),
		stderr:   os.Stderr,
		detector: platform.NewDetector(),
		progress: binary.TerminalProgress(os.Stdout),
	}
	if isInteractive(os.Stdin) {
		a.prompt = newPrompter(os.Stdin, os.Stdout)
	}

	err := a.run(ctx, os.Args[1:])
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
