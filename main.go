package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/specimen/cmd"
	"github.com/RyanBlaney/specimen/logging"
)

func main() {
	logging.SetGlobalLogger(logging.NewDefaultLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.RootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
