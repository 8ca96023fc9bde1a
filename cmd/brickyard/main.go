package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"brickyard/internal/cmd"
	"brickyard/internal/exitcode"
	"brickyard/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		exitcode.Exit(exitcode.Success)
	}

	if ctx.Err() == context.Canceled {
		fmt.Fprintln(os.Stderr, "\ninterrupted")
		exitcode.Exit(exitcode.Interrupted)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if oe, ok := err.(interface{ Outcome() pipeline.Outcome }); ok {
		exitcode.Exit(exitcode.FromOutcome(oe.Outcome()))
	}
	exitcode.Exit(exitcode.FromError(err))
}
