package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/rcliao/ds-tutor/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cli.RootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
