package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/tutor"
)

func init() {
	start := &cobra.Command{
		Use:   "start <topic>",
		Short: "Start a topic at its first lesson",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Start(ctx, args[0])
			})
		},
	}

	next := &cobra.Command{
		Use:   "next",
		Short: "Complete the current lesson and move to the next one",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Next(ctx)
			})
		},
	}

	prev := &cobra.Command{
		Use:     "prev",
		Aliases: []string{"previous"},
		Short:   "Go back one lesson",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Previous(ctx)
			})
		},
	}

	gotoCmd := &cobra.Command{
		Use:   "goto <lesson-id>",
		Short: "Jump to a lesson by id",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Goto(ctx, args[0])
			})
		},
	}

	current := &cobra.Command{
		Use:   "current",
		Short: "Show the current lesson",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Current(ctx)
			})
		},
	}

	RootCmd.AddCommand(start, next, prev, gotoCmd, current)
}
