package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/tutor"
)

func init() {
	progress := &cobra.Command{
		Use:   "progress [topic]",
		Short: "Show overall progress, or completion within a topic",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				if len(args) == 1 {
					return e.TopicProgress(ctx, args[0])
				}
				return e.Stats(ctx)
			})
		},
	}

	recent := &cobra.Command{
		Use:   "recent",
		Short: "List recent attempts, newest first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			limit, _ := cmd.Flags().GetInt("limit")
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Recent(ctx, limit)
			})
		},
	}
	recent.Flags().IntP("limit", "l", 10, "Max attempts to list")

	topics := &cobra.Command{
		Use:   "topics",
		Short: "List curriculum topics",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Topics()
			})
		},
	}

	RootCmd.AddCommand(progress, recent, topics)
}
