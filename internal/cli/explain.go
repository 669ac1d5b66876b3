package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/tutor"
)

func init() {
	cmd := &cobra.Command{
		Use:   "explain <concept>",
		Short: "Explain a data science concept",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			concept := strings.Join(args, " ")
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Explain(ctx, concept)
			})
		},
	}

	suggest := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest what to study next",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Suggest(ctx)
			})
		},
	}

	RootCmd.AddCommand(cmd, suggest)
}
