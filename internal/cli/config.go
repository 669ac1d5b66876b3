package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/tutor"
)

func init() {
	cmd := &cobra.Command{
		Use:   "config [key value]",
		Short: "Show or change tutor settings",
		Long:  "Show settings, or set one of auto_validate, hint_style, feedback_verbosity, difficulty.",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("accepts 0 or 2 arg(s), received %d", len(args))
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				if len(args) == 2 {
					return e.UpdateConfig(args[0], args[1])
				}
				return e.Config()
			})
		},
	}

	RootCmd.AddCommand(cmd)
}
