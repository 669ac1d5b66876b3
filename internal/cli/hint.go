package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/tutor"
)

func init() {
	hint := &cobra.Command{
		Use:   "hint [level]",
		Short: "Show a hint for the current exercise",
		Long:  "Show a hint. Without a level, the next level after the highest one already shown.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runHint,
	}
	hint.Flags().String("code", "", "File with your current code, passed to generated hints")

	solution := &cobra.Command{
		Use:   "solution",
		Short: "Reveal the reference solution",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
				return e.Solution(ctx)
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Reset hint usage for the current exercise",
		Long:  "Reset hint usage. With --progress, also delete the recorded attempts and completion of the current lesson.",
		Args:  cobra.NoArgs,
		Run:   runReset,
	}
	reset.Flags().Bool("progress", false, "Also delete recorded progress for the current lesson")

	RootCmd.AddCommand(hint, solution, reset)
}

func runHint(cmd *cobra.Command, args []string) {
	level := 0
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			exitErr("parse level", err)
		}
		level = n
	}
	code := ""
	if path, _ := cmd.Flags().GetString("code"); path != "" {
		code = readCode(path)
	}
	withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
		if level == 0 {
			level = min(e.Hints().Level()+1, 3)
		}
		return e.Hint(ctx, level, code)
	})
}

func runReset(cmd *cobra.Command, args []string) {
	progress, _ := cmd.Flags().GetBool("progress")
	withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
		if progress {
			return e.ResetProgress(ctx)
		}
		return e.Reset(ctx)
	})
}
