package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/tutor"
)

func init() {
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Check your solution to the current exercise",
		Long:  "Check code against the current exercise. Reads the file argument, or stdin when none is given or it is \"-\".",
		Args:  cobra.MaximumNArgs(1),
		Run:   runCheck,
	}

	RootCmd.AddCommand(cmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	code := readCode(path)
	withEngine(cmd, func(ctx context.Context, e *tutor.Engine) tutor.Response {
		return e.Check(ctx, code)
	})
}

func readCode(path string) string {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		exitErr("read code", err)
	}
	return string(data)
}
