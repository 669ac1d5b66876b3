package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/ds-tutor/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import attempts from JSON",
		Long:  "Import attempts from JSON on stdin. Expects the format produced by export; already present attempts are skipped.",
		RunE:  runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	var attempts []model.AttemptRecord
	if err := json.Unmarshal(data, &attempts); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	imported, err := s.ImportAttempts(cmd.Context(), attempts)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", imported)
	return nil
}
