package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded attempts as JSON",
		Long:  "Export the learner's attempts as JSON. Filter by exercise with -e.",
		RunE:  runExport,
	}

	cmd.Flags().StringP("exercise", "e", "", "Filter by exercise id")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	exercise, _ := cmd.Flags().GetString("exercise")

	s, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	attempts, err := s.ExportAttempts(cmd.Context(), loadConfig().UserID, exercise)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	printJSON(attempts)
	return nil
}
