package handlers

import (
	"fmt"

	"cardiobrief/internal/config"

	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command for inspecting pipeline state
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline state counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			db, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.GetStats()
			if err != nil {
				return fmt.Errorf("reading pipeline stats: %w", err)
			}

			fmt.Printf("Articles:   %d total, %d pending triage\n", stats.Total, stats.Pending)
			fmt.Printf("Triaged:    %d B2C, %d B2B, %d skipped\n", stats.B2C, stats.B2B, stats.Skipped)
			fmt.Printf("Generated:  %d articles with content\n", stats.Generated)
			fmt.Printf("Digests:    %d rendered\n", stats.Digests)
			if !stats.LastUpdate.IsZero() {
				fmt.Printf("Last fetch: %s\n", stats.LastUpdate.Format("2006-01-02 15:04 MST"))
			}
			return nil
		},
	}

	return cmd
}
