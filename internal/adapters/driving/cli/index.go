package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect or clear the vector index",
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many vectors are indexed",
	RunE:  runIndexStats,
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every vector from the index",
	Long: `Remove every vector from the index.

Notes and emails stay in the database but are no longer searchable
until they are ingested again.`,
	RunE: runIndexReset,
}

func init() {
	indexResetCmd.Flags().Bool("yes", false, "Confirm the reset")
	indexCmd.AddCommand(indexStatsCmd)
	indexCmd.AddCommand(indexResetCmd)
	rootCmd.AddCommand(indexCmd)
}

func runIndexStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	stats, err := indexService.Stats(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}

	cmd.Println(titleStyle.Render("Vector Index"))
	cmd.Printf("  Vectors: %d\n", stats.TotalVectors)
	if stats.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", stats.Dimensions)
	} else {
		cmd.Printf("  Dimensions: %s\n", mutedStyle.Render("unknown"))
	}
	return nil
}

func runIndexReset(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("index reset removes every vector; rerun with --yes to confirm")
	}

	if err := indexService.Reset(commandContext(cmd)); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}

	cmd.Println(successStyle.Render("Vector index cleared."))
	return nil
}
