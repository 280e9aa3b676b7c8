package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mindkeep/internal/connectors/google/gmail"
	"github.com/custodia-labs/mindkeep/internal/core/services"
)

var emailCmd = &cobra.Command{
	Use:   "email",
	Short: "Sync and search Gmail messages",
}

var emailSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch recent messages from Gmail",
	Long: `Fetch the most recent messages from the connected Gmail account,
skip the ones already stored and index the rest.

Run 'mindkeep auth gmail' first to connect an account.`,
	RunE: runEmailSync,
}

var emailStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show mailbox sync statistics",
	RunE:  runEmailStats,
}

var emailSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search synced emails by meaning",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEmailSearch,
}

func init() {
	emailSyncCmd.Flags().IntP("max", "m", services.DefaultMaxEmails, "Maximum messages to fetch")
	emailSearchCmd.Flags().IntP("limit", "n", services.DefaultEmailSearchLimit, "Maximum results")
	emailCmd.AddCommand(emailSyncCmd)
	emailCmd.AddCommand(emailStatsCmd)
	emailCmd.AddCommand(emailSearchCmd)
	rootCmd.AddCommand(emailCmd)
}

func runEmailSync(cmd *cobra.Command, _ []string) error {
	if mailService == nil {
		return errors.New("mail service not configured")
	}

	maxEmails, err := cmd.Flags().GetInt("max")
	if err != nil {
		return fmt.Errorf("getting max flag: %w", err)
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	cmd.Printf("Syncing up to %d messages for %s...\n", maxEmails, owner.Email)
	start := time.Now()

	result, err := mailService.SyncMail(commandContext(cmd), owner.ID, maxEmails)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	cmd.Printf("Fetched %d, new %d, already stored %d\n", result.Fetched, result.New, result.Duplicates)
	cmd.Printf("Indexed %d, skipped %d, failed %d\n",
		result.Batch.SyncedCount, result.Batch.SkippedCount, result.Batch.FailedCount)
	for _, msg := range result.Batch.Errors {
		cmd.Println(warningStyle.Render("  ! " + msg))
	}

	summary := fmt.Sprintf("Done in %s.", time.Since(start).Round(time.Millisecond))
	if result.Batch.FailedCount > 0 {
		cmd.Println(warningStyle.Render(summary))
	} else {
		cmd.Println(successStyle.Render(summary))
	}
	return nil
}

func runEmailStats(cmd *cobra.Command, _ []string) error {
	if mailService == nil {
		return errors.New("mail service not configured")
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	stats, err := mailService.EmailStats(commandContext(cmd), owner.ID)
	if err != nil {
		return fmt.Errorf("failed to get email stats: %w", err)
	}

	cmd.Println(titleStyle.Render("Mailbox " + owner.Email))
	cmd.Printf("  Total:       %d\n", stats.Total)
	cmd.Printf("  Processed:   %d\n", stats.Processed)
	cmd.Printf("  Unprocessed: %d\n", stats.Unprocessed)
	if stats.LastSync != nil {
		cmd.Printf("  Last sync:   %s\n", stats.LastSync.Local().Format(time.DateTime))
	} else {
		cmd.Printf("  Last sync:   %s\n", mutedStyle.Render("never"))
	}
	return nil
}

func runEmailSearch(cmd *cobra.Command, args []string) error {
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	items, err := qaService.SearchEmails(commandContext(cmd), owner.ID, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(items) == 0 {
		cmd.Println("No matching emails.")
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Results for %q:", query)))
	for i, item := range items {
		subject := item.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		cmd.Printf("%d. %s %s\n", i+1, headingStyle.Render(subject), mutedStyle.Render(fmt.Sprintf("(%.2f)", item.Score)))
		cmd.Printf("   %s\n", preview(item.Text, 160))
		cmd.Printf("   %s\n", mutedStyle.Render(gmail.WebURL(item.DocumentID)))
	}
	return nil
}
