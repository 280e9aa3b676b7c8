package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your notes and email",
	Long: `Retrieve the most relevant note and email chunks and answer the
question from them.

Use --type to restrict retrieval to emails or notes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("type", "t", string(domain.ContentTypeAll), "Content to search: all, emails or notes")
	askCmd.Flags().IntP("max", "m", domain.DefaultMaxContextItems, "Maximum context items")
	askCmd.Flags().Bool("json", false, "Print the answer as JSON")
	askCmd.Flags().Bool("sources", false, "List the context items used")
	rootCmd.AddCommand(askCmd)
}

// answerJSON is the --json shape of an answer.
type answerJSON struct {
	Success     bool          `json:"success"`
	Reason      string        `json:"reason,omitempty"`
	Question    string        `json:"question"`
	Answer      string        `json:"answer"`
	ContentType string        `json:"content_type"`
	ContextUsed int           `json:"context_used"`
	Sources     []contextJSON `json:"sources"`
}

type contextJSON struct {
	DocumentID string  `json:"document_id"`
	Type       string  `json:"type"`
	Subject    string  `json:"subject,omitempty"`
	Score      float64 `json:"score"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	contentType, _ := cmd.Flags().GetString("type")
	maxItems, _ := cmd.Flags().GetInt("max")
	asJSON, _ := cmd.Flags().GetBool("json")
	showSources, _ := cmd.Flags().GetBool("sources")

	ct := domain.ContentType(strings.ToLower(contentType))
	if !ct.IsValid() {
		return fmt.Errorf("invalid --type %q: use all, emails or notes", contentType)
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	answer, err := qaService.Ask(commandContext(cmd), domain.AskRequest{
		UserID:          owner.ID,
		Question:        strings.Join(args, " "),
		ContentType:     ct,
		MaxContextItems: maxItems,
	})
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}

	if asJSON {
		return printAnswerJSON(cmd, answer)
	}

	if !answer.Success {
		cmd.Println(warningStyle.Render(answer.Answer))
		return nil
	}
	cmd.Println(answerStyle.Render(answer.Answer))
	cmd.Println()
	cmd.Println(mutedStyle.Render(fmt.Sprintf("Based on %d item(s).", answer.ContextUsed)))

	if showSources {
		cmd.Println(headingStyle.Render("Sources:"))
		for i, item := range answer.ContextItems {
			label := item.Subject
			if label == "" {
				label = item.DocumentID
			}
			cmd.Printf("%d. [%s] %s %s\n", i+1, item.Type, label, mutedStyle.Render(fmt.Sprintf("(%.2f)", item.Score)))
		}
	}
	return nil
}

func printAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	out := answerJSON{
		Success:     answer.Success,
		Reason:      string(answer.Reason),
		Question:    answer.Question,
		Answer:      answer.Answer,
		ContentType: string(answer.ContentType),
		ContextUsed: answer.ContextUsed,
		Sources:     make([]contextJSON, 0, len(answer.ContextItems)),
	}
	for _, item := range answer.ContextItems {
		out.Sources = append(out.Sources, contextJSON{
			DocumentID: item.DocumentID,
			Type:       item.Type,
			Subject:    item.Subject,
			Score:      item.Score,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
