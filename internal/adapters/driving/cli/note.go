package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var noteCmd = &cobra.Command{
	Use:     "note",
	Aliases: []string{"notes"},
	Short:   "Add and explore notes",
}

var noteAddCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Add a note",
	Long: `Store a note, index it for questions and create any calendar event,
reminder or diary entry it describes.

With no arguments the note text is read from stdin.`,
	RunE: runNoteAdd,
}

var noteSimilarCmd = &cobra.Command{
	Use:   "similar [note-id]",
	Short: "List notes similar to a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runNoteSimilar,
}

func init() {
	noteSimilarCmd.Flags().IntP("limit", "n", 5, "Maximum number of notes")
	noteCmd.AddCommand(noteAddCmd)
	noteCmd.AddCommand(noteSimilarCmd)
	rootCmd.AddCommand(noteCmd)
}

func runNoteAdd(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read note: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("note text is empty")
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	result, err := ingestService.IngestNote(commandContext(cmd), owner.ID, text)
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}

	cmd.Printf("%s %s\n", successStyle.Render("Saved note"), result.NoteID)
	if len(result.CreatedArtifacts) == 0 {
		cmd.Println(mutedStyle.Render("No tasks or diary entries found."))
	}
	for _, artifact := range result.CreatedArtifacts {
		cmd.Printf("  + %s\n", artifact)
	}
	if n := len(result.Relationships); n > 0 {
		cmd.Printf("  Linked to %d related idea(s)\n", n)
	}
	for _, f := range result.Failures {
		cmd.Println(warningStyle.Render(fmt.Sprintf("  ! %s failed at %s: %s", f.Unit, f.Stage, f.Err)))
	}
	return nil
}

func runNoteSimilar(cmd *cobra.Command, args []string) error {
	if noteService == nil {
		return errors.New("note service not configured")
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	notes, err := noteService.SimilarNotes(commandContext(cmd), owner.ID, args[0], limit)
	if err != nil {
		return fmt.Errorf("failed to find similar notes: %w", err)
	}

	if len(notes) == 0 {
		cmd.Println("No similar notes found.")
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Notes similar to %s:", args[0])))
	for i, n := range notes {
		cmd.Printf("%d. %s %s\n", i+1, n.NoteID, mutedStyle.Render(fmt.Sprintf("(score %.2f)", n.Score)))
		cmd.Printf("   %s\n", preview(n.Text, 120))
	}
	return nil
}

// preview flattens whitespace and truncates text to maxRunes.
func preview(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= maxRunes {
		return text
	}
	return string(r[:maxRunes-3]) + "..."
}
