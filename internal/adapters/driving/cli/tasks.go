package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List and complete tasks",
	Long:  `Calendar events and reminders created from your notes.`,
	RunE:  runTasksList,
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open tasks",
	RunE:  runTasksList,
}

var tasksCompleteCmd = &cobra.Command{
	Use:   "complete [task-id]",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksComplete,
}

func init() {
	tasksCmd.PersistentFlags().BoolP("all", "a", false, "Include completed tasks")
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksCompleteCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksList(cmd *cobra.Command, _ []string) error {
	if taskService == nil {
		return errors.New("task service not configured")
	}

	all, _ := cmd.Flags().GetBool("all")

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	tasks, err := taskService.ListTasks(commandContext(cmd), owner.ID, all)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if len(tasks) == 0 {
		cmd.Println("No tasks.")
		return nil
	}

	for _, task := range tasks {
		line := fmt.Sprintf("%s %s %s", checkbox(task.Completed), taskIcon(task.Type), task.Title)
		if task.DueDate != "" {
			line += " " + warningStyle.Render("due "+task.DueDate)
		}
		cmd.Println(line)
		cmd.Printf("    %s\n", mutedStyle.Render(task.ID))
	}
	return nil
}

func runTasksComplete(cmd *cobra.Command, args []string) error {
	if taskService == nil {
		return errors.New("task service not configured")
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	if err := taskService.CompleteTask(commandContext(cmd), owner.ID, args[0]); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("task %s not found", args[0])
		}
		return fmt.Errorf("failed to complete task: %w", err)
	}

	cmd.Println(successStyle.Render("Completed task " + args[0]))
	return nil
}

func taskIcon(t domain.TaskType) string {
	switch t {
	case domain.TaskTypeCalendar:
		return headingStyle.Render("event")
	case domain.TaskTypeReminder:
		return headingStyle.Render("reminder")
	default:
		return string(t)
	}
}
