// Package cli provides the mindkeep command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Driving ports used by the commands. Set by SetServices before Execute.
var (
	qaService          driving.QAService
	ingestService      driving.IngestService
	taskService        driving.TaskService
	ideaService        driving.IdeaService
	noteService        driving.NoteService
	mailService        driving.MailService
	userService        driving.UserService
	accountService     driving.AccountService
	credentialsService driving.CredentialsService
	settingsService    driving.SettingsService
	indexService       driving.IndexService
	promptWatcher      PromptWatcher
)

// PromptWatcher reloads prompt templates when their files change.
type PromptWatcher interface {
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// Services holds the driving ports the commands call.
// Nil entries make the dependent commands report "not configured".
type Services struct {
	QA          driving.QAService
	Ingest      driving.IngestService
	Tasks       driving.TaskService
	Ideas       driving.IdeaService
	Notes       driving.NoteService
	Mail        driving.MailService
	Users       driving.UserService
	Accounts    driving.AccountService
	Credentials driving.CredentialsService
	Settings    driving.SettingsService
	Index       driving.IndexService
	Prompts     PromptWatcher
}

// SetServices injects the services used by the commands.
func SetServices(s Services) {
	qaService = s.QA
	ingestService = s.Ingest
	taskService = s.Tasks
	ideaService = s.Ideas
	noteService = s.Notes
	mailService = s.Mail
	userService = s.Users
	accountService = s.Accounts
	credentialsService = s.Credentials
	settingsService = s.Settings
	indexService = s.Index
	promptWatcher = s.Prompts
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var rootCmd = &cobra.Command{
	Use:   "mindkeep",
	Short: "Personal knowledge assistant for notes and email",
	Long: `mindkeep indexes your notes and Gmail messages and answers questions
grounded in them.

Notes are scanned for calendar events, reminders and diary entries; diary
entries are linked into an idea graph. Emails are synced from Gmail,
chunked and embedded for semantic search.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		logger.SetVerbose(verbose)
		logger.SetOutput(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs to stderr")
	rootCmd.PersistentFlags().StringP("user", "u", "", "Owner email (defaults to the user.default setting)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// resolveOwner returns the user the command acts for, creating it on first use.
// The --user flag wins over the user.default setting.
func resolveOwner(cmd *cobra.Command) (*domain.User, error) {
	if userService == nil {
		return nil, errors.New("user service not configured")
	}

	email, _ := cmd.Flags().GetString("user")
	email = strings.TrimSpace(email)
	if email == "" && settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings: %w", err)
		}
		email = settings.DefaultUser
	}
	if email == "" {
		return nil, errors.New("no user given: pass --user or set user.default")
	}

	user, err := userService.EnsureUser(commandContext(cmd), email, "")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user %s: %w", email, err)
	}
	logger.Debug("acting as user %s (%s)", user.Email, user.ID)
	return user, nil
}

// commandContext returns the command's context, or Background when run
// without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
