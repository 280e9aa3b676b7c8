package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector index, chunking, timeouts
and the Gmail OAuth client.

Use subcommands to change a single key or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Long: `Set a single dotted configuration key, for example:

  mindkeep settings set llm.provider openai
  mindkeep settings set chunking.max_words 800

Secret keys (API keys and the Gmail client secret) are prompted for
without echo when the value is omitted.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSet,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the AI providers step by step.`,
	RunE:  runSettingsWizard,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured AI providers are reachable",
	RunE:  runSettingsValidate,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println(titleStyle.Render("Current Settings"))
	cmd.Println()

	cmd.Println(headingStyle.Render("[Embedding]"))
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("[LLM]"))
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println(headingStyle.Render("[Vector Index]"))
	cmd.Printf("  Backend: %s\n", settings.Vector.Backend)
	if settings.Vector.DSN != "" {
		cmd.Printf("  DSN: %s\n", maskDSN(settings.Vector.DSN))
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("[Chunking]"))
	cmd.Printf("  Strategy: %s\n", settings.Chunking.Strategy)
	cmd.Printf("  Max words: %d\n", settings.Chunking.MaxWords)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println(headingStyle.Render("[Timeouts]"))
	cmd.Printf("  Embedding: %s\n", settings.Timeouts.Embedding)
	cmd.Printf("  Generation: %s\n", settings.Timeouts.Generation)
	cmd.Printf("  Vector: %s\n", settings.Timeouts.Vector)
	cmd.Printf("  Store: %s\n", settings.Timeouts.Store)
	cmd.Printf("  Mail: %s\n", settings.Timeouts.Mail)
	cmd.Println()

	cmd.Println(headingStyle.Render("[Gmail]"))
	if settings.Gmail.ClientID != "" {
		cmd.Printf("  Client ID: %s\n", settings.Gmail.ClientID)
	} else {
		cmd.Printf("  Client ID: (not set)\n")
	}
	if settings.Gmail.ClientSecret != "" {
		cmd.Printf("  Client secret: %s\n", maskAPIKey(settings.Gmail.ClientSecret))
	} else {
		cmd.Printf("  Client secret: (not set)\n")
	}
	cmd.Println()

	cmd.Println(headingStyle.Render("[User]"))
	cmd.Printf("  Default: %s\n", settings.DefaultUser)

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	if model != "" {
		cmd.Printf("  Model: %s\n", model)
	}
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := successStyle.Render("configured")
	if !configured {
		status = warningStyle.Render("not configured")
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		if !isSecretKey(key) {
			return fmt.Errorf("a value is required for %s", key)
		}
		cmd.Printf("Enter %s: ", key)
		value = readPassword(cmd.InOrStdin())
		cmd.Println()
	}

	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if isSecretKey(key) {
		shown = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, shown)
	return nil
}

func isSecretKey(key string) bool {
	switch key {
	case services.KeyEmbedAPIKey, services.KeyLLMAPIKey, services.KeyGmailClientSecret:
		return true
	default:
		return false
	}
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println(titleStyle.Render("mindkeep Settings Wizard"))
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	if err := configureProvider(cmd, reader, providerKeys{
		provider: services.KeyEmbedProvider,
		model:    services.KeyEmbedModel,
		baseURL:  services.KeyEmbedBaseURL,
		apiKey:   services.KeyEmbedAPIKey,
		choices:  domain.EmbeddingProviders(),
		defaults: domain.DefaultEmbeddingModels(),
	}); err != nil {
		return err
	}
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Println()

	cmd.Println("Step 2: LLM Provider")
	cmd.Println("--------------------")
	if err := configureProvider(cmd, reader, providerKeys{
		provider: services.KeyLLMProvider,
		model:    services.KeyLLMModel,
		baseURL:  services.KeyLLMBaseURL,
		apiKey:   services.KeyLLMAPIKey,
		choices:  domain.AllAIProviders(),
		defaults: domain.DefaultLLMModels(),
	}); err != nil {
		return err
	}
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Println()

	cmd.Println(successStyle.Render("Configuration complete."))
	cmd.Println("Connect Gmail with 'mindkeep auth gmail' once gmail.client_id is set.")
	return nil
}

type providerKeys struct {
	provider string
	model    string
	baseURL  string
	apiKey   string
	choices  []domain.AIProvider
	defaults map[domain.AIProvider]string
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, keys providerKeys) error {
	providers := keys.choices
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	defaultModel := keys.defaults[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	cmd.Print("Enter base URL (blank for default): ")
	baseURL := readLine(reader)

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPasswordFrom(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	values := [][2]string{
		{keys.provider, selected.String()},
		{keys.model, model},
		{keys.baseURL, baseURL},
	}
	if apiKey != "" {
		values = append(values, [2]string{keys.apiKey, apiKey})
	}
	for _, kv := range values {
		if err := settingsService.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", kv[0], err)
		}
	}

	cmd.Printf("Configured %s (%s)\n", selected.Description(), model)
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	var failed bool
	checks := []struct {
		name string
		fn   func() error
	}{
		{"Embedding", settingsService.ValidateEmbeddingConfig},
		{"LLM", settingsService.ValidateLLMConfig},
	}
	for _, c := range checks {
		start := time.Now()
		if err := c.fn(); err != nil {
			failed = true
			cmd.Printf("%s: %s %v\n", c.name, errorStyle.Render("FAILED"), err)
			continue
		}
		cmd.Printf("%s: %s %s\n", c.name, successStyle.Render("OK"),
			mutedStyle.Render(time.Since(start).Round(time.Millisecond).String()))
	}
	if failed {
		return errors.New("provider validation failed")
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo from a terminal, or a line from in.
func readPassword(in io.Reader) string {
	return readPasswordFrom(bufio.NewReader(in))
}

func readPasswordFrom(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password of a connection URL.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return dsn[:scheme+3] + creds[:colon] + ":****" + dsn[at:]
	}
	return dsn
}
