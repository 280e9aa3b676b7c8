package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/mindkeep/internal/adapters/driving/oauth"
	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/services"
	"github.com/custodia-labs/mindkeep/internal/logger"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Connect external accounts",
}

var authGmailCmd = &cobra.Command{
	Use:   "gmail",
	Short: "Connect a Gmail account",
	Long: `Authorise read-only access to a Gmail mailbox.

A browser window opens on Google's consent page and the authorization code
is received on a local callback. The mailbox address becomes a mindkeep
user and, unless --keep-default is given, the default user.

Requires an OAuth client:
  mindkeep settings set gmail.client_id <id>
  mindkeep settings set gmail.client_secret`,
	RunE: runAuthGmail,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Gmail connection for the current user",
	RunE:  runAuthStatus,
}

func init() {
	authGmailCmd.Flags().IntP("port", "p", 0, "Callback port (0 = pick a free port)")
	authGmailCmd.Flags().Bool("manual", false, "Paste the redirect URL instead of using the local callback")
	authGmailCmd.Flags().Duration("timeout", 5*time.Minute, "How long to wait for authorisation")
	authGmailCmd.Flags().Bool("keep-default", false, "Do not make the connected account the default user")
	authCmd.AddCommand(authGmailCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthGmail(cmd *cobra.Command, _ []string) error {
	if credentialsService == nil || accountService == nil {
		return errors.New("credentials service not configured")
	}

	port, _ := cmd.Flags().GetInt("port")
	manual, _ := cmd.Flags().GetBool("manual")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	keepDefault, _ := cmd.Flags().GetBool("keep-default")

	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	var (
		code string
		req  *domain.AuthorizationRequest
		err  error
	)
	if manual {
		code, req, err = authorizeManually(ctx, cmd)
	} else {
		code, req, err = authorizeWithCallback(ctx, cmd, port)
	}
	if err != nil {
		return err
	}

	user, err := accountService.ConnectGmail(ctx, code, *req)
	if err != nil {
		cmd.Println(errorStyle.Render("Authorisation failed."))
		return fmt.Errorf("failed to connect gmail: %w", err)
	}

	cmd.Println(successStyle.Render("Connected " + user.Email))
	if !keepDefault && settingsService != nil {
		if err := settingsService.Set(services.KeyDefaultUser, user.Email); err != nil {
			return fmt.Errorf("failed to set default user: %w", err)
		}
		cmd.Printf("%s is now the default user.\n", user.Email)
	}
	cmd.Println("Run 'mindkeep email sync' to fetch messages.")
	return nil
}

// authorizeWithCallback runs the browser flow against a loopback callback server.
func authorizeWithCallback(
	ctx context.Context, cmd *cobra.Command, port int,
) (string, *domain.AuthorizationRequest, error) {
	server := oauth.NewCallbackServer(port, "")
	if err := server.Start(); err != nil {
		return "", nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("stopping callback server: %v", err)
		}
	}()

	req, authURL, err := credentialsService.BeginAuthorization(domain.CredentialProviderGmail, server.RedirectURI())
	if err != nil {
		return "", nil, authSetupError(err)
	}
	server.ExpectState(req.State)

	cmd.Println("Opening your browser to authorise Gmail access...")
	cmd.Println("If it does not open, visit:")
	cmd.Println(mutedStyle.Render(authURL))
	if err := oauth.OpenBrowser(authURL); err != nil {
		logger.Debug("open browser: %v", err)
	}

	code, err := server.WaitForCode(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("authorisation did not complete: %w", err)
	}
	return code, req, nil
}

// manualRedirectURL is registered for clients that cannot use a loopback port.
const manualRedirectURL = "http://127.0.0.1/callback"

// authorizeManually prints the consent URL and reads the redirected URL back.
func authorizeManually(ctx context.Context, cmd *cobra.Command) (string, *domain.AuthorizationRequest, error) {
	req, authURL, err := credentialsService.BeginAuthorization(domain.CredentialProviderGmail, manualRedirectURL)
	if err != nil {
		return "", nil, authSetupError(err)
	}

	cmd.Println("Visit this URL and approve access:")
	cmd.Println(authURL)
	cmd.Println()
	cmd.Println("Your browser will then fail to load a 127.0.0.1 page. Copy its full URL.")
	cmd.Print("Paste the URL (or just the code): ")

	lines := make(chan string, 1)
	go func() {
		lines <- readLine(bufio.NewReader(cmd.InOrStdin()))
	}()

	select {
	case <-ctx.Done():
		return "", nil, fmt.Errorf("authorisation did not complete: %w", ctx.Err())
	case input := <-lines:
		code, err := codeFromInput(input, req.State)
		if err != nil {
			return "", nil, err
		}
		return code, req, nil
	}
}

// codeFromInput accepts either a bare code or the redirect URL carrying it.
func codeFromInput(input, expectedState string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("no authorization code entered")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}

	raw := input
	if i := strings.Index(input, "?"); i >= 0 {
		raw = input[i+1:]
	}
	params, err := url.ParseQuery(raw)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	if e := params.Get("error"); e != "" {
		return "", fmt.Errorf("oauth error: %s", e)
	}
	if state := params.Get("state"); state != "" && state != expectedState {
		return "", oauth.ErrStateMismatch
	}
	code := params.Get("code")
	if code == "" {
		return "", errors.New("no authorization code in URL")
	}
	return code, nil
}

func authSetupError(err error) error {
	if errors.Is(err, domain.ErrInvalidInput) {
		return fmt.Errorf("gmail OAuth client not configured, set gmail.client_id and gmail.client_secret: %w", err)
	}
	return fmt.Errorf("failed to start authorisation: %w", err)
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if credentialsService == nil {
		return errors.New("credentials service not configured")
	}

	owner, err := resolveOwner(cmd)
	if err != nil {
		return err
	}

	creds, err := credentialsService.Get(commandContext(cmd), domain.CredentialKey{
		UserID:   owner.ID,
		Provider: domain.CredentialProviderGmail,
	})
	if errors.Is(err, domain.ErrAuthRequired) {
		cmd.Printf("Gmail: %s\n", warningStyle.Render("not connected"))
		cmd.Println("Connect with: mindkeep auth gmail")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read credentials: %w", err)
	}

	account := creds.AccountIdentifier
	if account == "" {
		account = owner.Email
	}
	cmd.Printf("Gmail: %s %s\n", successStyle.Render("connected"), account)
	if creds.OAuth != nil && !creds.OAuth.Expiry.IsZero() {
		cmd.Printf("  Token expires: %s\n", creds.OAuth.Expiry.Local().Format(time.DateTime))
	}
	cmd.Printf("  Connected: %s\n", creds.CreatedAt.Local().Format(time.DateTime))
	return nil
}
