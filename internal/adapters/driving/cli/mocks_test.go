package cli

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/mindkeep/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/mindkeep/internal/core/domain"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/core/ports/driving"
	"github.com/custodia-labs/mindkeep/internal/core/services"
)

func init() {
	// Plain output keeps assertions independent of the test runner's terminal.
	lipgloss.SetColorProfile(termenv.Ascii)
}

// testEnv holds the fakes wired by setupTestServices.
type testEnv struct {
	store       *memory.Store
	index       *memory.VectorIndex
	qa          *mockQA
	ingest      *mockIngest
	mail        *mockMail
	ideas       *mockIdeas
	notes       *mockNotes
	settings    *mockSettings
	accounts    *mockAccounts
	credentials *mockCredentials
}

var env *testEnv

// setupTestServices wires fakes into the package-level services and
// returns a cleanup that restores the previous ones.
func setupTestServices() func() {
	prev := Services{
		QA: qaService, Ingest: ingestService, Tasks: taskService, Ideas: ideaService,
		Notes: noteService, Mail: mailService, Users: userService, Accounts: accountService,
		Credentials: credentialsService, Settings: settingsService, Index: indexService,
		Prompts: promptWatcher,
	}

	store := memory.NewStore()
	env = &testEnv{
		store:       store,
		index:       memory.NewVectorIndex(0),
		qa:          &mockQA{},
		ingest:      &mockIngest{},
		mail:        &mockMail{},
		ideas:       &mockIdeas{},
		notes:       &mockNotes{},
		settings:    newMockSettings(),
		accounts:    &mockAccounts{},
		credentials: &mockCredentials{},
	}
	SetServices(Services{
		QA:          env.qa,
		Ingest:      env.ingest,
		Tasks:       services.NewTaskService(store),
		Ideas:       env.ideas,
		Notes:       env.notes,
		Mail:        env.mail,
		Users:       services.NewUserService(store),
		Accounts:    env.accounts,
		Credentials: env.credentials,
		Settings:    env.settings,
		Index:       services.NewIndexService(env.index),
	})

	return func() {
		SetServices(prev)
		env = nil
	}
}

// execute runs rootCmd with args and fresh flag values.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag to its default; cobra keeps values
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// ownerID returns the id of the default test user.
func ownerID(t *testing.T) string {
	t.Helper()
	u, err := env.store.EnsureUser(context.Background(), "me@localhost", "")
	if err != nil {
		t.Fatal(err)
	}
	return u.ID
}

type mockQA struct {
	lastReq    domain.AskRequest
	answer     *domain.Answer
	err        error
	lastSearch string
	lastLimit  int
	results    []domain.ContextItem
}

func (m *mockQA) Ask(_ context.Context, req domain.AskRequest) (*domain.Answer, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{
		Success:     true,
		Question:    req.Question,
		Answer:      "The meeting is on Friday.",
		ContentType: req.ContentType,
		ContextItems: []domain.ContextItem{
			{DocumentID: "msg-1", Type: domain.RecordTypeEmailChunk, Subject: "Planning", Score: 0.91},
		},
		ContextUsed: 1,
	}, nil
}

func (m *mockQA) SearchEmails(_ context.Context, _, query string, limit int) ([]domain.ContextItem, error) {
	m.lastSearch = query
	m.lastLimit = limit
	return m.results, m.err
}

type mockIngest struct {
	lastOwner string
	lastText  string
	result    *domain.NoteIngestResult
	err       error
}

func (m *mockIngest) IngestNote(_ context.Context, ownerID, text string) (*domain.NoteIngestResult, error) {
	m.lastOwner = ownerID
	m.lastText = text
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.NoteIngestResult{NoteID: "note-1"}, nil
}

func (m *mockIngest) IngestEmailBatch(
	context.Context, string, []domain.Email,
) (*domain.EmailBatchResult, error) {
	return &domain.EmailBatchResult{}, nil
}

type mockMail struct {
	lastMax int
	result  *domain.SyncResult
	stats   *domain.EmailStats
	err     error
}

func (m *mockMail) SyncMail(_ context.Context, _ string, maxEmails int) (*domain.SyncResult, error) {
	m.lastMax = maxEmails
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.SyncResult{}, nil
}

func (m *mockMail) EmailStats(context.Context, string) (*domain.EmailStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &domain.EmailStats{}, nil
}

type mockIdeas struct {
	graph *domain.IdeaGraph
}

func (m *mockIdeas) IdeaGraph(context.Context, string) (*domain.IdeaGraph, error) {
	if m.graph != nil {
		return m.graph, nil
	}
	return &domain.IdeaGraph{}, nil
}

type mockNotes struct {
	lastNote  string
	lastLimit int
	similar   []domain.SimilarNote
	err       error
}

func (m *mockNotes) SimilarNotes(_ context.Context, _, noteID string, limit int) ([]domain.SimilarNote, error) {
	m.lastNote = noteID
	m.lastLimit = limit
	return m.similar, m.err
}

type mockSettings struct {
	values map[string]string
	err    error
}

func newMockSettings() *mockSettings {
	return &mockSettings{values: map[string]string{}}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := domain.DefaultAppSettings()
	if v, ok := m.values[services.KeyDefaultUser]; ok {
		s.DefaultUser = v
	}
	s.LLM.Provider = domain.AIProvider(m.values[services.KeyLLMProvider])
	s.LLM.APIKey = m.values[services.KeyLLMAPIKey]
	s.Gmail.ClientSecret = m.values[services.KeyGmailClientSecret]
	return &s, nil
}

func (m *mockSettings) Set(key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettings) ValidateEmbeddingConfig() error { return m.err }

func (m *mockSettings) ValidateLLMConfig() error { return m.err }

type mockAccounts struct {
	lastCode string
	lastReq  domain.AuthorizationRequest
	user     *domain.User
	err      error
}

func (m *mockAccounts) ConnectGmail(
	_ context.Context, code string, req domain.AuthorizationRequest,
) (*domain.User, error) {
	m.lastCode = code
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

type mockCredentials struct {
	creds    *domain.Credentials
	beginErr error
}

func (m *mockCredentials) Get(context.Context, domain.CredentialKey) (*domain.Credentials, error) {
	if m.creds == nil {
		return nil, domain.ErrAuthRequired
	}
	return m.creds, nil
}

func (m *mockCredentials) Refresh(ctx context.Context, key domain.CredentialKey) (*domain.Credentials, error) {
	return m.Get(ctx, key)
}

func (m *mockCredentials) Put(context.Context, domain.Credentials) error { return nil }

func (m *mockCredentials) BeginAuthorization(
	provider, redirectURL string,
) (*domain.AuthorizationRequest, string, error) {
	if m.beginErr != nil {
		return nil, "", m.beginErr
	}
	req := &domain.AuthorizationRequest{
		Provider: provider, State: "state-xyz", CodeVerifier: "verifier", RedirectURL: redirectURL,
	}
	return req, "https://accounts.example.com/auth?state=state-xyz", nil
}

func (m *mockCredentials) Exchange(
	context.Context, domain.CredentialKey, string, domain.AuthorizationRequest,
) (*domain.Credentials, error) {
	return nil, errors.New("not used")
}

func (m *mockCredentials) Link(
	context.Context, string, string, domain.AuthorizationRequest, driving.AccountResolver,
) (*domain.Credentials, error) {
	return nil, errors.New("not used")
}

func (m *mockCredentials) TokenProvider(domain.CredentialKey) driven.TokenProvider { return nil }
