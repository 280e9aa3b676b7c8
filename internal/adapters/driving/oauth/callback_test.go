//nolint:noctx // Test file uses http.Get for convenience; context not required in tests
package oauth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	server := NewCallbackServer(0, state)
	require.NoError(t, server.Start())
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func callback(t *testing.T, server *CallbackServer, params url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(server.RedirectURI() + "?" + params.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestCallbackServer_PicksPortAndRedirect(t *testing.T) {
	server := startServer(t, "s")

	assert.NotZero(t, server.Port())
	assert.Contains(t, server.RedirectURI(), "http://127.0.0.1:")
	assert.Contains(t, server.RedirectURI(), "/callback")
}

func TestCallbackServer_Success(t *testing.T) {
	server := startServer(t, "state-1")

	resp, body := callback(t, server, url.Values{"state": {"state-1"}, "code": {"abc"}})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Authorization successful!")
	code, err := server.WaitForCode(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}

func TestCallbackServer_ExpectStateAfterStart(t *testing.T) {
	server := startServer(t, "")
	server.ExpectState("late-state")

	resp, _ := callback(t, server, url.Values{"state": {"late-state"}, "code": {"c2"}})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	code, err := server.WaitForCode(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "c2", code)
}

func TestCallbackServer_StateMismatch(t *testing.T) {
	server := startServer(t, "expected")

	resp, _ := callback(t, server, url.Values{"state": {"forged"}, "code": {"abc"}})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_, err := server.WaitForCode(waitCtx(t))
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestCallbackServer_MissingCode(t *testing.T) {
	server := startServer(t, "s")

	callback(t, server, url.Values{"state": {"s"}})

	_, err := server.WaitForCode(waitCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authorization code")
}

func TestCallbackServer_ProviderError(t *testing.T) {
	server := startServer(t, "s")

	_, body := callback(t, server, url.Values{"error": {"access_denied"}, "error_description": {"<b>denied</b>"}})

	assert.NotContains(t, body, "<b>denied</b>")
	_, err := server.WaitForCode(waitCtx(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_denied")
}

func TestCallbackServer_RepeatedCallbacksDoNotBlock(t *testing.T) {
	server := startServer(t, "s")

	for range 3 {
		resp, _ := callback(t, server, url.Values{"state": {"s"}, "code": {"abc"}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	for range 3 {
		callback(t, server, url.Values{"state": {"bad"}})
	}
}

func TestCallbackServer_WaitForCodeCancelled(t *testing.T) {
	server := startServer(t, "s")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := server.WaitForCode(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallbackServer_StopNotStarted(t *testing.T) {
	assert.NoError(t, NewCallbackServer(0, "s").Stop())
}

func TestCallbackServer_PortInUse(t *testing.T) {
	first := startServer(t, "s")

	second := NewCallbackServer(first.Port(), "s")
	assert.Error(t, second.Start())
}

func TestResultHTML_Escapes(t *testing.T) {
	out := resultHTML("<script>", "a & b")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "a &amp; b")
}
