package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/mindkeep/internal/core/ports/driven"
	"github.com/custodia-labs/mindkeep/internal/prompts"
)

func TestPromptStore_ImplementsInterface(t *testing.T) {
	var _ driven.PromptStore = (*PromptStore)(nil)
}

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
	_, statErr := os.Stat(filepath.Join(dir, "README.md"))
	assert.True(t, os.IsNotExist(statErr), "constructor must not write files")
}

func TestNewPromptStore_DefaultDirFromHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv(EnvHome, home)

	store, err := NewPromptStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "prompts"), store.Dir())
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptQASystem)
	require.NoError(t, err)

	for _, name := range prompts.Names() {
		_, err := os.Stat(filepath.Join(dir, name+".txt"))
		assert.NoError(t, err, "expected prompt file for %s", name)
	}
	_, err = os.Stat(filepath.Join(dir, "README.md"))
	assert.NoError(t, err)
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptTaskExtraction)

	require.NoError(t, err)
	want, _ := prompts.Default(driven.PromptTaskExtraction)
	assert.Equal(t, want, prompt)
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Answer like a pirate."
	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptQASystem+".txt"), []byte(custom+"\n"), 0600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptQASystem)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptQASystem+".txt"), []byte("  \n"), 0600))
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptQASystem)

	require.NoError(t, err)
	want, _ := prompts.Default(driven.PromptQASystem)
	assert.Equal(t, want, prompt)
}

func TestPromptStore_Load_UnknownPrompt(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("no_such_prompt")

	assert.Error(t, err)
}

func TestPromptStore_Reload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptQASystem)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptQASystem+".txt"), []byte("edited"), 0600))

	cached, err := store.Load(driven.PromptQASystem)
	require.NoError(t, err)
	assert.NotEqual(t, "edited", cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptQASystem)
	require.NoError(t, err)
	assert.Equal(t, "edited", fresh)
}

func TestPromptStore_InitFailureFallsBackToDefaults(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptSemanticChunk)

	require.NoError(t, err)
	want, _ := prompts.Default(driven.PromptSemanticChunk)
	assert.Equal(t, want, prompt)
}

func TestPromptStore_WatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)
	_, err = store.Load(driven.PromptQASystem)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptQASystem+".txt"), []byte("watched edit"), 0600))

	assert.Eventually(t, func() bool {
		p, err := store.Load(driven.PromptQASystem)
		return err == nil && p == "watched edit"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestPromptStore_ConcurrentLoad(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptIdeaRelationships)
			assert.NoError(t, err)
			assert.NotEmpty(t, p)
		}()
	}
	wg.Wait()
}
