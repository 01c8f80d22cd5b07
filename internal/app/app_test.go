package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/z-salon/backend/internal/config"
)

func writeKeys(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openai-keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testConfig(keysFile string, provider config.Provider) *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			Provider: provider,
			KeysFile: keysFile,
		},
		Dialogue: config.DialogueConfig{MaxRounds: 10, DefaultRounds: 4},
		Speech:   config.SpeechConfig{Model: "whisper-1"},
		Images:   config.ImageConfig{Count: 5, Size: "1024x1024"},
	}
}

func TestNewWiresOpenAIServices(t *testing.T) {
	keys := writeKeys(t, "ORG_ID: org-1\nAPI_KEY: sk-test\n")

	a, err := New(context.Background(), testConfig(keys, config.ProviderOpenAI), nil)
	require.NoError(t, err)

	assert.NotNil(t, a.Chat)
	assert.NotNil(t, a.Dialogue)
	assert.NotNil(t, a.Speech)
	assert.NotNil(t, a.Images)
	assert.Equal(t, 10, a.Dialogue.MaxRounds())

	svcs := a.Services()
	assert.Equal(t, 4, svcs.DialogueRounds)
}

func TestNewFailsWithoutCredentials(t *testing.T) {
	_, err := New(context.Background(), testConfig(filepath.Join(t.TempDir(), "missing.yaml"), config.ProviderOpenAI), nil)
	require.Error(t, err)

	keys := writeKeys(t, "ORG_ID: org-1\n")
	_, err = New(context.Background(), testConfig(keys, ""), nil)
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestOpenAIClient(t *testing.T) {
	keys := writeKeys(t, "API_KEY: sk-test\n")
	_, err := OpenAIClient(testConfig(keys, config.ProviderOpenAI))
	assert.NoError(t, err)

	_, err = OpenAIClient(testConfig(filepath.Join(t.TempDir(), "nope.yaml"), config.ProviderOpenAI))
	assert.Error(t, err)
}
