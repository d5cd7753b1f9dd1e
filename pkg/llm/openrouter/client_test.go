package openrouter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepagent/selfloop-go/pkg/llm/openrouter"
)

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	_, err := openrouter.NewClient(&openrouter.Config{})
	assert.Error(t, err)
}

func TestNewClientReadsKeyFromEnv(t *testing.T) {
	t.Setenv("CUSTOM_KEY_VAR", "sk-test")

	client, err := openrouter.NewClient(&openrouter.Config{APIKeyEnv: "CUSTOM_KEY_VAR"})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestGenerateAgainstCompatibleServer(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "pong"}},
			},
		})
	}))
	defer server.Close()

	client, err := openrouter.NewClient(&openrouter.Config{
		APIKey:  "sk-test",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", text)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}
