package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepagent/selfloop-go/pkg/llm"
	"github.com/deepagent/selfloop-go/pkg/llm/ollama"
)

func TestGenerateWithMessages(t *testing.T) {
	var gotPath string
	var gotReq map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]any{"content": "pong"},
		})
	}))
	defer server.Close()

	client, err := ollama.NewClient(&ollama.Config{BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), "ping", llm.WithMaxTokens(32))
	require.NoError(t, err)

	assert.Equal(t, "pong", text)
	assert.Equal(t, "/api/chat", gotPath)
	assert.Equal(t, "test-model", gotReq["model"])
	assert.Equal(t, false, gotReq["stream"])
	options := gotReq["options"].(map[string]any)
	assert.EqualValues(t, 32, options["num_predict"])
}

func TestGenerateErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := ollama.NewClient(&ollama.Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestGenerateEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]any{"content": ""}})
	}))
	defer server.Close()

	client, err := ollama.NewClient(&ollama.Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "ping")
	assert.Error(t, err)
}
