package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clawrelay/internal/config"
)

func newTestChat(t *testing.T, handler http.HandlerFunc) *ChatClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewChatClient(config.AIConfig{
		APIURL:         server.URL + "/v1",
		APIKey:         "sk-test-1234",
		Model:          "llama3.1:8b",
		TimeoutSeconds: 5,
		MaxTokens:      400,
	})
	client.SetHTTPClient(server.Client())
	return client
}

func TestGenerate(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq chatRequest
	client := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotReq)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  🔥 sold BTC  "}}]}`))
	})

	out, err := client.Generate(context.Background(), "be brief", "format this", 200)
	require.NoError(t, err)
	assert.Equal(t, "🔥 sold BTC", out)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-test-1234", gotAuth)
	assert.Equal(t, "llama3.1:8b", gotReq.Model)
	assert.Equal(t, 200, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestGenerateDefaultsMaxTokens(t *testing.T) {
	var gotReq chatRequest
	client := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotReq)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})
	_, err := client.Generate(context.Background(), "", "hi", 0)
	require.NoError(t, err)
	assert.Equal(t, 400, gotReq.MaxTokens)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("error status", func(t *testing.T) {
		client := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		})
		_, err := client.Generate(context.Background(), "", "hi", 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status=404")
	})
	t.Run("malformed body", func(t *testing.T) {
		client := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("garbage"))
		})
		_, err := client.Generate(context.Background(), "", "hi", 10)
		assert.Error(t, err)
	})
	t.Run("empty choices", func(t *testing.T) {
		client := newTestChat(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})
		_, err := client.Generate(context.Background(), "", "hi", 10)
		assert.Error(t, err)
	})
}

func TestEndpointNormalization(t *testing.T) {
	c := NewChatClient(config.AIConfig{APIURL: "http://localhost:11434/v1/chat/completions"})
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", c.endpoint)

	c = NewChatClient(config.AIConfig{APIURL: "http://localhost:11434/v1/"})
	assert.Equal(t, "http://localhost:11434/v1/chat/completions", c.endpoint)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "-", maskKey(""))
	assert.Equal(t, "****", maskKey("ab"))
	assert.Equal(t, "****1234", maskKey("sk-test-1234"))
}
