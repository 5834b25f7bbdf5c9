// Package provider talks to an OpenAI-compatible chat-completions backend
// (Ollama's /v1 endpoint included). It is strictly best effort: one attempt,
// bounded timeout, no retry — a failed call just means the caller falls back.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clawrelay/internal/config"
	"clawrelay/internal/logger"
)

// ChatClient issues single-turn chat completions. Safe for concurrent use.
type ChatClient struct {
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
}

func NewChatClient(cfg config.AIConfig) *ChatClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	// tolerate configs that already carry the full completions path
	base = strings.TrimSuffix(base, "/chat/completions")
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatClient{
		endpoint:   base + "/chat/completions",
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      strings.TrimSpace(cfg.Model),
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets the HTTP client for testing.
func (c *ChatClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate returns the model's reply for one system+user exchange.
// maxTokens caps the output budget; zero falls back to the configured cap.
func (c *ChatClient) Generate(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if c == nil || c.httpClient == nil {
		return "", fmt.Errorf("chat client not initialized")
	}
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	buf, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: 0.5,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request failed: %w", err)
	}
	logger.Debugf("[ai] POST %s model=%s key=%s max_tokens=%d", c.endpoint, c.model, maskKey(c.apiKey), maxTokens)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("building chat request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("chat backend status=%d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding chat response failed: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat backend returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func maskKey(key string) string {
	if key == "" {
		return "-"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
