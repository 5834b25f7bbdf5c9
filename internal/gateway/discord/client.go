// Package discord is a minimal bot-token REST client: enough to resolve the
// two configured channels by name, post messages, and poll a channel for
// inbound questions. No gateway websocket — the relay only needs
// request/response traffic.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clawrelay/internal/pkg/text"
)

const defaultBaseURL = "https://discord.com/api/v10"

// maxContentLen is Discord's hard message-length limit.
const maxContentLen = 2000

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

type Guild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Channel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    int    `json:"type"`
	GuildID string `json:"guild_id"`
}

type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	Author    User   `json:"author"`
}

// Client is a Discord REST client. Safe for concurrent use.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(botToken string) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		token:      strings.TrimSpace(botToken),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetBaseURL overrides the API base URL for testing.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = strings.TrimRight(base, "/")
}

// SetHTTPClient sets the HTTP client for testing.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// CurrentUser returns the bot's own identity, used to ignore self-authored
// messages in the query channel.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := c.doRequest(ctx, http.MethodGet, "/users/@me", nil, &user)
	return user, err
}

// ResolveChannel finds a text channel by name across the bot's guilds.
// guildName narrows the search when the bot lives in several guilds; empty
// matches any. The first match wins.
func (c *Client) ResolveChannel(ctx context.Context, guildName, channelName string) (Channel, error) {
	channelName = strings.TrimSpace(channelName)
	if channelName == "" {
		return Channel{}, fmt.Errorf("channel name cannot be empty")
	}
	var guilds []Guild
	if err := c.doRequest(ctx, http.MethodGet, "/users/@me/guilds", nil, &guilds); err != nil {
		return Channel{}, err
	}
	for _, g := range guilds {
		if guildName != "" && !strings.EqualFold(g.Name, guildName) {
			continue
		}
		var channels []Channel
		if err := c.doRequest(ctx, http.MethodGet, "/guilds/"+g.ID+"/channels", nil, &channels); err != nil {
			return Channel{}, err
		}
		for _, ch := range channels {
			if strings.EqualFold(ch.Name, channelName) {
				ch.GuildID = g.ID
				return ch, nil
			}
		}
	}
	return Channel{}, fmt.Errorf("channel %q not found in any accessible guild", channelName)
}

// SendMessage posts content to a channel, clamped to Discord's length limit.
func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	if channelID == "" {
		return fmt.Errorf("channel not resolved")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("refusing to send empty message")
	}
	payload := map[string]any{"content": text.Clamp(content, maxContentLen)}
	return c.doRequest(ctx, http.MethodPost, "/channels/"+channelID+"/messages", payload, nil)
}

// Messages returns messages posted after afterID, oldest first. An empty
// afterID returns the most recent messages only.
func (c *Client) Messages(ctx context.Context, channelID, afterID string, limit int) ([]Message, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel not resolved")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	params := url.Values{"limit": []string{strconv.Itoa(limit)}}
	if afterID != "" {
		params.Set("after", afterID)
	}
	var out []Message
	path := "/channels/" + channelID + "/messages?" + params.Encode()
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	// Discord returns newest first; callers want fetch order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// LatestMessageID returns the id of the newest message in a channel, or ""
// for an empty channel. Used to skip history on startup.
func (c *Client) LatestMessageID(ctx context.Context, channelID string) (string, error) {
	msgs, err := c.Messages(ctx, channelID, "", 1)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", nil
	}
	return msgs[len(msgs)-1].ID, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload, out any) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("discord client not initialized")
	}
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling discord request failed: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building discord request failed: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("discord %s %s returned %s: %s", method, path, resp.Status, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding discord response failed: %w", err)
	}
	return nil
}
