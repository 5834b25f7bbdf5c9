package config

import "time"

// Config is the top-level clawrelay configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	AI        AIConfig        `mapstructure:"ai"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Poll      PollConfig      `mapstructure:"poll"`
	Store     StoreConfig     `mapstructure:"store"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	HTTPAddr string `mapstructure:"http_addr"`
}

// DashboardConfig describes access to the remote trading engine's
// dashboard API.
type DashboardConfig struct {
	APIURL         string `mapstructure:"api_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (d DashboardConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// AIConfig describes the OpenAI-compatible text-generation backend used for
// best-effort message formatting. Ollama's /v1 endpoint works as-is.
type AIConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	APIURL         string `mapstructure:"api_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxTokens      int    `mapstructure:"max_tokens"`
}

func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

type DiscordConfig struct {
	BotToken           string `mapstructure:"bot_token"`
	GuildName          string `mapstructure:"guild_name"`
	EventChannel       string `mapstructure:"event_channel"`
	QueryChannel       string `mapstructure:"query_channel"`
	InboundPollSeconds int    `mapstructure:"inbound_poll_seconds"`
}

func (d DiscordConfig) InboundPoll() time.Duration {
	return time.Duration(d.InboundPollSeconds) * time.Second
}

type PollConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	RunImmediately  bool `mapstructure:"run_immediately"`
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// StoreConfig controls the optional delivered-event ledger. An empty path
// disables it and duplicate posts on a failed acknowledgment are accepted.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}
