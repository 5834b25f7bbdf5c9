package config

import (
	"fmt"
	"net/url"
	"strings"
)

func validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := requireURL("dashboard.api_url", cfg.Dashboard.APIURL); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Dashboard.APIKey) == "" {
		return fmt.Errorf("dashboard.api_key is required")
	}
	if strings.TrimSpace(cfg.Discord.BotToken) == "" {
		return fmt.Errorf("discord.bot_token is required")
	}
	if cfg.AI.Enabled {
		if err := requireURL("ai.api_url", cfg.AI.APIURL); err != nil {
			return err
		}
		if strings.TrimSpace(cfg.AI.Model) == "" {
			return fmt.Errorf("ai.model is required when ai.enabled=true")
		}
	}
	if cfg.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be positive, got %d", cfg.Poll.IntervalSeconds)
	}
	if cfg.Discord.InboundPollSeconds <= 0 {
		return fmt.Errorf("discord.inbound_poll_seconds must be positive, got %d", cfg.Discord.InboundPollSeconds)
	}
	return nil
}

func requireURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s is not a valid URL: %q", field, raw)
	}
	return nil
}
