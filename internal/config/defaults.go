package config

import "github.com/spf13/viper"

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_addr", ":9917")

	v.SetDefault("dashboard.timeout_seconds", 15)

	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.api_url", "http://127.0.0.1:11434/v1")
	v.SetDefault("ai.model", "llama3.1:8b")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("ai.max_tokens", 400)

	v.SetDefault("discord.event_channel", "daily_report")
	v.SetDefault("discord.query_channel", "dashboard")
	v.SetDefault("discord.inbound_poll_seconds", 5)

	v.SetDefault("poll.interval_seconds", 30)
	v.SetDefault("poll.run_immediately", true)
}
