package config

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"clawrelay/internal/logger"
)

// WatchLogLevel re-reads app.log_level whenever the config file changes so
// the level can be flipped on a running relay without a restart. Other keys
// deliberately stay fixed until restart.
func WatchLogLevel(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("config watch disabled, read failed: %v", err)
		return
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			logger.Warnf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		level := v.GetString("app.log_level")
		logger.SetLevel(level)
		logger.Infof("config reloaded, log level now %s", logger.Level())
	})
	v.WatchConfig()
}
