// Package app wires configuration into the running services: the event relay,
// the query responder, and the admin HTTP server.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"clawrelay/internal/config"
	"clawrelay/internal/dashboard"
	"clawrelay/internal/format"
	"clawrelay/internal/gateway/discord"
	"clawrelay/internal/gateway/provider"
	"clawrelay/internal/logger"
	"clawrelay/internal/query"
	"clawrelay/internal/relay"
	"clawrelay/internal/store"
	adminhttp "clawrelay/internal/transport/http"
)

// App owns the long-running services. Construct with NewApp, then Run.
type App struct {
	cfg      *config.Config
	api      *dashboard.Client
	chat     *discord.Client
	pipeline *format.Pipeline
	ledger   *store.Ledger
}

// NewApp builds the application from config without touching the network.
// Channel resolution and service startup happen in Run.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	api, err := dashboard.NewClient(cfg.Dashboard)
	if err != nil {
		return nil, fmt.Errorf("building dashboard client failed: %w", err)
	}

	var gen format.Generator
	if cfg.AI.Enabled {
		gen = provider.NewChatClient(cfg.AI)
		logger.Infof("generative formatter enabled (model=%s)", cfg.AI.Model)
	} else {
		logger.Infof("generative formatter disabled, using templates only")
	}

	var ledger *store.Ledger
	if cfg.Store.Path != "" {
		ledger, err = store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("opening delivered-event ledger failed: %w", err)
		}
		logger.Infof("delivered-event ledger at %s", cfg.Store.Path)
	} else {
		logger.Warnf("ledger disabled, duplicate posts possible after a failed acknowledgment")
	}

	return &App{
		cfg:      cfg,
		api:      api,
		chat:     discord.NewClient(cfg.Discord.BotToken),
		pipeline: format.NewPipeline(gen),
		ledger:   ledger,
	}, nil
}

// Run resolves the chat channels and drives all services until ctx is
// cancelled. An unresolvable channel degrades its service instead of
// failing the process.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.ledger.Close() //nolint:errcheck

	selfID := ""
	if me, err := a.chat.CurrentUser(ctx); err != nil {
		logger.Warnf("resolving bot identity failed, self-message filtering disabled: %v", err)
	} else {
		selfID = me.ID
		logger.Infof("connected as %s", me.Username)
	}

	eventSink := discord.NewChannelSink(a.chat, a.resolveChannel(ctx, a.cfg.Discord.EventChannel), a.cfg.Discord.EventChannel)
	queryChannelID := a.resolveChannel(ctx, a.cfg.Discord.QueryChannel)

	rel := relay.New(a.api, eventSink, a.pipeline, a.relayLedger(),
		a.cfg.Poll.Interval(), a.cfg.Poll.RunImmediately)
	responder := query.New(a.api, a.chat, a.pipeline, queryChannelID, selfID,
		a.cfg.Discord.InboundPoll())

	admin, err := adminhttp.NewServer(adminhttp.ServerConfig{
		Addr:    a.cfg.App.HTTPAddr,
		Relay:   rel,
		Breaker: a.pipeline,
		Ledger:  a.pendingSource(),
	})
	if err != nil {
		return fmt.Errorf("building admin http server failed: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := admin.Start(ctx); err != nil {
			return fmt.Errorf("admin http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error { return rel.Run(ctx) })
	group.Go(func() error { return responder.Run(ctx) })

	logger.Infof("clawrelay running (poll=%s admin=%s)", a.cfg.Poll.Interval(), admin.Addr())
	return group.Wait()
}

// resolveChannel looks the channel up by name, returning "" on failure so the
// owning service degrades instead of crashing.
func (a *App) resolveChannel(ctx context.Context, name string) string {
	ch, err := a.chat.ResolveChannel(ctx, a.cfg.Discord.GuildName, name)
	if err != nil {
		logger.Warnf("resolving channel %q failed, feature degraded: %v", name, err)
		return ""
	}
	logger.Infof("channel %q resolved to %s", name, ch.ID)
	return ch.ID
}

// relayLedger converts the optional concrete ledger into the relay's
// interface, keeping the nil check honest across the interface boundary.
func (a *App) relayLedger() relay.Ledger {
	if a.ledger == nil {
		return nil
	}
	return a.ledger
}

func (a *App) pendingSource() adminhttp.PendingSource {
	if a.ledger == nil {
		return nil
	}
	return a.ledger
}
