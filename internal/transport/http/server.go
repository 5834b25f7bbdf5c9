// Package adminhttp exposes the relay's operational state over a small HTTP
// surface: liveness, counters, and the ledger backlog.
package adminhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"clawrelay/internal/logger"
	"clawrelay/internal/pkg/circuit"
	"clawrelay/internal/relay"
	"clawrelay/internal/store"
)

// StatusSource reports relay counters.
type StatusSource interface {
	Status() relay.Status
}

// BreakerSource reports the generative tier's breaker state.
type BreakerSource interface {
	BreakerState() circuit.State
}

// PendingSource lists delivered-but-unacknowledged ledger rows.
type PendingSource interface {
	Pending() ([]store.DeliveredEvent, error)
}

// Server serves the admin API.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the admin server's dependencies. Relay is required;
// Breaker and Ledger may be nil when the matching feature is disabled.
type ServerConfig struct {
	Addr    string
	Relay   StatusSource
	Breaker BreakerSource
	Ledger  PendingSource
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Relay == nil {
		return nil, errors.New("admin http server requires a relay")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9917"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	started := time.Now()
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/status", func(c *gin.Context) {
		resp := gin.H{
			"uptime": time.Since(started).Round(time.Second).String(),
			"relay":  cfg.Relay.Status(),
		}
		if cfg.Breaker != nil {
			resp["generative_breaker"] = cfg.Breaker.BreakerState().String()
		}
		c.JSON(http.StatusOK, resp)
	})
	api.GET("/ledger/pending", func(c *gin.Context) {
		if cfg.Ledger == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "ledger disabled"})
			return
		}
		rows, err := cfg.Ledger.Pending()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "events": rows})
	})

	return &Server{addr: cfg.Addr, router: router}, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
