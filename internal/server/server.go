// Package server provides the HTTP query API over a built index.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/smtindex/internal/metrics"
	"github.com/agentstation/smtindex/internal/server/cache"
	"github.com/agentstation/smtindex/internal/watcher"
	"github.com/agentstation/smtindex/pkg/constants"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	store     *Store
	cache     *cache.Cache
	metrics   *metrics.Metrics
	watcher   *watcher.Watcher
	logger    *zerolog.Logger
	config    Config
	done      chan struct{}
	startTime time.Time
}

// New creates a server and loads the configured index. A missing or
// invalid index is logged and the server starts unready; it becomes ready
// on the first successful reload. m may be nil.
func New(cfg Config, logger *zerolog.Logger, m *metrics.Metrics) (*Server, error) {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.CacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/api/v1"
	}

	s := &Server{
		store:     NewStore(cfg.IndexPath),
		cache:     cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		metrics:   m,
		logger:    logger,
		config:    cfg,
		done:      make(chan struct{}),
		startTime: time.Now(),
	}

	if err := s.Reload(); err != nil {
		logger.Warn().Err(err).Str("path", cfg.IndexPath).Msg("Index not loaded, serving unready")
	}
	return s, nil
}

// Reload re-reads the index file and drops cached responses. On failure
// the previous index keeps being served.
func (s *Server) Reload() error {
	idx, err := s.store.Load()
	if s.metrics != nil {
		s.metrics.ObserveReload(err)
	}
	if err != nil {
		return err
	}
	s.cache.Clear()
	if s.metrics != nil {
		s.metrics.SetIndex(idx)
	}
	s.logger.Info().
		Str("path", s.config.IndexPath).
		Int("templates", len(idx.Templates)).
		Time("generated_at", idx.GeneratedAt.Time).
		Msg("Index loaded")
	return nil
}

// Start begins watching the index file when Watch is set.
func (s *Server) Start() error {
	if !s.config.Watch || s.config.IndexPath == "" {
		return nil
	}
	cfg := watcher.DefaultConfig(s.config.IndexPath)
	cfg.Logger = s.logger
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	s.watcher = w

	go func() {
		for {
			select {
			case <-changes:
				if err := s.Reload(); err != nil {
					s.logger.Warn().Err(err).Msg("Index reload failed, keeping previous index")
				}
			case <-s.done:
				return
			}
		}
	}()
	s.logger.Info().Str("path", s.config.IndexPath).Msg("Watching index for changes")
	return nil
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer returns an http.Server for the configured address and
// timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.config.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Shutdown stops the file watcher.
func (s *Server) Shutdown(_ context.Context) error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	if s.watcher != nil {
		return s.watcher.Stop()
	}
	return nil
}

// Store returns the index store.
func (s *Server) Store() *Store {
	return s.store
}
