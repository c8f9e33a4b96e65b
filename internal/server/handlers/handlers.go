// Package handlers provides HTTP request handlers for the template query
// API.
package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/smtindex/internal/server/cache"
	"github.com/agentstation/smtindex/pkg/index"
)

// IndexProvider serves the currently loaded index.
type IndexProvider interface {
	// Index returns the current index, or an ErrNotReady error before the
	// first successful load.
	Index() (*index.Index, error)

	// LoadedAt returns when the current index was loaded.
	LoadedAt() time.Time
}

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	provider  IndexProvider
	cache     *cache.Cache
	logger    *zerolog.Logger
	startTime time.Time
}

// New creates a new Handlers instance.
func New(provider IndexProvider, cache *cache.Cache, logger *zerolog.Logger, startTime time.Time) *Handlers {
	return &Handlers{
		provider:  provider,
		cache:     cache,
		logger:    logger,
		startTime: startTime,
	}
}
