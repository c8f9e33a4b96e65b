// Package app provides the application context and dependency management
// for the smtindex CLI. It centralizes configuration, logging and the
// construction of sources, builders and servers for the commands.
package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/agentstation/smtindex/internal/build"
	"github.com/agentstation/smtindex/internal/cmd/output"
	"github.com/agentstation/smtindex/internal/metrics"
	"github.com/agentstation/smtindex/internal/server"
	"github.com/agentstation/smtindex/internal/sources/local"
	"github.com/agentstation/smtindex/internal/sources/registry"
	"github.com/agentstation/smtindex/internal/sources/repository"
	"github.com/agentstation/smtindex/pkg/errors"
	"github.com/agentstation/smtindex/pkg/export"
	"github.com/agentstation/smtindex/pkg/index"
	"github.com/agentstation/smtindex/pkg/logging"
	"github.com/agentstation/smtindex/pkg/sources"
)

// App represents the smtindex application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	viper  *viper.Viper
	config *Config

	// Logger
	logger *zerolog.Logger

	// Command output
	out io.Writer

	// Metrics registry (lazy-initialized, singleton)
	mu      sync.Mutex
	metrics *metrics.Metrics
}

// New creates a new App instance with the given version information.
// The configuration is loaded without flags; flags are bound once a
// command is chosen.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	v, err := NewViper("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	config, err := LoadConfig(v)
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.viper = v
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Out returns the writer commands print results to.
func (a *App) Out() io.Writer {
	return a.out
}

// OutputFormat returns the format for command results.
func (a *App) OutputFormat() output.Format {
	return output.DetectFormat(a.config.Format)
}

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, a.logger)
}

// Metrics returns the metrics registry, creating it on first use.
func (a *App) Metrics() *metrics.Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	return a.metrics
}

// IndexPath returns the index file read by validate, list, show and serve.
func (a *App) IndexPath() string {
	return a.config.IndexPath
}

// LoadIndex reads an index file. An empty path reads the configured index.
func (a *App) LoadIndex(path string) (*index.Index, error) {
	if path == "" {
		path = a.config.IndexPath
	}
	idx, err := index.Load(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().
		Str("path", path).
		Int("templates", len(idx.Templates)).
		Msg("Loaded index")
	return idx, nil
}

// Sources returns the registry and repository sources described by the
// configuration. Offline builds read the snapshots a previous build saved.
func (a *App) Sources() (reg, repo sources.Source) {
	cfg := a.config
	if cfg.Offline {
		return local.New(sources.RegistryID, filepath.Join(cfg.SnapshotDir, local.FileName(sources.RegistryID))),
			local.New(sources.RepositoryID, filepath.Join(cfg.SnapshotDir, local.FileName(sources.RepositoryID)))
	}

	reg = registry.New(registry.WithURLs(cfg.RegistryURLs...))

	repoOpts := []repository.Option{
		repository.WithBaseURL(cfg.RepositoryURL),
		repository.WithBranch(cfg.RepositoryBranch),
	}
	if cfg.RepositoryArchiveFile != "" {
		repoOpts = append(repoOpts, repository.WithArchiveFile(cfg.RepositoryArchiveFile))
	} else {
		repoOpts = append(repoOpts, repository.WithArchiveURL(cfg.RepositoryArchiveURL))
	}
	return reg, repository.New(repoOpts...)
}

// Builder returns a build pipeline over the configured sources.
func (a *App) Builder() *build.Builder {
	reg, repo := a.Sources()
	return build.New(reg, repo, a.Metrics())
}

// BuildOptions returns the build options described by the configuration.
func (a *App) BuildOptions() ([]build.Option, error) {
	cfg := a.config

	formats := make([]export.Format, 0, len(cfg.Formats))
	for _, name := range cfg.Formats {
		f, err := export.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}

	clock, err := build.ClockFromEpoch(cfg.SourceDateEpoch)
	if err != nil {
		return nil, err
	}

	gitCommit := cfg.GitCommit
	if gitCommit == "" && a.commit != "unknown" {
		gitCommit = a.commit
	}

	opts := []build.Option{
		build.WithTimeout(cfg.FetchTimeout),
		build.WithOutputDir(cfg.OutputDir),
		build.WithFormats(formats...),
		build.WithProvenance(cfg.Provenance),
		build.WithToolVersion(a.version),
		build.WithGitCommit(gitCommit),
		build.WithClock(clock),
	}
	if !cfg.Offline {
		opts = append(opts, build.WithSnapshotDir(cfg.SnapshotDir))
	}
	return opts, nil
}

// ServerConfig returns the query server configuration.
func (a *App) ServerConfig() server.Config {
	return a.config.Server
}

// Shutdown performs graceful shutdown of the application.
func (a *App) Shutdown(_ context.Context) error {
	return nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput sets the writer commands print results to.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) error {
		a.metrics = m
		return nil
	}
}
