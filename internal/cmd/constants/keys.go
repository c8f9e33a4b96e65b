// Package constants provides the flag names shared by the CLI commands.
// Each flag name is also its configuration key: SMTINDEX_OUTPUT_DIR in the
// environment and output-dir in the config file resolve to --output-dir.
package constants

// Global flags.
const (
	KeyVerbose    = "verbose"
	KeyQuiet      = "quiet"
	KeyNoColor    = "no-color"
	KeyFormat     = "format"
	KeyLogLevel   = "log-level"
	KeyLogFormat  = "log-format"
	KeyLogOutput  = "log-output"
	KeyConfigFile = "config"
	KeyIndex      = "index"
)

// Source and build flags.
const (
	KeyRegistryURLs    = "registry-urls"
	KeyArchiveURL      = "archive-url"
	KeyArchiveFile     = "archive-file"
	KeyRepositoryURL   = "repository-url"
	KeyBranch          = "branch"
	KeyFetchTimeout    = "fetch-timeout"
	KeySnapshotDir     = "snapshot-dir"
	KeyOffline         = "offline"
	KeyOutputDir       = "output-dir"
	KeyFormats         = "formats"
	KeyProvenance      = "provenance"
	KeyGitCommit       = "git-commit"
	KeySourceDateEpoch = "source-date-epoch"
	KeyDryRun          = "dry-run"
	KeyStrict          = "strict"
)

// Server flags.
const (
	KeyHost        = "host"
	KeyPort        = "port"
	KeyPrefix      = "prefix"
	KeyCacheTTL    = "cache-ttl"
	KeyWatch       = "watch"
	KeyCORS        = "cors"
	KeyCORSOrigins = "cors-origins"
	KeyMetrics     = "metrics"
)
