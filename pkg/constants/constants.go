// Package constants provides shared constants used throughout the smtindex
// codebase: upstream source locations, timeouts, file names and permissions.
package constants

import "time"

// SchemaVersion is the version of the structured index format.
const SchemaVersion = "1.0"

// Upstream sources
const (
	// RegistryURL is the IDTA content hub listing of registered templates.
	RegistryURL = "https://industrialdigitaltwin.org/content-hub/teilmodelle"

	// RegistryURLEnglish is the English mirror of the registry listing.
	RegistryURLEnglish = "https://industrialdigitaltwin.org/en/content-hub/submodels"

	// RepositoryURL is the submodel template repository on GitHub.
	RepositoryURL = "https://github.com/admin-shell-io/submodel-templates"

	// RepositoryBranch is the branch whose archive is indexed.
	RepositoryBranch = "main"

	// RepositoryArchiveURL is the zip archive of RepositoryBranch.
	RepositoryArchiveURL = RepositoryURL + "/archive/refs/heads/" + RepositoryBranch + ".zip"
)

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for a single HTTP request
	DefaultHTTPTimeout = 30 * time.Second

	// FetchTimeout bounds the fetch of both sources in a build
	FetchTimeout = 3 * time.Minute

	// ShutdownTimeout is the grace period for the query server
	ShutdownTimeout = 10 * time.Second

	// WatchDebounce coalesces bursts of file events before reloading
	WatchDebounce = 250 * time.Millisecond
)

// Cache constants
const (
	// CacheTTL is the default time-to-live for cached API responses
	CacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 10 * time.Minute
)

// Output file names written by a build.
const (
	IndexJSONFile  = "index.json"
	IndexCSVFile   = "index.csv"
	IndexYAMLFile  = "index.yaml"
	ProvenanceFile = "provenance.yaml"
)

// Limits
const (
	// MaxArchiveSize caps the repository archive download in bytes
	MaxArchiveSize = 512 << 20

	// UserAgent identifies smtindex to upstream servers
	UserAgent = "smtindex/1.0 (+https://github.com/agentstation/smtindex)"
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)
