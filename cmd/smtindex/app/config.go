package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	cmdconstants "github.com/agentstation/smtindex/internal/cmd/constants"
	"github.com/agentstation/smtindex/internal/server"
	"github.com/agentstation/smtindex/pkg/constants"
	"github.com/agentstation/smtindex/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "SMTINDEX"

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string

	// Sources
	RegistryURLs          []string
	RepositoryArchiveURL  string
	RepositoryArchiveFile string
	RepositoryURL         string
	RepositoryBranch      string
	FetchTimeout          time.Duration
	SnapshotDir           string
	Offline               bool

	// Build
	OutputDir       string
	Formats         []string
	Provenance      bool
	GitCommit       string
	SourceDateEpoch string

	// Serving
	IndexPath string
	Server    server.Config
}

// NewViper returns a viper instance reading, in order of precedence:
//  1. Bound command-line flags (see BindFlags)
//  2. SMTINDEX_* environment variables
//  3. .env and .env.local files
//  4. The config file (--config, or ~/.smtindex.yaml, or ./.smtindex.yaml)
//  5. Defaults
func NewViper(configFile string) (*viper.Viper, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Reproducible builds honour the conventional unprefixed variable.
	if err := v.BindEnv(cmdconstants.KeySourceDateEpoch, EnvPrefix+"_SOURCE_DATE_EPOCH", "SOURCE_DATE_EPOCH"); err != nil {
		return nil, errors.NewConfigError("env", "binding SOURCE_DATE_EPOCH", err)
	}
	if err := v.BindEnv(cmdconstants.KeyLogLevel, EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, errors.NewConfigError("env", "binding LOG_LEVEL", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("file", "reading "+configFile, err)
		}
		return v, nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.AddConfigPath(".")
	v.SetConfigType("yaml")
	v.SetConfigName(".smtindex")

	// A missing default config file is not an error.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.NewConfigError("file", "reading config", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	srv := server.DefaultConfig()

	v.SetDefault(cmdconstants.KeyLogFormat, "auto")
	v.SetDefault(cmdconstants.KeyLogOutput, "stderr")

	v.SetDefault(cmdconstants.KeyRegistryURLs, []string{constants.RegistryURL, constants.RegistryURLEnglish})
	v.SetDefault(cmdconstants.KeyArchiveURL, constants.RepositoryArchiveURL)
	v.SetDefault(cmdconstants.KeyRepositoryURL, constants.RepositoryURL)
	v.SetDefault(cmdconstants.KeyBranch, constants.RepositoryBranch)
	v.SetDefault(cmdconstants.KeyFetchTimeout, constants.FetchTimeout)
	v.SetDefault(cmdconstants.KeyOutputDir, "dist")
	v.SetDefault(cmdconstants.KeyFormats, []string{"json", "csv"})
	v.SetDefault(cmdconstants.KeyProvenance, true)

	v.SetDefault(cmdconstants.KeyIndex, srv.IndexPath)
	v.SetDefault(cmdconstants.KeyHost, srv.Host)
	v.SetDefault(cmdconstants.KeyPort, srv.Port)
	v.SetDefault(cmdconstants.KeyPrefix, srv.PathPrefix)
	v.SetDefault(cmdconstants.KeyCacheTTL, srv.CacheTTL)
	v.SetDefault(cmdconstants.KeyWatch, srv.Watch)
	v.SetDefault(cmdconstants.KeyMetrics, srv.MetricsEnabled)
}

// BindFlags binds every flag of fs to the config key of the same name.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return errors.NewConfigError("flags", "binding flags", err)
	}
	return nil
}

// LoadConfig builds a Config from v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	srv := server.DefaultConfig()
	srv.Host = v.GetString(cmdconstants.KeyHost)
	srv.Port = v.GetInt(cmdconstants.KeyPort)
	srv.PathPrefix = strings.TrimRight(v.GetString(cmdconstants.KeyPrefix), "/")
	srv.IndexPath = v.GetString(cmdconstants.KeyIndex)
	srv.CacheTTL = v.GetDuration(cmdconstants.KeyCacheTTL)
	srv.Watch = v.GetBool(cmdconstants.KeyWatch)
	srv.CORSEnabled = v.GetBool(cmdconstants.KeyCORS)
	srv.CORSOrigins = v.GetStringSlice(cmdconstants.KeyCORSOrigins)
	srv.MetricsEnabled = v.GetBool(cmdconstants.KeyMetrics)

	config := &Config{
		Verbose:    v.GetBool(cmdconstants.KeyVerbose),
		Quiet:      v.GetBool(cmdconstants.KeyQuiet),
		NoColor:    v.GetBool(cmdconstants.KeyNoColor),
		Format:     v.GetString(cmdconstants.KeyFormat),
		ConfigFile: v.ConfigFileUsed(),

		LogLevel:  v.GetString(cmdconstants.KeyLogLevel),
		LogFormat: v.GetString(cmdconstants.KeyLogFormat),
		LogOutput: v.GetString(cmdconstants.KeyLogOutput),

		RegistryURLs:          v.GetStringSlice(cmdconstants.KeyRegistryURLs),
		RepositoryArchiveURL:  v.GetString(cmdconstants.KeyArchiveURL),
		RepositoryArchiveFile: v.GetString(cmdconstants.KeyArchiveFile),
		RepositoryURL:         strings.TrimRight(v.GetString(cmdconstants.KeyRepositoryURL), "/"),
		RepositoryBranch:      v.GetString(cmdconstants.KeyBranch),
		FetchTimeout:          v.GetDuration(cmdconstants.KeyFetchTimeout),
		SnapshotDir:           v.GetString(cmdconstants.KeySnapshotDir),
		Offline:               v.GetBool(cmdconstants.KeyOffline),

		OutputDir:       v.GetString(cmdconstants.KeyOutputDir),
		Formats:         v.GetStringSlice(cmdconstants.KeyFormats),
		Provenance:      v.GetBool(cmdconstants.KeyProvenance),
		GitCommit:       v.GetString(cmdconstants.KeyGitCommit),
		SourceDateEpoch: v.GetString(cmdconstants.KeySourceDateEpoch),

		IndexPath: srv.IndexPath,
		Server:    srv,
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks combinations no single key can express.
func (c *Config) Validate() error {
	if c.Offline && c.SnapshotDir == "" {
		return errors.NewConfigError("sources", "--offline requires --snapshot-dir", nil)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewConfigError("server", "port out of range", nil)
	}
	if c.FetchTimeout < 0 {
		return errors.NewConfigError("sources", "fetch timeout must be non-negative", nil)
	}
	return nil
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
