package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/smtindex/pkg/constants"
)

func loadTestConfig(t *testing.T, configFile string) *Config {
	t.Helper()
	v, err := NewViper(configFile)
	require.NoError(t, err)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	cfg := loadTestConfig(t, "")

	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, []string{constants.RegistryURL, constants.RegistryURLEnglish}, cfg.RegistryURLs)
	assert.Equal(t, constants.RepositoryArchiveURL, cfg.RepositoryArchiveURL)
	assert.Equal(t, constants.FetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, []string{"json", "csv"}, cfg.Formats)
	assert.True(t, cfg.Provenance)
	assert.Equal(t, "dist/index.json", cfg.IndexPath)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "/api/v1", cfg.Server.PathPrefix)
	assert.Empty(t, cfg.ConfigFile)
}

func TestLoadConfig_EnvironmentVariables(t *testing.T) {
	isolate(t)
	t.Setenv("SMTINDEX_OUTPUT_DIR", "public")
	t.Setenv("SMTINDEX_PORT", "9000")
	t.Setenv("SMTINDEX_FETCH_TIMEOUT", "45s")
	t.Setenv("SMTINDEX_FORMATS", "json yaml")
	t.Setenv("SOURCE_DATE_EPOCH", "1700000000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := loadTestConfig(t, "")
	assert.Equal(t, "public", cfg.OutputDir)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"json", "yaml"}, cfg.Formats)
	assert.Equal(t, "1700000000", cfg.SourceDateEpoch)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadConfig_EnvFiles(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SMTINDEX_BRANCH=develop\nSMTINDEX_HOST=0.0.0.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("SMTINDEX_HOST=127.0.0.1\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("SMTINDEX_BRANCH")
		os.Unsetenv("SMTINDEX_HOST")
	})

	cfg := loadTestConfig(t, "")
	assert.Equal(t, "develop", cfg.RepositoryBranch)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host, ".env.local overrides .env")
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "smtindex.yaml")
	content := `output-dir: site
formats: [json, csv, yaml]
prefix: /api/v2/
snapshot-dir: snapshots
offline: true
cors-origins:
  - https://example.com
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	cfg := loadTestConfig(t, file)
	assert.Equal(t, file, cfg.ConfigFile)
	assert.Equal(t, "site", cfg.OutputDir)
	assert.Equal(t, []string{"json", "csv", "yaml"}, cfg.Formats)
	assert.Equal(t, "/api/v2", cfg.Server.PathPrefix)
	assert.True(t, cfg.Offline)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)
}

func TestLoadConfig_DefaultConfigFileInHome(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".smtindex.yaml"), []byte("port: 7000\n"), 0o644))

	cfg := loadTestConfig(t, "")
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := NewViper("/nonexistent/smtindex.yaml")
	require.Error(t, err)
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	isolate(t)
	t.Setenv("SMTINDEX_OUTPUT_DIR", "from-env")

	v, err := NewViper("")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("output-dir", "dist", "")
	fs.Int("port", 8080, "")
	require.NoError(t, fs.Parse([]string{"--output-dir", "from-flag"}))
	require.NoError(t, BindFlags(v, fs))

	cfg, err := LoadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.OutputDir)
	assert.Equal(t, 8080, cfg.Server.Port, "unchanged flag falls back to the default")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{}, false},
		{"offline without snapshots", Config{Offline: true}, true},
		{"offline with snapshots", Config{Offline: true, SnapshotDir: "s"}, false},
		{"negative timeout", Config{FetchTimeout: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
