package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("MINDSDB_URL", "http://10.0.0.5:47334/")
	t.Setenv("MINDSDB_TOKEN", " tok ")
	t.Setenv("PROBE_EXTERNAL_DB", "kraken_db")
	t.Setenv("PROBE_TIMEOUT_MS", "1500")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.example/x")

	cfg := FromEnv()

	require.Equal(t, "http://10.0.0.5:47334", cfg.BaseURL)
	require.Equal(t, "tok", cfg.Token)
	require.Equal(t, "kraken_db", cfg.ExternalDB)
	require.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	require.Equal(t, "./_testlogs", cfg.LogDir)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "https://hooks.example/x", cfg.SlackWebhook)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MINDSDB_URL", "MINDSDB_TOKEN", "PROBE_EXTERNAL_DB", "PROBE_TIMEOUT_MS", "LOG_DIR", "LOG_LEVEL", "MOCK_ADDR"} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()

	require.Equal(t, "http://127.0.0.1:47334", cfg.BaseURL)
	require.Equal(t, "coinbase_db", cfg.ExternalDB)
	require.Zero(t, cfg.Timeout)
	require.Equal(t, "logs", cfg.LogDir)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "127.0.0.1:47334", cfg.MockAddr)
}

func TestFromEnv_BadTimeoutIsReported(t *testing.T) {
	t.Setenv("PROBE_TIMEOUT_MS", "soon")
	cfg := FromEnv()
	require.Zero(t, cfg.Timeout)
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), `PROBE_TIMEOUT_MS "soon"`)

	// an explicit timeout replaces the bad value
	require.NoError(t, cfg.WithTimeout(time.Second).Validate())
}

func TestFromEnv_NegativeTimeoutIsReported(t *testing.T) {
	t.Setenv("PROBE_TIMEOUT_MS", "-500")
	cfg := FromEnv()
	require.Equal(t, -500*time.Millisecond, cfg.Timeout)
	require.ErrorContains(t, cfg.Validate(), "must not be negative")
}

func TestFromEnv_AgentsPostgres(t *testing.T) {
	for _, k := range []string{"AGENTS_PG_HOST", "AGENTS_PG_PORT", "AGENTS_PG_DATABASE", "AGENTS_PG_USER", "AGENTS_PG_PASSWORD"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	require.Equal(t, "postgres", cfg.AgentsPG.Host)
	require.Equal(t, 5432, cfg.AgentsPG.Port)
	require.Equal(t, "mindsdb", cfg.AgentsPG.Database)
	require.Equal(t, "mindsdb", cfg.AgentsPG.User)
	require.Empty(t, cfg.AgentsPG.Password)

	t.Setenv("AGENTS_PG_HOST", "db.internal")
	t.Setenv("AGENTS_PG_PORT", "6543")
	t.Setenv("AGENTS_PG_PASSWORD", "pw")
	cfg = FromEnv()
	require.Equal(t, "db.internal", cfg.AgentsPG.Host)
	require.Equal(t, 6543, cfg.AgentsPG.Port)
	require.Equal(t, "pw", cfg.AgentsPG.Password)

	t.Setenv("AGENTS_PG_PORT", "pg")
	require.ErrorContains(t, FromEnv().Validate(), `AGENTS_PG_PORT "pg"`)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Config{BaseURL: "ftp://host", Timeout: -time.Second, ExternalDB: " "}
	err := cfg.Validate()
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 3)
}

func TestLoadDotEnv_MissingFileIsFine(t *testing.T) {
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestLoadDotEnv_EnvWins(t *testing.T) {
	f := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(f, []byte("PROBE_EXTERNAL_DB=from_file\nMINDSDB_TOKEN=file_tok\n"), 0o600))

	t.Setenv("PROBE_EXTERNAL_DB", "from_env")
	t.Setenv("MINDSDB_TOKEN", "")
	os.Unsetenv("MINDSDB_TOKEN")

	require.NoError(t, LoadDotEnv(f))
	require.Equal(t, "from_env", os.Getenv("PROBE_EXTERNAL_DB"))
	require.Equal(t, "file_tok", os.Getenv("MINDSDB_TOKEN"))
}
