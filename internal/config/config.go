package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/hamed0406/mindsprobe/internal/domain"
)

type Config struct {
	BaseURL      string        // remote service, e.g. http://127.0.0.1:47334
	Token        string        // optional bearer token for the remote service
	ExternalDB   string        // database listed by the "tables" step
	Timeout      time.Duration // per-request timeout; 0 disables it
	LogDir       string        // logs directory
	LogLevel     string        // zap level name
	SlackWebhook string        // run summary sink; empty disables it
	MockAddr     string        // listen address of cmd/mockapi
	MockToken    string        // token the mock requires; empty means open

	// AgentsPG is the Postgres server init-agents registers as agents_db.
	AgentsPG domain.PGConnection

	// unparsable values, reported by Validate
	badTimeout string
	badPort    string
}

// LoadDotEnv preloads variables from the given .env files. Missing files are
// ignored; variables already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var err error
	for _, f := range files {
		if _, statErr := os.Stat(f); statErr != nil {
			continue
		}
		err = multierr.Append(err, godotenv.Load(f))
	}
	return err
}

func FromEnv() Config {
	base := strings.TrimSpace(os.Getenv("MINDSDB_URL"))
	if base == "" {
		base = "http://127.0.0.1:47334"
	}

	extDB := strings.TrimSpace(os.Getenv("PROBE_EXTERNAL_DB"))
	if extDB == "" {
		extDB = "coinbase_db"
	}

	// No timeout unless asked for. Bad values are kept for Validate.
	var (
		timeout    time.Duration
		badTimeout string
	)
	if v := strings.TrimSpace(os.Getenv("PROBE_TIMEOUT_MS")); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			timeout = time.Duration(ms) * time.Millisecond
		} else {
			badTimeout = v
		}
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if level == "" {
		level = "info"
	}

	mockAddr := os.Getenv("MOCK_ADDR")
	if mockAddr == "" {
		mockAddr = "127.0.0.1:47334"
	}

	pg := domain.PGConnection{
		Host:     envOr("AGENTS_PG_HOST", "postgres"),
		Port:     5432,
		Database: envOr("AGENTS_PG_DATABASE", "mindsdb"),
		User:     envOr("AGENTS_PG_USER", "mindsdb"),
		Password: os.Getenv("AGENTS_PG_PASSWORD"),
	}
	var badPort string
	if v := strings.TrimSpace(os.Getenv("AGENTS_PG_PORT")); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			pg.Port = p
		} else {
			badPort = v
		}
	}

	return Config{
		BaseURL:      strings.TrimRight(base, "/"),
		Token:        strings.TrimSpace(os.Getenv("MINDSDB_TOKEN")),
		ExternalDB:   extDB,
		Timeout:      timeout,
		LogDir:       logDir,
		LogLevel:     level,
		SlackWebhook: strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL")),
		MockAddr:     mockAddr,
		MockToken:    strings.TrimSpace(os.Getenv("MOCK_TOKEN")),
		AgentsPG:     pg,
		badTimeout:   badTimeout,
		badPort:      badPort,
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// WithTimeout returns c using d, dropping any bad PROBE_TIMEOUT_MS value.
func (c Config) WithTimeout(d time.Duration) Config {
	c.Timeout = d
	c.badTimeout = ""
	return c
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var err error

	u, perr := url.Parse(c.BaseURL)
	switch {
	case c.BaseURL == "":
		err = multierr.Append(err, errors.New("base url is empty"))
	case perr != nil:
		err = multierr.Append(err, fmt.Errorf("base url: %w", perr))
	case u.Scheme != "http" && u.Scheme != "https":
		err = multierr.Append(err, fmt.Errorf("base url %q: scheme must be http or https", c.BaseURL))
	case u.Host == "":
		err = multierr.Append(err, fmt.Errorf("base url %q: missing host", c.BaseURL))
	}

	if c.badTimeout != "" {
		err = multierr.Append(err, fmt.Errorf("PROBE_TIMEOUT_MS %q is not a whole number of milliseconds", c.badTimeout))
	}
	if c.Timeout < 0 {
		err = multierr.Append(err, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.badPort != "" {
		err = multierr.Append(err, fmt.Errorf("AGENTS_PG_PORT %q is not a number", c.badPort))
	}
	if c.AgentsPG.Port < 0 || c.AgentsPG.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("agents postgres port %d out of range", c.AgentsPG.Port))
	}
	if strings.TrimSpace(c.ExternalDB) == "" {
		err = multierr.Append(err, errors.New("external database name is empty"))
	}
	return err
}
