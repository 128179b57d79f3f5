// cmd/preflight/main.go
package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/mindsprobe/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := config.LoadDotEnv(); err != nil {
		fail(".env could not be read: " + err.Error())
	}

	raw := strings.TrimSpace(os.Getenv("MINDSDB_URL"))
	if raw == "" {
		warn("MINDSDB_URL is empty; the probe will use http://127.0.0.1:47334.")
	}

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, "✖", e)
		}
		os.Exit(1)
	}
	ok("MINDSDB_URL=" + cfg.BaseURL)

	if u, _ := url.Parse(cfg.BaseURL); u != nil && u.Scheme == "http" && u.Hostname() != "127.0.0.1" && u.Hostname() != "localhost" {
		warn("remote endpoint over plain http; tokens are sent in clear text.")
	}

	if cfg.Token == "" {
		warn("MINDSDB_TOKEN empty; requests go out without Authorization.")
	} else {
		ok("MINDSDB_TOKEN present")
	}

	if cfg.Timeout == 0 {
		warn("PROBE_TIMEOUT_MS unset; a hung server will hang the run.")
	} else {
		ok("PROBE_TIMEOUT_MS=" + cfg.Timeout.String())
	}

	if cfg.SlackWebhook == "" {
		warn("SLACK_WEBHOOK_URL empty; no run summary will be posted.")
	} else {
		ok("SLACK_WEBHOOK_URL present")
	}

	if cfg.AgentsPG.Password == "" {
		warn("AGENTS_PG_PASSWORD empty; init-agents registers agents_db without a password.")
	} else {
		ok(fmt.Sprintf("agents_db postgres: %s@%s:%d/%s", cfg.AgentsPG.User, cfg.AgentsPG.Host, cfg.AgentsPG.Port, cfg.AgentsPG.Database))
	}

	ok("external database: " + cfg.ExternalDB)
	ok("preflight passed")
}
