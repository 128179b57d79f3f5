package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamed0406/mindsprobe/internal/probe"
)

// Run.
type cmdRun struct {
	global *cmdGlobal

	flagExternalDB string
}

func (c *cmdRun) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "run"
	cmd.Short = "Run the crypto smoke test"
	cmd.Long = `Description:
  Run the eight crypto smoke checks in order

  Creating the model and the table changes server state; running twice
  reports "already exists" errors for those steps.
`
	cmd.Args = cobra.NoArgs
	cmd.Flags().StringVar(&c.flagExternalDB, "external-db", c.global.cfg.ExternalDB, "Integration whose tables are listed (PROBE_EXTERNAL_DB)")
	cmd.RunE = c.Run
	return cmd
}

func (c *cmdRun) Run(cmd *cobra.Command, args []string) error {
	c.global.cfg.ExternalDB = c.flagExternalDB
	return c.global.execute(cmd.Context(), probe.CryptoSuite(c.flagExternalDB), probe.NextSteps)
}

// Query.
type cmdQuery struct {
	global *cmdGlobal
}

func (c *cmdQuery) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "query <statement>..."
	cmd.Short = "Submit one SQL statement"
	cmd.Long = `Description:
  Submit one SQL statement to /api/sql/query and print the reply

  Arguments are joined with spaces.
`
	cmd.Example = `  mindsprobe query "SHOW DATABASES;"`
	cmd.Args = cobra.MinimumNArgs(1)
	cmd.RunE = c.Run
	return cmd
}

func (c *cmdQuery) Run(cmd *cobra.Command, args []string) error {
	sql := strings.TrimSpace(strings.Join(args, " "))
	return c.global.execute(cmd.Context(), []probe.Step{probe.QueryStep(sql)}, nil)
}

// Status.
type cmdStatus struct {
	global *cmdGlobal
}

func (c *cmdStatus) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "status"
	cmd.Short = "Print the server status"
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	return cmd
}

func (c *cmdStatus) Run(cmd *cobra.Command, args []string) error {
	return c.global.execute(cmd.Context(), []probe.Step{probe.StatusStep()}, nil)
}

// Init agents.
type cmdInitAgents struct {
	global *cmdGlobal
}

func (c *cmdInitAgents) Command() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Use = "init-agents"
	cmd.Short = "Create the AI agent database, registry, models, views and jobs"
	cmd.Long = `Description:
  Create the AI agent database, registry, models, views and jobs

  agents_db is registered as a Postgres integration (AGENTS_PG_HOST,
  AGENTS_PG_PORT, AGENTS_PG_DATABASE, AGENTS_PG_USER, AGENTS_PG_PASSWORD).
  The server must answer /api/status with 200 first. Failing to create the
  database or a table stops the run; other failures are printed and skipped.
  Running it again is safe.
`
	cmd.Args = cobra.NoArgs
	cmd.RunE = c.Run
	return cmd
}

func (c *cmdInitAgents) Run(cmd *cobra.Command, args []string) error {
	return c.global.execute(cmd.Context(), probe.AgentSuite(c.global.cfg.AgentsPG), probe.AgentNextSteps)
}
