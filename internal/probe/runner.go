package probe

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Runner executes its steps one after another against a single endpoint.
// The first failed step ends the run; nothing after it is sent.
type Runner struct {
	Logger    *zap.Logger
	Sender    Sender
	Steps     []Step
	NextSteps []string // printed after a complete run
}

func NewRunner(log *zap.Logger, s Sender, steps ...Step) *Runner {
	return &Runner{Logger: log, Sender: s, Steps: steps}
}

// Report summarises a run.
type Report struct {
	Results []CheckResult
	Total   int
	Err     error
}

func (r Report) OK() bool { return r.Err == nil }

// Summary renders the report as a notification title and body.
func (r Report) Summary() (title, text string) {
	var b strings.Builder
	for _, c := range r.Results {
		state := "ok"
		if !c.Success {
			state = "remote error: " + c.Message
		}
		fmt.Fprintf(&b, "%s: HTTP %d, %.0f ms, %s\n", c.Name, c.StatusCode, c.LatencyMS, state)
	}
	if r.Err != nil {
		fmt.Fprintf(&b, "aborted: %v\n", r.Err)
		return fmt.Sprintf("🔴 Probe aborted after %d/%d steps", len(r.Results), r.Total), b.String()
	}
	return fmt.Sprintf("🟢 Probe completed %d/%d steps", len(r.Results), r.Total), b.String()
}

// Run executes every step in order. It returns the report and the error that
// aborted the run, if any. The abort is logged once, at error level.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	rep := Report{Total: len(r.Steps), Results: make([]CheckResult, 0, len(r.Steps))}

	for i, st := range r.Steps {
		r.Logger.Info("probe_step", zap.Int("n", i+1), zap.String("step", st.Name), zap.String("title", st.Title))

		out, err := exec(ctx, r.Logger, r.Sender, st)
		if err != nil {
			rep.Err = err
			r.Logger.Error("probe_failed", zap.Error(err))
			return rep, err
		}
		rep.Results = append(rep.Results, out)
	}

	r.Logger.Info("probe_done", zap.Int("steps", len(rep.Results)))
	for i, next := range r.NextSteps {
		r.Logger.Info("next_step", zap.Int("n", i+1), zap.String("action", next))
	}
	return rep, nil
}
