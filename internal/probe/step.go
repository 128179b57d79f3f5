package probe

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/mindsprobe/internal/domain"
)

// StepError tells which step aborted a run.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// exec sends st.Request and hands the reply to st.Report.
func exec(ctx context.Context, log *zap.Logger, s Sender, st Step) (CheckResult, error) {
	start := time.Now()
	res, err := s.Do(ctx, st.Request)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		return CheckResult{Name: st.Name, LatencyMS: latency}, &StepError{Step: st.Name, Err: err}
	}

	out := CheckResult{Name: st.Name, StatusCode: res.StatusCode, LatencyMS: latency}
	switch o := res.Outcome().(type) {
	case domain.Failure:
		out.Message = o.Message
	case domain.Success:
		out.Success = true
		out.Message = o.Type
	}

	report := st.Report
	if report == nil {
		report = ReportRaw("response")
	}
	if err := report(log, res); err != nil {
		return out, &StepError{Step: st.Name, Err: err}
	}

	log.Debug("probe_step_done",
		zap.String("step", st.Name),
		zap.Int("status", res.StatusCode),
		zap.Bool("success", out.Success),
		zap.Float64("latency_ms", latency),
	)
	return out, nil
}
