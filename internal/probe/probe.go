package probe

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/mindsprobe/internal/domain"
)

// CheckResult is the outcome of a single step that got a reply.
//
// Fields:
//   - Success: the reply carried no "error" field.
//   - Message: the remote error, or the reply's "type" on success.
//   - StatusCode: HTTP status of the reply.
type CheckResult struct {
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	StatusCode int     `json:"status_code"`
	LatencyMS  float64 `json:"latency_ms"`
}

// Sender performs one round trip against the remote service.
type Sender interface {
	Do(ctx context.Context, r domain.Request) (domain.Response, error)
}

// Reporter logs what a human should see from a reply. An error aborts the run.
type Reporter func(log *zap.Logger, res domain.Response) error

// Step is one named request plus the way its reply is reported.
type Step struct {
	Name    string
	Title   string
	Request domain.Request
	Report  Reporter
}
