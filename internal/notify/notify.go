package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers a finished run's summary somewhere a human will see it.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans a summary out to every notifier and returns all failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Enabled drops nil entries so callers can tell whether anything is configured.
func Enabled(ns ...Notifier) Multi {
	out := make(Multi, 0, len(ns))
	for _, n := range ns {
		if n == nil {
			continue
		}
		if s, ok := n.(*Slack); ok && s == nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
