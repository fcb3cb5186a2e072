// Package flow models the public respondent runtime: the step sequence a
// respondent walks through and the bounded await loop for the asynchronously
// generated report.
package flow

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"

	"github.com/purposewaze/form-studio/metrics"
	"github.com/purposewaze/form-studio/model"
)

type Step string

const (
	StepEmail   Step = "email"
	StepForm    Step = "form"
	StepLoading Step = "loading"
	StepSuccess Step = "success"
	StepReport  Step = "report"
)

var transitions = map[Step][]Step{
	StepEmail:   {StepForm},
	StepForm:    {StepLoading},
	StepLoading: {StepSuccess, StepReport},
	// success and report are terminal
}

func (s Step) CanAdvance(to Step) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Session tracks one respondent's progress through the runtime.
type Session struct {
	Step Step
}

func NewSession() *Session {
	return &Session{Step: StepEmail}
}

func (s *Session) Advance(to Step) error {
	if !s.Step.CanAdvance(to) {
		return errors.Errorf("illegal step %s -> %s", s.Step, to)
	}
	s.Step = to
	return nil
}

// MissingRequired returns the labels of required fields without a usable
// answer. Only presence is checked; there is no format validation.
func MissingRequired(fields []model.FormField, values map[string]any) []string {
	var missing []string
	for _, f := range fields {
		if !f.Required {
			continue
		}
		if emptyValue(values[f.ID]) {
			missing = append(missing, f.Label)
		}
	}
	return missing
}

func emptyValue(v any) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return value == ""
	case bool:
		return !value
	case []any:
		return len(value) == 0
	case []string:
		return len(value) == 0
	}
	return false
}

// ReportSource yields the most recent report for a submission, nil when
// none exists yet.
type ReportSource interface {
	Latest(ctx context.Context, submissionID string) (*model.Report, error)
}

var errNotReady = errors.New("report not ready")

// Poller runs the bounded report await loop.
type Poller struct {
	Source      ReportSource
	Interval    time.Duration
	MaxAttempts int
}

// Await probes for a report immediately and then at a constant cadence until
// one appears, the attempt ceiling is reached, or ctx is cancelled. Hitting
// the ceiling is not an error: it returns (nil, nil) and the caller degrades
// to the plain success state. Overlapping calls are harmless; each probe is
// an idempotent read.
func (p Poller) Await(ctx context.Context, submissionID string) (*model.Report, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(p.Interval))

	var found *model.Report
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		metrics.ReportPolls.Inc()

		r, err := p.Source.Latest(ctx, submissionID)
		if err != nil {
			return err
		}
		if r == nil {
			return retry.RetryableError(errNotReady)
		}
		found = r
		return nil
	})
	if errors.Is(err, errNotReady) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return found, nil
}
