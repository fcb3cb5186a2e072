package flow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purposewaze/form-studio/model"
)

func TestSessionTransitions(t *testing.T) {
	s := NewSession()
	require.Equal(t, StepEmail, s.Step)

	require.NoError(t, s.Advance(StepForm))
	require.NoError(t, s.Advance(StepLoading))

	// loading fans out to either terminal state
	branch := *s
	require.NoError(t, s.Advance(StepReport))
	require.NoError(t, branch.Advance(StepSuccess))

	// terminal states do not advance
	assert.Error(t, s.Advance(StepForm))
	assert.Error(t, branch.Advance(StepReport))
}

func TestSessionRejectsSkippingSteps(t *testing.T) {
	s := NewSession()
	assert.Error(t, s.Advance(StepLoading))
	assert.Error(t, s.Advance(StepReport))
	assert.Equal(t, StepEmail, s.Step)
}

func TestMissingRequired(t *testing.T) {
	fields := []model.FormField{
		{ID: "f1", Label: "Name", Required: true},
		{ID: "f2", Label: "Nickname", Required: false},
		{ID: "f3", Label: "Fears", Type: model.FieldRanking, Required: true},
		{ID: "f4", Label: "Agree", Type: model.FieldCheckbox, Required: true},
	}

	missing := MissingRequired(fields, map[string]any{
		"f1": "Jane",
		"f3": []any{"a", "b"},
		"f4": true,
	})
	assert.Empty(t, missing)

	missing = MissingRequired(fields, map[string]any{
		"f1": "",
		"f3": []any{},
		"f4": false,
	})
	assert.Equal(t, []string{"Name", "Fears", "Agree"}, missing)
}

type scriptedSource struct {
	calls   int
	readyAt int
	report  *model.Report
}

func (s *scriptedSource) Latest(ctx context.Context, submissionID string) (*model.Report, error) {
	s.calls++
	if s.calls >= s.readyAt {
		return s.report, nil
	}
	return nil, nil
}

func TestAwaitImmediateHit(t *testing.T) {
	src := &scriptedSource{
		readyAt: 1,
		report:  &model.Report{ID: "r1", Payload: json.RawMessage(`"hi"`)},
	}
	p := Poller{Source: src, Interval: time.Hour, MaxAttempts: 40}

	start := time.Now()
	r, err := p.Await(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "r1", r.ID)
	// first probe fires without waiting for the interval
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, src.calls)
}

func TestAwaitFindsReportAfterRetries(t *testing.T) {
	src := &scriptedSource{readyAt: 3, report: &model.Report{ID: "r1"}}
	p := Poller{Source: src, Interval: time.Millisecond, MaxAttempts: 40}

	r, err := p.Await(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 3, src.calls)
}

func TestAwaitCeilingDegradesToSuccess(t *testing.T) {
	src := &scriptedSource{readyAt: 1000}
	p := Poller{Source: src, Interval: time.Millisecond, MaxAttempts: 5}

	r, err := p.Await(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 5, src.calls)
}

func TestAwaitCancelled(t *testing.T) {
	src := &scriptedSource{readyAt: 1000}
	p := Poller{Source: src, Interval: 50 * time.Millisecond, MaxAttempts: 40}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Await(ctx, "s1")
	assert.ErrorIs(t, err, context.Canceled)
}
