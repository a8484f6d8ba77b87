package pipeline

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingest-service/internal/models"
)

type fakeStage struct {
	name  string
	err   error
	calls *[]string
	fn    func(state *RunState)
}

func (s fakeStage) Name() string { return s.name }

func (s fakeStage) Run(_ context.Context, state *RunState) error {
	*s.calls = append(*s.calls, s.name)
	if s.fn != nil {
		s.fn(state)
	}
	return s.err
}

type fakeLanding struct {
	cleared bool
	err     error
}

func (l *fakeLanding) ClearLanding(_ context.Context) error {
	if l.err != nil {
		return l.err
	}
	l.cleared = true
	return nil
}

type fakeEvents struct {
	started   []*models.RunStartedEvent
	completed []*models.RunCompletedEvent
	failed    []*models.RunFailedEvent
}

func (e *fakeEvents) PublishRunStarted(_ context.Context, ev *models.RunStartedEvent) error {
	e.started = append(e.started, ev)
	return nil
}

func (e *fakeEvents) PublishRunCompleted(_ context.Context, ev *models.RunCompletedEvent) error {
	e.completed = append(e.completed, ev)
	return nil
}

func (e *fakeEvents) PublishRunFailed(_ context.Context, ev *models.RunFailedEvent) error {
	e.failed = append(e.failed, ev)
	return nil
}

func TestExecuteRunsStagesInOrder(t *testing.T) {
	var calls []string
	landing := &fakeLanding{}
	events := &fakeEvents{}

	var seen RunState
	runner := NewRunner(landing, events,
		fakeStage{name: "extract", calls: &calls, fn: func(st *RunState) { seen = *st }},
		fakeStage{name: "transform", calls: &calls},
		fakeStage{name: "load", calls: &calls, fn: func(st *RunState) {
			st.RowsStaged = map[string]int{"fact_transaction_dimension": 12}
		}},
	)

	err := runner.Execute(context.Background(), "marker")
	require.NoError(t, err)

	assert.Equal(t, []string{"extract", "transform", "load"}, calls)
	assert.True(t, landing.cleared)

	assert.NotEmpty(t, seen.RunID)
	assert.Equal(t, "marker", seen.Trigger)
	assert.Regexp(t, regexp.MustCompile(`^\d{8}_\d{6}$`), seen.Stamp)

	require.Len(t, events.started, 1)
	assert.Equal(t, models.EventTypeRunStarted, events.started[0].EventType)
	assert.Equal(t, seen.RunID, events.started[0].RunID)
	assert.Equal(t, "marker", events.started[0].Trigger)

	require.Len(t, events.completed, 1)
	assert.Equal(t, seen.RunID, events.completed[0].RunID)
	assert.Equal(t, map[string]int{"fact_transaction_dimension": 12}, events.completed[0].RowsStaged)
	assert.GreaterOrEqual(t, events.completed[0].DurationSeconds, 0.0)

	assert.Empty(t, events.failed)
}

func TestExecuteAbortsOnFailedStage(t *testing.T) {
	var calls []string
	landing := &fakeLanding{}
	events := &fakeEvents{}

	runner := NewRunner(landing, events,
		fakeStage{name: "extract", calls: &calls},
		fakeStage{name: "transform", calls: &calls, err: errors.New("header row missing")},
		fakeStage{name: "load", calls: &calls},
	)

	err := runner.Execute(context.Background(), "marker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage transform")

	assert.Equal(t, []string{"extract", "transform"}, calls)
	assert.False(t, landing.cleared)

	require.Len(t, events.failed, 1)
	assert.Equal(t, "transform", events.failed[0].Stage)
	assert.Contains(t, events.failed[0].Error, "header row missing")
	assert.Empty(t, events.completed)
}

func TestExecuteFailsWhenLandingClearFails(t *testing.T) {
	var calls []string
	landing := &fakeLanding{err: errors.New("bucket unreachable")}
	events := &fakeEvents{}

	runner := NewRunner(landing, events,
		fakeStage{name: "extract", calls: &calls},
	)

	err := runner.Execute(context.Background(), "marker")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear landing")

	require.Len(t, events.failed, 1)
	assert.Equal(t, "cleanup", events.failed[0].Stage)
	assert.Empty(t, events.completed)
}

func TestRegisterAppendsDownstreamStages(t *testing.T) {
	var calls []string
	landing := &fakeLanding{}

	runner := NewRunner(landing, nil,
		fakeStage{name: "extract", calls: &calls},
		fakeStage{name: "load", calls: &calls},
	)
	runner.Register(
		fakeStage{name: "association_rules", calls: &calls},
		fakeStage{name: "forecast", calls: &calls},
	)

	err := runner.Execute(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, []string{"extract", "load", "association_rules", "forecast"}, calls)
	assert.True(t, landing.cleared)
}

func TestExecuteWithoutPublisher(t *testing.T) {
	var calls []string
	landing := &fakeLanding{}

	runner := NewRunner(landing, nil, fakeStage{name: "extract", calls: &calls})

	require.NoError(t, runner.Execute(context.Background(), "marker"))
	assert.True(t, landing.cleared)

	runner = NewRunner(landing, nil, fakeStage{name: "extract", calls: &calls, err: errors.New("boom")})
	require.Error(t, runner.Execute(context.Background(), "marker"))
}
