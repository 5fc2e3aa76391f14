package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/echorank/echorank/internal/domain"
	"github.com/echorank/echorank/internal/jobs"
)

type memLedger struct {
	mu   sync.Mutex
	runs map[string]*domain.JobRun
}

func newMemLedger() *memLedger {
	return &memLedger{runs: make(map[string]*domain.JobRun)}
}

func (l *memLedger) CreateJobRun(_ context.Context, run *domain.JobRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *run
	l.runs[run.ID] = &copied
	return nil
}

func (l *memLedger) FinishJobRun(_ context.Context, run *domain.JobRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := *run
	l.runs[run.ID] = &copied
	return nil
}

func (l *memLedger) single(t *testing.T) *domain.JobRun {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.Len(t, l.runs, 1)
	for _, run := range l.runs {
		return run
	}
	return nil
}

type channelNotifier struct {
	events chan domain.JobEvent
}

func newChannelNotifier() *channelNotifier {
	return &channelNotifier{events: make(chan domain.JobEvent, 1)}
}

func (n *channelNotifier) Notify(_ context.Context, event domain.JobEvent) {
	n.events <- event
}

func (n *channelNotifier) wait(t *testing.T) domain.JobEvent {
	t.Helper()
	select {
	case event := <-n.events:
		return event
	case <-time.After(time.Second):
		t.Fatal("no job event delivered")
		return domain.JobEvent{}
	}
}

func TestRunner_Success(t *testing.T) {
	ledger := newMemLedger()
	notifier := newChannelNotifier()
	runner := jobs.NewRunner(ledger, notifier)

	err := runner.Run(context.Background(), domain.JobTypeAudit, "api", func(_ context.Context) (map[string]any, error) {
		return map[string]any{"providers": 2}, nil
	})
	require.NoError(t, err)

	run := ledger.single(t)
	require.Equal(t, domain.JobStatusSuccess, run.Status)
	require.Empty(t, run.ErrorMessage)
	require.False(t, run.CompletedAt.IsZero())

	event := notifier.wait(t)
	require.Equal(t, domain.JobTypeAudit, event.Name)
	require.True(t, event.Success)
	require.Equal(t, 2, event.Summary["providers"])
}

func TestRunner_Failure(t *testing.T) {
	ledger := newMemLedger()
	notifier := newChannelNotifier()
	runner := jobs.NewRunner(ledger, notifier)

	err := runner.Run(context.Background(), domain.JobTypeReinforcement, "scheduler", func(_ context.Context) (map[string]any, error) {
		return nil, errors.New("providers unavailable")
	})
	require.ErrorContains(t, err, "providers unavailable")

	run := ledger.single(t)
	require.Equal(t, domain.JobStatusFailed, run.Status)
	require.Equal(t, "providers unavailable", run.ErrorMessage)

	event := notifier.wait(t)
	require.False(t, event.Success)
}

func TestRunner_RecoversPanic(t *testing.T) {
	ledger := newMemLedger()
	notifier := newChannelNotifier()
	runner := jobs.NewRunner(ledger, notifier)

	err := runner.Run(context.Background(), domain.JobTypeContent, "api", func(_ context.Context) (map[string]any, error) {
		panic("nil bible")
	})
	require.ErrorContains(t, err, "job panicked")

	run := ledger.single(t)
	require.Equal(t, domain.JobStatusFailed, run.Status)
	require.Contains(t, run.ErrorMessage, "nil bible")

	event := notifier.wait(t)
	require.False(t, event.Success)
}
