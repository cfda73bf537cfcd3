package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu       sync.Mutex
	severity map[string]health.Severity
	fail     map[string]bool
	calls    int
}

func (f *fakeChecker) LocationHealth(_ context.Context, principalID, customerID, locationID string) (reports.LocationHealthReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[locationID] {
		return reports.LocationHealthReport{}, errors.New("upstream down")
	}
	sev := f.severity[locationID]
	return reports.LocationHealthReport{
		CustomerID: customerID,
		LocationID: locationID,
		Health: health.HealthReport{
			Online:   sev != health.SeverityRed,
			Severity: sev,
			Summary:  health.Summary(sev),
		},
	}, nil
}

func newMonitor(t *testing.T, checker HealthChecker, recorder history.Recorder) *Monitor {
	m, err := New(checker, recorder, Config{Workers: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func TestAddListRemove(t *testing.T) {
	m := newMonitor(t, &fakeChecker{}, nil)

	_, err := m.Add("42", "c1", "l1")
	require.NoError(t, err)
	_, err = m.Add("42", "c1", "l1")
	require.NoError(t, err)
	_, err = m.Add("7", "c2", "l2")
	require.NoError(t, err)

	_, err = m.Add("42", "", "l1")
	assert.ErrorIs(t, err, ErrInvalidWatch)

	assert.Len(t, m.List(""), 2)
	assert.Len(t, m.List("42"), 1)

	assert.True(t, m.Remove("42", "c1", "l1"))
	assert.False(t, m.Remove("42", "c1", "l1"))
	assert.Equal(t, 1, m.RemovePrincipal("7"))
	assert.Empty(t, m.List(""))
}

func TestRunOnceRecordsSnapshots(t *testing.T) {
	checker := &fakeChecker{
		severity: map[string]health.Severity{"l1": health.SeverityGreen, "l2": health.SeverityYellow},
		fail:     map[string]bool{"l3": true},
	}
	store := history.NewMemoryStore(10)
	m := newMonitor(t, checker, store)

	for _, l := range []string{"l1", "l2", "l3"} {
		_, err := m.Add("42", "c1", l)
		require.NoError(t, err)
	}

	res := m.RunOnce(context.Background())
	assert.Equal(t, SweepResult{Checked: 3, Failed: 1}, res)

	snaps, err := store.List(context.Background(), "42", "c1", "l2", 10)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, health.SeverityYellow, snaps[0].Severity)

	snaps, err = store.List(context.Background(), "42", "c1", "l3", 10)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	for _, w := range m.List("42") {
		if w.LocationID == "l3" {
			assert.Nil(t, w.LastSeverity)
			continue
		}
		require.NotNil(t, w.LastSeverity)
		require.NotNil(t, w.LastChecked)
	}
}

func TestRunOnceTracksSeverityChanges(t *testing.T) {
	checker := &fakeChecker{severity: map[string]health.Severity{"l1": health.SeverityGreen}}
	m := newMonitor(t, checker, history.NewMemoryStore(10))
	_, err := m.Add("42", "c1", "l1")
	require.NoError(t, err)

	m.RunOnce(context.Background())
	checker.mu.Lock()
	checker.severity["l1"] = health.SeverityRed
	checker.mu.Unlock()
	m.RunOnce(context.Background())

	watches := m.List("42")
	require.Len(t, watches, 1)
	require.NotNil(t, watches[0].LastSeverity)
	assert.Equal(t, health.SeverityRed, *watches[0].LastSeverity)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	m, err := New(&fakeChecker{}, nil, Config{Schedule: "not a schedule"})
	require.NoError(t, err)

	err = m.Start(context.Background())
	assert.Error(t, err)
	assert.ErrorIs(t, m.Stop(), ErrNotStarted)
}

func TestStartRunsScheduledSweeps(t *testing.T) {
	checker := &fakeChecker{severity: map[string]health.Severity{"l1": health.SeverityGreen}}
	m, err := New(checker, nil, Config{Schedule: "@every 1s"})
	require.NoError(t, err)
	_, err = m.Add("42", "c1", "l1")
	require.NoError(t, err)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool {
		checker.mu.Lock()
		defer checker.mu.Unlock()
		return checker.calls > 0
	}, 3*time.Second, 50*time.Millisecond)
	require.NoError(t, m.Stop())
}
