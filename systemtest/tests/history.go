package tests

import (
	"context"
	"testing"
	"time"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresHistory(t *testing.T, store history.Recorder) {
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	severities := []health.Severity{health.SeverityGreen, health.SeverityYellow, health.SeverityRed}
	for i, sev := range severities {
		report := health.HealthReport{Online: sev != health.SeverityRed, Severity: sev, Summary: health.Summary(sev)}
		snap := history.NewSnapshot("7", "cust", "loc", report, start.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Record(ctx, snap))
	}

	t.Run("newest first", func(t *testing.T) {
		got, err := store.List(ctx, "7", "cust", "loc", 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, health.SeverityRed, got[0].Severity)
		assert.False(t, got[0].Online)
		assert.Equal(t, health.Summary(health.SeverityRed), got[0].Summary)
		assert.True(t, got[0].CreatedAt.Equal(start.Add(2*time.Minute)))
		assert.Equal(t, health.SeverityGreen, got[2].Severity)
	})

	t.Run("limit", func(t *testing.T) {
		got, err := store.List(ctx, "7", "cust", "loc", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("scoped to principal", func(t *testing.T) {
		got, err := store.List(ctx, "8", "cust", "loc", 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("rejects incomplete snapshot", func(t *testing.T) {
		err := store.Record(ctx, history.Snapshot{PrincipalID: "7"})
		assert.ErrorIs(t, err, history.ErrInvalidSnapshot)
	})
}
