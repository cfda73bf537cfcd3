package reports

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) LocationStatus(ctx context.Context, p, c, l string) (any, error) {
	args := m.Called(p, c, l)
	return args.Get(0), args.Error(1)
}

func (m *mockQuerier) ServiceLevel(ctx context.Context, p, c, l string) (any, error) {
	args := m.Called(p, c, l)
	return args.Get(0), args.Error(1)
}

func (m *mockQuerier) Nodes(ctx context.Context, p, c, l string) (any, error) {
	args := m.Called(p, c, l)
	return args.Get(0), args.Error(1)
}

func (m *mockQuerier) Devices(ctx context.Context, p, c, l string) (any, error) {
	args := m.Called(p, c, l)
	return args.Get(0), args.Error(1)
}

func (m *mockQuerier) QoEStats(ctx context.Context, p, c, l string) (any, error) {
	args := m.Called(p, c, l)
	return args.Get(0), args.Error(1)
}

func (m *mockQuerier) WanStats(ctx context.Context, p, c, l string, q plume.StatsQuery) (any, error) {
	args := m.Called(p, c, l, q)
	return args.Get(0), args.Error(1)
}

func (m *mockQuerier) OnlineStats(ctx context.Context, p, c, l string, q plume.StatsQuery) (any, error) {
	args := m.Called(p, c, l, q)
	return args.Get(0), args.Error(1)
}

func jsonValue(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func healthyQuerier(t *testing.T) *mockQuerier {
	q := new(mockQuerier)
	q.On("LocationStatus", "42", "c1", "l1").Return(jsonValue(t, `{"name":"Beach House"}`), nil)
	q.On("ServiceLevel", "42", "c1", "l1").Return(jsonValue(t, `{"connectionState":"connected"}`), nil)
	q.On("Nodes", "42", "c1", "l1").Return(jsonValue(t, `{"nodes":[{"id":"n1","connectionState":"connected"},{"id":"n2","connectionState":"disconnected"}]}`), nil)
	q.On("Devices", "42", "c1", "l1").Return(jsonValue(t, `[{"mac":"aa","connected":true}]`), nil)
	return q
}

func TestLocationHealth(t *testing.T) {
	q := healthyQuerier(t)
	q.On("QoEStats", "42", "c1", "l1").Return(jsonValue(t, `{"trafficClassStats":[]}`), nil)

	got, err := NewService(q, Config{}).LocationHealth(context.Background(), "42", "c1", "l1")
	require.NoError(t, err)

	assert.Equal(t, "Beach House", got.LocationName)
	assert.Equal(t, health.SeverityOrange, got.Health.Severity)
	assert.Equal(t, health.Inventory{Nodes: 2, NodesOnline: 1, Devices: 1, DevicesConnected: 1}, got.Inventory)
	assert.True(t, got.QoEAvailable)
	q.AssertExpectations(t)
}

func TestLocationHealthQoEOptional(t *testing.T) {
	q := healthyQuerier(t)
	q.On("QoEStats", "42", "c1", "l1").Return(nil, plume.ErrHTTPStatus)

	got, err := NewService(q, Config{}).LocationHealth(context.Background(), "42", "c1", "l1")
	require.NoError(t, err)
	assert.False(t, got.QoEAvailable)
	assert.Equal(t, health.SeverityOrange, got.Health.Severity)
}

func TestLocationHealthRequiredFetchFails(t *testing.T) {
	q := new(mockQuerier)
	upstream := &plume.APIError{Kind: plume.ErrAuthRejected, Status: 401}
	q.On("LocationStatus", "42", "c1", "l1").Return(nil, upstream).Maybe()
	q.On("ServiceLevel", "42", "c1", "l1").Return(nil, upstream).Maybe()
	q.On("Nodes", "42", "c1", "l1").Return(nil, upstream).Maybe()
	q.On("Devices", "42", "c1", "l1").Return(nil, upstream).Maybe()
	q.On("QoEStats", "42", "c1", "l1").Return(nil, upstream).Maybe()

	_, err := NewService(q, Config{}).LocationHealth(context.Background(), "42", "c1", "l1")
	require.Error(t, err)
	assert.ErrorIs(t, err, plume.ErrAuthRejected)

	var apiErr *plume.APIError
	assert.True(t, errors.As(err, &apiErr))
}

func TestWanConsumption(t *testing.T) {
	q := new(mockQuerier)
	r, err := health.ParseTimeRange("3h")
	require.NoError(t, err)
	q.On("WanStats", "42", "c1", "l1", plume.StatsQuery{Granularity: "hours", Limit: 3}).
		Return(jsonValue(t, `[
			{"timestamp":"2026-05-01T00:00:00Z","rxMbps":1,"txMbps":1},
			{"timestamp":"2026-05-01T00:15:00Z","rxMbps":3,"txMbps":1}
		]`), nil)

	got, err := NewService(q, Config{}).WanConsumption(context.Background(), "42", "c1", "l1", r)
	require.NoError(t, err)
	assert.Equal(t, "Last 3 Hours", got.RangeLabel)
	assert.Equal(t, 2.0, got.Analysis.AvgRx)
	assert.Equal(t, 1.0, got.Analysis.DataQualityRatio)
	q.AssertExpectations(t)
}

func TestWanConsumptionRejectsUnusablePayload(t *testing.T) {
	q := new(mockQuerier)
	q.On("WanStats", "42", "c1", "l1", mock.Anything).Return("oops", nil)

	_, err := NewService(q, Config{}).WanConsumption(context.Background(), "42", "c1", "l1", health.TimeRanges["24h"])
	assert.ErrorIs(t, err, health.ErrUnusableInput)
}

func TestOnlineStats(t *testing.T) {
	q := new(mockQuerier)
	q.On("OnlineStats", "42", "c1", "l1", plume.StatsQuery{Granularity: "days", Limit: 7}).
		Return(jsonValue(t, `{"locationState":[{"value":"online"},{"value":"offline"}]}`), nil)
	q.On("LocationStatus", "42", "c1", "l1").Return(nil, plume.ErrTimeout)

	got, err := NewService(q, Config{}).OnlineStats(context.Background(), "42", "c1", "l1", health.TimeRanges["7d"])
	require.NoError(t, err)
	assert.Equal(t, "l1", got.LocationName)
	assert.Equal(t, 50.0, got.Metrics.UptimePercentage)
	assert.Equal(t, 1, got.Metrics.Incidents)
	assert.Equal(t, "Last 7 Days", got.Metrics.TimeRangeLabel)
}
