package health

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

var ErrUnknownTimeRange = errors.New("unknown time range")

type TimeRange struct {
	Key         string `json:"key"`
	Granularity string `json:"granularity"`
	Limit       int    `json:"limit"`
}

var TimeRanges = map[string]TimeRange{
	"3h":  {Key: "3h", Granularity: "hours", Limit: 3},
	"24h": {Key: "24h", Granularity: "days", Limit: 1},
	"7d":  {Key: "7d", Granularity: "days", Limit: 7},
}

const DefaultTimeRange = "24h"

func ParseTimeRange(key string) (TimeRange, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		key = DefaultTimeRange
	}
	r, ok := TimeRanges[key]
	if !ok {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrUnknownTimeRange, key)
	}
	return r, nil
}

// TimeRangeKeys lists the supported range keys, shortest first.
func TimeRangeKeys() []string {
	keys := make([]string, 0, len(TimeRanges))
	for k := range TimeRanges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return TimeRanges[keys[i]].span() < TimeRanges[keys[j]].span()
	})
	return keys
}

func (r TimeRange) span() time.Duration {
	if r.Granularity == "hours" {
		return time.Duration(r.Limit) * time.Hour
	}
	return time.Duration(r.Limit) * 24 * time.Hour
}

func (r TimeRange) Label() string {
	return TimeRangeLabel(r.Granularity, r.Limit)
}

func TimeRangeLabel(granularity string, limit int) string {
	switch granularity {
	case "hours":
		if limit > 1 {
			return fmt.Sprintf("Last %d Hours", limit)
		}
		return fmt.Sprintf("Last %d Hour", limit)
	case "days":
		if limit == 1 {
			return "Last 24 Hours"
		}
		return fmt.Sprintf("Last %d Days", limit)
	}
	return fmt.Sprintf("Last %d %s", limit, granularity)
}

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

const trendThreshold = 0.05

type StateEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

type UptimeMetrics struct {
	UptimePercentage  float64      `json:"uptime_percentage"`
	OnlineCount       int          `json:"online_count"`
	OfflineCount      int          `json:"offline_count"`
	IntermittentCount int          `json:"intermittent_count"`
	TotalCount        int          `json:"total_count"`
	Incidents         int          `json:"incidents"`
	IncidentStarts    []time.Time  `json:"incident_starts"`
	Trend             Trend        `json:"trend"`
	StatusLabel       string       `json:"status_label"`
	TimeRangeLabel    string       `json:"time_range_label"`
	Entries           []StateEntry `json:"-"`
}

type stateRecord struct {
	Timestamp any    `mapstructure:"timestamp"`
	Value     string `mapstructure:"value"`
}

// DecodeLocationState extracts the locationState series from an onlineStats
// payload. An object without a locationState key is an empty series. Entries
// without a value are kept with an empty value and count as intermittent.
func DecodeLocationState(raw any) ([]StateEntry, error) {
	if obj, ok := raw.(map[string]any); ok {
		if _, found := obj["locationState"]; !found {
			return []StateEntry{}, nil
		}
	}
	list, err := asList(raw, "locationState")
	if err != nil {
		return nil, err
	}
	entries := make([]StateEntry, 0, len(list))
	for i, item := range list {
		var rec stateRecord
		if err := decodeRecord(item, &rec); err != nil {
			slog.Debug("Skipping location state entry", "index", i, "error", err)
			continue
		}
		ts, _ := parseTimestamp(rec.Timestamp)
		entries = append(entries, StateEntry{Timestamp: ts, Value: strings.ToLower(strings.TrimSpace(rec.Value))})
	}
	return entries, nil
}

// AnalyzeOnlineStats derives uptime metrics from an onlineStats payload.
func AnalyzeOnlineStats(raw any, granularity string, limit int) (UptimeMetrics, error) {
	entries, err := DecodeLocationState(raw)
	if err != nil {
		return UptimeMetrics{}, err
	}

	m := UptimeMetrics{
		TotalCount:     len(entries),
		IncidentStarts: []time.Time{},
		Trend:          TrendStable,
		TimeRangeLabel: TimeRangeLabel(granularity, limit),
		Entries:        entries,
	}

	previous := ""
	for _, e := range entries {
		switch e.Value {
		case "online":
			m.OnlineCount++
		case "offline":
			m.OfflineCount++
			if previous != "offline" {
				m.Incidents++
				m.IncidentStarts = append(m.IncidentStarts, e.Timestamp)
			}
		default:
			m.IntermittentCount++
		}
		previous = e.Value
	}

	var uptime float64
	if m.TotalCount > 0 {
		uptime = float64(m.OnlineCount) / float64(m.TotalCount) * 100
	}
	m.UptimePercentage = round2(uptime)
	m.StatusLabel = StatusLabel(uptime)
	m.Trend = connectivityTrend(entries)
	return m, nil
}

// connectivityTrend compares the online ratio of the second half of the
// series against the first.
func connectivityTrend(entries []StateEntry) Trend {
	if len(entries) < 2 {
		return TrendStable
	}
	mid := len(entries) / 2
	diff := onlineRatio(entries[mid:]) - onlineRatio(entries[:mid])
	switch {
	case diff > trendThreshold:
		return TrendImproving
	case diff < -trendThreshold:
		return TrendDeclining
	}
	return TrendStable
}

func onlineRatio(entries []StateEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	online := 0
	for _, e := range entries {
		if e.Value == "online" {
			online++
		}
	}
	return float64(online) / float64(len(entries))
}

func StatusLabel(uptime float64) string {
	switch {
	case uptime >= 99.5:
		return "Excellent"
	case uptime >= 98:
		return "Good"
	case uptime >= 95:
		return "Fair"
	case uptime >= 90:
		return "Poor"
	}
	return "Critical"
}
