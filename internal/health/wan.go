package health

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cast"
)

const bytesPerMbitSecond = 1e6 / 8

type ActivityLevel string

const (
	ActivityModerate ActivityLevel = "moderate"
	ActivityHigh     ActivityLevel = "high"
)

type WanOptions struct {
	// Interval is the sampling interval. Zero means infer it from timestamps.
	Interval      time.Duration `mapstructure:"interval"`
	BucketSize    time.Duration `mapstructure:"bucket_size"`
	ModerateRatio float64       `mapstructure:"moderate_ratio"`
	HighRatio     float64       `mapstructure:"high_ratio"`
	MaxWindows    int           `mapstructure:"max_windows"`
}

const defaultSampleInterval = 15 * time.Minute

func DefaultWanOptions() WanOptions {
	return WanOptions{
		BucketSize:    time.Hour,
		ModerateRatio: 1.5,
		HighRatio:     2.0,
		MaxWindows:    5,
	}
}

func (o WanOptions) withDefaults() WanOptions {
	d := DefaultWanOptions()
	if o.BucketSize <= 0 {
		o.BucketSize = d.BucketSize
	}
	if o.ModerateRatio <= 0 {
		o.ModerateRatio = d.ModerateRatio
	}
	if o.HighRatio <= 0 {
		o.HighRatio = d.HighRatio
	}
	if o.MaxWindows <= 0 {
		o.MaxWindows = d.MaxWindows
	}
	return o
}

// WanSample is one interval of WAN throughput in Mbps.
type WanSample struct {
	Timestamp time.Time
	RxMbps    float64
	TxMbps    float64
	Valid     bool
}

type Peak struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type ActivityWindow struct {
	Timestamp time.Time     `json:"timestamp"`
	Level     ActivityLevel `json:"level"`
	AvgMbps   float64       `json:"avg_mbps"`
	Ratio     float64       `json:"ratio"`
}

type WanAnalysis struct {
	PeakRx             *Peak            `json:"peak_rx"`
	PeakTx             *Peak            `json:"peak_tx"`
	AvgRx              float64          `json:"avg_rx"`
	AvgTx              float64          `json:"avg_tx"`
	P95Rx              *float64         `json:"p95_rx"`
	P95Tx              *float64         `json:"p95_tx"`
	TotalDownloadBytes float64          `json:"total_download_bytes"`
	TotalUploadBytes   float64          `json:"total_upload_bytes"`
	ActivityWindows    []ActivityWindow `json:"activity_windows"`
	DataQualityRatio   float64          `json:"data_quality_ratio"`
	SampleCount        int              `json:"sample_count"`
	ValidSampleCount   int              `json:"valid_sample_count"`
	IntervalSeconds    float64          `json:"interval_seconds"`
}

type wanRecord struct {
	Timestamp any   `mapstructure:"timestamp"`
	Time      any   `mapstructure:"time"`
	RxMbps    any   `mapstructure:"rxMbps"`
	TxMbps    any   `mapstructure:"txMbps"`
	Rx        any   `mapstructure:"rx"`
	Tx        any   `mapstructure:"tx"`
	Valid     *bool `mapstructure:"valid"`
}

// DecodeWanSamples turns a raw wanStats payload into samples. Records that
// cannot be decoded are kept as invalid samples so they still count against
// data quality.
func DecodeWanSamples(raw any) ([]WanSample, error) {
	list, err := asList(raw, "wanStats", "samples", "data")
	if err != nil {
		return nil, err
	}

	samples := make([]WanSample, 0, len(list))
	for _, item := range list {
		var rec wanRecord
		if err := decodeRecord(item, &rec); err != nil {
			samples = append(samples, WanSample{})
			continue
		}

		ts, tsOK := parseTimestamp(rec.Timestamp)
		if !tsOK {
			ts, tsOK = parseTimestamp(rec.Time)
		}
		rx := firstFloat(rec.RxMbps, rec.Rx)
		tx := firstFloat(rec.TxMbps, rec.Tx)

		s := WanSample{Timestamp: ts}
		if rx != nil {
			s.RxMbps = *rx
		}
		if tx != nil {
			s.TxMbps = *tx
		}
		s.Valid = tsOK && rx != nil && tx != nil && (rec.Valid == nil || *rec.Valid)
		samples = append(samples, s)
	}
	return samples, nil
}

// firstFloat returns the first value that parses as a number. Nil, blank
// strings and booleans count as missing.
func firstFloat(values ...any) *float64 {
	for _, v := range values {
		switch t := v.(type) {
		case nil, bool:
			continue
		case string:
			if strings.TrimSpace(t) == "" {
				continue
			}
		}
		if f, err := cast.ToFloat64E(v); err == nil {
			return &f
		}
	}
	return nil
}

func (s WanSample) usable() bool {
	return s.Valid && usableRate(s.RxMbps) && usableRate(s.TxMbps)
}

func usableRate(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AnalyzeWanStats summarizes interval throughput samples. Values are kept at
// full precision internally and rounded to two decimals on return.
func AnalyzeWanStats(samples []WanSample, opts WanOptions) WanAnalysis {
	opts = opts.withDefaults()

	valid := make([]WanSample, 0, len(samples))
	for _, s := range samples {
		if s.usable() {
			valid = append(valid, s)
		}
	}

	out := WanAnalysis{
		SampleCount:      len(samples),
		ValidSampleCount: len(valid),
		ActivityWindows:  []ActivityWindow{},
	}
	if len(samples) > 0 {
		out.DataQualityRatio = round2(float64(len(valid)) / float64(len(samples)))
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = inferInterval(valid)
	}
	out.IntervalSeconds = interval.Seconds()

	if len(valid) == 0 {
		return out
	}

	rx := make(stats.Float64Data, len(valid))
	tx := make(stats.Float64Data, len(valid))
	combined := make(stats.Float64Data, len(valid))
	peakRx, peakTx := valid[0], valid[0]
	for i, s := range valid {
		rx[i] = s.RxMbps
		tx[i] = s.TxMbps
		combined[i] = s.RxMbps + s.TxMbps
		if s.RxMbps > peakRx.RxMbps {
			peakRx = s
		}
		if s.TxMbps > peakTx.TxMbps {
			peakTx = s
		}
	}

	out.PeakRx = &Peak{Value: round2(peakRx.RxMbps), Timestamp: peakRx.Timestamp}
	out.PeakTx = &Peak{Value: round2(peakTx.TxMbps), Timestamp: peakTx.Timestamp}

	avgRx, _ := stats.Mean(rx)
	avgTx, _ := stats.Mean(tx)
	out.AvgRx = round2(avgRx)
	out.AvgTx = round2(avgTx)

	if p, err := stats.PercentileNearestRank(rx, 95); err == nil {
		v := round2(p)
		out.P95Rx = &v
	}
	if p, err := stats.PercentileNearestRank(tx, 95); err == nil {
		v := round2(p)
		out.P95Tx = &v
	}

	sumRx, _ := stats.Sum(rx)
	sumTx, _ := stats.Sum(tx)
	out.TotalDownloadBytes = round2(sumRx * bytesPerMbitSecond * interval.Seconds())
	out.TotalUploadBytes = round2(sumTx * bytesPerMbitSecond * interval.Seconds())

	overall, _ := stats.Mean(combined)
	out.ActivityWindows = activityWindows(valid, overall, opts)

	return out
}

// inferInterval uses the first positive gap between consecutive samples.
func inferInterval(valid []WanSample) time.Duration {
	for i := 1; i < len(valid); i++ {
		if gap := valid[i].Timestamp.Sub(valid[i-1].Timestamp); gap > 0 {
			return gap
		}
	}
	return defaultSampleInterval
}

type bucket struct {
	start time.Time
	sum   float64
	count int
}

func activityWindows(valid []WanSample, overall float64, opts WanOptions) []ActivityWindow {
	windows := []ActivityWindow{}
	if overall <= 0 {
		return windows
	}

	buckets := make(map[time.Time]*bucket)
	for _, s := range valid {
		if s.Timestamp.IsZero() {
			continue
		}
		start := s.Timestamp.Truncate(opts.BucketSize)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{start: start}
			buckets[start] = b
		}
		b.sum += s.RxMbps + s.TxMbps
		b.count++
	}

	type candidate struct {
		start time.Time
		avg   float64
		ratio float64
	}
	var qualifying []candidate
	for _, b := range buckets {
		avg := b.sum / float64(b.count)
		ratio := avg / overall
		if ratio >= opts.ModerateRatio {
			qualifying = append(qualifying, candidate{start: b.start, avg: avg, ratio: ratio})
		}
	}

	sort.Slice(qualifying, func(i, j int) bool {
		if qualifying[i].ratio != qualifying[j].ratio {
			return qualifying[i].ratio > qualifying[j].ratio
		}
		return qualifying[i].start.Before(qualifying[j].start)
	})
	if len(qualifying) > opts.MaxWindows {
		qualifying = qualifying[:opts.MaxWindows]
	}
	sort.Slice(qualifying, func(i, j int) bool {
		return qualifying[i].start.Before(qualifying[j].start)
	})

	for _, c := range qualifying {
		level := ActivityModerate
		if c.ratio >= opts.HighRatio {
			level = ActivityHigh
		}
		windows = append(windows, ActivityWindow{
			Timestamp: c.start,
			Level:     level,
			AvgMbps:   round2(c.avg),
			Ratio:     round2(c.ratio),
		})
	}
	return windows
}
