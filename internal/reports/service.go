package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/plume"
	"github.com/spf13/cast"
	"golang.org/x/sync/errgroup"
)

// Querier is the subset of the Plume query layer the reports need.
type Querier interface {
	LocationStatus(ctx context.Context, principalID, customerID, locationID string) (any, error)
	ServiceLevel(ctx context.Context, principalID, customerID, locationID string) (any, error)
	Nodes(ctx context.Context, principalID, customerID, locationID string) (any, error)
	Devices(ctx context.Context, principalID, customerID, locationID string) (any, error)
	QoEStats(ctx context.Context, principalID, customerID, locationID string) (any, error)
	WanStats(ctx context.Context, principalID, customerID, locationID string, q plume.StatsQuery) (any, error)
	OnlineStats(ctx context.Context, principalID, customerID, locationID string, q plume.StatsQuery) (any, error)
}

type Config struct {
	Health health.HealthOptions `mapstructure:"health"`
	Wan    health.WanOptions    `mapstructure:"wan"`
}

type LocationHealthReport struct {
	CustomerID   string              `json:"customer_id"`
	LocationID   string              `json:"location_id"`
	LocationName string              `json:"location_name"`
	Inventory    health.Inventory    `json:"inventory"`
	Health       health.HealthReport `json:"health"`
	QoEAvailable bool                `json:"qoe_available"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

type WanReport struct {
	CustomerID  string             `json:"customer_id"`
	LocationID  string             `json:"location_id"`
	Range       health.TimeRange   `json:"range"`
	RangeLabel  string             `json:"range_label"`
	Analysis    health.WanAnalysis `json:"analysis"`
	GeneratedAt time.Time          `json:"generated_at"`
}

type OnlineReport struct {
	CustomerID   string               `json:"customer_id"`
	LocationID   string               `json:"location_id"`
	LocationName string               `json:"location_name"`
	Range        health.TimeRange     `json:"range"`
	Metrics      health.UptimeMetrics `json:"metrics"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

type Service struct {
	q   Querier
	cfg Config
	now func() time.Time
}

func NewService(q Querier, cfg Config) *Service {
	return &Service{q: q, cfg: cfg, now: time.Now}
}

// LocationHealth fetches the location payloads concurrently and analyzes them.
// QoE data is optional; its failure only drops the QoE checks.
func (s *Service) LocationHealth(ctx context.Context, principalID, customerID, locationID string) (LocationHealthReport, error) {
	var in health.HealthInput

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.q.LocationStatus(gctx, principalID, customerID, locationID)
		if err != nil {
			return fmt.Errorf("fetch location: %w", err)
		}
		in.Location = v
		return nil
	})
	g.Go(func() error {
		v, err := s.q.ServiceLevel(gctx, principalID, customerID, locationID)
		if err != nil {
			return fmt.Errorf("fetch service level: %w", err)
		}
		in.ServiceLevel = v
		return nil
	})
	g.Go(func() error {
		v, err := s.q.Nodes(gctx, principalID, customerID, locationID)
		if err != nil {
			return fmt.Errorf("fetch nodes: %w", err)
		}
		in.Nodes = v
		return nil
	})
	g.Go(func() error {
		v, err := s.q.Devices(gctx, principalID, customerID, locationID)
		if err != nil {
			return fmt.Errorf("fetch devices: %w", err)
		}
		in.Devices = v
		return nil
	})
	g.Go(func() error {
		v, err := s.q.QoEStats(gctx, principalID, customerID, locationID)
		if err != nil {
			slog.Warn("QoE stats unavailable, continuing without them",
				"principal_id", principalID,
				"location_id", locationID,
				"error", err)
			return nil
		}
		in.QoE = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return LocationHealthReport{}, err
	}

	report, err := health.AnalyzeLocationHealth(in, s.cfg.Health)
	if err != nil {
		return LocationHealthReport{}, fmt.Errorf("analyze health: %w", err)
	}
	inv, err := health.CountInventory(in, s.cfg.Health)
	if err != nil {
		return LocationHealthReport{}, fmt.Errorf("count inventory: %w", err)
	}

	return LocationHealthReport{
		CustomerID:   customerID,
		LocationID:   locationID,
		LocationName: locationName(in.Location, locationID),
		Inventory:    inv,
		Health:       report,
		QoEAvailable: in.QoE != nil,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

func (s *Service) WanConsumption(ctx context.Context, principalID, customerID, locationID string, r health.TimeRange) (WanReport, error) {
	raw, err := s.q.WanStats(ctx, principalID, customerID, locationID, plume.StatsQuery{Granularity: r.Granularity, Limit: r.Limit})
	if err != nil {
		return WanReport{}, fmt.Errorf("fetch wan stats: %w", err)
	}
	samples, err := health.DecodeWanSamples(raw)
	if err != nil {
		return WanReport{}, fmt.Errorf("decode wan stats: %w", err)
	}

	return WanReport{
		CustomerID:  customerID,
		LocationID:  locationID,
		Range:       r,
		RangeLabel:  r.Label(),
		Analysis:    health.AnalyzeWanStats(samples, s.cfg.Wan),
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *Service) OnlineStats(ctx context.Context, principalID, customerID, locationID string, r health.TimeRange) (OnlineReport, error) {
	var (
		stats    any
		location any
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.q.OnlineStats(gctx, principalID, customerID, locationID, plume.StatsQuery{Granularity: r.Granularity, Limit: r.Limit})
		if err != nil {
			return fmt.Errorf("fetch online stats: %w", err)
		}
		stats = v
		return nil
	})
	g.Go(func() error {
		v, err := s.q.LocationStatus(gctx, principalID, customerID, locationID)
		if err != nil {
			slog.Debug("Location name lookup failed", "location_id", locationID, "error", err)
			return nil
		}
		location = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return OnlineReport{}, err
	}

	metrics, err := health.AnalyzeOnlineStats(stats, r.Granularity, r.Limit)
	if err != nil {
		return OnlineReport{}, fmt.Errorf("analyze online stats: %w", err)
	}

	return OnlineReport{
		CustomerID:   customerID,
		LocationID:   locationID,
		LocationName: locationName(location, locationID),
		Range:        r,
		Metrics:      metrics,
		GeneratedAt:  s.now().UTC(),
	}, nil
}

func locationName(raw any, fallback string) string {
	m, ok := raw.(map[string]any)
	if !ok {
		return fallback
	}
	for _, k := range []string{"name", "locationName", "nickname"} {
		if s := cast.ToString(m[k]); s != "" {
			return s
		}
	}
	return fallback
}
