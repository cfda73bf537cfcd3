package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/EternisAI/panoptes/internal/history"
	"github.com/EternisAI/panoptes/internal/reports"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "@every 5m"
	DefaultWorkers  = 4
	DefaultTimeout  = 30 * time.Second
)

var (
	ErrInvalidWatch = errors.New("principal, customer and location ids are required")
	ErrNotStarted   = errors.New("monitor not started")
)

type Config struct {
	Enabled  bool          `mapstructure:"enabled"`
	Schedule string        `mapstructure:"schedule"`
	Workers  int           `mapstructure:"workers"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type HealthChecker interface {
	LocationHealth(ctx context.Context, principalID, customerID, locationID string) (reports.LocationHealthReport, error)
}

type Watch struct {
	PrincipalID  string          `json:"principal_id"`
	CustomerID   string          `json:"customer_id"`
	LocationID   string          `json:"location_id"`
	AddedAt      time.Time       `json:"added_at"`
	LastChecked  *time.Time      `json:"last_checked,omitempty"`
	LastSeverity *health.Severity `json:"last_severity,omitempty"`
}

type watchKey struct {
	principalID string
	customerID  string
	locationID  string
}

func (w Watch) key() watchKey {
	return watchKey{w.PrincipalID, w.CustomerID, w.LocationID}
}

// SweepResult counts the outcome of one pass over the watch list.
type SweepResult struct {
	Checked int `json:"checked"`
	Failed  int `json:"failed"`
}

type Monitor struct {
	checker  HealthChecker
	recorder history.Recorder
	cfg      Config
	now      func() time.Time

	mu      sync.RWMutex
	watches map[watchKey]*Watch

	pool  *ants.Pool
	sched *cron.Cron
}

func New(checker HealthChecker, recorder history.Recorder, cfg Config) (*Monitor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}

	return &Monitor{
		checker:  checker,
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
		watches:  make(map[watchKey]*Watch),
		pool:     pool,
	}, nil
}

func (m *Monitor) Add(principalID, customerID, locationID string) (Watch, error) {
	w := Watch{
		PrincipalID: strings.TrimSpace(principalID),
		CustomerID:  strings.TrimSpace(customerID),
		LocationID:  strings.TrimSpace(locationID),
		AddedAt:     m.now().UTC(),
	}
	if w.PrincipalID == "" || w.CustomerID == "" || w.LocationID == "" {
		return Watch{}, ErrInvalidWatch
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.watches[w.key()]; ok {
		return *existing, nil
	}
	m.watches[w.key()] = &w
	slog.Info("Watch added", "principal_id", w.PrincipalID, "customer_id", w.CustomerID, "location_id", w.LocationID)
	return w, nil
}

func (m *Monitor) Remove(principalID, customerID, locationID string) bool {
	key := watchKey{principalID, customerID, locationID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.watches[key]; !ok {
		return false
	}
	delete(m.watches, key)
	slog.Info("Watch removed", "principal_id", principalID, "customer_id", customerID, "location_id", locationID)
	return true
}

// RemovePrincipal drops every watch owned by principalID.
func (m *Monitor) RemovePrincipal(principalID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.watches {
		if key.principalID == principalID {
			delete(m.watches, key)
			removed++
		}
	}
	return removed
}

// List returns the watches of principalID, or all watches when it is empty.
func (m *Monitor) List(principalID string) []Watch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Watch, 0, len(m.watches))
	for _, w := range m.watches {
		if principalID == "" || w.PrincipalID == principalID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PrincipalID != b.PrincipalID {
			return a.PrincipalID < b.PrincipalID
		}
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		return a.LocationID < b.LocationID
	})
	return out
}

// Start schedules periodic sweeps until Stop is called or ctx is done.
func (m *Monitor) Start(ctx context.Context) error {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo))
	sched := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	if _, err := sched.AddFunc(m.cfg.Schedule, func() {
		res := m.RunOnce(ctx)
		slog.Info("Health sweep finished", "checked", res.Checked, "failed", res.Failed)
	}); err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", m.cfg.Schedule, err)
	}

	m.mu.Lock()
	m.sched = sched
	m.mu.Unlock()

	sched.Start()
	slog.Info("Health monitor started", "schedule", m.cfg.Schedule, "workers", m.cfg.Workers)
	return nil
}

func (m *Monitor) Stop() error {
	m.mu.Lock()
	sched := m.sched
	m.sched = nil
	m.mu.Unlock()

	if sched == nil {
		m.pool.Release()
		return ErrNotStarted
	}
	<-sched.Stop().Done()
	m.pool.Release()
	slog.Info("Health monitor stopped")
	return nil
}

// RunOnce checks every watch on the worker pool and waits for all of them.
func (m *Monitor) RunOnce(ctx context.Context) SweepResult {
	m.mu.RLock()
	watches := make([]Watch, 0, len(m.watches))
	for _, w := range m.watches {
		watches = append(watches, *w)
	}
	m.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for _, w := range watches {
		w := w
		wg.Add(1)
		err := m.pool.Submit(func() {
			defer wg.Done()
			if err := m.check(ctx, w); err != nil {
				failed.Add(1)
				slog.Warn("Health check failed",
					"principal_id", w.PrincipalID,
					"customer_id", w.CustomerID,
					"location_id", w.LocationID,
					"error", err)
			}
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
			slog.Error("Failed to schedule health check", "location_id", w.LocationID, "error", err)
		}
	}
	wg.Wait()

	return SweepResult{Checked: len(watches), Failed: int(failed.Load())}
}

func (m *Monitor) check(ctx context.Context, w Watch) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	report, err := m.checker.LocationHealth(ctx, w.PrincipalID, w.CustomerID, w.LocationID)
	if err != nil {
		return err
	}

	at := m.now()
	sev := report.Health.Severity
	if m.recorder != nil {
		snap := history.NewSnapshot(w.PrincipalID, w.CustomerID, w.LocationID, report.Health, at)
		if err := m.recorder.Record(ctx, snap); err != nil {
			return fmt.Errorf("record snapshot: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.watches[w.key()]
	if !ok {
		return nil
	}
	if current.LastSeverity != nil && *current.LastSeverity != sev {
		slog.Warn("Location severity changed",
			"principal_id", w.PrincipalID,
			"location_id", w.LocationID,
			"from", current.LastSeverity.String(),
			"to", sev.String(),
			"summary", report.Health.Summary)
	}
	checked := at.UTC()
	current.LastChecked = &checked
	current.LastSeverity = &sev
	return nil
}
