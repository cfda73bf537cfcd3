package history

import (
	"context"
	"fmt"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const insertSnapshot = `
INSERT INTO health_snapshots
    (id, principal_id, customer_id, location_id, severity, online, issue_count, warning_count, summary, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const listSnapshots = `
SELECT id, principal_id, customer_id, location_id, severity, online, issue_count, warning_count, summary, created_at
FROM health_snapshots
WHERE principal_id = $1 AND customer_id = $2 AND location_id = $3
ORDER BY created_at DESC
LIMIT $4`

func (p *PostgresStore) Record(ctx context.Context, s Snapshot) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	_, err := p.pool.Exec(ctx, insertSnapshot,
		s.ID, s.PrincipalID, s.CustomerID, s.LocationID, s.Severity.String(),
		s.Online, s.IssueCount, s.WarningCount, s.Summary, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, principalID, customerID, locationID string, limit int) ([]Snapshot, error) {
	rows, err := p.pool.Query(ctx, listSnapshots, principalID, customerID, locationID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Snapshot, error) {
		var (
			s        Snapshot
			severity string
		)
		if err := row.Scan(&s.ID, &s.PrincipalID, &s.CustomerID, &s.LocationID, &severity,
			&s.Online, &s.IssueCount, &s.WarningCount, &s.Summary, &s.CreatedAt); err != nil {
			return Snapshot{}, err
		}
		sev, err := health.ParseSeverity(severity)
		if err != nil {
			return Snapshot{}, err
		}
		s.Severity = sev
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	return out, nil
}
