package history

import (
	"context"
	"errors"
	"time"

	"github.com/EternisAI/panoptes/internal/health"
	"github.com/google/uuid"
)

const DefaultListLimit = 50

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Snapshot is a secret-free record of one health verdict for a location.
type Snapshot struct {
	ID           uuid.UUID       `json:"id"`
	PrincipalID  string          `json:"principal_id"`
	CustomerID   string          `json:"customer_id"`
	LocationID   string          `json:"location_id"`
	Severity     health.Severity `json:"severity"`
	Online       bool            `json:"online"`
	IssueCount   int             `json:"issue_count"`
	WarningCount int             `json:"warning_count"`
	Summary      string          `json:"summary"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewSnapshot builds a snapshot from a health report.
func NewSnapshot(principalID, customerID, locationID string, r health.HealthReport, at time.Time) Snapshot {
	return Snapshot{
		ID:           uuid.New(),
		PrincipalID:  principalID,
		CustomerID:   customerID,
		LocationID:   locationID,
		Severity:     r.Severity,
		Online:       r.Online,
		IssueCount:   len(r.Issues),
		WarningCount: len(r.Warnings),
		Summary:      r.Summary,
		CreatedAt:    at.UTC(),
	}
}

func (s Snapshot) validate() error {
	if s.PrincipalID == "" || s.CustomerID == "" || s.LocationID == "" {
		return ErrInvalidSnapshot
	}
	return nil
}

// Recorder persists snapshots. List returns the newest first.
type Recorder interface {
	Record(ctx context.Context, s Snapshot) error
	List(ctx context.Context, principalID, customerID, locationID string, limit int) ([]Snapshot, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultListLimit
	}
	return limit
}
