package history

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type locationKey struct {
	principalID string
	customerID  string
	locationID  string
}

// MemoryStore keeps at most perLocation snapshots for each location.
type MemoryStore struct {
	mu          sync.RWMutex
	snapshots   map[locationKey][]Snapshot
	perLocation int
}

func NewMemoryStore(perLocation int) *MemoryStore {
	if perLocation <= 0 {
		perLocation = DefaultListLimit
	}
	return &MemoryStore{
		snapshots:   make(map[locationKey][]Snapshot),
		perLocation: perLocation,
	}
}

func (m *MemoryStore) Record(_ context.Context, s Snapshot) error {
	if err := s.validate(); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	key := locationKey{s.PrincipalID, s.CustomerID, s.LocationID}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := append(m.snapshots[key], s)
	if len(list) > m.perLocation {
		list = list[len(list)-m.perLocation:]
	}
	m.snapshots[key] = list
	return nil
}

func (m *MemoryStore) List(_ context.Context, principalID, customerID, locationID string, limit int) ([]Snapshot, error) {
	limit = normalizeLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.snapshots[locationKey{principalID, customerID, locationID}]
	out := make([]Snapshot, 0, min(limit, len(list)))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}
