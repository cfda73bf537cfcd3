package credentials

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// MinPartnerIDLength is the shortest partner id accepted as plausible.
const MinPartnerIDLength = 8

var (
	ErrMissingPrincipal = errors.New("principal id is required")
	ErrRecordNotFound   = errors.New("credential record not found")
	ErrRecordReplaced   = errors.New("credential record was replaced during refresh")
)

type Endpoints struct {
	SSOEndpoint string `mapstructure:"sso_endpoint"`
	APIBase     string `mapstructure:"api_base"`
	ReportsBase string `mapstructure:"reports_base"`
}

type Record struct {
	PrincipalID string
	AuthHeader  string
	PartnerID   string
	SSOEndpoint string
	APIBase     string
	ReportsBase string
	AccessToken string
	TokenExpiry time.Time
	Generation  uint64
	UpdatedAt   time.Time
}

// Configured reports whether the record carries enough to attempt a token exchange.
func (r Record) Configured() bool {
	return strings.TrimSpace(r.AuthHeader) != "" &&
		len(strings.TrimSpace(r.PartnerID)) >= MinPartnerIDLength
}

func (r Record) TokenValid(now time.Time) bool {
	return r.AccessToken != "" && now.Before(r.TokenExpiry)
}

// Status is the secret-free view of a record.
type Status struct {
	PrincipalID string     `json:"principal_id"`
	Configured  bool       `json:"configured"`
	PartnerID   string     `json:"partner_id,omitempty"`
	TokenValid  bool       `json:"token_valid"`
	TokenExpiry *time.Time `json:"token_expiry,omitempty"`
	SSOEndpoint string     `json:"sso_endpoint"`
	APIBase     string     `json:"api_base"`
	ReportsBase string     `json:"reports_base"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (r Record) Status(now time.Time) Status {
	st := Status{
		PrincipalID: r.PrincipalID,
		Configured:  r.Configured(),
		PartnerID:   r.PartnerID,
		TokenValid:  r.TokenValid(now),
		SSOEndpoint: r.SSOEndpoint,
		APIBase:     r.APIBase,
		ReportsBase: r.ReportsBase,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.AccessToken != "" {
		expiry := r.TokenExpiry
		st.TokenExpiry = &expiry
	}
	return st
}

type Store struct {
	mu       sync.RWMutex
	records  map[string]*Record
	defaults Endpoints
	now      func() time.Time
}

func NewStore(defaults Endpoints) *Store {
	return &Store{
		records:  make(map[string]*Record),
		defaults: defaults,
		now:      time.Now,
	}
}

func (s *Store) Defaults() Endpoints {
	return s.defaults
}

// Put creates or wholesale replaces the record for rec.PrincipalID. Any cached
// token is discarded and the generation advances.
func (s *Store) Put(rec Record) (Record, error) {
	rec.PrincipalID = strings.TrimSpace(rec.PrincipalID)
	if rec.PrincipalID == "" {
		return Record{}, ErrMissingPrincipal
	}
	rec.AuthHeader = strings.TrimSpace(rec.AuthHeader)
	rec.PartnerID = strings.TrimSpace(rec.PartnerID)
	if rec.SSOEndpoint == "" {
		rec.SSOEndpoint = s.defaults.SSOEndpoint
	}
	if rec.APIBase == "" {
		rec.APIBase = s.defaults.APIBase
	}
	if rec.ReportsBase == "" {
		rec.ReportsBase = s.defaults.ReportsBase
	}
	rec.AccessToken = ""
	rec.TokenExpiry = time.Time{}
	rec.UpdatedAt = s.now()

	s.mu.Lock()
	if prev, ok := s.records[rec.PrincipalID]; ok {
		rec.Generation = prev.Generation + 1
	} else {
		rec.Generation = 1
	}
	stored := rec
	s.records[rec.PrincipalID] = &stored
	s.mu.Unlock()

	slog.Info("Credentials stored", "principal_id", rec.PrincipalID, "configured", rec.Configured())
	return rec, nil
}

func (s *Store) Get(principalID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[principalID]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// SetToken stores a refreshed token, provided the record has not been replaced
// since the refresh started.
func (s *Store) SetToken(principalID string, generation uint64, token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[principalID]
	if !ok {
		return ErrRecordNotFound
	}
	if rec.Generation != generation {
		return ErrRecordReplaced
	}
	rec.AccessToken = token
	rec.TokenExpiry = expiry
	return nil
}

// ClearToken drops the cached token only if it still equals token.
func (s *Store) ClearToken(principalID, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[principalID]
	if !ok || rec.AccessToken == "" || rec.AccessToken != token {
		return false
	}
	rec.AccessToken = ""
	rec.TokenExpiry = time.Time{}
	return true
}

func (s *Store) Delete(principalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[principalID]; !ok {
		return false
	}
	delete(s.records, principalID)
	slog.Info("Credentials removed", "principal_id", principalID)
	return true
}

func (s *Store) Principals() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
