// Package override manages versioned alternate dataset bundles that can
// replace the baked-in seed data at runtime.
package override

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

// Record is one persisted dataset override. Records are never mutated in
// place except for the IsActive flag.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	JSONText    string    `json:"jsonText"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
}

// Summary is the listing view of a record, without the bundle payload.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	CreatedBy   string    `json:"createdBy"`
}

// Store persists override records. At most one record may be active at
// any observable instant; Activate must apply "deactivate all, then
// activate one" atomically.
type Store interface {
	Create(rec Record) (string, error)
	Get(id string) (*Record, error)
	List() ([]Summary, error)
	Activate(id string) error
	Deactivate(id string) error
	Delete(id string) error
	Active() (*Record, bool, error)
}

// MemoryStore is an in-memory Store implementation. The single mutex
// makes Activate trivially atomic.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryStore creates an empty in-memory override store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Create(rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = ksuid.New().String()
	rec.IsActive = false
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.records[rec.ID] = &rec
	return rec.ID, nil
}

func (s *MemoryStore) Get(id string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("override not found: %s", id)
	}
	copied := *rec
	return &copied, nil
}

func (s *MemoryStore) List() ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries := make([]Summary, 0, len(s.records))
	for _, rec := range s.records {
		summaries = append(summaries, Summary{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			IsActive:    rec.IsActive,
			CreatedAt:   rec.CreatedAt,
			CreatedBy:   rec.CreatedBy,
		})
	}
	// Newest first; KSUIDs sort by creation time, breaking ties.
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *MemoryStore) Activate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.records[id]
	if !ok {
		return fmt.Errorf("override not found: %s", id)
	}
	for _, rec := range s.records {
		rec.IsActive = false
	}
	target.IsActive = true
	return nil
}

func (s *MemoryStore) Deactivate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("override not found: %s", id)
	}
	rec.IsActive = false
	return nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("override not found: %s", id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Active() (*Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.IsActive {
			copied := *rec
			return &copied, true, nil
		}
	}
	return nil, false, nil
}
