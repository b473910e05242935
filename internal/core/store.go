package core

import (
	"sort"
	"sync"
	"time"
)

// DefaultStoreCapacity is used when the configured capacity is not positive.
const DefaultStoreCapacity = 32

// ReportStore keeps recent analyses in memory so the server can serve them
// after the upload request returns. Nothing is written to disk: when the
// store is full the oldest analysis is evicted, and entries older than ttl
// are treated as gone.
type ReportStore struct {
	mu       sync.RWMutex
	capacity int
	ttl      time.Duration // 0 keeps entries until evicted
	items    map[string]*Analysis
	order    []string // insertion order, oldest first
	now      func() time.Time
}

// NewReportStore creates a store holding at most capacity analyses.
func NewReportStore(capacity int, ttl time.Duration) *ReportStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	return &ReportStore{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*Analysis),
		now:      time.Now,
	}
}

// Put stores a, evicting the oldest entries if the store is full.
func (s *ReportStore) Put(a *Analysis) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.items[a.ID] = a

	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
}

// Get returns the analysis with id, or ErrReportNotFound.
func (s *ReportStore) Get(id string) (*Analysis, error) {
	s.mu.RLock()
	a, ok := s.items[id]
	s.mu.RUnlock()

	if !ok || s.expired(a) {
		return nil, ErrReportNotFound
	}
	return a, nil
}

// List returns summaries of stored analyses, newest first.
func (s *ReportStore) List() []AnalysisSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AnalysisSummary, 0, len(s.items))
	for _, a := range s.items {
		if !s.expired(a) {
			out = append(out, a.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of stored analyses, including expired ones not yet evicted.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep removes expired analyses and returns how many were dropped.
func (s *ReportStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	dropped := 0
	for _, id := range s.order {
		if s.expired(s.items[id]) {
			delete(s.items, id)
			dropped++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return dropped
}

func (s *ReportStore) expired(a *Analysis) bool {
	return s.ttl > 0 && s.now().Sub(a.CreatedAt) > s.ttl
}
