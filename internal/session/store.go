// Package session keeps the filtered report state of each visitor between
// requests.
package session

import (
	"sync"
	"time"

	"relatorio-ocorrencias/internal/cascade"
	"relatorio-ocorrencias/internal/occurrences"
)

const DefaultIdleTimeout = 2 * time.Hour

// Page is what one visitor sees on the filtered report.
type Page struct {
	Cascade *cascade.Controller
	List    *occurrences.List

	lastSeen time.Time
}

type Store struct {
	fetcher cascade.Fetcher
	idle    time.Duration
	now     func() time.Time

	mu    sync.Mutex
	pages map[string]*Page
}

func NewStore(fetcher cascade.Fetcher, idle time.Duration) *Store {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Store{
		fetcher: fetcher,
		idle:    idle,
		now:     time.Now,
		pages:   make(map[string]*Page),
	}
}

// Get returns the page of sessionID. created is true when the session had
// no page yet and a fresh one was made.
func (s *Store) Get(sessionID string) (p *Page, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[sessionID]
	if !ok {
		p = s.newPage()
		s.pages[sessionID] = p
	}
	p.lastSeen = s.now()
	return p, !ok
}

// Reset replaces the page of sessionID with a fresh one, as a full page
// reload does.
func (s *Store) Reset(sessionID string) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.newPage()
	p.lastSeen = s.now()
	s.pages[sessionID] = p
	return p
}

// Sweep drops pages idle for longer than the store timeout and returns how
// many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.idle)
	removed := 0
	for id, p := range s.pages {
		if p.lastSeen.Before(cutoff) {
			delete(s.pages, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

func (s *Store) newPage() *Page {
	return &Page{
		Cascade: cascade.New(s.fetcher),
		List:    occurrences.NewList(),
	}
}
