package services

import (
	"sort"
	"sync"

	"rechnungen/internal/core"
)

// Session holds per-process UI state: the currently selected invoice and the
// category name to id map used to resolve form input.
type Session struct {
	mu          sync.RWMutex
	selected    int64
	hasSelected bool
	categories  map[string]int64
}

func NewSession() *Session {
	return &Session{categories: map[string]int64{}}
}

// Select marks id as the current invoice.
func (s *Session) Select(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
	s.hasSelected = true
}

// Selected returns the current invoice id, if any.
func (s *Session) Selected() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.hasSelected
}

// ClearSelection forgets the current invoice. Called on every list reload.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = 0
	s.hasSelected = false
}

// SetCategories replaces the name to id map.
func (s *Session) SetCategories(cats []core.Category) {
	m := make(map[string]int64, len(cats))
	for _, c := range cats {
		m[c.Name] = c.ID
	}
	s.mu.Lock()
	s.categories = m
	s.mu.Unlock()
}

// CategoryID resolves a category name.
func (s *Session) CategoryID(name string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.categories[name]
	return id, ok
}

// CategoryNames returns the known category names in sorted order.
func (s *Session) CategoryNames() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.categories))
	for n := range s.categories {
		names = append(names, n)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}
