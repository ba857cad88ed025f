// Package consolidate merges abilities revealed on many pages into one record
// per title.
package consolidate

import (
	"sync"

	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Store holds one AbilityRecord per title. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	byKey map[string]*types.AbilityRecord
	order []string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{byKey: make(map[string]*types.AbilityRecord)}
}

// RecordAbility merges one sighting of an ability. The first sighting of a
// title fixes its text, kind and cost; later sightings only add their entity
// reference, and only when that (name, url) pair is not already listed.
// It reports whether the title was new.
func (s *Store) RecordAbility(title, text string, kind types.AbilityKind, cost string, ref types.EntityRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byKey[title]
	if !ok {
		s.byKey[title] = &types.AbilityRecord{
			Title:    title,
			Text:     text,
			Kind:     kind,
			Cost:     cost,
			Entities: []types.EntityRef{ref},
		}
		s.order = append(s.order, title)
		return true
	}

	for _, e := range rec.Entities {
		if e.Name == ref.Name && e.URL == ref.URL {
			return false
		}
	}
	rec.Entities = append(rec.Entities, ref)
	return false
}

// Abilities returns a snapshot of every record in first-seen order.
func (s *Store) Abilities() []*types.AbilityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*types.AbilityRecord, 0, len(s.order))
	for _, title := range s.order {
		rec := *s.byKey[title]
		rec.Entities = append([]types.EntityRef(nil), rec.Entities...)
		out = append(out, &rec)
	}
	return out
}

// Len returns the number of distinct titles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
