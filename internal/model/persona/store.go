package persona

import "strings"

// Store exposes persona retrieval for HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the predefined persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// ListKind returns the personas of one kind.
func (s *MemoryStore) ListKind(kind Kind) []Persona {
	out := make([]Persona, 0, len(s.items))
	for _, item := range s.items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Resolve finds a persona by identifier or, failing that, by display name
// (case-insensitive).
func Resolve(store Store, ref string) (Persona, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || store == nil {
		return Persona{}, false
	}
	if p, ok := store.FindByID(ref); ok {
		return p, true
	}
	for _, item := range store.List() {
		if strings.EqualFold(item.Name, ref) {
			return item, true
		}
	}
	return Persona{}, false
}

// Comedians returns the display names of every persona flagged as a comedian.
func Comedians(store Store) []string {
	var names []string
	for _, item := range store.List() {
		if item.Comedian {
			names = append(names, item.Name)
		}
	}
	return names
}
