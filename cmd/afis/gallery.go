package main

import (
	"sync"

	"github.com/google/uuid"

	"github.com/high-horse/sourceafis"
)

// Gallery keeps enrolled persons in memory in enrollment order.
type Gallery struct {
	mu      sync.RWMutex
	ids     []uuid.UUID
	persons map[uuid.UUID]*sourceafis.Person
	nextID  int
}

func NewGallery() *Gallery {
	return &Gallery{persons: make(map[uuid.UUID]*sourceafis.Person)}
}

// Enroll stores p under a new random ID and numbers it.
func (g *Gallery) Enroll(p *sourceafis.Person) uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := uuid.New()
	g.nextID++
	p.ID = g.nextID
	g.ids = append(g.ids, id)
	g.persons[id] = p
	return id
}

func (g *Gallery) Remove(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.persons[id]; !ok {
		return false
	}
	delete(g.persons, id)
	for i, v := range g.ids {
		if v == id {
			g.ids = append(g.ids[:i], g.ids[i+1:]...)
			break
		}
	}
	return true
}

func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ids)
}

// Snapshot returns the enrolled IDs and persons, index aligned.
func (g *Gallery) Snapshot() ([]uuid.UUID, []*sourceafis.Person) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]uuid.UUID, len(g.ids))
	persons := make([]*sourceafis.Person, len(g.ids))
	copy(ids, g.ids)
	for i, id := range ids {
		persons[i] = g.persons[id]
	}
	return ids, persons
}
