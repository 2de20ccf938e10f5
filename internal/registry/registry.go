// Package registry holds the set of bookable rooms for the active clinic
// location. The set is replaced wholesale whenever the active location
// changes; nothing mutates individual entries in place.
package registry

import (
	"sync"

	"clinicboard/internal/domain"
)

type Registry struct {
	mu         sync.RWMutex
	locationID string
	order      []domain.Resource
	byID       map[string]domain.Resource
}

func New() *Registry {
	return &Registry{byID: make(map[string]domain.Resource)}
}

// ReplaceAll swaps in the resource set for a location, discarding the prior
// set. Duplicate ids keep the first occurrence.
func (r *Registry) ReplaceAll(locationID string, resources []domain.Resource) {
	order := make([]domain.Resource, 0, len(resources))
	byID := make(map[string]domain.Resource, len(resources))
	for _, res := range resources {
		if res.ID == "" {
			continue
		}
		if _, ok := byID[res.ID]; ok {
			continue
		}
		byID[res.ID] = res
		order = append(order, res)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.locationID = locationID
	r.order = order
	r.byID = byID
}

// List returns the current resources in load order. An empty slice means no
// location has been loaded yet; that is not an error.
func (r *Registry) List() []domain.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Resource, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether a resource id belongs to the active location.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byID[id]
	return ok
}

// Get returns the resource for id, if present.
func (r *Registry) Get(id string) (domain.Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.byID[id]
	return res, ok
}

// LocationID returns the id of the location whose rooms are loaded, or ""
// before the first load.
func (r *Registry) LocationID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locationID
}
