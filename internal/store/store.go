// Package store is the in-memory appointment store for a scheduling session.
// It mirrors the visible window of the clinic API's calendar plus any
// optimistic records awaiting confirmation. All mutation goes through Upsert,
// Remove and ReplaceID so per-room ordering stays intact; nothing outside the
// store mutates records in place.
package store

import (
	"sort"
	"sync"

	"clinicboard/internal/domain"
)

type Store struct {
	mu         sync.RWMutex
	byID       map[string]domain.Appointment
	byResource map[string][]domain.Appointment
}

func New() *Store {
	return &Store{
		byID:       make(map[string]domain.Appointment),
		byResource: make(map[string][]domain.Appointment),
	}
}

// Upsert inserts a new appointment or replaces the existing one with the same
// id. A replace that moves the appointment to another room re-indexes it.
func (s *Store) Upsert(appt domain.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(appt)
}

// Remove deletes the appointment with the given id. Removing an unknown id is
// a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
}

// ReplaceID atomically swaps the record stored under oldID for the confirmed
// record. No caller can observe a state with both records present or neither.
// Returns ErrNotFound if oldID is absent, ErrIDCollision if the confirmed id
// is already taken by a different record.
func (s *Store) ReplaceID(oldID string, confirmed domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[oldID]; !ok {
		return ErrNotFound
	}
	if confirmed.ID != oldID {
		if _, ok := s.byID[confirmed.ID]; ok {
			return ErrIDCollision
		}
	}

	s.removeLocked(oldID)
	s.upsertLocked(confirmed)
	return nil
}

// Get returns the appointment with the given id.
func (s *Store) Get(id string) (domain.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.byID[id]
	return appt, ok
}

// ForResource returns the appointments booked into one room, ordered by start
// time ascending.
func (s *Store) ForResource(resourceID string) []domain.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.byResource[resourceID]
	out := make([]domain.Appointment, len(rows))
	copy(out, rows)
	return out
}

// All returns every stored appointment ordered by start time, then room.
func (s *Store) All() []domain.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Appointment, 0, len(s.byID))
	for _, appt := range s.byID {
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		if out[i].ResourceID != out[j].ResourceID {
			return out[i].ResourceID < out[j].ResourceID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of stored appointments.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Reset discards all state and seeds the store from the given records, e.g.
// after a location switch or a day-window load.
func (s *Store) Reset(seed []domain.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]domain.Appointment, len(seed))
	s.byResource = make(map[string][]domain.Appointment)
	for _, appt := range seed {
		s.upsertLocked(appt)
	}
}

func (s *Store) upsertLocked(appt domain.Appointment) {
	if appt.ID == "" {
		return
	}
	if prev, ok := s.byID[appt.ID]; ok {
		s.dropFromResourceLocked(prev)
	}
	s.byID[appt.ID] = appt

	rows := s.byResource[appt.ResourceID]
	idx := sort.Search(len(rows), func(i int) bool {
		if !rows[i].StartTime.Equal(appt.StartTime) {
			return rows[i].StartTime.After(appt.StartTime)
		}
		return rows[i].ID >= appt.ID
	})
	rows = append(rows, domain.Appointment{})
	copy(rows[idx+1:], rows[idx:])
	rows[idx] = appt
	s.byResource[appt.ResourceID] = rows
}

func (s *Store) removeLocked(id string) {
	prev, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	s.dropFromResourceLocked(prev)
}

func (s *Store) dropFromResourceLocked(appt domain.Appointment) {
	rows := s.byResource[appt.ResourceID]
	for i := range rows {
		if rows[i].ID == appt.ID {
			rows = append(rows[:i], rows[i+1:]...)
			break
		}
	}
	if len(rows) == 0 {
		delete(s.byResource, appt.ResourceID)
		return
	}
	s.byResource[appt.ResourceID] = rows
}
