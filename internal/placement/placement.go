// Package placement decides whether a proposed booking may occupy a room
// slot. The check is advisory: it gives the dashboard immediate feedback and
// keeps obviously invalid records out of the optimistic store, but the clinic
// API has the final word and a race with another client can still be refused
// server-side.
package placement

import (
	"errors"
	"fmt"
	"time"

	"clinicboard/internal/domain"
)

// ErrUnknownResource rejects a candidate whose room id is not part of the
// active location.
var ErrUnknownResource = errors.New("unknown resource")

// InvalidIntervalError rejects a candidate whose end does not come strictly
// after its start.
type InvalidIntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval: end %s is not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

// OverlapError rejects a candidate that would double-book a room. ConflictID
// names the appointment already holding the slot so the caller can surface it.
type OverlapError struct {
	ConflictID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlaps appointment %s", e.ConflictID)
}

// ResourceSet is the registry surface the engine needs.
type ResourceSet interface {
	Has(id string) bool
}

// Appointments is the store surface the engine needs. ForResource must return
// rows ordered by start time ascending.
type Appointments interface {
	ForResource(resourceID string) []domain.Appointment
}

type Engine struct {
	resources ResourceSet
	appts     Appointments
}

func New(resources ResourceSet, appts Appointments) *Engine {
	return &Engine{resources: resources, appts: appts}
}

// Validate accepts or rejects a candidate booking. A nil return is an accept.
// excludingID lets a move or resize re-validate against all other
// appointments on the room, ignoring the appointment being edited; pass ""
// for a fresh placement. Canceled appointments never conflict.
func (e *Engine) Validate(candidate domain.Appointment, excludingID string) error {
	if !e.resources.Has(candidate.ResourceID) {
		return ErrUnknownResource
	}
	if !candidate.EndTime.After(candidate.StartTime) {
		return &InvalidIntervalError{Start: candidate.StartTime, End: candidate.EndTime}
	}

	for _, existing := range e.appts.ForResource(candidate.ResourceID) {
		if !existing.StartTime.Before(candidate.EndTime) {
			// rows are start-ordered; nothing later can overlap
			break
		}
		if existing.ID == excludingID || existing.ID == candidate.ID {
			continue
		}
		if !existing.Blocking() {
			continue
		}
		if existing.Overlaps(candidate) {
			return &OverlapError{ConflictID: existing.ID}
		}
	}

	return nil
}
