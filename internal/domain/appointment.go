package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle label the clinic attaches to an appointment.
// The set mirrors what the dashboard renders as badges.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusVoicemail Status = "voice mail"
)

// ValidStatus reports whether s is one of the known status labels.
func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCanceled, StatusVoicemail:
		return true
	}
	return false
}

// PlaceholderPrefix marks client-local appointment ids that have not been
// acknowledged by the clinic API yet. Server-assigned ids never carry it, so
// the two id spaces cannot collide.
const PlaceholderPrefix = "pending-"

// NewPlaceholderID returns a fresh client-local id for an optimistic record.
func NewPlaceholderID() string {
	return PlaceholderPrefix + uuid.NewString()
}

// IsPlaceholderID reports whether id is client-local rather than
// server-assigned.
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// Appointment is a booking of one room for one time interval. The interval is
// half-open: [StartTime, EndTime).
type Appointment struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	PatientID  string    `json:"patient_id,omitempty"`
	ProviderID string    `json:"provider_id,omitempty"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes,omitempty"`
	Status     Status    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Color      string    `json:"color,omitempty"`

	// Pending is true while the record is optimistic, before the clinic API
	// has acknowledged it.
	Pending bool `json:"pending"`
}

// Blocking reports whether the appointment occupies its room for overlap
// purposes. Canceled appointments stay visible but do not block the slot.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCanceled
}

// Overlaps reports whether the two appointments share any open sub-interval
// of time. Touching endpoints do not overlap.
func (a Appointment) Overlaps(b Appointment) bool {
	return IntervalsOverlap(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
}
