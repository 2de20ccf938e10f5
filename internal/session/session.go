// Package session owns the scheduling state for one clinic location: the room
// registry, the in-memory appointment store, the placement engine and the
// reconciliation of optimistic edits against the clinic API. All components
// are held by the session and passed explicitly; nothing shares state through
// package globals.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"clinicboard/internal/domain"
	"clinicboard/internal/observability/metrics"
	"clinicboard/internal/placement"
	"clinicboard/internal/registry"
	"clinicboard/internal/store"
)

var (
	// ErrUnknownStatus rejects a candidate carrying a status label outside
	// the known set.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrNotPending is returned when CancelPending targets a record that is
	// already confirmed.
	ErrNotPending = errors.New("appointment is not pending")
)

// Backend is the authoritative clinic API surface the session persists
// against.
type Backend interface {
	ListRooms(ctx context.Context, locationID string) ([]domain.Resource, error)
	ListAppointments(ctx context.Context, locationID string, from, to time.Time) ([]domain.Appointment, error)
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, appt domain.Appointment) (domain.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}

// Config tunes a session.
type Config struct {
	// PersistTimeout bounds every persist call; an unresolved call is rolled
	// back as a timeout so no appointment stays pending forever.
	PersistTimeout time.Duration
	// SlotGranularity snaps candidate intervals to the dashboard's booking
	// grid. Zero disables snapping.
	SlotGranularity time.Duration
}

// Session is safe for concurrent use; all store and registry mutation is
// funneled through it.
type Session struct {
	backend Backend
	reg     *registry.Registry
	st      *store.Store
	engine  *placement.Engine
	log     *slog.Logger
	metrics *metrics.SchedulingMetrics
	hub     *noticeHub

	persistTimeout  time.Duration
	slotGranularity time.Duration

	mu      sync.Mutex
	flights map[string]*flight
	gen     uint64
}

func New(backend Backend, log *slog.Logger, m *metrics.SchedulingMetrics, cfg Config) *Session {
	if log == nil {
		log = slog.Default()
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 10 * time.Second
	}
	reg := registry.New()
	st := store.New()
	return &Session{
		backend:         backend,
		reg:             reg,
		st:              st,
		engine:          placement.New(reg, st),
		log:             log.With(slog.String("component", "session")),
		metrics:         m,
		hub:             newNoticeHub(),
		persistTimeout:  cfg.PersistTimeout,
		slotGranularity: cfg.SlotGranularity,
		flights:         make(map[string]*flight),
	}
}

// SwitchLocation loads the rooms of a location wholesale and reseeds the
// store with the appointments of the given day. Any in-flight persists are
// orphaned; their responses will be discarded.
func (s *Session) SwitchLocation(ctx context.Context, locationID string, day time.Time) error {
	rooms, err := s.backend.ListRooms(ctx, locationID)
	if err != nil {
		return err
	}
	from := day.UTC().Truncate(24 * time.Hour)
	appts, err := s.backend.ListAppointments(ctx, locationID, from, from.Add(24*time.Hour))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reg.ReplaceAll(locationID, rooms)
	s.st.Reset(appts)
	s.flights = make(map[string]*flight)
	s.log.Info("location loaded",
		slog.String("location_id", locationID),
		slog.Int("rooms", len(rooms)),
		slog.Int("appointments", len(appts)),
	)
	return nil
}

// LoadWindow reseeds the store with a new visible window for the current
// location, e.g. when the user navigates to another day.
func (s *Session) LoadWindow(ctx context.Context, from, to time.Time) error {
	locationID := s.reg.LocationID()
	appts, err := s.backend.ListAppointments(ctx, locationID, from, to)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Reset(appts)
	s.flights = make(map[string]*flight)
	return nil
}

// Rooms returns the current location's resources.
func (s *Session) Rooms() []domain.Resource {
	return s.reg.List()
}

// Appointments returns the visible appointments, optionally filtered to one
// room. Pending records are included, flagged as such.
func (s *Session) Appointments(resourceID string) []domain.Appointment {
	if resourceID == "" {
		return s.st.All()
	}
	return s.st.ForResource(resourceID)
}

// Get returns a single appointment by id.
func (s *Session) Get(id string) (domain.Appointment, bool) {
	return s.st.Get(id)
}

// Notices returns a subscription to persist-outcome notices plus a cancel
// func releasing it.
func (s *Session) Notices() (<-chan Notice, func()) {
	return s.hub.subscribe()
}

// Validate runs the advisory placement check without touching the store,
// for immediate form feedback. excludingID behaves as in the placement
// engine.
func (s *Session) Validate(candidate domain.Appointment, excludingID string) error {
	candidate = s.normalize(candidate)
	err := s.engine.Validate(candidate, excludingID)
	s.metrics.ObservePlacement(placementOutcome(err))
	return err
}

func (s *Session) normalize(candidate domain.Appointment) domain.Appointment {
	candidate.StartTime = domain.SnapToGrid(candidate.StartTime, s.slotGranularity)
	candidate.EndTime = domain.SnapToGrid(candidate.EndTime, s.slotGranularity)
	if candidate.Status == "" {
		candidate.Status = domain.StatusScheduled
	}
	return candidate
}

func placementOutcome(err error) string {
	if err == nil {
		return "accepted"
	}
	var overlap *placement.OverlapError
	var invalid *placement.InvalidIntervalError
	switch {
	case errors.Is(err, placement.ErrUnknownResource):
		return "unknown_resource"
	case errors.As(err, &invalid):
		return "invalid_interval"
	case errors.As(err, &overlap):
		return "overlap"
	}
	return "rejected"
}
