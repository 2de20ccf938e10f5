// Package rest exposes the scheduling session to the dashboard UI: visible
// appointments, placement gestures (create, move, resize), deletions, the
// room list and a websocket stream of persist notices.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clinicboard/internal/domain"
	"clinicboard/internal/placement"
	"clinicboard/internal/session"
	"clinicboard/internal/store"
)

type Handler struct {
	session *session.Session
	log     *slog.Logger
}

func NewHandler(s *session.Session, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		session: s,
		log:     log.With(slog.String("component", "rest")),
	}
}

// NewRouter assembles the dashboard-facing API.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/rooms", h.ListRooms)
		r.Post("/location", h.SwitchLocation)
		r.Post("/window", h.LoadWindow)
		r.Get("/appointments", h.ListAppointments)
		r.Post("/appointments", h.CreatePlacement)
		r.Post("/appointments/validate", h.ValidatePlacement)
		r.Put("/appointments/{id}", h.UpdatePlacement)
		r.Delete("/appointments/{id}", h.DeleteAppointment)
		r.Get("/notices/ws", h.Notices)
	})

	return r
}

type placementRequest struct {
	ResourceID string    `json:"resource_id"`
	PatientID  string    `json:"patient_id,omitempty"`
	ProviderID string    `json:"provider_id,omitempty"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Color      string    `json:"color,omitempty"`
}

func (req placementRequest) toCandidate() domain.Appointment {
	return domain.Appointment{
		ResourceID: req.ResourceID,
		PatientID:  req.PatientID,
		ProviderID: req.ProviderID,
		Title:      req.Title,
		Notes:      req.Notes,
		Status:     domain.Status(req.Status),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Color:      req.Color,
	}
}

type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	ConflictID string `json:"conflict_id,omitempty"`
}

func (h *Handler) ListRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.session.Rooms()})
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	resourceID := r.URL.Query().Get("resource_id")
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": h.session.Appointments(resourceID),
	})
}

func (h *Handler) CreatePlacement(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	pending, err := h.session.BeginPlacement(r.Context(), req.toCandidate())
	if err != nil {
		h.writePlacementError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pending)
}

type validatePlacementRequest struct {
	placementRequest
	// ExcludingID lets a move/resize preview ignore the appointment being
	// edited, as BeginPlacement would.
	ExcludingID string `json:"excluding_id,omitempty"`
}

// ValidatePlacement runs the advisory placement check without touching the
// store, for immediate feedback while the user drags or fills the form.
func (h *Handler) ValidatePlacement(w http.ResponseWriter, r *http.Request) {
	var req validatePlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	if err := h.session.Validate(req.toCandidate(), req.ExcludingID); err != nil {
		h.writePlacementError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (h *Handler) UpdatePlacement(w http.ResponseWriter, r *http.Request) {
	var req placementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}

	candidate := req.toCandidate()
	candidate.ID = chi.URLParam(r, "id")

	pending, err := h.session.BeginPlacement(r.Context(), candidate)
	if err != nil {
		h.writePlacementError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pending)
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.session.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "no such appointment"})
		case errors.Is(err, session.ErrNotPending):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "not_pending", Message: "appointment is already confirmed"})
		default:
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "persist_rejected", Message: err.Error()})
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type switchLocationRequest struct {
	LocationID string `json:"location_id"`
	Day        string `json:"day"` // YYYY-MM-DD, defaults to today
}

func (h *Handler) SwitchLocation(w http.ResponseWriter, r *http.Request) {
	var req switchLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LocationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "location_id is required"})
		return
	}

	day := time.Now().UTC()
	if req.Day != "" {
		parsed, err := time.Parse("2006-01-02", req.Day)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "day must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	if err := h.session.SwitchLocation(r.Context(), req.LocationID, day); err != nil {
		h.log.Error("location switch failed", slog.String("location_id", req.LocationID), slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream_unavailable", Message: "could not load location"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loadWindowRequest struct {
	Day string `json:"day"` // YYYY-MM-DD
}

// LoadWindow reseeds the visible appointments for another day at the current
// location, e.g. when the user navigates the day picker.
func (h *Handler) LoadWindow(w http.ResponseWriter, r *http.Request) {
	var req loadWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Day == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "day is required"})
		return
	}
	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "day must be YYYY-MM-DD"})
		return
	}

	from := day.UTC()
	if err := h.session.LoadWindow(r.Context(), from, from.Add(24*time.Hour)); err != nil {
		h.log.Error("window load failed", slog.String("day", req.Day), slog.Any("err", err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "upstream_unavailable", Message: "could not load appointments"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writePlacementError maps local validation failures to 422 so the dashboard
// can show the reason inline, mirroring how placement rejections identify the
// conflicting booking.
func (h *Handler) writePlacementError(w http.ResponseWriter, err error) {
	var overlap *placement.OverlapError
	var invalid *placement.InvalidIntervalError
	switch {
	case errors.Is(err, placement.ErrUnknownResource):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "unknown_resource",
			Message: "that room does not exist at this location",
		})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "invalid_interval",
			Message: "the appointment must end after it starts",
		})
	case errors.As(err, &overlap):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:      "overlap",
			Message:    "that slot is already booked",
			ConflictID: overlap.ConflictID,
		})
	case errors.Is(err, session.ErrUnknownStatus):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "unknown_status",
			Message: "unrecognized appointment status",
		})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found", Message: "no such appointment"})
	default:
		h.log.Error("placement failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal", Message: "placement failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
