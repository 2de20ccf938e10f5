// Package emr is the HTTP client for the clinic's appointment API. The API is
// the authoritative side of the calendar: every optimistic edit made by the
// scheduling session is persisted here, and its verdict drives reconciliation.
package emr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinicboard/internal/domain"
)

const defaultTimeout = 15 * time.Second

// APIError is a non-2xx response from the clinic API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("clinic api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("clinic api: status %d: %s", e.StatusCode, e.Message)
}

// Client calls the clinic appointment API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, e.g. for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(baseURL, apiKey string, log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log.With(slog.String("component", "emr.client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type roomRecord struct {
	ID         string `json:"id"`
	RoomName   string `json:"room_name"`
	RoomNumber string `json:"room_number"`
	Capacity   int    `json:"capacity"`
}

type appointmentRecord struct {
	ID         string    `json:"id,omitempty"`
	RoomID     string    `json:"room_id"`
	PatientID  string    `json:"patient_id,omitempty"`
	ProviderID string    `json:"provider_id,omitempty"`
	Title      string    `json:"title"`
	Notes      string    `json:"notes,omitempty"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Color      string    `json:"color,omitempty"`
}

func toRecord(appt domain.Appointment) appointmentRecord {
	rec := appointmentRecord{
		RoomID:     appt.ResourceID,
		PatientID:  appt.PatientID,
		ProviderID: appt.ProviderID,
		Title:      appt.Title,
		Notes:      appt.Notes,
		Status:     string(appt.Status),
		StartTime:  appt.StartTime.UTC(),
		EndTime:    appt.EndTime.UTC(),
		Color:      appt.Color,
	}
	if rec.Status == "" {
		rec.Status = string(domain.StatusScheduled)
	}
	// client-local placeholder ids never leave the process
	if !domain.IsPlaceholderID(appt.ID) {
		rec.ID = appt.ID
	}
	return rec
}

func (rec appointmentRecord) toDomain() domain.Appointment {
	return domain.Appointment{
		ID:         rec.ID,
		ResourceID: rec.RoomID,
		PatientID:  rec.PatientID,
		ProviderID: rec.ProviderID,
		Title:      rec.Title,
		Notes:      rec.Notes,
		Status:     domain.Status(rec.Status),
		StartTime:  rec.StartTime.UTC(),
		EndTime:    rec.EndTime.UTC(),
		Color:      rec.Color,
	}
}

// ListRooms fetches the bookable rooms for a location.
func (c *Client) ListRooms(ctx context.Context, locationID string) ([]domain.Resource, error) {
	var payload struct {
		Rooms []roomRecord `json:"rooms"`
	}
	path := fmt.Sprintf("/locations/%s/rooms", url.PathEscape(locationID))
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}

	rooms := make([]domain.Resource, 0, len(payload.Rooms))
	for _, r := range payload.Rooms {
		label := r.RoomName
		if label == "" {
			label = r.ID
		}
		rooms = append(rooms, domain.Resource{
			ID:         r.ID,
			Label:      label,
			RoomNumber: r.RoomNumber,
			Capacity:   r.Capacity,
		})
	}
	return rooms, nil
}

// ListAppointments fetches the appointments for a location inside the
// half-open window [from, to).
func (c *Client) ListAppointments(ctx context.Context, locationID string, from, to time.Time) ([]domain.Appointment, error) {
	var payload struct {
		Appointments []appointmentRecord `json:"appointments"`
	}
	q := url.Values{}
	q.Set("location", locationID)
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))
	if err := c.do(ctx, http.MethodGet, "/appointments?"+q.Encode(), nil, &payload); err != nil {
		return nil, err
	}

	out := make([]domain.Appointment, 0, len(payload.Appointments))
	for _, rec := range payload.Appointments {
		out = append(out, rec.toDomain())
	}
	return out, nil
}

// CreateAppointment persists a new booking and returns the server record,
// including the server-assigned id.
func (c *Client) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var rec appointmentRecord
	if err := c.do(ctx, http.MethodPost, "/appointments", toRecord(appt), &rec); err != nil {
		return domain.Appointment{}, err
	}
	return rec.toDomain(), nil
}

// UpdateAppointment persists a move/resize/edit of an existing booking.
func (c *Client) UpdateAppointment(ctx context.Context, id string, appt domain.Appointment) (domain.Appointment, error) {
	var rec appointmentRecord
	path := "/appointments/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, toRecord(appt), &rec); err != nil {
		return domain.Appointment{}, err
	}
	return rec.toDomain(), nil
}

// DeleteAppointment removes a booking. Only a 2xx response confirms the
// deletion.
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/appointments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &errBody) == nil {
			if errBody.Error != "" {
				apiErr.Message = errBody.Error
			} else {
				apiErr.Message = errBody.Message
			}
		}
		c.log.Warn("clinic api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
