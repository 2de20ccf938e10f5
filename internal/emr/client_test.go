package emr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicboard/internal/domain"
)

func TestListRooms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/locations/loc-1/rooms", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"rooms": []map[string]any{
				{"id": "1 XRAYS", "room_name": "1 XRAYS", "room_number": "0"},
				{"id": "PR01", "room_name": "PR01", "room_number": "1"},
				{"id": "PR02", "room_number": "2"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", nil)
	rooms, err := c.ListRooms(context.Background(), "loc-1")
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "1 XRAYS", rooms[0].ID)
	assert.Equal(t, "PR01", rooms[1].Label)
	// label falls back to the id when the API omits room_name
	assert.Equal(t, "PR02", rooms[2].Label)
}

func TestListAppointmentsWindowQuery(t *testing.T) {
	from := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "loc-1", q.Get("location"))
		assert.Equal(t, from.Format(time.RFC3339), q.Get("from"))
		assert.Equal(t, to.Format(time.RFC3339), q.Get("to"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"appointments": []map[string]any{
				{
					"id":         "srv-1",
					"room_id":    "PR01",
					"title":      "PA Lydia Cori",
					"status":     "confirmed",
					"start_time": "2026-03-10T09:00:00Z",
					"end_time":   "2026-03-10T09:30:00Z",
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	appts, err := c.ListAppointments(context.Background(), "loc-1", from, to)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "srv-1", appts[0].ID)
	assert.Equal(t, "PR01", appts[0].ResourceID)
	assert.Equal(t, domain.StatusConfirmed, appts[0].Status)
}

func TestCreateAppointmentStripsPlaceholderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var rec map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		_, hasID := rec["id"]
		assert.False(t, hasID, "placeholder id must not be sent upstream")
		assert.Equal(t, "scheduled", rec["status"])

		rec["id"] = "srv-7"
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	created, err := c.CreateAppointment(context.Background(), domain.Appointment{
		ID:         domain.NewPlaceholderID(),
		ResourceID: "PR01",
		Title:      "Neil Gupta",
		StartTime:  time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-7", created.ID)
	assert.Equal(t, domain.StatusScheduled, created.Status)
}

func TestUpdateAppointment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/appointments/srv-7", r.URL.Path)
		var rec appointmentRecord
		require.NoError(t, json.NewDecoder(r.Body).Decode(&rec))
		_ = json.NewEncoder(w).Encode(rec)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	appt := domain.Appointment{
		ID:         "srv-7",
		ResourceID: "PR02",
		Title:      "Neil Gupta",
		Status:     domain.StatusConfirmed,
		StartTime:  time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC),
	}
	updated, err := c.UpdateAppointment(context.Background(), "srv-7", appt)
	require.NoError(t, err)
	assert.Equal(t, "PR02", updated.ResourceID)
}

func TestNonSuccessBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "slot already booked"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.CreateAppointment(context.Background(), domain.Appointment{ResourceID: "PR01"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "already booked")
}

func TestDeleteAppointment(t *testing.T) {
	deleted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/appointments/srv-7", r.URL.Path)
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	require.NoError(t, c.DeleteAppointment(context.Background(), "srv-7"))
	assert.True(t, deleted)

	require.NoError(t, c.DeleteAppointment(context.Background(), "srv-7"))
}
