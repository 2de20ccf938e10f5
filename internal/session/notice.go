package session

import (
	"sync"
	"time"
)

// NoticeKind classifies what the dashboard should tell the user about a
// persist outcome.
type NoticeKind string

const (
	// NoticeConfirmed: the clinic API accepted the booking.
	NoticeConfirmed NoticeKind = "placement_confirmed"
	// NoticeRejected: the clinic API refused the booking; the optimistic
	// record was rolled back.
	NoticeRejected NoticeKind = "placement_rejected"
	// NoticeTimeout: the persist call never resolved; rolled back like a
	// rejection but the true outcome is unknown.
	NoticeTimeout NoticeKind = "placement_timeout"
	// NoticeDeleted: the clinic API confirmed a deletion.
	NoticeDeleted NoticeKind = "appointment_deleted"
)

// Notice is a user-facing event pushed to the dashboard, e.g. rendered as a
// toast. Local validation failures are returned synchronously and never
// become notices.
type Notice struct {
	Kind          NoticeKind `json:"kind"`
	AppointmentID string     `json:"appointment_id"`
	ResourceID    string     `json:"resource_id,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	At            time.Time  `json:"at"`
}

type noticeHub struct {
	mu   sync.Mutex
	subs map[int]chan Notice
	next int
}

func newNoticeHub() *noticeHub {
	return &noticeHub{subs: make(map[int]chan Notice)}
}

// subscribe registers a listener. The returned cancel func must be called to
// release the channel.
func (h *noticeHub) subscribe() (<-chan Notice, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	ch := make(chan Notice, 16)
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

// publish fans the notice out to all listeners. Slow listeners drop notices
// rather than block scheduling.
func (h *noticeHub) publish(n Notice) {
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
