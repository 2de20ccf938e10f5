package session

import (
	"context"
	"errors"
	"log/slog"

	"clinicboard/internal/domain"
	"clinicboard/internal/store"
)

// TimeoutReason is surfaced instead of the raw error when a persist call
// never resolved: the true outcome is unknown, unlike an explicit rejection.
const TimeoutReason = "could not confirm, please retry"

// flight tracks the single outstanding persist call for one appointment id.
// A second gesture arriving while the flight is open is queued here, one slot
// deep, latest gesture wins.
type flight struct {
	gen    uint64
	op     string
	prior  *domain.Appointment
	queued *domain.Appointment
}

// BeginPlacement validates a placement gesture and, if accepted, inserts it
// into the store as a pending record and starts the persist call. The
// returned record carries the id to track the placement by: a client
// placeholder for a new booking, the existing server id for a move or
// resize.
//
// Validation failures are returned synchronously and leave the store
// untouched. The persist outcome arrives later as a Notice; a refused persist
// rolls the optimistic record back.
func (s *Session) BeginPlacement(ctx context.Context, candidate domain.Appointment) (domain.Appointment, error) {
	candidate = s.normalize(candidate)
	if !domain.ValidStatus(candidate.Status) {
		return domain.Appointment{}, ErrUnknownStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Validate(candidate, candidate.ID); err != nil {
		s.metrics.ObservePlacement(placementOutcome(err))
		return domain.Appointment{}, err
	}
	s.metrics.ObservePlacement("accepted")

	if candidate.ID == "" {
		candidate.ID = domain.NewPlaceholderID()
		candidate.Pending = true
		s.st.Upsert(candidate)
		s.launchLocked(opCreate, candidate, nil)
		return candidate, nil
	}

	prev, ok := s.st.Get(candidate.ID)
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	candidate.Pending = true
	s.st.Upsert(candidate)

	if fl, inflight := s.flights[candidate.ID]; inflight {
		// one outstanding persist per appointment; the newest gesture
		// replaces any previously queued one and is dispatched on
		// resolution
		queued := candidate
		fl.queued = &queued
		return candidate, nil
	}

	prior := prev
	prior.Pending = false
	s.launchLocked(opUpdate, candidate, &prior)
	return candidate, nil
}

// CancelPending removes a not-yet-confirmed booking immediately. The
// in-flight persist response, whenever it arrives, is discarded; a record the
// user canceled is never resurrected.
func (s *Session) CancelPending(id string) error {
	if !domain.IsPlaceholderID(id) {
		return ErrNotPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	appt, ok := s.st.Get(id)
	if !ok {
		return store.ErrNotFound
	}
	if !appt.Pending {
		return ErrNotPending
	}
	delete(s.flights, id)
	s.st.Remove(id)
	s.log.Info("pending placement canceled", slog.String("appointment_id", id))
	return nil
}

// Delete removes a confirmed appointment. The record leaves the store only
// once the clinic API confirms the deletion. A pending edit on the same id is
// superseded; its response will be discarded, and a refused delete rolls the
// record back to its last server-confirmed state.
func (s *Session) Delete(ctx context.Context, id string) error {
	if domain.IsPlaceholderID(id) {
		return s.CancelPending(id)
	}

	s.mu.Lock()
	if _, ok := s.st.Get(id); !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	fl := s.flights[id]
	delete(s.flights, id)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	if err := s.backend.DeleteAppointment(ctx, id); err != nil {
		s.mu.Lock()
		if fl != nil && fl.prior != nil {
			// a superseded edit was in flight and its response will be
			// discarded; show the last server-confirmed state again instead
			// of the unacknowledged edit
			s.st.Upsert(*fl.prior)
			s.metrics.ObserveRollback()
		}
		s.mu.Unlock()
		s.metrics.ObservePersist(opDelete, persistOutcome(err))
		s.hub.publish(Notice{
			Kind:          NoticeRejected,
			AppointmentID: id,
			Reason:        deleteReason(err),
		})
		return err
	}

	s.mu.Lock()
	appt, _ := s.st.Get(id)
	s.st.Remove(id)
	s.mu.Unlock()

	s.metrics.ObservePersist(opDelete, "success")
	s.hub.publish(Notice{Kind: NoticeDeleted, AppointmentID: id, ResourceID: appt.ResourceID})
	return nil
}

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

func (s *Session) launchLocked(op string, appt domain.Appointment, prior *domain.Appointment) {
	s.gen++
	fl := &flight{gen: s.gen, op: op, prior: prior}
	s.flights[appt.ID] = fl
	go s.persist(op, appt, fl.gen)
}

func (s *Session) persist(op string, appt domain.Appointment, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()

	var rec domain.Appointment
	var err error
	if op == opCreate {
		rec, err = s.backend.CreateAppointment(ctx, appt)
	} else {
		rec, err = s.backend.UpdateAppointment(ctx, appt.ID, appt)
	}
	s.resolve(op, appt, gen, rec, err)
}

// resolve applies a persist response to the store. Responses for a handle
// that has been superseded or canceled are discarded, so responses always
// land in the order the calls were issued.
func (s *Session) resolve(op string, appt domain.Appointment, gen uint64, rec domain.Appointment, err error) {
	s.mu.Lock()

	fl, ok := s.flights[appt.ID]
	if !ok || fl.gen != gen {
		s.mu.Unlock()
		s.log.Info("discarding stale persist response",
			slog.String("appointment_id", appt.ID),
			slog.String("op", op),
			slog.Bool("accepted", err == nil),
		)
		return
	}
	delete(s.flights, appt.ID)

	if err != nil {
		if fl.prior != nil {
			s.st.Upsert(*fl.prior)
		} else {
			s.st.Remove(appt.ID)
		}
		s.metrics.ObserveRollback()
		s.metrics.ObservePersist(op, persistOutcome(err))

		kind := NoticeRejected
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			kind = NoticeTimeout
			reason = TimeoutReason
		}

		// the user's latest gesture was queued behind the failed persist; it
		// still applies to the rolled-back record if it validates, otherwise
		// it gets its own rejection instead of vanishing silently
		var queuedNotice *Notice
		if fl.queued != nil {
			queued := *fl.queued
			if fl.prior != nil && s.engine.Validate(queued, queued.ID) == nil {
				queued.Pending = true
				s.st.Upsert(queued)
				s.launchLocked(opUpdate, queued, fl.prior)
			} else {
				queuedNotice = &Notice{
					Kind:          NoticeRejected,
					AppointmentID: queued.ID,
					ResourceID:    queued.ResourceID,
					Reason:        reason,
				}
			}
		}
		s.mu.Unlock()

		s.log.Warn("persist refused, optimistic record rolled back",
			slog.String("appointment_id", appt.ID),
			slog.String("op", op),
			slog.Any("err", err),
		)
		s.hub.publish(Notice{
			Kind:          kind,
			AppointmentID: appt.ID,
			ResourceID:    appt.ResourceID,
			Reason:        reason,
		})
		if queuedNotice != nil {
			s.hub.publish(*queuedNotice)
		}
		return
	}

	rec.Pending = false
	if rec.ID == "" {
		rec.ID = appt.ID
	}
	if replaceErr := s.st.ReplaceID(appt.ID, rec); replaceErr != nil {
		// the confirmed id is already taken or the record vanished; roll the
		// optimistic record back rather than claim a confirmation the store
		// never applied
		if fl.prior != nil {
			s.st.Upsert(*fl.prior)
		} else {
			s.st.Remove(appt.ID)
		}
		s.metrics.ObserveRollback()
		s.mu.Unlock()

		s.log.Warn("confirmed record could not be swapped in",
			slog.String("appointment_id", appt.ID),
			slog.String("confirmed_id", rec.ID),
			slog.Any("err", replaceErr),
		)
		s.hub.publish(Notice{
			Kind:          NoticeRejected,
			AppointmentID: appt.ID,
			ResourceID:    rec.ResourceID,
			Reason:        replaceErr.Error(),
		})
		return
	}
	s.metrics.ObservePersist(op, "success")

	if fl.queued != nil {
		next := *fl.queued
		next.ID = rec.ID
		next.Pending = true
		prior := rec
		s.st.Upsert(next)
		s.launchLocked(opUpdate, next, &prior)
	}
	s.mu.Unlock()

	s.hub.publish(Notice{
		Kind:          NoticeConfirmed,
		AppointmentID: rec.ID,
		ResourceID:    rec.ResourceID,
	})
}

func persistOutcome(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "rejected"
}

func deleteReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutReason
	}
	return err.Error()
}
