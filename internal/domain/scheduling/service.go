package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinic/intake/internal/platform/fault"
	"github.com/clinic/intake/internal/platform/notification"
)

// PatientDirectory resolves patient contact data for bookings and
// notifications.
type PatientDirectory interface {
	Contact(ctx context.Context, patientID uuid.UUID) (name string, email *string, err error)
}

// Notifier sends templated messages. Satisfied by
// notification.NotificationManager; a nil Notifier disables delivery.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	availabilities AvailabilityRepository
	sessions       SessionRepository
	patients       PatientDirectory
	notifier       Notifier
}

func NewService(availabilities AvailabilityRepository, sessions SessionRepository, patients PatientDirectory, notifier Notifier) *Service {
	return &Service{availabilities: availabilities, sessions: sessions, patients: patients, notifier: notifier}
}

// -- Availability --

func (s *Service) CreateAvailability(ctx context.Context, a *Availability) error {
	if a.ProfessionalID == uuid.Nil {
		return fault.Invalid("professional id is required")
	}
	if a.Weekday < 0 || a.Weekday > 6 {
		return fault.Invalid("weekday must be between 0 and 6")
	}
	if a.StartMinute < 0 || a.EndMinute > 24*60 || a.StartMinute >= a.EndMinute {
		return fault.Invalid("invalid time window")
	}
	existing, err := s.availabilities.ListByProfessional(ctx, a.ProfessionalID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Weekday == a.Weekday && a.StartMinute < e.EndMinute && a.EndMinute > e.StartMinute {
			return fault.Conflict("window overlaps an existing availability")
		}
	}
	return s.availabilities.Create(ctx, a)
}

func (s *Service) RemoveAvailability(ctx context.Context, id uuid.UUID) error {
	return s.availabilities.Delete(ctx, id)
}

func (s *Service) ListAvailability(ctx context.Context, professionalID uuid.UUID) ([]*Availability, error) {
	return s.availabilities.ListByProfessional(ctx, professionalID)
}

// -- Sessions --

// ScheduleSession books a session, rejecting bookings that fall outside the
// professional's declared availability or collide with another non-canceled
// session. Professionals with no declared availability accept any time.
func (s *Service) ScheduleSession(ctx context.Context, sess *Session) error {
	if sess.PatientID == uuid.Nil || sess.ProfessionalID == uuid.Nil {
		return fault.Invalid("patient and professional ids are required")
	}
	if !sess.StartsAt.Before(sess.EndsAt) {
		return fault.Invalid("session must end after it starts")
	}
	if sess.StartsAt.Before(time.Now()) {
		return fault.Invalid("session cannot start in the past")
	}
	name, email, err := s.patients.Contact(ctx, sess.PatientID)
	if err != nil {
		return err
	}
	windows, err := s.availabilities.ListByProfessional(ctx, sess.ProfessionalID)
	if err != nil {
		return err
	}
	if len(windows) > 0 && !fitsAvailability(windows, sess.StartsAt, sess.EndsAt) {
		return fault.Invalid("session is outside the professional's availability")
	}
	overlap, err := s.sessions.HasOverlap(ctx, sess.ProfessionalID, sess.StartsAt, sess.EndsAt)
	if err != nil {
		return err
	}
	if overlap {
		return fault.Conflict("professional already has a session in this interval")
	}
	sess.Status = SessionScheduled
	if err := s.sessions.Create(ctx, sess); err != nil {
		return err
	}
	s.notify(ctx, "session-scheduled", name, email, sess)
	return nil
}

func fitsAvailability(windows []*Availability, start, end time.Time) bool {
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return false
	}
	weekday := int(start.Weekday())
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	for _, w := range windows {
		if w.Weekday == weekday && startMin >= w.StartMinute && endMin <= w.EndMinute {
			return true
		}
	}
	return false
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) ListProfessionalSessions(ctx context.Context, professionalID uuid.UUID, from, to time.Time, limit, offset int) ([]*Session, int, error) {
	return s.sessions.ListByProfessional(ctx, professionalID, from, to, limit, offset)
}

func (s *Service) ListPatientSessions(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Session, int, error) {
	return s.sessions.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ConfirmSession(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, SessionConfirmed, "")
}

func (s *Service) CompleteSession(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, SessionCompleted, "")
}

func (s *Service) CancelSession(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, SessionCanceled, "session-canceled")
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, next SessionStatus, template string) error {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sess.Status.CanTransition(next) {
		return fault.Conflict("session %s cannot move from %s to %s", id, sess.Status, next)
	}
	if err := s.sessions.UpdateStatus(ctx, id, next); err != nil {
		return err
	}
	if template != "" {
		name, email, err := s.patients.Contact(ctx, sess.PatientID)
		if err == nil {
			s.notify(ctx, template, name, email, sess)
		}
	}
	return nil
}

// notify delivers best-effort; a failed or skipped notification never fails
// the booking.
func (s *Service) notify(ctx context.Context, template, patientName string, email *string, sess *Session) {
	if s.notifier == nil || email == nil {
		return
	}
	_, err := s.notifier.SendFromTemplate(ctx, template, map[string]string{
		"patient_name": patientName,
		"date":         sess.StartsAt.Format("02/01/2006"),
		"time":         sess.StartsAt.Format("15:04"),
	}, *email)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID.String()).Str("template", template).
			Msg("session notification failed")
	}
}
