package scheduling

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vetdesk/internal/domain"
	"vetdesk/internal/notify"
	"vetdesk/internal/store"
)

const defaultNotifyTimeout = 5 * time.Second

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// Service drives the appointment lifecycle: it validates input, enforces
// business-hour and overlap rules, and persists through the repository. It
// holds no mutable state of its own.
type Service struct {
	repo          store.AppointmentRepository
	notifier      notify.Notifier
	hours         domain.BusinessHours
	notifyTimeout time.Duration
	now           func() time.Time
	log           *slog.Logger
}

func NewService(repo store.AppointmentRepository, notifier notify.Notifier, hours domain.BusinessHours, notifyTimeout time.Duration, log *slog.Logger) *Service {
	if notifyTimeout <= 0 {
		notifyTimeout = defaultNotifyTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:          repo,
		notifier:      notifier,
		hours:         hours,
		notifyTimeout: notifyTimeout,
		now:           time.Now,
		log:           log.With(slog.String("component", "scheduling")),
	}
}

type ScheduleInput struct {
	StartTime     time.Time
	ServiceType   domain.ServiceType
	RequesterName string
	Contact       string
	Notify        bool
}

func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (domain.Appointment, error) {
	in, err := s.validate(in)
	if err != nil {
		return domain.Appointment{}, err
	}

	conflicts, err := s.findConflicts(ctx, in.StartTime, uuid.Nil)
	if err != nil {
		return domain.Appointment{}, err
	}
	if len(conflicts) > 0 {
		return domain.Appointment{}, store.ErrConflict
	}

	appt, err := s.repo.Create(ctx, domain.Appointment{
		StartTime:     in.StartTime,
		ServiceType:   in.ServiceType,
		RequesterName: in.RequesterName,
		Contact:       in.Contact,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	if in.Notify {
		s.sendConfirmation(appt)
	}

	return appt, nil
}

func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in ScheduleInput) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if existing.Serviced {
		return domain.Appointment{}, store.ErrAlreadyServiced
	}

	in, err = s.validate(in)
	if err != nil {
		return domain.Appointment{}, err
	}

	conflicts, err := s.findConflicts(ctx, in.StartTime, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if len(conflicts) > 0 {
		return domain.Appointment{}, store.ErrConflict
	}

	existing.StartTime = in.StartTime
	existing.ServiceType = in.ServiceType
	existing.RequesterName = in.RequesterName
	existing.Contact = in.Contact

	return s.repo.Update(ctx, existing)
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationError("appointment_id is required")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Serviced {
		return store.ErrAlreadyServiced
	}

	return s.repo.Delete(ctx, id)
}

func (s *Service) MarkServiced(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	return s.repo.MarkServiced(ctx, id)
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	return s.repo.ListAll(ctx)
}

// validate applies the booking rules in order, first failure wins, and
// returns the input with the start time truncated to the minute and the
// free-text fields trimmed.
func (s *Service) validate(in ScheduleInput) (ScheduleInput, error) {
	if !in.ServiceType.Valid() {
		return in, validationError("service_type must be one of consultation, vaccination, grooming, surgery, checkup")
	}
	in.RequesterName = strings.TrimSpace(in.RequesterName)
	if in.RequesterName == "" {
		return in, validationError("requester_name is required")
	}
	in.Contact = strings.TrimSpace(in.Contact)
	if in.Contact == "" {
		return in, validationError("contact is required")
	}
	if in.StartTime.IsZero() {
		return in, validationError("start_time is required")
	}

	in.StartTime = in.StartTime.UTC().Truncate(time.Minute)
	if in.StartTime.Before(s.now().UTC().Truncate(time.Minute)) {
		return in, validationError("start_time must not be in the past")
	}

	if s.hours.ClosedOn(in.StartTime) {
		return in, validationError("the clinic is closed on " + s.hours.ClosedWeekday.String())
	}
	if !s.hours.WithinHours(in.StartTime) {
		return in, validationError("start_time is outside business hours")
	}

	if domain.ClassifyContact(in.Contact) == domain.ContactKindInvalid {
		return in, validationError("contact must be an email address or a 10-digit phone number")
	}

	return in, nil
}

// findConflicts returns the pending appointments whose slots would overlap a
// slot starting at start. Two fixed-length slots overlap exactly when the
// existing start lies strictly inside the open interval
// (start - slot, start + slot). exclude drops the appointment being
// rescheduled from the result so a record may overlap with itself.
func (s *Service) findConflicts(ctx context.Context, start time.Time, exclude uuid.UUID) ([]domain.Appointment, error) {
	after := start.Add(-s.hours.SlotDuration)
	before := start.Add(s.hours.SlotDuration)

	rows, err := s.repo.ListPendingBetween(ctx, after, before)
	if err != nil {
		return nil, err
	}

	conflicts := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		if exclude != uuid.Nil && a.ID == exclude {
			continue
		}
		conflicts = append(conflicts, a)
	}
	return conflicts, nil
}

// sendConfirmation is best effort: a slow or failing notifier is logged and
// abandoned, never surfaced to the caller. Only email contacts are notified.
func (s *Service) sendConfirmation(appt domain.Appointment) {
	if s.notifier == nil {
		return
	}
	if domain.ClassifyContact(appt.Contact) != domain.ContactKindEmail {
		return
	}

	subject := "Your appointment is confirmed"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s appointment is booked for %s.\n\nSee you then!\n",
		appt.RequesterName,
		appt.ServiceType,
		appt.StartTime.Format("Monday, 2 January 2006 at 15:04 MST"),
	)

	done := make(chan error, 1)
	go func() {
		done <- s.notifier.Send(appt.Contact, subject, body)
	}()

	timer := time.NewTimer(s.notifyTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warn(
				"confirmation send failed",
				slog.Any("err", err),
				slog.String("appointment_id", appt.ID.String()),
			)
		}
	case <-timer.C:
		s.log.Warn(
			"confirmation send timed out",
			slog.String("appointment_id", appt.ID.String()),
			slog.Duration("timeout", s.notifyTimeout),
		)
	}
}
