package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vetdesk/internal/domain"
)

// AppointmentRepository is the durable record of the clinic calendar. Update,
// Delete and MarkServiced operate on pending rows only; a serviced row yields
// ErrAlreadyServiced. Create and Update report a slot collision as
// ErrConflict regardless of whether it was caught by a query or by the
// store's own overlap constraint.
type AppointmentRepository interface {
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkServiced(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// ListPendingBetween returns not-yet-serviced appointments whose start
	// time lies strictly inside the open interval (after, before).
	ListPendingBetween(ctx context.Context, after, before time.Time) ([]domain.Appointment, error)

	// ListAll returns every appointment ordered by ascending start time.
	ListAll(ctx context.Context) ([]domain.Appointment, error)
}
