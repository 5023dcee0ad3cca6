package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"vetdesk/internal/domain"
	"vetdesk/internal/store"
)

// calendarLockKey serializes mutations of the single clinic calendar. The
// advisory lock makes check-then-insert atomic across writers; the
// appointments_no_overlap exclusion constraint is the backstop.
const calendarLockKey = "vetdesk:appointments"

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

func (r *AppointmentRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:            appt.ID,
		StartTime:     appt.StartTime,
		ServiceType:   appt.ServiceType,
		RequesterName: appt.RequesterName,
		Contact:       appt.Contact,
		Serviced:      false,
	}

	err := r.inCalendarTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			if isOverlapViolation(err) {
				return store.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	err := r.inCalendarTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(&m).
			Column("start_time", "service_type", "requester_name", "contact", "updated_at").
			Where("id = ?", m.ID).
			Where("NOT serviced").
			Exec(ctx)
		if err != nil {
			if isOverlapViolation(err) {
				return store.ErrConflict
			}
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return pendingMutationError(ctx, tx, m.ID)
		}
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	m.Serviced = false
	return m, nil
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.inCalendarTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*domain.Appointment)(nil)).
			Where("id = ?", id).
			Where("NOT serviced").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return pendingMutationError(ctx, tx, id)
		}
		return nil
	})
}

func (r *AppointmentRepo) MarkServiced(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.inCalendarTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*domain.Appointment)(nil)).
			Set("serviced = TRUE").
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Where("NOT serviced").
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return pendingMutationError(ctx, tx, id)
		}
		return tx.NewSelect().
			Model(&m).
			Where("id = ?", id).
			Limit(1).
			Scan(ctx)
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) ListPendingBetween(ctx context.Context, after, before time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("NOT serviced").
		Where("start_time > ?", after).
		Where("start_time < ?", before).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) inCalendarTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func lockCalendar(ctx context.Context, tx bun.Tx) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", calendarLockKey).Exec(ctx)
	return err
}

// pendingMutationError explains a zero-row mutation guarded by NOT serviced:
// either the row never existed or it is terminal.
func pendingMutationError(ctx context.Context, tx bun.Tx, id uuid.UUID) error {
	var m domain.Appointment
	err := tx.NewSelect().
		Model(&m).
		Column("serviced").
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}
	if m.Serviced {
		return store.ErrAlreadyServiced
	}
	return store.ErrNotFound
}

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap"
}
