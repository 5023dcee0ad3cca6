package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ServiceType is the closed set of visit categories the clinic offers. It is
// descriptive only and has no effect on scheduling rules.
type ServiceType string

const (
	ServiceTypeConsultation ServiceType = "consultation"
	ServiceTypeVaccination  ServiceType = "vaccination"
	ServiceTypeGrooming     ServiceType = "grooming"
	ServiceTypeSurgery      ServiceType = "surgery"
	ServiceTypeCheckup      ServiceType = "checkup"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceTypeConsultation, ServiceTypeVaccination, ServiceTypeGrooming,
		ServiceTypeSurgery, ServiceTypeCheckup:
		return true
	}
	return false
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID            uuid.UUID   `bun:"id,pk,type:uuid"`
	StartTime     time.Time   `bun:"start_time,notnull"`
	ServiceType   ServiceType `bun:"service_type,notnull"`
	RequesterName string      `bun:"requester_name,notnull"`
	Contact       string      `bun:"contact,notnull"`
	Serviced      bool        `bun:"serviced,notnull,default:false"`
	CreatedAt     time.Time   `bun:"created_at,notnull"`
	UpdatedAt     time.Time   `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
