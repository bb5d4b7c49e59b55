package appointment

import (
	"context"
	"time"
)

type Repository interface {
	GetAll(ctx context.Context) ([]Appointment, error)
	GetByID(ctx context.Context, id int) (Appointment, error)
	Add(ctx context.Context, a Appointment) (Appointment, error)
	Update(ctx context.Context, a Appointment) error
	Delete(ctx context.Context, id int) error
	ListByPatient(ctx context.Context, patientID int) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID int) ([]Appointment, error)
	ListByStatus(ctx context.Context, status string) ([]Appointment, error)

	// HasConflict reports whether the doctor already has any appointment at
	// exactly the given time, ignoring the record identified by excludeID.
	// Pass excludeID -1 when creating a new appointment.
	HasConflict(ctx context.Context, doctorID int, at time.Time, excludeID int) (bool, error)
}
