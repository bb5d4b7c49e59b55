package appointment

import (
	"errors"
	"fmt"
	"time"
)

const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
)

var ErrInvalidStatus = errors.New("invalid appointment status")

// ErrDoubleBooked reports that a doctor already holds an appointment at the
// requested time.
type ErrDoubleBooked struct {
	DoctorID int
	At       time.Time
}

func (e *ErrDoubleBooked) Error() string {
	return fmt.Sprintf("doctor %d is already booked at %s", e.DoctorID, e.At.Format(time.RFC3339))
}

func IsDoubleBooked(err error) bool {
	var db *ErrDoubleBooked
	return errors.As(err, &db)
}

type Appointment struct {
	ID              int
	PatientID       int
	DoctorID        int
	Status          string
	AppointmentDate time.Time
}

func (a Appointment) EntityID() int { return a.ID }

func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
