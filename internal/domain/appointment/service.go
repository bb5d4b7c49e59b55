package appointment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/cache"
)

type Service struct {
	*cache.Service[Appointment]

	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		Service: cache.NewService[Appointment](repo, matchAppointment, log),
		repo:    repo,
		log:     log,
	}
}

// Add books an appointment. An empty status defaults to Scheduled; the
// doctor's slot is checked against the store, not the snapshot, so a booking
// made through another path is still seen.
func (s *Service) Add(ctx context.Context, a Appointment) (Appointment, error) {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !ValidStatus(a.Status) {
		return Appointment{}, ErrInvalidStatus
	}

	conflict, err := s.repo.HasConflict(ctx, a.DoctorID, a.AppointmentDate, -1)
	if err != nil {
		return Appointment{}, err
	}
	if conflict {
		return Appointment{}, &ErrDoubleBooked{DoctorID: a.DoctorID, At: a.AppointmentDate}
	}
	return s.Service.Add(ctx, a)
}

// Update reschedules or restatuses an appointment. The conflict check
// excludes the appointment's own id so keeping the same slot is never a
// collision.
func (s *Service) Update(ctx context.Context, a Appointment) error {
	if !ValidStatus(a.Status) {
		return ErrInvalidStatus
	}

	conflict, err := s.repo.HasConflict(ctx, a.DoctorID, a.AppointmentDate, a.ID)
	if err != nil {
		return err
	}
	if conflict {
		return &ErrDoubleBooked{DoctorID: a.DoctorID, At: a.AppointmentDate}
	}
	return s.Service.Update(ctx, a)
}

// HasConflict exposes the ground-truth slot check for callers probing
// availability before building a booking.
func (s *Service) HasConflict(ctx context.Context, doctorID int, at time.Time, excludeID int) (bool, error) {
	return s.repo.HasConflict(ctx, doctorID, at, excludeID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID int) ([]Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID int) ([]Appointment, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

func (s *Service) ListByStatus(ctx context.Context, status string) ([]Appointment, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListByStatus(ctx, status)
}

func matchAppointment(a Appointment, query string) bool {
	if strings.Contains(strings.ToLower(a.Status), query) {
		return true
	}
	if strings.Contains(strconv.Itoa(a.ID), query) {
		return true
	}
	return strings.Contains(a.AppointmentDate.Format("2006-01-02"), query)
}
