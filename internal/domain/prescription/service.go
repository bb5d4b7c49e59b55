package prescription

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/cache"
)

type Service struct {
	*cache.Service[Prescription]

	repo Repository
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		Service: cache.NewService[Prescription](repo, matchPrescription, log),
		repo:    repo,
	}
}

func (s *Service) ListByPatient(ctx context.Context, patientID int) ([]Prescription, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID int) ([]Prescription, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

// Items are never snapshotted; every read goes to the store.

func (s *Service) AddItem(ctx context.Context, item Item) (Item, error) {
	if _, err := s.GetByID(ctx, item.PrescriptionID); err != nil {
		return Item{}, err
	}
	return s.repo.AddItem(ctx, item)
}

func (s *Service) Items(ctx context.Context, prescriptionID int) ([]Item, error) {
	return s.repo.Items(ctx, prescriptionID)
}

func (s *Service) DeleteItem(ctx context.Context, itemID int) error {
	return s.repo.DeleteItem(ctx, itemID)
}

func matchPrescription(p Prescription, query string) bool {
	if strconv.Itoa(p.PatientID) == query {
		return true
	}
	if strconv.Itoa(p.DoctorID) == query {
		return true
	}
	return strconv.Itoa(p.ID) == query
}
