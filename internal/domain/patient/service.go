package patient

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/cache"
)

// Invalidator is anything holding a cached snapshot that a patient delete
// makes stale. The cascade removes appointments, prescriptions and feedback,
// so those services register themselves here.
type Invalidator interface {
	Invalidate()
}

type Service struct {
	*cache.Service[Patient]

	repo       Repository
	dependents []Invalidator
	log        zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		Service: cache.NewService[Patient](repo, matchPatient, log),
		repo:    repo,
		log:     log,
	}
}

// RegisterDependent adds a service whose snapshot must be dropped after a
// cascade delete. Call during wiring, before the service handles requests.
func (s *Service) RegisterDependent(d Invalidator) {
	s.dependents = append(s.dependents, d)
}

// Delete removes the patient together with all dependent records, then drops
// every registered dependent snapshot so stale rows never surface.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.Service.Delete(ctx, id); err != nil {
		return err
	}
	for _, d := range s.dependents {
		d.Invalidate()
	}
	s.log.Info().Int("patient_id", id).Msg("patient deleted with dependent records")
	return nil
}

// SearchStore matches committed rows directly, bypassing the snapshot. Use it
// when results must include writes made behind the cache.
func (s *Service) SearchStore(ctx context.Context, query string) ([]Patient, error) {
	return s.repo.Search(ctx, query)
}

func matchPatient(p Patient, query string) bool {
	if strings.Contains(strings.ToLower(p.Name), query) {
		return true
	}
	return strings.Contains(strconv.Itoa(p.ID), query)
}
