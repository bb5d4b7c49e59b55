package doctor

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Harriee01/Hospital-Management/internal/platform/cache"
)

type Service struct {
	*cache.Service[Doctor]

	repo Repository
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		Service: cache.NewService[Doctor](repo, matchDoctor, log),
		repo:    repo,
	}
}

// ListByDepartment goes straight to the store. Department rosters change
// with doctor writes handled elsewhere, so the snapshot cannot vouch for
// them.
func (s *Service) ListByDepartment(ctx context.Context, departmentID int) ([]Doctor, error) {
	return s.repo.ListByDepartment(ctx, departmentID)
}

func matchDoctor(d Doctor, query string) bool {
	if strings.Contains(strings.ToLower(d.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(d.Specialization), query) {
		return true
	}
	return strings.Contains(strconv.Itoa(d.ID), query)
}
