package patient

import (
	"context"
	"strconv"
	"strings"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/repository"
	"github.com/jwalitptl/discharge-api/pkg/errors"
)

// NotFoundMessage is shown when neither an id nor a name matches.
const NotFoundMessage = "Patient not found. Please enter a valid ID or name."

type PatientService interface {
	GetPatient(ctx context.Context, id int64) (*model.PatientRecord, error)
	SearchPatients(ctx context.Context, fragment string) ([]model.PatientMatch, error)
	ListPatients(ctx context.Context, p *model.Pagination) ([]model.PatientMatch, int, error)
}

type Service struct {
	store repository.PatientStore
}

func NewService(store repository.PatientStore) *Service {
	return &Service{store: store}
}

func (s *Service) GetPatient(_ context.Context, id int64) (*model.PatientRecord, error) {
	record, ok := s.store.Get(id)
	if !ok {
		return nil, errors.NotFound(NotFoundMessage, nil)
	}
	return &record, nil
}

func (s *Service) SearchPatients(_ context.Context, fragment string) ([]model.PatientMatch, error) {
	return s.store.SearchByName(fragment), nil
}

func (s *Service) ListPatients(_ context.Context, p *model.Pagination) ([]model.PatientMatch, int, error) {
	offset, limit := p.Normalize()
	matches, total := s.store.List(offset, limit)
	return matches, total, nil
}

// ParseID parses a patient id from user input.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("patient id must be an integer", err)
	}
	return id, nil
}
