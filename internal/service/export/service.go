package export

import (
	"bytes"
	"context"
	stderrors "errors"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/repository"
	"github.com/jwalitptl/discharge-api/internal/service/patient"
	"github.com/jwalitptl/discharge-api/pkg/errors"
	"github.com/jwalitptl/discharge-api/pkg/metrics"
	"github.com/jwalitptl/discharge-api/pkg/storage"
)

const (
	SourceDraft    = "draft"
	SourceApproved = "approved"
)

// SummarySource resolves the text to export.
type SummarySource interface {
	GetDraft(ctx context.Context, patientID int64, draftID string) (*model.Draft, error)
	Approved(ctx context.Context, patientID int64) (*model.SummaryRecord, error)
}

// Request names exactly one of a draft or the approved summary.
type Request struct {
	DraftID     string
	UseApproved bool
}

type Result struct {
	Name     string
	Location string
	Content  []byte
}

type Service struct {
	patients  repository.PatientStore
	summaries SummarySource
	store     storage.Store
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewService(patients repository.PatientStore, summaries SummarySource, store storage.Store, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		patients:  patients,
		summaries: summaries,
		store:     store,
		metrics:   m,
		logger:    logger.With().Str("component", "export").Logger(),
	}
}

func (s *Service) Export(ctx context.Context, patientID int64, req Request) (result *Result, err error) {
	source := SourceDraft
	if req.UseApproved {
		source = SourceApproved
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.ExportsTotal.WithLabelValues(source, metrics.Status(err)).Inc()
			if err == nil {
				s.metrics.ExportBytes.Observe(float64(len(result.Content)))
			}
		}
	}()

	if hasDraft := req.DraftID != ""; hasDraft == req.UseApproved {
		return nil, errors.BadRequest("Provide either a draft_id or use_approved, not both.", nil)
	}

	record, ok := s.patients.Get(patientID)
	if !ok {
		return nil, errors.NotFound(patient.NotFoundMessage, nil)
	}

	text, err := s.resolve(ctx, patientID, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Render(&buf, Layout(&record, text)); err != nil {
		if stderrors.Is(err, ErrUnsupportedText) {
			return nil, errors.BadRequest("The summary contains characters the document font cannot display.", err)
		}
		return nil, errors.Internal(err)
	}

	name := FileName(&record, text)
	location, err := s.store.Put(ctx, name, ContentType, buf.Bytes())
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.logger.Info().
		Int64("patient_id", patientID).
		Str("source", source).
		Str("location", location).
		Int("bytes", buf.Len()).
		Msg("summary exported")

	return &Result{Name: name, Location: location, Content: buf.Bytes()}, nil
}

func (s *Service) resolve(ctx context.Context, patientID int64, req Request) (string, error) {
	if req.UseApproved {
		summary, err := s.summaries.Approved(ctx, patientID)
		if err != nil {
			return "", err
		}
		return summary.Summary, nil
	}

	draft, err := s.summaries.GetDraft(ctx, patientID, req.DraftID)
	if err != nil {
		return "", err
	}
	return draft.Summary, nil
}
