package summary

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/repository"
	"github.com/jwalitptl/discharge-api/internal/service/patient"
	"github.com/jwalitptl/discharge-api/pkg/errors"
	"github.com/jwalitptl/discharge-api/pkg/messaging"
	"github.com/jwalitptl/discharge-api/pkg/textgen"
)

const (
	EventSummaryApproved = "summary.approved"
	DefaultEventChannel  = "discharge.events"
)

const (
	msgGenerationUnavailable = "Summary generation is temporarily unavailable. Please try again."
	msgApprovalRequired      = "The summary must be approved by the doctor before it is saved."
	msgDraftNotFound         = "Draft not found or expired. Please generate the summary again."
	msgDraftOtherPatient     = "Draft belongs to a different patient."
	msgNoApprovedSummary     = "No approved summary exists for this patient."
)

type SummaryService interface {
	Draft(ctx context.Context, patientID int64, level model.DetailLevel, notes string) (*model.Draft, error)
	GetDraft(ctx context.Context, patientID int64, draftID string) (*model.Draft, error)
	Approve(ctx context.Context, patientID int64, draftID string, approved bool) (*model.SummaryRecord, error)
	Approved(ctx context.Context, patientID int64) (*model.SummaryRecord, error)
}

type Config struct {
	Lengths      LengthHints
	EventChannel string
}

type Service struct {
	patients  repository.PatientStore
	ledger    repository.SummaryLedger
	generator textgen.Generator
	drafts    *DraftStore
	broker    messaging.Broker
	cfg       Config
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(
	patients repository.PatientStore,
	ledger repository.SummaryLedger,
	generator textgen.Generator,
	drafts *DraftStore,
	broker messaging.Broker,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if cfg.Lengths == (LengthHints{}) {
		cfg.Lengths = DefaultLengthHints()
	}
	if cfg.EventChannel == "" {
		cfg.EventChannel = DefaultEventChannel
	}
	if broker == nil {
		broker = messaging.NopBroker{}
	}

	return &Service{
		patients:  patients,
		ledger:    ledger,
		generator: generator,
		drafts:    drafts,
		broker:    broker,
		cfg:       cfg,
		logger:    logger.With().Str("component", "summary").Logger(),
		now:       time.Now,
	}
}

// Draft generates a summary for the patient and keeps it until approved or
// expired. The generated text is only trimmed.
func (s *Service) Draft(ctx context.Context, patientID int64, level model.DetailLevel, notes string) (*model.Draft, error) {
	record, ok := s.patients.Get(patientID)
	if !ok {
		return nil, errors.NotFound(patient.NotFoundMessage, nil)
	}

	text, err := s.generator.Generate(ctx, textgen.Request{
		Prompt:    BuildPrompt(&record, notes),
		MaxLength: s.cfg.Lengths.For(level),
	})
	if err != nil {
		return nil, errors.Unavailable(msgGenerationUnavailable, err)
	}

	draft := &model.Draft{
		ID:          uuid.NewString(),
		PatientID:   patientID,
		DetailLevel: level,
		Notes:       notes,
		Summary:     strings.TrimSpace(text),
		CreatedAt:   s.now().UTC(),
	}
	s.drafts.Save(draft)

	s.logger.Info().
		Int64("patient_id", patientID).
		Str("draft_id", draft.ID).
		Str("detail_level", string(level)).
		Int("length", len(draft.Summary)).
		Msg("summary drafted")

	return draft, nil
}

func (s *Service) GetDraft(_ context.Context, patientID int64, draftID string) (*model.Draft, error) {
	draft, ok := s.drafts.Get(draftID)
	if !ok {
		return nil, errors.NotFound(msgDraftNotFound, nil)
	}
	if draft.PatientID != patientID {
		return nil, errors.BadRequest(msgDraftOtherPatient, nil)
	}
	return draft, nil
}

// Approve stores the draft as the patient's approved summary, replacing any
// earlier one. Nothing is written unless approved is true.
func (s *Service) Approve(ctx context.Context, patientID int64, draftID string, approved bool) (*model.SummaryRecord, error) {
	if !approved {
		return nil, errors.BadRequest(msgApprovalRequired, nil)
	}

	record, ok := s.patients.Get(patientID)
	if !ok {
		return nil, errors.NotFound(patient.NotFoundMessage, nil)
	}
	draft, err := s.GetDraft(ctx, patientID, draftID)
	if err != nil {
		return nil, err
	}

	summary := &model.SummaryRecord{
		PatientID: patientID,
		Name:      record.Name,
		Summary:   draft.Summary,
		Approved:  true,
	}
	if err := s.ledger.Upsert(ctx, summary); err != nil {
		return nil, errors.Internal(err)
	}

	s.logger.Info().
		Int64("patient_id", patientID).
		Str("draft_id", draftID).
		Msg("approved summary saved")

	s.publishApproved(ctx, summary)
	return summary, nil
}

func (s *Service) Approved(ctx context.Context, patientID int64) (*model.SummaryRecord, error) {
	summary, err := s.ledger.Get(ctx, patientID)
	if err != nil {
		if stderrors.Is(err, repository.ErrSummaryNotFound) {
			return nil, errors.NotFound(msgNoApprovedSummary, err)
		}
		return nil, errors.Internal(err)
	}
	return summary, nil
}

// publishApproved is best-effort; a broker failure never fails the approval.
func (s *Service) publishApproved(ctx context.Context, summary *model.SummaryRecord) {
	msg := messaging.Message{
		Type: EventSummaryApproved,
		Payload: model.SummaryApprovedEvent{
			PatientID:  summary.PatientID,
			Name:       summary.Name,
			ApprovedAt: s.now().UTC(),
		},
	}
	if err := s.broker.Publish(ctx, s.cfg.EventChannel, msg); err != nil {
		s.logger.Warn().
			Err(err).
			Int64("patient_id", summary.PatientID).
			Msg("failed to publish summary approved event")
	}
}
