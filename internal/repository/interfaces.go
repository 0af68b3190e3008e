package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/discharge-api/internal/model"
)

// ErrSummaryNotFound is returned by SummaryLedger.Get for an unknown patient.
var ErrSummaryNotFound = errors.New("summary not found")

// All repository interfaces in one file
type (
	// PatientStore is the read-only patient table loaded at startup.
	PatientStore interface {
		Get(id int64) (model.PatientRecord, bool)
		SearchByName(fragment string) []model.PatientMatch
		List(offset, limit int) ([]model.PatientMatch, int)
		Len() int
	}

	// SummaryLedger stores the latest approved summary per patient.
	SummaryLedger interface {
		Upsert(ctx context.Context, record *model.SummaryRecord) error
		Get(ctx context.Context, patientID int64) (*model.SummaryRecord, error)
		Ping(ctx context.Context) error
	}
)
