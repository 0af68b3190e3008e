package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/repository"
	"github.com/jwalitptl/discharge-api/pkg/metrics"
)

const (
	upsertSummaryQuery = `
		INSERT INTO summaries (patient_id, name, summary, approved_by_doctor)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (patient_id) DO UPDATE SET
			name = excluded.name,
			summary = excluded.summary,
			approved_by_doctor = excluded.approved_by_doctor
	`
	getSummaryQuery = `
		SELECT patient_id, name, summary, approved_by_doctor
		FROM summaries
		WHERE patient_id = ?
	`
)

type summaryLedger struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
	upsert  string
	get     string
}

// NewSummaryLedger returns a SummaryLedger on db. m may be nil.
func NewSummaryLedger(db *sqlx.DB, m *metrics.Metrics) repository.SummaryLedger {
	return &summaryLedger{
		db:      db,
		metrics: m,
		upsert:  db.Rebind(upsertSummaryQuery),
		get:     db.Rebind(getSummaryQuery),
	}
}

// Upsert replaces any existing row for the patient in a single autocommitted
// statement.
func (l *summaryLedger) Upsert(ctx context.Context, record *model.SummaryRecord) (err error) {
	defer l.observe("upsert", time.Now(), &err)

	approved := 0
	if record.Approved {
		approved = 1
	}
	if _, err = l.db.ExecContext(ctx, l.upsert, record.PatientID, record.Name, record.Summary, approved); err != nil {
		return fmt.Errorf("failed to upsert summary for patient %d: %w", record.PatientID, err)
	}
	return nil
}

func (l *summaryLedger) Get(ctx context.Context, patientID int64) (_ *model.SummaryRecord, err error) {
	defer l.observe("get", time.Now(), &err)

	var row struct {
		PatientID int64          `db:"patient_id"`
		Name      sql.NullString `db:"name"`
		Summary   sql.NullString `db:"summary"`
		Approved  sql.NullInt64  `db:"approved_by_doctor"`
	}
	if err = l.db.GetContext(ctx, &row, l.get, patientID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to get summary for patient %d: %w", patientID, err)
	}

	return &model.SummaryRecord{
		PatientID: row.PatientID,
		Name:      row.Name.String,
		Summary:   row.Summary.String,
		Approved:  row.Approved.Int64 != 0,
	}, nil
}

func (l *summaryLedger) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *summaryLedger) observe(operation string, start time.Time, err *error) {
	if l.metrics == nil {
		return
	}
	status := "success"
	if *err != nil && !errors.Is(*err, repository.ErrSummaryNotFound) {
		status = "error"
	}
	l.metrics.LedgerOperations.WithLabelValues(operation, status).Inc()
	l.metrics.LedgerLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
