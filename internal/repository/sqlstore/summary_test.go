package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/repository"
	"github.com/jwalitptl/discharge-api/pkg/metrics"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewDB(Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func countRows(t *testing.T, db *sqlx.DB, patientID int64) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, db.Rebind(`SELECT COUNT(*) FROM summaries WHERE patient_id = ?`), patientID))
	return n
}

func TestUpsert_LastWriteWins(t *testing.T) {
	db := newTestDB(t)
	ledger := NewSummaryLedger(db, nil)
	ctx := context.Background()

	require.NoError(t, ledger.Upsert(ctx, &model.SummaryRecord{PatientID: 7, Name: "Ann Lee", Summary: "text A", Approved: true}))
	require.NoError(t, ledger.Upsert(ctx, &model.SummaryRecord{PatientID: 7, Name: "Ann Lee", Summary: "text B", Approved: true}))

	assert.Equal(t, 1, countRows(t, db, 7))

	got, err := ledger.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, &model.SummaryRecord{PatientID: 7, Name: "Ann Lee", Summary: "text B", Approved: true}, got)
}

func TestUpsert_KeepsPatientsSeparate(t *testing.T) {
	db := newTestDB(t)
	ledger := NewSummaryLedger(db, nil)
	ctx := context.Background()

	require.NoError(t, ledger.Upsert(ctx, &model.SummaryRecord{PatientID: 1, Name: "A", Summary: "one", Approved: true}))
	require.NoError(t, ledger.Upsert(ctx, &model.SummaryRecord{PatientID: 2, Name: "B", Summary: "two", Approved: false}))

	first, err := ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", first.Summary)

	second, err := ledger.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", second.Summary)
	assert.False(t, second.Approved)
}

func TestGet_UnknownPatient(t *testing.T) {
	ledger := NewSummaryLedger(newTestDB(t), nil)

	got, err := ledger.Get(context.Background(), 404)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, repository.ErrSummaryNotFound)
}

func TestUpsert_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.db")
	ctx := context.Background()

	db, err := NewDB(Config{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, NewSummaryLedger(db, nil).Upsert(ctx, &model.SummaryRecord{PatientID: 3, Name: "C", Summary: "kept", Approved: true}))
	require.NoError(t, db.Close())

	db, err = NewDB(Config{Driver: DriverSQLite, DSN: path})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db))

	got, err := NewSummaryLedger(db, nil).Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Summary)
}

func TestUpsert_ClosedDatabase(t *testing.T) {
	db := newTestDB(t)
	ledger := NewSummaryLedger(db, nil)
	require.NoError(t, db.Close())

	err := ledger.Upsert(context.Background(), &model.SummaryRecord{PatientID: 1, Summary: "x", Approved: true})
	assert.Error(t, err)
	assert.Error(t, ledger.Ping(context.Background()))
}

func TestLedger_RecordsMetrics(t *testing.T) {
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	ledger := NewSummaryLedger(newTestDB(t), m)
	ctx := context.Background()

	require.NoError(t, ledger.Upsert(ctx, &model.SummaryRecord{PatientID: 1, Summary: "x", Approved: true}))
	_, err := ledger.Get(ctx, 99)
	require.ErrorIs(t, err, repository.ErrSummaryNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerOperations.WithLabelValues("upsert", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerOperations.WithLabelValues("get", "success")))
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	_, err := NewDB(Config{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, Migrate(context.Background(), db))
}
