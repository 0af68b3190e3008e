package flatfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/pkg/logger"
)

const sampleCSV = `PatientID,Name,Sex,AgeCategory,State,Disease,Insurance,JoinedDate,CheckoutDate
101,Jane Doe,Female,30-40,Texas,Asthma,Yes,2023-01-05,2023-01-12
102,John Smith,Male,50-60,Ohio,Diabetes,No,2023-02-01,not-a-date
103,Johnny Appleseed,Male,20-30,Iowa,Flu,Yes,02/14/2023,2023-02-20
104,Mary JOHNSON,Female,60-70,Utah,Hypertension,No,,2023-03-09
`

func readSample(t *testing.T, input string) (*Store, model.LoadReport) {
	t.Helper()
	store, report, err := Read(strings.NewReader(input), logger.Nop())
	require.NoError(t, err)
	return store, report
}

func TestRead_LoadsAllRows(t *testing.T) {
	store, report := readSample(t, sampleCSV)

	assert.Equal(t, 4, store.Len())
	assert.Equal(t, 4, report.Rows)
	assert.Equal(t, 4, report.Loaded)
	assert.Equal(t, 1, report.DateWarnings)
	assert.Equal(t, 0, report.SkippedRows)
}

func TestGet_ReturnsExactRecord(t *testing.T) {
	store, _ := readSample(t, sampleCSV)

	record, ok := store.Get(101)
	require.True(t, ok)
	assert.Equal(t, int64(101), record.ID)
	assert.Equal(t, "Jane Doe", record.Name)
	assert.Equal(t, "Female", record.Sex)
	assert.Equal(t, "30-40", record.AgeCategory)
	assert.Equal(t, "Texas", record.State)
	assert.Equal(t, "Asthma", record.Disease)
	assert.Equal(t, "Yes", record.Insurance)
	require.NotNil(t, record.JoinedDate)
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), *record.JoinedDate)
	require.NotNil(t, record.CheckoutDate)
	assert.Equal(t, time.Date(2023, 1, 12, 0, 0, 0, 0, time.UTC), *record.CheckoutDate)
}

func TestGet_UnknownIDIsNotFound(t *testing.T) {
	store, _ := readSample(t, sampleCSV)

	for _, id := range []int64{0, -1, 100, 105, 999999} {
		_, ok := store.Get(id)
		assert.False(t, ok, "id %d", id)
	}
}

func TestRead_BadDateKeepsRow(t *testing.T) {
	store, report := readSample(t, sampleCSV)

	record, ok := store.Get(102)
	require.True(t, ok)
	assert.Nil(t, record.CheckoutDate)
	require.NotNil(t, record.JoinedDate)
	assert.Equal(t, "John Smith", record.Name)
	assert.Equal(t, "Diabetes", record.Disease)
	assert.Equal(t, "No", record.Insurance)
	assert.Equal(t, 1, report.DateWarnings)
}

func TestRead_EmptyDateIsNullWithoutWarning(t *testing.T) {
	store, report := readSample(t, sampleCSV)

	record, ok := store.Get(104)
	require.True(t, ok)
	assert.Nil(t, record.JoinedDate)
	assert.NotNil(t, record.CheckoutDate)
	assert.Equal(t, 1, report.DateWarnings)
}

func TestRead_MonthFirstSlashDate(t *testing.T) {
	store, _ := readSample(t, sampleCSV)

	record, ok := store.Get(103)
	require.True(t, ok)
	require.NotNil(t, record.JoinedDate)
	assert.Equal(t, time.Date(2023, 2, 14, 0, 0, 0, 0, time.UTC), *record.JoinedDate)
}

func TestSearchByName_CaseInsensitive(t *testing.T) {
	store, _ := readSample(t, sampleCSV)

	lower := store.SearchByName("john")
	upper := store.SearchByName("JOHN")
	title := store.SearchByName("John")

	expected := []model.PatientMatch{
		{ID: 102, Name: "John Smith"},
		{ID: 103, Name: "Johnny Appleseed"},
		{ID: 104, Name: "Mary JOHNSON"},
	}
	assert.Equal(t, expected, lower)
	assert.Equal(t, lower, upper)
	assert.Equal(t, lower, title)
}

func TestSearchByName_EmptyFragmentMatchesNothing(t *testing.T) {
	store, _ := readSample(t, sampleCSV)

	for _, fragment := range []string{"", "   "} {
		matches := store.SearchByName(fragment)
		assert.NotNil(t, matches)
		assert.Empty(t, matches)
	}
}

func TestSearchByName_NoMatch(t *testing.T) {
	store, _ := readSample(t, sampleCSV)

	matches := store.SearchByName("zzz")
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestList_Pages(t *testing.T) {
	store, _ := readSample(t, sampleCSV)

	page, total := store.List(0, 2)
	assert.Equal(t, 4, total)
	assert.Equal(t, []model.PatientMatch{{ID: 101, Name: "Jane Doe"}, {ID: 102, Name: "John Smith"}}, page)

	page, _ = store.List(2, 10)
	assert.Len(t, page, 2)
	assert.Equal(t, int64(103), page[0].ID)

	page, total = store.List(10, 10)
	assert.Empty(t, page)
	assert.Equal(t, 4, total)
}

func TestRead_SkipsNonIntegerIDsAndDuplicates(t *testing.T) {
	input := `PatientID,Name,Sex,AgeCategory,State,Disease,Insurance,JoinedDate,CheckoutDate
abc,Bad Row,Male,20-30,Iowa,Flu,Yes,2023-01-01,2023-01-02
201.0,First,Male,20-30,Iowa,Flu,Yes,2023-01-01,2023-01-02
201,Second,Male,20-30,Iowa,Flu,Yes,2023-01-01,2023-01-02
`
	store, report := readSample(t, input)

	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.Loaded)
	assert.Equal(t, 1, report.SkippedRows)
	assert.Equal(t, 1, report.DuplicateIDs)
	assert.Equal(t, 2, report.Warnings())

	record, ok := store.Get(201)
	require.True(t, ok)
	assert.Equal(t, "First", record.Name)
}

func TestRead_HeaderMatchingIgnoresCaseAndOrder(t *testing.T) {
	input := "name,patient_id,Sex,Age Category,State,Disease,Insurance,Checkout Date,Joined Date\n" +
		"Ann Lee,7,Female,40-50,Maine,Flu,Yes,2024-05-02,2024-05-01\n"
	store, _ := readSample(t, input)

	record, ok := store.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Ann Lee", record.Name)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *record.JoinedDate)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), *record.CheckoutDate)
}

func TestRead_MissingColumn(t *testing.T) {
	_, _, err := Read(strings.NewReader("PatientID,Name\n1,A\n"), logger.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestRead_EmptyInput(t *testing.T) {
	_, _, err := Read(strings.NewReader(""), logger.Nop())
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.csv"), logger.Nop())
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	store, report, err := Load(path, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 4, store.Len())
	assert.Equal(t, 4, report.Loaded)
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want *time.Time
		ok   bool
	}{
		{"2023-01-05", dateptr(2023, 1, 5), true},
		{"2023-01-05 10:30:00", ptr(time.Date(2023, 1, 5, 10, 30, 0, 0, time.UTC)), true},
		{"2023/01/05", dateptr(2023, 1, 5), true},
		{"1/5/2023", dateptr(2023, 1, 5), true},
		{"05-Jan-2023", dateptr(2023, 1, 5), true},
		{"Jan 5, 2023", dateptr(2023, 1, 5), true},
		{"", nil, true},
		{"NaT", nil, true},
		{"2023-13-45", nil, false},
		{"yesterday", nil, false},
	}

	for _, tc := range cases {
		got, ok := parseDate(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func dateptr(y int, m time.Month, d int) *time.Time {
	return ptr(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func ptr(t time.Time) *time.Time {
	return &t
}
