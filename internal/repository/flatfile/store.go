// Package flatfile holds the patient table loaded once from a CSV file.
package flatfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/text/cases"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/repository"
)

const (
	colPatientID    = "patientid"
	colName         = "name"
	colSex          = "sex"
	colAgeCategory  = "agecategory"
	colState        = "state"
	colDisease      = "disease"
	colInsurance    = "insurance"
	colJoinedDate   = "joineddate"
	colCheckoutDate = "checkoutdate"
)

var requiredColumns = []string{
	colPatientID, colName, colSex, colAgeCategory, colState,
	colDisease, colInsurance, colJoinedDate, colCheckoutDate,
}

var ErrMissingColumn = errors.New("missing required column")

// Store is immutable once loaded and safe for concurrent reads.
type Store struct {
	records []model.PatientRecord
	folded  []string
	byID    map[int64]int
}

var _ repository.PatientStore = (*Store)(nil)

// Load opens path and reads it with Read.
func Load(path string, logger zerolog.Logger) (*Store, model.LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.LoadReport{}, fmt.Errorf("failed to open patient file: %w", err)
	}
	defer f.Close()

	store, report, err := Read(f, logger)
	if err != nil {
		return nil, report, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return store, report, nil
}

// Read parses CSV input with a header row. Unparseable dates become nil, rows
// without an integer PatientID are skipped and duplicate ids keep the first
// row. Every such case is counted in the report and logged.
func Read(r io.Reader, logger zerolog.Logger) (*Store, model.LoadReport, error) {
	var report model.LoadReport

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, report, errors.New("patient file is empty")
	}
	if err != nil {
		return nil, report, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, report, err
	}

	store := &Store{byID: make(map[int64]int)}
	fold := cases.Fold()

	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, report, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		report.Rows++

		cell := func(col string) string {
			idx := columns[col]
			if idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		id, err := parseID(cell(colPatientID))
		if err != nil {
			report.SkippedRows++
			logger.Warn().
				Int("line", line).
				Str("value", cell(colPatientID)).
				Msg("row skipped: PatientID is not an integer")
			continue
		}
		if _, exists := store.byID[id]; exists {
			report.DuplicateIDs++
			logger.Warn().
				Int("line", line).
				Int64("patient_id", id).
				Msg("duplicate PatientID ignored, first row kept")
			continue
		}

		record := model.PatientRecord{
			ID:          id,
			Name:        cell(colName),
			Sex:         cell(colSex),
			AgeCategory: cell(colAgeCategory),
			State:       cell(colState),
			Disease:     cell(colDisease),
			Insurance:   cell(colInsurance),
		}

		var ok bool
		if record.JoinedDate, ok = parseDate(cell(colJoinedDate)); !ok {
			report.DateWarnings++
			logDateWarning(logger, line, id, "JoinedDate", cell(colJoinedDate))
		}
		if record.CheckoutDate, ok = parseDate(cell(colCheckoutDate)); !ok {
			report.DateWarnings++
			logDateWarning(logger, line, id, "CheckoutDate", cell(colCheckoutDate))
		}

		store.byID[id] = len(store.records)
		store.records = append(store.records, record)
		store.folded = append(store.folded, fold.String(record.Name))
	}

	report.Loaded = len(store.records)
	return store, report, nil
}

func logDateWarning(logger zerolog.Logger, line int, id int64, column, value string) {
	logger.Warn().
		Int("line", line).
		Int64("patient_id", id).
		Str("column", column).
		Str("value", value).
		Msg("unparseable date coerced to null")
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := normalizeColumn(name)
		if _, seen := columns[key]; !seen {
			columns[key] = i
		}
	}

	missing := lo.Filter(requiredColumns, func(col string, _ int) bool {
		_, ok := columns[col]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func normalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(name)
}

// parseID accepts plain integers and whole floats such as "101.0", which
// spreadsheet exports tend to produce.
func parseID(raw string) (int64, error) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return int64(f), nil
}

// Get returns the record with the exact id.
func (s *Store) Get(id int64) (model.PatientRecord, bool) {
	idx, ok := s.byID[id]
	if !ok {
		return model.PatientRecord{}, false
	}
	return s.records[idx], true
}

// SearchByName matches fragment case-insensitively against names, in file
// order. An empty fragment matches nothing.
func (s *Store) SearchByName(fragment string) []model.PatientMatch {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return []model.PatientMatch{}
	}
	needle := cases.Fold().String(fragment)

	matches := make([]model.PatientMatch, 0)
	for i, name := range s.folded {
		if strings.Contains(name, needle) {
			matches = append(matches, toMatch(s.records[i]))
		}
	}
	return matches
}

// List pages through every record in file order and returns the total count.
func (s *Store) List(offset, limit int) ([]model.PatientMatch, int) {
	total := len(s.records)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []model.PatientMatch{}, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return lo.Map(s.records[offset:end], func(r model.PatientRecord, _ int) model.PatientMatch {
		return toMatch(r)
	}), total
}

func (s *Store) Len() int {
	return len(s.records)
}

func toMatch(r model.PatientRecord) model.PatientMatch {
	return model.PatientMatch{ID: r.ID, Name: r.Name}
}
