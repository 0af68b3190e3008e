package summary

import (
	"fmt"

	"github.com/jwalitptl/discharge-api/internal/model"
)

const (
	DefaultBriefLength    = 100
	DefaultDetailedLength = 200
)

// LengthHints maps each detail level to the generator's max length.
type LengthHints struct {
	Brief    int
	Detailed int
}

func DefaultLengthHints() LengthHints {
	return LengthHints{Brief: DefaultBriefLength, Detailed: DefaultDetailedLength}
}

func (h LengthHints) For(level model.DetailLevel) int {
	if level == model.DetailDetailed {
		return h.Detailed
	}
	return h.Brief
}

// Validate requires brief summaries to be strictly shorter than detailed ones.
func (h LengthHints) Validate() error {
	if h.Brief <= 0 || h.Detailed <= 0 {
		return fmt.Errorf("length hints must be positive, got brief=%d detailed=%d", h.Brief, h.Detailed)
	}
	if h.Brief >= h.Detailed {
		return fmt.Errorf("brief length %d must be less than detailed length %d", h.Brief, h.Detailed)
	}
	return nil
}

// BuildPrompt renders the generation prompt for a record. Notes are inserted
// verbatim, including when empty.
func BuildPrompt(record *model.PatientRecord, notes string) string {
	return fmt.Sprintf(
		"%s is a %s patient aged %s years from %s. "+
			"The patient was diagnosed with %s and received treatment. "+
			"Insurance status: %s. Doctor's notes: %s.",
		record.Name, record.Sex, record.AgeCategory, record.State,
		record.Disease, record.Insurance, notes,
	)
}
