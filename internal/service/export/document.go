package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jwalitptl/discharge-api/internal/model"
)

const Title = "Patient Discharge Summary"

type Field struct {
	Label string
	Value string
}

func (f Field) String() string {
	return f.Label + ": " + f.Value
}

// Document is the fixed layout of an exported summary.
type Document struct {
	Title  string
	Fields []Field
	Body   string
}

// Layout places the record fields and summary text in their fixed order.
func Layout(record *model.PatientRecord, summary string) Document {
	return Document{
		Title: Title,
		Fields: []Field{
			{Label: "Name", Value: record.Name},
			{Label: "Sex", Value: record.Sex},
			{Label: "Age Category", Value: record.AgeCategory},
			{Label: "Diagnosis", Value: record.Disease},
			{Label: "Insurance", Value: record.Insurance},
		},
		Body: "Discharge Summary:\n" + summary,
	}
}

// FileName derives the artifact name from the patient and summary text, so
// identical exports share a name and different ones never collide.
func FileName(record *model.PatientRecord, summary string) string {
	sum := sha256.Sum256([]byte(summary))
	return fmt.Sprintf("discharge_summary_%d_%s.pdf", record.ID, hex.EncodeToString(sum[:])[:12])
}
