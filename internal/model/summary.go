package model

import (
	"fmt"
	"strings"
	"time"
)

// DetailLevel selects how long a generated summary should be.
type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailDetailed DetailLevel = "detailed"
)

// ParseDetailLevel accepts "brief" or "detailed" in any case. Empty input
// defaults to brief.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch DetailLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "", DetailBrief:
		return DetailBrief, nil
	case DetailDetailed:
		return DetailDetailed, nil
	default:
		return "", fmt.Errorf("unknown detail level %q", s)
	}
}

// SummaryRecord is the latest doctor-approved summary for a patient.
type SummaryRecord struct {
	PatientID int64  `db:"patient_id" json:"patient_id"`
	Name      string `db:"name" json:"name"`
	Summary   string `db:"summary" json:"summary"`
	Approved  bool   `db:"approved_by_doctor" json:"approved_by_doctor"`
}

// Draft is a generated summary awaiting approval.
type Draft struct {
	ID          string      `json:"draft_id"`
	PatientID   int64       `json:"patient_id"`
	DetailLevel DetailLevel `json:"detail_level"`
	Notes       string      `json:"notes,omitempty"`
	Summary     string      `json:"summary"`
	CreatedAt   time.Time   `json:"created_at"`
}

type GenerateSummaryRequest struct {
	DetailLevel string `json:"detail_level"`
	Notes       string `json:"notes" binding:"max=4000"`
}

type ApproveSummaryRequest struct {
	DraftID  string `json:"draft_id" binding:"required,uuid"`
	Approved bool   `json:"approved"`
}

type ExportRequest struct {
	DraftID     string `json:"draft_id" binding:"omitempty,uuid"`
	UseApproved bool   `json:"use_approved"`
}

// SummaryApprovedEvent is published after an approved summary is stored.
type SummaryApprovedEvent struct {
	PatientID  int64     `json:"patient_id"`
	Name       string    `json:"name"`
	ApprovedAt time.Time `json:"approved_at"`
}
