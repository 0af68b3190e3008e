package model

import (
	"time"
)

// PatientRecord is one row of the patient file. Date fields are nil when the
// source cell could not be parsed.
type PatientRecord struct {
	ID           int64      `json:"patient_id"`
	Name         string     `json:"name"`
	Sex          string     `json:"sex"`
	AgeCategory  string     `json:"age_category"`
	State        string     `json:"state"`
	Disease      string     `json:"disease"`
	Insurance    string     `json:"insurance"`
	JoinedDate   *time.Time `json:"joined_date"`
	CheckoutDate *time.Time `json:"checkout_date"`
}

// PatientMatch is the (id, name) pair returned by search and listing.
type PatientMatch struct {
	ID   int64  `json:"patient_id"`
	Name string `json:"name"`
}

// LoadReport counts what happened while the patient file was read.
type LoadReport struct {
	Rows         int `json:"rows"`
	Loaded       int `json:"loaded"`
	DateWarnings int `json:"date_warnings"`
	SkippedRows  int `json:"skipped_rows"`
	DuplicateIDs int `json:"duplicate_ids"`
}

// Warnings returns the total number of data-quality warnings.
func (r LoadReport) Warnings() int {
	return r.DateWarnings + r.SkippedRows + r.DuplicateIDs
}
