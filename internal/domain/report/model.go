package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("report not found")
	ErrEditorNotFound = errors.New("editor session not found, go back and try again")
	ErrInvalidUpdate  = errors.New("invalid draft update")
	ErrIncomplete     = errors.New("report is not complete enough")
	ErrBusy           = errors.New("a save or generation is already in progress")
	ErrWebhook        = errors.New("final report delivery failed")
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusComplete Status = "complete"
)

// Report is the row that owns the five draft sections.
type Report struct {
	ID             uuid.UUID `json:"id"`
	PatientID      uuid.UUID `json:"patient_id"`
	ProfessionalID uuid.UUID `json:"professional_id"`
	Title          string    `json:"title"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TitleFor derives the report title from the patient's name.
func TitleFor(patientName string) string {
	return "Laudo de " + patientName
}

type DiagnosisType string

const (
	TypeDifferential DiagnosisType = "differential"
	TypeComorbidity  DiagnosisType = "comorbidity"
)

// DifferentialRow is one comma-separated token of the differential or
// comorbidity text.
type DifferentialRow struct {
	Type          DiagnosisType `json:"type"`
	ConditionName string        `json:"condition_name"`
	Position      int           `json:"position"`
}

// CriterionRow exists only for criteria marked met.
type CriterionRow struct {
	Code  Criterion `json:"criterion_code"`
	IsMet bool      `json:"is_met"`
}
