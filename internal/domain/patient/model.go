package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound             = errors.New("patient not found")
	ErrInvalid              = errors.New("invalid patient")
	ErrConfirmationRequired = errors.New("deleting a patient requires confirm=true")
)

type Gender string

const (
	GenderUnspecified Gender = "NAO_INFORMADO"
	GenderMale        Gender = "MASCULINO"
	GenderFemale      Gender = "FEMININO"
	GenderOther       Gender = "OUTRO"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderUnspecified, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of DateOfBirth.
const DateLayout = "2006-01-02"

// Patient is owned by the professional account that registered it.
type Patient struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	Gender      Gender    `json:"gender"`
	Phone       string    `json:"phone,omitempty"`
	Email       string    `json:"email,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Age in whole years at the given instant, or -1 without a birth date.
func (p *Patient) Age(at time.Time) int {
	dob, err := time.Parse(DateLayout, p.DateOfBirth)
	if err != nil {
		return -1
	}
	years := at.Year() - dob.Year()
	if at.YearDay() < dob.YearDay() {
		years--
	}
	return years
}

// ReportSummary is the row shown in a patient's report list.
type ReportSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
