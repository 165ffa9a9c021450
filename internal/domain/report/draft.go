package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identification is copied from the patient record when an editor opens.
type Identification struct {
	PatientID   uuid.UUID `json:"patient_id"`
	FullName    string    `json:"full_name"`
	DateOfBirth string    `json:"date_of_birth,omitempty"`
	Gender      string    `json:"gender"`
}

type History struct {
	PregnancyComplications  string `json:"pregnancy_complications"`
	DevelopmentalMilestones string `json:"developmental_milestones"`
	MedicalHistory          string `json:"medical_history"`
	FamilyHistory           string `json:"family_history"`
}

type ClinicalObservation struct {
	VerbalCommunication    string `json:"verbal_communication"`
	NonverbalCommunication string `json:"nonverbal_communication"`
	SocialInteraction      string `json:"social_interaction"`
	RepetitiveBehaviors    string `json:"repetitive_behaviors"`
	SensorySensitivities   string `json:"sensory_sensitivities"`
}

// Instrument ids are either persisted row ids or temp-<unix millis> for
// entries added since the last load.
type Instrument struct {
	ID              string `json:"id"`
	InstrumentName  string `json:"instrument_name"`
	ApplicationDate string `json:"application_date"`
	ScoresResults   string `json:"scores_results"`
}

const tempIDPrefix = "temp-"

func IsTempID(id string) bool { return strings.HasPrefix(id, tempIDPrefix) }

// Criterion is a DSM-5 ASD criterion code.
type Criterion string

const (
	CriterionA1 Criterion = "A1"
	CriterionA2 Criterion = "A2"
	CriterionA3 Criterion = "A3"
	CriterionB1 Criterion = "B1"
	CriterionB2 Criterion = "B2"
	CriterionB3 Criterion = "B3"
	CriterionB4 Criterion = "B4"
)

// Criteria lists every code in display order.
var Criteria = []Criterion{CriterionA1, CriterionA2, CriterionA3, CriterionB1, CriterionB2, CriterionB3, CriterionB4}

func (c Criterion) Valid() bool {
	for _, k := range Criteria {
		if c == k {
			return true
		}
	}
	return false
}

func (c Criterion) Group() byte { return c[0] }

type DiagnosticCriteria struct {
	A1                    bool   `json:"dsm5_A1"`
	A2                    bool   `json:"dsm5_A2"`
	A3                    bool   `json:"dsm5_A3"`
	B1                    bool   `json:"dsm5_B1"`
	B2                    bool   `json:"dsm5_B2"`
	B3                    bool   `json:"dsm5_B3"`
	B4                    bool   `json:"dsm5_B4"`
	DifferentialDiagnosis string `json:"differential_diagnosis"`
	Comorbidities         string `json:"comorbidities"`
}

func (d *DiagnosticCriteria) flag(c Criterion) *bool {
	switch c {
	case CriterionA1:
		return &d.A1
	case CriterionA2:
		return &d.A2
	case CriterionA3:
		return &d.A3
	case CriterionB1:
		return &d.B1
	case CriterionB2:
		return &d.B2
	case CriterionB3:
		return &d.B3
	case CriterionB4:
		return &d.B4
	}
	return nil
}

// Met reports whether criterion c is marked.
func (d DiagnosticCriteria) Met(c Criterion) bool {
	if p := d.flag(c); p != nil {
		return *p
	}
	return false
}

// MetCriteria returns the marked codes in display order.
func (d DiagnosticCriteria) MetCriteria() []Criterion {
	var out []Criterion
	for _, c := range Criteria {
		if d.Met(c) {
			out = append(out, c)
		}
	}
	return out
}

// Draft is the in-memory report. All five sections exist from the start,
// zero-valued, whether or not anything has been persisted.
type Draft struct {
	Identification      Identification      `json:"identification"`
	History             History             `json:"history"`
	ClinicalObservation ClinicalObservation `json:"clinical_observation"`
	AppliedInstruments  []Instrument        `json:"applied_instruments"`
	DiagnosticCriteria  DiagnosticCriteria  `json:"diagnostic_criteria"`
}

func NewDraft(id Identification) Draft {
	return Draft{Identification: id, AppliedInstruments: []Instrument{}}
}

// Clone returns a copy that shares no memory with d.
func (d Draft) Clone() Draft {
	out := d
	out.AppliedInstruments = make([]Instrument, len(d.AppliedInstruments))
	copy(out.AppliedInstruments, d.AppliedInstruments)
	return out
}

func (d *Draft) instrument(id string) int {
	for i := range d.AppliedInstruments {
		if d.AppliedInstruments[i].ID == id {
			return i
		}
	}
	return -1
}

// NewInstrumentID derives a temporary id from now, bumping the millisecond
// value until it is unused in d.
func (d *Draft) NewInstrumentID(now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := tempIDPrefix + strconv.FormatInt(ms, 10)
		if d.instrument(id) < 0 {
			return id
		}
		ms++
	}
}

// Apply runs one update against d. On error d is unchanged.
func (d *Draft) Apply(u Update) error {
	if u == nil {
		return fmt.Errorf("%w: empty update", ErrInvalidUpdate)
	}
	return u.apply(d)
}
