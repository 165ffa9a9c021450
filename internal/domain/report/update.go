package report

import (
	"encoding/json"
	"fmt"
)

// Update is one edit to a Draft. The set of variants is closed: each
// section has its own message type with a typed field selector.
type Update interface {
	apply(d *Draft) error
}

type HistoryField string

const (
	PregnancyComplications  HistoryField = "pregnancy_complications"
	DevelopmentalMilestones HistoryField = "developmental_milestones"
	MedicalHistory          HistoryField = "medical_history"
	FamilyHistory           HistoryField = "family_history"
)

type HistoryUpdate struct {
	Field HistoryField
	Value string
}

func (u HistoryUpdate) apply(d *Draft) error {
	h := &d.History
	switch u.Field {
	case PregnancyComplications:
		h.PregnancyComplications = u.Value
	case DevelopmentalMilestones:
		h.DevelopmentalMilestones = u.Value
	case MedicalHistory:
		h.MedicalHistory = u.Value
	case FamilyHistory:
		h.FamilyHistory = u.Value
	default:
		return fmt.Errorf("%w: unknown history field %q", ErrInvalidUpdate, u.Field)
	}
	return nil
}

type ObservationField string

const (
	VerbalCommunication    ObservationField = "verbal_communication"
	NonverbalCommunication ObservationField = "nonverbal_communication"
	SocialInteraction      ObservationField = "social_interaction"
	RepetitiveBehaviors    ObservationField = "repetitive_behaviors"
	SensorySensitivities   ObservationField = "sensory_sensitivities"
)

type ObservationUpdate struct {
	Field ObservationField
	Value string
}

func (u ObservationUpdate) apply(d *Draft) error {
	o := &d.ClinicalObservation
	switch u.Field {
	case VerbalCommunication:
		o.VerbalCommunication = u.Value
	case NonverbalCommunication:
		o.NonverbalCommunication = u.Value
	case SocialInteraction:
		o.SocialInteraction = u.Value
	case RepetitiveBehaviors:
		o.RepetitiveBehaviors = u.Value
	case SensorySensitivities:
		o.SensorySensitivities = u.Value
	default:
		return fmt.Errorf("%w: unknown observation field %q", ErrInvalidUpdate, u.Field)
	}
	return nil
}

type CriterionUpdate struct {
	Criterion Criterion
	Met       bool
}

func (u CriterionUpdate) apply(d *Draft) error {
	p := d.DiagnosticCriteria.flag(u.Criterion)
	if p == nil {
		return fmt.Errorf("%w: unknown criterion %q", ErrInvalidUpdate, u.Criterion)
	}
	*p = u.Met
	return nil
}

type CriteriaTextField string

const (
	DifferentialDiagnosis CriteriaTextField = "differential_diagnosis"
	Comorbidities         CriteriaTextField = "comorbidities"
)

type CriteriaTextUpdate struct {
	Field CriteriaTextField
	Value string
}

func (u CriteriaTextUpdate) apply(d *Draft) error {
	switch u.Field {
	case DifferentialDiagnosis:
		d.DiagnosticCriteria.DifferentialDiagnosis = u.Value
	case Comorbidities:
		d.DiagnosticCriteria.Comorbidities = u.Value
	default:
		return fmt.Errorf("%w: unknown criteria field %q", ErrInvalidUpdate, u.Field)
	}
	return nil
}

// AddInstrument appends a blank instrument. ID must be an unused temporary
// id; editors fill it from Draft.NewInstrumentID. Stored ids only enter a
// draft through Load.
type AddInstrument struct {
	ID string
}

func (u AddInstrument) apply(d *Draft) error {
	if u.ID == "" {
		return fmt.Errorf("%w: instrument id is required", ErrInvalidUpdate)
	}
	if !IsTempID(u.ID) {
		return fmt.Errorf("%w: new instrument id %q must start with %q", ErrInvalidUpdate, u.ID, tempIDPrefix)
	}
	if d.instrument(u.ID) >= 0 {
		return fmt.Errorf("%w: duplicate instrument id %q", ErrInvalidUpdate, u.ID)
	}
	d.AppliedInstruments = append(d.AppliedInstruments, Instrument{ID: u.ID})
	return nil
}

type RemoveInstrument struct {
	ID string
}

func (u RemoveInstrument) apply(d *Draft) error {
	i := d.instrument(u.ID)
	if i < 0 {
		return fmt.Errorf("%w: no instrument %q", ErrInvalidUpdate, u.ID)
	}
	list := make([]Instrument, 0, len(d.AppliedInstruments)-1)
	list = append(list, d.AppliedInstruments[:i]...)
	d.AppliedInstruments = append(list, d.AppliedInstruments[i+1:]...)
	return nil
}

type InstrumentField string

const (
	InstrumentName  InstrumentField = "instrument_name"
	ApplicationDate InstrumentField = "application_date"
	ScoresResults   InstrumentField = "scores_results"
)

type InstrumentUpdate struct {
	ID    string
	Field InstrumentField
	Value string
}

func (u InstrumentUpdate) apply(d *Draft) error {
	i := d.instrument(u.ID)
	if i < 0 {
		return fmt.Errorf("%w: no instrument %q", ErrInvalidUpdate, u.ID)
	}
	in := &d.AppliedInstruments[i]
	switch u.Field {
	case InstrumentName:
		in.InstrumentName = u.Value
	case ApplicationDate:
		in.ApplicationDate = u.Value
	case ScoresResults:
		in.ScoresResults = u.Value
	default:
		return fmt.Errorf("%w: unknown instrument field %q", ErrInvalidUpdate, u.Field)
	}
	return nil
}

// Wire tags of the update variants.
const (
	TagHistory          = "history"
	TagObservation      = "clinical_observation"
	TagCriterion        = "criterion"
	TagCriteriaText     = "criteria_text"
	TagAddInstrument    = "add_instrument"
	TagRemoveInstrument = "remove_instrument"
	TagInstrument       = "instrument"
)

type envelope struct {
	Type      string          `json:"type"`
	Field     string          `json:"field"`
	Criterion string          `json:"criterion"`
	ID        string          `json:"id"`
	Value     json.RawMessage `json:"value"`
}

// DecodeUpdate parses a tagged update such as
//
//	{"type":"history","field":"medical_history","value":"..."}
//	{"type":"criterion","criterion":"A1","value":true}
//	{"type":"add_instrument"}
//
// Unknown tags, and values of the wrong JSON type, are rejected. Field
// names are checked when the update is applied.
func DecodeUpdate(data []byte) (Update, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	switch env.Type {
	case TagHistory:
		v, err := env.text()
		return HistoryUpdate{Field: HistoryField(env.Field), Value: v}, err
	case TagObservation:
		v, err := env.text()
		return ObservationUpdate{Field: ObservationField(env.Field), Value: v}, err
	case TagCriterion:
		var met bool
		if err := json.Unmarshal(env.Value, &met); err != nil {
			return nil, fmt.Errorf("%w: criterion value must be a boolean", ErrInvalidUpdate)
		}
		c := Criterion(env.Criterion)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown criterion %q", ErrInvalidUpdate, env.Criterion)
		}
		return CriterionUpdate{Criterion: c, Met: met}, nil
	case TagCriteriaText:
		v, err := env.text()
		return CriteriaTextUpdate{Field: CriteriaTextField(env.Field), Value: v}, err
	case TagAddInstrument:
		if env.ID != "" && !IsTempID(env.ID) {
			return nil, fmt.Errorf("%w: new instrument id %q must start with %q", ErrInvalidUpdate, env.ID, tempIDPrefix)
		}
		return AddInstrument{ID: env.ID}, nil
	case TagRemoveInstrument:
		return RemoveInstrument{ID: env.ID}, nil
	case TagInstrument:
		v, err := env.text()
		return InstrumentUpdate{ID: env.ID, Field: InstrumentField(env.Field), Value: v}, err
	}
	return nil, fmt.Errorf("%w: unknown update type %q", ErrInvalidUpdate, env.Type)
}

func (e envelope) text() (string, error) {
	var s string
	if len(e.Value) == 0 {
		return "", nil
	}
	if err := json.Unmarshal(e.Value, &s); err != nil {
		return "", fmt.Errorf("%w: %s value must be a string", ErrInvalidUpdate, e.Type)
	}
	return s, nil
}
