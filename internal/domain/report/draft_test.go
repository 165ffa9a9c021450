package report

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNewDraft_AllSectionsPresent(t *testing.T) {
	d := NewDraft(testIdent())
	if d.AppliedInstruments == nil {
		t.Error("instrument list should be empty, not nil")
	}
	if d.DiagnosticCriteria.MetCriteria() != nil {
		t.Error("no criterion should be met on a fresh draft")
	}
	if d.Identification.FullName != testPatient.FullName {
		t.Errorf("identification not copied: %+v", d.Identification)
	}
}

func TestApply_SectionIsolation(t *testing.T) {
	updates := []Update{
		HistoryUpdate{Field: FamilyHistory, Value: "Tio com TEA"},
		ObservationUpdate{Field: NonverbalCommunication, Value: "Aponta pouco"},
		CriterionUpdate{Criterion: CriterionB3, Met: true},
		CriteriaTextUpdate{Field: Comorbidities, Value: "TDAH"},
	}
	for _, u := range updates {
		base := filledDraft(4)
		d := base.Clone()
		if err := d.Apply(u); err != nil {
			t.Fatalf("%T: %v", u, err)
		}
		switch u.(type) {
		case HistoryUpdate:
			d.History = base.History
		case ObservationUpdate:
			d.ClinicalObservation = base.ClinicalObservation
		case CriterionUpdate, CriteriaTextUpdate:
			d.DiagnosticCriteria = base.DiagnosticCriteria
		}
		if !reflect.DeepEqual(d, base) {
			t.Errorf("%T changed another section", u)
		}
	}
}

func TestApply_ReplacesOnlyOneField(t *testing.T) {
	d := filledDraft(1)
	if err := d.Apply(HistoryUpdate{Field: PregnancyComplications, Value: "Prematuro"}); err != nil {
		t.Fatal(err)
	}
	if d.History.MedicalHistory != "Sem intercorrências" {
		t.Error("sibling field overwritten")
	}
	if d.History.PregnancyComplications != "Prematuro" {
		t.Error("field not updated")
	}
}

func TestInstruments_AddRemoveRoundTrip(t *testing.T) {
	d := filledDraft(3)
	before := d.Clone()
	id := d.NewInstrumentID(time.UnixMilli(1700000000000))
	if err := d.Apply(AddInstrument{ID: id}); err != nil {
		t.Fatal(err)
	}
	if len(d.AppliedInstruments) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(d.AppliedInstruments))
	}
	if err := d.Apply(RemoveInstrument{ID: id}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.AppliedInstruments, before.AppliedInstruments) {
		t.Errorf("round trip changed the list: %+v", d.AppliedInstruments)
	}
}

func TestNewInstrumentID_UniqueWithinSameMillisecond(t *testing.T) {
	d := NewDraft(testIdent())
	now := time.UnixMilli(1700000000000)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id := d.NewInstrumentID(now)
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
		if err := d.Apply(AddInstrument{ID: id}); err != nil {
			t.Fatal(err)
		}
	}
	if d.AppliedInstruments[0].ID != "temp-1700000000000" || d.AppliedInstruments[1].ID != "temp-1700000000001" {
		t.Errorf("unexpected ids: %+v", d.AppliedInstruments)
	}
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		u    Update
	}{
		{"nil", nil},
		{"unknown history field", HistoryUpdate{Field: "age"}},
		{"unknown observation field", ObservationUpdate{Field: "x"}},
		{"unknown criterion", CriterionUpdate{Criterion: "C1", Met: true}},
		{"unknown criteria text", CriteriaTextUpdate{Field: "notes"}},
		{"duplicate instrument", AddInstrument{ID: "temp-1"}},
		{"instrument without id", AddInstrument{}},
		{"stored id on a new instrument", AddInstrument{ID: "8f14e45f-ceea-467f-a0e6-2b3c1d9e0a11"}},
		{"remove missing", RemoveInstrument{ID: "temp-9"}},
		{"update missing", InstrumentUpdate{ID: "temp-9", Field: InstrumentName}},
		{"unknown instrument field", InstrumentUpdate{ID: "temp-1", Field: "score"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := filledDraft(3)
			before := d.Clone()
			if err := d.Apply(tt.u); !errors.Is(err, ErrInvalidUpdate) {
				t.Errorf("expected ErrInvalidUpdate, got %v", err)
			}
			if !reflect.DeepEqual(d, before) {
				t.Error("draft changed by a rejected update")
			}
		})
	}
}

func TestInstrumentUpdate(t *testing.T) {
	d := filledDraft(3)
	if err := d.Apply(InstrumentUpdate{ID: "temp-1", Field: ScoresResults, Value: "Risco alto"}); err != nil {
		t.Fatal(err)
	}
	if d.AppliedInstruments[0].ScoresResults != "Risco alto" || d.AppliedInstruments[0].InstrumentName != "M-CHAT-R/F" {
		t.Errorf("unexpected instrument: %+v", d.AppliedInstruments[0])
	}
}

func TestClone_DoesNotShareInstruments(t *testing.T) {
	d := filledDraft(3)
	c := d.Clone()
	c.AppliedInstruments[0].InstrumentName = "ADOS-2"
	if d.AppliedInstruments[0].InstrumentName != "M-CHAT-R/F" {
		t.Error("clone shares instrument storage")
	}
}

func TestDecodeUpdate(t *testing.T) {
	tests := []struct {
		body string
		want Update
	}{
		{`{"type":"history","field":"medical_history","value":"Asma"}`, HistoryUpdate{Field: MedicalHistory, Value: "Asma"}},
		{`{"type":"clinical_observation","field":"verbal_communication","value":"Ecolalia"}`, ObservationUpdate{Field: VerbalCommunication, Value: "Ecolalia"}},
		{`{"type":"criterion","criterion":"A2","value":true}`, CriterionUpdate{Criterion: CriterionA2, Met: true}},
		{`{"type":"criteria_text","field":"differential_diagnosis","value":"TDAH"}`, CriteriaTextUpdate{Field: DifferentialDiagnosis, Value: "TDAH"}},
		{`{"type":"add_instrument"}`, AddInstrument{}},
		{`{"type":"add_instrument","id":"temp-42"}`, AddInstrument{ID: "temp-42"}},
		{`{"type":"remove_instrument","id":"temp-1"}`, RemoveInstrument{ID: "temp-1"}},
		{`{"type":"instrument","id":"temp-1","field":"application_date","value":"2026-01-10"}`, InstrumentUpdate{ID: "temp-1", Field: ApplicationDate, Value: "2026-01-10"}},
	}
	for _, tt := range tests {
		got, err := DecodeUpdate([]byte(tt.body))
		if err != nil {
			t.Errorf("%s: %v", tt.body, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %#v, want %#v", tt.body, got, tt.want)
		}
	}
}

func TestDecodeUpdate_Rejects(t *testing.T) {
	for _, body := range []string{
		`{"type":"identification","field":"full_name","value":"x"}`,
		`{"type":"criterion","criterion":"A9","value":true}`,
		`{"type":"criterion","criterion":"A1","value":"yes"}`,
		`{"type":"history","field":"medical_history","value":true}`,
		`not json`,
		`{"type":"add_instrument","id":"8f14e45f-ceea-467f-a0e6-2b3c1d9e0a11"}`,
	} {
		if _, err := DecodeUpdate([]byte(body)); !errors.Is(err, ErrInvalidUpdate) {
			t.Errorf("%s: expected ErrInvalidUpdate, got %v", body, err)
		}
	}
}
