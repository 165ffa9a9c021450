//go:build integration

package integration

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blua/laudos/internal/domain/patient"
	"github.com/blua/laudos/internal/domain/profile"
	"github.com/blua/laudos/internal/domain/report"
)

func TestSynchronizerPG_SaveLoadRoundTrip(t *testing.T) {
	ctx, owner := asUser(t)
	patients := patient.NewService(patient.NewRepoPG(pool))
	pt := &patient.Patient{FullName: "Maria Souza", Gender: patient.GenderFemale}
	if err := patients.Create(ctx, pt); err != nil {
		t.Fatal(err)
	}

	ident := report.Identification{PatientID: pt.ID, FullName: pt.FullName, Gender: string(pt.Gender)}
	d := report.NewDraft(ident)
	for _, u := range []report.Update{
		report.HistoryUpdate{Field: report.MedicalHistory, Value: "Sem intercorrências"},
		report.ObservationUpdate{Field: report.SocialInteraction, Value: "Pouco contato visual"},
		report.AddInstrument{ID: "temp-1"},
		report.InstrumentUpdate{ID: "temp-1", Field: report.InstrumentName, Value: "ADOS-2"},
		report.CriterionUpdate{Criterion: report.CriterionA1, Met: true},
		report.CriterionUpdate{Criterion: report.CriterionB2, Met: true},
		report.CriteriaTextUpdate{Field: report.DifferentialDiagnosis, Value: "TDAH, Deficiência intelectual"},
	} {
		if err := d.Apply(u); err != nil {
			t.Fatal(err)
		}
	}

	syncer := report.NewSynchronizer(report.NewStorePG(pool), zerolog.Nop(), nil)
	id, err := syncer.Save(ctx, report.SaveInput{Owner: owner, Draft: d})
	if err != nil {
		t.Fatal(err)
	}

	l, err := syncer.Load(ctx, owner, ident, &id)
	if err != nil {
		t.Fatal(err)
	}
	if l.Report.Title != "Laudo de Maria Souza" || l.Report.Status != report.StatusDraft {
		t.Errorf("unexpected report row: %+v", l.Report)
	}
	got := l.Draft
	if got.History.MedicalHistory != "Sem intercorrências" {
		t.Errorf("history lost: %+v", got.History)
	}
	if len(got.AppliedInstruments) != 1 || got.AppliedInstruments[0].InstrumentName != "ADOS-2" {
		t.Fatalf("instruments lost: %+v", got.AppliedInstruments)
	}
	if report.IsTempID(got.AppliedInstruments[0].ID) {
		t.Error("a loaded instrument must carry its stored id")
	}
	if !got.DiagnosticCriteria.Met(report.CriterionA1) || !got.DiagnosticCriteria.Met(report.CriterionB2) ||
		got.DiagnosticCriteria.Met(report.CriterionA2) {
		t.Errorf("criteria lost: %+v", got.DiagnosticCriteria)
	}
	if got.DiagnosticCriteria.DifferentialDiagnosis != "TDAH, Deficiência intelectual" {
		t.Errorf("differentials lost: %q", got.DiagnosticCriteria.DifferentialDiagnosis)
	}

	// A second save replaces the child rows instead of appending.
	if err := got.Apply(report.RemoveInstrument{ID: got.AppliedInstruments[0].ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := syncer.Save(ctx, report.SaveInput{ReportID: &id, Owner: owner, Draft: got}); err != nil {
		t.Fatal(err)
	}
	l, err = syncer.Load(ctx, owner, ident, &id)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Draft.AppliedInstruments) != 0 {
		t.Errorf("expected instruments replaced, got %+v", l.Draft.AppliedInstruments)
	}

	summaries, err := patients.Reports(ctx, pt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].ID != id {
		t.Errorf("unexpected report list: %+v", summaries)
	}
}

func TestSynchronizerPG_LoadForeignReport(t *testing.T) {
	ctx, owner := asUser(t)
	patients := patient.NewService(patient.NewRepoPG(pool))
	pt := &patient.Patient{FullName: "João Lima"}
	if err := patients.Create(ctx, pt); err != nil {
		t.Fatal(err)
	}
	ident := report.Identification{PatientID: pt.ID, FullName: pt.FullName}
	syncer := report.NewSynchronizer(report.NewStorePG(pool), zerolog.Nop(), nil)
	id, err := syncer.Save(ctx, report.SaveInput{Owner: owner, Draft: report.NewDraft(ident)})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := syncer.Load(ctx, uuid.New(), ident, &id); !errors.Is(err, report.ErrNotFound) {
		t.Errorf("expected not found for another professional, got %v", err)
	}
}

func TestProfileRepoPG_Upsert(t *testing.T) {
	ctx, owner := asUser(t)
	svc := profile.NewService(profile.NewRepoPG(pool))

	v, err := svc.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Profile != nil {
		t.Fatalf("expected no stored profile yet, got %+v", v.Profile)
	}

	for _, crp := range []string{"CRP 06/12345", "CRP 06/99999"} {
		if err := svc.Save(ctx, &profile.Profile{Specialty: "Neuropsicologia", ProfessionalRegistry: crp}); err != nil {
			t.Fatal(err)
		}
	}
	v, err = svc.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Profile == nil || v.Profile.ID != owner || v.Profile.ProfessionalRegistry != "CRP 06/99999" {
		t.Errorf("unexpected profile: %+v", v.Profile)
	}
}
