package report

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/blua/laudos/internal/platform/telemetry"
)

// Save steps, in execution order.
const (
	StepCreateReport  = "create_report"
	StepSections      = "upsert_sections"
	StepInstruments   = "replace_instruments"
	StepCriteria      = "replace_criteria"
	StepDifferentials = "replace_differentials"
)

// SaveError names the step that failed. Steps before it stay committed.
type SaveError struct {
	Step     string
	ReportID uuid.UUID
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("save draft: step %s: %v", e.Step, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Synchronizer moves drafts between an editor and the Store.
type Synchronizer struct {
	store   Store
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func NewSynchronizer(store Store, logger zerolog.Logger, m *telemetry.Metrics) *Synchronizer {
	return &Synchronizer{store: store, logger: logger.With().Str("component", "draft-sync").Logger(), metrics: m}
}

// Loaded is the result of Load. Report is nil for a fresh draft.
type Loaded struct {
	Report *Report
	Draft  Draft
}

// Load fetches a report and its five sections concurrently and rebuilds the
// draft. With a nil reportID it returns fresh defaults. A report that does
// not belong to owner and patient is reported as ErrNotFound.
func (s *Synchronizer) Load(ctx context.Context, owner uuid.UUID, ident Identification, reportID *uuid.UUID) (*Loaded, error) {
	if reportID == nil {
		s.metrics.DraftLoaded("fresh")
		return &Loaded{Draft: NewDraft(ident)}, nil
	}
	id := *reportID

	var (
		rep   *Report
		hist  *History
		obs   *ClinicalObservation
		insts []Instrument
		crit  []CriterionRow
		diffs []DifferentialRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { rep, err = s.store.GetReport(gctx, id); return })
	g.Go(func() (err error) { hist, err = s.store.GetHistory(gctx, id); return })
	g.Go(func() (err error) { obs, err = s.store.GetObservation(gctx, id); return })
	g.Go(func() (err error) { insts, err = s.store.ListInstruments(gctx, id); return })
	g.Go(func() (err error) { crit, err = s.store.ListCriteria(gctx, id); return })
	g.Go(func() (err error) { diffs, err = s.store.ListDifferentials(gctx, id); return })
	if err := g.Wait(); err != nil {
		s.metrics.DraftLoaded("failed")
		s.logger.Error().Err(err).Str("report_id", id.String()).Msg("draft load failed")
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	if rep.ProfessionalID != owner || rep.PatientID != ident.PatientID {
		s.metrics.DraftLoaded("failed")
		return nil, ErrNotFound
	}

	d := NewDraft(ident)
	if hist != nil {
		d.History = *hist
	}
	if obs != nil {
		d.ClinicalObservation = *obs
	}
	if insts != nil {
		d.AppliedInstruments = insts
	}
	for _, r := range crit {
		if p := d.DiagnosticCriteria.flag(r.Code); p != nil {
			*p = r.IsMet
		}
	}
	d.DiagnosticCriteria.DifferentialDiagnosis, d.DiagnosticCriteria.Comorbidities = conditionTexts(diffs)

	s.metrics.DraftLoaded("ok")
	s.logger.Debug().Str("report_id", id.String()).Int("instruments", len(d.AppliedInstruments)).Msg("draft loaded")
	return &Loaded{Report: rep, Draft: d}, nil
}

// SaveInput is a snapshot of an editor taken when the save started.
type SaveInput struct {
	ReportID *uuid.UUID
	Owner    uuid.UUID
	Draft    Draft
}

// Save writes the draft in five ordered steps and stops at the first
// failure without undoing earlier steps. The returned id is valid whenever
// step one succeeded, including when a later step fails.
func (s *Synchronizer) Save(ctx context.Context, in SaveInput) (uuid.UUID, error) {
	var id uuid.UUID
	fail := func(step string, err error) (uuid.UUID, error) {
		s.metrics.DraftSaved("failed")
		s.metrics.SaveStepFailed(step)
		s.logger.Error().Err(err).Str("step", step).Str("report_id", id.String()).Msg("draft save failed")
		return id, &SaveError{Step: step, ReportID: id, Err: err}
	}

	if in.ReportID != nil {
		id = *in.ReportID
	} else {
		r := &Report{
			PatientID:      in.Draft.Identification.PatientID,
			ProfessionalID: in.Owner,
			Title:          TitleFor(in.Draft.Identification.FullName),
			Status:         StatusDraft,
		}
		if err := s.store.CreateReport(ctx, r); err != nil {
			return fail(StepCreateReport, err)
		}
		id = r.ID
	}

	d := in.Draft
	if err := s.store.UpsertHistory(ctx, id, d.History); err != nil {
		return fail(StepSections, err)
	}
	if err := s.store.UpsertObservation(ctx, id, d.ClinicalObservation); err != nil {
		return fail(StepSections, err)
	}
	if err := s.store.ReplaceInstruments(ctx, id, d.AppliedInstruments); err != nil {
		return fail(StepInstruments, err)
	}
	if err := s.store.ReplaceCriteria(ctx, id, d.DiagnosticCriteria.MetCriteria()); err != nil {
		return fail(StepCriteria, err)
	}
	if err := s.store.ReplaceDifferentials(ctx, id, conditionRows(d.DiagnosticCriteria)); err != nil {
		return fail(StepDifferentials, err)
	}

	s.metrics.DraftSaved("ok")
	s.logger.Info().Str("report_id", id.String()).Msg("draft saved")
	return id, nil
}
