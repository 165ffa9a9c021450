package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blua/laudos/internal/domain/patient"
	"github.com/blua/laudos/internal/domain/profile"
	"github.com/blua/laudos/internal/platform/telemetry"
	"github.com/blua/laudos/internal/platform/webhook"
)

// EventFinalReport is the webhook event type of a generated report.
const EventFinalReport = "report.final"

// RedirectAfterGenerate is where clients go once a report is complete.
const RedirectAfterGenerate = "/patients"

// Sender delivers one payload to the final-report endpoint.
type Sender interface {
	Send(ctx context.Context, ev webhook.Event) (*webhook.Delivery, error)
}

// ProfileLookup resolves the professional behind the request context.
type ProfileLookup interface {
	Lookup(ctx context.Context) (*profile.View, error)
}

type Preview struct {
	Patient  *patient.Patient `json:"patient"`
	ReportID *uuid.UUID       `json:"report_id"`
	Draft    Draft            `json:"report_data"`
	Progress Progress         `json:"progress"`
	Criteria CriteriaSummary  `json:"criteria"`
}

type Metadata struct {
	ReportID    uuid.UUID       `json:"report_id"`
	Title       string          `json:"title"`
	GeneratedAt time.Time       `json:"generated_at"`
	Progress    Progress        `json:"progress"`
	Criteria    CriteriaSummary `json:"criteria"`
}

// FinalPayload is the body posted to the final-report endpoint.
type FinalPayload struct {
	PatientDetails      *patient.Patient `json:"patient_details"`
	ReportData          Draft            `json:"report_data"`
	ProfessionalDetails *profile.View    `json:"professional_details"`
	ReportMetadata      Metadata         `json:"report_metadata"`
}

type Generated struct {
	ReportID   uuid.UUID `json:"report_id"`
	Status     Status    `json:"status"`
	DeliveryID string    `json:"delivery_id"`
	Redirect   string    `json:"redirect"`
}

// Pipeline gates previews and final generation on draft completion and
// hands finished reports to the external endpoint.
type Pipeline struct {
	sync     *Synchronizer
	store    Store
	sender   Sender
	profiles ProfileLookup
	metrics  *telemetry.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPipeline(sync *Synchronizer, store Store, sender Sender, profiles ProfileLookup, logger zerolog.Logger, m *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		sync:     sync,
		store:    store,
		sender:   sender,
		profiles: profiles,
		metrics:  m,
		logger:   logger.With().Str("component", "submission").Logger(),
		now:      time.Now,
	}
}

// Preview returns the assembled report once the draft is at least
// PreviewThreshold percent complete.
func (p *Pipeline) Preview(e *Editor, pt *patient.Patient) (*Preview, error) {
	v := e.View()
	if !v.Progress.AllowsPreview() {
		p.metrics.GateRejected("preview")
		return nil, fmt.Errorf("%w: %d%% complete, preview needs %d%%", ErrIncomplete, v.Progress.Percent, PreviewThreshold)
	}
	return &Preview{Patient: pt, ReportID: v.ReportID, Draft: v.Draft, Progress: v.Progress, Criteria: v.Criteria}, nil
}

// Generate sends the final report. Below FinalThreshold nothing leaves the
// process. An untracked or dirty draft is saved first so the stored report
// matches what is sent. The report becomes complete only after the
// endpoint accepted the payload; a failed send leaves its status alone.
func (p *Pipeline) Generate(ctx context.Context, e *Editor, pt *patient.Patient) (*Generated, error) {
	snap, err := e.begin(p.now())
	if err != nil {
		return nil, err
	}

	prog := Evaluate(snap.draft)
	if !prog.AllowsFinal() {
		e.release()
		p.metrics.GateRejected("final")
		return nil, fmt.Errorf("%w: %d%% complete, final report needs %d%%", ErrIncomplete, prog.Percent, FinalThreshold)
	}

	var id uuid.UUID
	if snap.reportID != nil {
		id = *snap.reportID
	}
	if snap.reportID == nil || snap.dirty {
		id, err = p.sync.Save(ctx, SaveInput{ReportID: snap.reportID, Owner: e.Owner, Draft: snap.draft})
		e.recordSave(snap, id, err)
		if err != nil {
			e.release()
			return nil, err
		}
	}

	prof, err := p.profiles.Lookup(ctx)
	if err != nil {
		e.release()
		return nil, fmt.Errorf("load professional profile: %w", err)
	}

	payload := FinalPayload{
		PatientDetails:      pt,
		ReportData:          snap.draft,
		ProfessionalDetails: prof,
		ReportMetadata: Metadata{
			ReportID:    id,
			Title:       TitleFor(pt.FullName),
			GeneratedAt: p.now().UTC(),
			Progress:    prog,
			Criteria:    SummarizeCriteria(snap.draft.DiagnosticCriteria),
		},
	}
	del, err := p.sender.Send(ctx, webhook.Event{ID: id.String(), Type: EventFinalReport, Owner: e.Owner.String(), Payload: payload})
	if err != nil {
		e.release()
		return nil, fmt.Errorf("%w: %v", ErrWebhook, err)
	}

	if err := p.store.SetStatus(ctx, id, StatusComplete); err != nil {
		e.release()
		p.logger.Error().Err(err).Str("report_id", id.String()).Str("delivery_id", del.ID).Msg("report delivered but status update failed")
		return nil, fmt.Errorf("mark report complete: %w", err)
	}
	e.markComplete()

	p.logger.Info().Str("report_id", id.String()).Str("delivery_id", del.ID).Msg("final report generated")
	return &Generated{ReportID: id, Status: StatusComplete, DeliveryID: del.ID, Redirect: RedirectAfterGenerate}, nil
}
