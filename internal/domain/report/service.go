package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/blua/laudos/internal/domain/patient"
	"github.com/blua/laudos/internal/platform/auth"
)

// PatientLookup resolves a patient owned by the session account.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Event kinds pushed to live subscribers of a draft.
const (
	EventDraftUpdated   = "draft.updated"
	EventDraftLoaded    = "draft.loaded"
	EventDraftSaved     = "draft.saved"
	EventDraftGenerated = "draft.generated"
	EventDraftClosed    = "draft.closed"
)

// Notifier pushes editor state to the owner's live connections.
type Notifier interface {
	Notify(owner uuid.UUID, topic, kind string, payload interface{})
}

// DraftTopic is the live topic of one editor session.
func DraftTopic(sid uuid.UUID) string {
	return "drafts/" + sid.String()
}

type noopNotifier struct{}

func (noopNotifier) Notify(uuid.UUID, string, string, interface{}) {}

// Service binds editor sessions to the synchronizer and the submission
// pipeline. Every call is scoped to the session account. Once issued, a
// load, save or generation runs to completion even if the caller goes
// away; only the store and webhook timeouts bound it.
type Service struct {
	editors  *Registry
	sync     *Synchronizer
	pipeline *Pipeline
	patients PatientLookup
	notifier Notifier
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func NewService(editors *Registry, sync *Synchronizer, pipeline *Pipeline, patients PatientLookup, opts ...ServiceOption) *Service {
	s := &Service{editors: editors, sync: sync, pipeline: pipeline, patients: patients, notifier: noopNotifier{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) publish(owner, sid uuid.UUID, kind string, payload interface{}) {
	s.notifier.Notify(owner, DraftTopic(sid), kind, payload)
}

func identificationOf(p *patient.Patient) Identification {
	return Identification{PatientID: p.ID, FullName: p.FullName, DateOfBirth: p.DateOfBirth, Gender: string(p.Gender)}
}

// Open starts an editor for a patient, fresh or loaded from reportID. A
// failed load discards the new editor.
func (s *Service) Open(ctx context.Context, patientID uuid.UUID, reportID *uuid.UUID) (*EditorView, error) {
	ctx = context.WithoutCancel(ctx)
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	pt, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	ident := identificationOf(pt)
	e := s.editors.Open(sess.UserID, ident)
	if reportID == nil {
		return e.View(), nil
	}
	if _, err := e.begin(s.now()); err != nil {
		return nil, err
	}
	l, err := s.sync.Load(ctx, sess.UserID, ident, reportID)
	e.finishLoad(l, err)
	if err != nil {
		_ = s.editors.Close(sess.UserID, e.ID)
		return nil, err
	}
	return e.View(), nil
}

func (s *Service) editor(ctx context.Context, sid uuid.UUID) (*Editor, *auth.Session, error) {
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, nil, err
	}
	e, err := s.editors.Get(sess.UserID, sid)
	if err != nil {
		return nil, nil, err
	}
	return e, sess, nil
}

func (s *Service) View(ctx context.Context, sid uuid.UUID) (*EditorView, error) {
	e, _, err := s.editor(ctx, sid)
	if err != nil {
		return nil, err
	}
	return e.View(), nil
}

// Update applies one tagged update. The returned update carries any id
// assigned to a new instrument.
func (s *Service) Update(ctx context.Context, sid uuid.UUID, u Update) (Update, *EditorView, error) {
	e, sess, err := s.editor(ctx, sid)
	if err != nil {
		return nil, nil, err
	}
	applied, err := e.Apply(u, s.now())
	if err != nil {
		return nil, nil, err
	}
	v := e.View()
	s.publish(sess.UserID, sid, EventDraftUpdated, v)
	return applied, v, nil
}

// Load replaces the editor's draft with the stored report, or with fresh
// defaults when reportID is nil. On failure the current draft is kept.
func (s *Service) Load(ctx context.Context, sid uuid.UUID, reportID *uuid.UUID) (*EditorView, error) {
	ctx = context.WithoutCancel(ctx)
	e, sess, err := s.editor(ctx, sid)
	if err != nil {
		return nil, err
	}
	if _, err := e.begin(s.now()); err != nil {
		return nil, err
	}
	// Identification is refreshed from the current patient record.
	cur := e.View().Draft.Identification
	pt, err := s.patients.Get(ctx, cur.PatientID)
	if err != nil {
		e.release()
		return nil, err
	}
	l, err := s.sync.Load(ctx, sess.UserID, identificationOf(pt), reportID)
	e.finishLoad(l, err)
	if err != nil {
		return nil, err
	}
	v := e.View()
	s.publish(sess.UserID, sid, EventDraftLoaded, v)
	return v, nil
}

func (s *Service) Save(ctx context.Context, sid uuid.UUID) (*EditorView, error) {
	ctx = context.WithoutCancel(ctx)
	e, sess, err := s.editor(ctx, sid)
	if err != nil {
		return nil, err
	}
	snap, err := e.begin(s.now())
	if err != nil {
		return nil, err
	}
	id, err := s.sync.Save(ctx, SaveInput{ReportID: snap.reportID, Owner: sess.UserID, Draft: snap.draft})
	e.recordSave(snap, id, err)
	e.release()
	if err != nil {
		return nil, err
	}
	v := e.View()
	s.publish(sess.UserID, sid, EventDraftSaved, v)
	return v, nil
}

func (s *Service) Preview(ctx context.Context, sid uuid.UUID) (*Preview, error) {
	e, _, err := s.editor(ctx, sid)
	if err != nil {
		return nil, err
	}
	pt, err := s.patients.Get(ctx, e.View().Draft.Identification.PatientID)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Preview(e, pt)
}

// Generate sends the final report and closes the editor on success.
func (s *Service) Generate(ctx context.Context, sid uuid.UUID) (*Generated, error) {
	ctx = context.WithoutCancel(ctx)
	e, sess, err := s.editor(ctx, sid)
	if err != nil {
		return nil, err
	}
	pt, err := s.patients.Get(ctx, e.View().Draft.Identification.PatientID)
	if err != nil {
		return nil, err
	}
	out, err := s.pipeline.Generate(ctx, e, pt)
	if err != nil {
		return nil, err
	}
	_ = s.editors.Close(sess.UserID, sid)
	s.publish(sess.UserID, sid, EventDraftGenerated, out)
	return out, nil
}

func (s *Service) Close(ctx context.Context, sid uuid.UUID) error {
	sess, err := auth.Require(ctx)
	if err != nil {
		return err
	}
	if err := s.editors.Close(sess.UserID, sid); err != nil {
		return err
	}
	s.publish(sess.UserID, sid, EventDraftClosed, nil)
	return nil
}
