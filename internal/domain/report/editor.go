package report

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blua/laudos/internal/platform/telemetry"
)

// Editor is one server-held editing session: a draft, the report it is
// tracked against (if saved), and the dirty and busy flags.
type Editor struct {
	ID    uuid.UUID
	Owner uuid.UUID

	mu       sync.Mutex
	draft    Draft
	reportID *uuid.UUID
	status   Status
	dirty    bool
	version  uint64
	busy     bool
	lastUsed time.Time
}

// EditorView is the editor state returned to clients.
type EditorView struct {
	SessionID uuid.UUID       `json:"session_id"`
	ReportID  *uuid.UUID      `json:"report_id"`
	Status    Status          `json:"status"`
	Dirty     bool            `json:"dirty"`
	Busy      bool            `json:"busy"`
	Draft     Draft           `json:"draft"`
	Progress  Progress        `json:"progress"`
	Criteria  CriteriaSummary `json:"criteria"`
}

func newEditor(owner uuid.UUID, ident Identification, now time.Time) *Editor {
	return &Editor{
		ID:       uuid.New(),
		Owner:    owner,
		draft:    NewDraft(ident),
		status:   StatusDraft,
		lastUsed: now,
	}
}

func (e *Editor) View() *EditorView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

func (e *Editor) viewLocked() *EditorView {
	d := e.draft.Clone()
	return &EditorView{
		SessionID: e.ID,
		ReportID:  copyID(e.reportID),
		Status:    e.status,
		Dirty:     e.dirty,
		Busy:      e.busy,
		Draft:     d,
		Progress:  Evaluate(d),
		Criteria:  SummarizeCriteria(d.DiagnosticCriteria),
	}
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

// Apply runs u against the draft and marks the editor dirty. An
// AddInstrument without an id gets a fresh temporary one. The applied
// update is returned so callers can see the assigned id.
func (e *Editor) Apply(u Update, now time.Time) (Update, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if add, ok := u.(AddInstrument); ok && add.ID == "" {
		add.ID = e.draft.NewInstrumentID(now)
		u = add
	}
	if err := e.draft.Apply(u); err != nil {
		return nil, err
	}
	e.dirty = true
	e.version++
	e.lastUsed = now
	return u, nil
}

// snapshot is the state a save or generation works from.
type snapshot struct {
	draft    Draft
	reportID *uuid.UUID
	dirty    bool
	version  uint64
}

// begin marks the editor busy and returns a snapshot. It fails with ErrBusy
// while another save, load or generation is running.
func (e *Editor) begin(now time.Time) (snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return snapshot{}, ErrBusy
	}
	e.busy = true
	e.lastUsed = now
	return snapshot{draft: e.draft.Clone(), reportID: copyID(e.reportID), dirty: e.dirty, version: e.version}, nil
}

// recordSave applies the outcome of a save started with snap. A created
// report id is kept even when a later step failed. The dirty flag is
// cleared only when the save succeeded and nothing changed meanwhile.
func (e *Editor) recordSave(snap snapshot, id uuid.UUID, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id != uuid.Nil && e.reportID == nil {
		e.reportID = &id
	}
	if err == nil && e.version == snap.version {
		e.dirty = false
	}
}

// finishLoad swaps in a loaded draft. On error the previous draft stays.
func (e *Editor) finishLoad(l *Loaded, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.busy = false
	if err != nil {
		return
	}
	e.draft = l.Draft
	e.reportID = nil
	e.status = StatusDraft
	if l.Report != nil {
		id := l.Report.ID
		e.reportID = &id
		e.status = l.Report.Status
	}
	e.dirty = false
	e.version++
}

func (e *Editor) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *Editor) markComplete() {
	e.mu.Lock()
	e.status = StatusComplete
	e.busy = false
	e.mu.Unlock()
}

func (e *Editor) touch(now time.Time) {
	e.mu.Lock()
	e.lastUsed = now
	e.mu.Unlock()
}

// Registry holds the open editors. Each editor is visible only to the
// account that opened it.
type Registry struct {
	mu      sync.Mutex
	editors map[uuid.UUID]*Editor
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

func NewRegistry(ttl time.Duration, logger zerolog.Logger, m *telemetry.Metrics) *Registry {
	return &Registry{
		editors: make(map[uuid.UUID]*Editor),
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.With().Str("component", "editors").Logger(),
		metrics: m,
	}
}

func (r *Registry) Open(owner uuid.UUID, ident Identification) *Editor {
	e := newEditor(owner, ident, r.now())
	r.mu.Lock()
	r.editors[e.ID] = e
	n := len(r.editors)
	r.mu.Unlock()
	r.metrics.SetEditorSessions(n)
	return e
}

func (r *Registry) Get(owner, id uuid.UUID) (*Editor, error) {
	r.mu.Lock()
	e, ok := r.editors[id]
	r.mu.Unlock()
	if !ok || e.Owner != owner {
		return nil, ErrEditorNotFound
	}
	e.touch(r.now())
	return e, nil
}

func (r *Registry) Close(owner, id uuid.UUID) error {
	r.mu.Lock()
	e, ok := r.editors[id]
	if !ok || e.Owner != owner {
		r.mu.Unlock()
		return ErrEditorNotFound
	}
	delete(r.editors, id)
	n := len(r.editors)
	r.mu.Unlock()
	r.metrics.SetEditorSessions(n)
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.editors)
}

// Sweep drops editors idle for longer than the TTL. Busy editors are kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	evicted := 0
	for id, e := range r.editors {
		e.mu.Lock()
		idle := !e.busy && e.lastUsed.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(r.editors, id)
			evicted++
		}
	}
	n := len(r.editors)
	r.mu.Unlock()

	r.metrics.SetEditorSessions(n)
	r.metrics.EditorSessionsEvicted(evicted)
	if evicted > 0 {
		r.logger.Info().Int("evicted", evicted).Int("open", n).Msg("idle editor sessions evicted")
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}
