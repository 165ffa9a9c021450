package report

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blua/laudos/internal/domain/patient"
	"github.com/blua/laudos/internal/domain/profile"
	"github.com/blua/laudos/internal/platform/auth"
)

// =========== In-memory Store ===========

type memStore struct {
	mu          sync.Mutex
	reports     map[uuid.UUID]*Report
	history     map[uuid.UUID]History
	obs         map[uuid.UUID]ClinicalObservation
	instruments map[uuid.UUID][]Instrument
	criteria    map[uuid.UUID][]CriterionRow
	diffs       map[uuid.UUID][]DifferentialRow
	fail        map[string]error
	calls       []string
}

func newMemStore() *memStore {
	return &memStore{
		reports:     make(map[uuid.UUID]*Report),
		history:     make(map[uuid.UUID]History),
		obs:         make(map[uuid.UUID]ClinicalObservation),
		instruments: make(map[uuid.UUID][]Instrument),
		criteria:    make(map[uuid.UUID][]CriterionRow),
		diffs:       make(map[uuid.UUID][]DifferentialRow),
		fail:        make(map[string]error),
	}
}

// call records the method and returns its injected failure. Callers hold mu.
func (m *memStore) call(name string) error {
	m.calls = append(m.calls, name)
	return m.fail[name]
}

func (m *memStore) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *memStore) CreateReport(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("CreateReport"); err != nil {
		return err
	}
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	cp := *r
	m.reports[r.ID] = &cp
	return nil
}

func (m *memStore) GetReport(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetReport"); err != nil {
		return nil, err
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) SetStatus(_ context.Context, id uuid.UUID, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("SetStatus"); err != nil {
		return err
	}
	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memStore) GetHistory(_ context.Context, id uuid.UUID) (*History, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetHistory"); err != nil {
		return nil, err
	}
	h, ok := m.history[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *memStore) GetObservation(_ context.Context, id uuid.UUID) (*ClinicalObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("GetObservation"); err != nil {
		return nil, err
	}
	o, ok := m.obs[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memStore) ListInstruments(_ context.Context, id uuid.UUID) ([]Instrument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListInstruments"); err != nil {
		return nil, err
	}
	return append([]Instrument{}, m.instruments[id]...), nil
}

func (m *memStore) ListCriteria(_ context.Context, id uuid.UUID) ([]CriterionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListCriteria"); err != nil {
		return nil, err
	}
	return append([]CriterionRow(nil), m.criteria[id]...), nil
}

func (m *memStore) ListDifferentials(_ context.Context, id uuid.UUID) ([]DifferentialRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("ListDifferentials"); err != nil {
		return nil, err
	}
	return append([]DifferentialRow(nil), m.diffs[id]...), nil
}

func (m *memStore) UpsertHistory(_ context.Context, id uuid.UUID, h History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpsertHistory"); err != nil {
		return err
	}
	m.history[id] = h
	return nil
}

func (m *memStore) UpsertObservation(_ context.Context, id uuid.UUID, o ClinicalObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("UpsertObservation"); err != nil {
		return err
	}
	m.obs[id] = o
	return nil
}

func (m *memStore) ReplaceInstruments(_ context.Context, id uuid.UUID, list []Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.instruments, id)
	if err := m.call("ReplaceInstruments"); err != nil {
		return err
	}
	out := make([]Instrument, len(list))
	for i, in := range list {
		if IsTempID(in.ID) {
			in.ID = uuid.NewString()
		}
		out[i] = in
	}
	m.instruments[id] = out
	return nil
}

func (m *memStore) ReplaceCriteria(_ context.Context, id uuid.UUID, met []Criterion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.criteria, id)
	if err := m.call("ReplaceCriteria"); err != nil {
		return err
	}
	var rows []CriterionRow
	for _, c := range met {
		rows = append(rows, CriterionRow{Code: c, IsMet: true})
	}
	m.criteria[id] = rows
	return nil
}

func (m *memStore) ReplaceDifferentials(_ context.Context, id uuid.UUID, rows []DifferentialRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.diffs, id)
	if err := m.call("ReplaceDifferentials"); err != nil {
		return err
	}
	m.diffs[id] = append([]DifferentialRow(nil), rows...)
	return nil
}

// =========== Lookups ===========

type fakePatients map[uuid.UUID]*patient.Patient

func (f fakePatients) Get(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := f[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	return p, nil
}

type fakeProfiles struct{ err error }

func (f fakeProfiles) Lookup(ctx context.Context) (*profile.View, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, _ := auth.SessionFromContext(ctx)
	return &profile.View{
		Account: profile.Account{ID: s.UserID, Email: s.Email, FullName: s.FullName},
		Profile: &profile.Profile{ID: s.UserID, Specialty: "Neuropediatria", ProfessionalRegistry: "CRM 1234"},
	}, nil
}

// =========== Helpers ===========

var (
	testOwner   = uuid.MustParse("33333333-3333-4333-8333-333333333333")
	testPatient = &patient.Patient{
		ID:          uuid.MustParse("44444444-4444-4444-8444-444444444444"),
		FullName:    "Pedro Alves",
		DateOfBirth: "2020-02-10",
		Gender:      patient.GenderMale,
		CreatedBy:   testOwner,
	}
)

func ownerCtx() context.Context {
	return auth.WithSession(context.Background(), &auth.Session{UserID: testOwner, Email: "dra@clinica.test", FullName: "Dra. Helena"})
}

func testIdent() Identification { return identificationOf(testPatient) }

func newTestSync(store Store) *Synchronizer {
	return NewSynchronizer(store, zerolog.Nop(), nil)
}

// filledDraft completes the given number of tracked blocks, in the order
// history, observation, instruments, criteria.
func filledDraft(blocks int) Draft {
	d := NewDraft(testIdent())
	if blocks > 0 {
		d.History.MedicalHistory = "Sem intercorrências"
	}
	if blocks > 1 {
		d.ClinicalObservation.SocialInteraction = "Contato visual reduzido"
	}
	if blocks > 2 {
		d.AppliedInstruments = []Instrument{{ID: "temp-1", InstrumentName: "M-CHAT-R/F"}}
	}
	if blocks > 3 {
		d.DiagnosticCriteria.A1 = true
	}
	return d
}
