package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/blua/laudos/internal/platform/auth"
)

type mockProfileRepo struct {
	store   map[uuid.UUID]*Profile
	upserts int
	err     error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{store: make(map[uuid.UUID]*Profile)}
}

func (m *mockProfileRepo) Get(_ context.Context, id uuid.UUID) (*Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.store[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepo) Upsert(_ context.Context, p *Profile) error {
	if m.err != nil {
		return m.err
	}
	m.upserts++
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

var testUser = uuid.MustParse("22222222-2222-4222-8222-222222222222")

func sessionCtx() context.Context {
	return auth.WithSession(context.Background(), &auth.Session{
		UserID: testUser, Email: "dr@clinica.test", FullName: "Dra. Helena", Role: "psicologa",
	})
}

func TestGet_WithoutProfile(t *testing.T) {
	svc := NewService(newMockProfileRepo())
	v, err := svc.Get(sessionCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Account.FullName != "Dra. Helena" || v.Account.ID != testUser {
		t.Errorf("unexpected account: %+v", v.Account)
	}
	if v.Profile != nil {
		t.Error("expected nil profile before first save")
	}
}

func TestSave_UpsertsUnderSessionID(t *testing.T) {
	repo := newMockProfileRepo()
	svc := NewService(repo)
	p := &Profile{ID: uuid.New(), Specialty: " Psicologia ", ProfessionalRegistry: "CRP 06/12345"}
	if err := svc.Save(sessionCtx(), p); err != nil {
		t.Fatal(err)
	}
	if p.ID != testUser {
		t.Errorf("profile id must be the account id, got %s", p.ID)
	}
	if err := svc.Save(sessionCtx(), &Profile{Specialty: "Neuropediatria"}); err != nil {
		t.Fatal(err)
	}
	if len(repo.store) != 1 || repo.store[testUser].Specialty != "Neuropediatria" {
		t.Errorf("expected one row replaced in place, got %+v", repo.store)
	}
}

func TestSave_NoSession(t *testing.T) {
	repo := newMockProfileRepo()
	err := NewService(repo).Save(context.Background(), &Profile{})
	if !errors.Is(err, auth.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if repo.upserts != 0 {
		t.Error("write attempted without a session")
	}
}

func TestLookup_FillsEmptyProfile(t *testing.T) {
	v, err := NewService(newMockProfileRepo()).Lookup(sessionCtx())
	if err != nil {
		t.Fatal(err)
	}
	if v.Profile == nil || v.Profile.ID != testUser {
		t.Errorf("expected empty profile for %s, got %+v", testUser, v.Profile)
	}
}
