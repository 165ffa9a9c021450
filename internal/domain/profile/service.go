package profile

import (
	"context"
	"strings"

	"github.com/blua/laudos/internal/platform/auth"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the session account with its professional profile, if any.
func (s *Service) Get(ctx context.Context) (*View, error) {
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	return &View{Account: accountOf(sess), Profile: p}, nil
}

// Save upserts the session account's profile. The auth record itself is
// never touched.
func (s *Service) Save(ctx context.Context, p *Profile) error {
	sess, err := auth.Require(ctx)
	if err != nil {
		return err
	}
	p.ID = sess.UserID
	p.Specialty = strings.TrimSpace(p.Specialty)
	p.ProfessionalRegistry = strings.TrimSpace(p.ProfessionalRegistry)
	p.Phone = strings.TrimSpace(p.Phone)
	return s.repo.Upsert(ctx, p)
}

// Lookup is used by the submission pipeline to fill professional details.
// A missing profile yields an empty one.
func (s *Service) Lookup(ctx context.Context) (*View, error) {
	v, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if v.Profile == nil {
		v.Profile = &Profile{ID: v.Account.ID}
	}
	return v, nil
}

func accountOf(s *auth.Session) Account {
	return Account{ID: s.UserID, Email: s.Email, FullName: s.FullName, Role: s.Role}
}
