package patient

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blua/laudos/internal/platform/auth"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) validate(p *Patient) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalid)
	}
	if p.Gender == "" {
		p.Gender = GenderUnspecified
	}
	if !p.Gender.Valid() {
		return fmt.Errorf("%w: invalid gender %q", ErrInvalid, p.Gender)
	}
	if p.DateOfBirth != "" {
		dob, err := time.Parse(DateLayout, p.DateOfBirth)
		if err != nil {
			return fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", ErrInvalid)
		}
		if dob.After(s.now()) {
			return fmt.Errorf("%w: date_of_birth is in the future", ErrInvalid)
		}
	}
	p.Email = strings.TrimSpace(p.Email)
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return fmt.Errorf("%w: invalid email", ErrInvalid)
		}
	}
	return nil
}

// Create registers a patient owned by the session account. Without a
// session nothing is written.
func (s *Service) Create(ctx context.Context, p *Patient) error {
	sess, err := auth.Require(ctx)
	if err != nil {
		return err
	}
	if err := s.validate(p); err != nil {
		return err
	}
	p.CreatedBy = sess.UserID
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, sess.UserID, id)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	sess, err := auth.Require(ctx)
	if err != nil {
		return err
	}
	if err := s.validate(p); err != nil {
		return err
	}
	p.CreatedBy = sess.UserID
	return s.repo.Update(ctx, p)
}

// Delete removes the patient (and, through the store, its reports) only
// when the caller explicitly confirmed.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, confirmed bool) error {
	sess, err := auth.Require(ctx)
	if err != nil {
		return err
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	return s.repo.Delete(ctx, sess.UserID, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, sess.UserID, limit, offset)
}

func (s *Service) Reports(ctx context.Context, patientID uuid.UUID) ([]*ReportSummary, error) {
	sess, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListReports(ctx, sess.UserID, patientID)
}
