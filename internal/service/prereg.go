package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/repo"
)

// IssueInput carries the operator's request to issue a pre-registration.
type IssueInput struct {
	GuestName       string
	Phone           string
	Email           string
	CheckIn         domain.Date
	CheckOut        domain.Date
	ReservationCode string // verbatim from a feed event when pre-filled
	ExpirationDays  int
}

// GuestDetails carries what the guest submits on the registration form.
type GuestDetails struct {
	GuestName  string
	Phone      string
	Email      string
	Country    string
	NumGuests  int
	Companions []domain.Companion
	Vehicles   []domain.Vehicle
}

// PreRegService implements the pre-arrival self-registration workflow:
// issuing single-use tokens and redeeming them into reservations.
type PreRegService struct {
	preRegs repo.PreRegistrationRepo

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewPreRegService constructs a PreRegService backed by the provided repo.
func NewPreRegService(preRegs repo.PreRegistrationRepo) *PreRegService {
	return &PreRegService{preRegs: preRegs, Now: time.Now}
}

// Issue validates the window and persists a fresh pre-registration with an
// unguessable single-use token. On validation failure nothing is persisted.
func (s *PreRegService) Issue(ctx context.Context, in IssueInput) (domain.PreRegistration, error) {
	now := s.Now()
	today := domain.DateOf(now)

	if !in.CheckOut.After(in.CheckIn) {
		return domain.PreRegistration{}, fmt.Errorf("%w: check-out must be after check-in", domain.ErrValidation)
	}
	if in.CheckIn.Before(today) {
		return domain.PreRegistration{}, fmt.Errorf("%w: check-in is already in the past", domain.ErrValidation)
	}
	if in.ExpirationDays <= 0 {
		in.ExpirationDays = 7
	}

	token, err := newToken()
	if err != nil {
		return domain.PreRegistration{}, fmt.Errorf("service.PreRegService.Issue: %w", err)
	}

	result, err := s.preRegs.Create(ctx, domain.PreRegistration{
		Token:           token,
		GuestName:       in.GuestName,
		Phone:           in.Phone,
		Email:           in.Email,
		CheckIn:         in.CheckIn,
		CheckOut:        in.CheckOut,
		ReservationCode: in.ReservationCode,
		ExpiresAt:       now.AddDate(0, 0, in.ExpirationDays),
	})
	if err != nil {
		return domain.PreRegistration{}, fmt.Errorf("service.PreRegService.Issue: %w", err)
	}
	return result, nil
}

// IssueFromCandidate issues a pre-registration pre-filled from an import
// candidate: the stay window and reservation code are copied verbatim and
// become immutable on the resulting record.
func (s *PreRegService) IssueFromCandidate(ctx context.Context, c domain.ImportCandidate, expirationDays int) (domain.PreRegistration, error) {
	return s.Issue(ctx, IssueInput{
		CheckIn:         c.CheckIn,
		CheckOut:        c.CheckOut,
		ReservationCode: c.ReservationCode,
		ExpirationDays:  expirationDays,
	})
}

// GetByToken returns the pre-registration for token with lazy expiry
// applied. Callers on the guest surface must not leak whether the token
// ever existed — that mapping happens at the handler.
func (s *PreRegService) GetByToken(ctx context.Context, token string) (domain.PreRegistration, error) {
	p, err := s.preRegs.GetByToken(ctx, token)
	if err != nil {
		return domain.PreRegistration{}, fmt.Errorf("service.PreRegService.GetByToken: %w", err)
	}
	p.Status = p.EffectiveStatus(s.Now())
	return p, nil
}

// List returns all pre-registrations with lazy expiry applied.
// Always returns a non-nil slice so callers can safely range over it.
func (s *PreRegService) List(ctx context.Context) ([]domain.PreRegistration, error) {
	items, err := s.preRegs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.PreRegService.List: %w", err)
	}
	now := s.Now()
	out := make([]domain.PreRegistration, len(items))
	for i, p := range items {
		p.Status = p.EffectiveStatus(now)
		out[i] = p
	}
	return out, nil
}

// Redeem turns a valid pending token into a reservation. The atomic
// pending → registered transition lives in the repo; of two concurrent
// redemptions exactly one returns a reservation, the other
// domain.ErrAlreadyUsed.
func (s *PreRegService) Redeem(ctx context.Context, token string, g GuestDetails) (domain.Reservation, error) {
	if strings.TrimSpace(g.GuestName) == "" {
		return domain.Reservation{}, fmt.Errorf("%w: guest name is required", domain.ErrValidation)
	}
	if g.NumGuests <= 0 {
		g.NumGuests = 1 + len(g.Companions)
	}

	// The source depends on whether the token is linked to a channel
	// booking. The read is advisory only — correctness rests entirely on
	// the conditional transition inside Redeem.
	source := domain.SourceDirect
	if p, err := s.preRegs.GetByToken(ctx, token); err == nil && p.ReservationCode != "" {
		source = domain.SourceChannel
	}

	_, res, err := s.preRegs.Redeem(ctx, token, s.Now(), domain.Reservation{
		GuestName:  g.GuestName,
		Phone:      g.Phone,
		Email:      g.Email,
		Country:    g.Country,
		NumGuests:  g.NumGuests,
		Source:     source,
		Companions: g.Companions,
		Vehicles:   g.Vehicles,
	})
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.PreRegService.Redeem: %w", err)
	}
	return res, nil
}

// Delete removes a pre-registration. Operator-only.
func (s *PreRegService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.preRegs.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.PreRegService.Delete: %w", err)
	}
	return nil
}

// ExpireOverdue flips overdue pending tokens to expired. Advisory: reads
// already observe expiry lazily; this keeps listings and the database tidy.
func (s *PreRegService) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := s.preRegs.ExpireOverdue(ctx, s.Now())
	if err != nil {
		return 0, fmt.Errorf("service.PreRegService.ExpireOverdue: %w", err)
	}
	return n, nil
}

// RegistrationLink builds the guest-facing URL for a token:
// {baseURL}/registration?token={token}.
func RegistrationLink(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/registration?token=" + url.QueryEscape(token)
}

// newToken returns 32 bytes of crypto/rand as unpadded base64url — 256 bits
// of entropy, URL-safe, unguessable.
func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
