package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/repo"
)

// AccessService binds door credentials to a reservation's active window and
// controls when they may be disclosed to the guest.
type AccessService struct {
	grants       repo.AccessGrantRepo
	reservations repo.ReservationRepo
	graceDays    int // days past check-out the credential stays valid
	preArrival   int // days before check-in an upcoming guest may see it

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewAccessService constructs an AccessService. graceDays extends the grant
// window past check-out; preArrivalDays opens disclosure that many days
// before check-in.
func NewAccessService(grants repo.AccessGrantRepo, reservations repo.ReservationRepo, graceDays, preArrivalDays int) *AccessService {
	return &AccessService{
		grants:       grants,
		reservations: reservations,
		graceDays:    graceDays,
		preArrival:   preArrivalDays,
		Now:          time.Now,
	}
}

// Grant issues (or refreshes) the access grant for a reservation, valid for
// [check-in, check-out + grace]. A reservation keeps one grant and one
// credential; re-granting moves the window but never rotates the code the
// guest was already told.
func (s *AccessService) Grant(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error) {
	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Grant: %w", err)
	}
	if r.Cancelled() {
		return domain.AccessGrant{}, fmt.Errorf("%w: cannot grant access for a cancelled reservation", domain.ErrValidation)
	}

	credential, err := newDoorCode()
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Grant: %w", err)
	}

	result, err := s.grants.Upsert(ctx, domain.AccessGrant{
		ReservationID: r.ID,
		Location:      "front door",
		Credential:    credential,
		ValidFrom:     r.CheckIn,
		ValidUntil:    r.CheckOut.AddDays(s.graceDays),
	})
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Grant: %w", err)
	}
	return result, nil
}

// Disclose returns the grant with its credential if the guest may see it
// right now. Disclosure is re-evaluated against the live reservation status
// on every call — a grant row is never trusted on its own:
//   - current stays always see the credential;
//   - upcoming stays see it within the pre-arrival window;
//   - completed and cancelled stays get domain.ErrExpired, and the grant is
//     withdrawn on the spot;
//   - upcoming stays outside the window get the grant with the credential
//     withheld.
func (s *AccessService) Disclose(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error) {
	r, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Disclose: %w", err)
	}

	g, err := s.grants.GetByReservation(ctx, reservationID)
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Disclose: %w", err)
	}

	now := s.Now()
	switch domain.ResolveStatus(r, now) {
	case domain.StatusCurrent:
		if g.Withdrawn() {
			return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Disclose: grant withdrawn: %w", domain.ErrExpired)
		}
		return g, nil

	case domain.StatusUpcoming:
		today := domain.DateOf(now)
		if g.Withdrawn() {
			return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Disclose: grant withdrawn: %w", domain.ErrExpired)
		}
		if today.DaysUntil(r.CheckIn) > s.preArrival {
			g.Credential = "" // window not open yet; the grant exists but the code stays hidden
		}
		return g, nil

	default:
		// Completed, cancelled, or still pending confirmation: withdraw and
		// refuse. The sweep would catch this too; doing it here keeps the
		// answer honest regardless of sweep timing.
		if !g.Withdrawn() {
			if err := s.grants.Withdraw(ctx, reservationID); err != nil {
				return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Disclose: %w", err)
			}
		}
		return domain.AccessGrant{}, fmt.Errorf("service.AccessService.Disclose: %w", domain.ErrExpired)
	}
}

// WithdrawFinished withdraws every live grant whose reservation is cancelled
// or past its grace window. Runs periodically as advisory cleanup; Disclose
// does not depend on it.
func (s *AccessService) WithdrawFinished(ctx context.Context) (int64, error) {
	n, err := s.grants.WithdrawFinished(ctx, domain.DateOf(s.Now()))
	if err != nil {
		return 0, fmt.Errorf("service.AccessService.WithdrawFinished: %w", err)
	}
	return n, nil
}

// newDoorCode returns a uniformly random 6-digit door code.
func newDoorCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
