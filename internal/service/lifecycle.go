package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/repo"
)

// LifecycleService answers "what is this reservation's status", "who is here
// now", and "who arrives next". Status is computed on demand from stored
// rows — there is no stored status to drift out of date.
type LifecycleService struct {
	reservations repo.ReservationRepo

	// Now is the clock; tests override it.
	Now func() time.Time

	// current is a bounded-TTL cache for the Current lookup, which sits on
	// every guest-facing page. It is invalidated explicitly on cancellation
	// so a cancelled stay can never be served as current.
	current    currentCache
	currentTTL time.Duration
}

// currentCache holds one Current answer with an expiry instant.
type currentCache struct {
	mu      sync.Mutex
	res     domain.Reservation
	err     error
	expires time.Time
}

// NewLifecycleService constructs a LifecycleService with the given TTL for
// the Current cache. A zero ttl disables caching.
func NewLifecycleService(reservations repo.ReservationRepo, ttl time.Duration) *LifecycleService {
	return &LifecycleService{
		reservations: reservations,
		Now:          time.Now,
		currentTTL:   ttl,
	}
}

// Status returns the derived lifecycle status of one reservation.
func (s *LifecycleService) Status(ctx context.Context, id uuid.UUID) (domain.Status, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("service.LifecycleService.Status: %w", err)
	}
	return domain.ResolveStatus(r, s.Now()), nil
}

// Current returns the one reservation whose stay window contains today.
// Returns domain.ErrNotFound when nobody is staying, and domain.ErrConflict
// when more than one window contains today — double-booked data is reported,
// never tie-broken silently.
func (s *LifecycleService) Current(ctx context.Context) (domain.Reservation, error) {
	now := s.Now()

	s.current.mu.Lock()
	if s.currentTTL > 0 && now.Before(s.current.expires) {
		res, err := s.current.res, s.current.err
		s.current.mu.Unlock()
		return res, err
	}
	s.current.mu.Unlock()

	res, err := s.lookupCurrent(ctx, now)

	s.current.mu.Lock()
	s.current.res, s.current.err = res, err
	s.current.expires = now.Add(s.currentTTL)
	s.current.mu.Unlock()

	return res, err
}

func (s *LifecycleService) lookupCurrent(ctx context.Context, now time.Time) (domain.Reservation, error) {
	occupying, err := s.reservations.OccupyingOn(ctx, domain.DateOf(now))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.LifecycleService.Current: %w", err)
	}

	switch len(occupying) {
	case 0:
		return domain.Reservation{}, fmt.Errorf("service.LifecycleService.Current: %w", domain.ErrNotFound)
	case 1:
		return occupying[0], nil
	default:
		return domain.Reservation{}, fmt.Errorf(
			"service.LifecycleService.Current: %d reservations occupy today: %w",
			len(occupying), domain.ErrConflict)
	}
}

// Next returns the upcoming reservation with the earliest check-in; ties
// break by earliest creation timestamp (the repo query orders on both).
func (s *LifecycleService) Next(ctx context.Context) (domain.Reservation, error) {
	r, err := s.reservations.NextAfter(ctx, domain.DateOf(s.Now()))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("service.LifecycleService.Next: %w", err)
	}
	return r, nil
}

// Invalidate drops the Current cache. Called on every cancellation so the
// commit is immediately visible to concurrent readers.
func (s *LifecycleService) Invalidate() {
	s.current.mu.Lock()
	s.current.expires = time.Time{}
	s.current.mu.Unlock()
}
