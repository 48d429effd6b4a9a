// Package service contains the business logic for the Casita backend.
// Services validate inputs, enforce business rules, and orchestrate repo
// calls. No SQL lives here — services depend on repo interfaces, not
// implementations.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ncarvajal/casita/backend/internal/calendar"
	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/repo"
)

// ReconcileService matches external feed events against stored reservations
// and pre-registrations to prevent duplicate bookings.
type ReconcileService struct {
	reservations repo.ReservationRepo
	preRegs      repo.PreRegistrationRepo
	feed         *calendar.Cache

	// Now is the clock; tests override it.
	Now func() time.Time
}

// NewReconcileService constructs a ReconcileService over the given repos and
// feed cache.
func NewReconcileService(reservations repo.ReservationRepo, preRegs repo.PreRegistrationRepo, feed *calendar.Cache) *ReconcileService {
	return &ReconcileService{
		reservations: reservations,
		preRegs:      preRegs,
		feed:         feed,
		Now:          time.Now,
	}
}

// Run executes one reconciliation pass over the cached feed events.
// Before the first successful feed fetch the result is simply empty — an
// unreachable feed never blocks the operator surface.
func (s *ReconcileService) Run(ctx context.Context) (domain.ReconcileResult, error) {
	events, _, ok := s.feed.Events()
	if !ok {
		return domain.ReconcileResult{}, nil
	}

	reservations, err := s.reservations.ListActive(ctx)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("service.ReconcileService.Run: %w", err)
	}
	preRegs, err := s.preRegs.List(ctx)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("service.ReconcileService.Run: %w", err)
	}

	return Reconcile(events, reservations, preRegs, domain.DateOf(s.Now())), nil
}

// Reconcile is the pure reconciliation engine. It matches events against
// stored records, flags code-vs-date disagreements as conflicts, and emits
// the unmatched future code-carrying events as import candidates.
//
// Being a pure function of its inputs it is idempotent for free: the same
// feed against the same store yields the same result, and an event matched
// on one pass is excluded from candidates on every later pass because its
// stored counterpart now exists.
func Reconcile(events []domain.ExternalBookingEvent, reservations []domain.Reservation, preRegs []domain.PreRegistration, today domain.Date) domain.ReconcileResult {
	byCode := make(map[string]domain.Reservation, len(reservations))
	byWindow := make(map[[2]domain.Date]bool, len(reservations))
	for _, r := range reservations {
		if r.ReservationCode != "" {
			byCode[r.ReservationCode] = r
		}
		byWindow[[2]domain.Date{r.CheckIn, r.CheckOut}] = true
	}

	preRegByCode := make(map[string]domain.PreRegistration, len(preRegs))
	for _, p := range preRegs {
		if p.ReservationCode != "" {
			preRegByCode[p.ReservationCode] = p
		}
	}

	var result domain.ReconcileResult
	for _, e := range events {
		if e.Cancelled() {
			continue // withdrawn on the channel; nothing to match or import
		}

		if e.ReservationCode == "" {
			// Codeless events (owner blocks) match by exact date pair only
			// and are never import candidates.
			if byWindow[[2]domain.Date{e.Start, e.End}] {
				result.MatchedCount++
			}
			continue
		}

		if r, ok := byCode[e.ReservationCode]; ok {
			if r.CheckIn == e.Start && r.CheckOut == e.End {
				result.MatchedCount++ // already linked; dropped silently
			} else {
				result.Conflicts = append(result.Conflicts, domain.Conflict{
					ReservationCode: e.ReservationCode,
					EventUID:        e.UID,
					EventCheckIn:    e.Start,
					EventCheckOut:   e.End,
					StoredCheckIn:   r.CheckIn,
					StoredCheckOut:  r.CheckOut,
					Detail:          "feed event and stored reservation share a code but disagree on dates",
				})
			}
			continue
		}

		if p, ok := preRegByCode[e.ReservationCode]; ok {
			if p.CheckIn == e.Start && p.CheckOut == e.End {
				result.MatchedCount++ // a pre-registration already covers this stay
			} else {
				result.Conflicts = append(result.Conflicts, domain.Conflict{
					ReservationCode: e.ReservationCode,
					EventUID:        e.UID,
					EventCheckIn:    e.Start,
					EventCheckOut:   e.End,
					StoredCheckIn:   p.CheckIn,
					StoredCheckOut:  p.CheckOut,
					Detail:          "feed event and pre-registration share a code but disagree on dates",
				})
			}
			continue
		}

		// Unmatched. Only future stays are worth suggesting for import.
		if e.Start.After(today) {
			result.NewCandidates = append(result.NewCandidates, domain.ImportCandidate{
				EventUID:        e.UID,
				Summary:         e.Summary,
				ReservationCode: e.ReservationCode,
				CheckIn:         e.Start,
				CheckOut:        e.End,
			})
		}
	}

	return result
}
