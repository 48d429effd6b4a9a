// Package handler implements the HTTP handlers for the Casita API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, reservation.go, etc.) but all share the same Server
// struct so they can access its dependencies.
//
// The API has two surfaces with different error contracts: the operator
// surface returns detailed errors, while the guest surface under
// /registration collapses every token failure into one generic message so a
// caller can never probe which tokens exist.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/service"
)

// ReservationServicer defines the business operations the reservation
// handlers depend on. Defining the interface here (in the consumer package)
// follows the Go convention: "accept interfaces, return concrete types". It
// lets handler tests inject a mock without touching the database or service
// layer.
type ReservationServicer interface {
	Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error)
	Update(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	UpdateGuestLists(ctx context.Context, id uuid.UUID, companions []domain.Companion, vehicles []domain.Vehicle) (domain.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AcceptCandidate(ctx context.Context, c domain.ImportCandidate, guestName string) (domain.Reservation, error)
}

// LifecycleServicer resolves temporal status questions: who is here now, who
// arrives next, what state is a given reservation in.
type LifecycleServicer interface {
	Current(ctx context.Context) (domain.Reservation, error)
	Next(ctx context.Context) (domain.Reservation, error)
	Status(ctx context.Context, id uuid.UUID) (domain.Status, error)
}

// ReconcileServicer runs one reconciliation pass over the cached feed.
type ReconcileServicer interface {
	Run(ctx context.Context) (domain.ReconcileResult, error)
}

// PreRegServicer defines the pre-registration operations used by both the
// operator and the guest surface.
type PreRegServicer interface {
	Issue(ctx context.Context, in service.IssueInput) (domain.PreRegistration, error)
	GetByToken(ctx context.Context, token string) (domain.PreRegistration, error)
	List(ctx context.Context) ([]domain.PreRegistration, error)
	Redeem(ctx context.Context, token string, g service.GuestDetails) (domain.Reservation, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccessServicer manages door credentials bound to a reservation.
type AccessServicer interface {
	Grant(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error)
	Disclose(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error)
}

// Server holds every handler dependency. Methods are in domain-specific
// files but all operate on this struct.
type Server struct {
	reservations ReservationServicer
	lifecycle    LifecycleServicer
	reconcile    ReconcileServicer
	preRegs      PreRegServicer
	access       AccessServicer
	baseURL      string // public base URL used to build registration links
}

// NewServer constructs the Server with all its dependencies.
func NewServer(reservations ReservationServicer, lifecycle LifecycleServicer, reconcile ReconcileServicer, preRegs PreRegServicer, access AccessServicer, baseURL string) *Server {
	return &Server{
		reservations: reservations,
		lifecycle:    lifecycle,
		reconcile:    reconcile,
		preRegs:      preRegs,
		access:       access,
		baseURL:      baseURL,
	}
}

// Routes mounts every endpoint on a fresh chi router. Static segments
// (/current, /next, /import) coexist with /{id} because chi routes on a
// trie, not registration order.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", s.CreateReservation)
		r.Get("/", s.ListReservations)
		r.Get("/current", s.GetCurrentReservation)
		r.Get("/next", s.GetNextReservation)
		r.Post("/import", s.ImportReservation)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetReservation)
			r.Put("/", s.UpdateReservation)
			r.Delete("/", s.DeleteReservation)
			r.Get("/status", s.GetReservationStatus)
			r.Post("/cancel", s.CancelReservation)
			r.Post("/access", s.GrantAccess)
			r.Get("/access", s.DiscloseAccess)
		})
	})

	r.Get("/reconciliation", s.GetReconciliation)

	r.Route("/pre-registrations", func(r chi.Router) {
		r.Post("/", s.CreatePreRegistration)
		r.Get("/", s.ListPreRegistrations)
		r.Delete("/{id}", s.DeletePreRegistration)
	})

	// Guest surface. Generic errors only.
	r.Get("/registration", s.PreviewRegistration)
	r.Post("/registration", s.RedeemRegistration)
	r.Put("/registration/{token}/details", s.UpdateRegistrationDetails)

	return r
}
