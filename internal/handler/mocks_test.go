package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/handler"
	"github.com/ncarvajal/casita/backend/internal/service"
)

// ---- mock servicers --------------------------------------------------------
// Hand-written test doubles. Set only the method fields your test needs; an
// unset field means the test never expected that call and will panic loudly.

type mockReservationServicer struct {
	create           func(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	getByID          func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	listPaged        func(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error)
	update           func(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	updateGuestLists func(ctx context.Context, id uuid.UUID, c []domain.Companion, v []domain.Vehicle) (domain.Reservation, error)
	cancel           func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	delete           func(ctx context.Context, id uuid.UUID) error
	acceptCandidate  func(ctx context.Context, c domain.ImportCandidate, guestName string) (domain.Reservation, error)
}

func (m *mockReservationServicer) Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	return m.create(ctx, r)
}
func (m *mockReservationServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return m.getByID(ctx, id)
}
func (m *mockReservationServicer) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockReservationServicer) Update(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	return m.update(ctx, r)
}
func (m *mockReservationServicer) UpdateGuestLists(ctx context.Context, id uuid.UUID, c []domain.Companion, v []domain.Vehicle) (domain.Reservation, error) {
	return m.updateGuestLists(ctx, id, c, v)
}
func (m *mockReservationServicer) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return m.cancel(ctx, id)
}
func (m *mockReservationServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockReservationServicer) AcceptCandidate(ctx context.Context, c domain.ImportCandidate, guestName string) (domain.Reservation, error) {
	return m.acceptCandidate(ctx, c, guestName)
}

// compile-time check: the mock must satisfy handler.ReservationServicer.
var _ handler.ReservationServicer = (*mockReservationServicer)(nil)

type mockLifecycleServicer struct {
	current func(ctx context.Context) (domain.Reservation, error)
	next    func(ctx context.Context) (domain.Reservation, error)
	status  func(ctx context.Context, id uuid.UUID) (domain.Status, error)
}

func (m *mockLifecycleServicer) Current(ctx context.Context) (domain.Reservation, error) {
	return m.current(ctx)
}
func (m *mockLifecycleServicer) Next(ctx context.Context) (domain.Reservation, error) {
	return m.next(ctx)
}
func (m *mockLifecycleServicer) Status(ctx context.Context, id uuid.UUID) (domain.Status, error) {
	return m.status(ctx, id)
}

var _ handler.LifecycleServicer = (*mockLifecycleServicer)(nil)

type mockReconcileServicer struct {
	run func(ctx context.Context) (domain.ReconcileResult, error)
}

func (m *mockReconcileServicer) Run(ctx context.Context) (domain.ReconcileResult, error) {
	return m.run(ctx)
}

var _ handler.ReconcileServicer = (*mockReconcileServicer)(nil)

type mockPreRegServicer struct {
	issue      func(ctx context.Context, in service.IssueInput) (domain.PreRegistration, error)
	getByToken func(ctx context.Context, token string) (domain.PreRegistration, error)
	list       func(ctx context.Context) ([]domain.PreRegistration, error)
	redeem     func(ctx context.Context, token string, g service.GuestDetails) (domain.Reservation, error)
	delete     func(ctx context.Context, id uuid.UUID) error
}

func (m *mockPreRegServicer) Issue(ctx context.Context, in service.IssueInput) (domain.PreRegistration, error) {
	return m.issue(ctx, in)
}
func (m *mockPreRegServicer) GetByToken(ctx context.Context, token string) (domain.PreRegistration, error) {
	return m.getByToken(ctx, token)
}
func (m *mockPreRegServicer) List(ctx context.Context) ([]domain.PreRegistration, error) {
	return m.list(ctx)
}
func (m *mockPreRegServicer) Redeem(ctx context.Context, token string, g service.GuestDetails) (domain.Reservation, error) {
	return m.redeem(ctx, token, g)
}
func (m *mockPreRegServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

var _ handler.PreRegServicer = (*mockPreRegServicer)(nil)

type mockAccessServicer struct {
	grant    func(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error)
	disclose func(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error)
}

func (m *mockAccessServicer) Grant(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error) {
	return m.grant(ctx, reservationID)
}
func (m *mockAccessServicer) Disclose(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error) {
	return m.disclose(ctx, reservationID)
}

var _ handler.AccessServicer = (*mockAccessServicer)(nil)

// ---- wiring helpers --------------------------------------------------------

// serverDeps bundles the mocks; nil fields stay nil on the Server, so a test
// exercising only one surface wires only that.
type serverDeps struct {
	reservations handler.ReservationServicer
	lifecycle    handler.LifecycleServicer
	reconcile    handler.ReconcileServicer
	preRegs      handler.PreRegServicer
	access       handler.AccessServicer
}

func newHTTPHandler(d serverDeps) http.Handler {
	srv := handler.NewServer(d.reservations, d.lifecycle, d.reconcile, d.preRegs, d.access, "https://casita.example")
	return srv.Routes()
}

// jsonBody marshals v into a buffer suitable for httptest.NewRequest.
func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}

// decodeJSON decodes the recorder body into a generic map.
func decodeJSON(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&m))
	return m
}

func reservationFixture() domain.Reservation {
	return domain.Reservation{
		ID:        uuid.New(),
		GuestName: "Ana Torres",
		CheckIn:   domain.Date{Year: 2025, Month: time.June, Day: 10},
		CheckOut:  domain.Date{Year: 2025, Month: time.June, Day: 15},
		NumGuests: 2,
		Source:    domain.SourceDirect,
		CreatedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func preRegFixture() domain.PreRegistration {
	return domain.PreRegistration{
		ID:        uuid.New(),
		Token:     "tok-abc123",
		GuestName: "Marta Ruiz",
		CheckIn:   domain.Date{Year: 2025, Month: time.July, Day: 1},
		CheckOut:  domain.Date{Year: 2025, Month: time.July, Day: 5},
		ExpiresAt: time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC),
		Status:    domain.PreRegPending,
	}
}
