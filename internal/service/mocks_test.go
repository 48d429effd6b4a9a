package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/repo"
)

// ---- mock repos ------------------------------------------------------------
// Hand-written test doubles. Set only the method fields your test needs; an
// unset field means the test never expected that call and will panic loudly.

type mockReservationRepo struct {
	create           func(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	getByID          func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	list             func(ctx context.Context) ([]domain.Reservation, error)
	listPaged        func(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error)
	listActive       func(ctx context.Context) ([]domain.Reservation, error)
	occupyingOn      func(ctx context.Context, day domain.Date) ([]domain.Reservation, error)
	nextAfter        func(ctx context.Context, day domain.Date) (domain.Reservation, error)
	update           func(ctx context.Context, r domain.Reservation) (domain.Reservation, error)
	updateGuestLists func(ctx context.Context, id uuid.UUID, c []domain.Companion, v []domain.Vehicle) (domain.Reservation, error)
	cancel           func(ctx context.Context, id uuid.UUID) (domain.Reservation, error)
	delete           func(ctx context.Context, id uuid.UUID) error
}

func (m *mockReservationRepo) Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	return m.create(ctx, r)
}
func (m *mockReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return m.getByID(ctx, id)
}
func (m *mockReservationRepo) List(ctx context.Context) ([]domain.Reservation, error) {
	return m.list(ctx)
}
func (m *mockReservationRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockReservationRepo) ListActive(ctx context.Context) ([]domain.Reservation, error) {
	return m.listActive(ctx)
}
func (m *mockReservationRepo) OccupyingOn(ctx context.Context, day domain.Date) ([]domain.Reservation, error) {
	return m.occupyingOn(ctx, day)
}
func (m *mockReservationRepo) NextAfter(ctx context.Context, day domain.Date) (domain.Reservation, error) {
	return m.nextAfter(ctx, day)
}
func (m *mockReservationRepo) Update(ctx context.Context, r domain.Reservation) (domain.Reservation, error) {
	return m.update(ctx, r)
}
func (m *mockReservationRepo) UpdateGuestLists(ctx context.Context, id uuid.UUID, c []domain.Companion, v []domain.Vehicle) (domain.Reservation, error) {
	return m.updateGuestLists(ctx, id, c, v)
}
func (m *mockReservationRepo) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	return m.cancel(ctx, id)
}
func (m *mockReservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockReservationRepo must satisfy repo.ReservationRepo.
var _ repo.ReservationRepo = (*mockReservationRepo)(nil)

type mockPreRegRepo struct {
	create        func(ctx context.Context, p domain.PreRegistration) (domain.PreRegistration, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.PreRegistration, error)
	getByToken    func(ctx context.Context, token string) (domain.PreRegistration, error)
	list          func(ctx context.Context) ([]domain.PreRegistration, error)
	redeem        func(ctx context.Context, token string, now time.Time, res domain.Reservation) (domain.PreRegistration, domain.Reservation, error)
	expireOverdue func(ctx context.Context, now time.Time) (int64, error)
	delete        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockPreRegRepo) Create(ctx context.Context, p domain.PreRegistration) (domain.PreRegistration, error) {
	return m.create(ctx, p)
}
func (m *mockPreRegRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.PreRegistration, error) {
	return m.getByID(ctx, id)
}
func (m *mockPreRegRepo) GetByToken(ctx context.Context, token string) (domain.PreRegistration, error) {
	return m.getByToken(ctx, token)
}
func (m *mockPreRegRepo) List(ctx context.Context) ([]domain.PreRegistration, error) {
	return m.list(ctx)
}
func (m *mockPreRegRepo) Redeem(ctx context.Context, token string, now time.Time, res domain.Reservation) (domain.PreRegistration, domain.Reservation, error) {
	return m.redeem(ctx, token, now, res)
}
func (m *mockPreRegRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	return m.expireOverdue(ctx, now)
}
func (m *mockPreRegRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

var _ repo.PreRegistrationRepo = (*mockPreRegRepo)(nil)

type mockGrantRepo struct {
	upsert           func(ctx context.Context, g domain.AccessGrant) (domain.AccessGrant, error)
	getByReservation func(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error)
	withdraw         func(ctx context.Context, reservationID uuid.UUID) error
	withdrawFinished func(ctx context.Context, today domain.Date) (int64, error)
}

func (m *mockGrantRepo) Upsert(ctx context.Context, g domain.AccessGrant) (domain.AccessGrant, error) {
	return m.upsert(ctx, g)
}
func (m *mockGrantRepo) GetByReservation(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error) {
	return m.getByReservation(ctx, reservationID)
}
func (m *mockGrantRepo) Withdraw(ctx context.Context, reservationID uuid.UUID) error {
	return m.withdraw(ctx, reservationID)
}
func (m *mockGrantRepo) WithdrawFinished(ctx context.Context, today domain.Date) (int64, error) {
	return m.withdrawFinished(ctx, today)
}

var _ repo.AccessGrantRepo = (*mockGrantRepo)(nil)

// ---- shared fixtures -------------------------------------------------------

func fixedNow() time.Time {
	return time.Date(2025, time.June, 12, 10, 0, 0, 0, time.UTC)
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
