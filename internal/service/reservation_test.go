package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/service"
)

func newReservationService(repo *mockReservationRepo) *service.ReservationService {
	svc := service.NewReservationService(repo, nil)
	svc.Now = fixedNow
	return svc
}

func TestReservationService_Create_AppliesDefaults(t *testing.T) {
	var created domain.Reservation
	svc := newReservationService(&mockReservationRepo{
		create: func(_ context.Context, r domain.Reservation) (domain.Reservation, error) {
			created = r
			return r, nil
		},
	})

	in := reservationFixture()
	in.Source = ""
	in.NumGuests = 0
	_, err := svc.Create(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, domain.SourceDirect, created.Source)
	assert.Equal(t, 1, created.NumGuests)
}

func TestReservationService_Create_Validation(t *testing.T) {
	svc := newReservationService(&mockReservationRepo{
		// create deliberately unset: a call would panic the test.
	})

	cases := map[string]func(*domain.Reservation){
		"blank name":      func(r *domain.Reservation) { r.GuestName = "   " },
		"missing dates":   func(r *domain.Reservation) { r.CheckIn, r.CheckOut = domain.Date{}, domain.Date{} },
		"inverted window": func(r *domain.Reservation) { r.CheckIn, r.CheckOut = r.CheckOut, r.CheckIn },
		"zero nights":     func(r *domain.Reservation) { r.CheckOut = r.CheckIn },
		"negative guests": func(r *domain.Reservation) { r.NumGuests = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := reservationFixture()
			mutate(&in)

			_, err := svc.Create(context.Background(), in)

			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestReservationService_AcceptCandidate(t *testing.T) {
	var created domain.Reservation
	svc := newReservationService(&mockReservationRepo{
		create: func(_ context.Context, r domain.Reservation) (domain.Reservation, error) {
			created = r
			return r, nil
		},
	})

	cand := domain.ImportCandidate{
		EventUID:        "e1",
		Summary:         "Reserved",
		ReservationCode: "HMABCD1234",
		CheckIn:         domain.Date{Year: 2025, Month: time.July, Day: 1},
		CheckOut:        domain.Date{Year: 2025, Month: time.July, Day: 5},
	}
	_, err := svc.AcceptCandidate(context.Background(), cand, "")

	require.NoError(t, err)
	assert.Equal(t, domain.SourceChannel, created.Source)
	assert.Equal(t, "HMABCD1234", created.ReservationCode)
	assert.Equal(t, cand.CheckIn, created.CheckIn)
	assert.Equal(t, cand.CheckOut, created.CheckOut)
	assert.Equal(t, "Reserved", created.GuestName, "summary stands in until the operator renames")
}

func TestReservationService_AcceptCandidate_RequiresCode(t *testing.T) {
	svc := newReservationService(&mockReservationRepo{})

	_, err := svc.AcceptCandidate(context.Background(), domain.ImportCandidate{
		CheckIn:  domain.Date{Year: 2025, Month: time.July, Day: 1},
		CheckOut: domain.Date{Year: 2025, Month: time.July, Day: 5},
	}, "Guest")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReservationService_Update_ChannelWindowImmutable(t *testing.T) {
	existing := reservationFixture()
	existing.ReservationCode = "HMABCD1234"
	existing.Source = domain.SourceChannel
	svc := newReservationService(&mockReservationRepo{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Reservation, error) {
			return existing, nil
		},
	})

	moved := existing
	moved.CheckOut = moved.CheckOut.AddDays(2)
	_, err := svc.Update(context.Background(), moved)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReservationService_Update_ChannelOtherFieldsEditable(t *testing.T) {
	existing := reservationFixture()
	existing.ReservationCode = "HMABCD1234"
	svc := newReservationService(&mockReservationRepo{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Reservation, error) {
			return existing, nil
		},
		update: func(_ context.Context, r domain.Reservation) (domain.Reservation, error) {
			return r, nil
		},
	})

	renamed := existing
	renamed.GuestName = "Ana T. García"
	got, err := svc.Update(context.Background(), renamed)

	require.NoError(t, err)
	assert.Equal(t, "Ana T. García", got.GuestName)
}

func TestReservationService_Update_CancelledRefused(t *testing.T) {
	existing := reservationFixture()
	at := fixedNow().Add(-time.Hour)
	existing.CancelledAt = &at
	svc := newReservationService(&mockReservationRepo{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Reservation, error) {
			return existing, nil
		},
	})

	_, err := svc.Update(context.Background(), existing)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReservationService_Cancel_InvalidatesCurrentCache(t *testing.T) {
	stay := reservationFixture()
	repo := &mockReservationRepo{
		occupyingOn: func(_ context.Context, _ domain.Date) ([]domain.Reservation, error) {
			return []domain.Reservation{stay}, nil
		},
		cancel: func(_ context.Context, id uuid.UUID) (domain.Reservation, error) {
			r := stay
			at := fixedNow()
			r.CancelledAt = &at
			return r, nil
		},
	}
	lifecycle := newLifecycle(repo, time.Minute)
	svc := service.NewReservationService(repo, lifecycle)
	svc.Now = fixedNow

	_, err := lifecycle.Current(context.Background())
	require.NoError(t, err)

	// Cancel flips the stored record; afterwards the repo reports nobody
	// staying and Current must not serve the stale cached answer.
	_, err = svc.Cancel(context.Background(), stay.ID)
	require.NoError(t, err)
	repo.occupyingOn = func(_ context.Context, _ domain.Date) ([]domain.Reservation, error) {
		return nil, nil
	}

	_, err = lifecycle.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
