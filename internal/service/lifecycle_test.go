package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncarvajal/casita/backend/internal/domain"
	"github.com/ncarvajal/casita/backend/internal/service"
)

func newLifecycle(repo *mockReservationRepo, ttl time.Duration) *service.LifecycleService {
	svc := service.NewLifecycleService(repo, ttl)
	svc.Now = fixedNow
	return svc
}

func TestLifecycleService_Current_ExactlyOne(t *testing.T) {
	stay := reservationFixture()
	svc := newLifecycle(&mockReservationRepo{
		occupyingOn: func(_ context.Context, d domain.Date) ([]domain.Reservation, error) {
			assert.Equal(t, domain.DateOf(fixedNow()), d)
			return []domain.Reservation{stay}, nil
		},
	}, 0)

	got, err := svc.Current(context.Background())

	require.NoError(t, err)
	assert.Equal(t, stay.ID, got.ID)
}

func TestLifecycleService_Current_NobodyStaying(t *testing.T) {
	svc := newLifecycle(&mockReservationRepo{
		occupyingOn: func(_ context.Context, _ domain.Date) ([]domain.Reservation, error) {
			return nil, nil
		},
	}, 0)

	_, err := svc.Current(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLifecycleService_Current_DoubleBookedIsConflict(t *testing.T) {
	svc := newLifecycle(&mockReservationRepo{
		occupyingOn: func(_ context.Context, _ domain.Date) ([]domain.Reservation, error) {
			return []domain.Reservation{reservationFixture(), reservationFixture()}, nil
		},
	}, 0)

	_, err := svc.Current(context.Background())

	assert.ErrorIs(t, err, domain.ErrConflict, "overlap must be reported, not tie-broken")
}

func TestLifecycleService_Current_TTLCache(t *testing.T) {
	var calls atomic.Int32
	stay := reservationFixture()
	svc := newLifecycle(&mockReservationRepo{
		occupyingOn: func(_ context.Context, _ domain.Date) ([]domain.Reservation, error) {
			calls.Add(1)
			return []domain.Reservation{stay}, nil
		},
	}, time.Minute)

	for i := 0; i < 5; i++ {
		_, err := svc.Current(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), calls.Load(), "answers within the TTL come from the cache")

	// Invalidation (e.g. a cancellation) forces the next call through.
	svc.Invalidate()
	_, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLifecycleService_Next(t *testing.T) {
	next := reservationFixture()
	svc := newLifecycle(&mockReservationRepo{
		nextAfter: func(_ context.Context, d domain.Date) (domain.Reservation, error) {
			assert.Equal(t, domain.DateOf(fixedNow()), d)
			return next, nil
		},
	}, 0)

	got, err := svc.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, next.ID, got.ID)
}

func TestLifecycleService_Status(t *testing.T) {
	stay := reservationFixture() // 2025-06-10 → 2025-06-15; fixedNow is the 12th
	svc := newLifecycle(&mockReservationRepo{
		getByID: func(_ context.Context, _ uuid.UUID) (domain.Reservation, error) {
			return stay, nil
		},
	}, 0)

	got, err := svc.Status(context.Background(), stay.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCurrent, got)
}
