package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// AccessGrantRepo defines the persistence operations for access grants.
type AccessGrantRepo interface {
	// Upsert inserts the grant, or refreshes the validity window of the
	// existing grant for the same reservation. The credential of an existing
	// grant is preserved — guests are told one door code, not a new one per
	// status pass. A refreshed grant is also un-withdrawn.
	Upsert(ctx context.Context, g domain.AccessGrant) (domain.AccessGrant, error)

	// GetByReservation retrieves the grant bound to a reservation.
	// Returns domain.ErrNotFound if none exists.
	GetByReservation(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error)

	// Withdraw marks the reservation's grant withdrawn if not already.
	// Returns domain.ErrNotFound if no grant exists for the reservation.
	Withdraw(ctx context.Context, reservationID uuid.UUID) error

	// WithdrawFinished withdraws every live grant whose reservation is
	// cancelled or whose validity window (check-out + grace) has fully
	// passed as of today. Returns how many rows changed.
	WithdrawFinished(ctx context.Context, today domain.Date) (int64, error)
}

// pgAccessGrantRepo is the Postgres implementation of AccessGrantRepo.
type pgAccessGrantRepo struct {
	db db
}

// NewAccessGrantRepo constructs an AccessGrantRepo backed by the provided db
// connection.
func NewAccessGrantRepo(db db) AccessGrantRepo {
	return &pgAccessGrantRepo{db: db}
}

const grantCols = `id, reservation_id, location, credential, valid_from, valid_until,
		withdrawn_at, created_at, updated_at`

// Upsert inserts or refreshes the one grant per reservation. The DO UPDATE
// deliberately keeps the stored credential and only moves the window; it
// also clears withdrawn_at so a re-granted reservation is live again.
func (r *pgAccessGrantRepo) Upsert(ctx context.Context, g domain.AccessGrant) (domain.AccessGrant, error) {
	const q = `
		INSERT INTO access_grants (reservation_id, location, credential, valid_from, valid_until)
		VALUES (@reservation_id, @location, @credential, @valid_from, @valid_until)
		ON CONFLICT (reservation_id) DO UPDATE
		SET valid_from   = EXCLUDED.valid_from,
		    valid_until  = EXCLUDED.valid_until,
		    withdrawn_at = NULL,
		    updated_at   = now()
		RETURNING ` + grantCols

	args := pgx.NamedArgs{
		"reservation_id": g.ReservationID,
		"location":       g.Location,
		"credential":     g.Credential,
		"valid_from":     g.ValidFrom.Time(),
		"valid_until":    g.ValidUntil.Time(),
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanAccessGrant(row)
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("repo.AccessGrantRepo.Upsert: %w", err)
	}
	return result, nil
}

// GetByReservation retrieves the grant bound to a reservation.
func (r *pgAccessGrantRepo) GetByReservation(ctx context.Context, reservationID uuid.UUID) (domain.AccessGrant, error) {
	const q = `
		SELECT ` + grantCols + `
		FROM access_grants
		WHERE reservation_id = @reservation_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"reservation_id": reservationID})
	result, err := scanAccessGrant(row)
	if err != nil {
		return domain.AccessGrant{}, fmt.Errorf("repo.AccessGrantRepo.GetByReservation: %w", err)
	}
	return result, nil
}

// Withdraw marks a grant withdrawn. Idempotent on already-withdrawn grants.
func (r *pgAccessGrantRepo) Withdraw(ctx context.Context, reservationID uuid.UUID) error {
	const q = `
		UPDATE access_grants
		SET withdrawn_at = now(), updated_at = now()
		WHERE reservation_id = @reservation_id AND withdrawn_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"reservation_id": reservationID})
	if err != nil {
		return fmt.Errorf("repo.AccessGrantRepo.Withdraw: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "no grant" from "already withdrawn".
		if _, err := r.GetByReservation(ctx, reservationID); err != nil {
			return fmt.Errorf("repo.AccessGrantRepo.Withdraw: %w", err)
		}
	}
	return nil
}

// WithdrawFinished withdraws grants for cancelled reservations and grants
// whose grace window has passed.
func (r *pgAccessGrantRepo) WithdrawFinished(ctx context.Context, today domain.Date) (int64, error) {
	const q = `
		UPDATE access_grants g
		SET withdrawn_at = now(), updated_at = now()
		FROM reservations res
		WHERE g.reservation_id = res.id
		  AND g.withdrawn_at IS NULL
		  AND (res.cancelled_at IS NOT NULL OR g.valid_until < @today)`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"today": today.Time()})
	if err != nil {
		return 0, fmt.Errorf("repo.AccessGrantRepo.WithdrawFinished: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanAccessGrant maps a single database row into a domain.AccessGrant.
func scanAccessGrant(s scanner) (domain.AccessGrant, error) {
	var (
		g             domain.AccessGrant
		id            pgtype.UUID
		reservationID pgtype.UUID
		validFrom     pgtype.Date
		validUntil    pgtype.Date
		withdrawnAt   pgtype.Timestamptz
	)

	err := s.Scan(&id, &reservationID, &g.Location, &g.Credential,
		&validFrom, &validUntil, &withdrawnAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AccessGrant{}, domain.ErrNotFound
		}
		return domain.AccessGrant{}, err
	}

	g.ID = uuid.UUID(id.Bytes)
	g.ReservationID = uuid.UUID(reservationID.Bytes)
	g.ValidFrom = domain.DateOf(validFrom.Time)
	g.ValidUntil = domain.DateOf(validUntil.Time)
	if withdrawnAt.Valid {
		t := withdrawnAt.Time
		g.WithdrawnAt = &t
	}

	return g, nil
}
