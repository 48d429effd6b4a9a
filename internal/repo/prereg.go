package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// txdb extends db with the ability to open a transaction. Both *pgxpool.Pool
// and pgx.Tx satisfy it — pgx.Tx.Begin opens a savepoint, so integration
// tests that pass a rolled-back transaction keep their per-test isolation
// even through the transactional Redeem path.
type txdb interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PreRegistrationRepo defines the persistence operations for
// pre-registration tokens.
type PreRegistrationRepo interface {
	// Create inserts a new pre-registration and returns the persisted record.
	Create(ctx context.Context, p domain.PreRegistration) (domain.PreRegistration, error)

	// GetByID retrieves a pre-registration by primary key.
	// Returns domain.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (domain.PreRegistration, error)

	// GetByToken retrieves a pre-registration by its token value.
	// Returns domain.ErrNotFound for unknown tokens.
	GetByToken(ctx context.Context, token string) (domain.PreRegistration, error)

	// List returns all pre-registrations ordered by created_at descending.
	List(ctx context.Context) ([]domain.PreRegistration, error)

	// Redeem performs the single-use token transition in one transaction:
	// row-lock the token, verify it is still redeemable at instant now,
	// flip pending → registered, insert the reservation, and back-link it.
	// The conditional transition guarantees that of two concurrent calls
	// exactly one succeeds; the other receives domain.ErrAlreadyUsed.
	// Returns domain.ErrNotFound for unknown tokens and domain.ErrExpired
	// when now is past expires_at (the row is flipped to expired on the way
	// out).
	Redeem(ctx context.Context, token string, now time.Time, res domain.Reservation) (domain.PreRegistration, domain.Reservation, error)

	// ExpireOverdue flips every pending row whose expires_at is before now to
	// expired and returns how many rows changed. Advisory bookkeeping: reads
	// observe expiry lazily whether or not this has run.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// Delete removes a pre-registration by ID.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgPreRegistrationRepo is the Postgres implementation of PreRegistrationRepo.
type pgPreRegistrationRepo struct {
	db txdb
}

// NewPreRegistrationRepo constructs a PreRegistrationRepo backed by the
// provided connection. In production pass *pgxpool.Pool; in tests pass a
// pgx.Tx for rollback isolation.
func NewPreRegistrationRepo(db txdb) PreRegistrationRepo {
	return &pgPreRegistrationRepo{db: db}
}

const preRegCols = `id, token, guest_name, phone, email, check_in, check_out,
		reservation_code, expires_at, status, reservation_id, registered_at,
		created_at, updated_at`

// Create inserts a new pre-registration row.
func (r *pgPreRegistrationRepo) Create(ctx context.Context, p domain.PreRegistration) (domain.PreRegistration, error) {
	const q = `
		INSERT INTO pre_registrations (token, guest_name, phone, email, check_in,
			check_out, reservation_code, expires_at, status)
		VALUES (@token, @guest_name, @phone, @email, @check_in, @check_out,
			@reservation_code, @expires_at, @status)
		RETURNING ` + preRegCols

	var code *string
	if p.ReservationCode != "" {
		code = &p.ReservationCode
	}

	args := pgx.NamedArgs{
		"token":            p.Token,
		"guest_name":       p.GuestName,
		"phone":            p.Phone,
		"email":            p.Email,
		"check_in":         p.CheckIn.Time(),
		"check_out":        p.CheckOut.Time(),
		"reservation_code": code,
		"expires_at":       p.ExpiresAt,
		"status":           string(domain.PreRegPending),
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanPreRegistration(row)
	if err != nil {
		return domain.PreRegistration{}, fmt.Errorf("repo.PreRegistrationRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a pre-registration by primary key.
func (r *pgPreRegistrationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.PreRegistration, error) {
	const q = `
		SELECT ` + preRegCols + `
		FROM pre_registrations
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanPreRegistration(row)
	if err != nil {
		return domain.PreRegistration{}, fmt.Errorf("repo.PreRegistrationRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByToken retrieves a pre-registration by its token value.
func (r *pgPreRegistrationRepo) GetByToken(ctx context.Context, token string) (domain.PreRegistration, error) {
	const q = `
		SELECT ` + preRegCols + `
		FROM pre_registrations
		WHERE token = @token`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"token": token})
	result, err := scanPreRegistration(row)
	if err != nil {
		return domain.PreRegistration{}, fmt.Errorf("repo.PreRegistrationRepo.GetByToken: %w", err)
	}
	return result, nil
}

// List returns all pre-registrations, newest first.
func (r *pgPreRegistrationRepo) List(ctx context.Context) ([]domain.PreRegistration, error) {
	const q = `
		SELECT ` + preRegCols + `
		FROM pre_registrations
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.PreRegistrationRepo.List: %w", err)
	}
	defer rows.Close()

	var out []domain.PreRegistration
	for rows.Next() {
		p, err := scanPreRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PreRegistrationRepo.List: scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PreRegistrationRepo.List: rows: %w", err)
	}

	return out, nil
}

// Redeem runs the atomic single-use transition. The FOR UPDATE lock
// serializes concurrent redemptions of the same token; the conditional
// status guard on the final UPDATE is the at-most-once property itself,
// enforced by the database rather than checked-then-written in Go.
func (r *pgPreRegistrationRepo) Redeem(ctx context.Context, token string, now time.Time, res domain.Reservation) (domain.PreRegistration, domain.Reservation, error) {
	fail := func(err error) (domain.PreRegistration, domain.Reservation, error) {
		return domain.PreRegistration{}, domain.Reservation{}, fmt.Errorf("repo.PreRegistrationRepo.Redeem: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fail(err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	const lockQ = `
		SELECT ` + preRegCols + `
		FROM pre_registrations
		WHERE token = @token
		FOR UPDATE`

	locked, err := scanPreRegistration(tx.QueryRow(ctx, lockQ, pgx.NamedArgs{"token": token}))
	if err != nil {
		return fail(err)
	}

	switch {
	case locked.Status == domain.PreRegRegistered:
		return fail(domain.ErrAlreadyUsed)
	case locked.Status == domain.PreRegExpired:
		return fail(domain.ErrExpired)
	case now.After(locked.ExpiresAt):
		// Observe expiry now rather than leaving a stale pending row behind.
		const expireQ = `
			UPDATE pre_registrations
			SET status = 'expired', updated_at = now()
			WHERE id = @id AND status = 'pending'`
		if _, err := tx.Exec(ctx, expireQ, pgx.NamedArgs{"id": locked.ID}); err != nil {
			return fail(err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fail(err)
		}
		return fail(domain.ErrExpired)
	}

	// Materialize the reservation inside the same transaction. The stay
	// window and reservation code come verbatim from the token, preserving
	// the link to the external booking.
	res.CheckIn = locked.CheckIn
	res.CheckOut = locked.CheckOut
	res.ReservationCode = locked.ReservationCode

	created, err := NewReservationRepo(tx).Create(ctx, res)
	if err != nil {
		return fail(err)
	}

	const redeemQ = `
		UPDATE pre_registrations
		SET status         = 'registered',
		    guest_name     = @guest_name,
		    phone          = @phone,
		    email          = @email,
		    reservation_id = @reservation_id,
		    registered_at  = @registered_at,
		    updated_at     = now()
		WHERE id = @id AND status = 'pending'
		RETURNING ` + preRegCols

	updated, err := scanPreRegistration(tx.QueryRow(ctx, redeemQ, pgx.NamedArgs{
		"id":             locked.ID,
		"guest_name":     created.GuestName,
		"phone":          created.Phone,
		"email":          created.Email,
		"reservation_id": created.ID,
		"registered_at":  now,
	}))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The row slipped out of pending between lock and update —
			// cannot happen under FOR UPDATE, but the guard stands anyway.
			return fail(domain.ErrAlreadyUsed)
		}
		return fail(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fail(err)
	}
	return updated, created, nil
}

// ExpireOverdue flips overdue pending rows to expired.
func (r *pgPreRegistrationRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const q = `
		UPDATE pre_registrations
		SET status = 'expired', updated_at = now()
		WHERE status = 'pending' AND expires_at < @now`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"now": now})
	if err != nil {
		return 0, fmt.Errorf("repo.PreRegistrationRepo.ExpireOverdue: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a pre-registration by primary key.
func (r *pgPreRegistrationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM pre_registrations WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.PreRegistrationRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PreRegistrationRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanPreRegistration maps a single database row into a domain.PreRegistration.
func scanPreRegistration(s scanner) (domain.PreRegistration, error) {
	var (
		p             domain.PreRegistration
		id            pgtype.UUID
		checkIn       pgtype.Date
		checkOut      pgtype.Date
		code          pgtype.Text
		reservationID pgtype.UUID
		registeredAt  pgtype.Timestamptz
	)

	err := s.Scan(&id, &p.Token, &p.GuestName, &p.Phone, &p.Email,
		&checkIn, &checkOut, &code, &p.ExpiresAt, &p.Status,
		&reservationID, &registeredAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PreRegistration{}, domain.ErrNotFound
		}
		return domain.PreRegistration{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.CheckIn = domain.DateOf(checkIn.Time)
	p.CheckOut = domain.DateOf(checkOut.Time)
	if code.Valid {
		p.ReservationCode = code.String
	}
	if reservationID.Valid {
		rid := uuid.UUID(reservationID.Bytes)
		p.ReservationID = &rid
	}
	if registeredAt.Valid {
		t := registeredAt.Time
		p.RegisteredAt = &t
	}

	return p, nil
}
