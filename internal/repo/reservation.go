// Package repo contains all database access logic for the Casita backend.
// Each aggregate has its own file with an interface and a Postgres
// implementation. No business logic lives here — only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReservationRepo defines the persistence operations for Reservations.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a mock.
type ReservationRepo interface {
	// Create inserts a new reservation and returns the persisted record (with
	// DB-generated id, created_at, and updated_at populated).
	Create(ctx context.Context, r domain.Reservation) (domain.Reservation, error)

	// GetByID retrieves a single reservation by its UUID primary key.
	// Returns domain.ErrNotFound if no reservation with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error)

	// List returns all reservations ordered by check_in descending.
	List(ctx context.Context) ([]domain.Reservation, error)

	// ListPaged returns one page of reservations ordered by check_in
	// descending, and the total row count.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error)

	// ListActive returns all non-cancelled reservations ordered by check_in.
	// Reconciliation matches feed events against this set.
	ListActive(ctx context.Context) ([]domain.Reservation, error)

	// OccupyingOn returns the confirmed, non-cancelled reservations whose stay
	// window contains day. More than one row means double-booked data.
	OccupyingOn(ctx context.Context, day domain.Date) ([]domain.Reservation, error)

	// NextAfter returns the confirmed, non-cancelled reservation with the
	// earliest check_in strictly after day; ties break by earliest created_at.
	// Returns domain.ErrNotFound when nothing is upcoming.
	NextAfter(ctx context.Context, day domain.Date) (domain.Reservation, error)

	// Update overwrites the mutable fields of an existing reservation and
	// returns the updated record. The stay window of channel-linked records
	// (non-empty reservation_code) is immutable and not touched here.
	Update(ctx context.Context, r domain.Reservation) (domain.Reservation, error)

	// UpdateGuestLists replaces only the companion and vehicle lists.
	// This is the guest self-service write path; nothing else is touchable.
	UpdateGuestLists(ctx context.Context, id uuid.UUID, companions []domain.Companion, vehicles []domain.Vehicle) (domain.Reservation, error)

	// Cancel sets cancelled_at if not already set and returns the record.
	// Cancelling an already-cancelled reservation is a no-op, not an error:
	// the transition is one-way and idempotent.
	Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error)

	// Delete removes a reservation by ID. Returns domain.ErrNotFound if it
	// does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgReservationRepo is the Postgres implementation of ReservationRepo.
type pgReservationRepo struct {
	db db
}

// NewReservationRepo constructs a ReservationRepo backed by the provided db
// connection. In production pass *pgxpool.Pool; in tests pass a pgx.Tx for
// rollback isolation.
func NewReservationRepo(db db) ReservationRepo {
	return &pgReservationRepo{db: db}
}

const reservationCols = `id, guest_name, phone, email, country, check_in, check_out,
		check_in_time, check_out_time, num_guests, source, reservation_code,
		total_amount, is_paid, pending, cancelled_at, companions, vehicles, notes,
		created_at, updated_at`

// Create inserts a new reservation row and returns the full persisted record.
func (r *pgReservationRepo) Create(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	const q = `
		INSERT INTO reservations (guest_name, phone, email, country, check_in, check_out,
			check_in_time, check_out_time, num_guests, source, reservation_code,
			total_amount, is_paid, pending, companions, vehicles, notes)
		VALUES (@guest_name, @phone, @email, @country, @check_in, @check_out,
			@check_in_time, @check_out_time, @num_guests, @source, @reservation_code,
			@total_amount, @is_paid, @pending, @companions, @vehicles, @notes)
		RETURNING ` + reservationCols

	args, err := reservationArgs(res)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: %w", err)
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a reservation by primary key.
func (r *pgReservationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	const q = `
		SELECT ` + reservationCols + `
		FROM reservations
		WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns all reservations ordered by check_in descending (most recent first).
func (r *pgReservationRepo) List(ctx context.Context) ([]domain.Reservation, error) {
	const q = `
		SELECT ` + reservationCols + `
		FROM reservations
		ORDER BY check_in DESC, created_at DESC`

	return r.queryMany(ctx, "List", q, nil)
}

// ListPaged returns one page of reservations plus the total count.
func (r *pgReservationRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Reservation, int64, error) {
	const q = `
		SELECT ` + reservationCols + `
		FROM reservations
		ORDER BY check_in DESC, created_at DESC
		LIMIT @limit OFFSET @offset`

	items, err := r.queryMany(ctx, "ListPaged", q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM reservations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ReservationRepo.ListPaged: count: %w", err)
	}
	return items, total, nil
}

// ListActive returns all non-cancelled reservations ordered by check_in.
func (r *pgReservationRepo) ListActive(ctx context.Context) ([]domain.Reservation, error) {
	const q = `
		SELECT ` + reservationCols + `
		FROM reservations
		WHERE cancelled_at IS NULL
		ORDER BY check_in, created_at`

	return r.queryMany(ctx, "ListActive", q, nil)
}

// OccupyingOn returns confirmed reservations whose window contains day.
// The window is half-open: check_in <= day < check_out.
func (r *pgReservationRepo) OccupyingOn(ctx context.Context, day domain.Date) ([]domain.Reservation, error) {
	const q = `
		SELECT ` + reservationCols + `
		FROM reservations
		WHERE cancelled_at IS NULL
		  AND NOT pending
		  AND check_in <= @day
		  AND check_out > @day
		ORDER BY created_at`

	return r.queryMany(ctx, "OccupyingOn", q, pgx.NamedArgs{"day": day.Time()})
}

// NextAfter returns the earliest confirmed reservation checking in after day.
func (r *pgReservationRepo) NextAfter(ctx context.Context, day domain.Date) (domain.Reservation, error) {
	const q = `
		SELECT ` + reservationCols + `
		FROM reservations
		WHERE cancelled_at IS NULL
		  AND NOT pending
		  AND check_in > @day
		ORDER BY check_in, created_at
		LIMIT 1`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"day": day.Time()})
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.NextAfter: %w", err)
	}
	return result, nil
}

// Update overwrites the mutable fields of a reservation and returns the
// updated record. check_in/check_out are written as-is; the service layer is
// responsible for refusing window edits on channel-linked records.
func (r *pgReservationRepo) Update(ctx context.Context, res domain.Reservation) (domain.Reservation, error) {
	const q = `
		UPDATE reservations
		SET guest_name     = @guest_name,
		    phone          = @phone,
		    email          = @email,
		    country        = @country,
		    check_in       = @check_in,
		    check_out      = @check_out,
		    check_in_time  = @check_in_time,
		    check_out_time = @check_out_time,
		    num_guests     = @num_guests,
		    total_amount   = @total_amount,
		    is_paid        = @is_paid,
		    pending        = @pending,
		    notes          = @notes,
		    updated_at     = now()
		WHERE id = @id
		RETURNING ` + reservationCols

	args, err := reservationArgs(res)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Update: %w", err)
	}
	args["id"] = res.ID

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Update: %w", err)
	}
	return result, nil
}

// UpdateGuestLists replaces the companion and vehicle lists only.
func (r *pgReservationRepo) UpdateGuestLists(ctx context.Context, id uuid.UUID, companions []domain.Companion, vehicles []domain.Vehicle) (domain.Reservation, error) {
	const q = `
		UPDATE reservations
		SET companions = @companions,
		    vehicles   = @vehicles,
		    updated_at = now()
		WHERE id = @id
		RETURNING ` + reservationCols

	companionsJSON, vehiclesJSON, err := guestListsJSON(companions, vehicles)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.UpdateGuestLists: %w", err)
	}

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":         id,
		"companions": companionsJSON,
		"vehicles":   vehiclesJSON,
	})
	result, err := scanReservation(row)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.UpdateGuestLists: %w", err)
	}
	return result, nil
}

// Cancel sets cancelled_at once. The WHERE guard makes the transition one-way
// at the database, so a concurrent double-cancel cannot move the timestamp.
func (r *pgReservationRepo) Cancel(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	const q = `
		UPDATE reservations
		SET cancelled_at = now(),
		    updated_at   = now()
		WHERE id = @id AND cancelled_at IS NULL
		RETURNING ` + reservationCols

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanReservation(row)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Cancel: %w", err)
	}

	// No row matched: either the id is unknown, or it was already cancelled.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return domain.Reservation{}, fmt.Errorf("repo.ReservationRepo.Cancel: %w", getErr)
	}
	return existing, nil
}

// Delete removes a reservation by primary key.
func (r *pgReservationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM reservations WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.ReservationRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ReservationRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// queryMany runs a multi-row reservation query and scans all results.
func (r *pgReservationRepo) queryMany(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Reservation, error) {
	var rows pgx.Rows
	var err error
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, fmt.Errorf("repo.ReservationRepo.%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ReservationRepo.%s: scan: %w", op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ReservationRepo.%s: rows: %w", op, err)
	}

	return out, nil
}

// reservationArgs builds the NamedArgs shared by Create and Update.
func reservationArgs(res domain.Reservation) (pgx.NamedArgs, error) {
	companionsJSON, vehiclesJSON, err := guestListsJSON(res.Companions, res.Vehicles)
	if err != nil {
		return nil, err
	}

	var code *string
	if res.ReservationCode != "" {
		code = &res.ReservationCode // empty string stays NULL so the unique index ignores it
	}

	return pgx.NamedArgs{
		"guest_name":       res.GuestName,
		"phone":            res.Phone,
		"email":            res.Email,
		"country":          res.Country,
		"check_in":         res.CheckIn.Time(),
		"check_out":        res.CheckOut.Time(),
		"check_in_time":    res.CheckInTime,
		"check_out_time":   res.CheckOutTime,
		"num_guests":       res.NumGuests,
		"source":           string(res.Source),
		"reservation_code": code,
		"total_amount":     res.TotalAmount,
		"is_paid":          res.IsPaid,
		"pending":          res.Pending,
		"companions":       companionsJSON,
		"vehicles":         vehiclesJSON,
		"notes":            res.Notes,
	}, nil
}

// guestListsJSON marshals the two jsonb lists, coalescing nil to [] so the
// column never holds JSON null.
func guestListsJSON(companions []domain.Companion, vehicles []domain.Vehicle) ([]byte, []byte, error) {
	if companions == nil {
		companions = []domain.Companion{}
	}
	if vehicles == nil {
		vehicles = []domain.Vehicle{}
	}
	cb, err := json.Marshal(companions)
	if err != nil {
		return nil, nil, err
	}
	vb, err := json.Marshal(vehicles)
	if err != nil {
		return nil, nil, err
	}
	return cb, vb, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanReservation maps a single database row into a domain.Reservation.
// It handles the UUID, civil-date, and nullable-column conversions.
func scanReservation(s scanner) (domain.Reservation, error) {
	var (
		res         domain.Reservation
		id          pgtype.UUID
		checkIn     pgtype.Date
		checkOut    pgtype.Date
		code        pgtype.Text
		cancelledAt pgtype.Timestamptz
		companions  []byte
		vehicles    []byte
	)

	err := s.Scan(&id, &res.GuestName, &res.Phone, &res.Email, &res.Country,
		&checkIn, &checkOut, &res.CheckInTime, &res.CheckOutTime, &res.NumGuests,
		&res.Source, &code, &res.TotalAmount, &res.IsPaid, &res.Pending,
		&cancelledAt, &companions, &vehicles, &res.Notes,
		&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reservation{}, domain.ErrNotFound
		}
		return domain.Reservation{}, err
	}

	res.ID = uuid.UUID(id.Bytes)
	res.CheckIn = domain.DateOf(checkIn.Time)
	res.CheckOut = domain.DateOf(checkOut.Time)
	if code.Valid {
		res.ReservationCode = code.String
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		res.CancelledAt = &t
	}
	if err := json.Unmarshal(companions, &res.Companions); err != nil {
		return domain.Reservation{}, fmt.Errorf("companions: %w", err)
	}
	if err := json.Unmarshal(vehicles, &res.Vehicles); err != nil {
		return domain.Reservation{}, fmt.Errorf("vehicles: %w", err)
	}

	return res, nil
}
