package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/admission"
	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
	pgQueryCanceled    = "57014"
)

const bookingColumns = `id, doctor_id, patient_id, booking_date, slot_start_time, slot_end_time, status, notes, cancellation_reason, created_at, updated_at`

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) *PGBookingRepository {
	return &PGBookingRepository{db: db}
}

// Serialize runs fn inside one transaction that holds a transaction-scoped
// advisory lock on key. The lock wait is bounded by the context deadline.
func (r *PGBookingRepository) Serialize(ctx context.Context, key admission.Key, fn func(ctx context.Context, store admission.Store) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classifyPgError(ctx, "begin admission", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, lockTimeout(ctx)); err != nil {
		return classifyPgError(ctx, "set lock timeout", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
		return classifyPgError(ctx, "acquire admission lock", err)
	}

	if err := fn(ctx, &pgAdmissionStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyPgError(ctx, "commit admission", err)
	}
	return nil
}

// lockTimeout renders the remaining context budget in milliseconds; "0" disables the limit.
func lockTimeout(ctx context.Context) string {
	deadline, ok := ctx.Deadline()
	if !ok {
		return "0"
	}
	ms := time.Until(deadline).Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return strconv.FormatInt(ms, 10)
}

func classifyPgError(ctx context.Context, op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == pgLockNotAvailable || pgErr.Code == pgQueryCanceled) {
		return &domain.TransientError{Op: op, Err: err}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &domain.TransientError{Op: op, Err: ctxErr}
	}
	return &domain.InternalError{Op: op, Err: err}
}

type pgAdmissionStore struct {
	tx pgx.Tx
}

func (s *pgAdmissionStore) ActiveBookings(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error) {
	return queryBookings(ctx, s.tx, `SELECT `+bookingColumns+` FROM bookings
		WHERE doctor_id=$1 AND booking_date=$2 AND status <> $3
		ORDER BY slot_start_time`, doctorID, date, domain.BookingStatusCancelled)
}

func (s *pgAdmissionStore) Insert(ctx context.Context, booking *domain.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	err := s.tx.QueryRow(ctx, `INSERT INTO bookings (id, doctor_id, patient_id, booking_date, slot_start_time, slot_end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		booking.ID, booking.DoctorID, booking.PatientID, booking.BookingDate,
		booking.SlotStartTime, booking.SlotEndTime, booking.Status, booking.Notes).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return &domain.ConflictError{DoctorID: booking.DoctorID, Date: booking.BookingDate, Blocking: booking.Interval()}
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) ActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error) {
	return queryBookings(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings
		WHERE doctor_id=$1 AND booking_date=$2 AND status <> $3
		ORDER BY slot_start_time`, doctorID, date, domain.BookingStatusCancelled)
}

// Transition moves a booking from one status to another only if it is still
// in from. A reason, when given, replaces the stored cancellation reason.
func (r *PGBookingRepository) Transition(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `UPDATE bookings
		SET status=$1, cancellation_reason=COALESCE(NULLIF($2, ''), cancellation_reason), updated_at=now()
		WHERE id=$3 AND status=$4
		RETURNING `+bookingColumns, to, reason, id, from))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaleStatus
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGBookingRepository) List(ctx context.Context, filter domain.BookingFilter, page domain.PageRequest) ([]domain.Booking, int, error) {
	page = page.Normalize()

	var conds []string
	var args []any
	if filter.DoctorID != uuid.Nil {
		args = append(args, filter.DoctorID)
		conds = append(conds, fmt.Sprintf("doctor_id=$%d", len(args)))
	}
	if filter.PatientID != uuid.Nil {
		args = append(args, filter.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id=$%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conds = append(conds, fmt.Sprintf("booking_date=$%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "booking_date, slot_start_time, id"
	if filter.NewestFirst() {
		order = "booking_date DESC, slot_start_time DESC, id"
	}
	args = append(args, page.Size, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		bookingColumns, where, order, len(args)-1, len(args))
	items, err := queryBookings(ctx, r.db, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryBookings(ctx context.Context, q querier, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.DoctorID, &b.PatientID, &b.BookingDate, &b.SlotStartTime, &b.SlotEndTime,
		&b.Status, &b.Notes, &b.CancellationReason, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
