package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/admission"
	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStaleStatus means the booking was no longer in the expected status when the update ran.
	ErrStaleStatus = errors.New("booking status changed concurrently")
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type BookingRepository interface {
	admission.Serializer
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	ActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error)
	Transition(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, reason string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter, page domain.PageRequest) ([]domain.Booking, int, error)
}

type DirectoryRepository interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Doctor, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*domain.Patient, error)
	GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*domain.Patient, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ActiveSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, error)
}

type AuditEntry struct {
	BookingID  uuid.UUID
	EventType  string
	Status     domain.BookingStatus
	Payload    []byte
	OccurredAt time.Time
}

type AuditRepository interface {
	Append(ctx context.Context, entry AuditEntry) error
}

type rowScanner interface {
	Scan(dest ...any) error
}
