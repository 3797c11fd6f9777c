// Package admission decides whether a new booking may take its interval.
//
// Decisions are serialized per (doctor, date): while one request holds the
// key, it reads every active booking for that day, rejects the candidate on
// any half-open overlap, and inserts it before releasing the key. Requests
// for other doctors or dates never wait on each other.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	OutcomeAdmitted = "admitted"
	OutcomeConflict = "conflict"
	OutcomeTimeout  = "timeout"
	OutcomeError    = "error"
)

type Key struct {
	DoctorID uuid.UUID
	Date     string
}

func KeyOf(doctorID uuid.UUID, date time.Time) Key {
	return Key{DoctorID: doctorID, Date: date.Format(domain.DateLayout)}
}

func (k Key) String() string {
	return k.DoctorID.String() + ":" + k.Date
}

// Store is the view of bookings available while a key is held.
type Store interface {
	ActiveBookings(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error)
	Insert(ctx context.Context, booking *domain.Booking) error
}

// Serializer runs fn with exclusive ownership of key. Everything fn does
// through store commits or rolls back as one unit.
type Serializer interface {
	Serialize(ctx context.Context, key Key, fn func(ctx context.Context, store Store) error) error
}

type Observer interface {
	ObserveAdmission(outcome string, wait time.Duration)
}

// FindConflict returns the first active booking whose interval overlaps candidate.
func FindConflict(existing []domain.Booking, candidate domain.Interval) (domain.Booking, bool) {
	for _, b := range existing {
		if !b.Status.Active() {
			continue
		}
		if b.Interval().Overlaps(candidate) {
			return b, true
		}
	}
	return domain.Booking{}, false
}

type Guard struct {
	serializer Serializer
	timeout    time.Duration
	observer   Observer
	logger     zerolog.Logger
}

type GuardOption func(*Guard)

func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) { g.timeout = d }
}

func WithObserver(o Observer) GuardOption {
	return func(g *Guard) { g.observer = o }
}

func WithLogger(l zerolog.Logger) GuardOption {
	return func(g *Guard) { g.logger = l }
}

func NewGuard(serializer Serializer, opts ...GuardOption) *Guard {
	g := &Guard{serializer: serializer, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit inserts booking if no active booking for the same doctor and date
// overlaps it. It returns *domain.ConflictError naming the blocking interval,
// *domain.TransientError when the key could not be acquired in time, and
// *domain.InternalError for storage failures.
func (g *Guard) Admit(ctx context.Context, booking *domain.Booking) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	key := KeyOf(booking.DoctorID, booking.BookingDate)
	candidate := booking.Interval()
	requested := time.Now()
	var waited time.Duration

	err := g.serializer.Serialize(ctx, key, func(ctx context.Context, store Store) error {
		waited = time.Since(requested)
		existing, err := store.ActiveBookings(ctx, booking.DoctorID, booking.BookingDate)
		if err != nil {
			return fmt.Errorf("load active bookings: %w", err)
		}
		if blocking, found := FindConflict(existing, candidate); found {
			return &domain.ConflictError{DoctorID: booking.DoctorID, Date: booking.BookingDate, Blocking: blocking.Interval()}
		}
		return store.Insert(ctx, booking)
	})

	outcome := OutcomeAdmitted
	var conflict *domain.ConflictError
	var transient *domain.TransientError
	switch {
	case err == nil:
	case errors.As(err, &conflict):
		outcome = OutcomeConflict
		g.logger.Warn().
			Str("key", key.String()).
			Str("requested", candidate.String()).
			Str("blocking", conflict.Blocking.String()).
			Msg("admission rejected")
	case errors.As(err, &transient):
		outcome = OutcomeTimeout
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		outcome = OutcomeTimeout
		err = &domain.TransientError{Op: "admit booking", Err: err}
	default:
		outcome = OutcomeError
		var internal *domain.InternalError
		if !errors.As(err, &internal) {
			err = &domain.InternalError{Op: "admit booking", Err: err}
		}
	}
	if outcome == OutcomeTimeout && waited == 0 {
		waited = time.Since(requested)
	}
	if g.observer != nil {
		g.observer.ObserveAdmission(outcome, waited)
	}
	return err
}
