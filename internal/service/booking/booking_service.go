package booking

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/Domenick1991/clinicbooking/internal/admission"
	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/Domenick1991/clinicbooking/internal/kafka"
	"github.com/Domenick1991/clinicbooking/internal/repository"
	"github.com/Domenick1991/clinicbooking/internal/schedule"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clinicbooking.internal.service.booking")

const (
	DefaultMaxDaysAhead   = 90
	MaxCancellationReason = 500
	publishTimeout        = 3 * time.Second
	maxTransitionAttempts = 3
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id, actorUserID uuid.UUID, reason string) (*domain.Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetBooking(ctx context.Context, id, actorUserID uuid.UUID) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter, page domain.PageRequest) (domain.Page[domain.Booking], error)
	ListMyBookings(ctx context.Context, actorUserID uuid.UUID, page domain.PageRequest) (domain.Page[domain.Booking], error)
}

type ScheduleSource interface {
	ActiveSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, error)
}

type Admitter interface {
	Admit(ctx context.Context, booking *domain.Booking) error
}

type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error
}

type TransitionObserver interface {
	ObserveTransition(from, to string)
}

// CreateBookingInput carries a creation request. When ActorUserID belongs to a
// patient the booking is made for that patient's own profile; staff actors and
// internal callers (no actor) book for PatientID.
type CreateBookingInput struct {
	ActorUserID uuid.UUID
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	Date        time.Time
	StartTime   domain.TimeOfDay
	Notes       string
}

type BookingService struct {
	bookings     repository.BookingRepository
	directory    repository.DirectoryRepository
	schedules    ScheduleSource
	guard        Admitter
	publisher    EventPublisher
	observer     TransitionObserver
	logger       zerolog.Logger
	location     *time.Location
	now          func() time.Time
	maxDaysAhead int
}

type BookingServiceOption func(*BookingService)

func WithPublisher(p EventPublisher) BookingServiceOption {
	return func(s *BookingService) { s.publisher = p }
}

func WithTransitionObserver(o TransitionObserver) BookingServiceOption {
	return func(s *BookingService) { s.observer = o }
}

func WithLogger(l zerolog.Logger) BookingServiceOption {
	return func(s *BookingService) { s.logger = l }
}

func WithLocation(loc *time.Location) BookingServiceOption {
	return func(s *BookingService) { s.location = loc }
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) { s.now = now }
}

func WithMaxDaysAhead(days int) BookingServiceOption {
	return func(s *BookingService) { s.maxDaysAhead = days }
}

func NewBookingService(
	bookings repository.BookingRepository,
	directory repository.DirectoryRepository,
	schedules ScheduleSource,
	guard Admitter,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		directory:    directory,
		schedules:    schedules,
		guard:        guard,
		logger:       zerolog.Nop(),
		location:     time.UTC,
		now:          time.Now,
		maxDaysAhead: DefaultMaxDaysAhead,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", input.DoctorID.String()),
		attribute.String("clinic.date", input.Date.Format(domain.DateLayout)),
		attribute.String("clinic.start_time", input.StartTime.String()),
	)

	booking, err := s.createBooking(ctx, input)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("clinic.booking_id", booking.ID.String()))
	return booking, nil
}

func (s *BookingService) createBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.DoctorID == uuid.Nil {
		return nil, domain.NewValidationError("doctor_id", "doctor id is required")
	}
	if input.Date.IsZero() {
		return nil, domain.NewValidationError("date", "booking date is required")
	}

	patient, err := s.resolvePatient(ctx, input)
	if err != nil {
		return nil, err
	}

	doctor, err := s.directory.GetDoctor(ctx, input.DoctorID)
	if err != nil {
		return nil, lookupError(err, "doctor", input.DoctorID)
	}
	if !doctor.Active {
		return nil, domain.NewValidationError("doctor_id", "doctor is not available for booking")
	}

	date := domain.DateOf(input.Date)
	now := s.now().In(s.location)
	today := domain.DateOf(now)
	if date.Before(today) {
		return nil, domain.NewValidationError("date", "booking date must not be in the past")
	}
	if date.After(today.AddDate(0, 0, s.maxDaysAhead)) {
		return nil, domain.NewValidationError("date", fmt.Sprintf("booking date cannot be more than %d days ahead", s.maxDaysAhead))
	}
	if date.Equal(today) && input.StartTime < domain.TimeOfDayOf(now) {
		return nil, domain.NewValidationError("start_time", "requested slot has already started")
	}

	schedules, err := s.schedules.ActiveSchedules(ctx, doctor.ID, domain.WeekdayOf(date))
	if err != nil {
		return nil, &domain.InternalError{Op: "load schedules", Err: err}
	}
	if len(schedule.Ordered(schedules)) == 0 {
		return nil, domain.NewValidationError("date", "doctor is not available on this day")
	}
	_, slot, ok := schedule.Match(schedules, input.StartTime)
	if !ok {
		return nil, domain.NewValidationError("start_time",
			fmt.Sprintf("requested time slot %s is not valid; slots must start at scheduled intervals", input.StartTime))
	}

	booking := &domain.Booking{
		ID:            uuid.New(),
		DoctorID:      doctor.ID,
		PatientID:     patient.ID,
		BookingDate:   date,
		SlotStartTime: slot.Start,
		SlotEndTime:   slot.End,
		Status:        domain.BookingStatusPending,
		Notes:         input.Notes,
	}
	if err := s.guard.Admit(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("booking_id", booking.ID.String()).
		Str("doctor_id", booking.DoctorID.String()).
		Str("patient_id", booking.PatientID.String()).
		Str("date", date.Format(domain.DateLayout)).
		Str("slot", slot.String()).
		Msg("booking created")
	s.publish(ctx, booking)
	return booking, nil
}

func (s *BookingService) resolvePatient(ctx context.Context, input CreateBookingInput) (*domain.Patient, error) {
	if input.ActorUserID != uuid.Nil {
		actor, err := s.directory.GetUser(ctx, input.ActorUserID)
		if err != nil {
			return nil, lookupError(err, "user", input.ActorUserID)
		}
		if actor.Role == domain.RolePatient {
			own, err := s.directory.GetPatientByUserID(ctx, actor.ID)
			if err != nil {
				return nil, lookupError(err, "patient", actor.ID)
			}
			if input.PatientID != uuid.Nil && input.PatientID != own.ID {
				return nil, &domain.AuthorizationError{Reason: "you can only book for yourself"}
			}
			return own, nil
		}
	}

	if input.PatientID == uuid.Nil {
		return nil, domain.NewValidationError("patient_id", "patient id is required")
	}
	patient, err := s.directory.GetPatient(ctx, input.PatientID)
	if err != nil {
		return nil, lookupError(err, "patient", input.PatientID)
	}
	return patient, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.transitionTraced(ctx, "booking.confirm", id, domain.BookingStatusConfirmed, "", nil)
}

func (s *BookingService) CompleteBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.transitionTraced(ctx, "booking.complete", id, domain.BookingStatusCompleted, "", nil)
}

func (s *BookingService) MarkNoShow(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.transitionTraced(ctx, "booking.no_show", id, domain.BookingStatusNoShow, "", nil)
}

// CancelBooking lets patients cancel only their own bookings; staff and
// admins may cancel any booking.
func (s *BookingService) CancelBooking(ctx context.Context, id, actorUserID uuid.UUID, reason string) (*domain.Booking, error) {
	if utf8.RuneCountInString(reason) > MaxCancellationReason {
		return nil, domain.NewValidationError("reason", fmt.Sprintf("cancellation reason must be at most %d characters", MaxCancellationReason))
	}
	return s.transitionTraced(ctx, "booking.cancel", id, domain.BookingStatusCancelled, reason, func(ctx context.Context, b *domain.Booking) error {
		return s.authorizeOwner(ctx, b, actorUserID, "you can only cancel your own bookings")
	})
}

func (s *BookingService) transitionTraced(
	ctx context.Context,
	spanName string,
	id uuid.UUID,
	to domain.BookingStatus,
	reason string,
	authorize func(context.Context, *domain.Booking) error,
) (*domain.Booking, error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("clinic.booking_id", id.String()))

	booking, err := s.transition(ctx, id, to, reason, authorize)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	return booking, nil
}

// transition applies a status change with an optimistic check on the current
// status. When another request changed the row first, the new status is
// re-read and the rules are applied again.
func (s *BookingService) transition(
	ctx context.Context,
	id uuid.UUID,
	to domain.BookingStatus,
	reason string,
	authorize func(context.Context, *domain.Booking) error,
) (*domain.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "booking", id)
	}
	if authorize != nil {
		if err := authorize(ctx, current); err != nil {
			return nil, err
		}
	}

	for attempt := 1; ; attempt++ {
		if !current.Status.CanTransitionTo(to) {
			return nil, &domain.InvalidStateError{Current: current.Status, Requested: to}
		}

		updated, err := s.bookings.Transition(ctx, id, current.Status, to, reason)
		if err == nil {
			s.logger.Info().
				Str("booking_id", id.String()).
				Str("from", string(current.Status)).
				Str("to", string(to)).
				Str("reason", reason).
				Msg("booking " + statusVerb(to))
			if s.observer != nil {
				s.observer.ObserveTransition(string(current.Status), string(to))
			}
			s.publish(ctx, updated)
			return updated, nil
		}
		if !errors.Is(err, repository.ErrStaleStatus) {
			s.logger.Error().Err(err).Str("booking_id", id.String()).Msg("booking transition failed")
			return nil, &domain.InternalError{Op: "update booking status", Err: err}
		}
		if attempt == maxTransitionAttempts {
			return nil, &domain.TransientError{Op: "update booking status", Err: err}
		}

		current, err = s.bookings.GetByID(ctx, id)
		if err != nil {
			return nil, lookupError(err, "booking", id)
		}
	}
}

// GetBooking reports another patient's booking as not found, so ids of other
// patients' bookings cannot be confirmed by probing.
func (s *BookingService) GetBooking(ctx context.Context, id, actorUserID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "booking", id)
	}
	if err := s.authorizeOwner(ctx, booking, actorUserID, "you can only view your own bookings"); err != nil {
		var authErr *domain.AuthorizationError
		if errors.As(err, &authErr) {
			return nil, domain.NewNotFoundError("booking", id)
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) ListBookings(ctx context.Context, filter domain.BookingFilter, page domain.PageRequest) (domain.Page[domain.Booking], error) {
	page = page.Normalize()
	items, total, err := s.bookings.List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Booking]{}, &domain.InternalError{Op: "list bookings", Err: err}
	}
	return domain.NewPage(items, page, total), nil
}

func (s *BookingService) ListMyBookings(ctx context.Context, actorUserID uuid.UUID, page domain.PageRequest) (domain.Page[domain.Booking], error) {
	patient, err := s.directory.GetPatientByUserID(ctx, actorUserID)
	if err != nil {
		return domain.Page[domain.Booking]{}, lookupError(err, "patient", actorUserID)
	}
	return s.ListBookings(ctx, domain.BookingFilter{PatientID: patient.ID}, page)
}

// authorizeOwner passes staff and admins; a patient must own the booking.
func (s *BookingService) authorizeOwner(ctx context.Context, b *domain.Booking, actorUserID uuid.UUID, reason string) error {
	actor, err := s.directory.GetUser(ctx, actorUserID)
	if err != nil {
		return lookupError(err, "user", actorUserID)
	}
	if actor.Role.IsStaff() {
		return nil
	}
	patient, err := s.directory.GetPatientByUserID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.AuthorizationError{Reason: reason}
		}
		return &domain.InternalError{Op: "load patient", Err: err}
	}
	if patient.ID != b.PatientID {
		return &domain.AuthorizationError{Reason: reason}
	}
	return nil
}

// publish is best effort: the mutation is already committed.
func (s *BookingService) publish(ctx context.Context, booking *domain.Booking) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := kafka.NewBookingEvent(*booking, s.now())
	if err := s.publisher.PublishBookingEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).
			Str("booking_id", booking.ID.String()).
			Str("type", event.Type).
			Msg("failed to publish booking event")
	}
}

func lookupError(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewNotFoundError(entity, id)
	}
	return &domain.InternalError{Op: "load " + entity, Err: err}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func statusVerb(to domain.BookingStatus) string {
	switch to {
	case domain.BookingStatusConfirmed:
		return "confirmed"
	case domain.BookingStatusCancelled:
		return "cancelled"
	case domain.BookingStatusCompleted:
		return "completed"
	case domain.BookingStatusNoShow:
		return "marked no-show"
	}
	return "updated"
}

var (
	_ BookingUseCase = (*BookingService)(nil)
	_ Admitter       = (*admission.Guard)(nil)
)
