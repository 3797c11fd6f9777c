package availability

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/Domenick1991/clinicbooking/internal/repository"
	"github.com/Domenick1991/clinicbooking/internal/schedule"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("clinicbooking.internal.service.availability")

type AvailabilityUseCase interface {
	GenerateAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Slot, error)
}

type DoctorRepository interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Doctor, error)
}

type ScheduleSource interface {
	ActiveSchedules(ctx context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, error)
}

type BookingReader interface {
	ActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error)
}

type AvailabilityService struct {
	doctors   DoctorRepository
	schedules ScheduleSource
	bookings  BookingReader
	location  *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

type Option func(*AvailabilityService)

func WithLocation(loc *time.Location) Option {
	return func(s *AvailabilityService) { s.location = loc }
}

func WithClock(now func() time.Time) Option {
	return func(s *AvailabilityService) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *AvailabilityService) { s.logger = l }
}

func NewAvailabilityService(doctors DoctorRepository, schedules ScheduleSource, bookings BookingReader, opts ...Option) *AvailabilityService {
	s := &AvailabilityService{
		doctors:   doctors,
		schedules: schedules,
		bookings:  bookings,
		location:  time.UTC,
		now:       time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateAvailableSlots lists every grid slot of the doctor's schedules for
// date. A slot is unavailable when an active booking starts at the same time,
// or when date is today and the slot has already started.
func (s *AvailabilityService) GenerateAvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Slot, error) {
	ctx, span := tracer.Start(ctx, "availability.generate_slots")
	defer span.End()
	date = domain.DateOf(date)
	span.SetAttributes(
		attribute.String("clinic.doctor_id", doctorID.String()),
		attribute.String("clinic.date", date.Format(domain.DateLayout)),
	)

	if _, err := s.doctors.GetDoctor(ctx, doctorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("doctor", doctorID)
		}
		span.RecordError(err)
		return nil, &domain.InternalError{Op: "load doctor", Err: err}
	}

	schedules, err := s.schedules.ActiveSchedules(ctx, doctorID, domain.WeekdayOf(date))
	if err != nil {
		span.RecordError(err)
		return nil, &domain.InternalError{Op: "load schedules", Err: err}
	}
	grid := schedule.DayGrid(schedules)
	if len(grid) == 0 {
		return []domain.Slot{}, nil
	}

	active, err := s.bookings.ActiveByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		span.RecordError(err)
		return nil, &domain.InternalError{Op: "load bookings", Err: err}
	}
	booked := make(map[domain.TimeOfDay]struct{}, len(active))
	for _, b := range active {
		if b.Status.Active() {
			booked[b.SlotStartTime] = struct{}{}
		}
	}

	now := s.now().In(s.location)
	isToday := domain.DateOf(now).Equal(date)
	nowTime := domain.TimeOfDayOf(now)

	slots := make([]domain.Slot, 0, len(grid))
	for _, interval := range grid {
		_, taken := booked[interval.Start]
		available := !taken
		if isToday && interval.Start < nowTime {
			available = false
		}
		slots = append(slots, domain.Slot{
			DoctorID:  doctorID,
			StartTime: interval.Start,
			EndTime:   interval.End,
			Available: available,
		})
	}

	s.logger.Debug().
		Str("doctor_id", doctorID.String()).
		Str("date", date.Format(domain.DateLayout)).
		Int("slots", len(slots)).
		Int("booked", len(booked)).
		Msg("slots generated")
	return slots, nil
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)
