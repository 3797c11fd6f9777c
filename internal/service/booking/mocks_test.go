package booking

import (
	"context"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/admission"
	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/Domenick1991/clinicbooking/internal/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Serialize(ctx context.Context, key admission.Key, fn func(ctx context.Context, store admission.Store) error) error {
	args := m.Called(ctx, key, fn)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Transition(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	args := m.Called(ctx, id, from, to, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context, filter domain.BookingFilter, page domain.PageRequest) ([]domain.Booking, int, error) {
	args := m.Called(ctx, filter, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Booking), args.Int(1), args.Error(2)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingEvent(ctx context.Context, event kafka.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockObserver struct {
	mock.Mock
}

func (m *MockObserver) ObserveTransition(from, to string) {
	m.Called(from, to)
}
