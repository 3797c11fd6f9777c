package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/admission"
	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/Domenick1991/clinicbooking/internal/repository"
	"github.com/Domenick1991/clinicbooking/internal/schedule"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 2026-10-26 is a Monday.
var monday = time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC)

type MockBookingReader struct {
	mock.Mock
}

func (m *MockBookingReader) ActiveByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func newStore(t *testing.T) (*repository.MemoryStore, uuid.UUID) {
	t.Helper()
	store := repository.NewMemoryStore()
	doctorID := uuid.New()
	store.AddDoctor(domain.Doctor{ID: doctorID, Name: "Dr. Grey", Active: true})
	store.AddSchedule(domain.DoctorSchedule{
		DoctorID:            doctorID,
		DayOfWeek:           domain.Monday,
		StartTime:           domain.Clock(13, 0),
		EndTime:             domain.Clock(16, 0),
		SlotDurationMinutes: 30,
		Active:              true,
	})
	return store, doctorID
}

func book(t *testing.T, store *repository.MemoryStore, b domain.Booking) {
	t.Helper()
	require.NoError(t, store.Serialize(context.Background(), admission.KeyOf(b.DoctorID, b.BookingDate),
		func(ctx context.Context, s admission.Store) error { return s.Insert(ctx, &b) }))
}

func newService(store *repository.MemoryStore, now time.Time) *AvailabilityService {
	return NewAvailabilityService(store, schedule.NewProvider(store, nil, zerolog.Nop()), store,
		WithClock(func() time.Time { return now }))
}

func TestGenerateAvailableSlots_MarksBookedStarts(t *testing.T) {
	store, doctorID := newStore(t)
	book(t, store, domain.Booking{DoctorID: doctorID, PatientID: uuid.New(), BookingDate: monday,
		SlotStartTime: domain.Clock(13, 0), SlotEndTime: domain.Clock(13, 30), Status: domain.BookingStatusPending})
	book(t, store, domain.Booking{DoctorID: doctorID, PatientID: uuid.New(), BookingDate: monday,
		SlotStartTime: domain.Clock(14, 0), SlotEndTime: domain.Clock(14, 30), Status: domain.BookingStatusCancelled})

	service := newService(store, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	slots, err := service.GenerateAvailableSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)

	require.Len(t, slots, 6)
	assert.Equal(t, domain.Clock(13, 0), slots[0].StartTime)
	assert.Equal(t, domain.Clock(13, 30), slots[0].EndTime)
	assert.False(t, slots[0].Available)
	for _, slot := range slots[1:] {
		assert.True(t, slot.Available, slot.StartTime.String())
	}
	assert.Equal(t, domain.Clock(15, 30), slots[5].StartTime)
}

func TestGenerateAvailableSlots_MasksElapsedSlotsToday(t *testing.T) {
	store, doctorID := newStore(t)
	service := newService(store, time.Date(2026, 10, 26, 14, 10, 0, 0, time.UTC))

	slots, err := service.GenerateAvailableSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)

	available := map[string]bool{}
	for _, slot := range slots {
		available[slot.StartTime.String()] = slot.Available
	}
	assert.Equal(t, map[string]bool{
		"13:00": false, "13:30": false, "14:00": false,
		"14:30": true, "15:00": true, "15:30": true,
	}, available)
}

func TestGenerateAvailableSlots_TodayUsesConfiguredLocation(t *testing.T) {
	store, doctorID := newStore(t)
	loc := time.FixedZone("UTC+3", 3*3600)
	// 2026-10-25 23:30 UTC is already Monday 02:30 at UTC+3.
	now := time.Date(2026, 10, 25, 23, 30, 0, 0, time.UTC)
	service := NewAvailabilityService(store, store, store, WithClock(func() time.Time { return now }), WithLocation(loc))

	slots, err := service.GenerateAvailableSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)
	for _, slot := range slots {
		assert.True(t, slot.Available)
	}

	service = NewAvailabilityService(store, store, store,
		WithClock(func() time.Time { return now.Add(13 * time.Hour) }), WithLocation(loc))
	slots, err = service.GenerateAvailableSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)
	assert.False(t, slots[0].Available)
	assert.True(t, slots[len(slots)-1].Available)
}

func TestGenerateAvailableSlots_NoScheduleAndUnknownDoctor(t *testing.T) {
	store, doctorID := newStore(t)
	service := newService(store, time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))

	tuesday := monday.AddDate(0, 0, 1)
	slots, err := service.GenerateAvailableSlots(context.Background(), doctorID, tuesday)
	require.NoError(t, err)
	assert.Empty(t, slots)

	_, err = service.GenerateAvailableSlots(context.Background(), uuid.New(), monday)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGenerateAvailableSlots_BookingReadFailure(t *testing.T) {
	store, doctorID := newStore(t)
	reader := new(MockBookingReader)
	reader.On("ActiveByDoctorAndDate", mock.Anything, doctorID, monday).Return(nil, errors.New("db down"))

	service := NewAvailabilityService(store, store, reader)
	_, err := service.GenerateAvailableSlots(context.Background(), doctorID, monday)

	var internal *domain.InternalError
	assert.ErrorAs(t, err, &internal)
	reader.AssertExpectations(t)
}
