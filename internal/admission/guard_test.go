package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	bookings  []domain.Booking
	locks     *KeyedMutex
	insertErr error
	loadErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{locks: NewKeyedMutex()}
}

func (s *fakeStore) Serialize(ctx context.Context, key Key, fn func(ctx context.Context, store Store) error) error {
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn(ctx, s)
}

func (s *fakeStore) ActiveBookings(_ context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.DoctorID == doctorID && b.BookingDate.Equal(date) && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeStore) Insert(_ context.Context, b *domain.Booking) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.New()
	s.bookings = append(s.bookings, *b)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (o *recordingObserver) ObserveAdmission(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
}

var testDate = time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC)

func candidate(doctorID uuid.UUID, start, end domain.TimeOfDay) *domain.Booking {
	return &domain.Booking{
		DoctorID:      doctorID,
		PatientID:     uuid.New(),
		BookingDate:   testDate,
		SlotStartTime: start,
		SlotEndTime:   end,
		Status:        domain.BookingStatusPending,
	}
}

func TestFindConflict(t *testing.T) {
	doctor := uuid.New()
	existing := []domain.Booking{
		*candidate(doctor, domain.Clock(9, 0), domain.Clock(9, 30)),
		{SlotStartTime: domain.Clock(10, 0), SlotEndTime: domain.Clock(10, 30), Status: domain.BookingStatusCancelled},
	}

	blocking, found := FindConflict(existing, domain.Interval{Start: domain.Clock(9, 15), End: domain.Clock(9, 45)})
	require.True(t, found)
	assert.Equal(t, domain.Clock(9, 0), blocking.SlotStartTime)

	_, found = FindConflict(existing, domain.Interval{Start: domain.Clock(10, 0), End: domain.Clock(10, 30)})
	assert.False(t, found, "cancelled bookings never block")

	_, found = FindConflict(existing, domain.Interval{Start: domain.Clock(9, 30), End: domain.Clock(10, 0)})
	assert.False(t, found, "adjacent intervals do not overlap")
}

func TestGuard_AdmitsFreeInterval(t *testing.T) {
	store := newFakeStore()
	observer := &recordingObserver{}
	guard := NewGuard(store, WithObserver(observer))

	b := candidate(uuid.New(), domain.Clock(13, 0), domain.Clock(13, 30))
	require.NoError(t, guard.Admit(context.Background(), b))

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, 1, observer.outcomes[OutcomeAdmitted])
}

func TestGuard_RejectsPartialOverlap(t *testing.T) {
	store := newFakeStore()
	guard := NewGuard(store)
	doctor := uuid.New()

	require.NoError(t, guard.Admit(context.Background(), candidate(doctor, domain.Clock(10, 0), domain.Clock(11, 0))))

	err := guard.Admit(context.Background(), candidate(doctor, domain.Clock(10, 30), domain.Clock(11, 30)))
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.Interval{Start: domain.Clock(10, 0), End: domain.Clock(11, 0)}, conflict.Blocking)
	assert.Contains(t, err.Error(), "10:00-11:00")
}

func TestGuard_OtherDoctorOrDateIsIndependent(t *testing.T) {
	store := newFakeStore()
	guard := NewGuard(store)
	doctor := uuid.New()

	require.NoError(t, guard.Admit(context.Background(), candidate(doctor, domain.Clock(10, 0), domain.Clock(10, 30))))
	require.NoError(t, guard.Admit(context.Background(), candidate(uuid.New(), domain.Clock(10, 0), domain.Clock(10, 30))))

	nextDay := candidate(doctor, domain.Clock(10, 0), domain.Clock(10, 30))
	nextDay.BookingDate = testDate.AddDate(0, 0, 1)
	require.NoError(t, guard.Admit(context.Background(), nextDay))
}

func TestGuard_ConcurrentSameSlotAdmitsExactlyOne(t *testing.T) {
	store := newFakeStore()
	observer := &recordingObserver{}
	guard := NewGuard(store, WithObserver(observer))
	doctor := uuid.New()

	const attempts = 50
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = guard.Admit(context.Background(), candidate(doctor, domain.Clock(13, 0), domain.Clock(13, 30)))
		}(i)
	}
	close(start)
	wg.Wait()

	admitted, conflicts := 0, 0
	for _, err := range errs {
		var conflict *domain.ConflictError
		switch {
		case err == nil:
			admitted++
		case errors.As(err, &conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, admitted)
	assert.Equal(t, attempts-1, conflicts)
	assert.Equal(t, attempts-1, observer.outcomes[OutcomeConflict])

	active, err := store.ActiveBookings(context.Background(), doctor, testDate)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestGuard_LockWaitTimeoutIsTransient(t *testing.T) {
	store := newFakeStore()
	observer := &recordingObserver{}
	guard := NewGuard(store, WithTimeout(20*time.Millisecond), WithObserver(observer))
	doctor := uuid.New()

	unlock, err := store.locks.Lock(context.Background(), KeyOf(doctor, testDate))
	require.NoError(t, err)
	defer unlock()

	err = guard.Admit(context.Background(), candidate(doctor, domain.Clock(9, 0), domain.Clock(9, 30)))
	var transient *domain.TransientError
	require.ErrorAs(t, err, &transient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, observer.outcomes[OutcomeTimeout])
}

func TestGuard_StorageFailureIsInternal(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("disk full")
	guard := NewGuard(store)

	err := guard.Admit(context.Background(), candidate(uuid.New(), domain.Clock(9, 0), domain.Clock(9, 30)))
	var internal *domain.InternalError
	require.ErrorAs(t, err, &internal)
	assert.ErrorContains(t, err, "disk full")
}
