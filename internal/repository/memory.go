package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/clinicbooking/internal/admission"
	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
)

// MemoryStore keeps the directory and bookings in process. Admission is
// serialized per key with a KeyedMutex; inserts made inside Serialize become
// visible only when fn succeeds.
type MemoryStore struct {
	locks *admission.KeyedMutex

	mu        sync.RWMutex
	users     map[uuid.UUID]domain.User
	doctors   map[uuid.UUID]domain.Doctor
	patients  map[uuid.UUID]domain.Patient
	schedules []domain.DoctorSchedule
	bookings  map[uuid.UUID]domain.Booking
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    admission.NewKeyedMutex(),
		users:    make(map[uuid.UUID]domain.User),
		doctors:  make(map[uuid.UUID]domain.Doctor),
		patients: make(map[uuid.UUID]domain.Patient),
		bookings: make(map[uuid.UUID]domain.Booking),
		now:      time.Now,
	}
}

func (m *MemoryStore) AddUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) AddDoctor(d domain.Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

func (m *MemoryStore) AddPatient(p domain.Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryStore) AddSchedule(s domain.DoctorSchedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.schedules = append(m.schedules, s)
}

func (m *MemoryStore) GetDoctor(_ context.Context, id uuid.UUID) (*domain.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (m *MemoryStore) GetPatient(_ context.Context, id uuid.UUID) (*domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) GetPatientByUserID(_ context.Context, userID uuid.UUID) (*domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.UserID == userID {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) ActiveSchedules(_ context.Context, doctorID uuid.UUID, day domain.Weekday) ([]domain.DoctorSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.DoctorSchedule
	for _, s := range m.schedules {
		if s.DoctorID == doctorID && s.DayOfWeek == day && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) Serialize(ctx context.Context, key admission.Key, fn func(ctx context.Context, store admission.Store) error) error {
	unlock, err := m.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	tx := &memoryAdmissionStore{parent: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range tx.pending {
		m.bookings[b.ID] = b
	}
	return nil
}

type memoryAdmissionStore struct {
	parent  *MemoryStore
	pending []domain.Booking
}

func (s *memoryAdmissionStore) ActiveBookings(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error) {
	existing, err := s.parent.ActiveByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	for _, b := range s.pending {
		if b.DoctorID == doctorID && b.BookingDate.Equal(date) && b.Status.Active() {
			existing = append(existing, b)
		}
	}
	return existing, nil
}

func (s *memoryAdmissionStore) Insert(_ context.Context, booking *domain.Booking) error {
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := s.parent.now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	s.pending = append(s.pending, *booking)
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *MemoryStore) ActiveByDoctorAndDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.DoctorID == doctorID && b.BookingDate.Equal(date) && b.Status.Active() {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotStartTime < out[j].SlotStartTime })
	return out, nil
}

func (m *MemoryStore) Transition(_ context.Context, id uuid.UUID, from, to domain.BookingStatus, reason string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrStaleStatus
	}
	b.Status = to
	if reason != "" {
		b.CancellationReason = reason
	}
	b.UpdatedAt = m.now()
	m.bookings[id] = b
	return &b, nil
}

func (m *MemoryStore) List(_ context.Context, filter domain.BookingFilter, page domain.PageRequest) ([]domain.Booking, int, error) {
	page = page.Normalize()
	m.mu.RLock()
	var matched []domain.Booking
	for _, b := range m.bookings {
		if filter.DoctorID != uuid.Nil && b.DoctorID != filter.DoctorID {
			continue
		}
		if filter.PatientID != uuid.Nil && b.PatientID != filter.PatientID {
			continue
		}
		if filter.Date != nil && !b.BookingDate.Equal(*filter.Date) {
			continue
		}
		matched = append(matched, b)
	}
	m.mu.RUnlock()

	desc := filter.NewestFirst()
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.BookingDate.Equal(b.BookingDate) {
			return a.BookingDate.Before(b.BookingDate) != desc
		}
		if a.SlotStartTime != b.SlotStartTime {
			return (a.SlotStartTime < b.SlotStartTime) != desc
		}
		return a.ID.String() < b.ID.String()
	})

	total := len(matched)
	start := page.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + page.Size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

var (
	_ BookingRepository   = (*MemoryStore)(nil)
	_ DirectoryRepository = (*MemoryStore)(nil)
)
