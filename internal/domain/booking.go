package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow},
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown booking status %q", s)
	}
	return status, nil
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

// Active reports whether a booking in this status still holds its slot.
func (s BookingStatus) Active() bool {
	return s != BookingStatusCancelled
}

func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                 uuid.UUID     `json:"id"`
	DoctorID           uuid.UUID     `json:"doctor_id"`
	PatientID          uuid.UUID     `json:"patient_id"`
	BookingDate        time.Time     `json:"booking_date"`
	SlotStartTime      TimeOfDay     `json:"slot_start_time"`
	SlotEndTime        TimeOfDay     `json:"slot_end_time"`
	Status             BookingStatus `json:"status"`
	Notes              string        `json:"notes,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.SlotStartTime, End: b.SlotEndTime}
}

type BookingFilter struct {
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      *time.Time
}

// NewestFirst reports whether results are a patient's history, which lists
// the latest bookings first. Doctor and date views list in day order.
func (f BookingFilter) NewestFirst() bool {
	return f.PatientID != uuid.Nil && f.DoctorID == uuid.Nil && f.Date == nil
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps Offset within int for every allowed size.
	MaxPage = math.MaxInt / MaxPageSize
)

type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the page to [0, MaxPage] and the size to [1, MaxPageSize].
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPage[T any](items []T, req PageRequest, total int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = (total + req.Size - 1) / req.Size
	}
	return Page[T]{Items: items, Page: req.Page, Size: req.Size, Total: total, TotalPages: pages}
}
