package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdays = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

func WeekdayOf(date time.Time) Weekday {
	return weekdays[date.Weekday()]
}

func ParseWeekday(s string) (Weekday, error) {
	for _, w := range weekdays {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("unknown day of week %q", s)
}

const (
	MinSlotDurationMinutes = 5
	MaxSlotDurationMinutes = 240
)

// DoctorSchedule is one recurring weekly availability window.
type DoctorSchedule struct {
	ID                  uuid.UUID `json:"id"`
	DoctorID            uuid.UUID `json:"doctor_id"`
	DayOfWeek           Weekday   `json:"day_of_week"`
	StartTime           TimeOfDay `json:"start_time"`
	EndTime             TimeOfDay `json:"end_time"`
	SlotDurationMinutes int       `json:"slot_duration_minutes"`
	Active              bool      `json:"active"`
}

func (s DoctorSchedule) Validate() error {
	if s.StartTime >= s.EndTime {
		return fmt.Errorf("schedule %s: start %s must be before end %s", s.ID, s.StartTime, s.EndTime)
	}
	if s.SlotDurationMinutes < MinSlotDurationMinutes || s.SlotDurationMinutes > MaxSlotDurationMinutes {
		return fmt.Errorf("schedule %s: slot duration %d outside [%d,%d] minutes",
			s.ID, s.SlotDurationMinutes, MinSlotDurationMinutes, MaxSlotDurationMinutes)
	}
	return nil
}

// Slot is a derived bookable window; it is never persisted.
type Slot struct {
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Available bool      `json:"available"`
}
