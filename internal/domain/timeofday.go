package domain

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TimeOfDay is a wall-clock time within a day, stored as seconds since midnight.
// Values past 24:00 only appear as the exclusive end of a computed slot.
type TimeOfDay int32

const secondsPerDay = 24 * 60 * 60

func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, fmt.Errorf("time of day out of range: %02d:%02d:%02d", hour, minute, second)
	}
	return TimeOfDay(hour*3600 + minute*60 + second), nil
}

// Clock builds a TimeOfDay from literal hour and minute values; it panics on bad input.
func Clock(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute, 0)
	if err != nil {
		panic(err)
	}
	return t
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return NewTimeOfDay(parsed.Hour(), parsed.Minute(), parsed.Second())
		}
	}
	return 0, fmt.Errorf("invalid time of day %q, expected HH:MM or HH:MM:SS", s)
}

func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) AddMinutes(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes*60)
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }
func (t TimeOfDay) Second() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	if t.Second() != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ScanTime lets pgx decode a postgres TIME column directly.
func (t *TimeOfDay) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into TimeOfDay")
	}
	*t = TimeOfDay(v.Microseconds / int64(time.Second/time.Microsecond))
	return nil
}

// TimeValue encodes the value as a postgres TIME. 24:00 is the largest TIME postgres accepts.
func (t TimeOfDay) TimeValue() (pgtype.Time, error) {
	if t < 0 || t > secondsPerDay {
		return pgtype.Time{}, fmt.Errorf("time of day %d out of range", int32(t))
	}
	return pgtype.Time{Microseconds: int64(t) * int64(time.Second/time.Microsecond), Valid: true}, nil
}

// DateOf truncates t to its calendar date in t's own location, returned as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}
