// Package schedule turns recurring weekly availability into per-date slot grids.
package schedule

import (
	"bytes"
	"sort"

	"github.com/Domenick1991/clinicbooking/internal/domain"
)

// Ordered returns the active, valid schedules sorted by start, end, then id.
// Every grid and tie-break in the service goes through this order.
func Ordered(schedules []domain.DoctorSchedule) []domain.DoctorSchedule {
	out := make([]domain.DoctorSchedule, 0, len(schedules))
	for _, s := range schedules {
		if !s.Active || s.Validate() != nil {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.EndTime != b.EndTime {
			return a.EndTime < b.EndTime
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
	return out
}

// Grid lists the slots of one schedule. A trailing partial slot is dropped.
func Grid(s domain.DoctorSchedule) []domain.Interval {
	if s.Validate() != nil {
		return nil
	}
	var slots []domain.Interval
	for start := s.StartTime; start.AddMinutes(s.SlotDurationMinutes) <= s.EndTime; start = start.AddMinutes(s.SlotDurationMinutes) {
		slots = append(slots, domain.Interval{Start: start, End: start.AddMinutes(s.SlotDurationMinutes)})
	}
	return slots
}

// DayGrid merges the grids of all active schedules for one day, sorted by start
// then end, with identical intervals from overlapping schedules reported once.
func DayGrid(schedules []domain.DoctorSchedule) []domain.Interval {
	seen := make(map[domain.Interval]struct{})
	var slots []domain.Interval
	for _, s := range Ordered(schedules) {
		for _, slot := range Grid(s) {
			if _, dup := seen[slot]; dup {
				continue
			}
			seen[slot] = struct{}{}
			slots = append(slots, slot)
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})
	return slots
}

// Match finds the first schedule, in Ordered order, whose grid contains start
// exactly and returns the slot it defines.
func Match(schedules []domain.DoctorSchedule, start domain.TimeOfDay) (domain.DoctorSchedule, domain.Interval, bool) {
	for _, s := range Ordered(schedules) {
		if start < s.StartTime || start.AddMinutes(s.SlotDurationMinutes) > s.EndTime {
			continue
		}
		step := domain.TimeOfDay(s.SlotDurationMinutes * 60)
		if (start-s.StartTime)%step != 0 {
			continue
		}
		return s, domain.Interval{Start: start, End: start.AddMinutes(s.SlotDurationMinutes)}, true
	}
	return domain.DoctorSchedule{}, domain.Interval{}, false
}
