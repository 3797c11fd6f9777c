package schedule

import (
	"testing"

	"github.com/Domenick1991/clinicbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchedule(start, end domain.TimeOfDay, minutes int) domain.DoctorSchedule {
	return domain.DoctorSchedule{
		ID:                  uuid.New(),
		DoctorID:            uuid.New(),
		DayOfWeek:           domain.Monday,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: minutes,
		Active:              true,
	}
}

func starts(slots []domain.Interval) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String())
	}
	return out
}

func TestGrid_MorningHalfHourSlots(t *testing.T) {
	slots := Grid(newSchedule(domain.Clock(9, 0), domain.Clock(12, 0), 30))

	require.Len(t, slots, 6)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, starts(slots))
	for _, s := range slots {
		assert.LessOrEqual(t, s.End, domain.Clock(12, 0))
		assert.Equal(t, s.Start.AddMinutes(30), s.End)
	}
}

func TestGrid_DropsPartialTrailingSlot(t *testing.T) {
	slots := Grid(newSchedule(domain.Clock(9, 0), domain.Clock(10, 45), 30))

	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, starts(slots))
}

func TestGrid_InvalidScheduleYieldsNothing(t *testing.T) {
	assert.Empty(t, Grid(newSchedule(domain.Clock(9, 0), domain.Clock(12, 0), 0)))
	assert.Empty(t, Grid(newSchedule(domain.Clock(12, 0), domain.Clock(9, 0), 30)))
}

func TestDayGrid_NoSchedulesIsEmpty(t *testing.T) {
	assert.Empty(t, DayGrid(nil))
}

func TestDayGrid_MergesWindowsAndSkipsInactive(t *testing.T) {
	afternoon := newSchedule(domain.Clock(14, 0), domain.Clock(15, 0), 20)
	morning := newSchedule(domain.Clock(9, 0), domain.Clock(10, 0), 30)
	inactive := newSchedule(domain.Clock(12, 0), domain.Clock(13, 0), 30)
	inactive.Active = false

	slots := DayGrid([]domain.DoctorSchedule{afternoon, inactive, morning})

	assert.Equal(t, []string{"09:00", "09:30", "14:00", "14:20", "14:40"}, starts(slots))
}

func TestDayGrid_OverlappingSchedulesDeduplicated(t *testing.T) {
	a := newSchedule(domain.Clock(9, 0), domain.Clock(11, 0), 30)
	b := newSchedule(domain.Clock(10, 0), domain.Clock(12, 0), 30)

	slots := DayGrid([]domain.DoctorSchedule{b, a})

	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}, starts(slots))
}

func TestMatch_ExactGridPoint(t *testing.T) {
	s := newSchedule(domain.Clock(9, 0), domain.Clock(12, 0), 30)

	matched, slot, ok := Match([]domain.DoctorSchedule{s}, domain.Clock(11, 30))
	require.True(t, ok)
	assert.Equal(t, s.ID, matched.ID)
	assert.Equal(t, domain.Interval{Start: domain.Clock(11, 30), End: domain.Clock(12, 0)}, slot)
}

func TestMatch_RejectsOffGridAndOutOfWindow(t *testing.T) {
	s := newSchedule(domain.Clock(9, 0), domain.Clock(12, 0), 30)
	schedules := []domain.DoctorSchedule{s}

	for _, start := range []domain.TimeOfDay{
		domain.Clock(9, 15),
		domain.Clock(8, 30),
		domain.Clock(12, 0),
		domain.Clock(9, 0) + 1,
	} {
		_, _, ok := Match(schedules, start)
		assert.False(t, ok, start.String())
	}
}

func TestMatch_OverlappingSchedulesUseEarliestStart(t *testing.T) {
	long := newSchedule(domain.Clock(10, 0), domain.Clock(13, 0), 60)
	short := newSchedule(domain.Clock(9, 0), domain.Clock(12, 0), 30)

	matched, slot, ok := Match([]domain.DoctorSchedule{long, short}, domain.Clock(11, 0))
	require.True(t, ok)
	assert.Equal(t, short.ID, matched.ID)
	assert.Equal(t, domain.Clock(11, 30), slot.End)

	matched, slot, ok = Match([]domain.DoctorSchedule{long, short}, domain.Clock(12, 0))
	require.True(t, ok)
	assert.Equal(t, long.ID, matched.ID)
	assert.Equal(t, domain.Clock(13, 0), slot.End)
}
