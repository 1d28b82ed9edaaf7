package timeslot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

func TestCourseFromGroupName(t *testing.T) {
	assert.Equal(t, 2, CourseFromGroupName("ПО-21"))
	assert.Equal(t, 1, CourseFromGroupName("ИС-11а"))
	assert.Equal(t, 3, CourseFromGroupName("Э-3"))
	assert.Equal(t, 0, CourseFromGroupName("nodigits"))
	assert.Equal(t, 0, CourseFromGroupName(""))
}

func TestSlotsForShiftSelection(t *testing.T) {
	assert.Equal(t, ShiftA, SlotsFor("ПО-11", true), "course 1 studies mornings")
	assert.Equal(t, ShiftA, SlotsFor("ПО-31", true), "course 3 studies mornings")
	assert.Equal(t, ShiftB, SlotsFor("ПО-21", true))
	assert.Equal(t, ShiftB, SlotsFor("ПО-41", true))
	assert.Equal(t, ShiftA, SlotsFor("ПО-21", false), "shifts disabled forces morning grid")
	assert.Equal(t, ShiftA, SlotsFor("unparseable", true), "unknown course defaults to shift A")
}

func TestWeekStart(t *testing.T) {
	// 2025-09-04 is a Thursday.
	d := time.Date(2025, 9, 4, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), WeekStart(d))
	// Monday maps to itself.
	mon := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, WeekStart(mon))
	// Sunday belongs to the preceding week.
	sun := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, mon, WeekStart(sun))
}

func TestIsEvenWeek(t *testing.T) {
	base := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, IsEvenWeek(base, base))
	assert.True(t, IsEvenWeek(base.AddDate(0, 0, 4), base), "same week keeps parity")
	assert.False(t, IsEvenWeek(base.AddDate(0, 0, 7), base))
	assert.True(t, IsEvenWeek(base.AddDate(0, 0, 14), base))
}

func TestPairsForWeek(t *testing.T) {
	cases := []struct {
		name   string
		hours  float64
		wt     models.WeekType
		isEven bool
		want   int
	}{
		{"balanced whole", 4, models.WeekTypeBalanced, true, 2},
		{"balanced rounds nearest", 3, models.WeekTypeBalanced, false, 2},
		{"even priority on even week ceils", 3, models.WeekTypeEvenPriority, true, 2},
		{"even priority on odd week floors", 3, models.WeekTypeEvenPriority, false, 1},
		{"odd priority mirrors", 3, models.WeekTypeOddPriority, true, 1},
		{"odd priority on odd week ceils", 3, models.WeekTypeOddPriority, false, 2},
		{"zero hours", 0, models.WeekTypeBalanced, true, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PairsForWeek(tc.hours, tc.wt, tc.isEven, 2))
		})
	}
}

func TestWeekdayHelpers(t *testing.T) {
	assert.Equal(t, "Monday", WeekdayName(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", WeekdayName(time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC)), "Saturday is not a teaching day")
	assert.Equal(t, 2, WeekdayIndex("Wednesday"))
	assert.Equal(t, -1, WeekdayIndex("Sunday"))
	assert.Equal(t, 1, SlotIndex(ShiftA, "09:40"))
	assert.Equal(t, -1, SlotIndex(ShiftA, "23:00"))
}
