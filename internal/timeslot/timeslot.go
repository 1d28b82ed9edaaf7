// Package timeslot holds the fixed lesson grid and the calendar arithmetic
// shared by the week and day planners.
package timeslot

import (
	"math"
	"strings"
	"time"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

// Slot is one fixed lesson window within a shift.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ShiftA is the morning grid used by courses 1 and 3.
var ShiftA = []Slot{
	{Start: "08:00", End: "09:30"},
	{Start: "09:40", End: "11:10"},
	{Start: "11:20", End: "12:50"},
	{Start: "13:00", End: "14:30"},
}

// ShiftB is the afternoon grid used by the remaining courses.
var ShiftB = []Slot{
	{Start: "13:25", End: "14:55"},
	{Start: "15:05", End: "16:35"},
	{Start: "16:50", End: "18:20"},
	{Start: "18:30", End: "20:00"},
}

// Weekdays are the teaching days, indexed by time.Weekday-1 for Mon-Fri.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// CourseFromGroupName extracts the course numeral from names like "ПО-21":
// the first digit after the dash. Returns 0 when the name has no such digit.
func CourseFromGroupName(name string) int {
	idx := strings.Index(name, "-")
	if idx < 0 || idx+1 >= len(name) {
		return 0
	}
	for _, ch := range name[idx+1:] {
		if ch >= '0' && ch <= '9' {
			return int(ch - '0')
		}
	}
	return 0
}

// SlotsFor returns the ordered slot grid for a group. With shifts disabled
// every group studies in the morning grid.
func SlotsFor(groupName string, shiftsEnabled bool) []Slot {
	if !shiftsEnabled {
		return ShiftA
	}
	course := CourseFromGroupName(groupName)
	if course == 0 {
		course = 1
	}
	if course == 1 || course == 3 {
		return ShiftA
	}
	return ShiftB
}

// SlotIndex maps a start time to its position in the grid, or -1.
func SlotIndex(slots []Slot, start string) int {
	for i, s := range slots {
		if s.Start == start {
			return i
		}
	}
	return -1
}

// WeekStart truncates a date to the Monday of its week.
func WeekStart(d time.Time) time.Time {
	d = DateOnly(d)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// DateOnly drops the clock part, keeping the calendar date in UTC.
func DateOnly(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekdayName returns the teaching-day name for a date, or "" on weekends.
func WeekdayName(d time.Time) string {
	idx := (int(d.Weekday()) + 6) % 7
	if idx >= len(Weekdays) {
		return ""
	}
	return Weekdays[idx]
}

// WeekdayIndex returns the position of a day name in the teaching week, or -1.
func WeekdayIndex(name string) int {
	for i, n := range Weekdays {
		if n == name {
			return i
		}
	}
	return -1
}

// IsEvenWeek computes week parity against the configured base date. The week
// containing the base date is even; parity alternates weekly from there.
func IsEvenWeek(d, base time.Time) bool {
	weeks := int(WeekStart(d).Sub(WeekStart(base)).Hours() / 24 / 7)
	if weeks < 0 {
		weeks = -weeks
	}
	return weeks%2 == 0
}

// PairsForWeek converts a weekly hour quota into lesson-pairs for a concrete
// week. Priority week types round up on their side of the alternation and
// down on the other; balanced quotas take the nearest pair count every week.
func PairsForWeek(weeklyHours float64, weekType models.WeekType, isEven bool, pairSize int) int {
	if weeklyHours <= 0 || pairSize <= 0 {
		return 0
	}
	avg := weeklyHours / float64(pairSize)
	switch weekType {
	case models.WeekTypeEvenPriority:
		if isEven {
			return int(math.Ceil(avg))
		}
		return int(math.Floor(avg))
	case models.WeekTypeOddPriority:
		if isEven {
			return int(math.Floor(avg))
		}
		return int(math.Ceil(avg))
	default:
		return int(math.Round(avg))
	}
}

// HoursForWeek is PairsForWeek expressed back in academic hours.
func HoursForWeek(weeklyHours float64, weekType models.WeekType, isEven bool, pairSize int) float64 {
	return float64(PairsForWeek(weeklyHours, weekType, isEven, pairSize) * pairSize)
}
