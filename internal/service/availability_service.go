package service

import (
	"context"
	"fmt"
	"time"

	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/internal/timeslot"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
)

type availabilityDayEntrySource interface {
	CountTeacherEntriesAt(ctx context.Context, teacherID string, date time.Time, start, excludeEntryID string) (int, error)
	FindGroupEntryAt(ctx context.Context, groupID string, date time.Time, start string) (*models.DayScheduleEntry, error)
	ListRoomEntriesAt(ctx context.Context, roomID string, date time.Time, start, excludeEntryID string) ([]models.DayScheduleEntry, error)
}

type availabilityWeeklySource interface {
	ListDetailByWeekAndTeacher(ctx context.Context, weekStart time.Time, teacherID string) ([]models.WeeklyDistributionDetail, error)
	ListDetailByWeekAndGroup(ctx context.Context, weekStart time.Time, groupID string) ([]models.WeeklyDistributionDetail, error)
}

type availabilityRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

// SlotConflict describes what occupies a slot when a free-check fails.
// Source is "day" for a materialized entry, "weekly" for a planned slot.
type SlotConflict struct {
	Source    string `json:"source"`
	SubjectID string `json:"subject_id,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
	RoomID    string `json:"room_id,omitempty"`
}

// AvailabilityService answers whether a teacher, group, or room is free at a
// concrete date and slot. All checks are read-only; callers must re-check
// after every write because availability shifts within a single operation.
type AvailabilityService struct {
	entries availabilityDayEntrySource
	weekly  availabilityWeeklySource
	rooms   availabilityRoomReader
}

// NewAvailabilityService wires the index.
func NewAvailabilityService(entries availabilityDayEntrySource, weekly availabilityWeeklySource, rooms availabilityRoomReader) *AvailabilityService {
	return &AvailabilityService{entries: entries, weekly: weekly, rooms: rooms}
}

// TeacherFree reports whether the teacher has no day-level booking at the
// date and start time, nor a weekly-plan slot there unless ignoreWeekly.
func (s *AvailabilityService) TeacherFree(ctx context.Context, teacherID string, date time.Time, start, excludeEntryID string, ignoreWeekly bool) (bool, error) {
	count, err := s.entries.CountTeacherEntriesAt(ctx, teacherID, date, start, excludeEntryID)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if ignoreWeekly {
		return true, nil
	}

	dists, err := s.weekly.ListDetailByWeekAndTeacher(ctx, timeslot.WeekStart(date), teacherID)
	if err != nil {
		return false, err
	}
	weekday := timeslot.WeekdayName(date)
	for _, dist := range dists {
		for _, slot := range dist.PlacedSlots() {
			if slot.Day == weekday && slot.StartTime == start {
				return false, nil
			}
		}
	}
	return true, nil
}

// GroupFree reports whether the group is free, and if not, what occupies the
// slot.
func (s *AvailabilityService) GroupFree(ctx context.Context, groupID string, date time.Time, start string, ignoreWeekly bool) (bool, *SlotConflict, error) {
	entry, err := s.entries.FindGroupEntryAt(ctx, groupID, date, start)
	if err != nil {
		return false, nil, err
	}
	if entry != nil {
		conflict := &SlotConflict{Source: "day", SubjectID: entry.SubjectID}
		if entry.TeacherID != nil {
			conflict.TeacherID = *entry.TeacherID
		}
		if entry.RoomID != nil {
			conflict.RoomID = *entry.RoomID
		}
		return false, conflict, nil
	}
	if ignoreWeekly {
		return true, nil, nil
	}

	dists, err := s.weekly.ListDetailByWeekAndGroup(ctx, timeslot.WeekStart(date), groupID)
	if err != nil {
		return false, nil, err
	}
	weekday := timeslot.WeekdayName(date)
	for _, dist := range dists {
		for _, slot := range dist.PlacedSlots() {
			if slot.Day == weekday && slot.StartTime == start {
				return false, &SlotConflict{
					Source:    "weekly",
					SubjectID: dist.SubjectID,
					TeacherID: dist.TeacherID,
					RoomID:    dist.RoomID,
				}, nil
			}
		}
	}
	return true, nil, nil
}

// RoomHasCapacity reports whether the room can take one more lesson at the
// date and start time.
func (s *AvailabilityService) RoomHasCapacity(ctx context.Context, roomID string, date time.Time, start, excludeEntryID string) (bool, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return false, err
	}
	if room == nil {
		return false, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("room %s not found", roomID))
	}
	occupants, err := s.entries.ListRoomEntriesAt(ctx, roomID, date, start, excludeEntryID)
	if err != nil {
		return false, err
	}
	return len(occupants) < room.Capacity, nil
}
