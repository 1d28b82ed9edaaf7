package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almas-dev/college-timetable-api/internal/models"
)

type stubEntrySource struct {
	teacherCounts map[string]int
	groupEntry    *models.DayScheduleEntry
	roomEntries   []models.DayScheduleEntry
}

func (s *stubEntrySource) CountTeacherEntriesAt(_ context.Context, teacherID string, _ time.Time, start, _ string) (int, error) {
	return s.teacherCounts[teacherID+"|"+start], nil
}

func (s *stubEntrySource) FindGroupEntryAt(_ context.Context, _ string, _ time.Time, _ string) (*models.DayScheduleEntry, error) {
	return s.groupEntry, nil
}

func (s *stubEntrySource) ListRoomEntriesAt(_ context.Context, _ string, _ time.Time, _, _ string) ([]models.DayScheduleEntry, error) {
	return s.roomEntries, nil
}

type stubWeeklySource struct {
	byTeacher []models.WeeklyDistributionDetail
	byGroup   []models.WeeklyDistributionDetail
}

func (s *stubWeeklySource) ListDetailByWeekAndTeacher(_ context.Context, _ time.Time, _ string) ([]models.WeeklyDistributionDetail, error) {
	return s.byTeacher, nil
}

func (s *stubWeeklySource) ListDetailByWeekAndGroup(_ context.Context, _ time.Time, _ string) ([]models.WeeklyDistributionDetail, error) {
	return s.byGroup, nil
}

func weeklyDetail(t *testing.T, day, start string) models.WeeklyDistributionDetail {
	t.Helper()
	detail := models.WeeklyDistributionDetail{
		SubjectID: "s1",
		TeacherID: "teacher-1",
		RoomID:    "room-1",
	}
	require.NoError(t, detail.SetPlacedSlots([]models.PlacedSlot{
		{Day: day, StartTime: start, EndTime: "09:30"},
	}))
	return detail
}

func TestTeacherFreeDayLevelBooking(t *testing.T) {
	entries := &stubEntrySource{teacherCounts: map[string]int{"teacher-1|08:00": 1}}
	svc := NewAvailabilityService(entries, &stubWeeklySource{}, &stubRoomReader{})

	monday := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	free, err := svc.TeacherFree(context.Background(), "teacher-1", monday, "08:00", "", false)
	require.NoError(t, err)
	assert.False(t, free)

	free, err = svc.TeacherFree(context.Background(), "teacher-1", monday, "09:40", "", false)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestTeacherFreeWeeklyPlanConflict(t *testing.T) {
	weekly := &stubWeeklySource{byTeacher: []models.WeeklyDistributionDetail{
		weeklyDetail(t, "Monday", "08:00"),
	}}
	svc := NewAvailabilityService(&stubEntrySource{}, weekly, &stubRoomReader{})

	monday := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	free, err := svc.TeacherFree(context.Background(), "teacher-1", monday, "08:00", "", false)
	require.NoError(t, err)
	assert.False(t, free, "weekly plan blocks the slot")

	free, err = svc.TeacherFree(context.Background(), "teacher-1", monday, "08:00", "", true)
	require.NoError(t, err)
	assert.True(t, free, "ignoring weekly conflicts frees the slot")
}

func TestGroupFreeReportsConflictSource(t *testing.T) {
	teacherID := "teacher-2"
	entries := &stubEntrySource{groupEntry: &models.DayScheduleEntry{
		ID: "e1", GroupID: "group-1", SubjectID: "s2", TeacherID: &teacherID, StartTime: "08:00",
	}}
	svc := NewAvailabilityService(entries, &stubWeeklySource{}, &stubRoomReader{})

	monday := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	free, conflict, err := svc.GroupFree(context.Background(), "group-1", monday, "08:00", false)
	require.NoError(t, err)
	assert.False(t, free)
	require.NotNil(t, conflict)
	assert.Equal(t, "day", conflict.Source)
	assert.Equal(t, "s2", conflict.SubjectID)

	weekly := &stubWeeklySource{byGroup: []models.WeeklyDistributionDetail{
		weeklyDetail(t, "Monday", "08:00"),
	}}
	svc = NewAvailabilityService(&stubEntrySource{}, weekly, &stubRoomReader{})
	free, conflict, err = svc.GroupFree(context.Background(), "group-1", monday, "08:00", false)
	require.NoError(t, err)
	assert.False(t, free)
	require.NotNil(t, conflict)
	assert.Equal(t, "weekly", conflict.Source)
}

func TestRoomHasCapacityCountsOccupants(t *testing.T) {
	rooms := &stubRoomReader{rooms: map[string]*models.Room{
		"gym-1": {ID: "gym-1", Name: "Спортзал", Capacity: 2},
	}}
	entries := &stubEntrySource{roomEntries: []models.DayScheduleEntry{{ID: "e1"}}}
	svc := NewAvailabilityService(entries, &stubWeeklySource{}, rooms)

	monday := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	ok, err := svc.RoomHasCapacity(context.Background(), "gym-1", monday, "08:00", "")
	require.NoError(t, err)
	assert.True(t, ok, "one occupant of two fits another lesson")

	entries.roomEntries = append(entries.roomEntries, models.DayScheduleEntry{ID: "e2"})
	ok, err = svc.RoomHasCapacity(context.Background(), "gym-1", monday, "08:00", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.RoomHasCapacity(context.Background(), "missing", monday, "08:00", "")
	assert.Error(t, err)
}
