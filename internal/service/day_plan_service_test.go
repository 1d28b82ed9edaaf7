package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
)

type memDayStore struct {
	day     *models.DaySchedule
	entries []models.DayScheduleEntry
	nextID  int
}

func (s *memDayStore) GetOrCreateByDate(_ context.Context, date time.Time) (*models.DaySchedule, error) {
	if s.day == nil {
		s.day = &models.DaySchedule{ID: "day-1", Date: date, Status: models.DayScheduleStatusPending}
	}
	return s.day, nil
}

func (s *memDayStore) FindByDate(_ context.Context, _ time.Time) (*models.DaySchedule, error) {
	return s.day, nil
}

func (s *memDayStore) CountApprovedEntries(_ context.Context, _, groupID string) (int, error) {
	count := 0
	for _, entry := range s.entries {
		if entry.Status == models.DayEntryStatusApproved && (groupID == "" || entry.GroupID == groupID) {
			count++
		}
	}
	return count, nil
}

func (s *memDayStore) DeleteNonApprovedEntries(_ context.Context, _, groupID string) error {
	var kept []models.DayScheduleEntry
	for _, entry := range s.entries {
		if entry.Status == models.DayEntryStatusApproved || (groupID != "" && entry.GroupID != groupID) {
			kept = append(kept, entry)
		}
	}
	s.entries = kept
	return nil
}

func (s *memDayStore) CreateEntry(_ context.Context, entry *models.DayScheduleEntry) error {
	s.nextID++
	entry.ID = fmt.Sprintf("entry-%d", s.nextID)
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memDayStore) ListEntries(_ context.Context, _ string, filter models.DayEntryFilter) ([]models.DayScheduleEntry, error) {
	var out []models.DayScheduleEntry
	for _, entry := range s.entries {
		if filter.GroupID != "" && entry.GroupID != filter.GroupID {
			continue
		}
		if filter.StartTime != "" && entry.StartTime != filter.StartTime {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

type stubGroupDir struct {
	groups []models.Group
}

func (s *stubGroupDir) FindByName(_ context.Context, name string) (*models.Group, error) {
	for i := range s.groups {
		if s.groups[i].Name == name {
			return &s.groups[i], nil
		}
	}
	return nil, nil
}

func (s *stubGroupDir) FindByID(_ context.Context, id string) (*models.Group, error) {
	for i := range s.groups {
		if s.groups[i].ID == id {
			return &s.groups[i], nil
		}
	}
	return nil, nil
}

func (s *stubGroupDir) List(_ context.Context) ([]models.Group, error) {
	return s.groups, nil
}

type stubItemsByGroup struct {
	byGroup map[string][]models.ScheduleItem
}

func (s *stubItemsByGroup) ListByGroup(_ context.Context, groupID string) ([]models.ScheduleItem, error) {
	return s.byGroup[groupID], nil
}

type stubDistsByGroup struct {
	byGroup map[string][]models.WeeklyDistributionDetail
}

func (s *stubDistsByGroup) ListDetailByWeekAndGroup(_ context.Context, _ time.Time, groupID string) ([]models.WeeklyDistributionDetail, error) {
	return s.byGroup[groupID], nil
}

type stubDayCalendar struct {
	practices map[string]bool
	holidays  []models.Holiday
}

func (s *stubDayCalendar) GroupOnPractice(_ context.Context, groupID string, _ time.Time) (bool, error) {
	return s.practices[groupID], nil
}

func (s *stubDayCalendar) ListHolidaysOverlapping(_ context.Context, _, _ time.Time) ([]models.Holiday, error) {
	return s.holidays, nil
}

// openAvailability answers free to everything; the day store is the only
// constraint under test.
type openAvailability struct{}

func (openAvailability) TeacherFree(_ context.Context, _ string, _ time.Time, _, _ string, _ bool) (bool, error) {
	return true, nil
}

func (openAvailability) GroupFree(_ context.Context, _ string, _ time.Time, _ string, _ bool) (bool, *SlotConflict, error) {
	return true, nil, nil
}

func (openAvailability) RoomHasCapacity(_ context.Context, _ string, _ time.Time, _, _ string) (bool, error) {
	return true, nil
}

type stubTeacherResolver struct{}

func (stubTeacherResolver) FindByName(_ context.Context, _ string) (*models.Teacher, error) {
	return nil, nil
}

type stubRoomResolver struct{}

func (stubRoomResolver) FindByName(_ context.Context, _ string) (*models.Room, error) {
	return nil, nil
}

type stubSubjectResolver struct{}

func (stubSubjectResolver) FindByName(_ context.Context, _ string) (*models.Subject, error) {
	return nil, nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateDay(_ context.Context, _ string) {
	c.calls++
}

func detailWithSlots(t *testing.T, itemID, groupID, subjectID, teacherID, roomID string, slots []models.PlacedSlot) models.WeeklyDistributionDetail {
	t.Helper()
	detail := models.WeeklyDistributionDetail{
		GroupID:   groupID,
		SubjectID: subjectID,
		TeacherID: teacherID,
		RoomID:    roomID,
	}
	detail.ScheduleItemID = itemID
	require.NoError(t, detail.SetPlacedSlots(slots))
	return detail
}

func newDayPlanFixture(store *memDayStore, dists *stubDistsByGroup, items *stubItemsByGroup) (*DayPlanService, *countingInvalidator) {
	groups := &stubGroupDir{groups: []models.Group{{ID: "group-1", Name: "ПО-11"}}}
	if items == nil {
		items = &stubItemsByGroup{byGroup: map[string][]models.ScheduleItem{}}
	}
	invalidator := &countingInvalidator{}
	svc := NewDayPlanService(
		store, groups, items, dists, &stubDayCalendar{practices: map[string]bool{}},
		openAvailability{}, stubTeacherResolver{}, stubRoomResolver{}, stubSubjectResolver{},
		invalidator, nil, nil, nil, testSchedulerConfig(),
	)
	return svc, invalidator
}

func TestPlanDayFromPlanSkipsDuplicateGroupSlot(t *testing.T) {
	// Two distributions both claim Monday 08:00 for the same group.
	dists := &stubDistsByGroup{byGroup: map[string][]models.WeeklyDistributionDetail{
		"group-1": {
			detailWithSlots(t, "item-1", "group-1", "subject-1", "teacher-1", "room-1",
				[]models.PlacedSlot{{Day: "Monday", StartTime: "08:00", EndTime: "09:30"}}),
			detailWithSlots(t, "item-2", "group-1", "subject-2", "teacher-2", "room-2",
				[]models.PlacedSlot{{Day: "Monday", StartTime: "08:00", EndTime: "09:30"}}),
		},
	}}
	store := &memDayStore{}
	svc, invalidator := newDayPlanFixture(store, dists, nil)

	result, err := svc.PlanDay(context.Background(), dto.PlanDayRequest{Date: "2025-09-01", FromPlan: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Placed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "already has a pair at 08:00")
	assert.Equal(t, 1, invalidator.calls)
}

func TestPlanDayNoGapsDropsWindowedPair(t *testing.T) {
	dists := &stubDistsByGroup{byGroup: map[string][]models.WeeklyDistributionDetail{
		"group-1": {
			detailWithSlots(t, "item-1", "group-1", "subject-1", "teacher-1", "room-1",
				[]models.PlacedSlot{{Day: "Monday", StartTime: "08:00", EndTime: "09:30"}}),
			detailWithSlots(t, "item-2", "group-1", "subject-2", "teacher-2", "room-2",
				[]models.PlacedSlot{{Day: "Monday", StartTime: "11:20", EndTime: "12:50"}}),
		},
	}}
	store := &memDayStore{}
	svc, _ := newDayPlanFixture(store, dists, nil)

	result, err := svc.PlanDay(context.Background(), dto.PlanDayRequest{
		Date: "2025-09-01", FromPlan: true, EnforceNoGaps: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Placed)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "08:00", result.Entries[0].StartTime)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "would leave a window")
}

func TestPlanDayFromPlanRespectsSurvivingEntries(t *testing.T) {
	// group-2's approved 08:00 pair survives the group-1 rebuild and keeps
	// its teacher occupied.
	store := &memDayStore{
		day: &models.DaySchedule{
			ID:     "day-1",
			Date:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			Status: models.DayScheduleStatusPending,
		},
		entries: []models.DayScheduleEntry{{
			ID:        "entry-0",
			GroupID:   "group-2",
			SubjectID: "subject-9",
			TeacherID: entryRef("teacher-1"),
			RoomID:    entryRef("room-9"),
			StartTime: "08:00",
			Status:    models.DayEntryStatusApproved,
		}},
	}
	dists := &stubDistsByGroup{byGroup: map[string][]models.WeeklyDistributionDetail{
		"group-1": {
			detailWithSlots(t, "item-1", "group-1", "subject-1", "teacher-1", "room-1",
				[]models.PlacedSlot{{Day: "Monday", StartTime: "08:00", EndTime: "09:30"}}),
		},
	}}
	groups := &stubGroupDir{groups: []models.Group{
		{ID: "group-1", Name: "ПО-11"},
		{ID: "group-2", Name: "БУ-11"},
	}}
	invalidator := &countingInvalidator{}
	svc := NewDayPlanService(
		store, groups, &stubItemsByGroup{byGroup: map[string][]models.ScheduleItem{}}, dists,
		&stubDayCalendar{practices: map[string]bool{}},
		openAvailability{}, stubTeacherResolver{}, stubRoomResolver{}, stubSubjectResolver{},
		invalidator, nil, nil, nil, testSchedulerConfig(),
	)

	result, err := svc.PlanDay(context.Background(), dto.PlanDayRequest{
		Date: "2025-09-01", FromPlan: true, GroupNames: []string{"ПО-11"},
	})
	require.NoError(t, err)

	assert.Zero(t, result.Placed)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "teacher busy at 08:00")

	booked := 0
	for _, entry := range store.entries {
		if entry.TeacherID != nil && *entry.TeacherID == "teacher-1" && entry.StartTime == "08:00" {
			booked++
		}
	}
	assert.Equal(t, 1, booked, "teacher-1 must not be double-booked at 08:00")
}

func TestPlanDayApprovedDayRejected(t *testing.T) {
	store := &memDayStore{day: &models.DaySchedule{
		ID:     "day-1",
		Date:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Status: models.DayScheduleStatusApproved,
	}}
	svc, _ := newDayPlanFixture(store, &stubDistsByGroup{}, nil)

	_, err := svc.PlanDay(context.Background(), dto.PlanDayRequest{Date: "2025-09-01", FromPlan: true})
	assert.Error(t, err)
	assert.Empty(t, store.entries)
}

func TestPlanDayApprovedGroupRejected(t *testing.T) {
	store := &memDayStore{
		day: &models.DaySchedule{
			ID:     "day-1",
			Date:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			Status: models.DayScheduleStatusPending,
		},
		entries: []models.DayScheduleEntry{{
			ID:        "entry-1",
			GroupID:   "group-1",
			StartTime: "08:00",
			Status:    models.DayEntryStatusApproved,
		}},
	}
	svc, _ := newDayPlanFixture(store, &stubDistsByGroup{}, nil)

	_, err := svc.PlanDay(context.Background(), dto.PlanDayRequest{
		Date: "2025-09-01", FromPlan: true, GroupNames: []string{"ПО-11"},
	})
	assert.Error(t, err)
}

func TestPlanDayWeekendRejected(t *testing.T) {
	svc, _ := newDayPlanFixture(&memDayStore{}, &stubDistsByGroup{}, nil)

	_, err := svc.PlanDay(context.Background(), dto.PlanDayRequest{Date: "2025-09-06", FromPlan: true})
	assert.Error(t, err)
}

func TestPlanDayFromScratchFillsConsecutiveSlots(t *testing.T) {
	items := &stubItemsByGroup{byGroup: map[string][]models.ScheduleItem{
		"group-1": {
			{ID: "item-1", GroupID: "group-1", SubjectID: "subject-1", TeacherID: "teacher-1", RoomID: "room-1",
				WeeklyHours: 4, WeekType: models.WeekTypeBalanced},
			{ID: "item-2", GroupID: "group-1", SubjectID: "subject-2", TeacherID: "teacher-2", RoomID: "room-2",
				WeeklyHours: 4, WeekType: models.WeekTypeBalanced},
		},
	}}
	store := &memDayStore{}
	svc, _ := newDayPlanFixture(store, &stubDistsByGroup{}, items)

	result, err := svc.PlanDay(context.Background(), dto.PlanDayRequest{Date: "2025-09-01"})
	require.NoError(t, err)

	// Two items with two pairs each fill all four morning slots.
	assert.Equal(t, 4, result.Placed)
	require.Len(t, result.Entries, 4)
	starts := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		starts = append(starts, entry.StartTime)
	}
	assert.ElementsMatch(t, []string{"08:00", "09:40", "11:20", "13:00"}, starts)
}
