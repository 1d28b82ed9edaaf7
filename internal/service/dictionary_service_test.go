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

func mustParseDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, raw)
	require.NoError(t, err)
	return d
}

type memGroupStore struct {
	groups []models.Group
}

func (s *memGroupStore) FindByName(_ context.Context, name string) (*models.Group, error) {
	for i := range s.groups {
		if s.groups[i].Name == name {
			return &s.groups[i], nil
		}
	}
	return nil, nil
}

func (s *memGroupStore) Create(_ context.Context, group *models.Group) error {
	group.ID = fmt.Sprintf("group-%d", len(s.groups)+1)
	s.groups = append(s.groups, *group)
	return nil
}

func (s *memGroupStore) List(_ context.Context) ([]models.Group, error) {
	return s.groups, nil
}

type memSubjectStore struct {
	subjects []models.Subject
}

func (s *memSubjectStore) FindByName(_ context.Context, name string) (*models.Subject, error) {
	for i := range s.subjects {
		if s.subjects[i].Name == name {
			return &s.subjects[i], nil
		}
	}
	return nil, nil
}

func (s *memSubjectStore) Create(_ context.Context, subject *models.Subject) error {
	subject.ID = fmt.Sprintf("subject-%d", len(s.subjects)+1)
	s.subjects = append(s.subjects, *subject)
	return nil
}

func (s *memSubjectStore) List(_ context.Context) ([]models.Subject, error) {
	return s.subjects, nil
}

type memTeacherStore struct {
	teachers []models.Teacher
}

func (s *memTeacherStore) FindByName(_ context.Context, name string) (*models.Teacher, error) {
	for i := range s.teachers {
		if s.teachers[i].Name == name {
			return &s.teachers[i], nil
		}
	}
	return nil, nil
}

func (s *memTeacherStore) Create(_ context.Context, teacher *models.Teacher) error {
	teacher.ID = fmt.Sprintf("teacher-%d", len(s.teachers)+1)
	s.teachers = append(s.teachers, *teacher)
	return nil
}

func (s *memTeacherStore) List(_ context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

type memRoomStore struct {
	rooms []models.Room
}

func (s *memRoomStore) FindByName(_ context.Context, name string) (*models.Room, error) {
	for i := range s.rooms {
		if s.rooms[i].Name == name {
			return &s.rooms[i], nil
		}
	}
	return nil, nil
}

func (s *memRoomStore) Create(_ context.Context, room *models.Room) error {
	room.ID = fmt.Sprintf("room-%d", len(s.rooms)+1)
	s.rooms = append(s.rooms, *room)
	return nil
}

func (s *memRoomStore) List(_ context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

type memItemStore struct {
	items       []models.ScheduleItem
	assignments []models.ScheduleItemTeacher
}

func (s *memItemStore) Create(_ context.Context, item *models.ScheduleItem) error {
	item.ID = fmt.Sprintf("item-%d", len(s.items)+1)
	s.items = append(s.items, *item)
	return nil
}

func (s *memItemStore) FindByID(_ context.Context, id string) (*models.ScheduleItem, error) {
	for i := range s.items {
		if s.items[i].ID == id {
			return &s.items[i], nil
		}
	}
	return nil, nil
}

func (s *memItemStore) ListByGroup(_ context.Context, groupID string) ([]models.ScheduleItem, error) {
	var out []models.ScheduleItem
	for _, item := range s.items {
		if item.GroupID == groupID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *memItemStore) List(_ context.Context) ([]models.ScheduleItem, error) {
	return s.items, nil
}

func (s *memItemStore) AddTeacher(_ context.Context, assignment *models.ScheduleItemTeacher) error {
	assignment.ID = fmt.Sprintf("assignment-%d", len(s.assignments)+1)
	s.assignments = append(s.assignments, *assignment)
	return nil
}

func (s *memItemStore) ListTeachers(_ context.Context, itemID string) ([]models.ScheduleItemTeacher, error) {
	var out []models.ScheduleItemTeacher
	for _, assignment := range s.assignments {
		if assignment.ScheduleItemID == itemID {
			out = append(out, assignment)
		}
	}
	return out, nil
}

type memLinkStore struct {
	links []models.GroupTeacherSubject
}

func (s *memLinkStore) Create(_ context.Context, link *models.GroupTeacherSubject) error {
	link.ID = fmt.Sprintf("link-%d", len(s.links)+1)
	s.links = append(s.links, *link)
	return nil
}

func (s *memLinkStore) ListByGroup(_ context.Context, groupID string) ([]models.GroupTeacherSubject, error) {
	var out []models.GroupTeacherSubject
	for _, link := range s.links {
		if link.GroupID == groupID {
			out = append(out, link)
		}
	}
	return out, nil
}

func (s *memLinkStore) Delete(_ context.Context, id string) error {
	var kept []models.GroupTeacherSubject
	for _, link := range s.links {
		if link.ID != id {
			kept = append(kept, link)
		}
	}
	s.links = kept
	return nil
}

type memCalendarStore struct {
	practices []models.Practice
	holidays  []models.Holiday
}

func (s *memCalendarStore) CreatePractice(_ context.Context, practice *models.Practice) error {
	practice.ID = fmt.Sprintf("practice-%d", len(s.practices)+1)
	s.practices = append(s.practices, *practice)
	return nil
}

func (s *memCalendarStore) ListPracticesByGroup(_ context.Context, groupID string) ([]models.Practice, error) {
	var out []models.Practice
	for _, practice := range s.practices {
		if practice.GroupID == groupID {
			out = append(out, practice)
		}
	}
	return out, nil
}

func (s *memCalendarStore) DeletePractice(_ context.Context, _ string) error {
	return nil
}

func (s *memCalendarStore) CreateHoliday(_ context.Context, holiday *models.Holiday) error {
	holiday.ID = fmt.Sprintf("holiday-%d", len(s.holidays)+1)
	s.holidays = append(s.holidays, *holiday)
	return nil
}

func (s *memCalendarStore) ListHolidays(_ context.Context) ([]models.Holiday, error) {
	return s.holidays, nil
}

func (s *memCalendarStore) DeleteHoliday(_ context.Context, _ string) error {
	return nil
}

type memProgressStore struct {
	records []models.SubjectProgress
}

func (s *memProgressStore) ListByItem(_ context.Context, itemID string) ([]models.SubjectProgress, error) {
	var out []models.SubjectProgress
	for _, record := range s.records {
		if record.ScheduleItemID == itemID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *memProgressStore) TotalHours(_ context.Context, itemID string, _ time.Time) (float64, error) {
	var total float64
	for _, record := range s.records {
		if record.ScheduleItemID == itemID {
			total += record.Hours
		}
	}
	return total, nil
}

func newDictionaryFixture() *DictionaryService {
	return newDictionaryFixtureWithProgress(&memProgressStore{})
}

func newDictionaryFixtureWithProgress(progress *memProgressStore) *DictionaryService {
	return NewDictionaryService(
		&memGroupStore{}, &memSubjectStore{}, &memTeacherStore{}, &memRoomStore{},
		&memItemStore{}, &memLinkStore{}, &memCalendarStore{}, progress, nil,
	)
}

func TestGetOrCreateGroupIdempotent(t *testing.T) {
	svc := newDictionaryFixture()

	first, err := svc.GetOrCreateGroup(context.Background(), "ПО-21")
	require.NoError(t, err)
	second, err := svc.GetOrCreateGroup(context.Background(), "ПО-21")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	groups, err := svc.ListGroups(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestGetOrCreateGroupRejectsBadNames(t *testing.T) {
	svc := newDictionaryFixture()

	_, err := svc.GetOrCreateGroup(context.Background(), "  ")
	assert.Error(t, err)
	_, err = svc.GetOrCreateGroup(context.Background(), "ПО/21")
	assert.Error(t, err)
}

func TestGetOrCreateRoomKeepsStoredCapacity(t *testing.T) {
	svc := newDictionaryFixture()

	gym, err := svc.GetOrCreateRoom(context.Background(), "Спортзал", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, gym.Capacity)

	again, err := svc.GetOrCreateRoom(context.Background(), "Спортзал", 1)
	require.NoError(t, err)
	assert.Equal(t, gym.ID, again.ID)
	assert.Equal(t, 3, again.Capacity)

	plain, err := svc.GetOrCreateRoom(context.Background(), "204", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, plain.Capacity, "capacity defaults to a single lesson")
}

func TestCreateScheduleItemResolvesNames(t *testing.T) {
	svc := newDictionaryFixture()

	item, err := svc.CreateScheduleItem(context.Background(), dto.CreateScheduleItemRequest{
		GroupName:   "ПО-21",
		SubjectName: "Математика",
		TeacherName: "Иванова А.А.",
		RoomName:    "204",
		TotalHours:  96,
		WeeklyHours: 4,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, item.GroupID)
	assert.NotEmpty(t, item.SubjectID)
	assert.NotEmpty(t, item.TeacherID)
	assert.NotEmpty(t, item.RoomID)
	assert.Equal(t, models.WeekTypeBalanced, item.WeekType)

	items, err := svc.ListScheduleItems(context.Background(), "ПО-21")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCreateScheduleItemRejectsUnknownWeekType(t *testing.T) {
	svc := newDictionaryFixture()

	_, err := svc.CreateScheduleItem(context.Background(), dto.CreateScheduleItemRequest{
		GroupName:   "ПО-21",
		SubjectName: "Математика",
		TeacherName: "Иванова А.А.",
		RoomName:    "204",
		WeekType:    "sometimes",
	})
	assert.Error(t, err)
}

func TestAddScheduleItemCoTeacher(t *testing.T) {
	svc := newDictionaryFixture()

	item, err := svc.CreateScheduleItem(context.Background(), dto.CreateScheduleItemRequest{
		GroupName:   "ПО-21",
		SubjectName: "Физкультура",
		TeacherName: "Иванова А.А.",
		RoomName:    "Спортзал",
		WeeklyHours: 2,
	})
	require.NoError(t, err)

	assignments, err := svc.ListScheduleItemTeachers(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.True(t, assignments[0].IsPrimary)

	second, err := svc.AddScheduleItemTeacher(context.Background(), item.ID, "Петров Б.Б.")
	require.NoError(t, err)
	assert.Equal(t, 2, second.SlotNumber)
	assert.False(t, second.IsPrimary)

	_, err = svc.AddScheduleItemTeacher(context.Background(), item.ID, "Петров Б.Б.")
	assert.Error(t, err)

	_, err = svc.ListScheduleItemTeachers(context.Background(), "missing")
	assert.Error(t, err)
}

func TestGetScheduleItemProgress(t *testing.T) {
	progress := &memProgressStore{}
	svc := newDictionaryFixtureWithProgress(progress)

	item, err := svc.CreateScheduleItem(context.Background(), dto.CreateScheduleItemRequest{
		GroupName:   "ПО-21",
		SubjectName: "Математика",
		TeacherName: "Иванова А.А.",
		RoomName:    "204",
		TotalHours:  10,
		WeeklyHours: 4,
	})
	require.NoError(t, err)

	progress.records = append(progress.records,
		models.SubjectProgress{ID: "p1", ScheduleItemID: item.ID, Hours: 2},
		models.SubjectProgress{ID: "p2", ScheduleItemID: item.ID, Hours: 2},
		models.SubjectProgress{ID: "p3", ScheduleItemID: "other", Hours: 6},
	)

	report, err := svc.GetScheduleItemProgress(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Len(t, report.Records, 2)
	assert.Equal(t, 4.0, report.HoursTaught)
	assert.Equal(t, 6.0, report.HoursRemaining)

	_, err = svc.GetScheduleItemProgress(context.Background(), "missing")
	assert.Error(t, err)
}

func TestCreateHolidayValidatesRange(t *testing.T) {
	svc := newDictionaryFixture()

	_, err := svc.CreateHoliday(context.Background(), dto.CreateHolidayRequest{
		StartDate: "2025-12-31",
		EndDate:   "2025-12-29",
		Name:      "Новый год",
	})
	assert.Error(t, err)

	holiday, err := svc.CreateHoliday(context.Background(), dto.CreateHolidayRequest{
		StartDate: "2025-12-29",
		EndDate:   "2026-01-08",
		Name:      "Новый год",
	})
	require.NoError(t, err)
	assert.True(t, holiday.Covers(mustParseDate(t, "2026-01-01")))
	assert.False(t, holiday.Covers(mustParseDate(t, "2026-01-09")))
}

func TestCreatePracticeCreatesGroup(t *testing.T) {
	svc := newDictionaryFixture()

	practice, err := svc.CreatePractice(context.Background(), dto.CreatePracticeRequest{
		GroupName: "ПО-31",
		StartDate: "2025-10-01",
		EndDate:   "2025-10-14",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, practice.GroupID)

	practices, err := svc.ListPractices(context.Background(), "ПО-31")
	require.NoError(t, err)
	assert.Len(t, practices, 1)
}
