package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/pkg/config"
)

type analysisMemStore struct {
	day     *models.DaySchedule
	entries []models.DayScheduleEntry
}

func (s *analysisMemStore) FindByID(_ context.Context, id string) (*models.DaySchedule, error) {
	if s.day != nil && s.day.ID == id {
		return s.day, nil
	}
	return nil, nil
}

func (s *analysisMemStore) ListEntries(_ context.Context, _ string, filter models.DayEntryFilter) ([]models.DayScheduleEntry, error) {
	var out []models.DayScheduleEntry
	for _, entry := range s.entries {
		if filter.GroupID != "" && entry.GroupID != filter.GroupID {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *analysisMemStore) UpdateStatus(_ context.Context, _ sqlx.ExtContext, _ string, status models.DayScheduleStatus) error {
	s.day.Status = status
	return nil
}

func (s *analysisMemStore) ApproveEntries(_ context.Context, _ sqlx.ExtContext, _, groupID string) (int, error) {
	count := 0
	for i := range s.entries {
		if groupID != "" && s.entries[i].GroupID != groupID {
			continue
		}
		if s.entries[i].Status != models.DayEntryStatusApproved {
			s.entries[i].Status = models.DayEntryStatusApproved
			count++
		}
	}
	return count, nil
}

type stubTeacherList struct {
	teachers []models.Teacher
}

func (s *stubTeacherList) List(_ context.Context) ([]models.Teacher, error) {
	return s.teachers, nil
}

type stubRoomList struct {
	rooms []models.Room
}

func (s *stubRoomList) List(_ context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

type memProgress struct {
	created []models.SubjectProgress
	notes   map[string]bool
}

func (m *memProgress) CreateIfAbsent(_ context.Context, progress *models.SubjectProgress) (bool, error) {
	if m.notes == nil {
		m.notes = make(map[string]bool)
	}
	if progress.Note != nil && m.notes[*progress.Note] {
		return false, nil
	}
	if progress.Note != nil {
		m.notes[*progress.Note] = true
	}
	m.created = append(m.created, *progress)
	return true, nil
}

type memCache struct {
	data map[string]string
	hits int
}

func (m *memCache) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := m.data[key]
	if ok {
		m.hits++
	}
	return value, ok, nil
}

func (m *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func entryRef(value string) *string {
	return &value
}

func newAnalysisFixture(store *analysisMemStore, cache reportCache, cacheEnabled bool) (*DayAnalysisService, *memProgress) {
	groups := &stubGroupDir{groups: []models.Group{
		{ID: "group-1", Name: "ПО-11"},
		{ID: "group-2", Name: "БУ-11"},
	}}
	teachers := &stubTeacherList{teachers: []models.Teacher{
		{ID: "teacher-1", Name: "Иванова А.А."},
		{ID: "teacher-2", Name: "Петров Б.Б."},
		{ID: "teacher-3", Name: "Вакансия"},
	}}
	rooms := &stubRoomList{rooms: []models.Room{
		{ID: "room-1", Name: "204", Capacity: 1},
		{ID: "gym-1", Name: "Спортзал", Capacity: 3},
		{ID: "room-x", Name: "без аудитории", Capacity: 1},
	}}
	progress := &memProgress{}
	svc := NewDayAnalysisService(store, groups, teachers, rooms, progress, cache, nil, nil, 2,
		config.AnalysisConfig{CacheEnabled: cacheEnabled, CacheTTL: time.Minute})
	return svc, progress
}

func pendingDay() *models.DaySchedule {
	return &models.DaySchedule{
		ID:     "day-1",
		Date:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		Status: models.DayScheduleStatusPending,
	}
}

func TestAnalyzeDayCleanReport(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00", Status: models.DayEntryStatusPending},
		{ID: "e2", GroupID: "group-1", SubjectID: "s2", TeacherID: entryRef("teacher-2"), RoomID: entryRef("gym-1"), StartTime: "09:40", Status: models.DayEntryStatusPending},
	}}
	svc, _ := newAnalysisFixture(store, nil, false)

	report, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)

	assert.Zero(t, report.BlockerCount)
	assert.Zero(t, report.WarningCount)
	assert.True(t, report.CanApprove)
	require.Len(t, report.GroupStats, 1)
	assert.Equal(t, 2, report.GroupStats[0].PlannedPairs)
	assert.Zero(t, report.GroupStats[0].Windows)
}

func TestAnalyzeDayDetectsTeacherConflict(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00"},
		{ID: "e2", GroupID: "group-2", SubjectID: "s2", TeacherID: entryRef("teacher-1"), RoomID: entryRef("gym-1"), StartTime: "08:00"},
	}}
	svc, _ := newAnalysisFixture(store, nil, false)

	report, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)

	require.Len(t, report.Issues, 1)
	issue := report.Issues[0]
	assert.Equal(t, dto.IssueTeacherConflict, issue.Code)
	assert.Equal(t, dto.IssueLevelBlocker, issue.Level)
	assert.ElementsMatch(t, []string{"e1", "e2"}, issue.EntryIDs)
	assert.False(t, report.CanApprove)
}

func TestAnalyzeDayRoomCapacityAndVacancies(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		// Two lessons in a capacity-1 room.
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00"},
		{ID: "e2", GroupID: "group-2", SubjectID: "s2", TeacherID: entryRef("teacher-2"), RoomID: entryRef("room-1"), StartTime: "08:00"},
		// Placeholder teacher and missing room.
		{ID: "e3", GroupID: "group-1", SubjectID: "s3", TeacherID: entryRef("teacher-3"), RoomID: nil, StartTime: "09:40"},
	}}
	svc, _ := newAnalysisFixture(store, nil, false)

	report, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)

	codes := make(map[string]int)
	for _, issue := range report.Issues {
		codes[issue.Code]++
	}
	assert.Equal(t, 1, codes[dto.IssueRoomCapacity])
	assert.Equal(t, 1, codes[dto.IssueUnknownTeacher])
	assert.Equal(t, 1, codes[dto.IssueRoomMissing])
	assert.False(t, report.CanApprove)
}

func TestAnalyzeDayCountsWindows(t *testing.T) {
	// One jump over two free slots is still a single window.
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00"},
		{ID: "e2", GroupID: "group-1", SubjectID: "s2", TeacherID: entryRef("teacher-2"), RoomID: entryRef("gym-1"), StartTime: "13:00"},
	}}
	svc, _ := newAnalysisFixture(store, nil, false)

	report, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)

	require.Len(t, report.GroupStats, 1)
	assert.Equal(t, 1, report.GroupStats[0].Windows)
	// Windows warn but never block.
	assert.True(t, report.CanApprove)
}

func TestAnalyzeDayPlaceholderRoomIsMissing(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-x"), StartTime: "08:00"},
	}}
	svc, _ := newAnalysisFixture(store, nil, false)

	report, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, dto.IssueRoomMissing, report.Issues[0].Code)
	assert.Equal(t, dto.IssueLevelBlocker, report.Issues[0].Level)
	assert.False(t, report.CanApprove)
}

func TestAnalyzeDayCountsReplacedAsSettled(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00", Status: models.DayEntryStatusReplacedManual},
		{ID: "e2", GroupID: "group-1", SubjectID: "s2", TeacherID: entryRef("teacher-2"), RoomID: entryRef("gym-1"), StartTime: "09:40", Status: models.DayEntryStatusPending},
	}}
	svc, _ := newAnalysisFixture(store, nil, false)

	report, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)

	require.Len(t, report.GroupStats, 1)
	assert.Equal(t, 2, report.GroupStats[0].PlannedPairs)
	assert.Equal(t, 1, report.GroupStats[0].ApprovedPairs)
	assert.Equal(t, 1, report.GroupStats[0].PendingPairs)
}

func TestAnalyzeDayFullReportIsCached(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00"},
	}}
	cache := &memCache{}
	svc, _ := newAnalysisFixture(store, cache, true)

	first, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)
	assert.Zero(t, cache.hits)

	// The second call must come from the cache even after the day changed.
	store.entries = append(store.entries, models.DayScheduleEntry{
		ID: "e2", GroupID: "group-1", SubjectID: "s2", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00",
	})
	second, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.BlockerCount, second.BlockerCount)

	svc.InvalidateDay(context.Background(), "day-1")
	third, err := svc.AnalyzeDay(context.Background(), "day-1", "")
	require.NoError(t, err)
	assert.Positive(t, third.BlockerCount, "fresh analysis must see the forced conflict")
}

func TestAnalyzeDayGroupFilterBypassesCache(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00"},
	}}
	cache := &memCache{}
	svc, _ := newAnalysisFixture(store, cache, true)

	_, err := svc.AnalyzeDay(context.Background(), "day-1", "ПО-11")
	require.NoError(t, err)
	assert.Empty(t, cache.data)
}

func TestApproveDayEnforceRejectsBlockers(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00"},
		{ID: "e2", GroupID: "group-2", SubjectID: "s2", TeacherID: entryRef("teacher-1"), RoomID: entryRef("gym-1"), StartTime: "08:00"},
	}}
	svc, _ := newAnalysisFixture(store, nil, false)

	_, err := svc.ApproveDay(context.Background(), "day-1", dto.ApproveDayRequest{Enforce: true})
	assert.Error(t, err)
	assert.Equal(t, models.DayScheduleStatusPending, store.day.Status)
	for _, entry := range store.entries {
		assert.NotEqual(t, models.DayEntryStatusApproved, entry.Status)
	}
}

func TestApproveDayRecordsProgressOnce(t *testing.T) {
	store := &analysisMemStore{day: pendingDay(), entries: []models.DayScheduleEntry{
		{ID: "e1", GroupID: "group-1", SubjectID: "s1", TeacherID: entryRef("teacher-1"), RoomID: entryRef("room-1"), StartTime: "08:00", ScheduleItemID: entryRef("item-1")},
	}}
	svc, progress := newAnalysisFixture(store, nil, false)

	resp, err := svc.ApproveDay(context.Background(), "day-1", dto.ApproveDayRequest{Enforce: true, RecordProgress: true})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ApprovedCount)
	assert.Equal(t, models.DayScheduleStatusApproved, store.day.Status)
	require.Len(t, progress.created, 1)
	assert.Equal(t, "item-1", progress.created[0].ScheduleItemID)
	assert.Equal(t, 2.0, progress.created[0].Hours)

	// Re-approving must not duplicate the progress row.
	_, err = svc.ApproveDay(context.Background(), "day-1", dto.ApproveDayRequest{RecordProgress: true})
	require.NoError(t, err)
	assert.Len(t, progress.created, 1)
}
