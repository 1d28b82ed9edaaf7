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

type replacementMemStore struct {
	day     *models.DaySchedule
	entries map[string]*models.DayScheduleEntry
	updated []string
}

func (s *replacementMemStore) FindByDate(_ context.Context, date time.Time) (*models.DaySchedule, error) {
	if s.day != nil && s.day.Date.Equal(date) {
		return s.day, nil
	}
	return nil, nil
}

func (s *replacementMemStore) FindByID(_ context.Context, id string) (*models.DaySchedule, error) {
	if s.day != nil && s.day.ID == id {
		return s.day, nil
	}
	return nil, nil
}

func (s *replacementMemStore) FindEntryByID(_ context.Context, id string) (*models.DayScheduleEntry, error) {
	if entry, ok := s.entries[id]; ok {
		clone := *entry
		return &clone, nil
	}
	return nil, nil
}

func (s *replacementMemStore) ListEntries(_ context.Context, _ string, filter models.DayEntryFilter) ([]models.DayScheduleEntry, error) {
	var out []models.DayScheduleEntry
	for _, id := range []string{"e1", "e2", "e3"} {
		entry, ok := s.entries[id]
		if !ok {
			continue
		}
		if filter.GroupID != "" && entry.GroupID != filter.GroupID {
			continue
		}
		if filter.StartTime != "" && entry.StartTime != filter.StartTime {
			continue
		}
		if filter.SubjectID != "" && entry.SubjectID != filter.SubjectID {
			continue
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (s *replacementMemStore) ListTeacherEntriesAt(_ context.Context, teacherID string, _ time.Time, start, excludeEntryID string) ([]models.DayScheduleEntry, error) {
	var out []models.DayScheduleEntry
	for _, entry := range s.entries {
		if entry.ID == excludeEntryID || entry.StartTime != start {
			continue
		}
		if entry.TeacherID != nil && *entry.TeacherID == teacherID {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *replacementMemStore) UpdateEntryResources(_ context.Context, _ sqlx.ExtContext, entry *models.DayScheduleEntry) error {
	clone := *entry
	s.entries[entry.ID] = &clone
	s.updated = append(s.updated, entry.ID)
	return nil
}

type stubAnalyzer struct {
	report      *dto.DayAnalysisReport
	invalidated int
}

func (s *stubAnalyzer) AnalyzeDay(_ context.Context, _, _ string) (*dto.DayAnalysisReport, error) {
	if s.report != nil {
		return s.report, nil
	}
	return &dto.DayAnalysisReport{CanApprove: true}, nil
}

func (s *stubAnalyzer) InvalidateDay(_ context.Context, _ string) {
	s.invalidated++
}

type replacementSubjectDir struct {
	subjects []models.Subject
}

func (s *replacementSubjectDir) FindByName(_ context.Context, name string) (*models.Subject, error) {
	for i := range s.subjects {
		if s.subjects[i].Name == name {
			return &s.subjects[i], nil
		}
	}
	return nil, nil
}

func newReplacementFixture(store *replacementMemStore) (*ReplacementService, *stubAnalyzer) {
	groups := &stubGroupDir{groups: []models.Group{{ID: "group-1", Name: "ПО-11"}}}
	teachers := &swapTeacherDir{teachers: []models.Teacher{
		{ID: "teacher-1", Name: "Иванова А.А."},
		{ID: "teacher-2", Name: "Петров Б.Б."},
		{ID: "teacher-vac", Name: "Вакансия"},
	}}
	subjects := &replacementSubjectDir{subjects: []models.Subject{
		{ID: "s1", Name: "Математика"},
		{ID: "s2", Name: "Физика"},
	}}
	rooms := &swapRoomDir{rooms: []models.Room{{ID: "room-1", Name: "101", Capacity: 1}}}
	links := &swapLinkDir{links: []models.GroupTeacherSubject{
		{ID: "l1", GroupID: "group-1", TeacherID: "teacher-1", SubjectID: "s1"},
		{ID: "l2", GroupID: "group-1", TeacherID: "teacher-2", SubjectID: "s2"},
	}}
	analyzer := &stubAnalyzer{}
	svc := NewReplacementService(store, groups, teachers, subjects, rooms, links, analyzer, nil,
		config.SchedulerConfig{ReplacementLimit: 20})
	return svc, analyzer
}

func vacantDayStore() *replacementMemStore {
	vac := "teacher-vac"
	busy := "teacher-1"
	return &replacementMemStore{
		day: &models.DaySchedule{
			ID:     "day-1",
			Date:   time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
			Status: models.DayScheduleStatusPending,
		},
		entries: map[string]*models.DayScheduleEntry{
			// Vacant slot; teacher-1 is linked to its subject but busy here.
			"e1": {ID: "e1", DayScheduleID: "day-1", GroupID: "group-1", SubjectID: "s1",
				TeacherID: &vac, StartTime: "08:00", Status: models.DayEntryStatusPending},
			// The lesson keeping teacher-1 busy at 08:00.
			"e2": {ID: "e2", DayScheduleID: "day-1", GroupID: "group-1", SubjectID: "s2",
				TeacherID: &busy, StartTime: "08:00", Status: models.DayEntryStatusPending},
			// Vacant slot at a free time.
			"e3": {ID: "e3", DayScheduleID: "day-1", GroupID: "group-1", SubjectID: "s1",
				TeacherID: nil, StartTime: "09:40", Status: models.DayEntryStatusPending},
		},
	}
}

func TestReplaceVacantAutoSkipsBusyTeachers(t *testing.T) {
	store := vacantDayStore()
	svc, analyzer := newReplacementFixture(store)

	resp, err := svc.ReplaceVacantAuto(context.Background(), "2025-09-01")
	require.NoError(t, err)

	// e1 can only take teacher-2 (teacher-1 is busy at 08:00); e3 takes the
	// same-subject teacher-1 because 09:40 is free.
	assert.Equal(t, 2, resp.Replaced)
	assert.Zero(t, resp.Unfilled)
	require.NotNil(t, store.entries["e1"].TeacherID)
	assert.Equal(t, "teacher-2", *store.entries["e1"].TeacherID)
	assert.Equal(t, models.DayEntryStatusReplacedAuto, store.entries["e1"].Status)
	require.NotNil(t, store.entries["e3"].TeacherID)
	assert.Equal(t, "teacher-1", *store.entries["e3"].TeacherID)
	assert.Equal(t, 1, analyzer.invalidated)
	require.NotNil(t, resp.Report)
}

func TestReplaceVacantAutoNeverDoubleBooksWithinSweep(t *testing.T) {
	store := vacantDayStore()
	// Make both vacant entries share the 08:00 slot; only two real teachers
	// exist and teacher-1 is busy, so just one substitution can land.
	store.entries["e3"].StartTime = "08:00"
	svc, _ := newReplacementFixture(store)

	resp, err := svc.ReplaceVacantAuto(context.Background(), "2025-09-01")
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Replaced)
	assert.Equal(t, 1, resp.Unfilled)
	require.Len(t, resp.Reasons, 1)
	assert.Contains(t, resp.Reasons[0], "no free linked teacher")
}

func TestReplaceEntryTeacherConflict(t *testing.T) {
	store := vacantDayStore()
	svc, _ := newReplacementFixture(store)

	// teacher-1 already teaches at 08:00.
	_, err := svc.ReplaceEntryTeacher(context.Background(), "e1", "Иванова А.А.")
	assert.Error(t, err)
	assert.Empty(t, store.updated)
}

func TestReplaceEntryTeacherManual(t *testing.T) {
	store := vacantDayStore()
	svc, analyzer := newReplacementFixture(store)

	entry, err := svc.ReplaceEntryTeacher(context.Background(), "e3", "Петров Б.Б.")
	require.NoError(t, err)

	assert.Equal(t, "teacher-2", *entry.TeacherID)
	assert.Equal(t, models.DayEntryStatusReplacedManual, entry.Status)
	assert.Equal(t, 1, analyzer.invalidated)
}

func TestUpdateEntryApprovedRejected(t *testing.T) {
	store := vacantDayStore()
	store.entries["e1"].Status = models.DayEntryStatusApproved
	svc, _ := newReplacementFixture(store)

	name := "Петров Б.Б."
	_, err := svc.UpdateEntry(context.Background(), "e1", dto.UpdateEntryRequest{TeacherName: &name})
	assert.Error(t, err)
}

func TestBulkUpdateEntriesMixedOutcomes(t *testing.T) {
	store := vacantDayStore()
	store.entries["e2"].Status = models.DayEntryStatusApproved
	svc, _ := newReplacementFixture(store)

	teacher := "Петров Б.Б."
	subject := "Физика"
	resp, err := svc.BulkUpdateEntries(context.Background(), dto.BulkUpdateRequest{
		Date: "2025-09-01",
		Items: []dto.BulkUpdateItem{
			{EntryID: "e3", NewTeacher: &teacher, NewSubject: &subject},
			{EntryID: "e2", NewTeacher: &teacher},
			{EntryID: "missing", NewTeacher: &teacher},
			{GroupName: "ПО-11", StartTime: "08:00", SubjectName: "Математика", NewSubject: &subject},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 4)
	assert.Equal(t, "updated", resp.Results[0].Status)
	assert.Equal(t, "skipped_approved", resp.Results[1].Status)
	assert.Equal(t, "not_found", resp.Results[2].Status)
	assert.Equal(t, "updated", resp.Results[3].Status)
	assert.Equal(t, "e1", resp.Results[3].EntryID, "group and time addressing resolves the entry")
	assert.Equal(t, "s2", store.entries["e3"].SubjectID)
	require.NotNil(t, resp.Report)
}

func TestBulkUpdateDryRunDoesNotWrite(t *testing.T) {
	store := vacantDayStore()
	svc, _ := newReplacementFixture(store)

	teacher := "Петров Б.Б."
	resp, err := svc.BulkUpdateEntries(context.Background(), dto.BulkUpdateRequest{
		Date:   "2025-09-01",
		Items:  []dto.BulkUpdateItem{{EntryID: "e3", NewTeacher: &teacher}},
		DryRun: true,
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "would_update", resp.Results[0].Status)
	assert.Empty(t, store.updated)
	assert.Nil(t, resp.Report)
}
