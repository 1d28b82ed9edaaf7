package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/pkg/config"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
)

type replacementDayStore interface {
	FindByDate(ctx context.Context, date time.Time) (*models.DaySchedule, error)
	FindByID(ctx context.Context, id string) (*models.DaySchedule, error)
	FindEntryByID(ctx context.Context, id string) (*models.DayScheduleEntry, error)
	ListEntries(ctx context.Context, dayID string, filter models.DayEntryFilter) ([]models.DayScheduleEntry, error)
	ListTeacherEntriesAt(ctx context.Context, teacherID string, date time.Time, start, excludeEntryID string) ([]models.DayScheduleEntry, error)
	UpdateEntryResources(ctx context.Context, exec sqlx.ExtContext, entry *models.DayScheduleEntry) error
}

type replacementTeacherReader interface {
	FindByName(ctx context.Context, name string) (*models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type replacementSubjectReader interface {
	FindByName(ctx context.Context, name string) (*models.Subject, error)
}

type replacementRoomReader interface {
	FindByName(ctx context.Context, name string) (*models.Room, error)
}

type replacementGroupReader interface {
	FindByName(ctx context.Context, name string) (*models.Group, error)
}

type replacementLinkReader interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.GroupTeacherSubject, error)
}

type dayAnalyzer interface {
	AnalyzeDay(ctx context.Context, dayID, groupName string) (*dto.DayAnalysisReport, error)
	InvalidateDay(ctx context.Context, dayID string)
}

// ReplacementService fills vacant teacher slots and applies manual entry
// edits, single and bulk.
type ReplacementService struct {
	days     replacementDayStore
	groups   replacementGroupReader
	teachers replacementTeacherReader
	subjects replacementSubjectReader
	rooms    replacementRoomReader
	links    replacementLinkReader
	analysis dayAnalyzer
	logger   *zap.Logger
	cfg      config.SchedulerConfig
}

// NewReplacementService wires replacement dependencies.
func NewReplacementService(
	days replacementDayStore,
	groups replacementGroupReader,
	teachers replacementTeacherReader,
	subjects replacementSubjectReader,
	rooms replacementRoomReader,
	links replacementLinkReader,
	analysis dayAnalyzer,
	logger *zap.Logger,
	cfg config.SchedulerConfig,
) *ReplacementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReplacementLimit <= 0 {
		cfg.ReplacementLimit = 20
	}
	return &ReplacementService{
		days:     days,
		groups:   groups,
		teachers: teachers,
		subjects: subjects,
		rooms:    rooms,
		links:    links,
		analysis: analysis,
		logger:   logger,
		cfg:      cfg,
	}
}

// ReplaceVacantAuto sweeps one date and substitutes real teachers for vacant
// or placeholder assignments, preferring teachers linked to the entry's
// subject. A teacher already booked at the slot, either in the database or
// earlier in the same sweep, is never picked.
func (s *ReplacementService) ReplaceVacantAuto(ctx context.Context, date string) (*dto.ReplaceVacantResponse, error) {
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	day, err := s.days.FindByDate(ctx, parsed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	if day == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no day schedule for %s", date))
	}

	entries, err := s.days.ListEntries(ctx, day.ID, models.DayEntryFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list entries")
	}

	out := &dto.ReplaceVacantResponse{}
	// Teachers consumed within this sweep, keyed teacher|start.
	booked := make(map[string]bool)

	for i := range entries {
		entry := entries[i]
		vacant, err := s.entryNeedsReplacement(ctx, &entry)
		if err != nil {
			return nil, err
		}
		if !vacant {
			continue
		}
		if entry.Status == models.DayEntryStatusApproved {
			out.Unfilled++
			out.Reasons = append(out.Reasons, fmt.Sprintf("entry %s is approved, left as is", entry.ID))
			continue
		}
		if out.Replaced >= s.cfg.ReplacementLimit {
			out.Unfilled++
			out.Reasons = append(out.Reasons, fmt.Sprintf("replacement limit %d reached", s.cfg.ReplacementLimit))
			continue
		}

		substitute, err := s.pickSubstitute(ctx, &entry, day.Date, booked)
		if err != nil {
			return nil, err
		}
		if substitute == nil {
			out.Unfilled++
			out.Reasons = append(out.Reasons, fmt.Sprintf("no free linked teacher for entry %s at %s", entry.ID, entry.StartTime))
			continue
		}

		teacherID := substitute.ID
		entry.TeacherID = &teacherID
		entry.Status = models.DayEntryStatusReplacedAuto
		if err := s.days.UpdateEntryResources(ctx, nil, &entry); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign substitute")
		}
		booked[substitute.ID+"|"+entry.StartTime] = true
		out.Replaced++
		s.logger.Sugar().Infow("vacant slot filled", "entry_id", entry.ID, "teacher", substitute.Name, "start", entry.StartTime)
	}

	if out.Replaced > 0 {
		s.analysis.InvalidateDay(ctx, day.ID)
	}
	report, err := s.analysis.AnalyzeDay(ctx, day.ID, "")
	if err != nil {
		return nil, err
	}
	out.Report = report
	return out, nil
}

// entryNeedsReplacement is true for entries with no teacher or a placeholder
// teacher name.
func (s *ReplacementService) entryNeedsReplacement(ctx context.Context, entry *models.DayScheduleEntry) (bool, error) {
	if entry.TeacherID == nil {
		return true, nil
	}
	teacher, err := s.teachers.FindByID(ctx, *entry.TeacherID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher == nil {
		return true, nil
	}
	return models.IsPlaceholderTeacherName(teacher.Name), nil
}

// pickSubstitute returns the first linked teacher free at the entry's slot,
// same-subject links before the rest.
func (s *ReplacementService) pickSubstitute(ctx context.Context, entry *models.DayScheduleEntry, date time.Time, booked map[string]bool) (*models.Teacher, error) {
	links, err := s.links.ListByGroup(ctx, entry.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group links")
	}

	ordered := make([]models.GroupTeacherSubject, 0, len(links))
	for _, link := range links {
		if link.SubjectID == entry.SubjectID {
			ordered = append(ordered, link)
		}
	}
	for _, link := range links {
		if link.SubjectID != entry.SubjectID {
			ordered = append(ordered, link)
		}
	}

	seen := make(map[string]bool)
	for _, link := range ordered {
		if seen[link.TeacherID] || booked[link.TeacherID+"|"+entry.StartTime] {
			continue
		}
		seen[link.TeacherID] = true
		teacher, err := s.teachers.FindByID(ctx, link.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate")
		}
		if teacher == nil || models.IsPlaceholderTeacherName(teacher.Name) {
			continue
		}
		busy, err := s.days.ListTeacherEntriesAt(ctx, teacher.ID, date, entry.StartTime, entry.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check candidate availability")
		}
		if len(busy) > 0 {
			continue
		}
		return teacher, nil
	}
	return nil, nil
}

// ReplaceEntryTeacher manually assigns a named teacher to one entry after a
// day-level availability check.
func (s *ReplacementService) ReplaceEntryTeacher(ctx context.Context, entryID, teacherName string) (*models.DayScheduleEntry, error) {
	entry, day, err := s.loadMutableEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	teacher, err := s.teachers.FindByName(ctx, teacherName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
	}
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown teacher %q", teacherName))
	}
	busy, err := s.days.ListTeacherEntriesAt(ctx, teacher.ID, day.Date, entry.StartTime, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
	}
	if len(busy) > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher %s already has a pair at %s", teacher.Name, entry.StartTime))
	}

	teacherID := teacher.ID
	entry.TeacherID = &teacherID
	entry.Status = models.DayEntryStatusReplacedManual
	if err := s.days.UpdateEntryResources(ctx, nil, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update entry")
	}
	s.analysis.InvalidateDay(ctx, day.ID)
	return entry, nil
}

// UpdateEntry edits one entry's resources by name. Absent fields are kept.
func (s *ReplacementService) UpdateEntry(ctx context.Context, entryID string, req dto.UpdateEntryRequest) (*models.DayScheduleEntry, error) {
	entry, day, err := s.loadMutableEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := s.applyEntryEdit(ctx, entry, day, req, false); err != nil {
		return nil, err
	}
	s.analysis.InvalidateDay(ctx, day.ID)
	return entry, nil
}

// applyEntryEdit resolves names, checks teacher availability and writes the
// entry unless dryRun is set.
func (s *ReplacementService) applyEntryEdit(ctx context.Context, entry *models.DayScheduleEntry, day *models.DaySchedule, req dto.UpdateEntryRequest, dryRun bool) error {
	if req.TeacherName != nil {
		teacher, err := s.teachers.FindByName(ctx, *req.TeacherName)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
		}
		if teacher == nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown teacher %q", *req.TeacherName))
		}
		busy, err := s.days.ListTeacherEntriesAt(ctx, teacher.ID, day.Date, entry.StartTime, entry.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check availability")
		}
		if len(busy) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher %s already has a pair at %s", teacher.Name, entry.StartTime))
		}
		teacherID := teacher.ID
		entry.TeacherID = &teacherID
	}
	if req.SubjectName != nil {
		subject, err := s.subjects.FindByName(ctx, *req.SubjectName)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
		}
		if subject == nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject %q", *req.SubjectName))
		}
		entry.SubjectID = subject.ID
	}
	if req.RoomName != nil {
		room, err := s.rooms.FindByName(ctx, *req.RoomName)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve room")
		}
		if room == nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown room %q", *req.RoomName))
		}
		roomID := room.ID
		entry.RoomID = &roomID
	}
	if dryRun {
		return nil
	}
	entry.Status = models.DayEntryStatusReplacedManual
	if err := s.days.UpdateEntryResources(ctx, nil, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update entry")
	}
	return nil
}

// Bulk update item statuses.
const (
	bulkStatusUpdated       = "updated"
	bulkStatusWouldUpdate   = "would_update"
	bulkStatusNotFound      = "not_found"
	bulkStatusSkippedLocked = "skipped_approved"
	bulkStatusInvalid       = "invalid"
	bulkStatusConflict      = "conflict"
)

// BulkUpdateEntries applies many edits against one date. Items fail
// individually without aborting the batch.
func (s *ReplacementService) BulkUpdateEntries(ctx context.Context, req dto.BulkUpdateRequest) (*dto.BulkUpdateResponse, error) {
	parsed, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date))
	}
	day, err := s.days.FindByDate(ctx, parsed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	if day == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no day schedule for %s", req.Date))
	}

	out := &dto.BulkUpdateResponse{Results: make([]dto.BulkUpdateItemResult, 0, len(req.Items))}
	changed := false
	for _, item := range req.Items {
		result := s.applyBulkItem(ctx, day, item, req.DryRun)
		if result.Status == bulkStatusUpdated {
			changed = true
		}
		out.Results = append(out.Results, result)
	}

	if changed {
		s.analysis.InvalidateDay(ctx, day.ID)
	}
	if !req.DryRun {
		report, err := s.analysis.AnalyzeDay(ctx, day.ID, "")
		if err != nil {
			return nil, err
		}
		out.Report = report
	}
	return out, nil
}

func (s *ReplacementService) applyBulkItem(ctx context.Context, day *models.DaySchedule, item dto.BulkUpdateItem, dryRun bool) dto.BulkUpdateItemResult {
	entry, err := s.resolveBulkTarget(ctx, day, item)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr != nil && appErr.Code == appErrors.ErrValidation.Code {
			return dto.BulkUpdateItemResult{Status: bulkStatusInvalid, Detail: appErr.Message}
		}
		return dto.BulkUpdateItemResult{Status: bulkStatusInvalid, Detail: err.Error()}
	}
	if entry == nil {
		return dto.BulkUpdateItemResult{Status: bulkStatusNotFound, Detail: "no matching entry"}
	}
	if entry.Status == models.DayEntryStatusApproved || day.Status == models.DayScheduleStatusApproved {
		return dto.BulkUpdateItemResult{EntryID: entry.ID, Status: bulkStatusSkippedLocked, Detail: "entry is approved"}
	}

	edit := dto.UpdateEntryRequest{
		TeacherName: item.NewTeacher,
		SubjectName: item.NewSubject,
		RoomName:    item.NewRoom,
	}
	if edit.TeacherName == nil && edit.SubjectName == nil && edit.RoomName == nil {
		return dto.BulkUpdateItemResult{EntryID: entry.ID, Status: bulkStatusInvalid, Detail: "nothing to change"}
	}
	if err := s.applyEntryEdit(ctx, entry, day, edit, dryRun); err != nil {
		appErr := appErrors.FromError(err)
		switch {
		case appErr != nil && appErr.Code == appErrors.ErrConflict.Code:
			return dto.BulkUpdateItemResult{EntryID: entry.ID, Status: bulkStatusConflict, Detail: appErr.Message}
		case appErr != nil && appErr.Code == appErrors.ErrValidation.Code:
			return dto.BulkUpdateItemResult{EntryID: entry.ID, Status: bulkStatusInvalid, Detail: appErr.Message}
		default:
			return dto.BulkUpdateItemResult{EntryID: entry.ID, Status: bulkStatusInvalid, Detail: err.Error()}
		}
	}
	if dryRun {
		return dto.BulkUpdateItemResult{EntryID: entry.ID, Status: bulkStatusWouldUpdate}
	}
	return dto.BulkUpdateItemResult{EntryID: entry.ID, Status: bulkStatusUpdated}
}

// resolveBulkTarget finds the addressed entry either by id or by group plus
// start time, optionally narrowed by subject.
func (s *ReplacementService) resolveBulkTarget(ctx context.Context, day *models.DaySchedule, item dto.BulkUpdateItem) (*models.DayScheduleEntry, error) {
	if item.EntryID != "" {
		entry, err := s.days.FindEntryByID(ctx, item.EntryID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
		}
		if entry != nil && entry.DayScheduleID != day.ID {
			return nil, nil
		}
		return entry, nil
	}
	if item.GroupName == "" || item.StartTime == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "entry_id or group_name with start_time required")
	}
	group, err := s.groups.FindByName(ctx, item.GroupName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve group")
	}
	if group == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group %q", item.GroupName))
	}
	filter := models.DayEntryFilter{GroupID: group.ID, StartTime: item.StartTime}
	if item.SubjectName != "" {
		subject, err := s.subjects.FindByName(ctx, item.SubjectName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
		}
		if subject == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject %q", item.SubjectName))
		}
		filter.SubjectID = subject.ID
	}
	entries, err := s.days.ListEntries(ctx, day.ID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list entries")
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *ReplacementService) loadMutableEntry(ctx context.Context, entryID string) (*models.DayScheduleEntry, *models.DaySchedule, error) {
	entry, err := s.days.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	if entry == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "day entry not found")
	}
	day, err := s.days.FindByID(ctx, entry.DayScheduleID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	if day == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "day schedule not found")
	}
	if day.Status == models.DayScheduleStatusApproved || entry.Status == models.DayEntryStatusApproved {
		return nil, nil, appErrors.Clone(appErrors.ErrFinalized, "entry is approved")
	}
	return entry, day, nil
}
