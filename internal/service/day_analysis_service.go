package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/internal/timeslot"
	"github.com/almas-dev/college-timetable-api/pkg/config"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
)

type analysisDayStore interface {
	FindByID(ctx context.Context, id string) (*models.DaySchedule, error)
	ListEntries(ctx context.Context, dayID string, filter models.DayEntryFilter) ([]models.DayScheduleEntry, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.DayScheduleStatus) error
	ApproveEntries(ctx context.Context, exec sqlx.ExtContext, dayID, groupID string) (int, error)
}

type analysisGroupReader interface {
	FindByName(ctx context.Context, name string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
}

type analysisTeacherReader interface {
	List(ctx context.Context) ([]models.Teacher, error)
}

type analysisRoomReader interface {
	List(ctx context.Context) ([]models.Room, error)
}

type progressRecorder interface {
	CreateIfAbsent(ctx context.Context, progress *models.SubjectProgress) (bool, error)
}

// DayAnalysisService scans a materialized day for conflicts and gates its
// approval.
type DayAnalysisService struct {
	days     analysisDayStore
	groups   analysisGroupReader
	teachers analysisTeacherReader
	rooms    analysisRoomReader
	progress progressRecorder
	cache    reportCache
	logger   *zap.Logger
	metrics  *MetricsService
	pairSize int
	cacheCfg config.AnalysisConfig
}

// NewDayAnalysisService wires analyzer dependencies.
func NewDayAnalysisService(
	days analysisDayStore,
	groups analysisGroupReader,
	teachers analysisTeacherReader,
	rooms analysisRoomReader,
	progress progressRecorder,
	cache reportCache,
	logger *zap.Logger,
	metrics *MetricsService,
	pairSize int,
	cacheCfg config.AnalysisConfig,
) *DayAnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pairSize <= 0 {
		pairSize = 2
	}
	return &DayAnalysisService{
		days:     days,
		groups:   groups,
		teachers: teachers,
		rooms:    rooms,
		progress: progress,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
		pairSize: pairSize,
		cacheCfg: cacheCfg,
	}
}

func analysisCacheKey(dayID string) string {
	return "day_analysis:" + dayID
}

// AnalyzeDay builds the conflict report for a day, optionally narrowed to one
// group. Full-day reports are cached until a write invalidates them.
func (s *DayAnalysisService) AnalyzeDay(ctx context.Context, dayID, groupName string) (*dto.DayAnalysisReport, error) {
	day, err := s.days.FindByID(ctx, dayID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	if day == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "day schedule not found")
	}

	useCache := s.cache != nil && s.cacheCfg.CacheEnabled && groupName == ""
	if useCache {
		raw, found, err := s.cache.Get(ctx, analysisCacheKey(dayID))
		if err != nil {
			s.logger.Sugar().Warnw("analysis cache read failed", "day_id", dayID, "error", err)
		} else {
			s.metrics.RecordCacheLookup(found)
			if found {
				var report dto.DayAnalysisReport
				if err := json.Unmarshal([]byte(raw), &report); err == nil {
					return &report, nil
				}
			}
		}
	}

	filter := models.DayEntryFilter{}
	if groupName != "" {
		group, err := s.groups.FindByName(ctx, groupName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve group")
		}
		if group == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group %q", groupName))
		}
		filter.GroupID = group.ID
	}

	entries, err := s.days.ListEntries(ctx, dayID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day entries")
	}

	report, err := s.buildReport(ctx, day, entries)
	if err != nil {
		return nil, err
	}

	if useCache {
		if raw, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, analysisCacheKey(dayID), string(raw), s.cacheCfg.CacheTTL); err != nil {
				s.logger.Sugar().Warnw("analysis cache write failed", "day_id", dayID, "error", err)
			}
		}
	}
	return report, nil
}

func (s *DayAnalysisService) buildReport(ctx context.Context, day *models.DaySchedule, entries []models.DayScheduleEntry) (*dto.DayAnalysisReport, error) {
	groupNames, err := s.groupNameIndex(ctx)
	if err != nil {
		return nil, err
	}
	teacherNames, err := s.teacherNameIndex(ctx)
	if err != nil {
		return nil, err
	}
	roomIndex, err := s.roomIndex(ctx)
	if err != nil {
		return nil, err
	}

	report := &dto.DayAnalysisReport{
		DayScheduleID: day.ID,
		Date:          day.Date.Format(dateLayout),
		Issues:        []dto.AnalysisIssue{},
	}

	teacherBuckets := make(map[string][]models.DayScheduleEntry) // start|teacher
	roomBuckets := make(map[string][]models.DayScheduleEntry)   // start|room
	groupBuckets := make(map[string][]models.DayScheduleEntry)  // group|start
	byGroup := make(map[string][]models.DayScheduleEntry)
	var groupOrder []string

	for _, entry := range entries {
		if entry.TeacherID != nil {
			key := entry.StartTime + "|" + *entry.TeacherID
			teacherBuckets[key] = append(teacherBuckets[key], entry)
		}
		if entry.RoomID != nil {
			key := entry.StartTime + "|" + *entry.RoomID
			roomBuckets[key] = append(roomBuckets[key], entry)
		}
		key := entry.GroupID + "|" + entry.StartTime
		groupBuckets[key] = append(groupBuckets[key], entry)
		if _, seen := byGroup[entry.GroupID]; !seen {
			groupOrder = append(groupOrder, entry.GroupID)
		}
		byGroup[entry.GroupID] = append(byGroup[entry.GroupID], entry)
	}

	stats := make(map[string]*dto.GroupDayStats)
	for _, groupID := range groupOrder {
		stats[groupID] = &dto.GroupDayStats{GroupName: groupNames[groupID]}
	}

	// Teacher double-booking. Entries arrive ordered by time then group, so
	// bucket iteration over the original slice keeps the report stable.
	seenTeacherKeys := make(map[string]bool)
	for _, entry := range entries {
		if entry.TeacherID == nil {
			continue
		}
		key := entry.StartTime + "|" + *entry.TeacherID
		if seenTeacherKeys[key] {
			continue
		}
		seenTeacherKeys[key] = true
		bucket := teacherBuckets[key]
		if len(bucket) > 1 {
			report.Issues = append(report.Issues, dto.AnalysisIssue{
				Level:     dto.IssueLevelBlocker,
				Code:      dto.IssueTeacherConflict,
				StartTime: entry.StartTime,
				Detail:    fmt.Sprintf("teacher %s booked %d times at %s", teacherNames[*entry.TeacherID], len(bucket), entry.StartTime),
				EntryIDs:  entryIDs(bucket),
			})
		}
	}

	// Room overflow against explicit capacity.
	seenRoomKeys := make(map[string]bool)
	for _, entry := range entries {
		if entry.RoomID == nil {
			continue
		}
		key := entry.StartTime + "|" + *entry.RoomID
		if seenRoomKeys[key] {
			continue
		}
		seenRoomKeys[key] = true
		bucket := roomBuckets[key]
		room := roomIndex[*entry.RoomID]
		capacity := 1
		roomName := *entry.RoomID
		if room != nil {
			capacity = room.Capacity
			roomName = room.Name
		}
		if len(bucket) > capacity {
			report.Issues = append(report.Issues, dto.AnalysisIssue{
				Level:     dto.IssueLevelBlocker,
				Code:      dto.IssueRoomCapacity,
				StartTime: entry.StartTime,
				Detail:    fmt.Sprintf("room %s holds %d lessons at %s, capacity %d", roomName, len(bucket), entry.StartTime, capacity),
				EntryIDs:  entryIDs(bucket),
			})
		}
	}

	// Duplicate group slots.
	seenGroupKeys := make(map[string]bool)
	for _, entry := range entries {
		key := entry.GroupID + "|" + entry.StartTime
		if seenGroupKeys[key] {
			continue
		}
		seenGroupKeys[key] = true
		bucket := groupBuckets[key]
		if len(bucket) > 1 {
			report.Issues = append(report.Issues, dto.AnalysisIssue{
				Level:     dto.IssueLevelBlocker,
				Code:      dto.IssueGroupDuplicateSlot,
				StartTime: entry.StartTime,
				GroupName: groupNames[entry.GroupID],
				Detail:    fmt.Sprintf("group %s has %d pairs at %s", groupNames[entry.GroupID], len(bucket), entry.StartTime),
				EntryIDs:  entryIDs(bucket),
			})
			if stat := stats[entry.GroupID]; stat != nil {
				stat.DuplicateSlots++
			}
		}
	}

	// Missing or placeholder resources.
	for _, entry := range entries {
		unknownTeacher := entry.TeacherID == nil
		if !unknownTeacher && models.IsPlaceholderTeacherName(teacherNames[*entry.TeacherID]) {
			unknownTeacher = true
		}
		if unknownTeacher {
			report.Issues = append(report.Issues, dto.AnalysisIssue{
				Level:     dto.IssueLevelWarning,
				Code:      dto.IssueUnknownTeacher,
				StartTime: entry.StartTime,
				GroupName: groupNames[entry.GroupID],
				Detail:    fmt.Sprintf("group %s has no assigned teacher at %s", groupNames[entry.GroupID], entry.StartTime),
				EntryIDs:  []string{entry.ID},
			})
			if stat := stats[entry.GroupID]; stat != nil {
				stat.UnknownTeachers++
			}
		}
		missingRoom := entry.RoomID == nil
		if !missingRoom {
			room := roomIndex[*entry.RoomID]
			if room == nil || models.IsPlaceholderRoomName(room.Name) {
				missingRoom = true
			}
		}
		if missingRoom {
			report.Issues = append(report.Issues, dto.AnalysisIssue{
				Level:     dto.IssueLevelBlocker,
				Code:      dto.IssueRoomMissing,
				StartTime: entry.StartTime,
				GroupName: groupNames[entry.GroupID],
				Detail:    fmt.Sprintf("group %s has no room at %s", groupNames[entry.GroupID], entry.StartTime),
				EntryIDs:  []string{entry.ID},
			})
		}
	}

	// Windows: non-consecutive jumps in each group's slot occupancy.
	for _, groupID := range groupOrder {
		groupEntries := byGroup[groupID]
		slots := timeslot.SlotsFor(groupNames[groupID], true)
		sortEntriesBySlotOrder(groupEntries, slots)
		windows := 0
		prevIdx := -1
		for _, entry := range groupEntries {
			idx := timeslot.SlotIndex(slots, entry.StartTime)
			if idx < 0 {
				continue
			}
			if prevIdx >= 0 && idx > prevIdx+1 {
				windows++
			}
			prevIdx = idx
		}
		stat := stats[groupID]
		stat.Windows = windows
		if windows > 0 {
			report.Issues = append(report.Issues, dto.AnalysisIssue{
				Level:     dto.IssueLevelWarning,
				Code:      dto.IssueGroupWindows,
				GroupName: groupNames[groupID],
				Detail:    fmt.Sprintf("group %s has %d window(s) in its day", groupNames[groupID], windows),
			})
		}
		for _, entry := range groupEntries {
			stat.PlannedPairs++
			// Replaced entries are settled, only pending stays open.
			if entry.Status != models.DayEntryStatusPending {
				stat.ApprovedPairs++
			} else {
				stat.PendingPairs++
			}
		}
	}

	for _, groupID := range groupOrder {
		report.GroupStats = append(report.GroupStats, *stats[groupID])
	}
	for _, issue := range report.Issues {
		if issue.Level == dto.IssueLevelBlocker {
			report.BlockerCount++
		} else {
			report.WarningCount++
		}
	}
	report.CanApprove = report.BlockerCount == 0
	return report, nil
}

// ApproveDay locks a day (or one group) after a final analysis. With
// enforcement on, any blocker rejects the approval.
func (s *DayAnalysisService) ApproveDay(ctx context.Context, dayID string, req dto.ApproveDayRequest) (*dto.ApproveDayResponse, error) {
	day, err := s.days.FindByID(ctx, dayID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	if day == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "day schedule not found")
	}

	report, err := s.AnalyzeDay(ctx, dayID, req.GroupName)
	if err != nil {
		return nil, err
	}
	if req.Enforce && report.BlockerCount > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("day has %d blocking conflict(s)", report.BlockerCount))
	}

	groupID := ""
	if req.GroupName != "" {
		group, err := s.groups.FindByName(ctx, req.GroupName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve group")
		}
		if group == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group %q", req.GroupName))
		}
		groupID = group.ID
	}

	approved, err := s.days.ApproveEntries(ctx, nil, dayID, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve entries")
	}
	if groupID == "" {
		if err := s.days.UpdateStatus(ctx, nil, dayID, models.DayScheduleStatusApproved); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve day")
		}
	}

	if req.RecordProgress {
		if err := s.recordProgress(ctx, day, dayID, groupID); err != nil {
			return nil, err
		}
	}

	s.InvalidateDay(ctx, dayID)
	s.logger.Sugar().Infow("day approved", "day_id", dayID, "group", req.GroupName, "approved", approved)
	return &dto.ApproveDayResponse{ApprovedCount: approved, Report: report}, nil
}

// recordProgress writes one idempotent progress row per approved entry that
// links back to a schedule item.
func (s *DayAnalysisService) recordProgress(ctx context.Context, day *models.DaySchedule, dayID, groupID string) error {
	entries, err := s.days.ListEntries(ctx, dayID, models.DayEntryFilter{GroupID: groupID})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day entries")
	}
	for _, entry := range entries {
		if entry.Status != models.DayEntryStatusApproved || entry.ScheduleItemID == nil {
			continue
		}
		note := "day_entry:" + entry.ID
		_, err := s.progress.CreateIfAbsent(ctx, &models.SubjectProgress{
			ScheduleItemID: *entry.ScheduleItemID,
			Date:           day.Date,
			Hours:          float64(s.pairSize),
			Note:           &note,
		})
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record subject progress")
		}
	}
	return nil
}

// InvalidateDay busts the cached report after any write touching the day.
func (s *DayAnalysisService) InvalidateDay(ctx context.Context, dayID string) {
	if s.cache == nil || !s.cacheCfg.CacheEnabled {
		return
	}
	if err := s.cache.Delete(ctx, analysisCacheKey(dayID)); err != nil {
		s.logger.Sugar().Warnw("analysis cache invalidation failed", "day_id", dayID, "error", err)
	}
}

func (s *DayAnalysisService) groupNameIndex(ctx context.Context) (map[string]string, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	index := make(map[string]string, len(groups))
	for _, group := range groups {
		index[group.ID] = group.Name
	}
	return index, nil
}

func (s *DayAnalysisService) teacherNameIndex(ctx context.Context) (map[string]string, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	index := make(map[string]string, len(teachers))
	for _, teacher := range teachers {
		index[teacher.ID] = teacher.Name
	}
	return index, nil
}

func (s *DayAnalysisService) roomIndex(ctx context.Context) (map[string]*models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	index := make(map[string]*models.Room, len(rooms))
	for i := range rooms {
		index[rooms[i].ID] = &rooms[i]
	}
	return index, nil
}

func entryIDs(entries []models.DayScheduleEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ID)
	}
	return ids
}
