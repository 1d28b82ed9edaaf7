package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/internal/timeslot"
	"github.com/almas-dev/college-timetable-api/pkg/config"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
)

const defaultMaxRepeatsPerSubject = 2

type dayPlanDayStore interface {
	GetOrCreateByDate(ctx context.Context, date time.Time) (*models.DaySchedule, error)
	FindByDate(ctx context.Context, date time.Time) (*models.DaySchedule, error)
	CountApprovedEntries(ctx context.Context, dayID, groupID string) (int, error)
	DeleteNonApprovedEntries(ctx context.Context, dayID, groupID string) error
	CreateEntry(ctx context.Context, entry *models.DayScheduleEntry) error
	ListEntries(ctx context.Context, dayID string, filter models.DayEntryFilter) ([]models.DayScheduleEntry, error)
}

type dayPlanGroupReader interface {
	FindByName(ctx context.Context, name string) (*models.Group, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context) ([]models.Group, error)
}

type dayPlanItemReader interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleItem, error)
}

type dayPlanDistributionReader interface {
	ListDetailByWeekAndGroup(ctx context.Context, weekStart time.Time, groupID string) ([]models.WeeklyDistributionDetail, error)
}

type dayPlanCalendar interface {
	GroupOnPractice(ctx context.Context, groupID string, date time.Time) (bool, error)
	ListHolidaysOverlapping(ctx context.Context, from, to time.Time) ([]models.Holiday, error)
}

type dayPlanAvailability interface {
	TeacherFree(ctx context.Context, teacherID string, date time.Time, start, excludeEntryID string, ignoreWeekly bool) (bool, error)
	GroupFree(ctx context.Context, groupID string, date time.Time, start string, ignoreWeekly bool) (bool, *SlotConflict, error)
	RoomHasCapacity(ctx context.Context, roomID string, date time.Time, start, excludeEntryID string) (bool, error)
}

type dayPlanNameResolver interface {
	FindByName(ctx context.Context, name string) (*models.Teacher, error)
}

type dayPlanRoomResolver interface {
	FindByName(ctx context.Context, name string) (*models.Room, error)
}

type dayPlanSubjectResolver interface {
	FindByName(ctx context.Context, name string) (*models.Subject, error)
}

type reportInvalidator interface {
	InvalidateDay(ctx context.Context, dayID string)
}

// DayPlanService materializes one calendar day's concrete plan, either by
// replaying the weekly plan or by greedy from-scratch fill.
type DayPlanService struct {
	days         dayPlanDayStore
	groups       dayPlanGroupReader
	items        dayPlanItemReader
	dists        dayPlanDistributionReader
	calendar     dayPlanCalendar
	availability dayPlanAvailability
	teachers     dayPlanNameResolver
	rooms        dayPlanRoomResolver
	subjects     dayPlanSubjectResolver
	invalidator  reportInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
	metrics      *MetricsService
	cfg          config.SchedulerConfig
}

// NewDayPlanService wires builder dependencies.
func NewDayPlanService(
	days dayPlanDayStore,
	groups dayPlanGroupReader,
	items dayPlanItemReader,
	dists dayPlanDistributionReader,
	calendar dayPlanCalendar,
	availability dayPlanAvailability,
	teachers dayPlanNameResolver,
	rooms dayPlanRoomResolver,
	subjects dayPlanSubjectResolver,
	invalidator reportInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
) *DayPlanService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PairSizeHours <= 0 {
		cfg.PairSizeHours = 2
	}
	if cfg.MaxPairsPerDay <= 0 {
		cfg.MaxPairsPerDay = 4
	}
	return &DayPlanService{
		days:         days,
		groups:       groups,
		items:        items,
		dists:        dists,
		calendar:     calendar,
		availability: availability,
		teachers:     teachers,
		rooms:        rooms,
		subjects:     subjects,
		invalidator:  invalidator,
		validator:    validate,
		logger:       logger,
		metrics:      metrics,
		cfg:          cfg,
	}
}

// PlanDay builds the plan for one date. Rebuilding wipes only non-approved
// entries in scope; an approved day or group is a hard failure.
//
// Callers must serialize concurrent plans targeting the same date: the
// availability checks re-run after every write but do not guard against a
// second writer.
func (s *DayPlanService) PlanDay(ctx context.Context, req dto.PlanDayRequest) (*dto.DayPlanResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day plan payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	weekday := timeslot.WeekdayName(date)
	if weekday == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is not a teaching day")
	}

	holidays, err := s.calendar.ListHolidaysOverlapping(ctx, date, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holidays")
	}
	if len(holidays) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is a holiday", req.Date))
	}

	targetGroups, err := s.resolveTargetGroups(ctx, req.GroupNames)
	if err != nil {
		return nil, err
	}

	day, err := s.days.GetOrCreateByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve day schedule")
	}
	if day.Status == models.DayScheduleStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "day schedule is approved")
	}
	for _, group := range targetGroups {
		approved, err := s.days.CountApprovedEntries(ctx, day.ID, group.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check approved entries")
		}
		if approved > 0 {
			return nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("group %s is approved for this day", group.Name))
		}
	}

	// Wipe the rebuildable scope before placing anew.
	if len(req.GroupNames) == 0 {
		if err := s.days.DeleteNonApprovedEntries(ctx, day.ID, ""); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear day entries")
		}
	} else {
		for _, group := range targetGroups {
			if err := s.days.DeleteNonApprovedEntries(ctx, day.ID, group.ID); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear group entries")
			}
		}
	}

	maxPairs := req.MaxPairsPerDay
	if maxPairs <= 0 {
		maxPairs = s.cfg.MaxPairsPerDay
	}
	maxRepeats := req.MaxRepeatsPerSubject
	if maxRepeats <= 0 {
		maxRepeats = defaultMaxRepeatsPerSubject
	}

	var reasons []string
	placed := 0
	skipped := 0

	if req.FromPlan {
		placed, skipped, reasons, err = s.replayFromPlan(ctx, day, date, weekday, targetGroups, req, maxPairs)
	} else {
		placed, skipped, reasons, err = s.fillFromScratch(ctx, day, date, targetGroups, req, maxPairs, maxRepeats)
	}
	if err != nil {
		return nil, err
	}

	entries, err := s.days.ListEntries(ctx, day.ID, models.DayEntryFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day entries")
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateDay(ctx, day.ID)
	}
	s.metrics.RecordDayPlanned()
	s.metrics.RecordPairsPlaced(placed)
	s.logger.Sugar().Infow("day planned",
		"date", req.Date,
		"from_plan", req.FromPlan,
		"placed", placed,
		"skipped", skipped,
	)

	return &dto.DayPlanResult{
		Day:     day,
		Entries: entries,
		Placed:  placed,
		Skipped: skipped,
		Reasons: reasons,
	}, nil
}

func (s *DayPlanService) resolveTargetGroups(ctx context.Context, names []string) ([]models.Group, error) {
	if len(names) == 0 {
		groups, err := s.groups.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
		}
		return groups, nil
	}

	var groups []models.Group
	for _, name := range names {
		group, err := s.groups.FindByName(ctx, name)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve group")
		}
		if group == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group %q", name))
		}
		groups = append(groups, *group)
	}
	return groups, nil
}

// replayFromPlan copies this week's distribution slots onto the day. Weekly
// conflicts are intentionally ignored here: the weekly plan is the source.
func (s *DayPlanService) replayFromPlan(ctx context.Context, day *models.DaySchedule, date time.Time, weekday string, groups []models.Group, req dto.PlanDayRequest, maxPairs int) (int, int, []string, error) {
	weekStart := timeslot.WeekStart(date)
	usedTeachers := make(map[string]map[string]bool) // start -> teacher ids

	// Entries that survived the wipe, approved or outside the target groups,
	// still occupy their teachers.
	existing, err := s.days.ListEntries(ctx, day.ID, models.DayEntryFilter{})
	if err != nil {
		return 0, 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day entries")
	}
	for _, entry := range existing {
		if entry.TeacherID == nil {
			continue
		}
		if usedTeachers[entry.StartTime] == nil {
			usedTeachers[entry.StartTime] = make(map[string]bool)
		}
		usedTeachers[entry.StartTime][*entry.TeacherID] = true
	}

	placed := 0
	skipped := 0
	var reasons []string

	for _, group := range groups {
		onPractice, err := s.calendar.GroupOnPractice(ctx, group.ID, date)
		if err != nil {
			return 0, 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check practice")
		}
		if onPractice {
			reasons = append(reasons, fmt.Sprintf("group %s is on practice", group.Name))
			continue
		}

		dists, err := s.dists.ListDetailByWeekAndGroup(ctx, weekStart, group.ID)
		if err != nil {
			return 0, 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly distributions")
		}

		groupTimes := make(map[string]bool)
		var planned []models.DayScheduleEntry
		for _, dist := range dists {
			for _, slot := range dist.PlacedSlots() {
				if slot.Day != weekday {
					continue
				}
				if groupTimes[slot.StartTime] {
					skipped++
					reasons = append(reasons, fmt.Sprintf("group %s already has a pair at %s", group.Name, slot.StartTime))
					s.metrics.RecordSlotSkipped("duplicate_group_slot")
					continue
				}
				if usedTeachers[slot.StartTime][dist.TeacherID] {
					skipped++
					reasons = append(reasons, fmt.Sprintf("teacher busy at %s, slot dropped for group %s", slot.StartTime, group.Name))
					s.metrics.RecordSlotSkipped("teacher_busy")
					continue
				}
				teacherID := dist.TeacherID
				roomID := dist.RoomID
				planned = append(planned, models.DayScheduleEntry{
					DayScheduleID:  day.ID,
					GroupID:        group.ID,
					SubjectID:      dist.SubjectID,
					TeacherID:      &teacherID,
					RoomID:         &roomID,
					StartTime:      slot.StartTime,
					EndTime:        slot.EndTime,
					Status:         models.DayEntryStatusPending,
					ScheduleItemID: &dist.ScheduleItemID,
				})
				groupTimes[slot.StartTime] = true
			}
		}

		slots := timeslot.SlotsFor(group.Name, s.cfg.EnableShifts)
		if req.EnforceNoGaps {
			var dropped []string
			planned, dropped = trimToConsecutivePrefix(planned, slots, maxPairs, group.Name)
			skipped += len(dropped)
			reasons = append(reasons, dropped...)
		} else if len(planned) > maxPairs {
			sortEntriesBySlotOrder(planned, slots)
			for _, extra := range planned[maxPairs:] {
				skipped++
				reasons = append(reasons, fmt.Sprintf("group %s over daily cap, dropped pair at %s", group.Name, extra.StartTime))
			}
			planned = planned[:maxPairs]
		}

		for i := range planned {
			entry := &planned[i]
			if err := s.days.CreateEntry(ctx, entry); err != nil {
				return 0, 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create day entry")
			}
			if entry.TeacherID != nil {
				if usedTeachers[entry.StartTime] == nil {
					usedTeachers[entry.StartTime] = make(map[string]bool)
				}
				usedTeachers[entry.StartTime][*entry.TeacherID] = true
			}
			placed++
		}
	}
	return placed, skipped, reasons, nil
}

// fillFromScratch greedily constructs a gap-free day from candidate items.
func (s *DayPlanService) fillFromScratch(ctx context.Context, day *models.DaySchedule, date time.Time, groups []models.Group, req dto.PlanDayRequest, maxPairs, maxRepeats int) (int, int, []string, error) {
	weekStart := timeslot.WeekStart(date)
	isEven := timeslot.IsEvenWeek(date, s.cfg.WeekParityBase)
	pairHours := float64(s.cfg.PairSizeHours)

	placed := 0
	skipped := 0
	var reasons []string

	for _, group := range groups {
		onPractice, err := s.calendar.GroupOnPractice(ctx, group.ID, date)
		if err != nil {
			return 0, 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check practice")
		}
		if onPractice {
			reasons = append(reasons, fmt.Sprintf("group %s is on practice", group.Name))
			continue
		}

		candidates, err := s.gatherCandidates(ctx, group.ID, weekStart, isEven, pairHours)
		if err != nil {
			return 0, 0, nil, err
		}
		if len(candidates) == 0 {
			reasons = append(reasons, fmt.Sprintf("group %s has no remaining hours this week", group.Name))
			continue
		}

		slots := timeslot.SlotsFor(group.Name, s.cfg.EnableShifts)
		subjectCount := make(map[string]int)
		started := false
		groupPlaced := 0

		for _, slot := range slots {
			if groupPlaced >= maxPairs {
				break
			}
			free, _, err := s.availability.GroupFree(ctx, group.ID, date, slot.Start, req.IgnoreWeeklyConflicts)
			if err != nil {
				return 0, 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group availability")
			}
			if !free {
				if started {
					reasons = append(reasons, fmt.Sprintf("group %s stopped at %s: slot occupied", group.Name, slot.Start))
					break
				}
				continue
			}

			entry, reason, err := s.placeCandidate(ctx, day, date, &group, candidates, subjectCount, slot, maxRepeats)
			if err != nil {
				return 0, 0, nil, err
			}
			if entry == nil {
				skipped++
				if started {
					reasons = append(reasons, fmt.Sprintf("group %s stopped at %s: %s", group.Name, slot.Start, reason))
					break
				}
				reasons = append(reasons, fmt.Sprintf("group %s skipped %s: %s", group.Name, slot.Start, reason))
				continue
			}
			started = true
			groupPlaced++
			placed++
		}
	}
	return placed, skipped, reasons, nil
}

type dayCandidate struct {
	item           models.ScheduleItem
	remainingPairs int
}

// gatherCandidates collects the group's items with nonzero hours this week,
// preferring distribution-derived hours and falling back to the raw parity
// split.
func (s *DayPlanService) gatherCandidates(ctx context.Context, groupID string, weekStart time.Time, isEven bool, pairHours float64) ([]*dayCandidate, error) {
	items, err := s.items.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule items")
	}
	dists, err := s.dists.ListDetailByWeekAndGroup(ctx, weekStart, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly distributions")
	}
	weekHours := make(map[string]float64, len(dists))
	for _, dist := range dists {
		weekHours[dist.ScheduleItemID] = dist.HoursThisWeek()
	}

	var candidates []*dayCandidate
	for _, item := range items {
		hours, fromPlan := weekHours[item.ID]
		if !fromPlan {
			hours = timeslot.HoursForWeek(item.WeeklyHours, item.WeekType, isEven, int(pairHours))
		}
		pairs := int(hours / pairHours)
		if pairs <= 0 {
			continue
		}
		candidates = append(candidates, &dayCandidate{item: item, remainingPairs: pairs})
	}
	return candidates, nil
}

// placeCandidate picks the first fitting candidate for a slot and persists
// the entry. A nil entry with a reason means nothing fit.
func (s *DayPlanService) placeCandidate(ctx context.Context, day *models.DaySchedule, date time.Time, group *models.Group, candidates []*dayCandidate, subjectCount map[string]int, slot timeslot.Slot, maxRepeats int) (*models.DayScheduleEntry, string, error) {
	reason := "no remaining candidates"
	for _, candidate := range candidates {
		if candidate.remainingPairs <= 0 {
			continue
		}
		if subjectCount[candidate.item.SubjectID] >= maxRepeats {
			reason = "subject repeat cap reached"
			s.metrics.RecordSlotSkipped("subject_repeat_cap")
			continue
		}
		hasCapacity, err := s.availability.RoomHasCapacity(ctx, candidate.item.RoomID, date, slot.Start, "")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check room capacity")
		}
		if !hasCapacity {
			reason = "room full"
			s.metrics.RecordSlotSkipped("room_full")
			continue
		}
		teacherFree, err := s.availability.TeacherFree(ctx, candidate.item.TeacherID, date, slot.Start, "", true)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher availability")
		}
		if !teacherFree {
			reason = "teacher busy"
			s.metrics.RecordSlotSkipped("teacher_busy")
			continue
		}

		teacherID := candidate.item.TeacherID
		roomID := candidate.item.RoomID
		itemID := candidate.item.ID
		entry := &models.DayScheduleEntry{
			DayScheduleID:  day.ID,
			GroupID:        group.ID,
			SubjectID:      candidate.item.SubjectID,
			TeacherID:      &teacherID,
			RoomID:         &roomID,
			StartTime:      slot.Start,
			EndTime:        slot.End,
			Status:         models.DayEntryStatusPending,
			ScheduleItemID: &itemID,
		}
		if err := s.days.CreateEntry(ctx, entry); err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create day entry")
		}
		candidate.remainingPairs--
		subjectCount[candidate.item.SubjectID]++
		return entry, "", nil
	}
	return nil, reason, nil
}

// trimToConsecutivePrefix keeps the longest strictly consecutive run of slots
// from the group's first occupied slot and drops everything after the first
// gap or beyond the cap.
func trimToConsecutivePrefix(entries []models.DayScheduleEntry, slots []timeslot.Slot, maxPairs int, groupName string) ([]models.DayScheduleEntry, []string) {
	if len(entries) == 0 {
		return entries, nil
	}
	sortEntriesBySlotOrder(entries, slots)

	var kept []models.DayScheduleEntry
	var dropped []string
	prevIdx := -2
	for _, entry := range entries {
		idx := timeslot.SlotIndex(slots, entry.StartTime)
		switch {
		case idx < 0:
			dropped = append(dropped, fmt.Sprintf("group %s dropped pair at %s: not in slot grid", groupName, entry.StartTime))
		case len(kept) >= maxPairs:
			dropped = append(dropped, fmt.Sprintf("group %s over daily cap, dropped pair at %s", groupName, entry.StartTime))
		case len(kept) > 0 && idx != prevIdx+1:
			dropped = append(dropped, fmt.Sprintf("group %s dropped pair at %s: would leave a window", groupName, entry.StartTime))
		default:
			kept = append(kept, entry)
			prevIdx = idx
			continue
		}
		// Once one entry is dropped the prefix is closed; everything later
		// would reopen a gap.
		if len(kept) > 0 && len(dropped) > 0 {
			prevIdx = -10
		}
	}
	return kept, dropped
}

func sortEntriesBySlotOrder(entries []models.DayScheduleEntry, slots []timeslot.Slot) {
	sort.SliceStable(entries, func(i, j int) bool {
		return timeslot.SlotIndex(slots, entries[i].StartTime) < timeslot.SlotIndex(slots, entries[j].StartTime)
	})
}

// GetDay returns the day schedule and its entries for a date.
func (s *DayPlanService) GetDay(ctx context.Context, rawDate string) (*dto.DayPlanResult, error) {
	date, err := parseDate(rawDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	day, err := s.days.FindByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	if day == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no day schedule for this date")
	}
	entries, err := s.days.ListEntries(ctx, day.ID, models.DayEntryFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day entries")
	}
	return &dto.DayPlanResult{Day: day, Entries: entries, Placed: len(entries)}, nil
}

// LookupEntries filters one day's entries by resource names.
func (s *DayPlanService) LookupEntries(ctx context.Context, req dto.LookupEntriesRequest) ([]models.DayScheduleEntry, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	day, err := s.days.FindByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	if day == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no day schedule for this date")
	}

	filter := models.DayEntryFilter{StartTime: req.StartTime}
	if req.GroupName != "" {
		group, err := s.groups.FindByName(ctx, req.GroupName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve group")
		}
		if group == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group %q", req.GroupName))
		}
		filter.GroupID = group.ID
	}
	if req.TeacherName != "" {
		teacher, err := s.teachers.FindByName(ctx, req.TeacherName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
		}
		if teacher == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown teacher %q", req.TeacherName))
		}
		filter.TeacherID = teacher.ID
	}
	if req.RoomName != "" {
		room, err := s.rooms.FindByName(ctx, req.RoomName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve room")
		}
		if room == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown room %q", req.RoomName))
		}
		filter.RoomID = room.ID
	}
	if req.SubjectName != "" {
		subject, err := s.subjects.FindByName(ctx, req.SubjectName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve subject")
		}
		if subject == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown subject %q", req.SubjectName))
		}
		filter.SubjectID = subject.ID
	}

	entries, err := s.days.ListEntries(ctx, day.ID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day entries")
	}
	return entries, nil
}
