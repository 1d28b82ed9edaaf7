package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/internal/timeslot"
	"github.com/almas-dev/college-timetable-api/pkg/config"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
	"github.com/almas-dev/college-timetable-api/pkg/jobs"
)

const dateLayout = "2006-01-02"

// SemesterJobType identifies semester generation jobs on the queue.
const SemesterJobType = "semester_generation"

type weekPlanItemReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleItem, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleItem, error)
}

type weekPlanGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type weekPlanRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type weekPlanDistributionStore interface {
	FindByItemAndWeek(ctx context.Context, itemID string, weekStart time.Time) (*models.WeeklyDistribution, error)
	DeleteByItemAndWeek(ctx context.Context, itemID string, weekStart time.Time) error
	Create(ctx context.Context, dist *models.WeeklyDistribution) error
	ListDetailByWeekRange(ctx context.Context, from, to time.Time) ([]models.WeeklyDistributionDetail, error)
	ListDetailByWeek(ctx context.Context, weekStart time.Time) ([]models.WeeklyDistributionDetail, error)
	ListDetailByWeekAndGroup(ctx context.Context, weekStart time.Time, groupID string) ([]models.WeeklyDistributionDetail, error)
}

type weekPlanCalendar interface {
	ListHolidaysOverlapping(ctx context.Context, from, to time.Time) ([]models.Holiday, error)
}

type generationRunStore interface {
	Create(ctx context.Context, run *models.GeneratedSchedule) error
	FindByID(ctx context.Context, id string) (*models.GeneratedSchedule, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.GeneratedSchedule, error)
	MarkInProgress(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, stats models.GenerationStats, runErr error) error
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SemesterJobPayload travels on the queue for semester generation runs.
type SemesterJobPayload struct {
	RunID     string
	GroupID   string
	StartDate time.Time
	EndDate   time.Time
}

// WeekPlanService distributes schedule items' weekly hour quotas into
// concrete day/slot placements.
type WeekPlanService struct {
	items     weekPlanItemReader
	groups    weekPlanGroupReader
	rooms     weekPlanRoomReader
	dists     weekPlanDistributionStore
	calendar  weekPlanCalendar
	runs      generationRunStore
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       config.SchedulerConfig
}

// NewWeekPlanService wires generator dependencies.
func NewWeekPlanService(
	items weekPlanItemReader,
	groups weekPlanGroupReader,
	rooms weekPlanRoomReader,
	dists weekPlanDistributionStore,
	calendar weekPlanCalendar,
	runs generationRunStore,
	queue jobEnqueuer,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
) *WeekPlanService {
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
	return &WeekPlanService{
		items:     items,
		groups:    groups,
		rooms:     rooms,
		dists:     dists,
		calendar:  calendar,
		runs:      runs,
		queue:     queue,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// weekOccupancy is the operation-local snapshot the generator consults and
// updates while placing pairs. Keys are "day|start".
type weekOccupancy struct {
	teachers    map[string]map[string]struct{}
	groups      map[string]map[string]struct{}
	rooms       map[string]int
	gymTeachers map[string]map[string]struct{}
}

func newWeekOccupancy() *weekOccupancy {
	return &weekOccupancy{
		teachers:    make(map[string]map[string]struct{}),
		groups:      make(map[string]map[string]struct{}),
		rooms:       make(map[string]int),
		gymTeachers: make(map[string]map[string]struct{}),
	}
}

func slotKey(day, start string) string {
	return day + "|" + start
}

func (o *weekOccupancy) teacherBusy(key, teacherID string) bool {
	_, ok := o.teachers[key][teacherID]
	return ok
}

func (o *weekOccupancy) groupBusy(key, groupID string) bool {
	_, ok := o.groups[key][groupID]
	return ok
}

func (o *weekOccupancy) gymTeacherBusy(key, roomID, teacherID string) bool {
	_, ok := o.gymTeachers[key+"|"+roomID][teacherID]
	return ok
}

func (o *weekOccupancy) reserve(key, groupID, teacherID, roomID string, shared bool) {
	if o.teachers[key] == nil {
		o.teachers[key] = make(map[string]struct{})
	}
	o.teachers[key][teacherID] = struct{}{}
	if o.groups[key] == nil {
		o.groups[key] = make(map[string]struct{})
	}
	o.groups[key][groupID] = struct{}{}
	o.rooms[key+"|"+roomID]++
	if shared {
		gymKey := key + "|" + roomID
		if o.gymTeachers[gymKey] == nil {
			o.gymTeachers[gymKey] = make(map[string]struct{})
		}
		o.gymTeachers[gymKey][teacherID] = struct{}{}
	}
}

// GenerateWeek places one item's quota into the requested week and persists
// the resulting distribution. A shortfall is not an error: the response
// carries the smaller placed count plus the reasons.
func (s *WeekPlanService) GenerateWeek(ctx context.Context, req dto.GenerateWeekRequest) (*dto.GenerateWeekResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid week generation payload")
	}
	weekStart, err := parseDate(req.WeekStart)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week_start must be YYYY-MM-DD")
	}
	weekStart = timeslot.WeekStart(weekStart)

	item, err := s.items.FindByID(ctx, req.ScheduleItemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule item")
	}
	if item == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule item not found")
	}

	isEven := timeslot.IsEvenWeek(weekStart, s.cfg.WeekParityBase)
	wanted := timeslot.PairsForWeek(item.WeeklyHours, item.WeekType, isEven, s.cfg.PairSizeHours)

	dist, reasons, err := s.generateForItem(ctx, item, weekStart, req.PreferredDays, req.MaxPairsPerDay, nil, wanted)
	if err != nil {
		return nil, err
	}
	return &dto.GenerateWeekResponse{
		Distribution: dist,
		PlacedPairs:  len(dist.PlacedSlots()),
		WantedPairs:  wanted,
		Reasons:      reasons,
	}, nil
}

func (s *WeekPlanService) generateForItem(ctx context.Context, item *models.ScheduleItem, weekStart time.Time, preferredDays []string, maxPairsPerDay int, runID *string, wantedPairs int) (*models.WeeklyDistribution, []string, error) {
	group, err := s.groups.FindByID(ctx, item.GroupID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "group not found for schedule item")
	}
	room, err := s.rooms.FindByID(ctx, item.RoomID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if room == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "room not found for schedule item")
	}

	weekEnd := weekStart.AddDate(0, 0, len(timeslot.Weekdays)-1)
	isEven := timeslot.IsEvenWeek(weekStart, s.cfg.WeekParityBase)

	if err := s.dists.DeleteByItemAndWeek(ctx, item.ID, weekStart); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset weekly distribution")
	}

	occupancy, err := s.seedOccupancy(ctx, item.ID, weekStart)
	if err != nil {
		return nil, nil, err
	}

	days, err := s.availableDays(ctx, weekStart, weekEnd, preferredDays)
	if err != nil {
		return nil, nil, err
	}

	if maxPairsPerDay <= 0 {
		maxPairsPerDay = s.cfg.MaxPairsPerDay
	}
	pairsPerDay := 0
	if wantedPairs > 0 && len(days) > 0 {
		pairsPerDay = clamp(int(math.Ceil(float64(wantedPairs)/float64(len(days)))), s.cfg.MinPairsPerDay, maxPairsPerDay)
	}

	slots := timeslot.SlotsFor(group.Name, s.cfg.EnableShifts)

	var placed []models.PlacedSlot
	var reasons []string
	remaining := wantedPairs

	for _, day := range days {
		if remaining <= 0 {
			break
		}
		placedToday := 0
		for _, slot := range slots {
			if remaining <= 0 || placedToday >= pairsPerDay {
				break
			}
			key := slotKey(day, slot.Start)
			if occupancy.groupBusy(key, item.GroupID) {
				reasons = append(reasons, fmt.Sprintf("%s %s: group already occupied", day, slot.Start))
				s.metrics.RecordSlotSkipped("group_busy")
				continue
			}
			if occupancy.teacherBusy(key, item.TeacherID) {
				reasons = append(reasons, fmt.Sprintf("%s %s: teacher already occupied", day, slot.Start))
				s.metrics.RecordSlotSkipped("teacher_busy")
				continue
			}
			roomCount := occupancy.rooms[key+"|"+item.RoomID]
			if roomCount >= room.Capacity {
				reasons = append(reasons, fmt.Sprintf("%s %s: room %s full", day, slot.Start, room.Name))
				s.metrics.RecordSlotSkipped("room_full")
				continue
			}
			if room.SharedRoom() && occupancy.gymTeacherBusy(key, item.RoomID, item.TeacherID) {
				reasons = append(reasons, fmt.Sprintf("%s %s: teacher already leads a lesson in %s", day, slot.Start, room.Name))
				s.metrics.RecordSlotSkipped("gym_teacher_busy")
				continue
			}

			occupancy.reserve(key, item.GroupID, item.TeacherID, item.RoomID, room.SharedRoom())
			placed = append(placed, models.PlacedSlot{Day: day, StartTime: slot.Start, EndTime: slot.End})
			placedToday++
			remaining--
		}
	}

	dist := &models.WeeklyDistribution{
		GeneratedScheduleID: runID,
		ScheduleItemID:      item.ID,
		WeekStart:           weekStart,
		WeekEnd:             weekEnd,
		IsEvenWeek:          isEven,
		HoursEven:           timeslot.HoursForWeek(item.WeeklyHours, item.WeekType, true, s.cfg.PairSizeHours),
		HoursOdd:            timeslot.HoursForWeek(item.WeeklyHours, item.WeekType, false, s.cfg.PairSizeHours),
	}
	if err := dist.SetPlacedSlots(placed); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode placed slots")
	}
	if err := s.dists.Create(ctx, dist); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store weekly distribution")
	}

	s.metrics.RecordPairsPlaced(len(placed))
	if len(placed) == wantedPairs {
		reasons = nil
	}
	s.logger.Sugar().Infow("week generated",
		"schedule_item_id", item.ID,
		"week_start", weekStart.Format(dateLayout),
		"placed", len(placed),
		"wanted", wantedPairs,
	)
	return dist, reasons, nil
}

// seedOccupancy loads persisted placements in a one-week window around the
// target week so repeated runs do not double-book resources.
func (s *WeekPlanService) seedOccupancy(ctx context.Context, excludeItemID string, weekStart time.Time) (*weekOccupancy, error) {
	from := weekStart.AddDate(0, 0, -7)
	to := weekStart.AddDate(0, 0, 7)
	dists, err := s.dists.ListDetailByWeekRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed occupancy snapshot")
	}

	occupancy := newWeekOccupancy()
	sharedRooms := make(map[string]bool)
	for _, dist := range dists {
		if dist.ScheduleItemID == excludeItemID {
			continue
		}
		shared, known := sharedRooms[dist.RoomID]
		if !known {
			room, err := s.rooms.FindByID(ctx, dist.RoomID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room for snapshot")
			}
			shared = room.SharedRoom()
			sharedRooms[dist.RoomID] = shared
		}
		for _, slot := range dist.PlacedSlots() {
			occupancy.reserve(slotKey(slot.Day, slot.StartTime), dist.GroupID, dist.TeacherID, dist.RoomID, shared)
		}
	}
	return occupancy, nil
}

// availableDays returns the week's teaching days not covered by a holiday,
// preferred days first.
func (s *WeekPlanService) availableDays(ctx context.Context, weekStart, weekEnd time.Time, preferred []string) ([]string, error) {
	holidays, err := s.calendar.ListHolidaysOverlapping(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load holidays")
	}

	var days []string
	for i, name := range timeslot.Weekdays {
		date := weekStart.AddDate(0, 0, i)
		covered := false
		for _, holiday := range holidays {
			if holiday.Covers(date) {
				covered = true
				break
			}
		}
		if !covered {
			days = append(days, name)
		}
	}

	if len(preferred) == 0 {
		return days, nil
	}

	available := make(map[string]bool, len(days))
	for _, day := range days {
		available[day] = true
	}
	var ordered []string
	seen := make(map[string]bool)
	for _, day := range preferred {
		if available[day] && !seen[day] {
			ordered = append(ordered, day)
			seen[day] = true
		}
	}
	for _, day := range days {
		if !seen[day] {
			ordered = append(ordered, day)
		}
	}
	return ordered, nil
}

// GenerateSemester records a run and queues it for asynchronous execution.
func (s *WeekPlanService) GenerateSemester(ctx context.Context, req dto.GenerateSemesterRequest) (*dto.GenerateSemesterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester generation payload")
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}
	group, err := s.groups.FindByID(ctx, req.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	if group == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}

	jobID := uuid.NewString()
	run := &models.GeneratedSchedule{
		StartDate: start,
		EndDate:   end,
		Semester:  req.Semester,
		GroupID:   req.GroupID,
		Status:    models.GeneratedScheduleStatusPending,
		JobID:     &jobID,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation run")
	}

	payload := SemesterJobPayload{RunID: run.ID, GroupID: req.GroupID, StartDate: start, EndDate: end}
	if err := s.queue.Enqueue(jobs.Job{ID: jobID, Type: SemesterJobType, Payload: payload}); err != nil {
		failure := s.runs.Complete(ctx, run.ID, models.GenerationStats{}, err)
		if failure != nil {
			s.logger.Sugar().Errorw("failed to mark run failed", "run_id", run.ID, "error", failure)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue generation run")
	}

	return &dto.GenerateSemesterResponse{
		GeneratedScheduleID: run.ID,
		JobID:               jobID,
		Status:              models.GeneratedScheduleStatusPending,
		QueuedAt:            time.Now().UTC(),
	}, nil
}

// RunSemesterJob executes one queued semester run: week by week over the
// range, every item of the group, depleting total hours as pairs land.
func (s *WeekPlanService) RunSemesterJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(SemesterJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload for %s job", job.Type)
	}
	if err := s.runs.MarkInProgress(ctx, payload.RunID); err != nil {
		return err
	}

	items, err := s.items.ListByGroup(ctx, payload.GroupID)
	if err != nil {
		return s.finishRun(ctx, payload.RunID, models.GenerationStats{}, err)
	}

	remaining := make(map[string]float64, len(items))
	for _, item := range items {
		remaining[item.ID] = item.TotalHours
	}

	var stats models.GenerationStats
	pairHours := float64(s.cfg.PairSizeHours)

	for week := timeslot.WeekStart(payload.StartDate); !week.After(payload.EndDate); week = week.AddDate(0, 0, 7) {
		stats.WeeksPlanned++
		isEven := timeslot.IsEvenWeek(week, s.cfg.WeekParityBase)
		for i := range items {
			item := &items[i]
			if remaining[item.ID] < pairHours {
				continue
			}
			wanted := timeslot.PairsForWeek(item.WeeklyHours, item.WeekType, isEven, s.cfg.PairSizeHours)
			if limit := int(math.Floor(remaining[item.ID] / pairHours)); wanted > limit {
				wanted = limit
			}
			if wanted <= 0 {
				continue
			}
			dist, reasons, err := s.generateForItem(ctx, item, week, nil, 0, &payload.RunID, wanted)
			if err != nil {
				return s.finishRun(ctx, payload.RunID, stats, err)
			}
			placed := len(dist.PlacedSlots())
			remaining[item.ID] -= float64(placed) * pairHours
			stats.TotalPairs += placed
			stats.HoursPlanned += float64(placed) * pairHours
			if len(stats.Warnings) < 50 {
				stats.Warnings = append(stats.Warnings, reasons...)
			}
		}
	}

	for _, left := range remaining {
		stats.HoursRemained += left
	}
	return s.finishRun(ctx, payload.RunID, stats, nil)
}

func (s *WeekPlanService) finishRun(ctx context.Context, runID string, stats models.GenerationStats, runErr error) error {
	if err := s.runs.Complete(ctx, runID, stats, runErr); err != nil {
		s.logger.Sugar().Errorw("failed to finish generation run", "run_id", runID, "error", err)
		return err
	}
	if runErr != nil {
		s.logger.Sugar().Warnw("generation run failed", "run_id", runID, "error", runErr)
	}
	return nil
}

// GetWeek returns the stored weekly plan for the week containing the date,
// optionally narrowed to one group.
func (s *WeekPlanService) GetWeek(ctx context.Context, rawDate, groupID string) ([]models.WeeklyDistributionDetail, error) {
	date, err := parseDate(rawDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	week := timeslot.WeekStart(date)
	if groupID != "" {
		details, err := s.dists.ListDetailByWeekAndGroup(ctx, week, groupID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly plan")
		}
		return details, nil
	}
	details, err := s.dists.ListDetailByWeek(ctx, week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly plan")
	}
	return details, nil
}

// GetRun returns one generation run with its stats.
func (s *WeekPlanService) GetRun(ctx context.Context, id string) (*models.GeneratedSchedule, error) {
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation run")
	}
	if run == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found")
	}
	return run, nil
}

// ListRuns lists a group's generation runs, newest first.
func (s *WeekPlanService) ListRuns(ctx context.Context, groupID string) ([]models.GeneratedSchedule, error) {
	if groupID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "group_id is required")
	}
	runs, err := s.runs.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generation runs")
	}
	return runs, nil
}

func clamp(v, min, max int) int {
	if min > 0 && v < min {
		return min
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, raw)
}
