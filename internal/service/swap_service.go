package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	"github.com/almas-dev/college-timetable-api/pkg/config"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
)

type swapDayStore interface {
	FindByID(ctx context.Context, id string) (*models.DaySchedule, error)
	FindEntryByID(ctx context.Context, id string) (*models.DayScheduleEntry, error)
	ListRoomEntriesAt(ctx context.Context, roomID string, date time.Time, start, excludeEntryID string) ([]models.DayScheduleEntry, error)
	ListTeacherEntriesAt(ctx context.Context, teacherID string, date time.Time, start, excludeEntryID string) ([]models.DayScheduleEntry, error)
	UpdateEntryResources(ctx context.Context, exec sqlx.ExtContext, entry *models.DayScheduleEntry) error
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type swapRoomReader interface {
	FindByName(ctx context.Context, name string) (*models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ListWithCapacityAtLeast(ctx context.Context, capacity int) ([]models.Room, error)
}

type swapTeacherReader interface {
	FindByName(ctx context.Context, name string) (*models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type swapLinkReader interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.GroupTeacherSubject, error)
	ListByGroupAndTeacher(ctx context.Context, groupID, teacherID string) ([]models.GroupTeacherSubject, error)
}

// SwapService plans and executes cascading room and teacher reassignments.
// Each execution computes a change-set first and applies it inside one
// transaction; a failure partway rolls everything back.
type SwapService struct {
	days        swapDayStore
	rooms       swapRoomReader
	teachers    swapTeacherReader
	links       swapLinkReader
	invalidator reportInvalidator
	logger      *zap.Logger
	metrics     *MetricsService
	cfg         config.SchedulerConfig
}

// NewSwapService wires planner dependencies.
func NewSwapService(
	days swapDayStore,
	rooms swapRoomReader,
	teachers swapTeacherReader,
	links swapLinkReader,
	invalidator reportInvalidator,
	logger *zap.Logger,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
) *SwapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SwapAlternativeLimit <= 0 {
		cfg.SwapAlternativeLimit = 5
	}
	return &SwapService{
		days:        days,
		rooms:       rooms,
		teachers:    teachers,
		links:       links,
		invalidator: invalidator,
		logger:      logger,
		metrics:     metrics,
		cfg:         cfg,
	}
}

// ProposeRoomSwap reports whether the desired room is free for the entry's
// slot, and if not, who occupies it and where each occupant could move.
func (s *SwapService) ProposeRoomSwap(ctx context.Context, entryID, roomName string) (*dto.SwapPlan, error) {
	entry, day, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	desired, err := s.rooms.FindByName(ctx, roomName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve room")
	}
	if desired == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown room %q", roomName))
	}
	return s.proposeRoom(ctx, entry, day, desired)
}

func (s *SwapService) proposeRoom(ctx context.Context, entry *models.DayScheduleEntry, day *models.DaySchedule, desired *models.Room) (*dto.SwapPlan, error) {
	plan := &dto.SwapPlan{
		EntryID:     entry.ID,
		Resource:    dto.SwapResourceRoom,
		DesiredID:   desired.ID,
		DesiredName: desired.Name,
	}

	occupants, err := s.days.ListRoomEntriesAt(ctx, desired.ID, day.Date, entry.StartTime, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room occupants")
	}
	if len(occupants) < desired.Capacity {
		plan.IsFree = true
		plan.CanAutoResolve = true
		return plan, nil
	}

	// Name-ordered scan keeps proposed alternatives deterministic.
	rooms, err := s.rooms.ListWithCapacityAtLeast(ctx, 1)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}

	plan.CanAutoResolve = true
	for _, occupant := range occupants {
		conflict := dto.SwapConflict{Entry: occupant}
		if occupant.Status != models.DayEntryStatusApproved {
			for _, room := range rooms {
				if len(conflict.Alternatives) >= s.cfg.SwapAlternativeLimit {
					break
				}
				if room.ID == desired.ID {
					continue
				}
				if occupant.RoomID != nil && room.ID == *occupant.RoomID {
					continue
				}
				others, err := s.days.ListRoomEntriesAt(ctx, room.ID, day.Date, occupant.StartTime, occupant.ID)
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check alternative room")
				}
				if len(others) < room.Capacity {
					conflict.Alternatives = append(conflict.Alternatives, dto.SwapAlternative{ResourceID: room.ID, ResourceName: room.Name})
				}
			}
		}
		if len(conflict.Alternatives) == 0 {
			plan.CanAutoResolve = false
		}
		plan.Conflicts = append(plan.Conflicts, conflict)
	}
	return plan, nil
}

// ExecuteRoomSwap applies the room swap chain. Dry-run returns the change-set
// without touching state.
func (s *SwapService) ExecuteRoomSwap(ctx context.Context, req dto.ExecuteSwapRequest) (*dto.SwapResult, error) {
	entry, day, err := s.loadEntry(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	desired, err := s.rooms.FindByName(ctx, req.ResourceName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve room")
	}
	if desired == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown room %q", req.ResourceName))
	}

	plan, err := s.proposeRoom(ctx, entry, day, desired)
	if err != nil {
		return nil, err
	}

	changes, moved, err := s.roomChangeSet(plan, entry, req.Choices)
	if err != nil {
		return nil, err
	}
	if req.DryRun {
		return &dto.SwapResult{Applied: false, Changes: changes}, nil
	}

	if err := s.applyRoomChanges(ctx, day, changes, moved); err != nil {
		return nil, err
	}

	s.metrics.RecordSwapExecuted(dto.SwapResourceRoom)
	if s.invalidator != nil {
		s.invalidator.InvalidateDay(ctx, day.ID)
	}
	s.logger.Sugar().Infow("room swap executed", "entry_id", entry.ID, "room", desired.Name, "changes", len(changes))
	return &dto.SwapResult{Applied: true, Changes: changes}, nil
}

// roomChangeSet turns a plan into an ordered change list: occupants move out
// first, the original entry moves in last.
func (s *SwapService) roomChangeSet(plan *dto.SwapPlan, entry *models.DayScheduleEntry, choices map[string]string) ([]dto.ResourceChange, map[string]models.DayScheduleEntry, error) {
	moved := make(map[string]models.DayScheduleEntry, len(plan.Conflicts)+1)
	var changes []dto.ResourceChange

	for _, conflict := range plan.Conflicts {
		occupant := conflict.Entry
		if occupant.Status == models.DayEntryStatusApproved {
			return nil, nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("occupying entry %s is approved", occupant.ID))
		}
		target := choices[occupant.ID]
		if target == "" {
			if len(conflict.Alternatives) == 0 {
				return nil, nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("no alternative room for entry %s", occupant.ID))
			}
			target = conflict.Alternatives[0].ResourceID
		}
		changes = append(changes, dto.ResourceChange{
			EntryID:  occupant.ID,
			Resource: dto.SwapResourceRoom,
			OldID:    occupant.RoomID,
			NewID:    target,
		})
		moved[occupant.ID] = occupant
	}

	changes = append(changes, dto.ResourceChange{
		EntryID:  entry.ID,
		Resource: dto.SwapResourceRoom,
		OldID:    entry.RoomID,
		NewID:    plan.DesiredID,
	})
	moved[entry.ID] = *entry
	return changes, moved, nil
}

// applyRoomChanges validates capacity immediately before each write, counting
// in-batch consumption, and rolls the whole chain back on any failure.
func (s *SwapService) applyRoomChanges(ctx context.Context, day *models.DaySchedule, changes []dto.ResourceChange, moved map[string]models.DayScheduleEntry) error {
	tx, err := s.days.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin swap transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	added := make(map[string]int)
	freed := make(map[string]int)

	for _, change := range changes {
		occupant := moved[change.EntryID]
		room, err := s.rooms.FindByID(ctx, change.NewID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load target room")
		}
		if room == nil {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown room %s", change.NewID))
		}

		key := change.NewID + "|" + occupant.StartTime
		current, err := s.days.ListRoomEntriesAt(ctx, change.NewID, day.Date, occupant.StartTime, occupant.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check target room")
		}
		effective := len(current) + added[key] - freed[key]
		if effective >= room.Capacity {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("room %s no longer has capacity at %s", room.Name, occupant.StartTime))
		}

		newRoomID := change.NewID
		occupant.RoomID = &newRoomID
		occupant.Status = models.DayEntryStatusReplacedManual
		if err := s.days.UpdateEntryResources(ctx, tx, &occupant); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign entry")
		}

		added[key]++
		if change.OldID != nil {
			freed[*change.OldID+"|"+occupant.StartTime]++
		}
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit swap")
	}
	return nil
}

// ProposeTeacherSwap reports whether the desired teacher is free for the
// entry's slot, with substitutes for each occupying entry drawn from the
// group-teacher-subject links.
func (s *SwapService) ProposeTeacherSwap(ctx context.Context, entryID, teacherName string) (*dto.SwapPlan, error) {
	entry, day, err := s.loadEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	desired, err := s.teachers.FindByName(ctx, teacherName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
	}
	if desired == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown teacher %q", teacherName))
	}
	return s.proposeTeacher(ctx, entry, day, desired)
}

func (s *SwapService) proposeTeacher(ctx context.Context, entry *models.DayScheduleEntry, day *models.DaySchedule, desired *models.Teacher) (*dto.SwapPlan, error) {
	plan := &dto.SwapPlan{
		EntryID:     entry.ID,
		Resource:    dto.SwapResourceTeacher,
		DesiredID:   desired.ID,
		DesiredName: desired.Name,
	}

	occupants, err := s.days.ListTeacherEntriesAt(ctx, desired.ID, day.Date, entry.StartTime, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher bookings")
	}
	if len(occupants) == 0 {
		plan.IsFree = true
		plan.CanAutoResolve = true
		return plan, nil
	}

	plan.CanAutoResolve = true
	for _, occupant := range occupants {
		conflict := dto.SwapConflict{Entry: occupant}
		if occupant.Status != models.DayEntryStatusApproved {
			alternatives, err := s.teacherAlternatives(ctx, &occupant, day, desired.ID)
			if err != nil {
				return nil, err
			}
			conflict.Alternatives = alternatives
		}
		if len(conflict.Alternatives) == 0 {
			plan.CanAutoResolve = false
		}
		plan.Conflicts = append(plan.Conflicts, conflict)
	}
	return plan, nil
}

// teacherAlternatives lists free substitutes for an occupant, same-subject
// links first.
func (s *SwapService) teacherAlternatives(ctx context.Context, occupant *models.DayScheduleEntry, day *models.DaySchedule, desiredID string) ([]dto.SwapAlternative, error) {
	links, err := s.links.ListByGroup(ctx, occupant.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group links")
	}

	ordered := make([]models.GroupTeacherSubject, 0, len(links))
	for _, link := range links {
		if link.SubjectID == occupant.SubjectID {
			ordered = append(ordered, link)
		}
	}
	for _, link := range links {
		if link.SubjectID != occupant.SubjectID {
			ordered = append(ordered, link)
		}
	}

	var alternatives []dto.SwapAlternative
	seen := make(map[string]bool)
	for _, link := range ordered {
		if len(alternatives) >= s.cfg.SwapAlternativeLimit {
			break
		}
		if link.TeacherID == desiredID || seen[link.TeacherID] {
			continue
		}
		seen[link.TeacherID] = true
		teacher, err := s.teachers.FindByID(ctx, link.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitute")
		}
		if teacher == nil || models.IsPlaceholderTeacherName(teacher.Name) {
			continue
		}
		busy, err := s.days.ListTeacherEntriesAt(ctx, teacher.ID, day.Date, occupant.StartTime, occupant.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check substitute availability")
		}
		if len(busy) > 0 {
			continue
		}
		alternatives = append(alternatives, dto.SwapAlternative{ResourceID: teacher.ID, ResourceName: teacher.Name})
	}
	return alternatives, nil
}

// ExecuteTeacherSwap applies the teacher swap chain, re-aligning each moved
// entry's subject to the incoming teacher's link when one exists.
func (s *SwapService) ExecuteTeacherSwap(ctx context.Context, req dto.ExecuteSwapRequest) (*dto.SwapResult, error) {
	entry, day, err := s.loadEntry(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	desired, err := s.teachers.FindByName(ctx, req.ResourceName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve teacher")
	}
	if desired == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown teacher %q", req.ResourceName))
	}

	plan, err := s.proposeTeacher(ctx, entry, day, desired)
	if err != nil {
		return nil, err
	}

	moved := make(map[string]models.DayScheduleEntry, len(plan.Conflicts)+1)
	var changes []dto.ResourceChange
	for _, conflict := range plan.Conflicts {
		occupant := conflict.Entry
		if occupant.Status == models.DayEntryStatusApproved {
			return nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("occupying entry %s is approved", occupant.ID))
		}
		target := req.Choices[occupant.ID]
		if target == "" {
			if len(conflict.Alternatives) == 0 {
				return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("no substitute teacher for entry %s", occupant.ID))
			}
			target = conflict.Alternatives[0].ResourceID
		}
		changes = append(changes, dto.ResourceChange{
			EntryID:  occupant.ID,
			Resource: dto.SwapResourceTeacher,
			OldID:    occupant.TeacherID,
			NewID:    target,
		})
		moved[occupant.ID] = occupant
	}
	changes = append(changes, dto.ResourceChange{
		EntryID:  entry.ID,
		Resource: dto.SwapResourceTeacher,
		OldID:    entry.TeacherID,
		NewID:    desired.ID,
	})
	moved[entry.ID] = *entry

	if req.DryRun {
		return &dto.SwapResult{Applied: false, Changes: changes}, nil
	}

	if err := s.applyTeacherChanges(ctx, day, changes, moved); err != nil {
		return nil, err
	}

	s.metrics.RecordSwapExecuted(dto.SwapResourceTeacher)
	if s.invalidator != nil {
		s.invalidator.InvalidateDay(ctx, day.ID)
	}
	s.logger.Sugar().Infow("teacher swap executed", "entry_id", entry.ID, "teacher", desired.Name, "changes", len(changes))
	return &dto.SwapResult{Applied: true, Changes: changes}, nil
}

func (s *SwapService) applyTeacherChanges(ctx context.Context, day *models.DaySchedule, changes []dto.ResourceChange, moved map[string]models.DayScheduleEntry) error {
	tx, err := s.days.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin swap transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	added := make(map[string]int)
	freed := make(map[string]int)

	for _, change := range changes {
		occupant := moved[change.EntryID]
		key := change.NewID + "|" + occupant.StartTime
		busy, err := s.days.ListTeacherEntriesAt(ctx, change.NewID, day.Date, occupant.StartTime, occupant.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check target teacher")
		}
		if len(busy)+added[key]-freed[key] > 0 {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("teacher %s no longer free at %s", change.NewID, occupant.StartTime))
		}

		subjectID, err := s.realignSubject(ctx, occupant.GroupID, change.NewID, occupant.SubjectID)
		if err != nil {
			return err
		}

		newTeacherID := change.NewID
		occupant.TeacherID = &newTeacherID
		occupant.SubjectID = subjectID
		occupant.Status = models.DayEntryStatusReplacedManual
		if err := s.days.UpdateEntryResources(ctx, tx, &occupant); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reassign entry")
		}

		added[key]++
		if change.OldID != nil {
			freed[*change.OldID+"|"+occupant.StartTime]++
		}
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit swap")
	}
	return nil
}

// realignSubject maps an entry's subject onto the incoming teacher's link,
// keeping the current subject when the teacher carries it or when no link
// exists.
func (s *SwapService) realignSubject(ctx context.Context, groupID, teacherID, currentSubjectID string) (string, error) {
	links, err := s.links.ListByGroupAndTeacher(ctx, groupID, teacherID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher links")
	}
	if len(links) == 0 {
		return currentSubjectID, nil
	}
	for _, link := range links {
		if link.SubjectID == currentSubjectID {
			return currentSubjectID, nil
		}
	}
	return links[0].SubjectID, nil
}

func (s *SwapService) loadEntry(ctx context.Context, entryID string) (*models.DayScheduleEntry, *models.DaySchedule, error) {
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
		return nil, nil, appErrors.Clone(appErrors.ErrFinalized, "entry belongs to an approved scope")
	}
	return entry, day, nil
}
