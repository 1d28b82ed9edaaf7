package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/models"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
)

type groupStore interface {
	FindByName(ctx context.Context, name string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	List(ctx context.Context) ([]models.Group, error)
}

type subjectStore interface {
	FindByName(ctx context.Context, name string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	List(ctx context.Context) ([]models.Subject, error)
}

type teacherStore interface {
	FindByName(ctx context.Context, name string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	List(ctx context.Context) ([]models.Teacher, error)
}

type roomStore interface {
	FindByName(ctx context.Context, name string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	List(ctx context.Context) ([]models.Room, error)
}

type scheduleItemStore interface {
	Create(ctx context.Context, item *models.ScheduleItem) error
	FindByID(ctx context.Context, id string) (*models.ScheduleItem, error)
	ListByGroup(ctx context.Context, groupID string) ([]models.ScheduleItem, error)
	List(ctx context.Context) ([]models.ScheduleItem, error)
	AddTeacher(ctx context.Context, assignment *models.ScheduleItemTeacher) error
	ListTeachers(ctx context.Context, itemID string) ([]models.ScheduleItemTeacher, error)
}

type linkStore interface {
	Create(ctx context.Context, link *models.GroupTeacherSubject) error
	ListByGroup(ctx context.Context, groupID string) ([]models.GroupTeacherSubject, error)
	Delete(ctx context.Context, id string) error
}

type progressReader interface {
	ListByItem(ctx context.Context, itemID string) ([]models.SubjectProgress, error)
	TotalHours(ctx context.Context, itemID string, until time.Time) (float64, error)
}

type calendarStore interface {
	CreatePractice(ctx context.Context, practice *models.Practice) error
	ListPracticesByGroup(ctx context.Context, groupID string) ([]models.Practice, error)
	DeletePractice(ctx context.Context, id string) error
	CreateHoliday(ctx context.Context, holiday *models.Holiday) error
	ListHolidays(ctx context.Context) ([]models.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

// DictionaryService manages the reference data every planner depends on:
// groups, subjects, teachers, rooms, schedule items, teacher links, practices
// and holidays. Name lookups are get-or-create so imports stay idempotent.
type DictionaryService struct {
	groups   groupStore
	subjects subjectStore
	teachers teacherStore
	rooms    roomStore
	items    scheduleItemStore
	links    linkStore
	calendar calendarStore
	progress progressReader
	logger   *zap.Logger
}

// NewDictionaryService wires dictionary dependencies.
func NewDictionaryService(
	groups groupStore,
	subjects subjectStore,
	teachers teacherStore,
	rooms roomStore,
	items scheduleItemStore,
	links linkStore,
	calendar calendarStore,
	progress progressReader,
	logger *zap.Logger,
) *DictionaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DictionaryService{
		groups:   groups,
		subjects: subjects,
		teachers: teachers,
		rooms:    rooms,
		items:    items,
		links:    links,
		calendar: calendar,
		progress: progress,
		logger:   logger,
	}
}

// validateName rejects empty names and names containing '/', which breaks
// path-style API routes.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "name must not be empty")
	}
	if strings.Contains(name, "/") {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("name %q must not contain '/'", name))
	}
	return name, nil
}

// GetOrCreateGroup resolves a group by name, creating it when absent.
func (s *DictionaryService) GetOrCreateGroup(ctx context.Context, name string) (*models.Group, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	existing, err := s.groups.FindByName(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up group")
	}
	if existing != nil {
		return existing, nil
	}
	group := &models.Group{Name: name}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// GetOrCreateSubject resolves a subject by name, creating it when absent.
func (s *DictionaryService) GetOrCreateSubject(ctx context.Context, name string) (*models.Subject, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	existing, err := s.subjects.FindByName(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up subject")
	}
	if existing != nil {
		return existing, nil
	}
	subject := &models.Subject{Name: name}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// GetOrCreateTeacher resolves a teacher by name, creating it when absent.
// Placeholder names are allowed here; the planners treat them as vacant.
func (s *DictionaryService) GetOrCreateTeacher(ctx context.Context, name string) (*models.Teacher, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	existing, err := s.teachers.FindByName(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up teacher")
	}
	if existing != nil {
		return existing, nil
	}
	teacher := &models.Teacher{Name: name}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// GetOrCreateRoom resolves a room by name, creating it with the given capacity
// when absent. An existing room keeps its stored capacity.
func (s *DictionaryService) GetOrCreateRoom(ctx context.Context, name string, capacity int) (*models.Room, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		capacity = 1
	}
	existing, err := s.rooms.FindByName(ctx, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up room")
	}
	if existing != nil {
		return existing, nil
	}
	room := &models.Room{Name: name, Capacity: capacity}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	return room, nil
}

// ListGroups returns all groups.
func (s *DictionaryService) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}

// ListSubjects returns all subjects.
func (s *DictionaryService) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.subjects.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// ListTeachers returns all teachers.
func (s *DictionaryService) ListTeachers(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// ListRooms returns all rooms.
func (s *DictionaryService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// CreateScheduleItem registers a recurring teaching load, resolving all four
// dictionary names with get-or-create. WeekType defaults to balanced.
func (s *DictionaryService) CreateScheduleItem(ctx context.Context, req dto.CreateScheduleItemRequest) (*models.ScheduleItem, error) {
	weekType := models.WeekTypeBalanced
	if req.WeekType != "" {
		weekType = models.WeekType(req.WeekType)
		if !weekType.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown week type %q", req.WeekType))
		}
	}
	if req.WeeklyHours < 0 || req.TotalHours < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hours must not be negative")
	}

	group, err := s.GetOrCreateGroup(ctx, req.GroupName)
	if err != nil {
		return nil, err
	}
	subject, err := s.GetOrCreateSubject(ctx, req.SubjectName)
	if err != nil {
		return nil, err
	}
	teacher, err := s.GetOrCreateTeacher(ctx, req.TeacherName)
	if err != nil {
		return nil, err
	}
	room, err := s.GetOrCreateRoom(ctx, req.RoomName, 0)
	if err != nil {
		return nil, err
	}

	item := &models.ScheduleItem{
		GroupID:      group.ID,
		SubjectID:    subject.ID,
		TeacherID:    teacher.ID,
		RoomID:       room.ID,
		TotalHours:   req.TotalHours,
		WeeklyHours:  req.WeeklyHours,
		WeekType:     weekType,
		TeacherSlots: 1,
		RoomSlots:    1,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule item")
	}
	primary := &models.ScheduleItemTeacher{
		ScheduleItemID: item.ID,
		TeacherID:      teacher.ID,
		SlotNumber:     1,
		IsPrimary:      true,
	}
	if err := s.items.AddTeacher(ctx, primary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record primary teacher")
	}
	s.logger.Sugar().Infow("schedule item created", "group", group.Name, "subject", subject.Name, "weekly_hours", req.WeeklyHours)
	return item, nil
}

// AddScheduleItemTeacher assigns a co-teacher to an item's next slot.
func (s *DictionaryService) AddScheduleItemTeacher(ctx context.Context, itemID, teacherName string) (*models.ScheduleItemTeacher, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule item")
	}
	if item == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule item not found")
	}
	teacher, err := s.GetOrCreateTeacher(ctx, teacherName)
	if err != nil {
		return nil, err
	}
	existing, err := s.items.ListTeachers(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher assignments")
	}
	for _, assignment := range existing {
		if assignment.TeacherID == teacher.ID {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %q is already assigned", teacher.Name))
		}
	}
	assignment := &models.ScheduleItemTeacher{
		ScheduleItemID: itemID,
		TeacherID:      teacher.ID,
		SlotNumber:     len(existing) + 1,
		IsPrimary:      len(existing) == 0,
	}
	if err := s.items.AddTeacher(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add teacher assignment")
	}
	return assignment, nil
}

// ListScheduleItemTeachers returns an item's teacher assignments.
func (s *DictionaryService) ListScheduleItemTeachers(ctx context.Context, itemID string) ([]models.ScheduleItemTeacher, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule item")
	}
	if item == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule item not found")
	}
	assignments, err := s.items.ListTeachers(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher assignments")
	}
	return assignments, nil
}

// ListScheduleItems returns items for one group, or all items when groupName
// is empty.
func (s *DictionaryService) ListScheduleItems(ctx context.Context, groupName string) ([]models.ScheduleItem, error) {
	if groupName == "" {
		items, err := s.items.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule items")
		}
		return items, nil
	}
	group, err := s.groups.FindByName(ctx, groupName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up group")
	}
	if group == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown group %q", groupName))
	}
	items, err := s.items.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule items")
	}
	return items, nil
}

// GetScheduleItemProgress reports how many of an item's total hours approved
// days have already consumed.
func (s *DictionaryService) GetScheduleItemProgress(ctx context.Context, itemID string) (*dto.ScheduleItemProgress, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule item")
	}
	if item == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule item not found")
	}
	records, err := s.progress.ListByItem(ctx, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list progress records")
	}
	taught, err := s.progress.TotalHours(ctx, itemID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum taught hours")
	}
	remaining := item.TotalHours - taught
	if remaining < 0 {
		remaining = 0
	}
	return &dto.ScheduleItemProgress{
		Item:           item,
		Records:        records,
		HoursTaught:    taught,
		HoursRemaining: remaining,
	}, nil
}

// CreateLink binds a teacher to a group and subject for substitute lookups.
func (s *DictionaryService) CreateLink(ctx context.Context, req dto.CreateLinkRequest) (*models.GroupTeacherSubject, error) {
	group, err := s.GetOrCreateGroup(ctx, req.GroupName)
	if err != nil {
		return nil, err
	}
	teacher, err := s.GetOrCreateTeacher(ctx, req.TeacherName)
	if err != nil {
		return nil, err
	}
	subject, err := s.GetOrCreateSubject(ctx, req.SubjectName)
	if err != nil {
		return nil, err
	}
	link := &models.GroupTeacherSubject{
		GroupID:   group.ID,
		TeacherID: teacher.ID,
		SubjectID: subject.ID,
	}
	if err := s.links.Create(ctx, link); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create link")
	}
	return link, nil
}

// ListLinks returns the teacher links for one group.
func (s *DictionaryService) ListLinks(ctx context.Context, groupName string) ([]models.GroupTeacherSubject, error) {
	group, err := s.groups.FindByName(ctx, groupName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up group")
	}
	if group == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown group %q", groupName))
	}
	links, err := s.links.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list links")
	}
	return links, nil
}

// DeleteLink removes a teacher link.
func (s *DictionaryService) DeleteLink(ctx context.Context, id string) error {
	if err := s.links.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete link")
	}
	return nil
}

// CreatePractice suppresses scheduling for a group within a date range.
func (s *DictionaryService) CreatePractice(ctx context.Context, req dto.CreatePracticeRequest) (*models.Practice, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	group, err := s.GetOrCreateGroup(ctx, req.GroupName)
	if err != nil {
		return nil, err
	}
	practice := &models.Practice{
		GroupID:   group.ID,
		StartDate: start,
		EndDate:   end,
		Name:      req.Name,
	}
	if err := s.calendar.CreatePractice(ctx, practice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create practice")
	}
	return practice, nil
}

// ListPractices returns practices for one group.
func (s *DictionaryService) ListPractices(ctx context.Context, groupName string) ([]models.Practice, error) {
	group, err := s.groups.FindByName(ctx, groupName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up group")
	}
	if group == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown group %q", groupName))
	}
	practices, err := s.calendar.ListPracticesByGroup(ctx, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list practices")
	}
	return practices, nil
}

// DeletePractice removes a practice window.
func (s *DictionaryService) DeletePractice(ctx context.Context, id string) error {
	if err := s.calendar.DeletePractice(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete practice")
	}
	return nil
}

// CreateHoliday suppresses scheduling globally within a date range.
func (s *DictionaryService) CreateHoliday(ctx context.Context, req dto.CreateHolidayRequest) (*models.Holiday, error) {
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	name, err := validateName(req.Name)
	if err != nil {
		return nil, err
	}
	holiday := &models.Holiday{
		StartDate: start,
		EndDate:   end,
		Name:      name,
	}
	if err := s.calendar.CreateHoliday(ctx, holiday); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create holiday")
	}
	return holiday, nil
}

// ListHolidays returns all holiday windows.
func (s *DictionaryService) ListHolidays(ctx context.Context) ([]models.Holiday, error) {
	holidays, err := s.calendar.ListHolidays(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holidays")
	}
	return holidays, nil
}

// DeleteHoliday removes a holiday window.
func (s *DictionaryService) DeleteHoliday(ctx context.Context, id string) error {
	if err := s.calendar.DeleteHoliday(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete holiday")
	}
	return nil
}

func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid start date %q, expected YYYY-MM-DD", startDate))
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid end date %q, expected YYYY-MM-DD", endDate))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	return start, end, nil
}
