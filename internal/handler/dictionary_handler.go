package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/service"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
	"github.com/almas-dev/college-timetable-api/pkg/response"
)

// DictionaryHandler handles catalog endpoints for groups, subjects, teachers,
// rooms, schedule items, links, practices and holidays.
type DictionaryHandler struct {
	service *service.DictionaryService
}

// NewDictionaryHandler constructs a dictionary handler.
func NewDictionaryHandler(svc *service.DictionaryService) *DictionaryHandler {
	return &DictionaryHandler{service: svc}
}

func (h *DictionaryHandler) bindName(c *gin.Context) (string, bool) {
	var req dto.NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return "", false
	}
	return req.Name, true
}

// CreateGroup resolves or creates a group by name.
func (h *DictionaryHandler) CreateGroup(c *gin.Context) {
	name, ok := h.bindName(c)
	if !ok {
		return
	}
	group, err := h.service.GetOrCreateGroup(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// ListGroups lists all groups.
func (h *DictionaryHandler) ListGroups(c *gin.Context) {
	groups, err := h.service.ListGroups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// CreateSubject resolves or creates a subject by name.
func (h *DictionaryHandler) CreateSubject(c *gin.Context) {
	name, ok := h.bindName(c)
	if !ok {
		return
	}
	subject, err := h.service.GetOrCreateSubject(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// ListSubjects lists all subjects.
func (h *DictionaryHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.service.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// CreateTeacher resolves or creates a teacher by name.
func (h *DictionaryHandler) CreateTeacher(c *gin.Context) {
	name, ok := h.bindName(c)
	if !ok {
		return
	}
	teacher, err := h.service.GetOrCreateTeacher(c.Request.Context(), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

// ListTeachers lists all teachers.
func (h *DictionaryHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// CreateRoom resolves or creates a room by name.
func (h *DictionaryHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room payload"))
		return
	}
	room, err := h.service.GetOrCreateRoom(c.Request.Context(), req.Name, req.Capacity)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// ListRooms lists all rooms.
func (h *DictionaryHandler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// CreateScheduleItem registers a recurring teaching load by names.
func (h *DictionaryHandler) CreateScheduleItem(c *gin.Context) {
	var req dto.CreateScheduleItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule item payload"))
		return
	}
	item, err := h.service.CreateScheduleItem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// ListScheduleItems lists schedule items, optionally for one group.
func (h *DictionaryHandler) ListScheduleItems(c *gin.Context) {
	items, err := h.service.ListScheduleItems(c.Request.Context(), c.Query("group"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// AddScheduleItemTeacher assigns a co-teacher to an item.
func (h *DictionaryHandler) AddScheduleItemTeacher(c *gin.Context) {
	name, ok := h.bindName(c)
	if !ok {
		return
	}
	assignment, err := h.service.AddScheduleItemTeacher(c.Request.Context(), c.Param("id"), name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// ListScheduleItemTeachers lists an item's teacher assignments.
func (h *DictionaryHandler) ListScheduleItemTeachers(c *gin.Context) {
	assignments, err := h.service.ListScheduleItemTeachers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// ScheduleItemProgress reports taught versus remaining hours for one item.
func (h *DictionaryHandler) ScheduleItemProgress(c *gin.Context) {
	report, err := h.service.GetScheduleItemProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// CreateLink binds a teacher to a group and subject.
func (h *DictionaryHandler) CreateLink(c *gin.Context) {
	var req dto.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid link payload"))
		return
	}
	link, err := h.service.CreateLink(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// ListLinks lists links, optionally for one group.
func (h *DictionaryHandler) ListLinks(c *gin.Context) {
	links, err := h.service.ListLinks(c.Request.Context(), c.Query("group"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// DeleteLink removes a link by id.
func (h *DictionaryHandler) DeleteLink(c *gin.Context) {
	if err := h.service.DeleteLink(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreatePractice suppresses scheduling for a group in a date range.
func (h *DictionaryHandler) CreatePractice(c *gin.Context) {
	var req dto.CreatePracticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid practice payload"))
		return
	}
	practice, err := h.service.CreatePractice(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, practice)
}

// ListPractices lists practices, optionally for one group.
func (h *DictionaryHandler) ListPractices(c *gin.Context) {
	practices, err := h.service.ListPractices(c.Request.Context(), c.Query("group"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, practices, nil)
}

// DeletePractice removes a practice by id.
func (h *DictionaryHandler) DeletePractice(c *gin.Context) {
	if err := h.service.DeletePractice(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateHoliday suppresses scheduling globally in a date range.
func (h *DictionaryHandler) CreateHoliday(c *gin.Context) {
	var req dto.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	holiday, err := h.service.CreateHoliday(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, holiday)
}

// ListHolidays lists all holidays.
func (h *DictionaryHandler) ListHolidays(c *gin.Context) {
	holidays, err := h.service.ListHolidays(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holidays, nil)
}

// DeleteHoliday removes a holiday by id.
func (h *DictionaryHandler) DeleteHoliday(c *gin.Context) {
	if err := h.service.DeleteHoliday(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
