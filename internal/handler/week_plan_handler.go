package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/service"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
	"github.com/almas-dev/college-timetable-api/pkg/response"
)

// WeekPlanHandler handles weekly distribution endpoints.
type WeekPlanHandler struct {
	service *service.WeekPlanService
}

// NewWeekPlanHandler constructs a week plan handler.
func NewWeekPlanHandler(svc *service.WeekPlanService) *WeekPlanHandler {
	return &WeekPlanHandler{service: svc}
}

// GenerateWeek places one schedule item's weekly quota into a week.
func (h *WeekPlanHandler) GenerateWeek(c *gin.Context) {
	var req dto.GenerateWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate week payload"))
		return
	}
	result, err := h.service.GenerateWeek(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateSemester queues an asynchronous generation run over a date range.
func (h *WeekPlanHandler) GenerateSemester(c *gin.Context) {
	var req dto.GenerateSemesterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate semester payload"))
		return
	}
	result, err := h.service.GenerateSemester(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

// GetWeek returns the stored weekly plan for the week containing a date.
func (h *WeekPlanHandler) GetWeek(c *gin.Context) {
	details, err := h.service.GetWeek(c.Request.Context(), c.Query("date"), c.Query("group_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// GetRun returns one semester generation run with its stats.
func (h *WeekPlanHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// ListRuns lists a group's semester generation runs.
func (h *WeekPlanHandler) ListRuns(c *gin.Context) {
	runs, err := h.service.ListRuns(c.Request.Context(), c.Query("group_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, nil)
}
