package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/service"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
	"github.com/almas-dev/college-timetable-api/pkg/response"
)

// DayPlanHandler handles day schedule endpoints.
type DayPlanHandler struct {
	service *service.DayPlanService
}

// NewDayPlanHandler constructs a day plan handler.
func NewDayPlanHandler(svc *service.DayPlanService) *DayPlanHandler {
	return &DayPlanHandler{service: svc}
}

// PlanDay materializes one calendar day from the weekly plan or from scratch.
func (h *DayPlanHandler) PlanDay(c *gin.Context) {
	var req dto.PlanDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid plan day payload"))
		return
	}
	result, err := h.service.PlanDay(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GetDay returns the stored schedule for a date.
func (h *DayPlanHandler) GetDay(c *gin.Context) {
	result, err := h.service.GetDay(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// LookupEntries filters one day's entries by resource names.
func (h *DayPlanHandler) LookupEntries(c *gin.Context) {
	req := dto.LookupEntriesRequest{
		Date:        c.Param("date"),
		GroupName:   c.Query("group"),
		TeacherName: c.Query("teacher"),
		RoomName:    c.Query("room"),
		SubjectName: c.Query("subject"),
		StartTime:   c.Query("start_time"),
	}
	entries, err := h.service.LookupEntries(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
