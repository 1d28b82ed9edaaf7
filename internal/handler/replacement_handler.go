package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/service"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
	"github.com/almas-dev/college-timetable-api/pkg/response"
)

// ReplacementHandler handles teacher replacement and entry edit endpoints.
type ReplacementHandler struct {
	service *service.ReplacementService
}

// NewReplacementHandler constructs a replacement handler.
func NewReplacementHandler(svc *service.ReplacementService) *ReplacementHandler {
	return &ReplacementHandler{service: svc}
}

// ReplaceVacant sweeps a date and substitutes linked teachers into vacant
// slots.
func (h *ReplacementHandler) ReplaceVacant(c *gin.Context) {
	result, err := h.service.ReplaceVacantAuto(c.Request.Context(), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ReplaceTeacher reassigns one entry to a named teacher.
func (h *ReplacementHandler) ReplaceTeacher(c *gin.Context) {
	var req dto.ReplaceTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid replace teacher payload"))
		return
	}
	entry, err := h.service.ReplaceEntryTeacher(c.Request.Context(), c.Param("id"), req.TeacherName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// UpdateEntry edits one entry's resources by name.
func (h *ReplacementHandler) UpdateEntry(c *gin.Context) {
	var req dto.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid entry update payload"))
		return
	}
	entry, err := h.service.UpdateEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// BulkUpdate applies many entry edits in one call.
func (h *ReplacementHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk update payload"))
		return
	}
	// The date comes from the path so a payload cannot retarget the day.
	req.Date = c.Param("date")
	result, err := h.service.BulkUpdateEntries(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
