package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/almas-dev/college-timetable-api/internal/dto"
	"github.com/almas-dev/college-timetable-api/internal/service"
	appErrors "github.com/almas-dev/college-timetable-api/pkg/errors"
	"github.com/almas-dev/college-timetable-api/pkg/response"
)

// SwapHandler handles room and teacher swap endpoints.
type SwapHandler struct {
	service *service.SwapService
}

// NewSwapHandler constructs a swap handler.
func NewSwapHandler(svc *service.SwapService) *SwapHandler {
	return &SwapHandler{service: svc}
}

// ProposeRoomSwap plans how a desired room could be freed for an entry.
func (h *SwapHandler) ProposeRoomSwap(c *gin.Context) {
	room := strings.TrimSpace(c.Query("room"))
	if room == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "room query parameter is required"))
		return
	}
	plan, err := h.service.ProposeRoomSwap(c.Request.Context(), c.Param("id"), room)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// ExecuteRoomSwap applies (or dry-runs) a room swap change-set.
func (h *SwapHandler) ExecuteRoomSwap(c *gin.Context) {
	req, ok := h.bindSwapRequest(c)
	if !ok {
		return
	}
	result, err := h.service.ExecuteRoomSwap(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ProposeTeacherSwap plans how a desired teacher could be freed for an entry.
func (h *SwapHandler) ProposeTeacherSwap(c *gin.Context) {
	teacher := strings.TrimSpace(c.Query("teacher"))
	if teacher == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "teacher query parameter is required"))
		return
	}
	plan, err := h.service.ProposeTeacherSwap(c.Request.Context(), c.Param("id"), teacher)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// ExecuteTeacherSwap applies (or dry-runs) a teacher swap change-set.
func (h *SwapHandler) ExecuteTeacherSwap(c *gin.Context) {
	req, ok := h.bindSwapRequest(c)
	if !ok {
		return
	}
	result, err := h.service.ExecuteTeacherSwap(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func (h *SwapHandler) bindSwapRequest(c *gin.Context) (dto.ExecuteSwapRequest, bool) {
	var req dto.ExecuteSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid swap payload"))
		return req, false
	}
	// The entry comes from the path so a payload cannot redirect the swap.
	req.EntryID = c.Param("id")
	return req, true
}
