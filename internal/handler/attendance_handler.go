package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marovi-edu/tuition-api/internal/models"
	"github.com/marovi-edu/tuition-api/internal/service"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
	"github.com/marovi-edu/tuition-api/pkg/response"
)

// AttendanceHandler exposes attendance endpoints for teachers.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

func teacherIDFromContext(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role != models.RoleTeacher || claims.RelatedID == nil {
		return "", false
	}
	return *claims.RelatedID, true
}

// Mark godoc
// @Summary Mark today's attendance for a student on a schedule
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher ID"
// @Param payload body service.MarkAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	teacherID, ok := teacherIDFromContext(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no teacher profile"))
		return
	}
	if c.Param("id") != teacherID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "token does not match the teacher"))
		return
	}
	var req service.MarkAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.attendance.Mark(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List attendance marks on a schedule
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	teacherID, ok := teacherIDFromContext(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no teacher profile"))
		return
	}
	marks, err := h.attendance.ListBySchedule(c.Request.Context(), c.Param("id"), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}
