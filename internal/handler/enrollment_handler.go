package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marovi-edu/tuition-api/internal/models"
	"github.com/marovi-edu/tuition-api/internal/service"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
	"github.com/marovi-edu/tuition-api/pkg/response"
)

// EnrollmentHandler exposes the enrollment workflow endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
	exports     *service.ExportService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, exports *service.ExportService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, exports: exports}
}

// Create godoc
// @Summary Enroll the calling student in courses and packages
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateEnrollmentRequest true "Enrollment items"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	studentID := relatedID(c)
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no student profile"))
		return
	}
	var req service.CreateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.enrollments.Create(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListMine godoc
// @Summary List a student's enrollments
// @Description Students see their own rows; admins pass student_id.
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param student_id query string false "Student ID (admin only)"
// @Success 200 {object} response.Envelope
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMine(c *gin.Context) {
	studentID := relatedID(c)
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleAdmin {
		studentID = c.Query("student_id")
	}
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no student profile"))
		return
	}
	enrollments, err := h.enrollments.ListMine(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollments, nil)
}

// ListAdmin godoc
// @Summary List all enrollments
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) ListAdmin(c *gin.Context) {
	rows, err := h.enrollments.ListAdmin(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpdateStatus godoc
// @Summary Transition an enrollment status
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateEnrollmentStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/status [put]
func (h *EnrollmentHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateEnrollmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	enrollment, err := h.enrollments.UpdateStatus(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// Cancel godoc
// @Summary Cancel an own pending enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Param id path string true "Enrollment ID"
// @Success 204 "No Content"
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Cancel(c *gin.Context) {
	studentID := relatedID(c)
	if studentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no student profile"))
		return
	}
	if err := h.enrollments.Cancel(c.Request.Context(), c.Param("id"), studentID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Roster godoc
// @Summary Accepted students of an offering
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param type query string true "Offering type (course|package)"
// @Param offering_id query string true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/roster [get]
func (h *EnrollmentHandler) Roster(c *gin.Context) {
	typ := models.EnrollmentType(c.Query("type"))
	rows, err := h.enrollments.Roster(c.Request.Context(), typ, c.Query("offering_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ExportRoster godoc
// @Summary Download an offering roster as CSV or PDF
// @Tags Enrollments
// @Produce octet-stream
// @Security BearerAuth
// @Param type query string true "Offering type (course|package)"
// @Param offering_id query string true "Offering ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /enrollments/roster/export [get]
func (h *EnrollmentHandler) ExportRoster(c *gin.Context) {
	typ := models.EnrollmentType(c.Query("type"))
	file, err := h.exports.Roster(c.Request.Context(), typ, c.Query("offering_id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
