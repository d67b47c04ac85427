package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marovi-edu/tuition-api/internal/service"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
	"github.com/marovi-edu/tuition-api/pkg/response"
)

// OfferingHandler exposes per-cycle course and package offerings.
type OfferingHandler struct {
	offerings *service.OfferingService
	schedules *service.ScheduleService
}

// NewOfferingHandler constructs OfferingHandler.
func NewOfferingHandler(offerings *service.OfferingService, schedules *service.ScheduleService) *OfferingHandler {
	return &OfferingHandler{offerings: offerings, schedules: schedules}
}

// ListCourseOfferings godoc
// @Summary List course offerings
// @Tags Offerings
// @Produce json
// @Security BearerAuth
// @Param cycle_id query string false "Filter by cycle"
// @Success 200 {object} response.Envelope
// @Router /course-offerings [get]
func (h *OfferingHandler) ListCourseOfferings(c *gin.Context) {
	offerings, err := h.offerings.ListCourseOfferings(c.Request.Context(), c.Query("cycle_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// GetCourseOffering godoc
// @Summary Get course offering detail
// @Tags Offerings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course offering ID"
// @Success 200 {object} response.Envelope
// @Router /course-offerings/{id} [get]
func (h *OfferingHandler) GetCourseOffering(c *gin.Context) {
	offering, err := h.offerings.GetCourseOffering(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// CreateCourseOffering godoc
// @Summary Create course offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CourseOfferingRequest true "Course offering payload"
// @Success 201 {object} response.Envelope
// @Router /course-offerings [post]
func (h *OfferingHandler) CreateCourseOffering(c *gin.Context) {
	var req service.CourseOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.CreateCourseOffering(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// UpdateCourseOffering godoc
// @Summary Update course offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course offering ID"
// @Param payload body service.CourseOfferingRequest true "Course offering payload"
// @Success 200 {object} response.Envelope
// @Router /course-offerings/{id} [put]
func (h *OfferingHandler) UpdateCourseOffering(c *gin.Context) {
	var req service.CourseOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.UpdateCourseOffering(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// DeleteCourseOffering godoc
// @Summary Delete course offering
// @Tags Offerings
// @Security BearerAuth
// @Param id path string true "Course offering ID"
// @Success 204 "No Content"
// @Router /course-offerings/{id} [delete]
func (h *OfferingHandler) DeleteCourseOffering(c *gin.Context) {
	if err := h.offerings.DeleteCourseOffering(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CourseOfferingSchedules godoc
// @Summary Schedules of a course offering
// @Tags Offerings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course offering ID"
// @Success 200 {object} response.Envelope
// @Router /course-offerings/{id}/schedules [get]
func (h *OfferingHandler) CourseOfferingSchedules(c *gin.Context) {
	schedules, err := h.schedules.ListByOffering(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// ListPackageOfferings godoc
// @Summary List package offerings
// @Tags Offerings
// @Produce json
// @Security BearerAuth
// @Param cycle_id query string false "Filter by cycle"
// @Success 200 {object} response.Envelope
// @Router /package-offerings [get]
func (h *OfferingHandler) ListPackageOfferings(c *gin.Context) {
	offerings, err := h.offerings.ListPackageOfferings(c.Request.Context(), c.Query("cycle_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// GetPackageOffering godoc
// @Summary Get package offering detail with bundled course offerings
// @Tags Offerings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package offering ID"
// @Success 200 {object} response.Envelope
// @Router /package-offerings/{id} [get]
func (h *OfferingHandler) GetPackageOffering(c *gin.Context) {
	offering, bundled, err := h.offerings.GetPackageOffering(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil, map[string]interface{}{"course_offering_ids": bundled})
}

// CreatePackageOffering godoc
// @Summary Create package offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PackageOfferingRequest true "Package offering payload"
// @Success 201 {object} response.Envelope
// @Router /package-offerings [post]
func (h *OfferingHandler) CreatePackageOffering(c *gin.Context) {
	var req service.PackageOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.CreatePackageOffering(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// UpdatePackageOffering godoc
// @Summary Update package offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package offering ID"
// @Param payload body service.PackageOfferingRequest true "Package offering payload"
// @Success 200 {object} response.Envelope
// @Router /package-offerings/{id} [put]
func (h *OfferingHandler) UpdatePackageOffering(c *gin.Context) {
	var req service.PackageOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	offering, err := h.offerings.UpdatePackageOffering(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// DeletePackageOffering godoc
// @Summary Delete package offering
// @Tags Offerings
// @Security BearerAuth
// @Param id path string true "Package offering ID"
// @Success 204 "No Content"
// @Router /package-offerings/{id} [delete]
func (h *OfferingHandler) DeletePackageOffering(c *gin.Context) {
	if err := h.offerings.DeletePackageOffering(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MapCourse godoc
// @Summary Map a course offering into a package offering
// @Tags Offerings
// @Accept json
// @Security BearerAuth
// @Param id path string true "Package offering ID"
// @Param payload body service.MapOfferingCourseRequest true "Mapping payload"
// @Success 204 "No Content"
// @Router /package-offerings/{id}/courses [post]
func (h *OfferingHandler) MapCourse(c *gin.Context) {
	var req service.MapOfferingCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.offerings.MapCourse(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MappedCourses godoc
// @Summary List course offerings mapped into a package offering
// @Tags Offerings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package offering ID"
// @Success 200 {object} response.Envelope
// @Router /package-offerings/{id}/courses [get]
func (h *OfferingHandler) MappedCourses(c *gin.Context) {
	ids, err := h.offerings.MappedCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}

// UnmapCourse godoc
// @Summary Remove a course offering from a package offering
// @Tags Offerings
// @Security BearerAuth
// @Param id path string true "Package offering ID"
// @Param courseOfferingId path string true "Course offering ID"
// @Success 204 "No Content"
// @Router /package-offerings/{id}/courses/{courseOfferingId} [delete]
func (h *OfferingHandler) UnmapCourse(c *gin.Context) {
	if err := h.offerings.UnmapCourse(c.Request.Context(), c.Param("id"), c.Param("courseOfferingId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
