package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marovi-edu/tuition-api/internal/service"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
	"github.com/marovi-edu/tuition-api/pkg/response"
)

// PackageHandler exposes catalog package endpoints.
type PackageHandler struct {
	packages *service.PackageService
}

// NewPackageHandler constructs PackageHandler.
func NewPackageHandler(packages *service.PackageService) *PackageHandler {
	return &PackageHandler{packages: packages}
}

// List godoc
// @Summary List packages
// @Tags Packages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /packages [get]
func (h *PackageHandler) List(c *gin.Context) {
	packages, err := h.packages.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, packages, nil)
}

// Get godoc
// @Summary Get package detail
// @Tags Packages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 200 {object} response.Envelope
// @Router /packages/{id} [get]
func (h *PackageHandler) Get(c *gin.Context) {
	pkg, err := h.packages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pkg, nil)
}

// Create godoc
// @Summary Create package
// @Tags Packages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.PackageRequest true "Package payload"
// @Success 201 {object} response.Envelope
// @Router /packages [post]
func (h *PackageHandler) Create(c *gin.Context) {
	var req service.PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pkg, err := h.packages.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pkg)
}

// Update godoc
// @Summary Update package
// @Tags Packages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Param payload body service.PackageRequest true "Package payload"
// @Success 200 {object} response.Envelope
// @Router /packages/{id} [put]
func (h *PackageHandler) Update(c *gin.Context) {
	var req service.PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pkg, err := h.packages.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pkg, nil)
}

// Delete godoc
// @Summary Delete package
// @Tags Packages
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 204 "No Content"
// @Router /packages/{id} [delete]
func (h *PackageHandler) Delete(c *gin.Context) {
	if err := h.packages.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddCourse godoc
// @Summary Add a course to a package
// @Tags Packages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Param payload body service.PackageCourseRequest true "Course link payload"
// @Success 201 {object} response.Envelope
// @Router /packages/{id}/courses [post]
func (h *PackageHandler) AddCourse(c *gin.Context) {
	var req service.PackageCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.packages.AddCourse(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"package_id": c.Param("id"), "course_id": req.CourseID})
}

// RemoveCourse godoc
// @Summary Remove a course from a package
// @Tags Packages
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Param courseId path string true "Course ID"
// @Success 204 "No Content"
// @Router /packages/{id}/courses/{courseId} [delete]
func (h *PackageHandler) RemoveCourse(c *gin.Context) {
	if err := h.packages.RemoveCourse(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
