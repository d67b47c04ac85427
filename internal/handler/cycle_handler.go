package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marovi-edu/tuition-api/internal/service"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
	"github.com/marovi-edu/tuition-api/pkg/response"
)

// CycleHandler exposes academic cycle endpoints.
type CycleHandler struct {
	cycles *service.CycleService
}

// NewCycleHandler constructs CycleHandler.
func NewCycleHandler(cycles *service.CycleService) *CycleHandler {
	return &CycleHandler{cycles: cycles}
}

// List godoc
// @Summary List cycles
// @Tags Cycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /cycles [get]
func (h *CycleHandler) List(c *gin.Context) {
	cycles, err := h.cycles.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycles, nil)
}

// Active godoc
// @Summary List cycles accepting enrollments
// @Tags Cycles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /cycles/active [get]
func (h *CycleHandler) Active(c *gin.Context) {
	cycles, err := h.cycles.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycles, nil)
}

// Get godoc
// @Summary Get cycle detail
// @Tags Cycles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cycle ID"
// @Success 200 {object} response.Envelope
// @Router /cycles/{id} [get]
func (h *CycleHandler) Get(c *gin.Context) {
	cycle, err := h.cycles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycle, nil)
}

// Create godoc
// @Summary Create cycle
// @Tags Cycles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CycleRequest true "Cycle payload"
// @Success 201 {object} response.Envelope
// @Router /cycles [post]
func (h *CycleHandler) Create(c *gin.Context) {
	var req service.CycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cycle, err := h.cycles.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cycle)
}

// Update godoc
// @Summary Update cycle
// @Tags Cycles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Cycle ID"
// @Param payload body service.CycleRequest true "Cycle payload"
// @Success 200 {object} response.Envelope
// @Router /cycles/{id} [put]
func (h *CycleHandler) Update(c *gin.Context) {
	var req service.CycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cycle, err := h.cycles.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cycle, nil)
}

// Delete godoc
// @Summary Delete cycle
// @Tags Cycles
// @Security BearerAuth
// @Param id path string true "Cycle ID"
// @Success 204 "No Content"
// @Router /cycles/{id} [delete]
func (h *CycleHandler) Delete(c *gin.Context) {
	if err := h.cycles.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
