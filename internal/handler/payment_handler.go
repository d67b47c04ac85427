package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marovi-edu/tuition-api/internal/models"
	"github.com/marovi-edu/tuition-api/internal/service"
	appErrors "github.com/marovi-edu/tuition-api/pkg/errors"
	"github.com/marovi-edu/tuition-api/pkg/response"
)

// maxVoucherSize caps voucher uploads at 5 MiB.
const maxVoucherSize = 5 << 20

// PaymentHandler exposes the installment workflow endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// UploadVoucher godoc
// @Summary Upload a proof-of-payment voucher for an installment
// @Tags Payments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Param voucher formData file true "Voucher file (image or PDF)"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/voucher [post]
func (h *PaymentHandler) UploadVoucher(c *gin.Context) {
	claims := claimsFromContext(c)
	asAdmin := claims != nil && claims.Role == models.RoleAdmin
	studentID := relatedID(c)
	if studentID == "" && !asAdmin {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no student profile"))
		return
	}

	fileHeader, err := c.FormFile("voucher")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "voucher file is required"))
		return
	}
	if fileHeader.Size > maxVoucherSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "voucher file exceeds the size limit"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read voucher file"))
		return
	}
	defer file.Close() //nolint:errcheck

	installment, err := h.payments.UploadVoucher(c.Request.Context(), c.Param("id"), studentID, asAdmin, fileHeader.Filename, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, installment, nil)
}

// Approve godoc
// @Summary Approve an installment voucher
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/approve [put]
func (h *PaymentHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.payments.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject an installment voucher
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Param payload body service.RejectPaymentRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/reject [put]
func (h *PaymentHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	installment, err := h.payments.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, installment, nil)
}

// ListAdmin godoc
// @Summary List installments for administration
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, paid, overdue or rejected"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) ListAdmin(c *gin.Context) {
	rows, err := h.payments.ListAdmin(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
