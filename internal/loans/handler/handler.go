package handler

import (
	"net/http"

	"nplvision_backend/internal/loans/service"
	"nplvision_backend/internal/loans/transport"
	"nplvision_backend/platform/httpkit"
	"nplvision_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for loans and the event write path.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new loans handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the loan routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/documents", h.ListDocuments)
	rg.POST("/:id/documents", h.IngestDocument)
	rg.PUT("/:id/foreclosure", h.UpsertForeclosure)
	rg.GET("/:id/foreclosure", h.GetForeclosure)
	rg.PATCH("/:id/payment", h.PostPayment)
	rg.PATCH("/:id/legal-status", h.UpdateLegalStatus)
	rg.GET("/:id/timeline-risk", h.GetTimelineRisk)
}

// Create handles POST /api/v1/loans
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	loan, err := h.svc.CreateLoan(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, loan)
}

// GetByID handles GET /api/v1/loans/:id
func (h *Handler) GetByID(c *gin.Context) {
	loan, err := h.svc.GetLoan(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, loan)
}

// ListDocuments handles GET /api/v1/loans/:id/documents
func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.svc.ListDocuments(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, docs)
}

// IngestDocument handles POST /api/v1/loans/:id/documents
func (h *Handler) IngestDocument(c *gin.Context) {
	var req transport.IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.IngestDocument(c.Request.Context(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

// UpsertForeclosure handles PUT /api/v1/loans/:id/foreclosure
func (h *Handler) UpsertForeclosure(c *gin.Context) {
	var req transport.UpsertForeclosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpsertForeclosureCase(c.Request.Context(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetForeclosure handles GET /api/v1/loans/:id/foreclosure
func (h *Handler) GetForeclosure(c *gin.Context) {
	fc, err := h.svc.GetForeclosureCase(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, fc)
}

// PostPayment handles PATCH /api/v1/loans/:id/payment
func (h *Handler) PostPayment(c *gin.Context) {
	var req transport.PostPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.PostPayment(c.Request.Context(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// UpdateLegalStatus handles PATCH /api/v1/loans/:id/legal-status
func (h *Handler) UpdateLegalStatus(c *gin.Context) {
	var req transport.UpdateLegalStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateLegalStatus(c.Request.Context(), c.Param("id"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

// GetTimelineRisk handles GET /api/v1/loans/:id/timeline-risk
func (h *Handler) GetTimelineRisk(c *gin.Context) {
	result, err := h.svc.GetTimelineRisk(c.Request.Context(), c.Param("id"))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}
