package handler

import (
	"net/http"

	"hr_backoffice/internal/organization/service"
	"hr_backoffice/internal/organization/transport"
	"hr_backoffice/platform/httpkit"
	"hr_backoffice/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for the organization structure.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new organization handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers scoped organization routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/companies", h.ListCompanies)
	rg.GET("/departments", h.ListDepartments)
	rg.POST("/departments", h.CreateDepartment)
	rg.GET("/cost-centers", h.ListCostCenters)
	rg.POST("/cost-centers", h.CreateCostCenter)
}

// RegisterAdminRoutes registers global-admin routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/companies", h.CreateCompany)
}

func (h *Handler) bindSearch(c *gin.Context) (transport.SearchRequest, bool) {
	var req transport.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return req, false
	}
	return req, true
}

func bindBody[T any](h *Handler, c *gin.Context) (T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return req, false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return req, false
	}
	return req, true
}

func (h *Handler) CreateCompany(c *gin.Context) {
	req, ok := bindBody[transport.CreateCompanyRequest](h, c)
	if !ok {
		return
	}
	result, err := h.svc.CreateCompany(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) ListCompanies(c *gin.Context) {
	req, ok := h.bindSearch(c)
	if !ok {
		return
	}
	result, err := h.svc.ListCompanies(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

func (h *Handler) CreateDepartment(c *gin.Context) {
	req, ok := bindBody[transport.CreateDepartmentRequest](h, c)
	if !ok {
		return
	}
	result, err := h.svc.CreateDepartment(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) ListDepartments(c *gin.Context) {
	req, ok := h.bindSearch(c)
	if !ok {
		return
	}
	result, err := h.svc.ListDepartments(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}

func (h *Handler) CreateCostCenter(c *gin.Context) {
	req, ok := bindBody[transport.CreateCostCenterRequest](h, c)
	if !ok {
		return
	}
	result, err := h.svc.CreateCostCenter(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, result)
}

func (h *Handler) ListCostCenters(c *gin.Context) {
	req, ok := h.bindSearch(c)
	if !ok {
		return
	}
	result, err := h.svc.ListCostCenters(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": result})
}
