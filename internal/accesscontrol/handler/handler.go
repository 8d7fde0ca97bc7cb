package handler

import (
	"net/http"

	"hr_backoffice/internal/accesscontrol/service"
	"hr_backoffice/internal/accesscontrol/transport"
	"hr_backoffice/platform/httpkit"
	"hr_backoffice/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles identity provisioning requests.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers provisioning routes. Extra middleware (rate
// limiting) runs before the handler.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, middleware ...gin.HandlerFunc) {
	handlers := append(middleware, h.ProvisionIdentity)
	rg.POST("/employees/:id/identity", handlers...)
}

func (h *Handler) ProvisionIdentity(c *gin.Context) {
	employeeID, ok := httpkit.ParamInt64(c, "id")
	if !ok {
		return
	}

	var req transport.ProvisionIdentityRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if httpkit.MustGetPrincipal(c) == nil {
		return
	}

	result, err := h.svc.ProvisionIdentity(c.Request.Context(), employeeID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	status := http.StatusCreated
	if result.PublicationPending {
		status = http.StatusAccepted
	}
	httpkit.JSON(c, status, result)
}
