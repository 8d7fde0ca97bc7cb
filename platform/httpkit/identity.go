package httpkit

import (
	"net/http"

	"hr_backoffice/platform/security"

	"github.com/gin-gonic/gin"
)

// GetPrincipal extracts the security context of the request.
// Returns the anonymous principal if the request is not authenticated.
func GetPrincipal(c *gin.Context) security.Context {
	return security.FromContext(c.Request.Context())
}

// MustGetPrincipal returns the request principal, or aborts with 401 and
// returns nil when the request carries none.
func MustGetPrincipal(c *gin.Context) security.Context {
	sc := GetPrincipal(c)
	if sc.CurrentUsername() == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return nil
	}
	return sc
}
