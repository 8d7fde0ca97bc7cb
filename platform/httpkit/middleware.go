// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"hr_backoffice/platform/config"
	"hr_backoffice/platform/logger"
	"hr_backoffice/platform/security"
	"hr_backoffice/platform/tenancy"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// HeaderTenantID carries the tenant of an inbound request.
	HeaderTenantID = "X-Tenant-ID"
	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestLogger logs HTTP requests with timing and tags the request context
// with a correlation id.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), logger.RequestIDKey, requestID))

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		log.WithRequestID(requestID).HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")

		// Only add HSTS in production
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := i.getLimiter(ip)

		if !limiter.Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// TenantContext establishes the tenant of the request before any handler runs
// and clears it once the chain returns, panics included. A missing or blank
// X-Tenant-ID header selects defaultTenant.
func TenantContext(defaultTenant string) gin.HandlerFunc {
	return func(c *gin.Context) {
		holder := tenancy.NewHolder()
		holder.Set(tenancy.Resolve(c.GetHeader(HeaderTenantID), defaultTenant))
		defer holder.Clear()

		c.Request = c.Request.WithContext(tenancy.WithHolder(c.Request.Context(), holder))
		c.Next()
	}
}

// AuthRequired returns middleware that validates JWT access tokens and places
// the resolved principal into the request context.
func AuthRequired(cfg config.JWTConfig, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		claims, err := parseAccessClaims(rawToken, cfg)
		if err != nil {
			if log != nil {
				log.AuthEvent("token_rejected", "", false, err.Error())
			}
			abortUnauthorized(c, errInvalidToken)
			return
		}

		principal, err := principalFromClaims(claims, cfg.GetGlobalAdminRole())
		if err != nil {
			if log != nil {
				log.AuthEvent("token_rejected", "", false, err.Error())
			}
			abortUnauthorized(c, errInvalidToken)
			return
		}

		ctx := security.WithContext(c.Request.Context(), principal)
		ctx = context.WithValue(ctx, logger.UserIDKey, principal.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireGlobalAdmin rejects requests whose principal is not a global admin.
func RequireGlobalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !security.FromContext(c.Request.Context()).IsGlobalAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
			return
		}
		c.Next()
	}
}

func principalFromClaims(claims jwt.MapClaims, adminRole string) (security.Principal, error) {
	username, _ := claims["preferred_username"].(string)
	if strings.TrimSpace(username) == "" {
		username, _ = claims["sub"].(string)
	}
	if strings.TrimSpace(username) == "" {
		return security.Principal{}, errors.New("token has no subject")
	}

	empresaIDs, err := extractIDs(claims["empresa_ids"])
	if err != nil {
		return security.Principal{}, fmt.Errorf("empresa_ids: %w", err)
	}
	clienteIDs, err := extractIDs(claims["cliente_ids"])
	if err != nil {
		return security.Principal{}, fmt.Errorf("cliente_ids: %w", err)
	}

	roles := extractRoles(claims["roles"])
	return security.Principal{
		Username:    username,
		EmpresaIDs:  empresaIDs,
		ClienteIDs:  clienteIDs,
		GlobalAdmin: adminRole != "" && slices.Contains(roles, adminRole),
	}, nil
}

func extractIDs(value interface{}) ([]int64, error) {
	ids := make([]int64, 0)
	if value == nil {
		return ids, nil
	}

	items, ok := value.([]interface{})
	if !ok {
		return nil, errors.New("expected a list")
	}
	for _, item := range items {
		switch typed := item.(type) {
		case float64:
			if typed != float64(int64(typed)) {
				return nil, fmt.Errorf("non-integer id %v", typed)
			}
			ids = append(ids, int64(typed))
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q", typed)
			}
			ids = append(ids, parsed)
		default:
			return nil, fmt.Errorf("invalid id %v", item)
		}
	}
	return ids, nil
}

func extractRoles(value interface{}) []string {
	roles := make([]string, 0)
	if value == nil {
		return roles
	}

	switch typed := value.(type) {
	case []string:
		return append(roles, typed...)
	case []interface{}:
		for _, item := range typed {
			if text, ok := item.(string); ok {
				roles = append(roles, text)
			}
		}
	}

	return roles
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}

	return rawToken, true
}

func parseAccessClaims(rawToken string, cfg config.JWTConfig) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.GetJWTAccessSecret()), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}

	if tokenType, present := claims["type"].(string); present && tokenType != "access" {
		return nil, errors.New(errInvalidToken)
	}

	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message})
}
