// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
	GetGlobalAdminRole() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitPerSecond() float64
	GetRateLimitBurst() int
}

// TenancyConfig provides the tenant fallback used when a request carries no tenant header.
type TenancyConfig interface {
	GetDefaultTenantID() string
}

// KeycloakConfig provides settings for the identity provider admin API.
type KeycloakConfig interface {
	GetKeycloakBaseURL() string
	GetKeycloakRealm() string
	GetKeycloakClientID() string
	GetKeycloakClientSecret() string
	GetKeycloakTimeout() time.Duration
}

// EventsConfig provides settings for domain event transport.
type EventsConfig interface {
	GetKafkaBrokers() []string
	GetKafkaIdentityTopic() string
	GetKafkaGroupID() string
	GetEventBusLanes() int
	IsKafkaEnabled() bool
}

// SchedulerConfig provides settings for the asynq-backed scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// OperatorAlertConfig provides settings for the operator alert channel.
type OperatorAlertConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFromAddress() string
	GetOperatorEmail() string
	IsOperatorEmailEnabled() bool
}

// PhoneConfig provides the default region for phone normalization.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                string
	HTTPAddr           string
	DatabaseURL        string
	JWTAccessSecret    string
	GlobalAdminRole    string
	CORSAllowAll       bool
	CORSOrigins        []string
	CORSAllowCreds     bool
	RateLimitPerSecond float64
	RateLimitBurst     int
	DefaultTenantID    string
	KeycloakBaseURL    string
	KeycloakRealm      string
	KeycloakClientID   string
	KeycloakSecret     string
	KeycloakTimeout    time.Duration
	KafkaBrokers       []string
	KafkaIdentityTopic string
	KafkaGroupID       string
	EventBusLanes      int
	RedisURL           string
	RedisTLSInsecure   bool
	AsynqQueueName     string
	AsynqConcurrency   int
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	SMTPFromAddress    string
	OperatorEmail      string
	PhoneDefaultRegion string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }
func (c *Config) GetGlobalAdminRole() string { return c.GlobalAdminRole }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string            { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool          { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string       { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool        { return c.CORSAllowCreds }
func (c *Config) GetRateLimitPerSecond() float64 { return c.RateLimitPerSecond }
func (c *Config) GetRateLimitBurst() int         { return c.RateLimitBurst }

// TenancyConfig implementation
func (c *Config) GetDefaultTenantID() string { return c.DefaultTenantID }

// KeycloakConfig implementation
func (c *Config) GetKeycloakBaseURL() string        { return c.KeycloakBaseURL }
func (c *Config) GetKeycloakRealm() string          { return c.KeycloakRealm }
func (c *Config) GetKeycloakClientID() string       { return c.KeycloakClientID }
func (c *Config) GetKeycloakClientSecret() string   { return c.KeycloakSecret }
func (c *Config) GetKeycloakTimeout() time.Duration { return c.KeycloakTimeout }

// EventsConfig implementation
func (c *Config) GetKafkaBrokers() []string     { return c.KafkaBrokers }
func (c *Config) GetKafkaIdentityTopic() string { return c.KafkaIdentityTopic }
func (c *Config) GetKafkaGroupID() string       { return c.KafkaGroupID }
func (c *Config) GetEventBusLanes() int         { return c.EventBusLanes }
func (c *Config) IsKafkaEnabled() bool          { return len(c.KafkaBrokers) > 0 }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// OperatorAlertConfig implementation
func (c *Config) GetSMTPHost() string        { return c.SMTPHost }
func (c *Config) GetSMTPPort() int           { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string    { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string    { return c.SMTPPassword }
func (c *Config) GetSMTPFromAddress() string { return c.SMTPFromAddress }
func (c *Config) GetOperatorEmail() string   { return c.OperatorEmail }
func (c *Config) IsOperatorEmailEnabled() bool {
	return c.SMTPHost != "" && c.OperatorEmail != ""
}

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		JWTAccessSecret:    getEnv("JWT_ACCESS_SECRET", ""),
		GlobalAdminRole:    getEnv("GLOBAL_ADMIN_ROLE", "global_admin"),
		CORSAllowAll:       corsAllowAll,
		CORSOrigins:        corsOrigins,
		CORSAllowCreds:     strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitPerSecond: mustFloat(getEnv("RATE_LIMIT_PER_SECOND", "20")),
		RateLimitBurst:     mustInt(getEnv("RATE_LIMIT_BURST", "40")),
		DefaultTenantID:    strings.TrimSpace(getEnv("DEFAULT_TENANT_ID", "public")),
		KeycloakBaseURL:    strings.TrimRight(getEnv("KEYCLOAK_BASE_URL", ""), "/"),
		KeycloakRealm:      getEnv("KEYCLOAK_REALM", ""),
		KeycloakClientID:   getEnv("KEYCLOAK_CLIENT_ID", ""),
		KeycloakSecret:     getEnv("KEYCLOAK_CLIENT_SECRET", ""),
		KeycloakTimeout:    mustDuration(getEnv("KEYCLOAK_TIMEOUT", "10s")),
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaIdentityTopic: getEnv("KAFKA_IDENTITY_TOPIC", "access-control.identity-created"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "people-identity-reconciler"),
		EventBusLanes:      mustInt(getEnv("EVENT_BUS_LANES", "8")),
		RedisURL:           getEnv("REDIS_URL", ""),
		RedisTLSInsecure:   strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:     getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:   mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SMTPHost:           getEnv("SMTP_HOST", ""),
		SMTPPort:           mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SMTPFromAddress:    getEnv("SMTP_FROM_ADDRESS", ""),
		OperatorEmail:      getEnv("OPERATOR_ALERT_EMAIL", ""),
		PhoneDefaultRegion: strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "BR")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.DefaultTenantID == "" {
		return nil, fmt.Errorf("DEFAULT_TENANT_ID cannot be blank")
	}
	if cfg.KeycloakBaseURL == "" || cfg.KeycloakRealm == "" {
		return nil, fmt.Errorf("KEYCLOAK_BASE_URL and KEYCLOAK_REALM are required")
	}
	if cfg.IsOperatorEmailEnabled() && cfg.SMTPFromAddress == "" {
		return nil, fmt.Errorf("SMTP_FROM_ADDRESS is required when operator alerts are emailed")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
