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

// Public Webpay Plus integration credentials, used when none are configured.
const (
	TransbankIntegrationCommerceCode = "597055555532"
	TransbankIntegrationAPIKey       = "579B532A7440BB0C9079DED94D31EA1615BACEB56610332264630D42D0A36B1C"
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
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketInvoices() string
	IsMinIOEnabled() bool
}

// EmailConfig provides settings for the SendGrid and SMTP senders.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSendGridAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMSConfig provides Twilio credentials.
type SMSConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioFromNumber() string
	IsSMSEnabled() bool
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetStaffInbox() string
}

// PaymentConfig provides payment gateway selection and credentials.
type PaymentConfig interface {
	GetPaymentProvider() string
	IsPaymentGatewayMock() bool
	GetTransbankCommerceCode() string
	GetTransbankAPIKey() string
	IsTransbankLive() bool
	GetTransbankReturnURL() string
	GetMercadoPagoAccessToken() string
	GetMercadoPagoReturnURL() string
	GetPaymentGatewayTimeout() time.Duration
	GetPaymentTransactionTTL() time.Duration
	GetPaymentResultURL() string
}

// AuditConfig provides settings for the DynamoDB payment journal.
type AuditConfig interface {
	GetPaymentAuditTable() string
	GetAWSRegion() string
	GetDynamoDBEndpoint() string
}

// SchedulerConfig provides Redis and job settings for background work.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetReminderLeadTime() time.Duration
	GetStaleSweepSpec() string
	GetPaymentTransactionTTL() time.Duration
}

// LocationsConfig selects the region/comuna catalog implementation.
type LocationsConfig interface {
	GetLocationsSource() string
	GetLocationsCacheTTL() time.Duration
	GetRedisURL() string
}

// QuotePolicyConfig provides the business constants of the quote lifecycle.
type QuotePolicyConfig interface {
	GetFixedPrice() int64
	GetCollisionWindow() time.Duration
	GetUncoveredComunas() []string
}

// InvoiceConfig provides invoice storage settings.
type InvoiceConfig interface {
	GetInvoiceLocalDir() string
	GetCompanyName() string
	GetCompanyRUT() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	JWTAccessSecret        string
	CORSAllowAll           bool
	CORSOrigins            []string
	CORSAllowCreds         bool
	AppBaseURL             string
	StaffInbox             string
	EmailEnabled           bool
	SendGridAPIKey         string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	TwilioAccountSID       string
	TwilioAuthToken        string
	TwilioFromNumber       string
	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinioBucketInvoices    string
	InvoiceLocalDir        string
	CompanyName            string
	CompanyRUT             string
	PaymentProvider        string
	PaymentGatewayMock     bool
	TransbankCommerceCode  string
	TransbankAPIKey        string
	TransbankLive          bool
	TransbankReturnURL     string
	MercadoPagoAccessToken string
	MercadoPagoReturnURL   string
	PaymentGatewayTimeout  time.Duration
	PaymentTransactionTTL  time.Duration
	PaymentResultURL       string
	PaymentAuditTable      string
	AWSRegion              string
	DynamoDBEndpoint       string
	RedisURL               string
	RedisTLSInsecure       bool
	ReminderLeadTime       time.Duration
	StaleSweepSpec         string
	LocationsSource        string
	LocationsCacheTTL      time.Duration
	FixedPrice             int64
	CollisionWindow        time.Duration
	UncoveredComunas       []string
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string       { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string      { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string      { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool           { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketInvoices() string { return c.MinioBucketInvoices }
func (c *Config) IsMinIOEnabled() bool           { return c.MinIOEndpoint != "" }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSendGridAPIKey() string   { return c.SendGridAPIKey }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SMSConfig implementation
func (c *Config) GetTwilioAccountSID() string { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string  { return c.TwilioAuthToken }
func (c *Config) GetTwilioFromNumber() string { return c.TwilioFromNumber }
func (c *Config) IsSMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }
func (c *Config) GetStaffInbox() string { return c.StaffInbox }

// PaymentConfig implementation
func (c *Config) GetPaymentProvider() string              { return c.PaymentProvider }
func (c *Config) IsPaymentGatewayMock() bool              { return c.PaymentGatewayMock }
func (c *Config) GetTransbankCommerceCode() string        { return c.TransbankCommerceCode }
func (c *Config) GetTransbankAPIKey() string              { return c.TransbankAPIKey }
func (c *Config) IsTransbankLive() bool                   { return c.TransbankLive }
func (c *Config) GetTransbankReturnURL() string           { return c.TransbankReturnURL }
func (c *Config) GetMercadoPagoAccessToken() string       { return c.MercadoPagoAccessToken }
func (c *Config) GetMercadoPagoReturnURL() string         { return c.MercadoPagoReturnURL }
func (c *Config) GetPaymentGatewayTimeout() time.Duration { return c.PaymentGatewayTimeout }
func (c *Config) GetPaymentTransactionTTL() time.Duration { return c.PaymentTransactionTTL }
func (c *Config) GetPaymentResultURL() string             { return c.PaymentResultURL }

// AuditConfig implementation
func (c *Config) GetPaymentAuditTable() string { return c.PaymentAuditTable }
func (c *Config) GetAWSRegion() string         { return c.AWSRegion }
func (c *Config) GetDynamoDBEndpoint() string  { return c.DynamoDBEndpoint }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetReminderLeadTime() time.Duration { return c.ReminderLeadTime }
func (c *Config) GetStaleSweepSpec() string          { return c.StaleSweepSpec }

// LocationsConfig implementation
func (c *Config) GetLocationsSource() string          { return c.LocationsSource }
func (c *Config) GetLocationsCacheTTL() time.Duration { return c.LocationsCacheTTL }

// QuotePolicyConfig implementation
func (c *Config) GetFixedPrice() int64              { return c.FixedPrice }
func (c *Config) GetCollisionWindow() time.Duration { return c.CollisionWindow }
func (c *Config) GetUncoveredComunas() []string     { return c.UncoveredComunas }

// InvoiceConfig implementation
func (c *Config) GetInvoiceLocalDir() string { return c.InvoiceLocalDir }
func (c *Config) GetCompanyName() string     { return c.CompanyName }
func (c *Config) GetCompanyRUT() string      { return c.CompanyRUT }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	sendGridKey := getEnv("SENDGRID_API_KEY", "")
	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	commerceCode := getEnv("TB_COMMERCE_CODE", "")
	apiKey := getEnv("TB_API_KEY", "")
	if commerceCode == "" || apiKey == "" {
		commerceCode = TransbankIntegrationCommerceCode
		apiKey = TransbankIntegrationAPIKey
	}

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		JWTAccessSecret:        getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:           corsAllowAll,
		CORSOrigins:            corsOrigins,
		CORSAllowCreds:         strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:             strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		StaffInbox:             getEnv("STAFF_INBOX", ""),
		EmailEnabled:           emailEnabled && (sendGridKey != "" || smtpHost != ""),
		SendGridAPIKey:         sendGridKey,
		SMTPHost:               smtpHost,
		SMTPPort:               int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "FM Servicios Generales"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		TwilioAccountSID:       getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:        getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:       getEnv("TWILIO_FROM_NUMBER", ""),
		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinioBucketInvoices:    getEnv("MINIO_BUCKET_INVOICES", "documentos"),
		InvoiceLocalDir:        getEnv("INVOICE_LOCAL_DIR", "media/facturas"),
		CompanyName:            getEnv("COMPANY_NAME", "FM Servicios Generales"),
		CompanyRUT:             getEnv("COMPANY_RUT", ""),
		PaymentProvider:        strings.ToLower(getEnv("PAYMENT_PROVIDER", "transbank")),
		PaymentGatewayMock:     strings.EqualFold(getEnv("PAYMENT_GATEWAY_MOCK", "false"), "true"),
		TransbankCommerceCode:  commerceCode,
		TransbankAPIKey:        apiKey,
		TransbankLive:          isLiveIntegration(getEnv("TB_INTEGRATION_TYPE", "TEST")),
		TransbankReturnURL:     getEnv("TB_RETURN_URL", ""),
		MercadoPagoAccessToken: getEnv("MP_ACCESS_TOKEN", ""),
		MercadoPagoReturnURL:   getEnv("MP_RETURN_URL", ""),
		PaymentGatewayTimeout:  mustDuration(getEnv("PAYMENT_GATEWAY_TIMEOUT", "15s")),
		PaymentTransactionTTL:  mustDuration(getEnv("PAYMENT_TRANSACTION_TTL", "30m")),
		PaymentResultURL:       getEnv("PAYMENT_RESULT_URL", ""),
		PaymentAuditTable:      getEnv("PAYMENT_AUDIT_TABLE", ""),
		AWSRegion:              getEnv("AWS_REGION", "us-east-1"),
		DynamoDBEndpoint:       getEnv("DYNAMODB_ENDPOINT", ""),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		ReminderLeadTime:       mustDuration(getEnv("VISIT_REMINDER_LEAD", "24h")),
		StaleSweepSpec:         getEnv("STALE_PAYMENT_SWEEP_SPEC", "0 */15 * * * *"),
		LocationsSource:        strings.ToLower(getEnv("LOCATIONS_SOURCE", "static")),
		LocationsCacheTTL:      mustDuration(getEnv("LOCATIONS_CACHE_TTL", "1h")),
		FixedPrice:             mustInt64(getEnv("FIXED_PRICE", "50000")),
		CollisionWindow:        mustDuration(getEnv("VISIT_COLLISION_WINDOW", "3h")),
		UncoveredComunas:       splitCSV(getEnv("UNCOVERED_COMUNAS", "Cabo de Hornos")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.FixedPrice <= 0 {
		return nil, fmt.Errorf("FIXED_PRICE must be a positive integer")
	}
	if cfg.CollisionWindow <= 0 {
		return nil, fmt.Errorf("VISIT_COLLISION_WINDOW must be a positive duration")
	}
	switch cfg.PaymentProvider {
	case "transbank", "mercadopago":
	default:
		return nil, fmt.Errorf("PAYMENT_PROVIDER must be transbank or mercadopago, got %q", cfg.PaymentProvider)
	}
	if cfg.PaymentProvider == "mercadopago" && !cfg.PaymentGatewayMock && cfg.MercadoPagoAccessToken == "" {
		return nil, fmt.Errorf("MP_ACCESS_TOKEN is required when PAYMENT_PROVIDER is mercadopago")
	}

	return cfg, nil
}

func isLiveIntegration(value string) bool {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LIVE", "PROD", "PRODUCTION":
		return true
	default:
		return false
	}
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

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
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
