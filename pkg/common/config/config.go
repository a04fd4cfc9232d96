package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerHost             string
	ClaimsServicePort      string
	FulfillmentServicePort string
	AdminServicePort       string
	ReadTimeout            time.Duration
	WriteTimeout           time.Duration
	MaxRequestBody         int64
	RateLimitRPS           int
	RateLimitBurst         int

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers      []string
	KafkaGroupID      string
	PaymentEventTopic string
	ResultEventTopic  string

	// Payment gateway
	GatewayBaseURL       string
	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration
	ClaimFeePaise        int64
	ClaimFeeCurrency     string

	// SMTP
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPTimeout  time.Duration

	// Notification templates
	TemplateCatalogPath string

	// Admin auth
	AdminEmail        string
	AdminPasswordHash string
	JWTSecret         string
	JWTIssuer         string
	JWTAudience       string
	JWTTTL            time.Duration
	OIDCIssuer        string
	OIDCClientID      string
	OIDCClientSecret  string
	OIDCRedirectURL   string

	// OTP
	OTPTTL         time.Duration
	OTPMaxAttempts int

	// Automation
	SweepBatchSize        int
	SweepTimeout          time.Duration
	SweepLockTTL          time.Duration
	DefaultSweepEnabled   bool
	DefaultSweepIntervalM int
}

func Load() *Config {
	return &Config{
		ServerHost:             getEnv("SERVER_HOST", "0.0.0.0"),
		ClaimsServicePort:      getEnv("CLAIMS_SERVICE_PORT", "8080"),
		FulfillmentServicePort: getEnv("FULFILLMENT_SERVICE_PORT", "8081"),
		AdminServicePort:       getEnv("ADMIN_SERVICE_PORT", "8082"),
		ReadTimeout:            getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:           getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody:         int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 8*1024*1024)),
		RateLimitRPS:           getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst:         getIntEnv("RATE_LIMIT_BURST", 100),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "systech"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "systech123"),
		PostgresDB:       getEnv("POSTGRES_DB", "redemption"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:      getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:      getEnv("KAFKA_GROUP_ID", "redemption-platform"),
		PaymentEventTopic: getEnv("PAYMENT_EVENT_TOPIC", "claim-payments"),
		ResultEventTopic:  getEnv("RESULT_EVENT_TOPIC", "fulfillment-results"),

		GatewayBaseURL:       getEnv("PAYMENT_GATEWAY_BASE_URL", "https://api.razorpay.com/v1"),
		GatewayKeyID:         getEnv("PAYMENT_GATEWAY_KEY_ID", ""),
		GatewayKeySecret:     getEnv("PAYMENT_GATEWAY_KEY_SECRET", ""),
		GatewayWebhookSecret: getEnv("PAYMENT_GATEWAY_WEBHOOK_SECRET", ""),
		GatewayTimeout:       getDuration("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second),
		ClaimFeePaise:        int64(getIntEnv("CLAIM_FEE_PAISE", 9900)),
		ClaimFeeCurrency:     getEnv("CLAIM_FEE_CURRENCY", "INR"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getIntEnv("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "support@systechdigital.in"),
		SMTPTimeout:  getDuration("SMTP_TIMEOUT", 15*time.Second),

		TemplateCatalogPath: getEnv("TEMPLATE_CATALOG_PATH", ""),

		AdminEmail:        getEnv("ADMIN_EMAIL", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "redemption-platform"),
		JWTAudience:       getEnv("JWT_AUDIENCE", "redemption-admin"),
		JWTTTL:            getDuration("JWT_TTL", 12*time.Hour),
		OIDCIssuer:        getEnv("OIDC_ISSUER", ""),
		OIDCClientID:      getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret:  getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:   getEnv("OIDC_REDIRECT_URL", ""),

		OTPTTL:         getDuration("OTP_TTL", 5*time.Minute),
		OTPMaxAttempts: getIntEnv("OTP_MAX_ATTEMPTS", 5),

		SweepBatchSize:        getIntEnv("SWEEP_BATCH_SIZE", 100),
		SweepTimeout:          getDuration("SWEEP_TIMEOUT", 5*time.Minute),
		SweepLockTTL:          getDuration("SWEEP_LOCK_TTL", 10*time.Minute),
		DefaultSweepEnabled:   getBoolEnv("SWEEP_ENABLED", true),
		DefaultSweepIntervalM: getIntEnv("SWEEP_INTERVAL_MINUTES", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
