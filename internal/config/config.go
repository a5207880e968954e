package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	MailDriverLog = "log"
	MailDriverSES = "ses"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	AppEnv string

	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	JWTSecret  string
	BcryptCost int

	CORSOrigins           []string
	RateLimitRPM          int
	AuthRateLimitRPM      int
	ResetRateLimitPerHour int

	ResetAdminEmail string
	FrontendURL     string

	MailDriver   string
	SESRegion    string
	SESFromEmail string
	SESFromName  string

	StorageDriver string
	UploadRoot    string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string

	OpenAPISpecPath string
	LogLevel        string
	LogFormat       string
	MetricsEnabled  bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:                  strings.ToLower(getEnv("APP_ENV", EnvProduction)),
		ServerPort:              getEnv("SERVER_PORT", "5002"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 1)),
		JWTSecret:               strings.TrimSpace(os.Getenv("JWT_SECRET")),
		BcryptCost:              getInt("BCRYPT_COST", 12),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 120),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		ResetRateLimitPerHour:   getInt("RESET_RATE_LIMIT_PER_HOUR", 5),
		ResetAdminEmail:         strings.TrimSpace(os.Getenv("RESET_ADMIN_EMAIL")),
		FrontendURL:             strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		MailDriver:              strings.ToLower(getEnv("MAIL_DRIVER", MailDriverLog)),
		SESRegion:               getEnv("SES_REGION", "us-east-1"),
		SESFromEmail:            strings.TrimSpace(os.Getenv("SES_FROM_EMAIL")),
		SESFromName:             getEnv("SES_FROM_NAME", "Forum"),
		StorageDriver:           strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverLocal)),
		UploadRoot:              getEnv("UPLOAD_ROOT", "./uploads"),
		S3Bucket:                strings.TrimSpace(os.Getenv("S3_BUCKET")),
		S3Region:                getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:              strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		S3AccessKey:             strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3SecretKey:             strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		OpenAPISpecPath:         getEnv("OPENAPI_SPEC_PATH", "./docs/openapi.yaml"),
		LogLevel:                strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:               strings.ToLower(getEnv("LOG_FORMAT", "pretty")),
		MetricsEnabled:          getBool("METRICS_ENABLED", true),
	}

	if err := cfg.applyDevelopmentDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// applyDevelopmentDefaults fills secrets that are optional only in development.
// The generated JWT secret lives for the process lifetime.
func (c *Config) applyDevelopmentDefaults() error {
	if !c.IsDevelopment() {
		return nil
	}

	if c.JWTSecret == "" {
		secret, err := randomSecret(32)
		if err != nil {
			return fmt.Errorf("generate development JWT secret: %w", err)
		}
		c.JWTSecret = secret
		slog.Warn("JWT_SECRET not set; using an ephemeral development secret, sessions will not survive restarts")
	}

	if c.ResetAdminEmail == "" {
		c.ResetAdminEmail = "admin@localhost"
		slog.Warn("RESET_ADMIN_EMAIL not set; reset codes go to admin@localhost")
	}

	return nil
}

func (c *Config) Validate() error {
	if c.AppEnv != EnvDevelopment && c.AppEnv != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q", EnvDevelopment, EnvProduction)
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if !c.IsDevelopment() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS/DB_MAX_CONNS are inconsistent")
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.ResetAdminEmail == "" {
		return fmt.Errorf("RESET_ADMIN_EMAIL is required")
	}

	switch c.MailDriver {
	case MailDriverLog:
	case MailDriverSES:
		if c.SESFromEmail == "" {
			return fmt.Errorf("SES_FROM_EMAIL is required when MAIL_DRIVER=ses")
		}
	default:
		return fmt.Errorf("MAIL_DRIVER must be %q or %q", MailDriverLog, MailDriverSES)
	}

	switch c.StorageDriver {
	case StorageDriverLocal:
		if strings.TrimSpace(c.UploadRoot) == "" {
			return fmt.Errorf("UPLOAD_ROOT cannot be empty")
		}
	case StorageDriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverLocal, StorageDriverS3)
	}

	return nil
}

func randomSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
