package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost string
	HTTPPort string

	MySQLDSN     string
	MySQLMaxOpen int
	MySQLMaxIdle int
	MySQLMaxLife time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	EmailProvider string
	SenderAddress string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SMTPSecure bool

	AWSRegion string

	QueueMaxAttempts     int
	QueueBackoffBase     time.Duration
	QueueCompletedMaxLen int64
	QueueFailedMaxLen    int64
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		HTTPHost: getEnv("HTTP_HOST", "0.0.0.0"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		MySQLDSN:     getEnv("MYSQL_DSN", "mailer:mailer@tcp(127.0.0.1:3306)/mailer?parseTime=true"),
		MySQLMaxOpen: getEnvInt("MYSQL_MAX_OPEN", 25),
		MySQLMaxIdle: getEnvInt("MYSQL_MAX_IDLE", 5),
		MySQLMaxLife: getEnvDuration("MYSQL_MAX_LIFE", 5*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EmailProvider: getEnv("EMAIL_PROVIDER", "smtp"),
		SenderAddress: getEnv("SENDER_ADDRESS", "noreply@localhost"),

		SMTPHost:   getEnv("SMTP_HOST", "127.0.0.1"),
		SMTPPort:   getEnvInt("SMTP_PORT", 587),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		SMTPSecure: getEnvBool("SMTP_SECURE", false),

		AWSRegion: getEnv("AWS_REGION", "eu-central-1"),

		QueueMaxAttempts:     getEnvInt("QUEUE_MAX_ATTEMPTS", 3),
		QueueBackoffBase:     getEnvDuration("QUEUE_BACKOFF_BASE", 3*time.Second),
		QueueCompletedMaxLen: int64(getEnvInt("QUEUE_COMPLETED_MAX_LEN", 1000)),
		QueueFailedMaxLen:    int64(getEnvInt("QUEUE_FAILED_MAX_LEN", 10000)),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
