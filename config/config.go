package config

import (
	"fmt"
	"os"
	"strconv"

	"payments-service/internal/fees"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Paystack PaystackConfig
	Fees     fees.Schedule

	// PublicBaseURL is used to build the post-payment callback URL handed
	// to the gateway.
	PublicBaseURL string
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	// Addr empty disables event publishing.
	Addr     string
	Password string
	DB       int
}

type PaystackConfig struct {
	// SecretKey may be empty; initiation endpoints then answer with an
	// explicit "service not configured" error instead of crashing.
	SecretKey     string
	WebhookSecret string
	BaseURL       string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "marketplace_payments"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Paystack: PaystackConfig{
			SecretKey:     getEnv("PAYSTACK_SECRET_KEY", ""),
			WebhookSecret: getEnv("PAYSTACK_WEBHOOK_SECRET", ""),
			BaseURL:       getEnv("PAYSTACK_BASE_URL", ""),
		},
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		Fees:          loadFees(),
	}

	return cfg, nil
}

// ConnString builds the pgx connection string.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// loadFees overlays environment overrides on the default fee schedule.
// Rates are basis points; flat amounts are cents.
func loadFees() fees.Schedule {
	s := fees.DefaultSchedule()
	s.TicketCommissionBP = getEnvInt64("FEE_TICKET_COMMISSION_BP", s.TicketCommissionBP)
	s.PlatformFeeBP = getEnvInt64("FEE_PLATFORM_BP", s.PlatformFeeBP)
	s.BookingFeeBP = getEnvInt64("FEE_BOOKING_BP", s.BookingFeeBP)
	s.BookingFeeFlatCents = getEnvInt64("FEE_BOOKING_FLAT_CENTS", s.BookingFeeFlatCents)
	s.DepositFeeBP = getEnvInt64("FEE_DEPOSIT_BP", s.DepositFeeBP)
	s.DepositFeeFlatCents = getEnvInt64("FEE_DEPOSIT_FLAT_CENTS", s.DepositFeeFlatCents)
	s.WithdrawalFeeBP = getEnvInt64("FEE_WITHDRAWAL_BP", s.WithdrawalFeeBP)
	s.WithdrawalFeeFlatCents = getEnvInt64("FEE_WITHDRAWAL_FLAT_CENTS", s.WithdrawalFeeFlatCents)
	return s
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

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
