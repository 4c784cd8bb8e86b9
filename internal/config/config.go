package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Trading  TradingConfig
	Venues   VenuesConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера операционного API
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	EncryptionKey string // 32 байта, AES-256 для API ключей площадок
	OpsTokenHash  string // bcrypt хэш токена операционного API
}

// TradingConfig - торговые параметры
type TradingConfig struct {
	EntrySpreadPct float64 // % спреда для входа
	ExitSpreadPct  float64 // целевой % спреда для выхода
	OrderSize      float64 // объём каждой ноги в базовом активе
	Leverage       int

	// Retry для ордеров: фиксированная задержка без роста,
	// худший случай = MaxRetries * RetryDelay на ногу
	MaxRetries   int
	RetryDelay   time.Duration
	OrderTimeout time.Duration // таймаут одного вызова площадки

	QueueSize  int           // ёмкость канала возможностей
	StaleAfter time.Duration // возраст, после которого возможность считается протухшей
}

// VenuesConfig - пара площадок и символы на каждой
type VenuesConfig struct {
	ExchangeA string // например hyperliquid
	ExchangeB string // например paradex
	SymbolA   string // символ на A, например BTC-PERP
	SymbolB   string // символ на B, например BTC-USD-PERP
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string // путь к файлу, пустой = stderr
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "deltarb"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			OpsTokenHash:  getEnv("OPS_TOKEN_HASH", ""),
		},
		Trading: TradingConfig{
			EntrySpreadPct: getEnvAsFloat("ENTRY_SPREAD_PCT", 0.10),
			ExitSpreadPct:  getEnvAsFloat("EXIT_SPREAD_PCT", 0.02),
			OrderSize:      getEnvAsFloat("ORDER_SIZE", 0.01),
			Leverage:       getEnvAsInt("LEVERAGE", 3),

			MaxRetries:   getEnvAsInt("MAX_RETRIES", 3),
			RetryDelay:   getEnvAsDuration("RETRY_DELAY", 500*time.Millisecond),
			OrderTimeout: getEnvAsDuration("ORDER_TIMEOUT", 5*time.Second),

			QueueSize:  getEnvAsInt("OPPORTUNITY_QUEUE_SIZE", 64),
			StaleAfter: getEnvAsDuration("OPPORTUNITY_STALE_AFTER", 300*time.Millisecond),
		},
		Venues: VenuesConfig{
			ExchangeA: getEnv("EXCHANGE_A", "hyperliquid"),
			ExchangeB: getEnv("EXCHANGE_B", "paradex"),
			SymbolA:   getEnv("SYMBOL_A", "BTC-PERP"),
			SymbolB:   getEnv("SYMBOL_B", "BTC-USD-PERP"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			Output:     getEnv("LOG_OUTPUT", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
	}

	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования API ключей площадок
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting API keys")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	if c.Security.OpsTokenHash == "" {
		return fmt.Errorf("OPS_TOKEN_HASH is required for API authentication")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Trading.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.Trading.MaxRetries)
	}

	if c.Trading.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES should not exceed 10, got %d", c.Trading.MaxRetries)
	}

	if c.Trading.RetryDelay <= 0 {
		return fmt.Errorf("RETRY_DELAY must be positive, got %v", c.Trading.RetryDelay)
	}

	if c.Trading.OrderTimeout <= 0 {
		return fmt.Errorf("ORDER_TIMEOUT must be positive, got %v", c.Trading.OrderTimeout)
	}

	if c.Trading.EntrySpreadPct <= 0 {
		return fmt.Errorf("ENTRY_SPREAD_PCT must be positive, got %v", c.Trading.EntrySpreadPct)
	}

	if c.Trading.OrderSize <= 0 {
		return fmt.Errorf("ORDER_SIZE must be positive, got %v", c.Trading.OrderSize)
	}

	if c.Trading.Leverage < 1 {
		return fmt.Errorf("LEVERAGE must be at least 1, got %d", c.Trading.Leverage)
	}

	if c.Trading.QueueSize < 1 {
		return fmt.Errorf("OPPORTUNITY_QUEUE_SIZE must be at least 1, got %d", c.Trading.QueueSize)
	}

	if c.Venues.ExchangeA == c.Venues.ExchangeB {
		return fmt.Errorf("EXCHANGE_A and EXCHANGE_B must differ, got %q", c.Venues.ExchangeA)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
