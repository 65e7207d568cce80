package config

import (
	"time"

	"trailventure-backend/internal/infrastructure/database"
)

// LoadDatabaseConfig builds the pool config for the database layer from the
// same environment variables Load reads, plus pool tuning knobs.
func LoadDatabaseConfig() (*database.DBConfig, error) {
	return &database.DBConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		Username: getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "trailventure"),

		MaxConns:          int32(getEnvInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,

		MaxRetries:     getEnvInt("DB_MAX_RETRIES", 3),
		RetryDelay:     time.Second,
		ConnectTimeout: 10 * time.Second,
	}, nil
}
