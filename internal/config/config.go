package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Database and JWT settings are required;
// engine tunables fall back to sensible defaults so a bare environment
// still boots.
type Config struct {
	Env          string        // application environment (e.g. "dev", "prod")
	Port         string        // HTTP port to listen on
	DBUser       string        // database username
	DBPass       string        // database password (optional)
	DBHost       string        // database host address
	DBPort       string        // database port number
	DBName       string        // database name
	JWTSecret    string        // secret used to verify JWTs
	HoldTTLMin   int           // default hold lifetime in minutes when a session sets none
	SweepEvery   time.Duration // interval between expiry sweeper passes
	SweepBatch   int           // max expired holds reclaimed per sweeper pass
	AMQPURL      string        // RabbitMQ connection URL (empty disables events)
	NotifyLogDir string        // directory the notification consumer writes to
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		HoldTTLMin:   envInt("HOLD_TTL_MIN", 10),
		SweepEvery:   envDur("SWEEP_EVERY", 30*time.Second),
		SweepBatch:   envInt("SWEEP_BATCH", 200),
		AMQPURL:      os.Getenv("AMQP_URL"),
		NotifyLogDir: envStr("NOTIFY_LOG_DIR", "logs"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
