package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything main needs to wire the server. Values come from
// the environment with sensible defaults; a .env file is honored if present.
type Config struct {
	HTTPAddr    string
	MetricsAddr string // empty disables the metrics listener
	NATSURL     string

	// EmergencyResponderID is the user auto-assigned to critical incidents.
	EmergencyResponderID uint

	ArrivalRadiusMeters float64
	AvgSpeedKmh         float64
	EtaFloorKmh         float64
	StaleAfter          time.Duration

	NotifyAttempts int
	NotifyBackoff  time.Duration
}

// Load reads the environment (plus .env if present) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),
		NATSURL:     getEnv("NATS_URL", "nats://127.0.0.1:4222"),
	}

	id, err := envUint("EMERGENCY_RESPONDER_ID", 1)
	if err != nil {
		return nil, err
	}
	cfg.EmergencyResponderID = id

	if cfg.ArrivalRadiusMeters, err = envFloat("ARRIVAL_RADIUS_M", 100); err != nil {
		return nil, err
	}
	if cfg.AvgSpeedKmh, err = envFloat("AVG_SPEED_KMH", 25); err != nil {
		return nil, err
	}
	if cfg.EtaFloorKmh, err = envFloat("ETA_FLOOR_KMH", 20); err != nil {
		return nil, err
	}
	if cfg.StaleAfter, err = envDuration("STALE_AFTER", 10*time.Minute); err != nil {
		return nil, err
	}

	attempts, err := envUint("NOTIFY_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	cfg.NotifyAttempts = int(attempts)
	if cfg.NotifyBackoff, err = envDuration("NOTIFY_BACKOFF", 500*time.Millisecond); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns the provided default.
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func envUint(key string, def uint) (uint, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return uint(n), nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}
