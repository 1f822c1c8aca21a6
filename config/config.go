package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AllowedOrigins    []string
	PostgresURL       string
	Port              string
	Debug             bool
	DisconnectGrace   time.Duration
	PostRoundDelay    time.Duration
	DeckLookupTimeout time.Duration
	MessageRate       float64
	MessageBurst      int
}

var ErrMissingEnv = errors.New("missing-env")

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:              "5000",
		DisconnectGrace:   30 * time.Second,
		PostRoundDelay:    5 * time.Second,
		DeckLookupTimeout: 5 * time.Second,
		MessageRate:       5,
		MessageBurst:      10,
	}

	origins, exists := os.LookupEnv("ALLOWED_ORIGINS")
	if !exists || origins == "" {
		return Config{}, fmt.Errorf("%w: ALLOWED_ORIGINS", ErrMissingEnv)
	}
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	pgURL, exists := os.LookupEnv("POSTGRES_URL")
	if !exists || pgURL == "" {
		return Config{}, fmt.Errorf("%w: POSTGRES_URL", ErrMissingEnv)
	}
	cfg.PostgresURL = pgURL

	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		cfg.Port = port
	}

	var err error
	if cfg.Debug, err = boolEnv("DEBUG", false); err != nil {
		return Config{}, err
	}
	if cfg.DisconnectGrace, err = durationEnv("DISCONNECT_GRACE", cfg.DisconnectGrace); err != nil {
		return Config{}, err
	}
	if cfg.PostRoundDelay, err = durationEnv("POST_ROUND_DELAY", cfg.PostRoundDelay); err != nil {
		return Config{}, err
	}
	if cfg.DeckLookupTimeout, err = durationEnv("DECK_LOOKUP_TIMEOUT", cfg.DeckLookupTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MessageRate, err = floatEnv("MESSAGE_RATE", cfg.MessageRate); err != nil {
		return Config{}, err
	}
	if cfg.MessageBurst, err = intEnv("MESSAGE_BURST", cfg.MessageBurst); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return i, nil
}
