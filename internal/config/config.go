// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every runtime setting. Values come from the environment, with
// an optional .env file loaded first.
type Config struct {
	HTTPAddr  string `validate:"required"`
	StaticDir string

	ClassifierURL       string        `validate:"required,url"`
	ClassifierTimeout   time.Duration `validate:"gt=0"`
	WindowSize          int           `validate:"gt=0"`
	Cooldown            time.Duration `validate:"gt=0"`
	ConfidenceThreshold float64       `validate:"gte=0,lte=1"`
	BufferCapacity      int           `validate:"gtefield=WindowSize"`

	CameraID     int
	CameraFPS    int `validate:"gt=0,lte=60"`
	CameraWidth  int `validate:"gt=0"`
	CameraHeight int `validate:"gt=0"`

	ModelComplexity        int     `validate:"oneof=0 1 2"`
	SmoothLandmarks        bool
	MinDetectionConfidence float64 `validate:"gte=0,lte=1"`
	MinTrackingConfidence  float64 `validate:"gte=0,lte=1"`

	DataDir   string `validate:"required"`
	PluginDir string `validate:"required"`

	RedisAddress  string
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	RedisChannel  string `validate:"required_with=RedisAddress"`

	WSMaxFPS float64 `validate:"gt=0"`

	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
	LogDir   string
	AppEnv   string

	TrayEnabled bool
}

// Load reads an optional .env file, then builds and validates the Config.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load(envFiles...)

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	dataDir := getEnv("DATA_DIR", defaultDataDir())

	return &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		StaticDir: getEnv("STATIC_DIR", ""),

		ClassifierURL:       getEnv("CLASSIFIER_URL", "http://127.0.0.1:5000"),
		ClassifierTimeout:   getEnvAsDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
		WindowSize:          getEnvAsInt("WINDOW_SIZE", 30),
		Cooldown:            getEnvAsDuration("COOLDOWN", time.Second),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.8),
		BufferCapacity:      getEnvAsInt("BUFFER_CAPACITY", 60),

		CameraID:     getEnvAsInt("CAMERA_ID", 0),
		CameraFPS:    getEnvAsInt("CAMERA_FPS", 5),
		CameraWidth:  getEnvAsInt("CAMERA_WIDTH", 640),
		CameraHeight: getEnvAsInt("CAMERA_HEIGHT", 480),

		ModelComplexity:        getEnvAsInt("MODEL_COMPLEXITY", 1),
		SmoothLandmarks:        getEnvAsBool("SMOOTH_LANDMARKS", true),
		MinDetectionConfidence: getEnvAsFloat("MIN_DETECTION_CONFIDENCE", 0.5),
		MinTrackingConfidence:  getEnvAsFloat("MIN_TRACKING_CONFIDENCE", 0.5),

		DataDir:   dataDir,
		PluginDir: getEnv("PLUGIN_DIR", filepath.Join(dataDir, "plugins")),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisChannel:  getEnv("REDIS_CHANNEL", "slt:predictions"),

		WSMaxFPS: getEnvAsFloat("WS_MAX_FPS", 30),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", filepath.Join(dataDir, "logs")),
		AppEnv:   getEnv("APP_ENV", "development"),

		TrayEnabled: getEnvAsBool("TRAY_ENABLED", false),
	}
}

// Validate checks the Config for out-of-range values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabasePath returns the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "slt.db")
}

// RedisEnabled reports whether predictions should be published to Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".slt"
	}
	return filepath.Join(home, ".slt")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1500ms") or a bare number of milliseconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
