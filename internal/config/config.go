package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the full agent configuration, loaded from a YAML file with
// environment variable overrides.
type Config struct {
	Env string `yaml:"env" env:"APP_ENV" env-default:"production"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
	} `yaml:"log"`

	Backend struct {
		BaseURL string `yaml:"base_url" env:"BACKEND_BASE_URL" env-default:"https://localhost:7001/api/trackingdata"`
		Timeout int    `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"30"`
	} `yaml:"backend"`

	User struct {
		ID string `yaml:"id" env:"USER_ID" env-default:"current_user@company.com"`
	} `yaml:"user"`

	Tracking struct {
		// IdleThreshold is the number of seconds without input before the
		// user is considered idle.
		IdleThreshold      int `yaml:"idle_threshold" env:"IDLE_THRESHOLD" env-default:"300"`
		IdleCheckInterval  int `yaml:"idle_check_interval" env:"IDLE_CHECK_INTERVAL" env-default:"1"`
		AnnotationMinIdle  int `yaml:"annotation_min_idle" env:"ANNOTATION_MIN_IDLE" env-default:"60"`
		WindowPollInterval int `yaml:"window_poll_interval" env:"WINDOW_POLL_INTERVAL" env-default:"5"`
	} `yaml:"tracking"`

	Upload struct {
		Interval             int `yaml:"interval" env:"UPLOAD_INTERVAL" env-default:"300"`
		ScreenshotRetrySweep int `yaml:"screenshot_retry_sweep" env:"SCREENSHOT_RETRY_SWEEP" env-default:"60"`
		ScreenshotMaxRetries int `yaml:"screenshot_max_retries" env:"SCREENSHOT_MAX_RETRIES" env-default:"10"`
	} `yaml:"upload"`

	Screenshot struct {
		Enabled     bool   `yaml:"enabled" env:"SCREENSHOT_ENABLED" env-default:"true"`
		Interval    int    `yaml:"interval" env:"SCREENSHOT_INTERVAL" env-default:"600"`
		JPEGQuality int    `yaml:"jpeg_quality" env:"SCREENSHOT_JPEG_QUALITY" env-default:"80"`
		Directory   string `yaml:"directory" env:"SCREENSHOT_DIRECTORY" env-default:""`
	} `yaml:"screenshot"`

	Tray struct {
		Enabled bool `yaml:"enabled" env:"TRAY_ENABLED" env-default:"false"`
	} `yaml:"tray"`

	// ActivityLogPath is the append-only local log file holding records
	// until they are uploaded.
	ActivityLogPath string `yaml:"activity_log_path" env:"ACTIVITY_LOG_PATH" env-default:"activity_log.txt"`

	// StoragePath is the local sqlite database used for the screenshot
	// retry queue.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"timetracker.db"`
}

// LoadConfig reads the configuration from the given YAML file. A missing
// file is not fatal: the agent falls back to environment variables and
// defaults so it can run unattended without a config deployment.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	}

	cfg.applyBounds()
	return &cfg, nil
}

// applyBounds rejects invalid values at the boundary, falling back to the
// defaults instead of propagating a broken configuration.
func (c *Config) applyBounds() {
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 30
	}
	if c.Tracking.IdleThreshold <= 0 {
		c.Tracking.IdleThreshold = 300
	}
	if c.Tracking.IdleCheckInterval <= 0 {
		c.Tracking.IdleCheckInterval = 1
	}
	if c.Tracking.AnnotationMinIdle <= 0 {
		c.Tracking.AnnotationMinIdle = 60
	}
	if c.Tracking.WindowPollInterval <= 0 {
		c.Tracking.WindowPollInterval = 5
	}
	if c.Upload.Interval <= 0 {
		c.Upload.Interval = 300
	}
	if c.Screenshot.Interval <= 0 {
		c.Screenshot.Interval = 600
	}
	if c.Screenshot.JPEGQuality <= 0 || c.Screenshot.JPEGQuality > 100 {
		c.Screenshot.JPEGQuality = 80
	}
}
