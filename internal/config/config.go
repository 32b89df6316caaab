package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App         *Appconfig         `yaml:"app"`
	DB          *DBconfig          `yaml:"db"`
	RabbitMq    *RabbitMqconfig    `yaml:"rabbitmq"`
	Kafka       *Kafkaconfig       `yaml:"kafka"`
	Srv         *Serviceconfig     `yaml:"services"`
	Log         *Loggerconfig      `yaml:"log"`
	Safety      *Safetyconfig      `yaml:"safety"`
	SpeedLimits *SpeedLimitsconfig `yaml:"speed_limits"`
	Audit       *Auditconfig       `yaml:"audit"`
}

type Appconfig struct {
	PublicJwtSecret string `yaml:"jwt_secret"`
}

type DBconfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	MaxRetries int    `yaml:"max_retries"`
}

type RabbitMqconfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Kafkaconfig struct {
	Enabled bool   `yaml:"enabled"`
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic"`
	GroupID string `yaml:"group_id"`
}

type Serviceconfig struct {
	SafetyServicePort string `yaml:"safety_service"`
	AuthServicePort   string `yaml:"auth_service"`
}

type Loggerconfig struct {
	Level string `yaml:"level"`
}

// Safetyconfig carries the enforcement policy knobs. Durations are plain
// numbers (days, seconds, minutes) so they read naturally in YAML and env.
type Safetyconfig struct {
	SmoothingAlpha     float64 `yaml:"smoothing_alpha"`
	CautionExcessMph   float64 `yaml:"caution_excess_mph"`
	WarningExcessMph   float64 `yaml:"warning_excess_mph"`
	DangerExcessMph    float64 `yaml:"danger_excess_mph"`
	SeverityMediumMph  float64 `yaml:"severity_medium_mph"`
	SeverityHighMph    float64 `yaml:"severity_high_mph"`
	DismissCooldownSec int     `yaml:"dismiss_cooldown_sec"`
	EpisodeClearSec    int     `yaml:"episode_clear_sec"`
	ViolationBatchSize int     `yaml:"violation_batch_size"`
	StrikeExpiryDays   int     `yaml:"strike_expiry_days"`
	TempSuspensionDays int     `yaml:"temp_suspension_days"`
	AppealWindowDays   int     `yaml:"appeal_window_days"`
	TempStrikeCount    int     `yaml:"temp_strike_count"`
	PermStrikeCount    int     `yaml:"perm_strike_count"`
	SweepIntervalMin   int     `yaml:"sweep_interval_min"`
}

type SpeedLimitsconfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	CacheSize   int    `yaml:"cache_size"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
}

type Auditconfig struct {
	Path string `yaml:"path"`
}

func New() (*Config, error) {
	getEnv := func(key, def string) string {
		val := os.Getenv(key)
		if val == "" {
			return def
		}
		return val
	}

	getEnvInt := func(key string, def int) int {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return def
		}
		return val
	}

	getEnvFloat := func(key string, def float64) float64 {
		valStr := os.Getenv(key)
		if valStr == "" {
			return def
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return def
		}
		return val
	}

	cnf := &Config{
		App: &Appconfig{
			PublicJwtSecret: getEnv("JWT_SECRET", "carpool-dev-secret"),
		},
		DB: &DBconfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvInt("DB_PORT", 5432),
			User:       getEnv("DB_USER", "carpool_user"),
			Password:   getEnv("DB_PASSWORD", "carpool_pass"),
			Database:   getEnv("DB_NAME", "carpool_db"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 5),
		},
		RabbitMq: &RabbitMqconfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
		},
		Kafka: &Kafkaconfig{
			Enabled: getEnv("KAFKA_ENABLED", "false") == "true",
			Brokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_TELEMETRY_TOPIC", "driver.telemetry"),
			GroupID: getEnv("KAFKA_GROUP_ID", "safety-service"),
		},
		Srv: &Serviceconfig{
			SafetyServicePort: getEnv("SAFETY_SERVICE_PORT", "3002"),
			AuthServicePort:   getEnv("AUTH_SERVICE_PORT", "3003"),
		},
		Log: &Loggerconfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
		Safety: &Safetyconfig{
			SmoothingAlpha:     getEnvFloat("SAFETY_SMOOTHING_ALPHA", 0.3),
			CautionExcessMph:   getEnvFloat("SAFETY_CAUTION_EXCESS_MPH", 2),
			WarningExcessMph:   getEnvFloat("SAFETY_WARNING_EXCESS_MPH", 4),
			DangerExcessMph:    getEnvFloat("SAFETY_DANGER_EXCESS_MPH", 6),
			SeverityMediumMph:  getEnvFloat("SAFETY_SEVERITY_MEDIUM_MPH", 8),
			SeverityHighMph:    getEnvFloat("SAFETY_SEVERITY_HIGH_MPH", 12),
			DismissCooldownSec: getEnvInt("SAFETY_DISMISS_COOLDOWN_SEC", 30),
			EpisodeClearSec:    getEnvInt("SAFETY_EPISODE_CLEAR_SEC", 5),
			ViolationBatchSize: getEnvInt("SAFETY_VIOLATION_BATCH_SIZE", 10),
			StrikeExpiryDays:   getEnvInt("SAFETY_STRIKE_EXPIRY_DAYS", 30),
			TempSuspensionDays: getEnvInt("SAFETY_TEMP_SUSPENSION_DAYS", 7),
			AppealWindowDays:   getEnvInt("SAFETY_APPEAL_WINDOW_DAYS", 7),
			TempStrikeCount:    getEnvInt("SAFETY_TEMP_STRIKE_COUNT", 2),
			PermStrikeCount:    getEnvInt("SAFETY_PERM_STRIKE_COUNT", 3),
			SweepIntervalMin:   getEnvInt("SAFETY_SWEEP_INTERVAL_MIN", 10),
		},
		SpeedLimits: &SpeedLimitsconfig{
			BaseURL:     getEnv("SPEED_LIMITS_URL", "http://localhost:9103"),
			TimeoutSec:  getEnvInt("SPEED_LIMITS_TIMEOUT_SEC", 3),
			CacheSize:   getEnvInt("SPEED_LIMITS_CACHE_SIZE", 1024),
			CacheTTLSec: getEnvInt("SPEED_LIMITS_CACHE_TTL_SEC", 300),
		},
		Audit: &Auditconfig{
			Path: getEnv("AUDIT_DB_PATH", "violations.db"),
		},
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cnf.applyYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cnf.Validate(); err != nil {
		return nil, err
	}

	return cnf, nil
}

// applyYAML overlays the file on top of the env-built config. Keys absent
// from the file keep their env or default values.
func (c *Config) applyYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	s := c.Safety
	if s.SmoothingAlpha <= 0 || s.SmoothingAlpha > 1 {
		return fmt.Errorf("smoothing_alpha must be in (0,1], got %v", s.SmoothingAlpha)
	}
	if !(s.CautionExcessMph < s.WarningExcessMph && s.WarningExcessMph < s.DangerExcessMph) {
		return fmt.Errorf("alert thresholds must increase: caution %v, warning %v, danger %v",
			s.CautionExcessMph, s.WarningExcessMph, s.DangerExcessMph)
	}
	if s.SeverityMediumMph >= s.SeverityHighMph {
		return fmt.Errorf("severity bands must increase: medium %v, high %v",
			s.SeverityMediumMph, s.SeverityHighMph)
	}
	if s.ViolationBatchSize < 1 {
		return fmt.Errorf("violation_batch_size must be positive, got %d", s.ViolationBatchSize)
	}
	if s.TempStrikeCount < 1 || s.PermStrikeCount <= s.TempStrikeCount {
		return fmt.Errorf("strike thresholds must increase: temp %d, perm %d",
			s.TempStrikeCount, s.PermStrikeCount)
	}
	if s.StrikeExpiryDays < 1 || s.TempSuspensionDays < 1 || s.AppealWindowDays < 1 {
		return fmt.Errorf("expiry windows must be at least one day")
	}
	return nil
}
