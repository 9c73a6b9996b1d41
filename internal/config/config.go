package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/leplonghi/Horamed-AG-sub003/common/config"
)

// Config horamed-scheduler settings
type Config struct {
	HTTP struct {
		Addr string
	}

	DBEnabled bool
	Database  config.DatabaseConfig
	Redis     config.RedisConfig
	MQTT      config.MQTTConfig

	// Schedule expansion
	Schedule struct {
		WindowDays      int
		MinInterval     time.Duration // skip a pass when the last success is younger
		RunInterval     time.Duration // periodic runner tick
		Concurrency     int           // parallel schedules per pass
		BatchSize       int           // users per runner batch
		MissedGrace     time.Duration
		DefaultTimezone string
	}

	// Alert evaluation
	Alert struct {
		PollInterval         time.Duration
		Cooldown             time.Duration
		DismissTTL           time.Duration
		OverdueWindow        time.Duration
		CriticalAfter        time.Duration
		ElderlyAge           int
		ElderlyCriticalAfter time.Duration
		DuplicateWindow      time.Duration
		InteractionsFile     string // empty uses the built-in table
	}

	MedicationCacheTTL time.Duration

	// Reschedule signal for the notification collaborator
	Notify struct {
		Mode       string // stream | mqtt | webhook | none
		Stream     string
		Topic      string
		WebhookURL string
	}

	// Medication change events
	Events struct {
		Stream        string
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the service configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.DBEnabled = parseBool(getEnv("DB_ENABLED", "true"), true)
	cfg.Database = config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "horamed",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = config.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT = config.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "horamed-scheduler",
		QoS:      1,
	}
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Schedule.WindowDays = parseInt(getEnv("SCHEDULE_WINDOW_DAYS", "7"), 7)
	cfg.Schedule.MinInterval = parseDuration(getEnv("SCHEDULE_MIN_INTERVAL", "6h"), 6*time.Hour)
	cfg.Schedule.RunInterval = parseDuration(getEnv("SCHEDULE_RUN_INTERVAL", "6h"), 6*time.Hour)
	cfg.Schedule.Concurrency = parseInt(getEnv("SCHEDULE_CONCURRENCY", "4"), 4)
	cfg.Schedule.BatchSize = parseInt(getEnv("SCHEDULE_BATCH_SIZE", "50"), 50)
	cfg.Schedule.MissedGrace = parseDuration(getEnv("SCHEDULE_MISSED_GRACE", "4h"), 4*time.Hour)
	cfg.Schedule.DefaultTimezone = getEnv("DEFAULT_TIMEZONE", "UTC")

	cfg.Alert.PollInterval = parseDuration(getEnv("ALERT_POLL_INTERVAL", "60s"), time.Minute)
	cfg.Alert.Cooldown = parseDuration(getEnv("ALERT_COOLDOWN", "5s"), 5*time.Second)
	cfg.Alert.DismissTTL = parseDuration(getEnv("ALERT_DISMISS_TTL", "24h"), 24*time.Hour)
	cfg.Alert.OverdueWindow = parseDuration(getEnv("ALERT_OVERDUE_WINDOW", "4h"), 4*time.Hour)
	cfg.Alert.CriticalAfter = parseDuration(getEnv("ALERT_CRITICAL_AFTER", "2h"), 2*time.Hour)
	cfg.Alert.ElderlyAge = parseInt(getEnv("ALERT_ELDERLY_AGE", "65"), 65)
	cfg.Alert.ElderlyCriticalAfter = parseDuration(getEnv("ALERT_ELDERLY_CRITICAL_AFTER", "2h"), 2*time.Hour)
	cfg.Alert.DuplicateWindow = parseDuration(getEnv("ALERT_DUPLICATE_WINDOW", "4h"), 4*time.Hour)
	cfg.Alert.InteractionsFile = getEnv("INTERACTIONS_FILE", "")

	cfg.MedicationCacheTTL = parseDuration(getEnv("MED_CACHE_TTL", "10m"), 10*time.Minute)

	cfg.Notify.Mode = strings.ToLower(getEnv("NOTIFY_MODE", "stream"))
	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "doses:notifications")
	cfg.Notify.Topic = getEnv("NOTIFY_TOPIC", "horamed/doses/reschedule")
	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")

	cfg.Events.Stream = getEnv("MEDICATION_EVENT_STREAM", "medication:events")
	cfg.Events.ConsumerGroup = getEnv("MEDICATION_CONSUMER_GROUP", "horamed-scheduler-group")
	cfg.Events.ConsumerName = getEnv("MEDICATION_CONSUMER_NAME", "horamed-scheduler-1")
	cfg.Events.BatchSize = 10

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

func parseBool(s string, def bool) bool {
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(s); err == nil && v > 0 {
		return v
	}
	return def
}
