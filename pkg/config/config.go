package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Publisher names accepted in PUBLISHERS.
const (
	PublisherFile   = "file"
	PublisherGitHub = "github"
	PublisherKafka  = "kafka"
	PublisherMQTT   = "mqtt"
)

// Sheet source names accepted in SHEET_SOURCE.
const (
	SheetSourceGoogle = "google"
	SheetSourceXLSX   = "xlsx"
)

type Config struct {
	Env       string `validate:"oneof=development production"`
	Port      int    `validate:"min=1,max=65535"`
	APIPrefix string

	HTTP       HTTPConfig
	CORS       CORSConfig
	Log        LogConfig
	Monitor    MonitorConfig
	Room       RoomConfig
	Schedule   ScheduleConfig
	Sheets     SheetsConfig
	Sensor     SensorConfig
	Classifier ClassifierConfig
	Publish    PublishConfig
	GitHub     GitHubConfig
	Kafka      KafkaConfig
	MQTT       MQTTConfig
	Redis      RedisConfig
	Cache      CacheConfig
}

type HTTPConfig struct {
	Enabled bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string `validate:"omitempty,oneof=json console"`
}

// MonitorConfig controls the tick loop.
type MonitorConfig struct {
	Interval time.Duration `validate:"gt=0"`
	Timezone string        `validate:"required"`
}

// Location resolves the configured time zone.
func (m MonitorConfig) Location() (*time.Location, error) {
	return time.LoadLocation(m.Timezone)
}

// RoomConfig identifies the tracked room in the sheet and in the sensor feed.
// The two sources label the room differently.
type RoomConfig struct {
	SheetID    string `validate:"required"`
	SensorName string `validate:"required"`
}

// ScheduleConfig tunes grid decoding.
type ScheduleConfig struct {
	Year        int `validate:"min=2000,max=2100"`
	BlockRows   int `validate:"gt=0"`
	CacheTTL    time.Duration
	SnapshotTTL time.Duration
}

// SheetsConfig selects and configures the reservation grid source.
type SheetsConfig struct {
	Source          string `validate:"oneof=google xlsx"`
	SpreadsheetID   string
	Title           string
	CredentialsFile string
	TokenFile       string
	XLSXPath        string `validate:"required_if=Source xlsx"`
}

// SensorConfig configures the CO2 CSV feed.
type SensorConfig struct {
	BaseURL         string `validate:"required,url"`
	FeedID          string `validate:"required"`
	SubscriptionKey string
	Window          time.Duration `validate:"gt=0"`
	Timeout         time.Duration
}

// ClassifierConfig tunes the usage decision table.
type ClassifierConfig struct {
	HighPPM          float64 `validate:"gtfield=LowPPM"`
	LowPPM           float64 `validate:"gte=0"`
	FlagUnauthorized bool
}

// PublishConfig lists the enabled publishers.
type PublishConfig struct {
	Publishers []string `validate:"dive,oneof=file github kafka mqtt"`
	Dir        string
	FileName   string `validate:"required"`
}

// Enabled reports whether the named publisher is configured.
func (p PublishConfig) Enabled(name string) bool {
	for _, candidate := range p.Publishers {
		if candidate == name {
			return true
		}
	}
	return false
}

type GitHubConfig struct {
	Token         string
	Owner         string
	Repo          string
	Branch        string
	FilePath      string
	CommitMessage string
	BaseURL       string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type MQTTConfig struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	QoS       int `validate:"min=0,max=2"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig toggles the Redis-backed snapshot cache.
type CacheConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.HTTP = HTTPConfig{Enabled: v.GetBool("HTTP_ENABLED")}
	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Monitor = MonitorConfig{
		Interval: parseDuration(v.GetString("MONITOR_INTERVAL"), 10*time.Minute),
		Timezone: v.GetString("TIMEZONE"),
	}

	cfg.Room = RoomConfig{
		SheetID:    v.GetString("ROOM_SHEET_ID"),
		SensorName: v.GetString("ROOM_SENSOR_NAME"),
	}

	cfg.Schedule = ScheduleConfig{
		Year:        v.GetInt("SCHEDULE_YEAR"),
		BlockRows:   v.GetInt("SCHEDULE_BLOCK_ROWS"),
		CacheTTL:    parseDuration(v.GetString("SCHEDULE_CACHE_TTL"), 0),
		SnapshotTTL: parseDuration(v.GetString("SNAPSHOT_TTL"), 24*time.Hour),
	}

	cfg.Sheets = SheetsConfig{
		Source:          v.GetString("SHEET_SOURCE"),
		SpreadsheetID:   v.GetString("SHEET_ID"),
		Title:           v.GetString("SHEET_TITLE"),
		CredentialsFile: v.GetString("GOOGLE_CREDENTIALS_FILE"),
		TokenFile:       v.GetString("GOOGLE_TOKEN_FILE"),
		XLSXPath:        v.GetString("SHEET_XLSX_PATH"),
	}

	cfg.Sensor = SensorConfig{
		BaseURL:         v.GetString("SENSOR_BASE_URL"),
		FeedID:          v.GetString("SENSOR_FEED_ID"),
		SubscriptionKey: v.GetString("SENSOR_SUBSCRIPTION_KEY"),
		Window:          parseDuration(v.GetString("SENSOR_WINDOW"), time.Hour),
		Timeout:         parseDuration(v.GetString("SENSOR_TIMEOUT"), 30*time.Second),
	}

	cfg.Classifier = ClassifierConfig{
		HighPPM:          v.GetFloat64("CLASSIFIER_HIGH_PPM"),
		LowPPM:           v.GetFloat64("CLASSIFIER_LOW_PPM"),
		FlagUnauthorized: v.GetBool("CLASSIFIER_FLAG_UNAUTHORIZED"),
	}

	cfg.Publish = PublishConfig{
		Publishers: splitAndTrim(v.GetString("PUBLISHERS")),
		Dir:        v.GetString("PUBLISH_DIR"),
		FileName:   v.GetString("PUBLISH_FILE_NAME"),
	}

	cfg.GitHub = GitHubConfig{
		Token:         v.GetString("GITHUB_TOKEN"),
		Owner:         v.GetString("REPO_OWNER"),
		Repo:          v.GetString("REPO_NAME"),
		Branch:        v.GetString("BRANCH"),
		FilePath:      v.GetString("FILE_PATH"),
		CommitMessage: v.GetString("GITHUB_COMMIT_MESSAGE"),
		BaseURL:       v.GetString("GITHUB_API_URL"),
	}

	cfg.Kafka = KafkaConfig{
		Brokers: splitAndTrim(v.GetString("KAFKA_BROKERS")),
		Topic:   v.GetString("KAFKA_TOPIC"),
	}

	cfg.MQTT = MQTTConfig{
		BrokerURL: v.GetString("MQTT_BROKER_URL"),
		ClientID:  v.GetString("MQTT_CLIENT_ID"),
		Topic:     v.GetString("MQTT_TOPIC"),
		Username:  v.GetString("MQTT_USERNAME"),
		Password:  v.GetString("MQTT_PASSWORD"),
		QoS:       v.GetInt("MQTT_QOS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Cache = CacheConfig{Enabled: v.GetBool("ENABLE_CACHE")}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct constraints and cross-field publisher requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Monitor.Location(); err != nil {
		return fmt.Errorf("invalid config: TIMEZONE: %w", err)
	}
	if c.Sheets.Source == SheetSourceGoogle && c.Sheets.SpreadsheetID == "" && c.Sheets.Title == "" {
		return errors.New("invalid config: SHEET_ID or SHEET_TITLE is required for the google source")
	}
	if c.Publish.Enabled(PublisherGitHub) {
		if c.GitHub.Token == "" || c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return errors.New("invalid config: GITHUB_TOKEN, REPO_OWNER and REPO_NAME are required for the github publisher")
		}
	}
	if c.Publish.Enabled(PublisherKafka) && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("invalid config: KAFKA_BROKERS and KAFKA_TOPIC are required for the kafka publisher")
	}
	if c.Publish.Enabled(PublisherMQTT) && (c.MQTT.BrokerURL == "" || c.MQTT.Topic == "") {
		return errors.New("invalid config: MQTT_BROKER_URL and MQTT_TOPIC are required for the mqtt publisher")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("HTTP_ENABLED", true)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MONITOR_INTERVAL", "10m")
	v.SetDefault("TIMEZONE", "Asia/Tokyo")

	v.SetDefault("ROOM_SHEET_ID", "R3-301")
	v.SetDefault("ROOM_SENSOR_NAME", "Ｒ３ー４０１")

	v.SetDefault("SCHEDULE_YEAR", 2025)
	v.SetDefault("SCHEDULE_BLOCK_ROWS", 5)
	v.SetDefault("SCHEDULE_CACHE_TTL", "0s")
	v.SetDefault("SNAPSHOT_TTL", "24h")

	v.SetDefault("SHEET_SOURCE", SheetSourceGoogle)
	v.SetDefault("SHEET_ID", "")
	v.SetDefault("SHEET_TITLE", "自由使用向け予定表")
	v.SetDefault("GOOGLE_CREDENTIALS_FILE", "./client_secret.json")
	v.SetDefault("GOOGLE_TOKEN_FILE", "./token.json")
	v.SetDefault("SHEET_XLSX_PATH", "")

	v.SetDefault("SENSOR_BASE_URL", "https://airoco.necolico.jp/data-api/day-csv")
	v.SetDefault("SENSOR_FEED_ID", "CgETViZ2")
	v.SetDefault("SENSOR_SUBSCRIPTION_KEY", "")
	v.SetDefault("SENSOR_WINDOW", "1h")
	v.SetDefault("SENSOR_TIMEOUT", "30s")

	v.SetDefault("CLASSIFIER_HIGH_PPM", 1000)
	v.SetDefault("CLASSIFIER_LOW_PPM", 600)
	v.SetDefault("CLASSIFIER_FLAG_UNAUTHORIZED", false)

	v.SetDefault("PUBLISHERS", PublisherFile)
	v.SetDefault("PUBLISH_DIR", "./public")
	v.SetDefault("PUBLISH_FILE_NAME", "status.json")

	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("REPO_OWNER", "")
	v.SetDefault("REPO_NAME", "")
	v.SetDefault("BRANCH", "main")
	v.SetDefault("FILE_PATH", "status.json")
	v.SetDefault("GITHUB_COMMIT_MESSAGE", "Update classroom status data")
	v.SetDefault("GITHUB_API_URL", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "room.status")

	v.SetDefault("MQTT_BROKER_URL", "")
	v.SetDefault("MQTT_CLIENT_ID", "room-monitor")
	v.SetDefault("MQTT_TOPIC", "rooms/status")
	v.SetDefault("MQTT_USERNAME", "")
	v.SetDefault("MQTT_PASSWORD", "")
	v.SetDefault("MQTT_QOS", 1)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_CACHE", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
