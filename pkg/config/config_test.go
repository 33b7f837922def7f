package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 10*time.Minute, cfg.Monitor.Interval)
	assert.Equal(t, "Asia/Tokyo", cfg.Monitor.Timezone)
	assert.Equal(t, "R3-301", cfg.Room.SheetID)
	assert.Equal(t, "Ｒ３ー４０１", cfg.Room.SensorName)
	assert.Equal(t, 2025, cfg.Schedule.Year)
	assert.Equal(t, 5, cfg.Schedule.BlockRows)
	assert.Equal(t, time.Hour, cfg.Sensor.Window)
	assert.Equal(t, 1000.0, cfg.Classifier.HighPPM)
	assert.Equal(t, 600.0, cfg.Classifier.LowPPM)
	assert.False(t, cfg.Classifier.FlagUnauthorized)
	assert.Equal(t, []string{PublisherFile}, cfg.Publish.Publishers)
	assert.True(t, cfg.Publish.Enabled(PublisherFile))
	assert.False(t, cfg.Publish.Enabled(PublisherGitHub))
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL", "90s")
	t.Setenv("PUBLISHERS", "file, kafka")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("CLASSIFIER_FLAG_UNAUTHORIZED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, []string{"file", "kafka"}, cfg.Publish.Publishers)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Classifier.FlagUnauthorized)
}

func TestLoadRejectsGitHubPublisherWithoutCredentials(t *testing.T) {
	t.Setenv("PUBLISHERS", "github")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}

func TestLoadRejectsUnknownPublisher(t *testing.T) {
	t.Setenv("PUBLISHERS", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	t.Setenv("CLASSIFIER_HIGH_PPM", "500")
	t.Setenv("CLASSIFIER_LOW_PPM", "600")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresXLSXPathForXLSXSource(t *testing.T) {
	t.Setenv("SHEET_SOURCE", "xlsx")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("SHEET_XLSX_PATH", "/tmp/schedule.xlsx")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SheetSourceXLSX, cfg.Sheets.Source)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
