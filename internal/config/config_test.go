package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "yourloops", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 30*time.Second, cfg.DataAPI.Timeout)
	assert.False(t, cfg.Summary.V1Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Summary.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Summary.MetricsInterval)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "UTC", cfg.DisplayTimezone)
}

func TestLoad_Overrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SUMMARY_V1_ENABLED", "true")
	t.Setenv("SUMMARY_CACHE_TTL_SECONDS", "-5")
	t.Setenv("SUMMARY_METRICS_INTERVAL_SECONDS", "10")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("MQTT_ALARM_TOPIC", "alarms")
	t.Setenv("DISPLAY_TIMEZONE", "Europe/Paris")

	cfg := Load()
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Summary.V1Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Summary.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Summary.MetricsInterval)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "alarms", cfg.MQTT.AlarmTopic)
	assert.Equal(t, "Europe/Paris", cfg.DisplayTimezone)
}
