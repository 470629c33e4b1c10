package config

import (
	"os"
	"strconv"
	"time"

	commoncfg "yourloops-dashboard/common/config"
)

// Config is the dashboard service configuration, read from the environment.
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	DataAPI struct {
		URL     string
		Timeout time.Duration
	}
	Summary struct {
		V1Enabled       bool
		CacheTTL        time.Duration
		MetricsInterval time.Duration
	}
	MetricsStream string
	MQTT          MQTTConfig
	// DisplayTimezone is the IANA zone used to render last upload dates.
	DisplayTimezone string
}

// MQTTConfig enables alarm ingestion from the monitoring broker.
type MQTTConfig struct {
	Enabled bool
	commoncfg.MQTTConfig
	AlarmTopic string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true: if the DB is unreachable the service falls back to in-memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "yourloops")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "20"), 20)
	cfg.Database.MaxIdle = 5

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.DataAPI.URL = getEnv("DATA_API_URL", "http://localhost:9220")
	cfg.DataAPI.Timeout = seconds("DATA_API_TIMEOUT_SECONDS", 30)

	cfg.Summary.V1Enabled = getEnv("SUMMARY_V1_ENABLED", "false") == "true"
	cfg.Summary.CacheTTL = seconds("SUMMARY_CACHE_TTL_SECONDS", 300)
	cfg.Summary.MetricsInterval = seconds("SUMMARY_METRICS_INTERVAL_SECONDS", 30)

	cfg.MetricsStream = getEnv("METRICS_STREAM", "yourloops:metrics")

	// MQTT alarm ingestion, disabled by default
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "yourloops-dashboard")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1
	cfg.MQTT.AlarmTopic = getEnv("MQTT_ALARM_TOPIC", "yourloops/monitoring/alarms")

	cfg.DisplayTimezone = getEnv("DISPLAY_TIMEZONE", "UTC")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func seconds(key string, def int) time.Duration {
	n := parseInt(getEnv(key, strconv.Itoa(def)), def)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
