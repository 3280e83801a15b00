package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	RabbitHost     string
	RabbitPort     int
	RabbitUser     string
	RabbitPassword string
	AggregatedSub  string
	RecTopicTmpl   string

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string
	Measurement  string

	OWMKey          string
	WeatherCacheTTL time.Duration
	RedisAddr       string // empty: in-process cache

	Sink         string // mqtt | kafka
	KafkaBrokers []string
	KafkaTopic   string

	FieldsPath  string
	TrendWindow time.Duration
	HTTPPort    string
	GRPCPort    string

	CBFails  int
	CBOpenMS int
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return def
}

func envList(key, def string) []string {
	var out []string
	for _, p := range strings.Split(env(key, def), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func loadConfig() Config {
	return Config{
		RabbitHost:     env("RABBITMQ_HOST", "localhost"),
		RabbitPort:     envInt("RABBITMQ_PORT", 1883),
		RabbitUser:     env("RABBITMQ_USER", "guest"),
		RabbitPassword: env("RABBITMQ_PASSWORD", "guest"),
		AggregatedSub:  env("AGGREGATED_SUB_TOPIC", "sensor/aggregated/#"),
		RecTopicTmpl:   env("RECOMMENDATION_TOPIC_TMPL", "event/irrigationRecommendation/{field}/{sensor}"),

		InfluxURL:    env("INFLUX_URL", "http://influxdb:8086"),
		InfluxToken:  env("INFLUX_TOKEN", ""),
		InfluxOrg:    env("INFLUX_ORG", "sdcc"),
		InfluxBucket: env("INFLUX_BUCKET", "agri"),
		Measurement:  env("MEASUREMENT", "soil_moisture"),

		OWMKey:          env("OWM_API_KEY", ""),
		WeatherCacheTTL: envDuration("WEATHER_CACHE_TTL", 30*time.Minute),
		RedisAddr:       env("REDIS_ADDR", ""),

		Sink:         strings.ToLower(env("RECOMMENDATION_SINK", "mqtt")),
		KafkaBrokers: envList("KAFKA_BROKERS", "kafka:9092"),
		KafkaTopic:   env("KAFKA_TOPIC", "irrigation.recommendations"),

		FieldsPath:  env("FIELDS_CONFIG_PATH", "/app/config/fields.json"),
		TrendWindow: envDuration("TREND_WINDOW", 24*time.Hour),
		HTTPPort:    env("HTTP_PORT", "8080"),
		GRPCPort:    env("GRPC_PORT", "50051"),

		CBFails:  envInt("CB_FAILS", 3),
		CBOpenMS: envInt("CB_OPEN_MS", 15000),
	}
}
