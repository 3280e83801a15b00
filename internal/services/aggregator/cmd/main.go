package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/aggregator"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := &rabbitmq.RabbitMQConfig{
		Host:     env("RABBITMQ_HOST", "localhost"),
		Port:     envInt("RABBITMQ_PORT", 1883),
		User:     env("RABBITMQ_USER", "guest"),
		Password: env("RABBITMQ_PASSWORD", "guest"),
		ClientID: fmt.Sprintf("aggregator-%s", env("HOSTNAME", "local")),
	}
	client, err := rabbitmq.NewRabbitMQConn(cfg, ctx)
	if err != nil {
		log.Fatalf("aggregator: MQTT connect failed: %v", err)
	}

	rawSub := env("RAW_SUB_TOPIC", "sensor/data/#")
	interval := time.Duration(envInt("AGGREGATION_INTERVAL_SEC", 60)) * time.Second

	svc := aggregator.NewService(
		rabbitmq.NewConsumer(client, rawSub, nil),
		rabbitmq.NewPublisher(client, 5*time.Second),
		env("AGGREGATED_TOPIC_TMPL", aggregator.DefaultAggregatedTopic),
		interval,
	)

	log.Printf("aggregator: running sub=%s interval=%s", rawSub, interval)
	svc.Start(ctx)
	log.Println("aggregator: stopped")
}
