package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/persistence"
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
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mqClient, err := rabbitmq.NewRabbitMQConn(&rabbitmq.RabbitMQConfig{
		Host:     env("RABBITMQ_HOST", "localhost"),
		Port:     envInt("RABBITMQ_PORT", 1883),
		User:     env("RABBITMQ_USER", "guest"),
		Password: env("RABBITMQ_PASSWORD", "guest"),
		ClientID: fmt.Sprintf("persistence-%s", env("HOSTNAME", "local")),
	}, ctx)
	if err != nil {
		log.Fatalf("persistence: mqtt connect failed: %v", err)
	}
	topic := env("AGGREGATED_SUB_TOPIC", "sensor/aggregated/#")

	influxToken := env("INFLUX_TOKEN", "")
	if influxToken == "" {
		log.Fatalf("persistence: INFLUX_TOKEN required")
	}
	influxClient := influxdb2.NewClient(env("INFLUX_URL", "http://localhost:8086"), influxToken)
	defer influxClient.Close()
	writer := influxClient.WriteAPIBlocking(env("INFLUX_ORG", "sdcc"), env("INFLUX_BUCKET", "agri"))

	svc, err := persistence.NewService(rabbitmq.NewConsumer(mqClient, topic, nil), writer, env("MEASUREMENT", "soil_moisture"))
	if err != nil {
		log.Fatalf("persistence: init failed: %v", err)
	}

	httpPort := env("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           handlers.LoggingHandler(os.Stdout, persistence.NewRouter(svc)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("persistence: HTTP listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("persistence: http server error: %v", err)
		}
	}()

	log.Printf("persistence: consuming %s", topic)
	svc.Start(ctx)

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("persistence: shutdown complete")
}
