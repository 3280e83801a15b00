package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/agronomy"
	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/services/advisor"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/dedup"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

func main() {
	cfg := loadConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fields, err := advisor.LoadFieldRegistry(cfg.FieldsPath)
	if err != nil {
		log.Fatalf("advisor: load fields: %v", err)
	}
	log.Printf("advisor: loaded %d field profiles from %s", fields.Len(), cfg.FieldsPath)

	openFor := time.Duration(cfg.CBOpenMS) * time.Millisecond

	// weather: OpenWeather -> breaker -> cache
	var cache advisor.ForecastCache = advisor.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		cache = advisor.NewRedisCache(rdb, "")
	}
	weather := advisor.NewCachedWeather(
		advisor.NewBreakerWeather(
			advisor.NewOWMClient(cfg.OWMKey, 5*time.Second),
			advisor.NewBreaker("owm", cfg.CBFails, openFor, time.Minute),
		),
		cache, cfg.WeatherCacheTTL,
	)

	readiness := map[string]func(context.Context) bool{}

	// history
	var (
		store  advisor.ReadingStore
		writer advisor.RecommendationWriter
	)
	if cfg.InfluxToken != "" {
		is, err := advisor.NewInfluxStore(advisor.InfluxConfig{
			URL:         cfg.InfluxURL,
			Token:       cfg.InfluxToken,
			Org:         cfg.InfluxOrg,
			Bucket:      cfg.InfluxBucket,
			Measurement: cfg.Measurement,
		}, advisor.NewBreaker("influx", cfg.CBFails, openFor, time.Minute))
		if err != nil {
			log.Fatalf("advisor: influx: %v", err)
		}
		defer is.Close()
		store, writer = is, is
		readiness["influx"] = is.Ping
	} else {
		log.Printf("advisor: INFLUX_TOKEN empty, running without history")
	}

	// broker
	mq, err := rabbitmq.NewRabbitMQConn(&rabbitmq.RabbitMQConfig{
		Host:     cfg.RabbitHost,
		Port:     cfg.RabbitPort,
		User:     cfg.RabbitUser,
		Password: cfg.RabbitPassword,
		ClientID: fmt.Sprintf("advisor-%s", env("HOSTNAME", "local")),
	}, ctx)
	if err != nil {
		log.Fatalf("advisor: MQTT connect failed: %v", err)
	}
	readiness["mqtt"] = func(context.Context) bool { return mq.IsConnectionOpen() }

	var sink advisor.Sink
	switch cfg.Sink {
	case "kafka":
		sink = advisor.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	default:
		sink = advisor.NewMQTTSink(rabbitmq.NewPublisher(mq, 5*time.Second), cfg.RecTopicTmpl)
	}
	defer sink.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := advisor.NewService(advisor.Deps{
		Tables:      agronomy.DefaultTables(),
		Fields:      fields,
		Weather:     weather,
		Store:       store,
		Writer:      writer,
		Sink:        sink,
		Consumer:    rabbitmq.NewConsumer(mq, cfg.AggregatedSub, nil),
		Metrics:     advisor.NewMetrics(reg),
		Dedup:       dedup.New(10*time.Minute, 10000),
		TrendWindow: cfg.TrendWindow,
		Readiness:   readiness,
	})
	if err != nil {
		log.Fatalf("advisor: init: %v", err)
	}

	// gRPC
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatalf("advisor: listen grpc: %v", err)
	}
	grpcServer := grpc.NewServer()
	advisor.RegisterAdvisor(grpcServer, svc)
	go func() {
		log.Printf("advisor: gRPC listening on :%s", cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("advisor: gRPC serve: %v", err)
		}
	}()

	// HTTP
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handlers.LoggingHandler(os.Stdout, advisor.NewRouter(svc, reg)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("advisor: HTTP listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("advisor: http: %v", err)
		}
	}()

	log.Printf("advisor: running sub=%s sink=%s", cfg.AggregatedSub, cfg.Sink)
	svc.Start(ctx)

	log.Println("advisor: shutting down...")
	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	grpcServer.GracefulStop()
}
