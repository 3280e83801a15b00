package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LeonardoBeccarini/sdcc_agronomy/internal/model/entities"
	sensorSimulator "github.com/LeonardoBeccarini/sdcc_agronomy/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/sdcc_agronomy/pkg/rabbitmq"
)

func main() {
	sensorID := flag.String("sensor-id", "sensor1", "unique sensor identifier")
	fieldID := flag.String("field-id", "field1", "unique field identifier")
	clientID := flag.String("client-id", "sensorPublisher1", "MQTT client ID")
	host := flag.String("host", "localhost", "MQTT host")
	port := flag.Int("port", 1883, "MQTT port")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	lat := flag.Float64("lat", 41.51109, "latitude")
	lon := flag.Float64("lon", 12.37007, "longitude")
	decay := flag.Float64("decay", 0.02, "moisture loss per idle minute, percentage points")
	gain := flag.Float64("gain", 0.6, "moisture gain per irrigated minute, percentage points")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := rabbitmq.NewRabbitMQConn(&rabbitmq.RabbitMQConfig{
		Host:     *host,
		Port:     *port,
		User:     "guest",
		Password: "guest",
		ClientID: *clientID,
	}, ctx)
	if err != nil {
		log.Fatal(err)
	}

	sensor := entities.Sensor{FieldID: *fieldID, ID: *sensorID, Latitude: *lat, Longitude: *lon}
	gen := sensorSimulator.NewDataGenerator(*decay, *gain)
	gen.SeedFromSoilGrids(ctx, sensor)

	sim := sensorSimulator.NewSensorSimulator(
		rabbitmq.NewConsumer(client, "event/irrigationRecommendation/"+*fieldID+"/"+*sensorID, nil),
		rabbitmq.NewPublisher(client, 5*time.Second),
		gen,
		sensor,
		sensorSimulator.DefaultRawTopic,
	)
	sim.Start(ctx, *interval)
}
