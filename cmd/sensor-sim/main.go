package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/lmittmann/tint"

	"thermolog-server/internal/simulator"
)

func main() {
	mode := flag.String("mode", "http", "transport: http or mqtt")
	serverURL := flag.String("url", "http://localhost:8080", "server base URL (http mode)")
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address (mqtt mode)")
	topicPrefix := flag.String("topic-prefix", "thermolog", "MQTT topic prefix (mqtt mode)")
	deviceID := flag.String("device-id", "sim-sensor-1", "device identifier")
	apiKey := flag.String("api-key", os.Getenv("API_KEY"), "shared secret sent with each reading")
	interval := flag.Duration("interval", 5*time.Second, "interval between readings")
	base := flag.Float64("base", 21.0, "baseline temperature in °C")
	step := flag.Float64("step", 0.3, "maximum change per reading")
	spread := flag.Float64("spread", 5.0, "maximum distance from baseline")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{TimeFormat: time.Kitchen}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pub simulator.Publisher
	switch *mode {
	case "http":
		pub = simulator.NewHTTPPublisher(*serverURL, 10*time.Second)
	case "mqtt":
		clientID := fmt.Sprintf("%s-simulator-%d", *deviceID, time.Now().UnixNano())
		client := mqtt.NewClient(mqtt.NewClientOptions().AddBroker(*broker).SetClientID(clientID))
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			slog.Error("mqtt connect failed", "broker", *broker, "error", token.Error())
			os.Exit(1)
		}
		defer client.Disconnect(250)
		pub = simulator.NewMQTTPublisher(client, *topicPrefix)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q (allowed: http, mqtt)\n", *mode)
		os.Exit(2)
	}

	walk := simulator.NewWalk(*base, *step, *spread, uint64(time.Now().UnixNano()))
	slog.Info("simulating", "mode", *mode, "device_id", *deviceID, "interval", *interval)

	if err := simulator.Run(ctx, pub, *deviceID, *apiKey, walk, *interval, logger); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("simulator stopped", "error", err)
		os.Exit(1)
	}
}
