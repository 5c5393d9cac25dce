// Package simulator emits synthetic temperature readings for local testing,
// over HTTP or MQTT.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-resty/resty/v2"
)

// Payload is the body a sensor submits.
type Payload struct {
	DeviceID    string  `json:"deviceId"`
	Temperature float64 `json:"temperature"`
	APIKey      string  `json:"apiKey,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, p Payload) error
}

// HTTPPublisher posts readings to the ingestion endpoint. Each reading is sent
// once: ingestion is not idempotent, and the next tick supersedes a lost one.
type HTTPPublisher struct {
	client *resty.Client
}

func NewHTTPPublisher(baseURL string, timeout time.Duration) *HTTPPublisher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPPublisher{client: client}
}

func (p *HTTPPublisher) Publish(ctx context.Context, payload Payload) error {
	var errBody struct {
		Error string `json:"error"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(&errBody).
		Post("/api/temperature")
	if err != nil {
		return fmt.Errorf("post reading: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post reading: status %d: %s", resp.StatusCode(), errBody.Error)
	}
	return nil
}

// MQTTPublisher publishes readings to "<prefix>/<deviceId>/temperature".
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

func NewMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix}
}

func (p *MQTTPublisher) Topic(deviceID string) string {
	return fmt.Sprintf("%s/%s/temperature", p.prefix, deviceID)
}

func (p *MQTTPublisher) Publish(ctx context.Context, payload Payload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := p.client.Publish(p.Topic(payload.DeviceID), 1, false, data)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Walk is a bounded random walk around a base temperature.
type Walk struct {
	Base   float64
	Step   float64
	Spread float64

	current float64
	rng     *rand.Rand
}

func NewWalk(base, step, spread float64, seed uint64) *Walk {
	return &Walk{
		Base:    base,
		Step:    step,
		Spread:  spread,
		current: base,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next returns the next value rounded to 0.01, staying within Base±Spread.
func (w *Walk) Next() float64 {
	w.current += (w.rng.Float64()*2 - 1) * w.Step
	w.current = math.Max(w.Base-w.Spread, math.Min(w.Base+w.Spread, w.current))
	return math.Round(w.current*100) / 100
}

// Run publishes one reading per interval until ctx is done. Publish errors are
// logged and do not stop the loop.
func Run(ctx context.Context, pub Publisher, deviceID, apiKey string, walk *Walk, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		payload := Payload{DeviceID: deviceID, Temperature: walk.Next(), APIKey: apiKey}
		if err := pub.Publish(ctx, payload); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			logger.Warn("publish failed", "device_id", deviceID, "error", err)
		} else {
			logger.Info("published", "device_id", deviceID, "temperature", payload.Temperature)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
