package service

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"math"
	"strings"

	"thermolog-server/internal/modules/temperature/repository"
	"thermolog-server/internal/modules/temperature/types"
)

const (
	msgIncompleteData     = "incomplete data"
	msgInvalidTemperature = "invalid temperature"
)

type IngestionService struct {
	repository repository.ReadingRepository
	apiKey     string
}

// NewIngestionService returns a service appending validated readings to repo.
// An empty apiKey disables the credential check.
func NewIngestionService(repo repository.ReadingRepository, apiKey string) *IngestionService {
	return &IngestionService{repository: repo, apiKey: apiKey}
}

// Authorize reports ErrUnauthorized when a key is configured and key does not match it.
func (s *IngestionService) Authorize(key string) error {
	if s.apiKey == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
		return types.ErrUnauthorized
	}
	return nil
}

// Submit validates sub and appends exactly one reading on success. No store
// call is made when validation fails.
func (s *IngestionService) Submit(ctx context.Context, sub types.Submission) (types.Reading, error) {
	if err := s.Authorize(sub.APIKey); err != nil {
		return types.Reading{}, err
	}

	temperature, err := parseTemperature(sub.Temperature)
	if err != nil {
		return types.Reading{}, err
	}

	deviceID := strings.TrimSpace(sub.DeviceID)
	if deviceID == "" {
		deviceID = types.UnknownDeviceID
	}

	reading, err := s.repository.Append(ctx, types.Reading{
		DeviceID:    deviceID,
		Temperature: temperature,
	})
	if err != nil {
		return types.Reading{}, err
	}

	slog.Debug("reading stored",
		"id", reading.ID,
		"device_id", reading.DeviceID,
		"temperature", reading.Temperature,
	)
	return reading, nil
}

// parseTemperature accepts only a JSON number representable as a finite float64.
func parseTemperature(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, types.InvalidInput(msgIncompleteData)
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return 0, types.InvalidInput(msgInvalidTemperature)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, types.InvalidInput(msgInvalidTemperature)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, types.InvalidInput(msgInvalidTemperature)
	}
	return v, nil
}
