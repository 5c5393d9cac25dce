package service

import (
	"context"
	"log/slog"

	"thermolog-server/internal/modules/temperature/types"
	"thermolog-server/internal/mqtt"
)

// RegisterMQTT routes every message received by subscriber through Submit, so
// MQTT readings obey the same validation as HTTP ones.
func (s *IngestionService) RegisterMQTT(subscriber mqtt.MQTTSubscriber, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	subscriber.SetMessageHandler(func(ctx context.Context, sub types.Submission) error {
		logger.Debug("processing mqtt reading", "device_id", sub.DeviceID)

		reading, err := s.Submit(ctx, sub)
		if err != nil {
			return err
		}

		logger.Debug("successfully stored mqtt reading",
			"id", reading.ID,
			"device_id", reading.DeviceID,
		)
		return nil
	})
}
