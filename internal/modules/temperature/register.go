package temperature

import (
	"log/slog"
	"net/http"
	"time"

	"thermolog-server/internal/modules/temperature/controller"
	"thermolog-server/internal/modules/temperature/repository"
	"thermolog-server/internal/modules/temperature/service"
	"thermolog-server/internal/mqtt"
)

// Options configures the temperature feature.
type Options struct {
	APIKey string
	// DayWindow is the location day queries are computed in; nil means UTC.
	DayWindow *time.Location
	// Subscriber, when non-nil, also receives readings over MQTT.
	Subscriber mqtt.MQTTSubscriber
	Logger     *slog.Logger
}

// RegisterFeature wires the ingestion and query services over repo and mounts
// their routes on mux.
func RegisterFeature(mux *http.ServeMux, repo repository.ReadingRepository, opts Options) {
	ingest := service.NewIngestionService(repo, opts.APIKey)
	query := service.NewQueryService(repo, opts.DayWindow)

	temperatureController := controller.NewTemperatureController(ingest, query)
	temperatureController.RegisterRoutes(mux)

	if opts.Subscriber != nil {
		ingest.RegisterMQTT(opts.Subscriber, opts.Logger)
	}
}
