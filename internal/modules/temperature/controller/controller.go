package controller

import (
	"context"
	"net/http"

	"thermolog-server/internal/modules/temperature/types"
)

// Ingester accepts submissions; implemented by service.IngestionService.
type Ingester interface {
	Authorize(key string) error
	Submit(ctx context.Context, sub types.Submission) (types.Reading, error)
}

// DayQuerier answers day queries; implemented by service.QueryService.
type DayQuerier interface {
	QueryDay(ctx context.Context, date string) ([]types.Reading, error)
}

type TemperatureController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type temperatureControllerImpl struct {
	ingest Ingester
	query  DayQuerier
}

func NewTemperatureController(ingest Ingester, query DayQuerier) TemperatureController {
	return &temperatureControllerImpl{ingest: ingest, query: query}
}

func (c *temperatureControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/temperature", c.handleIngest)
	mux.HandleFunc("GET /api/temperature/day", c.handleDay)
	mux.HandleFunc("GET /api/test", c.handleTest)
}
