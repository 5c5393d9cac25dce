package service

import (
	"context"
	"time"

	"thermolog-server/internal/modules/temperature/repository"
	"thermolog-server/internal/modules/temperature/types"
)

const dateLayout = "2006-01-02"

type QueryService struct {
	repository repository.ReadingRepository
	loc        *time.Location
	now        func() time.Time
}

// NewQueryService answers day queries with windows computed in loc, which is
// the configured day-window policy (UTC by default).
func NewQueryService(repo repository.ReadingRepository, loc *time.Location) *QueryService {
	if loc == nil {
		loc = time.UTC
	}
	return &QueryService{repository: repo, loc: loc, now: time.Now}
}

// Window returns the closed interval [00:00:00.000, 23:59:59.999] of date in
// the service's location. An empty date means today.
func (s *QueryService) Window(date string) (types.DayWindow, error) {
	var start time.Time
	if date == "" {
		y, m, d := s.now().In(s.loc).Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	} else {
		t, err := time.ParseInLocation(dateLayout, date, s.loc)
		if err != nil {
			return types.DayWindow{}, types.InvalidInput("invalid date")
		}
		start = t
	}
	// AddDate keeps 23h and 25h DST days correct for non-UTC locations.
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return types.DayWindow{Date: start.Format(dateLayout), Start: start, End: end}, nil
}

// QueryDay returns the readings of one calendar day, oldest first.
func (s *QueryService) QueryDay(ctx context.Context, date string) ([]types.Reading, error) {
	w, err := s.Window(date)
	if err != nil {
		return nil, err
	}
	return s.repository.RangeQuery(ctx, w.Start, w.End)
}
