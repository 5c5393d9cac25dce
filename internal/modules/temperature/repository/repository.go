package repository

import (
	"context"
	"time"

	"thermolog-server/internal/modules/temperature/types"
)

// ReadingRepository is the append-only store of temperature readings.
type ReadingRepository interface {
	// Append persists r, assigning ID and, when zero, Timestamp. It returns the stored reading.
	Append(ctx context.Context, r types.Reading) (types.Reading, error)
	// RangeQuery returns readings with start <= Timestamp <= end, oldest first.
	RangeQuery(ctx context.Context, start, end time.Time) ([]types.Reading, error)
	Ping(ctx context.Context) error
}

// stamp fills the server-side timestamp. Stored timestamps carry millisecond
// precision so closed day windows ending at .999 leave no gaps.
func stamp(r types.Reading, now func() time.Time) types.Reading {
	if r.Timestamp.IsZero() {
		r.Timestamp = now()
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Millisecond)
	return r
}
