package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"thermolog-server/internal/modules/temperature/types"
)

type rangeCall struct {
	start, end time.Time
}

// fakeRepo records calls and returns canned results.
type fakeRepo struct {
	mu         sync.Mutex
	appended   []types.Reading
	appendErr  error
	ranges     []rangeCall
	readings   []types.Reading
	rangeErr   error
	pingErr    error
	assignedAt time.Time
}

func (f *fakeRepo) Append(_ context.Context, r types.Reading) (types.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return types.Reading{}, f.appendErr
	}
	r.ID = "id-" + strconv.Itoa(len(f.appended)+1)
	r.Timestamp = f.assignedAt
	f.appended = append(f.appended, r)
	return r, nil
}

func (f *fakeRepo) RangeQuery(_ context.Context, start, end time.Time) ([]types.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ranges = append(f.ranges, rangeCall{start: start, end: end})
	if f.rangeErr != nil {
		return nil, f.rangeErr
	}
	if f.readings == nil {
		return []types.Reading{}, nil
	}
	return f.readings, nil
}

func (f *fakeRepo) Ping(context.Context) error {
	return f.pingErr
}
