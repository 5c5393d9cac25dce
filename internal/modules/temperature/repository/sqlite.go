package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"thermolog-server/internal/modules/temperature/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-readings-range.sql
var getReadingsRangeSQL string

// tsLayout is fixed width so that text comparison in SQLite matches time order.
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type sqliteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) ReadingRepository {
	return &sqliteRepository{db: db, now: time.Now}
}

func (r *sqliteRepository) Append(ctx context.Context, reading types.Reading) (types.Reading, error) {
	reading = stamp(reading, r.now)
	id, err := uuid.NewRandom()
	if err != nil {
		return types.Reading{}, fmt.Errorf("generate reading id: %w", err)
	}
	reading.ID = id.String()

	_, err = r.db.ExecContext(ctx, insertReadingSQL,
		reading.ID,
		reading.DeviceID,
		reading.Temperature,
		reading.Timestamp.Format(tsLayout),
	)
	if err != nil {
		return types.Reading{}, fmt.Errorf("%w: insert reading: %w", types.ErrStorageUnavailable, err)
	}
	return reading, nil
}

func (r *sqliteRepository) RangeQuery(ctx context.Context, start, end time.Time) ([]types.Reading, error) {
	rows, err := r.db.QueryContext(ctx, getReadingsRangeSQL,
		start.UTC().Format(tsLayout),
		end.UTC().Format(tsLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query readings: %w", types.ErrStorageUnavailable, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close readings rows", "error", err)
		}
	}()

	out, err := scanReadings(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: scan readings: %w", types.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (r *sqliteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", types.ErrStorageUnavailable, err)
	}
	return nil
}

func scanReadings(rows *sql.Rows) ([]types.Reading, error) {
	out := []types.Reading{}
	for rows.Next() {
		var rec types.Reading
		var ts string
		if err := rows.Scan(&rec.ID, &rec.DeviceID, &rec.Temperature, &ts); err != nil {
			return nil, err
		}
		t, err := time.Parse(tsLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", ts, err)
		}
		rec.Timestamp = t.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
