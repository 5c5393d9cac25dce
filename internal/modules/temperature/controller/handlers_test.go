package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"thermolog-server/internal/modules/temperature/service"
	"thermolog-server/internal/modules/temperature/types"
)

type mockRepo struct {
	mu        sync.Mutex
	readings  []types.Reading
	appendErr error
	rangeErr  error
	now       time.Time
}

func (m *mockRepo) Append(_ context.Context, r types.Reading) (types.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return types.Reading{}, m.appendErr
	}
	r.ID = fmt.Sprintf("r%d", len(m.readings)+1)
	r.Timestamp = m.now.Add(time.Duration(len(m.readings)) * time.Second)
	m.readings = append(m.readings, r)
	return r, nil
}

func (m *mockRepo) RangeQuery(_ context.Context, start, end time.Time) ([]types.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rangeErr != nil {
		return nil, m.rangeErr
	}
	out := []types.Reading{}
	for _, r := range m.readings {
		if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) Ping(context.Context) error { return nil }

var testDay = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestMux(repo *mockRepo, apiKey string) *http.ServeMux {
	mux := http.NewServeMux()
	ctrl := NewTemperatureController(
		service.NewIngestionService(repo, apiKey),
		service.NewQueryService(repo, time.UTC),
	)
	ctrl.RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/temperature", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	return body["error"]
}

func Test_handleIngest(t *testing.T) {
	t.Run("stores reading and returns id", func(t *testing.T) {
		repo := &mockRepo{now: testDay}
		rec := do(t, newTestMux(repo, ""), postJSON(`{"deviceId":"esp32-1","temperature":24.5}`))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d; body %s", rec.Code, http.StatusOK, rec.Body)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
		var got ingestResponse
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Message != "OK" || got.SavedID != "r1" {
			t.Errorf("response = %+v", got)
		}
		if len(repo.readings) != 1 || repo.readings[0].DeviceID != "esp32-1" || repo.readings[0].Temperature != 24.5 {
			t.Errorf("stored = %+v", repo.readings)
		}
	})

	t.Run("client timestamp is ignored", func(t *testing.T) {
		repo := &mockRepo{now: testDay}
		rec := do(t, newTestMux(repo, ""), postJSON(`{"temperature":20,"timestamp":"1999-01-01T00:00:00Z"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !repo.readings[0].Timestamp.Equal(testDay) {
			t.Errorf("Timestamp = %v; want store-assigned %v", repo.readings[0].Timestamp, testDay)
		}
		if repo.readings[0].DeviceID != types.UnknownDeviceID {
			t.Errorf("DeviceID = %q", repo.readings[0].DeviceID)
		}
	})

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"non-numeric temperature", `{"deviceId":"esp32-1","temperature":"hot"}`, "invalid temperature"},
		{"null temperature", `{"temperature":null}`, "invalid temperature"},
		{"missing temperature", `{"deviceId":"esp32-1"}`, "incomplete data"},
		{"empty object", `{}`, "incomplete data"},
		{"malformed json", `{"temperature":`, "invalid request body"},
		{"not an object", `[1,2]`, "invalid request body"},
		{"empty body", ``, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{now: testDay}
			rec := do(t, newTestMux(repo, ""), postJSON(tt.body))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
			}
			if msg := decodeError(t, rec); msg != tt.wantMsg {
				t.Errorf("error = %q; want %q", msg, tt.wantMsg)
			}
			if len(repo.readings) != 0 {
				t.Errorf("store modified on rejected request")
			}
		})
	}

	t.Run("body too large", func(t *testing.T) {
		repo := &mockRepo{now: testDay}
		big := `{"deviceId":"` + strings.Repeat("a", maxBodyBytes) + `","temperature":1}`
		rec := do(t, newTestMux(repo, ""), postJSON(big))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
		}
		if msg := decodeError(t, rec); msg != msgBodyTooLarge {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("credential", func(t *testing.T) {
		repo := &mockRepo{now: testDay}
		mux := newTestMux(repo, "s3cret")

		rec := do(t, mux, postJSON(`{"temperature":21}`))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("missing key: status = %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "unauthorized" {
			t.Errorf("error = %q", msg)
		}

		rec = do(t, mux, postJSON(`{"temperature":21,"apiKey":"nope"}`))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("wrong key: status = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "s3cret") {
			t.Errorf("response leaks the secret")
		}

		rec = do(t, mux, postJSON(`{"temperature":`))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("malformed body without key: status = %d; want 401", rec.Code)
		}

		rec = do(t, mux, postJSON(`{"temperature":21,"apiKey":"s3cret"}`))
		if rec.Code != http.StatusOK {
			t.Errorf("body key: status = %d", rec.Code)
		}

		req := postJSON(`{"temperature":22}`)
		req.Header.Set(apiKeyHeader, "s3cret")
		rec = do(t, mux, req)
		if rec.Code != http.StatusOK {
			t.Errorf("header key: status = %d", rec.Code)
		}

		if len(repo.readings) != 2 {
			t.Errorf("stored = %d; want 2", len(repo.readings))
		}
	})

	t.Run("storage failure is not leaked", func(t *testing.T) {
		repo := &mockRepo{appendErr: fmt.Errorf("%w: insert reading: database is locked", types.ErrStorageUnavailable)}
		rec := do(t, newTestMux(repo, ""), postJSON(`{"temperature":21}`))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "internal server error" {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/temperature", strings.NewReader(`{}`))
		rec := do(t, newTestMux(&mockRepo{}, ""), req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func Test_handleDay(t *testing.T) {
	t.Run("returns readings of the day in order", func(t *testing.T) {
		repo := &mockRepo{now: testDay}
		mux := newTestMux(repo, "")
		for _, body := range []string{`{"deviceId":"esp32-1","temperature":24.5}`, `{"deviceId":"esp32-1","temperature":24.7}`} {
			if rec := do(t, mux, postJSON(body)); rec.Code != http.StatusOK {
				t.Fatalf("ingest status = %d", rec.Code)
			}
		}

		rec := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/temperature/day?date=2025-06-01", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; body %s", rec.Code, rec.Body)
		}
		var got []types.Reading
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d; want 2", len(got))
		}
		if got[0].Temperature != 24.5 || got[1].Temperature != 24.7 {
			t.Errorf("readings = %+v", got)
		}
		if got[0].DeviceID != "esp32-1" || got[0].ID == "" || got[0].Timestamp.IsZero() {
			t.Errorf("reading fields = %+v", got[0])
		}
	})

	t.Run("other day is empty array", func(t *testing.T) {
		repo := &mockRepo{now: testDay}
		mux := newTestMux(repo, "")
		do(t, mux, postJSON(`{"temperature":1}`))

		rec := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/temperature/day?date=2025-06-02", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
			t.Errorf("body = %s; want []", body)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := do(t, newTestMux(&mockRepo{}, ""), httptest.NewRequest(http.MethodGet, "/api/temperature/day?date=01-06-2025", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rec.Code)
		}
		if msg := decodeError(t, rec); msg != "invalid date" {
			t.Errorf("error = %q", msg)
		}
	})

	t.Run("no date means today", func(t *testing.T) {
		repo := &mockRepo{now: time.Now().UTC()}
		mux := newTestMux(repo, "")
		do(t, mux, postJSON(`{"temperature":5}`))

		rec := do(t, mux, httptest.NewRequest(http.MethodGet, "/api/temperature/day", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var got []types.Reading
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		// Skipped if the clock crossed midnight between ingest and query.
		if len(got) != 1 && repo.now.Day() == time.Now().UTC().Day() {
			t.Errorf("len = %d; want 1", len(got))
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &mockRepo{rangeErr: errors.Join(types.ErrStorageUnavailable, errors.New("no such table: readings"))}
		rec := do(t, newTestMux(repo, ""), httptest.NewRequest(http.MethodGet, "/api/temperature/day?date=2025-06-01", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "no such table") {
			t.Errorf("response leaks storage error: %s", rec.Body)
		}
	})
}

func Test_handleTest(t *testing.T) {
	rec := do(t, newTestMux(&mockRepo{}, ""), httptest.NewRequest(http.MethodGet, "/api/test", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "API OK" {
		t.Errorf("status = %q", got["status"])
	}
}

func Test_handleIngestConcurrent(t *testing.T) {
	repo := &mockRepo{now: testDay}
	mux := newTestMux(repo, "")

	const n = 20
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, postJSON(fmt.Sprintf(`{"deviceId":"d%d","temperature":%d}`, i, i)))
			var got ingestResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err == nil {
				ids <- got.SavedID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != n || len(repo.readings) != n {
		t.Errorf("ids = %d, stored = %d; want %d", len(seen), len(repo.readings), n)
	}
}
