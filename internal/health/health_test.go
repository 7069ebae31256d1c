package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selivandex/market-reporter/internal/pipeline"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) Health(ctx context.Context) error { return f(ctx) }

type stubStatus struct {
	state pipeline.State
	last  *pipeline.RunResult
}

func (s stubStatus) State() pipeline.State           { return s.state }
func (s stubStatus) LastResult() *pipeline.RunResult { return s.last }

type stubSchedule time.Time

func (s stubSchedule) NextRun() time.Time { return time.Time(s) }

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestReadiness(t *testing.T) {
	dbDown := false
	s := NewServer("0", map[string]Checker{
		"database": checkFunc(func(ctx context.Context) error {
			if dbDown {
				return errors.New("connection refused")
			}
			return nil
		}),
		"redis": checkFunc(func(ctx context.Context) error { return nil }),
	}, nil, nil)

	rec, _ := get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.SetReady(true)
	rec, body := get(t, s.Handler(), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ready"])

	dbDown = true
	rec, body = get(t, s.Handler(), "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "unhealthy: connection refused", checks["database"])
	assert.Equal(t, "healthy", checks["redis"])

	// liveness ignores dependencies
	rec, body = get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Nil(t, body["checks"])
}

func TestStatus(t *testing.T) {
	next := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	last := &pipeline.RunResult{
		RunID:    "run-1",
		State:    pipeline.StateFailed,
		FailedAt: pipeline.StateChartCapturing,
		Error:    errors.New("chart capture failed"),
	}
	s := NewServer("0", nil, stubStatus{state: pipeline.StateIdle, last: last}, stubSchedule(next))

	rec, body := get(t, s.Handler(), "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", body["state"])
	assert.Equal(t, "2024-05-01T07:30:00Z", body["next_run"])
	assert.Equal(t, "chart capture failed", body["last_error"])

	run := body["last_run"].(map[string]any)
	assert.Equal(t, "run-1", run["run_id"])
	assert.Equal(t, "chart_capturing", run["failed_at"])
}

func TestStatusBeforeFirstRun(t *testing.T) {
	s := NewServer("0", nil, stubStatus{state: pipeline.StateIdle}, nil)

	_, body := get(t, s.Handler(), "/status")
	assert.Equal(t, "idle", body["state"])
	assert.Nil(t, body["last_run"])
	assert.Nil(t, body["next_run"])
}
