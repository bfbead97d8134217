package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edgecam"
	"edgecam/internal/logger"
	"edgecam/internal/service"
)

type linkStub struct{}

func (linkStub) IsConnected() bool { return true }
func (linkStub) Failures() int     { return 0 }

type calStub struct{}

func (calStub) State() service.CalState { return service.Calibrated }
func (calStub) Overhead() (time.Duration, bool) {
	return 50 * time.Second, true
}
func (calStub) MarkShutdown(ctx context.Context, wake *time.Time) error { return nil }

type clockStub struct{}

func (clockStub) Now() time.Time { return time.Unix(0, 0).UTC() }

func newTestRouter() http.Handler {
	status := service.NewStatusService(linkStub{}, calStub{}, clockStub{})
	status.RecordCycle(10*time.Second, nil)
	return NewHandler(status, logger.Get(logger.ErrorLevel)).InitRoutes()
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	newTestRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", w.Code)
	}
}

func TestHandler_DeviceStatus(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	newTestRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/status = %d, want 200", w.Code)
	}

	var got edgecam.Status
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !got.Connected {
		t.Error("Connected = false")
	}
	if got.CalibrationState != "CALIBRATED" {
		t.Errorf("CalibrationState = %q", got.CalibrationState)
	}
	if got.CyclesRun != 1 || got.LastCycleSeconds != 10 {
		t.Errorf("cycle stats = %+v", got)
	}
}
