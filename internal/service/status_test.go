package service

import (
	"errors"
	"testing"
	"time"
)

func TestStatusService_Snapshot(t *testing.T) {
	t.Parallel()

	clock := fixedClock{now: time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)}
	cal := &calibratorStub{state: Calibrated, overhead: 50 * time.Second}
	svc := NewStatusService(linkStub{connected: true, failures: 2}, cal, clock)

	svc.RecordCycle(10*time.Second, nil)
	svc.RecordCycle(12*time.Second, errors.New("publish failed"))

	got := svc.Snapshot()
	if !got.Connected {
		t.Error("Connected = false")
	}
	if got.ConsecutiveFails != 2 {
		t.Errorf("ConsecutiveFails = %d, want 2", got.ConsecutiveFails)
	}
	if got.CalibrationState != "CALIBRATED" {
		t.Errorf("CalibrationState = %q", got.CalibrationState)
	}
	if got.OverheadSeconds != 50 {
		t.Errorf("OverheadSeconds = %v, want 50", got.OverheadSeconds)
	}
	if got.CyclesRun != 2 {
		t.Errorf("CyclesRun = %d, want 2", got.CyclesRun)
	}
	if got.LastCycleSeconds != 12 {
		t.Errorf("LastCycleSeconds = %v, want 12", got.LastCycleSeconds)
	}
	if got.LastCycleSucceeded {
		t.Error("LastCycleSucceeded = true, last cycle failed")
	}
	if !got.LastCycleAt.Equal(clock.now) {
		t.Errorf("LastCycleAt = %v, want %v", got.LastCycleAt, clock.now)
	}
}

func TestStatusService_UncalibratedOmitsOverhead(t *testing.T) {
	t.Parallel()

	clock := fixedClock{now: time.Unix(0, 0).UTC()}
	svc := NewStatusService(linkStub{}, &calibratorStub{state: Uncalibrated}, clock)

	got := svc.Snapshot()
	if got.OverheadSeconds != 0 {
		t.Errorf("OverheadSeconds = %v, want 0", got.OverheadSeconds)
	}
	if got.CalibrationState != "UNCALIBRATED" {
		t.Errorf("CalibrationState = %q", got.CalibrationState)
	}
}
