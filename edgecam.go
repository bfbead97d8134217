package edgecam

import "time"

// CalibrationRecord is the durable power-cycle calibration state.
// Exactly one row exists; the calibrator is its only writer.
type CalibrationRecord struct {
	ID int `json:"id"`
	// OverheadSeconds is the last measured shutdown+boot round-trip cost.
	// Zero together with OverheadKnown=false means no measurement yet.
	OverheadSeconds float64 `json:"overhead_seconds"`
	OverheadKnown   bool    `json:"overhead_known"`
	// PendingShutdownAt is the instant a shutdown was requested; set while a
	// measurement is in flight across the power cycle.
	PendingShutdownAt *time.Time `json:"pending_shutdown_at,omitempty"`
	// ScheduledWakeAt is the wake the RTC was armed for, when one was
	// scheduled alongside PendingShutdownAt. Nil for an unscheduled shutdown.
	ScheduledWakeAt *time.Time `json:"scheduled_wake_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Sample is one capture-and-publish payload, serialized to JSON on the wire.
// Field names follow the broker-side consumer contract.
type Sample struct {
	ID            string  `json:"id"`
	Timestamp     string  `json:"timestamp"`
	Image         string  `json:"image"` // base64-encoded JPEG
	CPUTemp       float64 `json:"cpuTemp"`
	BatteryTemp   float64 `json:"batteryTemp"`
	BatteryCharge float64 `json:"batteryCharge"`
}

// Status is the commissioning snapshot served by the local HTTP API.
type Status struct {
	Connected          bool      `json:"connected"`
	ConsecutiveFails   int       `json:"consecutive_failures"`
	CalibrationState   string    `json:"calibration_state"`
	OverheadSeconds    float64   `json:"overhead_seconds,omitempty"`
	LastCycleSeconds   float64   `json:"last_cycle_seconds,omitempty"`
	LastCycleAt        time.Time `json:"last_cycle_at,omitempty"`
	LastCycleSucceeded bool      `json:"last_cycle_succeeded"`
	CyclesRun          int       `json:"cycles_run"`
}
