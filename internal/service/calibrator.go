package service

import (
	"context"
	"fmt"
	"time"

	"edgecam"
	"edgecam/internal/logger"
	"edgecam/internal/repository"
	"edgecam/internal/system"
)

// CalState is the calibrator's position in its two-phase measurement.
type CalState int

const (
	// Uncalibrated: no overhead estimate and no measurement in flight.
	Uncalibrated CalState = iota
	// AwaitingMeasurement: a shutdown marker was written; the next boot
	// derives the overhead from it.
	AwaitingMeasurement
	// Calibrated: an overhead estimate is available.
	Calibrated
)

func (s CalState) String() string {
	switch s {
	case Uncalibrated:
		return "UNCALIBRATED"
	case AwaitingMeasurement:
		return "AWAITING_MEASUREMENT"
	case Calibrated:
		return "CALIBRATED"
	default:
		return fmt.Sprintf("CalState(%d)", int(s))
	}
}

// Calibrator estimates the wall-clock cost of a full power-off/power-on
// round trip. The estimate is durable: the record is written before every
// shutdown request and resolved at the next process start, so calibration
// survives exactly the power cycles it measures. The calibrator is the
// record's single writer.
type Calibrator struct {
	repo  repository.CalibrationRepo
	clock system.Clock
	log   *logger.Logger

	state    CalState
	overhead time.Duration
}

func NewCalibrator(repo repository.CalibrationRepo, clock system.Clock, log *logger.Logger) *Calibrator {
	return &Calibrator{repo: repo, clock: clock, log: log}
}

// State returns the current calibration phase.
func (c *Calibrator) State() CalState { return c.state }

// Overhead returns the shutdown+boot cost estimate and whether one exists.
func (c *Calibrator) Overhead() (time.Duration, bool) {
	return c.overhead, c.state == Calibrated
}

// Resolve loads the durable record at process start and, when a shutdown
// marker is pending, derives one overhead measurement from it. Exactly one
// measurement is derived per boot; the marker is always cleared afterward so
// it can never be consumed twice or go stale.
func (c *Calibrator) Resolve(ctx context.Context) error {
	rec, err := c.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load calibration: %w", err)
	}

	if rec.OverheadKnown {
		c.overhead = secondsToDuration(rec.OverheadSeconds)
		c.state = Calibrated
	}

	if rec.PendingShutdownAt == nil {
		c.log.Infow("calibration resolved", "state", c.state, "overhead", c.overhead)
		return nil
	}

	now := c.clock.Now()
	measured := c.measure(rec, now)

	if measured < 0 {
		// Clock skew across the power cycle. Reject the measurement rather
		// than let a negative estimate reach the shutdown-duration math; a
		// previously good estimate is kept.
		c.log.Warnw("rejecting negative overhead measurement",
			"measured", measured,
			"pending_shutdown_at", rec.PendingShutdownAt,
		)
	} else {
		c.overhead = measured
		c.state = Calibrated
		rec.OverheadSeconds = measured.Seconds()
		rec.OverheadKnown = true
		c.log.Infow("measured boot and shutdown cost", "overhead", measured)
	}

	rec.ID = 1
	rec.PendingShutdownAt = nil
	rec.ScheduledWakeAt = nil
	rec.UpdatedAt = now
	if err := c.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("clear calibration marker: %w", err)
	}
	return nil
}

// measure derives the round-trip cost. For a shutdown that armed a wake
// alarm, the cost is the overshoot past the intended wake instant; folding
// the scheduled sleep itself into the estimate would inflate it by the whole
// idle window. An unscheduled (first-boot) shutdown is measured from the
// shutdown request, relying on the external wake trigger firing promptly.
func (c *Calibrator) measure(rec edgecam.CalibrationRecord, now time.Time) time.Duration {
	if rec.ScheduledWakeAt != nil {
		return now.Sub(*rec.ScheduledWakeAt)
	}
	return now.Sub(*rec.PendingShutdownAt)
}

// MarkShutdown persists the pending-shutdown marker immediately before a
// shutdown request. wake is the armed RTC alarm instant, nil when none was
// scheduled. Once this returns, all state intended to survive the power
// cycle is on disk; nothing after the shutdown call runs.
func (c *Calibrator) MarkShutdown(ctx context.Context, wake *time.Time) error {
	now := c.clock.Now()
	rec := edgecam.CalibrationRecord{
		ID:                1,
		OverheadSeconds:   c.overhead.Seconds(),
		OverheadKnown:     c.state == Calibrated,
		PendingShutdownAt: &now,
		ScheduledWakeAt:   wake,
		UpdatedAt:         now,
	}
	if err := c.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("persist shutdown marker: %w", err)
	}
	c.state = AwaitingMeasurement
	return nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
