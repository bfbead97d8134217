package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"edgecam"
	"edgecam/internal/camera"
	"edgecam/internal/logger"
	"edgecam/internal/system"
)

// Cycle performs one capture-and-publish attempt. The frame is captured and
// encoded before the broker connection is checked, so the sensor can work
// while the network interface is still coming up after a cold boot.
type Cycle struct {
	cam    camera.Camera
	vitals system.Vitals
	clock  system.Clock
	pub    Publisher
	log    *logger.Logger
}

func NewCycle(cam camera.Camera, vitals system.Vitals, clock system.Clock, pub Publisher, log *logger.Logger) *Cycle {
	return &Cycle{cam: cam, vitals: vitals, clock: clock, pub: pub, log: log}
}

// Run executes one cycle and returns its wall-clock duration. Both time
// readings come from the same clock. The duration is valid even on failure;
// the caller does not retry within the cycle — the next scheduled cycle is
// the retry mechanism.
func (c *Cycle) Run(ctx context.Context) (time.Duration, error) {
	start := c.clock.Now()
	err := c.runOnce(ctx)
	elapsed := c.clock.Now().Sub(start)
	return elapsed, err
}

func (c *Cycle) runOnce(ctx context.Context) error {
	frame, err := c.cam.Capture(ctx)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	payload, err := c.buildSample(frame, c.clock.Now())
	if err != nil {
		return fmt.Errorf("build sample: %w", err)
	}

	if !c.pub.IsConnected() {
		if err := c.pub.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
	}

	if err := c.pub.Publish(payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// buildSample assembles the JSON payload: the base64 JPEG plus device
// vitals, stamped from the shared clock.
func (c *Cycle) buildSample(frame []byte, ts time.Time) ([]byte, error) {
	cpuTemp, err := c.vitals.CPUTemperature()
	if err != nil {
		return nil, fmt.Errorf("read cpu temperature: %w", err)
	}
	battery, err := c.vitals.Battery()
	if err != nil {
		return nil, fmt.Errorf("read battery: %w", err)
	}
	c.log.Infow("battery state", "temp_c", battery.TemperatureC, "charge_pct", battery.ChargePct)

	sample := edgecam.Sample{
		ID:            uuid.NewString(),
		Timestamp:     ts.UTC().Format(time.RFC3339),
		Image:         base64.StdEncoding.EncodeToString(frame),
		CPUTemp:       cpuTemp,
		BatteryTemp:   battery.TemperatureC,
		BatteryCharge: battery.ChargePct,
	}
	return json.Marshal(sample)
}

// waitingTime returns how long the scheduler should wait before the next
// cycle start, never negative. Zero means the cycle consumed the whole
// period budget.
func waitingTime(period, elapsed time.Duration) time.Duration {
	if elapsed >= period {
		return 0
	}
	return period - elapsed
}
