package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edgecam/internal/config"
	"edgecam/internal/logger"
	"edgecam/internal/system"
)

// Outcome is the tagged result a finished scheduler loop hands to the
// top-level supervisor, which owns process termination and exit codes.
type Outcome int

const (
	// OutcomeConfigChanged: replacement configuration arrived; the loop
	// stopped cleanly so a supervisor can restart with the new file.
	OutcomeConfigChanged Outcome = iota
	// OutcomeFatal: an irrecoverable condition; err carries the reason.
	OutcomeFatal
)

// Scheduler runs the duty cycle: one capture-publish cycle, then a decision
// to idle in place, power off with a scheduled wake, power off for
// calibration, or stop for a configuration change. Everything in a cycle
// executes strictly sequentially; no two cycles overlap.
type Scheduler struct {
	cfg    *config.Config
	clock  system.Clock
	power  system.Power
	cycle  CycleRunner
	cal    OverheadCalibrator
	poller ConfigPoller
	status *StatusService
	log    *logger.Logger

	// sleep idles in place. It is interruptible only by process
	// termination, never by external signals.
	sleep func(time.Duration)
}

func NewScheduler(
	cfg *config.Config,
	clock system.Clock,
	power system.Power,
	cycle CycleRunner,
	cal OverheadCalibrator,
	poller ConfigPoller,
	status *StatusService,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		clock:  clock,
		power:  power,
		cycle:  cycle,
		cal:    cal,
		poller: poller,
		status: status,
		log:    log,
		sleep:  time.Sleep,
	}
}

// Run loops until a shutdown is requested (which does not return), the
// context is canceled, or an outcome ends the loop.
func (s *Scheduler) Run(ctx context.Context) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return OutcomeFatal, ctx.Err()
		default:
		}

		outcome, done, err := s.runCycle(ctx)
		if done {
			return outcome, err
		}
	}
}

// runCycle executes one full cycle plus its scheduling decision. done is
// true when the loop must stop and outcome/err describe why.
func (s *Scheduler) runCycle(ctx context.Context) (outcome Outcome, done bool, err error) {
	now := s.clock.Now()

	// Pre-flight: outside the operating window the device powers off with
	// no scheduled wake and waits to be woken externally.
	if !InOperatingWindow(now, s.cfg.WakeUpTime, s.cfg.ShutDownTime) {
		s.log.Infow("outside operating window, powering off",
			"now", now.UTC().Format("15:04:05"),
			"wake_up_time", s.cfg.WakeUpTime,
			"shut_down_time", s.cfg.ShutDownTime,
		)
		o, e := s.shutdown()
		return o, true, e
	}

	elapsed, cycleErr := s.cycle.Run(ctx)
	s.status.RecordCycle(elapsed, cycleErr)
	if cycleErr != nil {
		// The cycle is aborted, not retried; the next scheduled cycle is
		// the retry mechanism.
		s.log.Errorw("cycle failed", "elapsed", elapsed, "err", cycleErr)
	}

	waiting := waitingTime(s.cfg.Period, elapsed)

	// First ever cycle: measure the power-cycle cost before anything else.
	// This cycle contributes no sample-delay accounting.
	if s.cal.State() == Uncalibrated {
		s.log.Infow("first run: measuring boot and shutdown cost")
		if err := s.cal.MarkShutdown(ctx, nil); err != nil {
			return OutcomeFatal, true, err
		}
		o, e := s.shutdown()
		return o, true, e
	}

	overhead, known := s.cal.Overhead()

	if waiting > s.cfg.ShutdownThreshold && known {
		shutdownDuration := waiting - overhead
		if shutdownDuration > 0 {
			return s.shutdownWithWake(ctx, shutdownDuration)
		}
		// The power cycle would cost more than it saves; a shutdown with
		// insufficient payoff strictly wastes time and energy.
		s.log.Infow("power-cycle overhead exceeds idle budget, sleeping instead",
			"waiting", waiting, "overhead", overhead)
		s.sleep(waiting)
		return 0, false, nil
	}

	if waiting > 0 {
		if s.poller.ConfigChanged() {
			s.log.Infow("configuration changed, stopping for restart")
			return OutcomeConfigChanged, true, nil
		}
		s.log.Infow("sleeping until next cycle", "waiting", waiting)
		s.sleep(waiting)
		return 0, false, nil
	}

	s.log.Warnw("period too short to complete one cycle",
		"period", s.cfg.Period, "elapsed", elapsed)
	return 0, false, nil
}

// shutdownWithWake arms the RTC alarm, persists the calibration marker, and
// powers off. Arming must succeed before the marker is written and the
// marker before the shutdown request: after Shutdown nothing runs.
func (s *Scheduler) shutdownWithWake(ctx context.Context, d time.Duration) (Outcome, bool, error) {
	wake := s.clock.Now().Add(d)

	if err := s.power.ScheduleWake(wake); err != nil {
		// A power-off without a working alarm would strand the device
		// until an external wake; idle in place instead.
		s.log.Errorw("failed to arm wake alarm, sleeping instead", "err", err)
		s.sleep(d)
		return 0, false, nil
	}

	s.log.Infow("powering off until next cycle",
		"shutdown_duration", d,
		"wake_at", wake.UTC().Format(time.RFC3339),
	)
	if err := s.cal.MarkShutdown(ctx, &wake); err != nil {
		return OutcomeFatal, true, err
	}
	o, e := s.shutdown()
	return o, true, e
}

// shutdown requests power-off. On real hardware the call diverges; a return
// means the request itself failed, which is fatal.
func (s *Scheduler) shutdown() (Outcome, error) {
	if err := s.power.Shutdown(); err != nil {
		return OutcomeFatal, fmt.Errorf("shutdown request: %w", err)
	}
	return OutcomeFatal, errors.New("shutdown request returned")
}
