package service

import (
	"context"
	"time"

	"edgecam/internal/camera"
	"edgecam/internal/config"
	"edgecam/internal/logger"
	"edgecam/internal/repository"
	"edgecam/internal/system"
)

// Publisher is the messaging surface one cycle needs: connection state,
// blocking connect, and an acknowledged publish.
type Publisher interface {
	IsConnected() bool
	Connect() error
	Publish(payload []byte) error
}

// ConfigPoller reports whether replacement configuration has been delivered.
// The scheduler checks it once per cycle boundary, never asynchronously.
type ConfigPoller interface {
	ConfigChanged() bool
}

// LinkStatus is the read side of the connection for status reporting.
type LinkStatus interface {
	IsConnected() bool
	Failures() int
}

// CycleRunner executes one capture-and-publish cycle and reports its
// wall-clock duration, which is valid even when the cycle fails.
type CycleRunner interface {
	Run(ctx context.Context) (time.Duration, error)
}

// OverheadCalibrator is the scheduler's view of power-cycle calibration.
type OverheadCalibrator interface {
	State() CalState
	Overhead() (time.Duration, bool)
	MarkShutdown(ctx context.Context, wake *time.Time) error
}

// Service aggregates the device's active components.
type Service struct {
	Cycle      *Cycle
	Calibrator *Calibrator
	Scheduler  *Scheduler
	Status     *StatusService
}

// Transport is what the service layer needs from the broker client.
type Transport interface {
	Publisher
	ConfigPoller
	LinkStatus
}

// NewService wires repositories and host collaborators into the component
// graph. Ownership is explicit: one transport, one config snapshot, one
// calibrator, all held here and injected downward.
func NewService(
	repos *repository.Repository,
	clock system.Clock,
	power system.Power,
	cam camera.Camera,
	vitals system.Vitals,
	link Transport,
	cfg *config.Config,
	log *logger.Logger,
) *Service {
	cycle := NewCycle(cam, vitals, clock, link, log)
	cal := NewCalibrator(repos.Calibration, clock, log)
	status := NewStatusService(link, cal, clock)
	sched := NewScheduler(cfg, clock, power, cycle, cal, link, status, log)
	return &Service{
		Cycle:      cycle,
		Calibrator: cal,
		Scheduler:  sched,
		Status:     status,
	}
}
