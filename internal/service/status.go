package service

import (
	"sync"
	"time"

	"edgecam"
	"edgecam/internal/system"
)

// StatusService holds the commissioning snapshot served by the local HTTP
// API. RecordCycle is called from the scheduler goroutine and Snapshot from
// HTTP handlers, so access is guarded.
type StatusService struct {
	link  LinkStatus
	cal   OverheadCalibrator
	clock system.Clock

	mu                 sync.Mutex
	cyclesRun          int
	lastCycleDur       time.Duration
	lastCycleAt        time.Time
	lastCycleSucceeded bool
}

func NewStatusService(link LinkStatus, cal OverheadCalibrator, clock system.Clock) *StatusService {
	return &StatusService{link: link, cal: cal, clock: clock}
}

// RecordCycle notes the outcome of one capture-publish cycle.
func (s *StatusService) RecordCycle(elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cyclesRun++
	s.lastCycleDur = elapsed
	s.lastCycleAt = s.clock.Now()
	s.lastCycleSucceeded = err == nil
}

// Snapshot returns the current device status.
func (s *StatusService) Snapshot() edgecam.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := edgecam.Status{
		Connected:          s.link.IsConnected(),
		ConsecutiveFails:   s.link.Failures(),
		CalibrationState:   s.cal.State().String(),
		LastCycleSeconds:   s.lastCycleDur.Seconds(),
		LastCycleAt:        s.lastCycleAt,
		LastCycleSucceeded: s.lastCycleSucceeded,
		CyclesRun:          s.cyclesRun,
	}
	if overhead, known := s.cal.Overhead(); known {
		st.OverheadSeconds = overhead.Seconds()
	}
	return st
}
