package transport

import (
	"sync/atomic"
	"time"

	"edgecam/internal/logger"
)

// Health bounds reconnection after involuntary broker disconnects.
//
// Attempt 1 reconnects immediately, attempts 2 through maxFailures-1 wait a
// fixed backoff first, and reaching maxFailures consecutive failures
// escalates to a device reboot — exactly once. Any successful connection
// resets the counter. The device therefore always converges to either a
// working link or a reboot, never an indefinite wedge.
type Health struct {
	failures  atomic.Int32
	escalated atomic.Bool

	maxFailures int32
	backoff     time.Duration

	sleep     func(time.Duration)
	reconnect func() error
	escalate  func(reason string)
	log       *logger.Logger
}

func NewHealth(maxFailures int, backoff time.Duration, reconnect func() error, escalate func(reason string), log *logger.Logger) *Health {
	return &Health{
		maxFailures: int32(maxFailures),
		backoff:     backoff,
		sleep:       time.Sleep,
		reconnect:   reconnect,
		escalate:    escalate,
		log:         log,
	}
}

// OnConnected resets the failure counter after any successful connection.
func (h *Health) OnConnected() {
	h.failures.Store(0)
}

// Failures returns the current consecutive-failure count.
func (h *Health) Failures() int {
	return int(h.failures.Load())
}

// OnInvoluntaryDisconnect runs one step of the retry/escalate machine. It is
// invoked from the transport's connection-lost callback and re-entered when a
// reconnect attempt itself fails, so the counter bounds the total number of
// attempts.
func (h *Health) OnInvoluntaryDisconnect() {
	n := h.failures.Add(1)

	switch {
	case n >= h.maxFailures:
		if h.escalated.CompareAndSwap(false, true) {
			h.log.Errorw("reconnect attempts exhausted, requesting reboot", "failures", n)
			h.escalate("broker unreachable after bounded retries")
		}
		return
	case n == 1:
		h.log.Warnw("involuntary disconnect, reconnecting immediately", "failures", n)
	default:
		h.log.Warnw("involuntary disconnect, reconnecting after backoff", "failures", n, "backoff", h.backoff)
		h.sleep(h.backoff)
	}

	if err := h.reconnect(); err != nil {
		h.log.Errorw("reconnect attempt failed", "failures", n, "err", err)
		h.OnInvoluntaryDisconnect()
	}
}
