package system

import "time"

// Clock supplies current time. Elapsed-time measurements must take both
// readings from the same Clock to avoid cross-source skew.
type Clock interface {
	Now() time.Time
}

// RTCClock reads the system clock, which the hardware RTC disciplines
// across power cycles.
type RTCClock struct{}

func (RTCClock) Now() time.Time { return time.Now().UTC() }
