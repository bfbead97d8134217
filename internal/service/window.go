package service

import (
	"time"

	"edgecam/internal/config"
)

// InOperatingWindow reports whether now's time of day (UTC) falls inside the
// half-open window [wake, shut). Equal bounds mean the device is always on.
//
// When the window wraps midnight (shut <= wake), the device is inactive
// exactly for times in [shut, wake).
func InOperatingWindow(now time.Time, wake, shut config.TimeOfDay) bool {
	w := wake.SecondsOfDay()
	s := shut.SecondsOfDay()
	if w == s {
		return true
	}

	utc := now.UTC()
	cur := utc.Hour()*3600 + utc.Minute()*60 + utc.Second()

	if w < s {
		return cur >= w && cur < s
	}
	return !(cur >= s && cur < w)
}
