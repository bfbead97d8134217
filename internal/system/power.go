package system

import (
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Power controls device power state. ScheduleWake must be issued before
// Shutdown: once Shutdown is requested no further code in this process
// runs, so there is no cleanup path afterward.
type Power interface {
	// ScheduleWake arms the RTC alarm for the given instant.
	ScheduleWake(t time.Time) error
	// Shutdown powers the device off. It does not return on success.
	Shutdown() error
	// Reboot restarts the device. It does not return on success.
	Reboot() error
}

const wakeAlarmPath = "/sys/class/rtc/rtc0/wakealarm"

// HostPower drives the RTC wake alarm through sysfs and power transitions
// through the init system.
type HostPower struct{}

// ScheduleWake writes the wake instant to the RTC alarm. The alarm is
// cleared first; the kernel rejects overwriting a set alarm.
func (HostPower) ScheduleWake(t time.Time) error {
	if err := os.WriteFile(wakeAlarmPath, []byte("0"), 0o644); err != nil {
		return fmt.Errorf("clear rtc wake alarm: %w", err)
	}
	stamp := fmt.Sprintf("%d", t.UTC().Unix())
	if err := os.WriteFile(wakeAlarmPath, []byte(stamp), 0o644); err != nil {
		return fmt.Errorf("arm rtc wake alarm for %s: %w", t.UTC().Format(time.RFC3339), err)
	}
	return nil
}

func (HostPower) Shutdown() error {
	if out, err := exec.Command("shutdown", "-h", "now").CombinedOutput(); err != nil {
		return fmt.Errorf("shutdown: %w (%s)", err, out)
	}
	// The halt is asynchronous; block until the power drops.
	select {}
}

func (HostPower) Reboot() error {
	if out, err := exec.Command("reboot").CombinedOutput(); err != nil {
		return fmt.Errorf("reboot: %w (%s)", err, out)
	}
	select {}
}
