package system

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// BatteryInfo is the charge state reported alongside every sample.
type BatteryInfo struct {
	TemperatureC float64
	ChargePct    float64
}

// Vitals reads device health values embedded in published samples.
type Vitals interface {
	CPUTemperature() (float64, error)
	Battery() (BatteryInfo, error)
}

const (
	cpuThermalPath  = "/sys/class/thermal/thermal_zone0/temp"
	batteryTempPath = "/sys/class/power_supply/battery/temp"
	batteryCapPath  = "/sys/class/power_supply/battery/capacity"
)

// SysfsVitals reads vitals from the kernel's sysfs tree.
type SysfsVitals struct{}

func readSysfsInt(path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	n, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return n, nil
}

// CPUTemperature returns the SoC temperature in degrees Celsius.
func (SysfsVitals) CPUTemperature() (float64, error) {
	milli, err := readSysfsInt(cpuThermalPath)
	if err != nil {
		return 0, err
	}
	return float64(milli) / 1000.0, nil
}

// Battery returns pack temperature and charge percentage. The power supply
// driver reports temperature in tenths of a degree.
func (SysfsVitals) Battery() (BatteryInfo, error) {
	deci, err := readSysfsInt(batteryTempPath)
	if err != nil {
		return BatteryInfo{}, err
	}
	cap, err := readSysfsInt(batteryCapPath)
	if err != nil {
		return BatteryInfo{}, err
	}
	return BatteryInfo{
		TemperatureC: float64(deci) / 10.0,
		ChargePct:    float64(cap),
	}, nil
}
