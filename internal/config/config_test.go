package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
mqtt:
  broker: "192.168.0.103"
`

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"valid", "06:59:31", TimeOfDay{6, 59, 31}, false},
		{"midnight", "00:00:00", TimeOfDay{0, 0, 0}, false},
		{"last second", "23:59:59", TimeOfDay{23, 59, 59}, false},
		{"hour out of range", "24:00:00", TimeOfDay{}, true},
		{"missing seconds", "06:59", TimeOfDay{}, true},
		{"garbage", "dawn", TimeOfDay{}, true},
		{"empty", "", TimeOfDay{}, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimeOfDay(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseTimeOfDay(%q) expected error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTimeOfDay(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseTimeOfDay(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTimeOfDay_SecondsOfDay(t *testing.T) {
	t.Parallel()
	if got := (TimeOfDay{6, 59, 31}).SecondsOfDay(); got != 6*3600+59*60+31 {
		t.Errorf("SecondsOfDay() = %d", got)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Period != 50*time.Second {
		t.Errorf("Period = %v, want 50s", cfg.Period)
	}
	if cfg.WakeUpTime != (TimeOfDay{6, 59, 31}) {
		t.Errorf("WakeUpTime = %+v, want 06:59:31", cfg.WakeUpTime)
	}
	if cfg.ShutDownTime != (TimeOfDay{22, 0, 0}) {
		t.Errorf("ShutDownTime = %+v, want 22:00:00", cfg.ShutDownTime)
	}
	if cfg.ShutdownThreshold != 100*time.Second {
		t.Errorf("ShutdownThreshold = %v, want 100s", cfg.ShutdownThreshold)
	}
	if cfg.MQTT.Broker != "192.168.0.103" || cfg.MQTT.Port != 1883 {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if cfg.MQTT.ReconnectBackoff != 2*time.Second || cfg.MQTT.MaxReconnects != 5 {
		t.Errorf("reconnect policy = %+v", cfg.MQTT)
	}
	if cfg.Camera.Width != 3840 || cfg.Camera.Height != 2160 || cfg.Camera.Quality != 95 {
		t.Errorf("Camera = %+v", cfg.Camera)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	t.Parallel()

	body := `
basic:
  period: 600
  wake_up_time: "20:00:00"
  shut_down_time: "06:00:00"
  shutdown_threshold: 120
mqtt:
  broker: "broker.local"
  port: 8883
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Period != 600*time.Second {
		t.Errorf("Period = %v, want 600s", cfg.Period)
	}
	if cfg.WakeUpTime != (TimeOfDay{20, 0, 0}) || cfg.ShutDownTime != (TimeOfDay{6, 0, 0}) {
		t.Errorf("window = %+v..%+v", cfg.WakeUpTime, cfg.ShutDownTime)
	}
	if cfg.MQTT.Port != 8883 {
		t.Errorf("MQTT.Port = %d, want 8883", cfg.MQTT.Port)
	}
}

// Malformed configuration fails at load time, never mid-cycle.
func TestLoad_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		wantSub string
	}{
		{
			name: "zero period",
			body: "basic:\n  period: 0\nmqtt:\n  broker: b\n",
			wantSub: "basic.period",
		},
		{
			name: "negative period",
			body: "basic:\n  period: -5\nmqtt:\n  broker: b\n",
			wantSub: "basic.period",
		},
		{
			name: "malformed wake time",
			body: "basic:\n  wake_up_time: \"7am\"\nmqtt:\n  broker: b\n",
			wantSub: "basic.wake_up_time",
		},
		{
			name: "malformed shutdown time",
			body: "basic:\n  shut_down_time: \"25:00:00\"\nmqtt:\n  broker: b\n",
			wantSub: "basic.shut_down_time",
		},
		{
			name: "negative threshold",
			body: "basic:\n  shutdown_threshold: -1\nmqtt:\n  broker: b\n",
			wantSub: "basic.shutdown_threshold",
		},
		{
			name:    "missing broker",
			body:    "basic:\n  period: 50\n",
			wantSub: "mqtt.broker",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
