package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Defaults mirror the values the device ships with; a partial config file
// overrides only the keys it names.
const (
	defaultPeriodSeconds    = 50
	defaultWakeUpTime       = "06:59:31"
	defaultShutDownTime     = "22:00:00"
	defaultShutdownThresh   = 100
	defaultMQTTPort         = 1883
	defaultPublishTopic     = "mqtt/rpi/image"
	defaultSettingsTopic    = "settings/er-edge"
	defaultClientID         = "er-edge"
	defaultCameraWidth      = 3840
	defaultCameraHeight     = 2160
	defaultCameraQuality    = 95
	defaultDBPath           = "edgecam.db"
	defaultStatusPort       = "8080"
	defaultLogLevel         = "info"
	defaultCaptureTimeoutS  = 30
	defaultConnectTimeoutS  = 10
	defaultPublishTimeoutS  = 15
	defaultReconnectBackoff = 2 * time.Second
	defaultMaxReconnects    = 5
)

// TimeOfDay is a wall-clock time within a day, UTC.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM:SS". Malformed values are a load-time
// failure; the operating-window gate never sees an unparsed string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

// SecondsOfDay returns the offset from midnight in seconds.
func (t TimeOfDay) SecondsOfDay() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// MQTT holds broker connection settings.
type MQTT struct {
	Broker           string
	Port             int
	ClientID         string
	PublishTopic     string
	SettingsTopic    string
	ConnectTimeout   time.Duration
	PublishTimeout   time.Duration
	ReconnectBackoff time.Duration
	MaxReconnects    int
}

// Camera holds still-capture settings.
type Camera struct {
	Width          int
	Height         int
	Quality        int
	CaptureTimeout time.Duration
}

// Config is the immutable process-lifetime configuration snapshot.
type Config struct {
	// Period is the target interval between cycle starts.
	Period time.Duration
	// WakeUpTime and ShutDownTime bound the operating window (UTC).
	// Equal values mean always on.
	WakeUpTime   TimeOfDay
	ShutDownTime TimeOfDay
	// ShutdownThreshold is the minimum idle time before a power-off is
	// considered instead of sleeping in place.
	ShutdownThreshold time.Duration

	MQTT   MQTT
	Camera Camera

	// Path is where the config was read from and where replacement bytes
	// delivered over MQTT are written.
	Path       string
	DBPath     string
	StatusPort string
	LogLevel   string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("basic.period", defaultPeriodSeconds)
	v.SetDefault("basic.wake_up_time", defaultWakeUpTime)
	v.SetDefault("basic.shut_down_time", defaultShutDownTime)
	v.SetDefault("basic.shutdown_threshold", defaultShutdownThresh)
	v.SetDefault("mqtt.port", defaultMQTTPort)
	v.SetDefault("mqtt.client_id", defaultClientID)
	v.SetDefault("mqtt.publish_topic", defaultPublishTopic)
	v.SetDefault("mqtt.settings_topic", defaultSettingsTopic)
	v.SetDefault("mqtt.connect_timeout", defaultConnectTimeoutS)
	v.SetDefault("mqtt.publish_timeout", defaultPublishTimeoutS)
	v.SetDefault("mqtt.reconnect_backoff", int(defaultReconnectBackoff/time.Second))
	v.SetDefault("mqtt.max_reconnects", defaultMaxReconnects)
	v.SetDefault("camera.width", defaultCameraWidth)
	v.SetDefault("camera.height", defaultCameraHeight)
	v.SetDefault("camera.quality", defaultCameraQuality)
	v.SetDefault("camera.capture_timeout", defaultCaptureTimeoutS)
	v.SetDefault("db.path", defaultDBPath)
	v.SetDefault("status.port", defaultStatusPort)
	v.SetDefault("log.level", defaultLogLevel)
}

// Load reads and validates the configuration file at path. Any malformed
// value fails here, before the scheduler starts.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return fromViper(v, path)
}

func fromViper(v *viper.Viper, path string) (*Config, error) {
	periodS := v.GetInt("basic.period")
	if periodS <= 0 {
		return nil, fmt.Errorf("basic.period must be > 0, got %d", periodS)
	}
	thresholdS := v.GetInt("basic.shutdown_threshold")
	if thresholdS < 0 {
		return nil, fmt.Errorf("basic.shutdown_threshold must be >= 0, got %d", thresholdS)
	}

	wake, err := ParseTimeOfDay(v.GetString("basic.wake_up_time"))
	if err != nil {
		return nil, fmt.Errorf("basic.wake_up_time: %w", err)
	}
	shut, err := ParseTimeOfDay(v.GetString("basic.shut_down_time"))
	if err != nil {
		return nil, fmt.Errorf("basic.shut_down_time: %w", err)
	}

	broker := v.GetString("mqtt.broker")
	if broker == "" {
		return nil, fmt.Errorf("mqtt.broker is required")
	}

	maxReconnects := v.GetInt("mqtt.max_reconnects")
	if maxReconnects <= 0 {
		return nil, fmt.Errorf("mqtt.max_reconnects must be > 0, got %d", maxReconnects)
	}

	return &Config{
		Period:            time.Duration(periodS) * time.Second,
		WakeUpTime:        wake,
		ShutDownTime:      shut,
		ShutdownThreshold: time.Duration(thresholdS) * time.Second,
		MQTT: MQTT{
			Broker:           broker,
			Port:             v.GetInt("mqtt.port"),
			ClientID:         v.GetString("mqtt.client_id"),
			PublishTopic:     v.GetString("mqtt.publish_topic"),
			SettingsTopic:    v.GetString("mqtt.settings_topic"),
			ConnectTimeout:   time.Duration(v.GetInt("mqtt.connect_timeout")) * time.Second,
			PublishTimeout:   time.Duration(v.GetInt("mqtt.publish_timeout")) * time.Second,
			ReconnectBackoff: time.Duration(v.GetInt("mqtt.reconnect_backoff")) * time.Second,
			MaxReconnects:    maxReconnects,
		},
		Camera: Camera{
			Width:          v.GetInt("camera.width"),
			Height:         v.GetInt("camera.height"),
			Quality:        v.GetInt("camera.quality"),
			CaptureTimeout: time.Duration(v.GetInt("camera.capture_timeout")) * time.Second,
		},
		Path:       path,
		DBPath:     v.GetString("db.path"),
		StatusPort: v.GetString("status.port"),
		LogLevel:   v.GetString("log.level"),
	}, nil
}
