package transport

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"edgecam/internal/config"
	"edgecam/internal/logger"
)

const (
	publishQoS          = 1
	disconnectQuiesceMS = 250
)

// Client owns the broker link: QoS-1 sample publishing, the settings
// subscription that delivers replacement configuration, and the bounded
// reconnect policy for involuntary disconnects.
type Client struct {
	cfg        config.MQTT
	configPath string
	log        *logger.Logger

	inner  mqtt.Client
	health *Health

	voluntary     atomic.Bool
	configChanged atomic.Bool
}

// NewClient builds a client wired to escalate through the supplied callback
// when reconnection is exhausted. Auto-reconnect is disabled: the Health
// machine owns the retry policy.
func NewClient(cfg config.MQTT, configPath string, log *logger.Logger, escalate func(reason string)) *Client {
	c := &Client{
		cfg:        cfg,
		configPath: configPath,
		log:        log,
	}
	c.health = NewHealth(cfg.MaxReconnects, cfg.ReconnectBackoff, c.reconnect, escalate, log)

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port)).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)
	c.inner = mqtt.NewClient(opts)
	return c
}

// Connect establishes the broker session, blocking until it is up or failed.
func (c *Client) Connect() error {
	token := c.inner.Connect()
	if !token.WaitTimeout(c.cfg.ConnectTimeout) {
		return fmt.Errorf("connect to %s:%d: timeout after %s", c.cfg.Broker, c.cfg.Port, c.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s:%d: %w", c.cfg.Broker, c.cfg.Port, err)
	}
	return nil
}

func (c *Client) reconnect() error {
	token := c.inner.Connect()
	token.Wait()
	return token.Error()
}

func (c *Client) IsConnected() bool {
	return c.inner.IsConnected()
}

// Publish sends one sample at QoS 1 and waits for broker acknowledgement.
func (c *Client) Publish(payload []byte) error {
	start := time.Now()
	token := c.inner.Publish(c.cfg.PublishTopic, publishQoS, false, payload)
	if !token.WaitTimeout(c.cfg.PublishTimeout) {
		return fmt.Errorf("publish to %s: timeout after %s", c.cfg.PublishTopic, c.cfg.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", c.cfg.PublishTopic, err)
	}
	c.log.Infow("sample published",
		"topic", c.cfg.PublishTopic,
		"bytes", len(payload),
		"took", time.Since(start),
	)
	return nil
}

// Disconnect ends the session voluntarily; no retry follows.
func (c *Client) Disconnect() {
	c.voluntary.Store(true)
	c.inner.Disconnect(disconnectQuiesceMS)
}

// ConfigChanged reports whether replacement configuration bytes have arrived
// since start-up. The scheduler polls this once per cycle boundary.
func (c *Client) ConfigChanged() bool {
	return c.configChanged.Load()
}

// Health exposes the reconnect state machine, for status reporting.
func (c *Client) Health() *Health {
	return c.health
}

// Failures returns the consecutive involuntary-disconnect count.
func (c *Client) Failures() int {
	return c.health.Failures()
}

func (c *Client) onConnect(_ mqtt.Client) {
	c.log.Infow("connected to MQTT broker", "broker", c.cfg.Broker, "port", c.cfg.Port)
	c.health.OnConnected()

	token := c.inner.Subscribe(c.cfg.SettingsTopic, publishQoS, c.onSettings)
	if token.Wait() && token.Error() != nil {
		c.log.Errorw("subscribe to settings topic failed", "topic", c.cfg.SettingsTopic, "err", token.Error())
	}
}

// onSettings stores delivered configuration bytes at the well-known path and
// raises the pending-change flag. The running process never re-reads them;
// the supervisor restarts it with the new file.
func (c *Client) onSettings(_ mqtt.Client, msg mqtt.Message) {
	if err := os.WriteFile(c.configPath, msg.Payload(), 0o644); err != nil {
		c.log.Errorw("failed to store received config", "path", c.configPath, "err", err)
		return
	}
	c.log.Infow("received new config", "path", c.configPath, "bytes", len(msg.Payload()))
	c.configChanged.Store(true)
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	if c.voluntary.Load() {
		c.log.Infow("disconnected voluntarily")
		return
	}
	c.log.Errorw("involuntary disconnect", "err", err)
	c.health.OnInvoluntaryDisconnect()
}
