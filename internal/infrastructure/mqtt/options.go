package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/renacble/renac-ha-bridge/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Options configures a broker connection for one bridged device.
//
// Each device gets its own connection because the availability Last Will
// is a per-connection property of the MQTT protocol.
type Options struct {
	// Config holds broker address, credentials and QoS settings.
	Config config.MQTTConfig

	// DeviceID identifies the device this connection serves. It becomes
	// part of the client ID so connections are distinguishable on the broker.
	DeviceID string

	// WillTopic and WillPayload pre-arm the Last Will, published retained
	// by the broker if this connection drops unexpectedly. Empty WillTopic
	// disables the will.
	WillTopic   string
	WillPayload string
}

// clientID builds a broker-unique client identifier.
// The random suffix avoids takeover when a stale session lingers on the broker.
func (o Options) clientID() string {
	return fmt.Sprintf("renac-bridge-%s-%s", o.DeviceID, uuid.NewString()[:8])
}

// buildClientOptions creates paho MQTT options from bridge options.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect with exponential backoff
//   - TLS configuration (if enabled)
//   - Clean session mode
func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	cfg := o.Config
	opts := pahomqtt.NewClientOptions()

	// Broker URL
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
	opts.AddBroker(brokerURL)

	// Client identification
	opts.SetClientID(o.clientID())

	// Authentication (if credentials provided)
	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session - start fresh on connect (no persistent session on broker)
	opts.SetCleanSession(true)

	// Auto-reconnect with exponential backoff
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	// Connection timeout
	opts.SetConnectTimeout(defaultConnectTimeout)

	// Keepalive - broker sends PINGs to detect dead connections
	opts.SetKeepAlive(defaultKeepAlive)

	// TLS configuration if enabled
	if cfg.Broker.TLS {
		tlsConfig := &tls.Config{
			MinVersion: tlsMinVersion,
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts
}

// configureLWT arms the Last Will and Testament for availability detection.
//
// The will message is published by the broker if the client disconnects
// unexpectedly (crash, network failure, etc.), flipping the device's
// Home Assistant availability to offline without any action from us.
//
// QoS: 1 (guaranteed delivery)
// Retained: true (new subscribers see last availability)
func configureLWT(opts *pahomqtt.ClientOptions, o Options) {
	if o.WillTopic == "" {
		return
	}
	opts.SetWill(o.WillTopic, o.WillPayload, 1, true)
}
