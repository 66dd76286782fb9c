package homeassistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/renacble/renac-ha-bridge/internal/infrastructure/mqtt"
)

// MQTTClient is the broker surface the device publisher needs.
// Satisfied by *mqtt.Client; tests substitute a mock.
type MQTTClient interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Logger is the logging surface the device publisher needs.
// Satisfied by *logging.Logger; tests substitute a mock or nil.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ActuatorCallback applies a commanded value to the hardware.
// A non-nil error marks the command as failed: state is not updated and
// nothing is published.
type ActuatorCallback func(value any) error

// DeviceInfo identifies one bridged device.
type DeviceInfo struct {
	// ID is the stable device identifier, e.g. "inverter_ABC123".
	ID string
	// Name is the human-readable device name shown in Home Assistant.
	Name string
	// Model is the hardware model string reported by the device.
	Model string
	// Prefix is the discovery prefix; empty means DefaultPrefix.
	Prefix string
	// QoS is used for command subscriptions.
	QoS byte
}

// Device publishes one RENAC device to Home Assistant and dispatches
// inbound commands to registered actuator callbacks.
//
// State is cached per entity key; a publish only happens when the value
// actually changed, so repeated identical telemetry is free on the wire.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Command dispatch runs on
//     the MQTT client's delivery goroutines.
type Device struct {
	info     DeviceInfo
	entities Entities
	topics   Topics
	client   MQTTClient
	logger   Logger

	stateMu sync.Mutex
	state   map[string]any

	cbMu      sync.RWMutex
	callbacks map[string]ActuatorCallback
}

// NewDevice creates a device publisher. It does not touch the broker;
// call PublishDiscovery once the connection is up.
func NewDevice(client MQTTClient, info DeviceInfo, entities Entities, logger Logger) *Device {
	return &Device{
		info:     info,
		entities: entities,
		topics:   Topics{Prefix: info.Prefix, DeviceID: info.ID},
		client:   client,
		logger:   logger,
		state:    make(map[string]any),
		callbacks: make(map[string]ActuatorCallback),
	}
}

// Topics exposes the device's topic builder, mainly for logging and tests.
func (d *Device) Topics() Topics {
	return d.topics
}

// PublishAvailability marks the device online on its availability topic.
// Call on every (re)connect; the offline side is the connection's Last Will.
func (d *Device) PublishAvailability() error {
	return d.client.PublishRetained(d.topics.Availability(), []byte(PayloadOnline))
}

// PublishDiscovery publishes one retained discovery config per entity and
// subscribes to the command topic of every writable entity.
//
// Safe to call repeatedly; Home Assistant treats re-published configs as
// updates and the MQTT client de-duplicates tracked subscriptions.
func (d *Device) PublishDiscovery() error {
	var errs []error

	for key, sensor := range d.entities.Sensors {
		cfg := d.baseConfig(KindSensor, key)
		cfg.UnitOfMeasurement = sensor.UnitOfMeasurement
		cfg.DeviceClass = sensor.DeviceClass
		cfg.StateClass = sensor.StateClass
		cfg.Options = sensor.Options
		if err := d.publishConfig(KindSensor, key, cfg); err != nil {
			errs = append(errs, err)
		}
	}

	for key, number := range d.entities.Numbers {
		cfg := d.baseConfig(KindNumber, key)
		cfg.CommandTopic = d.topics.Command(KindNumber, key)
		cfg.UnitOfMeasurement = number.UnitOfMeasurement
		minVal, maxVal, step := number.Min, number.Max, number.Step
		cfg.Min = &minVal
		cfg.Max = &maxVal
		cfg.Step = &step
		cfg.Mode = number.Mode
		if err := d.subscribeCommand(KindNumber, key); err != nil {
			errs = append(errs, err)
		}
		if err := d.publishConfig(KindNumber, key, cfg); err != nil {
			errs = append(errs, err)
		}
	}

	for key, sel := range d.entities.Selects {
		cfg := d.baseConfig(KindSelect, key)
		cfg.CommandTopic = d.topics.Command(KindSelect, key)
		cfg.Options = sel.Options
		if err := d.subscribeCommand(KindSelect, key); err != nil {
			errs = append(errs, err)
		}
		if err := d.publishConfig(KindSelect, key, cfg); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// publishConfig marshals and publishes one entity's discovery config.
func (d *Device) publishConfig(kind, key string, cfg discoveryConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling %s config for %s: %w", kind, key, err)
	}
	if err := d.client.PublishRetained(d.topics.Config(kind, key), payload); err != nil {
		d.logWarn("discovery publish failed", "kind", kind, "key", key, "error", err)
		return err
	}
	return nil
}

// subscribeCommand subscribes the dispatch handler to one /set topic.
func (d *Device) subscribeCommand(kind, key string) error {
	topic := d.topics.Command(kind, key)
	if err := d.client.Subscribe(topic, d.info.QoS, d.handleCommand); err != nil {
		d.logWarn("command subscribe failed", "topic", topic, "error", err)
		return err
	}
	return nil
}

// SetSensorValue updates one sensor and publishes it if the value changed.
// Returns true when a publish happened.
func (d *Device) SetSensorValue(key string, value any) bool {
	return len(d.SetSensorValues(map[string]any{key: value})) > 0
}

// SetSensorValues updates a batch of sensors and publishes the changed ones
// retained. Returns the keys that were actually published.
func (d *Device) SetSensorValues(values map[string]any) []string {
	var published []string
	for key, value := range values {
		if !d.setState(key, value) {
			continue
		}
		payload, err := encodeValue(value)
		if err != nil {
			d.logWarn("cannot encode sensor value", "key", key, "error", err)
			continue
		}
		if err := d.client.PublishRetained(d.topics.State(KindSensor, key), payload); err != nil {
			d.logWarn("sensor publish failed", "key", key, "error", err)
			continue
		}
		published = append(published, key)
	}
	if len(published) > 0 {
		d.logDebug("published sensor updates", "keys", published)
	}
	return published
}

// RegisterActuator wires a callback for one writable entity.
//
// If initial is non-nil the current hardware value is seeded into the state
// cache and published once, without invoking the callback.
func (d *Device) RegisterActuator(key string, cb ActuatorCallback, initial any) error {
	kind := d.entities.EntityKind(key)
	if kind == "" {
		return fmt.Errorf("%w: %q", ErrUnknownEntity, key)
	}
	if kind == KindSensor {
		return fmt.Errorf("%w: %q is a sensor", ErrNotWritable, key)
	}

	d.cbMu.Lock()
	d.callbacks[key] = cb
	d.cbMu.Unlock()
	d.logDebug("actuator callback registered", "key", key)

	if initial == nil {
		return nil
	}
	d.setState(key, initial)
	payload, err := encodeValue(initial)
	if err != nil {
		return fmt.Errorf("encoding initial value for %s: %w", key, err)
	}
	if err := d.client.PublishRetained(d.topics.State(kind, key), payload); err != nil {
		return fmt.Errorf("publishing initial value for %s: %w", key, err)
	}
	return nil
}

// SetActuatorValue updates one actuator's state and publishes it if the
// value changed, for periodic resync against the hardware.
// Returns true when a publish happened.
func (d *Device) SetActuatorValue(key string, value any) bool {
	kind := d.entities.EntityKind(key)
	if kind == "" || kind == KindSensor {
		return false
	}
	if !d.setState(key, value) {
		return false
	}
	payload, err := encodeValue(value)
	if err != nil {
		d.logWarn("cannot encode actuator value", "key", key, "error", err)
		return false
	}
	if err := d.client.PublishRetained(d.topics.State(kind, key), payload); err != nil {
		d.logWarn("actuator publish failed", "key", key, "error", err)
		return false
	}
	d.logDebug("published actuator update", "key", key)
	return true
}

// handleCommand dispatches one inbound /set message to its callback.
//
// Unknown topics and unregistered keys are logged and discarded. A callback
// error leaves the cached state untouched; on success the accepted value is
// stored and republished retained so Home Assistant reflects it immediately.
func (d *Device) handleCommand(topic string, payload []byte) error {
	key, ok := ParseCommandTopic(topic)
	if !ok {
		d.logDebug("ignoring non-command message", "topic", topic)
		return nil
	}

	d.cbMu.RLock()
	cb, registered := d.callbacks[key]
	d.cbMu.RUnlock()
	if !registered {
		d.logWarn("no callback registered for actuator", "key", key)
		return nil
	}

	value := decodeCommand(payload)
	d.logInfo("received command", "key", key, "value", value)

	if err := cb(value); err != nil {
		d.logWarn("command failed", "key", key, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrCommandRejected, key, err)
	}

	d.setState(key, value)
	kind := d.entities.EntityKind(key)
	encoded, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("encoding accepted value for %s: %w", key, err)
	}
	if err := d.client.PublishRetained(d.topics.State(kind, key), encoded); err != nil {
		d.logWarn("state publish after command failed", "key", key, "error", err)
		return err
	}
	d.logDebug("command executed", "key", key, "value", value)
	return nil
}

// setState stores value under key if it differs from the cached value.
// Returns true when the state changed.
func (d *Device) setState(key string, value any) bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if valuesEqual(d.state[key], value) {
		return false
	}
	d.state[key] = value
	return true
}

// State returns a copy of the cached state, for tests and diagnostics.
func (d *Device) State() map[string]any {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	out := make(map[string]any, len(d.state))
	for k, v := range d.state {
		out[k] = v
	}
	return out
}

// valuesEqual compares two state values.
//
// Numeric values are compared by magnitude so that an int seeded from the
// transport and the float64 a JSON command decodes to count as equal.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

// asFloat converts any numeric type to float64.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Logging helpers tolerate a nil logger so tests can omit one.

func (d *Device) logDebug(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}

func (d *Device) logInfo(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Info(msg, args...)
	}
}

func (d *Device) logWarn(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Warn(msg, args...)
	}
}
