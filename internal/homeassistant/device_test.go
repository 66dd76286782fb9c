package homeassistant

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/renacble/renac-ha-bridge/internal/infrastructure/mqtt"
)

// mockMQTTClient records publishes and subscriptions for verification.
type mockMQTTClient struct {
	mu            sync.Mutex
	published     []publishRecord
	subscriptions map[string]mqtt.MessageHandler
	publishErr    error
}

type publishRecord struct {
	topic   string
	payload string
}

func newMockMQTTClient() *mockMQTTClient {
	return &mockMQTTClient{
		subscriptions: make(map[string]mqtt.MessageHandler),
	}
}

func (m *mockMQTTClient) PublishRetained(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishRecord{topic: topic, payload: string(payload)})
	return nil
}

func (m *mockMQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	return nil
}

func (m *mockMQTTClient) publishCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}

// payloadFor returns the last payload published on topic, if any.
func (m *mockMQTTClient) payloadFor(topic string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.published) - 1; i >= 0; i-- {
		if m.published[i].topic == topic {
			return m.published[i].payload, true
		}
	}
	return "", false
}

func newTestDevice(client MQTTClient) *Device {
	return NewDevice(client, DeviceInfo{
		ID:    "inverter_123",
		Name:  "RENAC Inverter",
		Model: "N3-HV-15.0",
		QoS:   1,
	}, InverterEntities, nil)
}

// =============================================================================
// Discovery Tests
// =============================================================================

func TestPublishDiscovery_ConfigCount(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishDiscovery(); err != nil {
		t.Fatalf("PublishDiscovery() error = %v", err)
	}

	want := len(InverterEntities.Sensors) + len(InverterEntities.Numbers) + len(InverterEntities.Selects)
	if got := client.publishCount(); got != want {
		t.Errorf("published %d configs, want %d", got, want)
	}
}

func TestPublishDiscovery_SubscribesWritables(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishDiscovery(); err != nil {
		t.Fatalf("PublishDiscovery() error = %v", err)
	}

	want := len(InverterEntities.Numbers) + len(InverterEntities.Selects)
	if len(client.subscriptions) != want {
		t.Errorf("got %d subscriptions, want %d", len(client.subscriptions), want)
	}
	if _, ok := client.subscriptions["homeassistant/number/inverter_123/min_soc/set"]; !ok {
		t.Error("expected subscription on min_soc set topic")
	}
	if _, ok := client.subscriptions["homeassistant/select/inverter_123/work_mode/set"]; !ok {
		t.Error("expected subscription on work_mode set topic")
	}
}

func TestPublishDiscovery_SensorConfig(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishDiscovery(); err != nil {
		t.Fatalf("PublishDiscovery() error = %v", err)
	}

	payload, ok := client.payloadFor("homeassistant/sensor/inverter_123/load_power/config")
	if !ok {
		t.Fatal("no config published for load_power")
	}

	var cfg map[string]any
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}

	if cfg["name"] != "RENAC Inverter Load Power" {
		t.Errorf("name = %v", cfg["name"])
	}
	if cfg["state_topic"] != "homeassistant/sensor/inverter_123/load_power/state" {
		t.Errorf("state_topic = %v", cfg["state_topic"])
	}
	if cfg["unique_id"] != "inverter_123_load_power" {
		t.Errorf("unique_id = %v", cfg["unique_id"])
	}
	if cfg["availability_topic"] != "homeassistant/inverter_123/availability" {
		t.Errorf("availability_topic = %v", cfg["availability_topic"])
	}
	if cfg["payload_available"] != "online" || cfg["payload_not_available"] != "offline" {
		t.Error("availability payloads wrong")
	}
	if cfg["unit_of_measurement"] != "W" {
		t.Errorf("unit = %v", cfg["unit_of_measurement"])
	}
	if cfg["device_class"] != "power" {
		t.Errorf("device_class = %v", cfg["device_class"])
	}
	if cfg["state_class"] != "measurement" {
		t.Errorf("state_class = %v", cfg["state_class"])
	}
	if _, hasCmd := cfg["command_topic"]; hasCmd {
		t.Error("sensor config must not carry a command topic")
	}

	device, ok := cfg["device"].(map[string]any)
	if !ok {
		t.Fatal("missing device block")
	}
	if device["manufacturer"] != "RENAC" {
		t.Errorf("manufacturer = %v", device["manufacturer"])
	}
	if device["model"] != "N3-HV-15.0" {
		t.Errorf("model = %v", device["model"])
	}
	if device["name"] != "RENAC Inverter" {
		t.Errorf("device name = %v", device["name"])
	}
	ids, _ := device["identifiers"].([]any)
	if len(ids) != 1 || ids[0] != "inverter_123" {
		t.Errorf("identifiers = %v", device["identifiers"])
	}
}

func TestPublishDiscovery_NumberConfig(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishDiscovery(); err != nil {
		t.Fatalf("PublishDiscovery() error = %v", err)
	}

	payload, ok := client.payloadFor("homeassistant/number/inverter_123/power_limit_percent/config")
	if !ok {
		t.Fatal("no config published for power_limit_percent")
	}

	var cfg map[string]any
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}

	if cfg["command_topic"] != "homeassistant/number/inverter_123/power_limit_percent/set" {
		t.Errorf("command_topic = %v", cfg["command_topic"])
	}
	if cfg["min"] != float64(-100) {
		t.Errorf("min = %v, want -100", cfg["min"])
	}
	if cfg["max"] != float64(100) {
		t.Errorf("max = %v, want 100", cfg["max"])
	}
	if cfg["step"] != float64(1) {
		t.Errorf("step = %v, want 1", cfg["step"])
	}
	if cfg["mode"] != "box" {
		t.Errorf("mode = %v", cfg["mode"])
	}
}

func TestPublishDiscovery_ZeroMinSurvives(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishDiscovery(); err != nil {
		t.Fatalf("PublishDiscovery() error = %v", err)
	}

	payload, ok := client.payloadFor("homeassistant/number/inverter_123/export_limit/config")
	if !ok {
		t.Fatal("no config published for export_limit")
	}

	var cfg map[string]any
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatal(err)
	}
	if v, present := cfg["min"]; !present || v != float64(0) {
		t.Errorf("min = %v (present=%v), want 0", v, present)
	}
}

func TestPublishDiscovery_SelectConfig(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishDiscovery(); err != nil {
		t.Fatalf("PublishDiscovery() error = %v", err)
	}

	payload, ok := client.payloadFor("homeassistant/select/inverter_123/work_mode/config")
	if !ok {
		t.Fatal("no config published for work_mode")
	}

	var cfg map[string]any
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatal(err)
	}

	options, _ := cfg["options"].([]any)
	if len(options) != 4 {
		t.Fatalf("options = %v, want 4 entries", cfg["options"])
	}
	if options[0] != "self_use" || options[3] != "feed_in_first" {
		t.Errorf("options = %v", options)
	}
}

func TestPublishAvailability(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishAvailability(); err != nil {
		t.Fatalf("PublishAvailability() error = %v", err)
	}

	payload, ok := client.payloadFor("homeassistant/inverter_123/availability")
	if !ok {
		t.Fatal("availability not published")
	}
	if payload != "online" {
		t.Errorf("availability payload = %q, want online", payload)
	}
}

// =============================================================================
// Sensor State Tests
// =============================================================================

func TestSetSensorValue_PublishesOnce(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if !dev.SetSensorValue("load_power", 742) {
		t.Error("first SetSensorValue should publish")
	}
	if dev.SetSensorValue("load_power", 742) {
		t.Error("identical SetSensorValue should not publish")
	}

	if got := client.publishCount(); got != 1 {
		t.Errorf("published %d times, want 1", got)
	}

	payload, _ := client.payloadFor("homeassistant/sensor/inverter_123/load_power/state")
	if payload != "742" {
		t.Errorf("payload = %q, want 742", payload)
	}
}

func TestSetSensorValue_PublishesChange(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	dev.SetSensorValue("load_power", 742)
	if !dev.SetSensorValue("load_power", 743) {
		t.Error("changed value should publish")
	}
	if got := client.publishCount(); got != 2 {
		t.Errorf("published %d times, want 2", got)
	}
}

func TestSetSensorValues_ReturnsChangedKeys(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	dev.SetSensorValue("battery_soc", 55)

	published := dev.SetSensorValues(map[string]any{
		"battery_soc": 55,  // unchanged
		"load_power":  742, // new
	})

	if len(published) != 1 || published[0] != "load_power" {
		t.Errorf("published keys = %v, want [load_power]", published)
	}
}

func TestSetSensorValue_StringPayloadRaw(t *testing.T) {
	client := newMockMQTTClient()
	dev := NewDevice(client, DeviceInfo{ID: "wallbox_9", Name: "RENAC Wallbox", Model: "W3"}, WallboxEntities, nil)

	dev.SetSensorValue("state", "charging")

	payload, _ := client.payloadFor("homeassistant/sensor/wallbox_9/state/state")
	if payload != "charging" {
		t.Errorf("payload = %q, want raw string", payload)
	}
}

// =============================================================================
// Actuator Tests
// =============================================================================

func TestRegisterActuator_UnknownKey(t *testing.T) {
	dev := newTestDevice(newMockMQTTClient())

	err := dev.RegisterActuator("bogus", func(any) error { return nil }, nil)
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("error = %v, want ErrUnknownEntity", err)
	}
}

func TestRegisterActuator_SensorKey(t *testing.T) {
	dev := newTestDevice(newMockMQTTClient())

	err := dev.RegisterActuator("load_power", func(any) error { return nil }, nil)
	if !errors.Is(err, ErrNotWritable) {
		t.Errorf("error = %v, want ErrNotWritable", err)
	}
}

func TestRegisterActuator_SeedsInitialValue(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	called := false
	err := dev.RegisterActuator("min_soc", func(any) error {
		called = true
		return nil
	}, 20)
	if err != nil {
		t.Fatalf("RegisterActuator() error = %v", err)
	}

	if called {
		t.Error("seeding the initial value must not invoke the callback")
	}

	payload, ok := client.payloadFor("homeassistant/number/inverter_123/min_soc/state")
	if !ok {
		t.Fatal("initial value not published")
	}
	if payload != "20" {
		t.Errorf("payload = %q, want 20", payload)
	}
}

func TestRegisterActuator_NilInitialSkipsPublish(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.RegisterActuator("min_soc", func(any) error { return nil }, nil); err != nil {
		t.Fatalf("RegisterActuator() error = %v", err)
	}
	if got := client.publishCount(); got != 0 {
		t.Errorf("published %d times, want 0", got)
	}
}

func TestSetActuatorValue_Dedup(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if !dev.SetActuatorValue("max_charge_current", 25) {
		t.Error("first SetActuatorValue should publish")
	}
	if dev.SetActuatorValue("max_charge_current", 25) {
		t.Error("identical SetActuatorValue should not publish")
	}
}

func TestSetActuatorValue_NumericEquivalence(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	dev.SetActuatorValue("max_charge_current", 25)
	// A JSON command decodes to float64; equal magnitude must not republish.
	if dev.SetActuatorValue("max_charge_current", float64(25)) {
		t.Error("int 25 and float64 25 should compare equal")
	}
}

func TestSetActuatorValue_UnknownKey(t *testing.T) {
	dev := newTestDevice(newMockMQTTClient())

	if dev.SetActuatorValue("bogus", 1) {
		t.Error("unknown key should not publish")
	}
}

// =============================================================================
// Command Dispatch Tests
// =============================================================================

func TestHandleCommand_Success(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	var received any
	if err := dev.RegisterActuator("min_soc", func(v any) error {
		received = v
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	err := dev.handleCommand("homeassistant/number/inverter_123/min_soc/set", []byte("15"))
	if err != nil {
		t.Fatalf("handleCommand() error = %v", err)
	}

	if received != float64(15) {
		t.Errorf("callback received %v (%T), want float64 15", received, received)
	}

	payload, ok := client.payloadFor("homeassistant/number/inverter_123/min_soc/state")
	if !ok {
		t.Fatal("accepted value not republished")
	}
	if payload != "15" {
		t.Errorf("republished payload = %q, want 15", payload)
	}

	if got := dev.State()["min_soc"]; got != float64(15) {
		t.Errorf("cached state = %v, want 15", got)
	}
}

func TestHandleCommand_RawStringFallback(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	var received any
	if err := dev.RegisterActuator("work_mode", func(v any) error {
		received = v
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	err := dev.handleCommand("homeassistant/select/inverter_123/work_mode/set", []byte("self_use"))
	if err != nil {
		t.Fatalf("handleCommand() error = %v", err)
	}

	if received != "self_use" {
		t.Errorf("callback received %v, want raw string self_use", received)
	}

	payload, _ := client.payloadFor("homeassistant/select/inverter_123/work_mode/state")
	if payload != "self_use" {
		t.Errorf("republished payload = %q", payload)
	}
}

func TestHandleCommand_CallbackFailure(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.RegisterActuator("min_soc", func(any) error {
		return errors.New("device said no")
	}, nil); err != nil {
		t.Fatal(err)
	}

	err := dev.handleCommand("homeassistant/number/inverter_123/min_soc/set", []byte("15"))
	if !errors.Is(err, ErrCommandRejected) {
		t.Errorf("error = %v, want ErrCommandRejected", err)
	}

	if got := client.publishCount(); got != 0 {
		t.Errorf("published %d times after failed command, want 0", got)
	}
	if _, cached := dev.State()["min_soc"]; cached {
		t.Error("failed command must not mutate state")
	}
}

func TestHandleCommand_UnregisteredKey(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	err := dev.handleCommand("homeassistant/number/inverter_123/min_soc/set", []byte("15"))
	if err != nil {
		t.Errorf("unregistered key should be discarded quietly, got %v", err)
	}
	if got := client.publishCount(); got != 0 {
		t.Errorf("published %d times, want 0", got)
	}
}

func TestHandleCommand_NonCommandTopic(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	err := dev.handleCommand("homeassistant/inverter_123/availability", []byte("online"))
	if err != nil {
		t.Errorf("non-command topic should be ignored, got %v", err)
	}
}

func TestHandleCommand_EndToEndViaSubscription(t *testing.T) {
	client := newMockMQTTClient()
	dev := newTestDevice(client)

	if err := dev.PublishDiscovery(); err != nil {
		t.Fatal(err)
	}

	applied := make(chan any, 1)
	if err := dev.RegisterActuator("export_limit", func(v any) error {
		applied <- v
		return nil
	}, nil); err != nil {
		t.Fatal(err)
	}

	topic := "homeassistant/number/inverter_123/export_limit/set"
	handler, ok := client.subscriptions[topic]
	if !ok {
		t.Fatal("no handler subscribed for export_limit")
	}

	if err := handler(topic, []byte("5000")); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	select {
	case v := <-applied:
		if v != float64(5000) {
			t.Errorf("applied value = %v, want 5000", v)
		}
	default:
		t.Fatal("callback was not invoked")
	}
}
