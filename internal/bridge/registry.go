package bridge

import (
	"sync"

	"github.com/renacble/renac-ha-bridge/internal/homeassistant"
	"github.com/renacble/renac-ha-bridge/internal/renac"
)

// Publisher is the slice of the Home Assistant device surface the
// supervisors need. *homeassistant.Device satisfies it.
type Publisher interface {
	PublishAvailability() error
	PublishDiscovery() error
	SetSensorValue(key string, value any) bool
	SetSensorValues(values map[string]any) []string
	RegisterActuator(key string, callback homeassistant.ActuatorCallback, initial any) error
	SetActuatorValue(key string, value any) bool
}

// PublisherFactory creates the publisher for a newly identified device.
// The production factory opens a dedicated MQTT connection with the
// device's availability topic as its LWT and publishes discovery.
type PublisherFactory func(kind Kind, info renac.DeviceInfo) (Publisher, error)

// Registry hands out one publisher per device ID and reuses it across
// reconnects, so a BLE link flap never tears down the MQTT session or
// re-announces the device from scratch.
type Registry struct {
	mu      sync.Mutex
	factory PublisherFactory
	devices map[string]Publisher
}

func NewRegistry(factory PublisherFactory) *Registry {
	return &Registry{
		factory: factory,
		devices: make(map[string]Publisher),
	}
}

// GetOrCreate returns the publisher for the device, creating it on first
// sight. Creation failures are not cached; the next call retries.
func (r *Registry) GetOrCreate(kind Kind, info renac.DeviceInfo) (Publisher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := kind.DeviceID(info.SerialNumber)
	if pub, ok := r.devices[id]; ok {
		return pub, nil
	}

	pub, err := r.factory(kind, info)
	if err != nil {
		return nil, err
	}
	r.devices[id] = pub
	return pub, nil
}

// Size returns the number of registered devices.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
