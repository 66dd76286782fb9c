package bridge

import (
	"fmt"

	"github.com/renacble/renac-ha-bridge/internal/homeassistant"
	"github.com/renacble/renac-ha-bridge/internal/infrastructure/config"
	"github.com/renacble/renac-ha-bridge/internal/infrastructure/logging"
	"github.com/renacble/renac-ha-bridge/internal/infrastructure/mqtt"
	"github.com/renacble/renac-ha-bridge/internal/renac"
)

// NewPublisherFactory returns the production PublisherFactory. Each device
// gets its own MQTT connection whose last-will retains "offline" on the
// device's availability topic, so a bridge crash flips every device
// unavailable in Home Assistant. Discovery and availability are published
// immediately and republished after every broker reconnect.
func NewPublisherFactory(cfg *config.Config, logger *logging.Logger) PublisherFactory {
	return func(kind Kind, info renac.DeviceInfo) (Publisher, error) {
		deviceID := kind.DeviceID(info.SerialNumber)
		topics := homeassistant.Topics{Prefix: cfg.MQTT.DiscoveryPrefix, DeviceID: deviceID}

		client, err := mqtt.Connect(mqtt.Options{
			Config:      cfg.MQTT,
			DeviceID:    deviceID,
			WillTopic:   topics.Availability(),
			WillPayload: homeassistant.PayloadOffline,
		})
		if err != nil {
			return nil, fmt.Errorf("connect mqtt for %s: %w", deviceID, err)
		}
		client.SetLogger(logger.With("component", "mqtt", "device", deviceID))

		device := homeassistant.NewDevice(client, homeassistant.DeviceInfo{
			ID:     deviceID,
			Name:   kind.DisplayName(),
			Model:  info.Model,
			Prefix: cfg.MQTT.DiscoveryPrefix,
			QoS:    byte(cfg.MQTT.QoS),
		}, kind.Entities(), logger.With("component", "homeassistant", "device", deviceID))

		client.SetOnConnect(func() {
			if err := device.PublishAvailability(); err != nil {
				logger.Warn("availability republish failed", "device", deviceID, "error", err)
			}
			if err := device.PublishDiscovery(); err != nil {
				logger.Warn("discovery republish failed", "device", deviceID, "error", err)
			}
		})

		if err := device.PublishAvailability(); err != nil {
			return nil, fmt.Errorf("publish availability for %s: %w", deviceID, err)
		}
		if err := device.PublishDiscovery(); err != nil {
			return nil, fmt.Errorf("publish discovery for %s: %w", deviceID, err)
		}
		return device, nil
	}
}
