package bridge

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/renacble/renac-ha-bridge/internal/infrastructure/config"
	"github.com/renacble/renac-ha-bridge/internal/infrastructure/logging"
	"github.com/renacble/renac-ha-bridge/internal/renac"
)

// Orchestrator resolves the configured device addresses and runs one
// supervisor per device on a shared Bluetooth adapter and registry.
type Orchestrator struct {
	cfg      *config.Config
	adapter  renac.Adapter
	registry *Registry
	logger   *logging.Logger
}

func NewOrchestrator(cfg *config.Config, adapter renac.Adapter, registry *Registry, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		adapter:  adapter,
		registry: registry,
		logger:   logger,
	}
}

// Run starts every supervisor and blocks until the context is cancelled.
// It fails fast when no devices are configured at all.
func (o *Orchestrator) Run(ctx context.Context) error {
	inverters := o.cfg.Devices.Inverter.Resolve()
	wallboxes := o.cfg.Devices.Wallbox.Resolve()
	if len(inverters) == 0 && len(wallboxes) == 0 {
		return ErrNoDevices
	}

	if err := o.adapter.Enable(); err != nil {
		return fmt.Errorf("enable bluetooth adapter: %w", err)
	}

	o.logger.Info("starting device supervisors",
		"inverters", len(inverters), "wallboxes", len(wallboxes))

	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range inverters {
		sup := NewInverterSupervisor(addr,
			renac.NewInverter(o.adapter, addr),
			o.registry,
			o.cfg.GetSensorInterval(),
			o.cfg.GetActuatorInterval(),
			o.logger.With("component", "inverter", "addr", addr))
		g.Go(func() error { return sup.Run(ctx) })
	}
	for _, addr := range wallboxes {
		factory := func(handler renac.TelemetryHandler) WallboxTransport {
			return renac.NewWallbox(o.adapter, addr, handler)
		}
		sup := NewWallboxSupervisor(addr, factory,
			o.registry,
			o.cfg.GetSensorInterval(),
			o.logger.With("component", "wallbox", "addr", addr))
		g.Go(func() error { return sup.Run(ctx) })
	}
	return g.Wait()
}
