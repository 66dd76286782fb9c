package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/renacble/renac-ha-bridge/internal/renac"
)

// WallboxTransport is the slice of *renac.Wallbox the supervisor uses.
// Telemetry arrives through the handler given to the transport factory,
// not through polling.
type WallboxTransport interface {
	Connect(ctx context.Context) error
	Close() error
	Connected() bool
}

// WallboxTransportFactory builds the transport with the supervisor's
// telemetry handler wired in.
type WallboxTransportFactory func(handler renac.TelemetryHandler) WallboxTransport

// WallboxSupervisor keeps a wallbox link alive and forwards its telemetry
// notifications to Home Assistant. The MQTT device is created lazily on
// the first telemetry frame, which carries the serial number and model.
type WallboxSupervisor struct {
	addr           string
	newTransport   WallboxTransportFactory
	registry       *Registry
	logger         Logger
	checkInterval  time.Duration
	reconnectDelay time.Duration
	phase          atomic.Int32

	mu  sync.Mutex
	pub Publisher
}

func NewWallboxSupervisor(addr string, factory WallboxTransportFactory, registry *Registry, checkInterval time.Duration, logger Logger) *WallboxSupervisor {
	return &WallboxSupervisor{
		addr:           addr,
		newTransport:   factory,
		registry:       registry,
		logger:         logger,
		checkInterval:  checkInterval,
		reconnectDelay: defaultReconnectDelay,
	}
}

// Phase returns the current connection phase.
func (s *WallboxSupervisor) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *WallboxSupervisor) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// Run supervises the wallbox until the context is cancelled. It never
// returns an error: failures are logged and retried forever.
func (s *WallboxSupervisor) Run(ctx context.Context) error {
	defer s.setPhase(PhaseDisconnected)

	transport := s.newTransport(s.handleTelemetry)
	for {
		s.setPhase(PhaseConnecting)
		if err := s.connect(ctx, transport); err != nil {
			return nil
		}
		s.setPhase(PhaseConnected)
		logInfo(s.logger, "wallbox connected", "addr", s.addr)

		err := s.watch(ctx, transport)
		s.setPhase(PhaseDegraded)
		if closeErr := transport.Close(); closeErr != nil {
			logDebug(s.logger, "transport close failed", "addr", s.addr, "error", closeErr)
		}
		if ctx.Err() != nil {
			return nil
		}

		logWarn(s.logger, "wallbox loop failed, will reconnect",
			"addr", s.addr, "error", err, "delay", s.reconnectDelay.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *WallboxSupervisor) connect(ctx context.Context, transport WallboxTransport) error {
	policy := backoff.WithContext(backoff.NewConstantBackOff(s.reconnectDelay), ctx)
	return backoff.Retry(func() error {
		if err := transport.Connect(ctx); err != nil {
			logWarn(s.logger, "wallbox connect failed", "addr", s.addr, "error", err)
			return err
		}
		return nil
	}, policy)
}

// watch keeps the link under observation until it drops or the context
// ends. Data flow happens entirely in handleTelemetry.
func (s *WallboxSupervisor) watch(ctx context.Context, transport WallboxTransport) error {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !transport.Connected() {
				return ErrLinkLost
			}
		}
	}
}

// handleTelemetry runs on the BLE notification goroutine.
func (s *WallboxSupervisor) handleTelemetry(values map[string]any) {
	pub, err := s.publisher(values)
	if err != nil {
		logWarn(s.logger, "wallbox telemetry dropped", "addr", s.addr, "error", err)
		return
	}
	if changed := pub.SetSensorValues(filterWallboxTelemetry(values)); len(changed) > 0 {
		logDebug(s.logger, "sensor states updated", "addr", s.addr, "changed", len(changed))
	}
}

// publisher returns the device publisher, creating it the first time
// telemetry identifies the wallbox.
func (s *WallboxSupervisor) publisher(values map[string]any) (Publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pub != nil {
		return s.pub, nil
	}

	sn, _ := values["sn"].(string)
	if sn == "" {
		return nil, fmt.Errorf("telemetry carries no serial number")
	}
	model, _ := values["model"].(string)

	pub, err := s.registry.GetOrCreate(KindWallbox, renac.DeviceInfo{SerialNumber: sn, Model: model})
	if err != nil {
		return nil, err
	}
	s.pub = pub
	return pub, nil
}
