package bridge

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/renacble/renac-ha-bridge/internal/renac"
)

// Logger defines the logging interface for supervisors.
// Compatible with the logging package's Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Phase is the coarse connection state of a supervisor, exposed for
// logging and tests.
type Phase int32

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	// PhaseDegraded covers the wait between a connected-phase failure and
	// the next connect attempt.
	PhaseDegraded
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDegraded:
		return "degraded"
	}
	return "unknown"
}

// InverterTransport is the slice of *renac.Inverter the supervisor uses.
type InverterTransport interface {
	Connect(ctx context.Context) error
	Close() error
	Connected() bool
	Info(ctx context.Context) (renac.DeviceInfo, error)
	Overview(ctx context.Context) (map[string]any, error)
	Actuators() []renac.Actuator
}

const (
	defaultReconnectDelay = 5 * time.Second
	defaultCommandTimeout = 10 * time.Second
	commandQueueDepth     = 8
)

// command carries one actuator write from the MQTT dispatch goroutine to
// the device loop, which owns all transport access.
type command struct {
	key   string
	value any
	reply chan error
}

// InverterSupervisor owns one inverter link end to end: connect with
// retry, identify, announce, poll, refresh actuators, execute commands,
// reconnect on any failure.
type InverterSupervisor struct {
	addr             string
	transport        InverterTransport
	registry         *Registry
	logger           Logger
	pollInterval     time.Duration
	actuatorInterval time.Duration
	reconnectDelay   time.Duration
	commandTimeout   time.Duration
	inbox            chan command
	phase            atomic.Int32
}

func NewInverterSupervisor(addr string, transport InverterTransport, registry *Registry, poll, actuatorPoll time.Duration, logger Logger) *InverterSupervisor {
	return &InverterSupervisor{
		addr:             addr,
		transport:        transport,
		registry:         registry,
		logger:           logger,
		pollInterval:     poll,
		actuatorInterval: actuatorPoll,
		reconnectDelay:   defaultReconnectDelay,
		commandTimeout:   defaultCommandTimeout,
		inbox:            make(chan command, commandQueueDepth),
	}
}

// Phase returns the current connection phase.
func (s *InverterSupervisor) Phase() Phase {
	return Phase(s.phase.Load())
}

func (s *InverterSupervisor) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// Run supervises the inverter until the context is cancelled. It never
// returns an error: failures are logged and retried forever.
func (s *InverterSupervisor) Run(ctx context.Context) error {
	defer s.setPhase(PhaseDisconnected)

	for {
		s.setPhase(PhaseConnecting)
		if err := s.connect(ctx); err != nil {
			return nil
		}
		s.setPhase(PhaseConnected)
		logInfo(s.logger, "inverter connected", "addr", s.addr)

		err := s.serve(ctx)
		s.setPhase(PhaseDegraded)
		if closeErr := s.transport.Close(); closeErr != nil {
			logDebug(s.logger, "transport close failed", "addr", s.addr, "error", closeErr)
		}
		if ctx.Err() != nil {
			return nil
		}

		logWarn(s.logger, "inverter loop failed, will reconnect",
			"addr", s.addr, "error", err, "delay", s.reconnectDelay.String())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.reconnectDelay):
		}
	}
}

// connect retries until the transport connects or the context ends.
func (s *InverterSupervisor) connect(ctx context.Context) error {
	policy := backoff.WithContext(backoff.NewConstantBackOff(s.reconnectDelay), ctx)
	return backoff.Retry(func() error {
		if err := s.transport.Connect(ctx); err != nil {
			logWarn(s.logger, "inverter connect failed", "addr", s.addr, "error", err)
			return err
		}
		return nil
	}, policy)
}

// serve runs one connected session. Any returned error sends the
// supervisor back through the reconnect path.
func (s *InverterSupervisor) serve(ctx context.Context) error {
	info, err := s.transport.Info(ctx)
	if err != nil {
		return fmt.Errorf("read device info: %w", err)
	}

	pub, err := s.registry.GetOrCreate(KindInverter, info)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}

	actuators := s.transport.Actuators()
	byKey := make(map[string]renac.Actuator, len(actuators))
	for _, act := range actuators {
		byKey[act.Key] = act
		initial, err := act.Get(ctx)
		if err != nil {
			return fmt.Errorf("read initial %s: %w", act.Key, err)
		}
		key := act.Key
		callback := func(value any) error {
			return s.submit(key, value)
		}
		if err := pub.RegisterActuator(key, callback, initial); err != nil {
			return fmt.Errorf("register actuator %s: %w", key, err)
		}
	}

	lastRefresh := time.Now()
	for {
		overview, err := s.transport.Overview(ctx)
		if err != nil {
			return fmt.Errorf("poll overview: %w", err)
		}
		if changed := pub.SetSensorValues(overview); len(changed) > 0 {
			logDebug(s.logger, "sensor states updated", "addr", s.addr, "changed", len(changed))
		}

		if time.Since(lastRefresh) >= s.actuatorInterval {
			lastRefresh = time.Now()
			for _, act := range actuators {
				value, err := act.Get(ctx)
				if err != nil {
					return fmt.Errorf("refresh %s: %w", act.Key, err)
				}
				pub.SetActuatorValue(act.Key, value)
			}
		}

		if !s.transport.Connected() {
			return ErrLinkLost
		}

		if err := s.idle(ctx, byKey); err != nil {
			return err
		}
	}
}

// idle waits out the poll interval while servicing queued commands, so a
// Home Assistant write never has to wait for the next poll cycle.
func (s *InverterSupervisor) idle(ctx context.Context, actuators map[string]renac.Actuator) error {
	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.inbox:
			cmd.reply <- s.execute(ctx, actuators, cmd)
		case <-timer.C:
			return nil
		}
	}
}

func (s *InverterSupervisor) execute(ctx context.Context, actuators map[string]renac.Actuator, cmd command) error {
	act, ok := actuators[cmd.key]
	if !ok {
		return fmt.Errorf("no actuator for key %q", cmd.key)
	}
	return act.Set(ctx, cmd.value)
}

// submit hands a command to the device loop and waits for the outcome.
// Called from the MQTT dispatch goroutine. Commands arriving while the
// link is down time out and are reported as rejected.
func (s *InverterSupervisor) submit(key string, value any) error {
	cmd := command{key: key, value: value, reply: make(chan error, 1)}

	timer := time.NewTimer(s.commandTimeout)
	defer timer.Stop()

	select {
	case s.inbox <- cmd:
	case <-timer.C:
		return ErrCommandTimeout
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-timer.C:
		return ErrCommandTimeout
	}
}

func logDebug(l Logger, msg string, args ...any) {
	if l != nil {
		l.Debug(msg, args...)
	}
}

func logInfo(l Logger, msg string, args ...any) {
	if l != nil {
		l.Info(msg, args...)
	}
}

func logWarn(l Logger, msg string, args ...any) {
	if l != nil {
		l.Warn(msg, args...)
	}
}
