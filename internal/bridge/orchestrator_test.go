package bridge

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/renacble/renac-ha-bridge/internal/infrastructure/config"
	"github.com/renacble/renac-ha-bridge/internal/infrastructure/logging"
	"github.com/renacble/renac-ha-bridge/internal/renac"
)

// === Registry ===

func TestRegistry_ReusesPublisher(t *testing.T) {
	created := 0
	registry := NewRegistry(func(kind Kind, info renac.DeviceInfo) (Publisher, error) {
		created++
		return newFakePublisher(), nil
	})
	info := renac.DeviceInfo{SerialNumber: "RN123456"}

	first, err := registry.GetOrCreate(KindInverter, info)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	second, err := registry.GetOrCreate(KindInverter, info)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	if first != second {
		t.Error("same device should reuse its publisher")
	}
	if created != 1 {
		t.Errorf("factory calls = %d, want 1", created)
	}
	if registry.Size() != 1 {
		t.Errorf("Size() = %d, want 1", registry.Size())
	}
}

func TestRegistry_SeparatesKinds(t *testing.T) {
	registry := NewRegistry(func(kind Kind, info renac.DeviceInfo) (Publisher, error) {
		return newFakePublisher(), nil
	})
	info := renac.DeviceInfo{SerialNumber: "SAME"}

	inv, _ := registry.GetOrCreate(KindInverter, info)
	wb, _ := registry.GetOrCreate(KindWallbox, info)

	if inv == wb {
		t.Error("inverter and wallbox with the same serial must be distinct devices")
	}
	if registry.Size() != 2 {
		t.Errorf("Size() = %d, want 2", registry.Size())
	}
}

func TestRegistry_DoesNotCacheFailures(t *testing.T) {
	calls := 0
	registry := NewRegistry(func(kind Kind, info renac.DeviceInfo) (Publisher, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("broker unreachable")
		}
		return newFakePublisher(), nil
	})
	info := renac.DeviceInfo{SerialNumber: "RN123456"}

	if _, err := registry.GetOrCreate(KindInverter, info); err == nil {
		t.Fatal("first call should fail")
	}
	if _, err := registry.GetOrCreate(KindInverter, info); err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if registry.Size() != 1 {
		t.Errorf("Size() = %d, want 1", registry.Size())
	}
}

// === Orchestrator ===

type fakeBLEAdapter struct {
	enableErr  error
	connectErr error
}

func (a *fakeBLEAdapter) Enable() error { return a.enableErr }

func (a *fakeBLEAdapter) Connect(ctx context.Context, addr string) (renac.Connection, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return nil, errors.New("not implemented")
}

func testConfig(inverterAddr, wallboxAddr string) *config.Config {
	cfg := &config.Config{}
	cfg.Devices.Inverter.Address = inverterAddr
	cfg.Devices.Wallbox.Address = wallboxAddr
	cfg.Polling.SensorInterval = 0.01
	cfg.Polling.ActuatorInterval = 0.01
	return cfg
}

func TestOrchestrator_NoDevices(t *testing.T) {
	o := NewOrchestrator(testConfig("", ""), &fakeBLEAdapter{},
		NewRegistry(nil), logging.Default())

	err := o.Run(context.Background())
	if !errors.Is(err, ErrNoDevices) {
		t.Errorf("Run() error = %v, want ErrNoDevices", err)
	}
	if err != nil && !strings.Contains(err.Error(), "RENAC_INVERTER_ADDR") {
		t.Errorf("error should name the env variables: %v", err)
	}
}

func TestOrchestrator_AdapterEnableFailure(t *testing.T) {
	enableErr := errors.New("no bluetooth controller")
	o := NewOrchestrator(testConfig("AA:BB:CC:DD:EE:01", ""),
		&fakeBLEAdapter{enableErr: enableErr}, NewRegistry(nil), logging.Default())

	err := o.Run(context.Background())
	if !errors.Is(err, enableErr) {
		t.Errorf("Run() error = %v, want wrapped enable error", err)
	}
}

func TestOrchestrator_StopsOnCancel(t *testing.T) {
	// Connect never succeeds; supervisors must still exit cleanly.
	adapter := &fakeBLEAdapter{connectErr: errors.New("host is down")}
	o := NewOrchestrator(testConfig("AA:BB:CC:DD:EE:01", "AA:BB:CC:DD:EE:02"),
		adapter, NewRegistry(nil), logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("orchestrator did not stop")
	}
}
