package renac

import (
	"context"
	"fmt"
	"math"
)

// Inverter speaks the vendor protocol to one RENAC battery inverter.
//
// Methods are safe to call from one goroutine at a time, which matches the
// per-device supervisor model: every operation on a device happens on its
// own loop.
type Inverter struct {
	adapter Adapter
	addr    string
	sess    *session
}

// NewInverter creates a client for the inverter at addr. No connection is
// made until Connect.
func NewInverter(adapter Adapter, addr string) *Inverter {
	return &Inverter{
		adapter: adapter,
		addr:    addr,
		sess:    newSession(nil),
	}
}

// Addr returns the configured BLE address.
func (i *Inverter) Addr() string {
	return i.addr
}

// Connect establishes the BLE connection and protocol session.
func (i *Inverter) Connect(ctx context.Context) error {
	conn, err := i.adapter.Connect(ctx, i.addr)
	if err != nil {
		return err
	}
	if err := i.sess.open(conn); err != nil {
		conn.Disconnect()
		return err
	}
	return nil
}

// Close tears down the connection. Errors are returned but the session is
// unusable either way.
func (i *Inverter) Close() error {
	return i.sess.close()
}

// Connected reports whether the BLE link is believed alive.
func (i *Inverter) Connected() bool {
	return i.sess.isConnected()
}

// Info fetches the inverter's identity (serial number, model, firmware).
func (i *Inverter) Info(ctx context.Context) (DeviceInfo, error) {
	resp, err := i.sess.request(ctx, cmdGetInfo, nil)
	if err != nil {
		return DeviceInfo{}, err
	}
	return parseInfo(resp.payload)
}

// Overview fetches the power and energy telemetry snapshot.
func (i *Inverter) Overview(ctx context.Context) (map[string]any, error) {
	resp, err := i.sess.request(ctx, cmdGetOverview, nil)
	if err != nil {
		return nil, err
	}
	return parseOverview(resp.payload)
}

// readParam reads one parameter register.
func (i *Inverter) readParam(ctx context.Context, reg uint16) (int, error) {
	resp, err := i.sess.request(ctx, cmdReadParam, readParamPayload(reg))
	if err != nil {
		return 0, err
	}
	value, err := parseParamValue(resp.payload, reg)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

// writeParam writes one parameter register and checks the device accepted it.
func (i *Inverter) writeParam(ctx context.Context, reg uint16, value int) error {
	if value < math.MinInt16 || value > math.MaxInt16 {
		return fmt.Errorf("%w: %d out of range", ErrInvalidValue, value)
	}
	resp, err := i.sess.request(ctx, cmdWriteParam, writeParamPayload(reg, int16(value)))
	if err != nil {
		return err
	}
	return parseWriteStatus(resp.payload)
}

// Parameter accessors, one pair per writable inverter setting.

func (i *Inverter) MaxChargeCurrent(ctx context.Context) (int, error) {
	return i.readParam(ctx, regMaxChargeCurrent)
}

func (i *Inverter) SetMaxChargeCurrent(ctx context.Context, amps int) error {
	return i.writeParam(ctx, regMaxChargeCurrent, amps)
}

func (i *Inverter) MaxDischargeCurrent(ctx context.Context) (int, error) {
	return i.readParam(ctx, regMaxDischargeCurrent)
}

func (i *Inverter) SetMaxDischargeCurrent(ctx context.Context, amps int) error {
	return i.writeParam(ctx, regMaxDischargeCurrent, amps)
}

func (i *Inverter) MinSOC(ctx context.Context) (int, error) {
	return i.readParam(ctx, regMinSOC)
}

func (i *Inverter) SetMinSOC(ctx context.Context, percent int) error {
	return i.writeParam(ctx, regMinSOC, percent)
}

func (i *Inverter) MinSOCOnGrid(ctx context.Context) (int, error) {
	return i.readParam(ctx, regMinSOCOnGrid)
}

func (i *Inverter) SetMinSOCOnGrid(ctx context.Context, percent int) error {
	return i.writeParam(ctx, regMinSOCOnGrid, percent)
}

func (i *Inverter) ExportLimit(ctx context.Context) (int, error) {
	return i.readParam(ctx, regExportLimit)
}

func (i *Inverter) SetExportLimit(ctx context.Context, watts int) error {
	return i.writeParam(ctx, regExportLimit, watts)
}

func (i *Inverter) PowerLimitPercent(ctx context.Context) (int, error) {
	return i.readParam(ctx, regPowerLimitPercent)
}

func (i *Inverter) SetPowerLimitPercent(ctx context.Context, percent int) error {
	return i.writeParam(ctx, regPowerLimitPercent, percent)
}

func (i *Inverter) WorkMode(ctx context.Context) (WorkMode, error) {
	raw, err := i.readParam(ctx, regWorkMode)
	if err != nil {
		return 0, err
	}
	return workModeFromCode(uint16(raw))
}

func (i *Inverter) SetWorkMode(ctx context.Context, mode WorkMode) error {
	if int(mode) >= len(workModeNames) {
		return fmt.Errorf("%w: %d", ErrUnknownWorkMode, mode)
	}
	return i.writeParam(ctx, regWorkMode, int(mode))
}

// Actuator is one writable inverter setting surfaced to the bridge:
// a stable key plus typed get and set operations.
type Actuator struct {
	Key string
	Get func(ctx context.Context) (any, error)
	Set func(ctx context.Context, value any) error
}

// Actuators lists every writable setting. Values passed to Set are whatever
// a command payload decodes to; each setter coerces and validates.
func (i *Inverter) Actuators() []Actuator {
	intActuator := func(key string, get func(context.Context) (int, error), set func(context.Context, int) error) Actuator {
		return Actuator{
			Key: key,
			Get: func(ctx context.Context) (any, error) {
				return get(ctx)
			},
			Set: func(ctx context.Context, value any) error {
				n, err := coerceInt(value)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				return set(ctx, n)
			},
		}
	}

	return []Actuator{
		intActuator("max_charge_current", i.MaxChargeCurrent, i.SetMaxChargeCurrent),
		intActuator("max_discharge_current", i.MaxDischargeCurrent, i.SetMaxDischargeCurrent),
		intActuator("min_soc", i.MinSOC, i.SetMinSOC),
		intActuator("min_soc_on_grid", i.MinSOCOnGrid, i.SetMinSOCOnGrid),
		intActuator("export_limit", i.ExportLimit, i.SetExportLimit),
		intActuator("power_limit_percent", i.PowerLimitPercent, i.SetPowerLimitPercent),
		{
			Key: "work_mode",
			Get: func(ctx context.Context) (any, error) {
				mode, err := i.WorkMode(ctx)
				if err != nil {
					return nil, err
				}
				return mode.String(), nil
			},
			Set: func(ctx context.Context, value any) error {
				name, ok := value.(string)
				if !ok {
					return fmt.Errorf("%w: work_mode wants a string, got %T", ErrInvalidValue, value)
				}
				mode, err := ParseWorkMode(name)
				if err != nil {
					return err
				}
				return i.SetWorkMode(ctx, mode)
			},
		},
	}
}

// coerceInt accepts the numeric shapes a command payload can decode to.
// Fractional values are rejected rather than silently truncated.
func coerceInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: cannot use %T as integer", ErrInvalidValue, value)
	}
}
