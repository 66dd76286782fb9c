package renac

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Frame layout: start byte, command, sequence, payload length, payload,
// CRC-16 (little endian) over command..payload. One frame per notification.
const (
	frameStart = 0xA5
	headerLen  = 4
	crcLen     = 2
	maxPayload = 255
)

// Command bytes. Responses echo the request command; telemetry frames are
// unsolicited.
const (
	cmdGetInfo     = 0x01
	cmdGetOverview = 0x02
	cmdReadParam   = 0x03
	cmdWriteParam  = 0x04
	cmdTelemetry   = 0x10
)

// Parameter registers for inverter settings.
const (
	regMaxChargeCurrent    uint16 = 0x0101
	regMaxDischargeCurrent uint16 = 0x0102
	regMinSOC              uint16 = 0x0103
	regMinSOCOnGrid        uint16 = 0x0104
	regExportLimit         uint16 = 0x0105
	regPowerLimitPercent   uint16 = 0x0106
	regWorkMode            uint16 = 0x0107
)

// Write response status.
const writeStatusOK = 0x00

// frame is one decoded protocol frame.
type frame struct {
	cmd     uint8
	seq     uint8
	payload []byte
}

// encodeFrame renders a frame to its wire form.
func encodeFrame(f frame) []byte {
	buf := make([]byte, 0, headerLen+len(f.payload)+crcLen)
	buf = append(buf, frameStart, f.cmd, f.seq, byte(len(f.payload)))
	buf = append(buf, f.payload...)
	crc := crc16(buf[1:]) // start byte excluded
	buf = append(buf, byte(crc), byte(crc>>8))
	return buf
}

// decodeFrame parses and validates one wire frame.
func decodeFrame(buf []byte) (frame, error) {
	if len(buf) < headerLen+crcLen {
		return frame{}, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(buf))
	}
	if buf[0] != frameStart {
		return frame{}, fmt.Errorf("%w: bad start byte 0x%02x", ErrBadFrame, buf[0])
	}
	payloadLen := int(buf[3])
	if len(buf) != headerLen+payloadLen+crcLen {
		return frame{}, fmt.Errorf("%w: length field %d does not match frame size %d",
			ErrBadFrame, payloadLen, len(buf))
	}

	body := buf[1 : headerLen+payloadLen]
	want := uint16(buf[len(buf)-2]) | uint16(buf[len(buf)-1])<<8
	if got := crc16(body); got != want {
		return frame{}, fmt.Errorf("%w: got 0x%04x, want 0x%04x", ErrCRCMismatch, got, want)
	}

	return frame{
		cmd:     buf[1],
		seq:     buf[2],
		payload: append([]byte(nil), buf[headerLen:headerLen+payloadLen]...),
	}, nil
}

// crc16 computes the CRC-16/MODBUS checksum the devices use.
func crc16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// DeviceInfo is the identity block reported by an inverter.
type DeviceInfo struct {
	SerialNumber string
	Model        string
	Firmware     string
}

// parseInfo decodes a cmdGetInfo response: three NUL-terminated strings
// (serial, model, firmware).
func parseInfo(payload []byte) (DeviceInfo, error) {
	parts := bytes.SplitN(payload, []byte{0}, 4)
	if len(parts) < 3 {
		return DeviceInfo{}, fmt.Errorf("%w: info payload has %d fields", ErrBadFrame, len(parts))
	}
	info := DeviceInfo{
		SerialNumber: string(parts[0]),
		Model:        string(parts[1]),
		Firmware:     string(parts[2]),
	}
	if info.SerialNumber == "" {
		return DeviceInfo{}, fmt.Errorf("%w: empty serial number", ErrBadFrame)
	}
	return info, nil
}

// overviewField describes one value in the overview payload, in wire order.
type overviewField struct {
	key    string
	width  int
	signed bool
	scale  float64 // 0 means raw integer
}

// overviewFields is the fixed layout of a cmdGetOverview response.
// Powers are signed watts, SOC is a percentage, energies are 0.1 kWh.
var overviewFields = []overviewField{
	{key: "load_power", width: 4, signed: true},
	{key: "pv_power", width: 4, signed: true},
	{key: "battery_power", width: 4, signed: true},
	{key: "eps_power", width: 4, signed: true},
	{key: "battery_soc", width: 2},

	{key: "pv_total_energy", width: 4, scale: 0.1},
	{key: "pv_today_energy", width: 4, scale: 0.1},
	{key: "battery_total_charge_energy", width: 4, scale: 0.1},
	{key: "battery_today_charge_energy", width: 4, scale: 0.1},
	{key: "battery_total_discharge_energy", width: 4, scale: 0.1},
	{key: "battery_today_discharge_energy", width: 4, scale: 0.1},
	{key: "feedin_total_energy", width: 4, scale: 0.1},
	{key: "feedin_today_energy", width: 4, scale: 0.1},
	{key: "consumption_total_energy", width: 4, scale: 0.1},
	{key: "consumption_today_energy", width: 4, scale: 0.1},
	{key: "output_total_energy", width: 4, scale: 0.1},
	{key: "output_today_energy", width: 4, scale: 0.1},
	{key: "load_total_energy", width: 4, scale: 0.1},
	{key: "load_today_energy", width: 4, scale: 0.1},
	{key: "input_total_energy", width: 4, scale: 0.1},
	{key: "input_today_energy", width: 4, scale: 0.1},
	{key: "eps_total_energy", width: 4, scale: 0.1},
	{key: "eps_today_energy", width: 4, scale: 0.1},
}

// parseOverview decodes a cmdGetOverview response into telemetry keyed the
// way the entities are published.
func parseOverview(payload []byte) (map[string]any, error) {
	out := make(map[string]any, len(overviewFields))
	off := 0
	for _, f := range overviewFields {
		if off+f.width > len(payload) {
			return nil, fmt.Errorf("%w: overview payload truncated at %s", ErrBadFrame, f.key)
		}
		var raw int64
		switch f.width {
		case 2:
			raw = int64(binary.BigEndian.Uint16(payload[off:]))
		case 4:
			u := binary.BigEndian.Uint32(payload[off:])
			if f.signed {
				raw = int64(int32(u))
			} else {
				raw = int64(u)
			}
		}
		off += f.width

		if f.scale != 0 {
			out[f.key] = float64(raw) * f.scale
		} else {
			out[f.key] = int(raw)
		}
	}
	return out, nil
}

// wallboxStates maps the telemetry state byte to its published name.
var wallboxStates = [...]string{
	"idle", "charging", "paused", "disconnected", "error", "completed", "scheduled",
}

// parseTelemetry decodes an unsolicited wallbox telemetry frame.
//
// Layout: serial and model as NUL-terminated strings, then fixed fields:
// three phase voltages (0.1 V), three phase currents (0.01 A), power (W),
// temperature (0.1 °C signed), session energy (0.01 kWh), session minutes,
// lifetime energy (0.1 kWh) and the state byte.
//
// The returned map includes "sn" and "model"; callers filter identity keys
// out of what they publish.
func parseTelemetry(payload []byte) (map[string]any, error) {
	snEnd := bytes.IndexByte(payload, 0)
	if snEnd <= 0 {
		return nil, fmt.Errorf("%w: telemetry missing serial", ErrBadFrame)
	}
	rest := payload[snEnd+1:]
	modelEnd := bytes.IndexByte(rest, 0)
	if modelEnd <= 0 {
		return nil, fmt.Errorf("%w: telemetry missing model", ErrBadFrame)
	}
	sn := string(payload[:snEnd])
	model := string(rest[:modelEnd])
	fixed := rest[modelEnd+1:]

	const fixedLen = 3*2 + 3*2 + 4 + 2 + 4 + 2 + 4 + 1
	if len(fixed) < fixedLen {
		return nil, fmt.Errorf("%w: telemetry fixed part %d bytes, want %d", ErrBadFrame, len(fixed), fixedLen)
	}

	out := map[string]any{
		"sn":    sn,
		"model": model,
	}

	off := 0
	u16 := func() uint16 {
		v := binary.BigEndian.Uint16(fixed[off:])
		off += 2
		return v
	}
	u32 := func() uint32 {
		v := binary.BigEndian.Uint32(fixed[off:])
		off += 4
		return v
	}

	out["phase_a_voltage"] = float64(u16()) * 0.1
	out["phase_b_voltage"] = float64(u16()) * 0.1
	out["phase_c_voltage"] = float64(u16()) * 0.1
	out["phase_a_current"] = float64(u16()) * 0.01
	out["phase_b_current"] = float64(u16()) * 0.01
	out["phase_c_current"] = float64(u16()) * 0.01
	out["power"] = int(u32())
	out["temperature"] = float64(int16(u16())) * 0.1
	out["current_charging_amount"] = float64(u32()) * 0.01
	out["current_charging_time"] = int(u16())
	out["total_charge"] = float64(u32()) * 0.1

	state := fixed[off]
	if int(state) >= len(wallboxStates) {
		return nil, fmt.Errorf("%w: state byte %d", ErrBadFrame, state)
	}
	out["state"] = wallboxStates[state]

	return out, nil
}

// readParamPayload builds a cmdReadParam request body.
func readParamPayload(reg uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, reg)
	return buf
}

// writeParamPayload builds a cmdWriteParam request body.
// Values are signed 16-bit (power_limit_percent goes down to -100).
func writeParamPayload(reg uint16, value int16) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf, reg)
	binary.BigEndian.PutUint16(buf[2:], uint16(value))
	return buf
}

// parseParamValue decodes a cmdReadParam response.
func parseParamValue(payload []byte, wantReg uint16) (int16, error) {
	if len(payload) < 4 {
		return 0, fmt.Errorf("%w: param payload %d bytes", ErrBadFrame, len(payload))
	}
	reg := binary.BigEndian.Uint16(payload)
	if reg != wantReg {
		return 0, fmt.Errorf("%w: answered register 0x%04x, asked 0x%04x", ErrBadFrame, reg, wantReg)
	}
	return int16(binary.BigEndian.Uint16(payload[2:])), nil
}

// parseWriteStatus decodes a cmdWriteParam response.
func parseWriteStatus(payload []byte) error {
	if len(payload) < 1 {
		return fmt.Errorf("%w: empty write response", ErrBadFrame)
	}
	if payload[0] != writeStatusOK {
		return fmt.Errorf("%w: status 0x%02x", ErrWriteRejected, payload[0])
	}
	return nil
}
