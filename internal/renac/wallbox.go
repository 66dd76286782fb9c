package renac

import (
	"context"
)

// TelemetryHandler receives decoded wallbox telemetry. The map includes the
// identity keys "sn" and "model" alongside the measurements.
type TelemetryHandler func(values map[string]any)

// Wallbox keeps a connection to one RENAC EV wallbox. The wallbox pushes
// telemetry on its own schedule; there is no polling command.
type Wallbox struct {
	adapter Adapter
	addr    string
	sess    *session
	handler TelemetryHandler
}

// NewWallbox creates a client for the wallbox at addr. Telemetry frames are
// decoded and handed to handler; malformed frames are dropped.
func NewWallbox(adapter Adapter, addr string, handler TelemetryHandler) *Wallbox {
	w := &Wallbox{
		adapter: adapter,
		addr:    addr,
		handler: handler,
	}
	w.sess = newSession(w.handleEvent)
	return w
}

// Addr returns the configured BLE address.
func (w *Wallbox) Addr() string {
	return w.addr
}

// Connect establishes the BLE connection and starts receiving telemetry.
func (w *Wallbox) Connect(ctx context.Context) error {
	conn, err := w.adapter.Connect(ctx, w.addr)
	if err != nil {
		return err
	}
	if err := w.sess.open(conn); err != nil {
		conn.Disconnect()
		return err
	}
	return nil
}

// Close tears down the connection.
func (w *Wallbox) Close() error {
	return w.sess.close()
}

// Connected reports whether the BLE link is believed alive.
func (w *Wallbox) Connected() bool {
	return w.sess.isConnected()
}

// handleEvent decodes unsolicited frames from the session.
func (w *Wallbox) handleEvent(f frame) {
	if f.cmd != cmdTelemetry {
		return
	}
	values, err := parseTelemetry(f.payload)
	if err != nil {
		return
	}
	if w.handler != nil {
		w.handler(values)
	}
}
