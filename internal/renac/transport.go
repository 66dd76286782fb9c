package renac

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// defaultRequestTimeout bounds a request when the caller's context carries
// no deadline of its own.
const defaultRequestTimeout = 5 * time.Second

// session runs the framed request/response protocol over one BLE connection.
//
// Responses are matched to requests by sequence number. Frames that match
// no pending request are routed to the event callback (wallbox telemetry).
type session struct {
	conn  Connection
	write Characteristic

	mu      sync.Mutex
	nextSeq uint8
	pending map[uint8]chan frame

	onEvent   func(frame)
	connected atomic.Bool
}

func newSession(onEvent func(frame)) *session {
	return &session{
		pending: make(map[uint8]chan frame),
		onEvent: onEvent,
	}
}

// open discovers the protocol characteristics and starts listening.
func (s *session) open(conn Connection) error {
	write, err := conn.DiscoverCharacteristic(ServiceUUID, WriteCharUUID)
	if err != nil {
		return fmt.Errorf("renac: write characteristic: %w", err)
	}
	notify, err := conn.DiscoverCharacteristic(ServiceUUID, NotifyCharUUID)
	if err != nil {
		return fmt.Errorf("renac: notify characteristic: %w", err)
	}
	if err := notify.Subscribe(s.handleNotification); err != nil {
		return fmt.Errorf("renac: subscribe notifications: %w", err)
	}

	conn.OnDisconnect(func() {
		s.connected.Store(false)
		s.failPending()
	})

	s.conn = conn
	s.write = write
	s.connected.Store(true)
	return nil
}

// handleNotification decodes one inbound frame and routes it.
// Garbage frames are dropped; the requester's timeout handles the loss.
func (s *session) handleNotification(data []byte) {
	f, err := decodeFrame(data)
	if err != nil {
		return
	}

	s.mu.Lock()
	ch, waiting := s.pending[f.seq]
	if waiting {
		delete(s.pending, f.seq)
	}
	s.mu.Unlock()

	if waiting {
		ch <- f
		return
	}
	if s.onEvent != nil {
		s.onEvent(f)
	}
}

// request writes one frame and waits for the matching response.
func (s *session) request(ctx context.Context, cmd uint8, payload []byte) (frame, error) {
	if !s.connected.Load() {
		return frame{}, ErrNotConnected
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultRequestTimeout)
		defer cancel()
	}

	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	ch := make(chan frame, 1)
	s.pending[seq] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, seq)
		s.mu.Unlock()
	}()

	if err := s.write.Write(encodeFrame(frame{cmd: cmd, seq: seq, payload: payload})); err != nil {
		return frame{}, fmt.Errorf("renac: write request 0x%02x: %w", cmd, err)
	}

	select {
	case <-ctx.Done():
		return frame{}, fmt.Errorf("%w: command 0x%02x: %v", ErrRequestTimeout, cmd, ctx.Err())
	case f, ok := <-ch:
		if !ok {
			return frame{}, ErrNotConnected
		}
		if f.cmd != cmd {
			return frame{}, fmt.Errorf("%w: response command 0x%02x for request 0x%02x", ErrBadFrame, f.cmd, cmd)
		}
		return f, nil
	}
}

// failPending aborts every in-flight request after a disconnect.
func (s *session) failPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for seq, ch := range s.pending {
		close(ch)
		delete(s.pending, seq)
	}
}

// isConnected reports whether the underlying connection is believed alive.
func (s *session) isConnected() bool {
	return s.connected.Load()
}

// close tears the connection down. Safe to call when never opened.
func (s *session) close() error {
	s.connected.Store(false)
	s.failPending()
	if s.conn == nil {
		return nil
	}
	return s.conn.Disconnect()
}
