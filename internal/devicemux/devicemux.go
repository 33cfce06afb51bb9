// Package devicemux fans lines read from the measurement device out to
// multiple subscribers (the SSE tail, the readings recorder) and funnels
// outbound commands through a single path. It sits on top of a serialconn
// connection and stays running across connects and disconnects: a
// disconnected device is just a silent one.
package devicemux

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DanielTwellmann/benchlink/internal/monitoring"
	"github.com/DanielTwellmann/benchlink/internal/serialconn"
)

// Conn is the subset of serialconn.Conn the mux needs.
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) error
}

// Mux distributes device output lines to subscribers.
type Mux struct {
	conn Conn

	// pollInterval bounds how often the monitor re-polls a silent or
	// disconnected device.
	pollInterval time.Duration

	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
}

// New creates a Mux on top of the given connection.
func New(conn Conn) *Mux {
	return &Mux{
		conn:         conn,
		pollInterval: 100 * time.Millisecond,
		subscribers:  make(map[string]chan string),
	}
}

// Subscribe creates a channel receiving device output lines. The returned ID
// identifies the channel for Unsubscribe. Slow subscribers miss lines rather
// than stalling the monitor.
func (m *Mux) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string, 16)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		close(ch)
		return id, ch
	}
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Mux) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// Send writes a command line to the device, appending a newline if the
// caller left it off. Errors surface unchanged so callers can distinguish
// a disconnected device from an I/O failure.
func (m *Mux) Send(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	return m.conn.Write([]byte(command))
}

// Monitor reads device output and fans complete lines out to subscribers.
// It runs until ctx is cancelled: read errors are logged and retried after
// a short pause, and a disconnected device is treated as silence so the
// loop picks the connection back up after the next Connect.
func (m *Mux) Monitor(ctx context.Context) error {
	for {
		if err := m.monitorOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("devicemux: monitor: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// monitorOnce scans the connection until an I/O error or cancellation.
func (m *Mux) monitorOnce(ctx context.Context) error {
	scan := bufio.NewScanner(&pollReader{ctx: ctx, conn: m.conn, idle: m.pollInterval})

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// The blocking scan.Scan runs in its own goroutine so the outer loop can
	// await lines and cancellation at the same time.
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				return scan.Err()
			}
			m.fanout(line)
		}
	}
}

func (m *Mux) fanout(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return
	}
	for _, ch := range m.subscribers {
		select {
		case ch <- line:
		default:
			// Subscriber is not keeping up; drop rather than block the monitor.
		}
	}
}

// Close closes all subscriber channels. It does not touch the underlying
// connection, whose lifecycle belongs to the connect/disconnect handlers.
func (m *Mux) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return
	}
	m.closing = true
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
}

// pollReader adapts a Conn for bufio.Scanner. The connection's reads time
// out with (0, nil) and fail with ErrNotConnected while no device is open;
// both are silence, not stream ends, so the reader waits and retries
// instead of reporting EOF or no progress.
type pollReader struct {
	ctx  context.Context
	conn Conn
	idle time.Duration
}

func (r *pollReader) Read(p []byte) (int, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}

		n, err := r.conn.Read(p)
		switch {
		case errors.Is(err, serialconn.ErrNotConnected):
			// fall through to the wait below
		case err != nil:
			return 0, err
		case n > 0:
			return n, nil
		}

		select {
		case <-r.ctx.Done():
			return 0, r.ctx.Err()
		case <-time.After(r.idle):
		}
	}
}
