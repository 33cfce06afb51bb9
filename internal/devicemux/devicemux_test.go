package devicemux

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DanielTwellmann/benchlink/internal/serialconn"
)

// fakeConn scripts reads and records writes for monitor tests.
type fakeConn struct {
	mu       sync.Mutex
	pending  []byte
	readErr  error
	writes   bytes.Buffer
	writeErr error
}

func (f *fakeConn) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.pending) == 0 {
		return 0, nil // timed-out read
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeConn) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes.Write(p)
	return nil
}

func (f *fakeConn) push(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, s...)
}

func (f *fakeConn) setReadErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr = err
}

func (f *fakeConn) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.String()
}

func newTestMux(conn Conn) *Mux {
	m := New(conn)
	m.pollInterval = 5 * time.Millisecond
	return m
}

func waitLine(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		if !ok {
			t.Fatal("subscriber channel closed unexpectedly")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a line")
	}
	return ""
}

func TestMonitorDeliversLinesToSubscribers(t *testing.T) {
	conn := &fakeConn{}
	m := newTestMux(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- m.Monitor(ctx) }()

	_, ch1 := m.Subscribe()
	_, ch2 := m.Subscribe()

	conn.push("temp=21.4\nhum=40.2\n")

	for _, ch := range []chan string{ch1, ch2} {
		if got := waitLine(t, ch); got != "temp=21.4" {
			t.Errorf("first line = %q, want temp=21.4", got)
		}
		if got := waitLine(t, ch); got != "hum=40.2" {
			t.Errorf("second line = %q, want hum=40.2", got)
		}
	}

	cancel()
	select {
	case err := <-monitorDone:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Monitor returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not stop after cancellation")
	}
}

func TestMonitorTreatsDisconnectAsSilence(t *testing.T) {
	conn := &fakeConn{}
	conn.setReadErr(serialconn.ErrNotConnected)
	m := newTestMux(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Monitor(ctx)

	_, ch := m.Subscribe()

	// Device "connects" after the monitor has already been polling.
	time.Sleep(20 * time.Millisecond)
	conn.setReadErr(nil)
	conn.push("ready\n")

	if got := waitLine(t, ch); got != "ready" {
		t.Errorf("line after reconnect = %q, want ready", got)
	}
}

func TestMonitorRecoversFromReadError(t *testing.T) {
	conn := &fakeConn{}
	m := newTestMux(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Monitor(ctx)

	_, ch := m.Subscribe()

	conn.setReadErr(errors.New("bus glitch"))
	time.Sleep(20 * time.Millisecond)
	conn.setReadErr(nil)
	conn.push("back\n")

	if got := waitLine(t, ch); got != "back" {
		t.Errorf("line after read error = %q, want back", got)
	}
}

func TestSendAppendsNewline(t *testing.T) {
	conn := &fakeConn{}
	m := newTestMux(conn)

	if err := m.Send("MEAS?"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if err := m.Send("RESET\n"); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got := conn.written(); got != "MEAS?\nRESET\n" {
		t.Errorf("device received %q, want MEAS?\\nRESET\\n", got)
	}
}

func TestSendPropagatesConnErrors(t *testing.T) {
	conn := &fakeConn{writeErr: serialconn.ErrNotConnected}
	m := newTestMux(conn)

	if err := m.Send("MEAS?"); !errors.Is(err, serialconn.ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := newTestMux(&fakeConn{})

	id, ch := m.Subscribe()
	m.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel must be closed after Unsubscribe")
	}

	// Unsubscribing twice is harmless.
	m.Unsubscribe(id)
}

func TestCloseClosesAllSubscribers(t *testing.T) {
	m := newTestMux(&fakeConn{})

	_, ch1 := m.Subscribe()
	_, ch2 := m.Subscribe()
	m.Close()

	for _, ch := range []chan string{ch1, ch2} {
		if _, ok := <-ch; ok {
			t.Error("channel must be closed after Close")
		}
	}

	// Subscribing after Close yields a closed channel so callers never block.
	_, ch3 := m.Subscribe()
	if _, ok := <-ch3; ok {
		t.Error("Subscribe after Close must return a closed channel")
	}
}

func TestFanoutDropsWhenSubscriberIsFull(t *testing.T) {
	m := newTestMux(&fakeConn{})

	_, ch := m.Subscribe()
	for i := 0; i < cap(ch)+8; i++ {
		m.fanout("line")
	}
	// The monitor must not have blocked; the channel holds at most its
	// buffered capacity.
	if len(ch) != cap(ch) {
		t.Errorf("channel holds %d lines, want %d", len(ch), cap(ch))
	}
}
