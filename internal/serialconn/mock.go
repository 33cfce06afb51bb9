package serialconn

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// TestablePort implements Port with configurable behaviour for tests.
// It lives outside the _test files so other packages can wire a Conn to a
// fake device.
type TestablePort struct {
	mu sync.Mutex

	// ReadBuffer holds data returned by Read calls.
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port.
	WriteBuffer *bytes.Buffer

	// TimeoutReads makes Read return (0, nil) when the buffer is empty,
	// mimicking a real port's read timeout instead of EOF.
	TimeoutReads bool

	// ReadError is returned by the next Read call if set, then cleared.
	ReadError error

	// WriteError is returned by the next Write call if set, then cleared.
	WriteError error

	// ShortWrites makes Write report one byte fewer than requested.
	ShortWrites bool

	// CloseError is returned by Close if set.
	CloseError error

	// Closed indicates whether Close was called.
	Closed bool

	// ReadCalls and WriteCalls count invocations.
	ReadCalls  int
	WriteCalls int

	// ReadTimeout records the last SetReadTimeout value.
	ReadTimeout time.Duration
}

// NewTestablePort returns an empty TestablePort.
func NewTestablePort() *TestablePort {
	return &TestablePort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
}

func (t *TestablePort) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++
	if t.Closed {
		return 0, errors.New("port closed")
	}
	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}
	if t.TimeoutReads && t.ReadBuffer.Len() == 0 {
		return 0, nil
	}
	return t.ReadBuffer.Read(p)
}

func (t *TestablePort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++
	if t.Closed {
		return 0, errors.New("port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	if t.ShortWrites && len(p) > 0 {
		n, _ := t.WriteBuffer.Write(p[:len(p)-1])
		return n, nil
	}
	return t.WriteBuffer.Write(p)
}

func (t *TestablePort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	return t.CloseError
}

// SetReadTimeout implements TimeoutPort.
func (t *TestablePort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData queues data for subsequent Read calls.
func (t *TestablePort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
}

// WrittenData returns everything written to the port so far.
func (t *TestablePort) WrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}

// MockOpener implements an Opener that records calls and hands out a
// configured port or error.
type MockOpener struct {
	mu sync.Mutex

	// Port is returned by Open when Err is nil.
	Port Port

	// Err is returned by Open if set.
	Err error

	// Calls records every Open invocation.
	Calls []OpenCall
}

// OpenCall records the arguments of one Open invocation.
type OpenCall struct {
	Path string
	Opts Options
}

// NewMockOpener wraps the given port in a recording opener.
func NewMockOpener(port Port) *MockOpener {
	return &MockOpener{Port: port}
}

// Open implements Opener.
func (m *MockOpener) Open(path string, opts Options) (Port, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, OpenCall{Path: path, Opts: opts})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Port, nil
}

// OpenCount returns how many times Open was invoked.
func (m *MockOpener) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Calls)
}

// LastCall returns the most recent Open call, or nil if none.
func (m *MockOpener) LastCall() *OpenCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Calls) == 0 {
		return nil
	}
	call := m.Calls[len(m.Calls)-1]
	return &call
}
