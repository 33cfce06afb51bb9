// Package serialconn owns access to a single serial measurement device.
//
// A Conn holds at most one open device handle and serializes every state
// transition and I/O call through one mutex, so the foreground GUI process
// and background workers (port scans, monitors) can share it safely. The
// handle is either absent or open: every close path clears it.
package serialconn

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/DanielTwellmann/benchlink/internal/monitoring"
)

var (
	// ErrUnavailable is returned when the build or runtime configuration
	// provides no serial transport at all.
	ErrUnavailable = errors.New("serial transport unavailable")

	// ErrEmptyPort is returned by Connect when no port name was given.
	ErrEmptyPort = errors.New("port name is empty")

	// ErrNotConnected is returned by Read and Write when no device is open.
	ErrNotConnected = errors.New("not connected")

	// ErrOpenFailed wraps the underlying error when opening a device fails.
	ErrOpenFailed = errors.New("failed to open serial port")

	// ErrWriteFailed is returned when the device accepted fewer bytes than
	// were written.
	ErrWriteFailed = errors.New("short write to serial port")
)

// Conn manages a single, possibly-absent serial device handle.
type Conn struct {
	opts Options

	// disabled is fixed at construction; reads need no lock.
	disabled bool

	open Opener
	list Lister

	mu   sync.Mutex
	port Port
	path string
}

// ConnOption customises a Conn at construction time.
type ConnOption func(*Conn)

// WithoutSerial marks the transport as unavailable regardless of the build.
// Connect fails and ListPorts returns nothing. Used for hardware-less runs.
func WithoutSerial() ConnOption {
	return func(c *Conn) { c.disabled = true }
}

// WithOpener replaces the platform opener. Intended for tests.
func WithOpener(open Opener) ConnOption {
	return func(c *Conn) { c.open = open }
}

// WithLister replaces the platform port lister. Intended for tests.
func WithLister(list Lister) ConnOption {
	return func(c *Conn) { c.list = list }
}

// New constructs a Conn with the given options, which are normalized once
// and immutable afterwards.
func New(opts Options, copts ...ConnOption) (*Conn, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	c := &Conn{
		opts:     normalized,
		disabled: !transportAvailable,
		open:     platformOpen,
		list:     platformList,
	}
	for _, o := range copts {
		o(c)
	}
	return c, nil
}

// Options returns the normalized connection options.
func (c *Conn) Options() Options { return c.opts }

// Available reports whether a serial transport exists at all. It gates the
// GUI's connect affordances and never fails.
func (c *Conn) Available() bool { return !c.disabled }

// IsConnected reports whether a device handle is currently open.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// PortName returns the path of the connected device, or "" when disconnected.
func (c *Conn) PortName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.path
}

// Connect opens the device at path using the fixed options. Connecting while
// already connected is a no-op so duplicate button presses cannot race two
// opens. The open itself can block on device discovery; callers that care
// about UI responsiveness run it off the foreground context.
func (c *Conn) Connect(path string) error {
	if path == "" {
		return ErrEmptyPort
	}
	if c.disabled {
		return ErrUnavailable
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return nil
	}

	port, err := c.open(path, c.opts)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpenFailed, path, err)
	}
	c.port = port
	c.path = path
	return nil
}

// Disconnect closes the device handle if one is open. Close errors are
// swallowed on purpose: the caller asked to be disconnected, and dropping
// the handle achieves that either way. The handle is always cleared.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		if err := c.port.Close(); err != nil {
			monitoring.Logf("serialconn: error closing %s (handle dropped anyway): %v", c.path, err)
		}
	}
	c.port = nil
	c.path = ""
}

// ListPorts enumerates the serial devices currently attached to the host,
// sorted for stable presentation. It returns an empty list, never an error:
// when the transport is unavailable or enumeration fails there is simply
// nothing to offer the user. Enumeration can block on bus I/O, so callers
// run it from a background goroutine.
func (c *Conn) ListPorts() []string {
	if c.disabled {
		return nil
	}
	ports, err := c.list()
	if err != nil {
		monitoring.Logf("serialconn: port enumeration failed: %v", err)
		return nil
	}
	sort.Strings(ports)
	return ports
}

// Write sends the whole buffer to the device. It fails with ErrNotConnected
// when no handle is open and ErrWriteFailed on a short write.
func (c *Conn) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return ErrNotConnected
	}
	n, err := c.port.Write(p)
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if n != len(p) {
		return ErrWriteFailed
	}
	return nil
}

// Read reads up to len(p) bytes from the device. A zero-byte read means the
// configured read timeout elapsed with no data; that is silence, not an
// error, and must not be taken as a disconnect.
func (c *Conn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port == nil {
		return 0, ErrNotConnected
	}
	n, err := c.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("serial read: %w", err)
	}
	return n, nil
}
