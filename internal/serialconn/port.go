package serialconn

import (
	"io"
	"time"
)

// Port is the minimal interface a serial device handle must satisfy.
// Real handles come from the platform opener; tests supply their own.
type Port interface {
	io.ReadWriter
	io.Closer
}

// TimeoutPort is an optional extension for handles that support a read
// timeout. The platform opener applies Options.ReadTimeout when the opened
// handle implements it.
type TimeoutPort interface {
	Port
	SetReadTimeout(timeout time.Duration) error
}

// Opener opens a device handle at the given path with the given options.
type Opener func(path string, opts Options) (Port, error)

// Lister enumerates the device paths currently attached to the host.
type Lister func() ([]string, error)
