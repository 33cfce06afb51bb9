package serialconn

import (
	"fmt"
	"strings"
	"time"
)

// Options describes the connection parameters used when opening a device.
// They are fixed for the lifetime of a Conn; the GUI reconnects to change
// them.
type Options struct {
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	ReadTimeout time.Duration `json:"read_timeout"`
}

// DefaultOptions returns the mode used for the bench instruments this
// service ships against: 115200 8-N-1 with a 100ms read timeout.
func DefaultOptions() Options {
	return Options{
		BaudRate:    115200,
		DataBits:    8,
		StopBits:    1,
		Parity:      "N",
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Normalize validates the options and applies defaults for unset values.
func (o Options) Normalize() (Options, error) {
	opts := o

	if opts.BaudRate < 0 {
		return opts, fmt.Errorf("invalid baud rate %d", opts.BaudRate)
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = 115200
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity

	if opts.ReadTimeout < 0 {
		return opts, fmt.Errorf("invalid read timeout %v", opts.ReadTimeout)
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 100 * time.Millisecond
	}

	return opts, nil
}

// Equal reports whether two option sets describe the same configuration
// after normalization.
func (o Options) Equal(other Options) bool {
	a, errA := o.Normalize()
	b, errB := other.Normalize()
	if errA != nil || errB != nil {
		return false
	}
	return a == b
}
