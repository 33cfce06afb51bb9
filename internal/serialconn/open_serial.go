//go:build !noserial

package serialconn

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// transportAvailable reports whether this build carries a serial transport.
// Building with -tags noserial produces a binary that degrades gracefully on
// hosts without serial support.
const transportAvailable = true

// serialMode converts normalized options into the go.bug.st mode structure.
func serialMode(opts Options) (*serial.Mode, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.StopBits(opts.StopBits),
	}
	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q", opts.Parity)
	}
	return mode, nil
}

// platformOpen opens a real serial port and applies the read timeout.
func platformOpen(path string, opts Options) (Port, error) {
	mode, err := serialMode(opts)
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}

// platformList enumerates attached serial devices. The detailed enumerator
// is preferred because it skips phantom ttys on some platforms; it falls
// back to the plain port list if unavailable.
func platformList() ([]string, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		paths := make([]string, 0, len(details))
		for _, d := range details {
			paths = append(paths, d.Name)
		}
		return paths, nil
	}
	return serial.GetPortsList()
}
