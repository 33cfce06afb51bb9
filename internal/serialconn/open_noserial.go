//go:build noserial

package serialconn

// transportAvailable reports whether this build carries a serial transport.
const transportAvailable = false

func platformOpen(path string, opts Options) (Port, error) {
	return nil, ErrUnavailable
}

func platformList() ([]string, error) {
	return nil, nil
}
