package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/DanielTwellmann/benchlink/internal/httputil"
)

// DeviceInfo describes one attached serial device for the GUI's port picker.
type DeviceInfo struct {
	PortPath     string `json:"port_path"`
	FriendlyName string `json:"friendly_name"`
}

// handleDevices handles GET /api/devices. The port scan can block on bus
// enumeration, which is fine here: every request runs off the GUI's main
// loop. An empty list is a valid answer (nothing attached, or no serial
// transport in this build), never an error.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	devices := []DeviceInfo{}
	for _, path := range s.conn.ListPorts() {
		devices = append(devices, DeviceInfo{
			PortPath:     path,
			FriendlyName: friendlyName(path),
		})
	}
	httputil.WriteJSONOK(w, devices)
}

// friendlyName generates a user-facing label for a serial port path.
func friendlyName(portPath string) string {
	parts := strings.Split(portPath, "/")
	deviceName := parts[len(parts)-1]

	switch {
	case strings.HasPrefix(deviceName, "ttyUSB"):
		return fmt.Sprintf("USB Serial Adapter (%s)", deviceName)
	case strings.HasPrefix(deviceName, "ttyACM"):
		return fmt.Sprintf("USB CDC Device (%s)", deviceName)
	case strings.HasPrefix(deviceName, "ttyAMA"):
		return fmt.Sprintf("Raspberry Pi Serial (%s)", deviceName)
	case strings.HasPrefix(deviceName, "cu.") || strings.HasPrefix(deviceName, "tty."):
		return fmt.Sprintf("Serial Device (%s)", deviceName)
	case strings.HasPrefix(deviceName, "COM"):
		return fmt.Sprintf("Serial Port (%s)", deviceName)
	default:
		return deviceName
	}
}
