// Package session establishes who and which run telemetry belongs to. The
// user ID comes from configuration, the session ID is minted per process,
// and the device ID is derived from stable machine identifiers.
package session

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/google/uuid"
)

// Identity tags every uploaded record.
type Identity struct {
	UserID    string
	SessionID string
	DeviceID  string
}

// NewIdentity builds the identity for this process. The session ID is a
// fresh UUID; a new one is minted every run. An empty userID falls back to
// the device ID so records stay attributable.
func NewIdentity(userID string) Identity {
	deviceID := resolveDeviceID()
	if userID == "" {
		userID = deviceID
	}
	return Identity{
		UserID:    userID,
		SessionID: uuid.New().String(),
		DeviceID:  deviceID,
	}
}

// resolveDeviceID picks the most stable identifier available, ending with a
// random UUID when the machine offers nothing usable.
func resolveDeviceID() string {
	if id, err := platformDeviceID(); err == nil && id != "" {
		return id
	}
	return uuid.New().String()
}

func platformDeviceID() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return windowsDeviceID()
	case "darwin":
		return darwinDeviceID()
	case "linux":
		return linuxDeviceID()
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func windowsDeviceID() (string, error) {
	output, err := exec.Command("wmic", "csproduct", "get", "uuid").Output()
	if err == nil {
		for _, line := range strings.Split(string(output), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && line != "UUID" && len(line) > 10 {
				return line, nil
			}
		}
	}

	output, err = exec.Command("wmic", "bios", "get", "serialnumber").Output()
	if err == nil {
		for _, line := range strings.Split(string(output), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && line != "SerialNumber" && len(line) > 3 {
				return line, nil
			}
		}
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return "windows-" + hostname, nil
	}
	return "", fmt.Errorf("could not determine Windows device ID")
}

func darwinDeviceID() (string, error) {
	output, err := exec.Command("system_profiler", "SPHardwareDataType").Output()
	if err == nil {
		for _, line := range strings.Split(string(output), "\n") {
			if strings.Contains(line, "Hardware UUID") {
				parts := strings.Split(line, ":")
				if len(parts) > 1 {
					return strings.TrimSpace(parts[1]), nil
				}
			}
		}
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return "darwin-" + hostname, nil
	}
	return "", fmt.Errorf("could not determine macOS device ID")
}

func linuxDeviceID() (string, error) {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if machineID, err := os.ReadFile(path); err == nil && len(machineID) > 0 {
			return strings.TrimSpace(string(machineID)), nil
		}
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return "linux-" + hostname, nil
	}
	return "", fmt.Errorf("could not determine Linux device ID")
}
