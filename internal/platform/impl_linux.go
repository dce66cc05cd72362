//go:build linux
// +build linux

package platform

import (
	"fmt"
	"os"
	"runtime"
)

// linuxImpl is a placeholder. Window tracking and input capture are not yet
// implemented for X11/Wayland; the agent runs in degraded mode (no raw input
// capture, desktop sentinel window state) on Linux.
type linuxImpl struct{}

func newLinuxPlatform() (Platform, error) {
	return &linuxImpl{}, nil
}

func (p *linuxImpl) GetActiveWindow() (*WindowInfo, error) {
	return nil, fmt.Errorf("linux window tracking not yet implemented")
}

func (p *linuxImpl) StartInputCapture(callback func(InputEvent)) error {
	return fmt.Errorf("linux input capture not yet implemented")
}

func (p *linuxImpl) StopInputCapture() error {
	return nil
}

func (p *linuxImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:        "linux",
		OSVersion: runtime.GOOS,
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
	}, nil
}
