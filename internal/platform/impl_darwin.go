//go:build darwin
// +build darwin

package platform

import (
	"fmt"
	"os"
	"runtime"
)

// darwinImpl is a placeholder. Input capture on macOS requires accessibility
// permissions and a CGEventTap; until that lands the agent runs in degraded
// mode on darwin.
type darwinImpl struct{}

func newDarwinPlatform() (Platform, error) {
	return &darwinImpl{}, nil
}

func (p *darwinImpl) GetActiveWindow() (*WindowInfo, error) {
	return nil, fmt.Errorf("darwin window tracking not yet implemented")
}

func (p *darwinImpl) StartInputCapture(callback func(InputEvent)) error {
	return fmt.Errorf("darwin input capture not yet implemented")
}

func (p *darwinImpl) StopInputCapture() error {
	return nil
}

func (p *darwinImpl) GetSystemInfo() (*SystemInfo, error) {
	hostname, _ := os.Hostname()
	return &SystemInfo{
		OS:        "darwin",
		OSVersion: runtime.GOOS,
		Arch:      runtime.GOARCH,
		Hostname:  hostname,
	}, nil
}
