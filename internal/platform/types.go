package platform

import (
	"time"

	"github.com/bramburn/timetracker/internal/models"
)

// Platform defines the interface for platform-specific operations
type Platform interface {
	// GetActiveWindow returns information about the currently active window
	GetActiveWindow() (*WindowInfo, error)

	// StartInputCapture registers OS-level keyboard and mouse interception
	// and delivers one InputEvent per observed event. The callback runs on
	// the hook delivery context and must not block for long.
	StartInputCapture(callback func(InputEvent)) error

	// StopInputCapture unregisters the hooks. It returns only after no
	// further callbacks can fire into the caller.
	StopInputCapture() error

	// GetSystemInfo returns system information
	GetSystemInfo() (*SystemInfo, error)
}

// WindowInfo contains information about a window
type WindowInfo struct {
	Title       string
	Application string
	ProcessID   int
	ProcessPath string
	Timestamp   time.Time
}

// InputEvent is one intercepted keyboard or mouse event, already classified
// into the agent's event taxonomy.
type InputEvent struct {
	Type      models.EventType
	Details   string
	Timestamp time.Time
}

// SystemInfo contains system information
type SystemInfo struct {
	OS        string
	OSVersion string
	Arch      string
	Hostname  string
}
